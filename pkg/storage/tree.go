package storage

// Location points at a matched node inside the tree it was found in.
// Siblings[Index] aliases the original tree, so assigning through it mutates
// the stored document in memory.
type Location struct {
	Node     *Node
	Siblings []Node
	Index    int
}

// Find returns the first endpoint named name in pre-order, sibling-order
// traversal. Folders without a request never match.
func Find(nodes []Node, name string) *Node {
	loc := FindWithLocation(nodes, name)
	if loc == nil {
		return nil
	}
	return loc.Node
}

// FindWithLocation is Find that also reports where the match lives. Each node
// is tested before its children, and children are searched whether or not the
// node itself had the target name.
func FindWithLocation(nodes []Node, name string) *Location {
	for i := range nodes {
		node := &nodes[i]
		if node.Name == name && node.Request != nil {
			return &Location{Node: node, Siblings: nodes, Index: i}
		}
		if len(node.Item) > 0 {
			if found := FindWithLocation(node.Item, name); found != nil {
				return found
			}
		}
	}
	return nil
}

// Walk visits every node in pre-order. folder holds the names of the
// enclosing nodes, outermost first. Returning false stops the walk.
func Walk(nodes []Node, fn func(folder []string, node *Node) bool) {
	walk(nodes, nil, fn)
}

func walk(nodes []Node, folder []string, fn func([]string, *Node) bool) bool {
	for i := range nodes {
		node := &nodes[i]
		if !fn(folder, node) {
			return false
		}
		if len(node.Item) > 0 {
			next := append(cloneStrings(folder), node.Name)
			if !walk(node.Item, next, fn) {
				return false
			}
		}
	}
	return true
}
