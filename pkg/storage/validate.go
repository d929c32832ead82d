package storage

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// collectionSchema pins down the parts of a collection tree the index walks.
// Request contents are not checked here.
const collectionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "info": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "schema": {"type": "string"}
      }
    },
    "item": {"$ref": "#/definitions/items"}
  },
  "definitions": {
    "items": {
      "type": "array",
      "items": {"$ref": "#/definitions/node"}
    },
    "node": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "request": {"type": ["object", "string", "null"]},
        "item": {"$ref": "#/definitions/items"}
      }
    }
  }
}`

var collectionSchemaLoader = gojsonschema.NewStringLoader(collectionSchema)

// ValidateCollection checks that data is a well-formed collection tree.
// Failures wrap ErrParse.
func ValidateCollection(data []byte) error {
	result, err := gojsonschema.Validate(collectionSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrParse, strings.Join(problems, "; "))
}
