package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blackcoderx/postbox/pkg/storage"
	"github.com/blackcoderx/postbox/pkg/vars"
	"github.com/spf13/cobra"
)

func newEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "env",
		Aliases: []string{"environments"},
		Short:   "Manage environments of {{variables}}",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored environments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.environments.List()
			if err != nil {
				return err
			}
			if outputFormat != outputText {
				return writeStructured(cmd.OutOrStdout(), outputFormat, names)
			}
			renderNames(cmd.OutOrStdout(), "environments", names)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Print the variables of an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			env, err := a.environments.Load(args[0])
			if err != nil {
				return err
			}
			if outputFormat != outputText {
				return writeStructured(cmd.OutOrStdout(), outputFormat, env)
			}
			renderVariables(cmd.OutOrStdout(), env)
			return nil
		},
	})

	cmd.AddCommand(newEnvSetCmd())
	return cmd
}

func newEnvSetCmd() *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "set <name> key=value...",
		Short: "Set variables in an environment, creating it if needed",
		Long: `Set updates existing keys in place and appends new ones, keeping the
order of the stored environment. With --replace the stored values are
discarded and only the given pairs are written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			name := args[0]
			updates, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}

			var values []storage.Variable
			if !replace {
				existing, err := a.environments.Load(name)
				switch {
				case errors.Is(err, storage.ErrNotFound):
				case err != nil:
					return err
				default:
					values = existing.Values
				}
			}

			saved, err := a.environments.Save(name, mergeVariables(values, updates))
			if err != nil {
				return err
			}
			if outputFormat != outputText {
				return writeStructured(cmd.OutOrStdout(), outputFormat, saved)
			}
			renderVariables(cmd.OutOrStdout(), saved)
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "replace all stored variables instead of merging")
	return cmd
}

// parseAssignments turns key=value arguments into enabled variables. An
// argument without "=" or with an empty key is rejected.
func parseAssignments(args []string) ([]storage.Variable, error) {
	for _, arg := range args {
		key, _, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: variable %q must be key=value", storage.ErrValidation, arg)
		}
	}
	return vars.FromPairs(args), nil
}

// mergeVariables overwrites the first variable with a matching key and
// appends the rest, keeping base order.
func mergeVariables(base, updates []storage.Variable) []storage.Variable {
	out := make([]storage.Variable, len(base), len(base)+len(updates))
	copy(out, base)
	for _, u := range updates {
		found := false
		for i := range out {
			if out[i].Key == u.Key {
				out[i].Value = u.Value
				out[i].Enabled = true
				found = true
				break
			}
		}
		if !found {
			out = append(out, u)
		}
	}
	return out
}
