package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSaveCmd() *cobra.Command {
	var (
		req    requestFlags
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "save <collection> [endpoint]",
		Short: "Save a request into a collection",
		Long: `Save builds a request from the flags and writes it into the collection.
An endpoint with the same name is updated in place; otherwise the request is
appended at the top level. A missing collection is created. Without an
endpoint name a "Saved Request <millis>" name is generated.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			spec, err := req.spec()
			if err != nil {
				return err
			}
			collection, endpoint := args[0], ""
			if len(args) == 2 {
				endpoint = args[1]
			}

			out := cmd.OutOrStdout()
			if dryRun {
				diff, err := a.collections.Preview(collection, endpoint, spec)
				if err != nil {
					return err
				}
				if diff == "" {
					fmt.Fprintln(out, dimStyle.Render("no changes"))
					return nil
				}
				fmt.Fprint(out, diff)
				return nil
			}

			result, err := a.collections.Save(collection, endpoint, spec)
			if err != nil {
				return err
			}
			if outputFormat != outputText {
				return writeStructured(out, outputFormat, result)
			}
			verb := "updated"
			if result.Created {
				verb = "added"
			}
			fmt.Fprintf(out, "%s %s %s %s\n", okStyle.Render(verb), nameStyle.Render(result.SavedName),
				dimStyle.Render("in"), nameStyle.Render(result.Collection))
			return nil
		},
	}

	req.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the diff that would be written instead of saving")
	return cmd
}
