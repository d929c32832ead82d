package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/blackcoderx/postbox/pkg/storage"
	"github.com/spf13/cobra"
)

func newCollectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"collection", "apis"},
		Short:   "Inspect and import stored collections",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.collections.List()
			if err != nil {
				return err
			}
			if outputFormat != outputText {
				return writeStructured(cmd.OutOrStdout(), outputFormat, names)
			}
			renderNames(cmd.OutOrStdout(), "collections", names)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Print a collection document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			coll, err := a.collections.Load(args[0])
			if err != nil {
				return err
			}
			format := outputFormat
			if format == outputText {
				format = outputJSON
			}
			return writeStructured(cmd.OutOrStdout(), format, coll)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "endpoints <name>",
		Short: "List the endpoints of a collection in traversal order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			refs, err := a.collections.Endpoints(args[0])
			if err != nil {
				return err
			}
			if outputFormat != outputText {
				return writeStructured(cmd.OutOrStdout(), outputFormat, refs)
			}
			renderEndpoints(cmd.OutOrStdout(), refs)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <name> <file>",
		Short: "Validate a collection file and store it under name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[1], err)
			}
			if err := storage.ValidateCollection(data); err != nil {
				return err
			}
			var coll storage.Collection
			if err := json.Unmarshal(data, &coll); err != nil {
				return fmt.Errorf("%w: %v", storage.ErrParse, err)
			}
			if err := a.collections.Put(args[0], &coll); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okStyle.Render("imported"), nameStyle.Render(args[0]))
			return nil
		},
	})

	return cmd
}
