package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the selectable trade categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		options := page.LoadCategories(cmd.Context())
		out := cmd.OutOrStdout()

		if jsonOutput {
			return printJSON(out, options)
		}
		if len(options) == 0 {
			fmt.Fprintln(out, "No categories available.")
			return nil
		}
		for _, o := range options {
			if o.Text != o.Value {
				fmt.Fprintf(out, "%-40s %s\n", o.Value, o.Text)
			} else {
				fmt.Fprintln(out, o.Value)
			}
		}
		return nil
	},
}
