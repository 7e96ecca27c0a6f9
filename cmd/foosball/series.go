package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeriesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Inspect series",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every registered series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				names, err := a.models().ListSeries(cmd.Context())
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			})
		},
	})
	return cmd
}
