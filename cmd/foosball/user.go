package main

import (
	"fmt"

	"github.com/acksell/foosball/auth"
	"github.com/spf13/cobra"
)

func newUserCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}
	cmd.AddCommand(newUserAddCmd(c), newUserLoginCmd(c))
	return cmd
}

func newUserAddCmd(c *cli) *cobra.Command {
	var (
		password string
		props    map[string]string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a user or replace its password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				if err := a.auth().SaveUser(cmd.Context(), args[0], password, auth.Properties(props)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved user %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password of the user")
	cmd.Flags().StringToStringVar(&props, "prop", nil, "property attached to the user's tokens (key=value)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUserLoginCmd(c *cli) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <name>",
		Short: "Issue a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				tok, err := a.auth().Login(cmd.Context(), args[0], password)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tok)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password of the user")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
