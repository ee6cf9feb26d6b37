package main

import (
	"github.com/spf13/cobra"
)

func newGlobalCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "global",
		Short: "Show the claim configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			global, err := c.Global(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), global)
		},
	}
}

func newEntitlementCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "entitlement <user>",
		Short: "Show a user's entitlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			entitlement, err := c.Entitlement(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entitlement)
		},
	}
}

func newBalanceCmd(opts *globalOptions) *cobra.Command {
	var symbol string
	cmd := &cobra.Command{
		Use:   "balance <address>",
		Short: "Show an account balance in base units",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			balance, err := c.Balance(cmd.Context(), args[0], symbol)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), balance)
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "Token symbol (defaults to the claim mint)")
	return cmd
}
