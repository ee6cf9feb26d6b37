package main

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/spf13/cobra"

	"claimchain/core/types"
)

func newInitTokenCmd(opts *globalOptions) *cobra.Command {
	var payload types.InitTokenPayload
	cmd := &cobra.Command{
		Use:   "init-token",
		Short: "Issue the token and mint the total supply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := opts.signingKey()
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			receipt, err := c.InitToken(cmd.Context(), key, payload)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), receipt)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&payload.Name, "name", "", "Token name")
	flags.StringVar(&payload.Symbol, "symbol", "", "Token symbol")
	flags.StringVar(&payload.URI, "uri", "", "Metadata URI")
	flags.Uint64Var(&payload.TotalSupply, "supply", 0, "Total supply in whole tokens")
	flags.StringVar(&payload.Destination, "destination", "", "Account receiving the supply (defaults to the claim reserve)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("supply")
	return cmd
}

func newInitializeCmd(opts *globalOptions) *cobra.Command {
	var mint string
	cmd := &cobra.Command{
		Use:   "initialize",
		Short: "Create the claim configuration with the signer as authority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := opts.signingKey()
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			receipt, err := c.Initialize(cmd.Context(), key, mint)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), receipt)
		},
	}
	cmd.Flags().StringVar(&mint, "mint", "", "Symbol of the claim token")
	_ = cmd.MarkFlagRequired("mint")
	return cmd
}

func newSetEnabledCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-enabled <true|false>",
		Short: "Open or close claiming",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := strconv.ParseBool(args[0])
			if err != nil {
				return fmt.Errorf("invalid flag value %q", args[0])
			}
			key, err := opts.signingKey()
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			receipt, err := c.SetEnabled(cmd.Context(), key, enabled)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), receipt)
		},
	}
}

func newSetAmountCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-amount <user> <amount>",
		Short: "Set a user's entitlement in whole tokens",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			key, err := opts.signingKey()
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			receipt, err := c.UpdateUserAmount(cmd.Context(), key, args[0], amount)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), receipt)
		},
	}
}

func newClaimCmd(opts *globalOptions) *cobra.Command {
	var (
		authorityPath string
		mint          string
	)
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Withdraw the signer's entitlement (co-signed by the authority)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := opts.signingKey()
			if err != nil {
				return err
			}
			authority, err := loadKey(authorityPath, opts.authorityPass)
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			receipt, err := c.ClaimToken(cmd.Context(), key, authority, mint)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), receipt)
		},
	}
	cmd.Flags().StringVar(&authorityPath, "authority-key", "", "Keystore file of the claim authority")
	cmd.Flags().StringVar(&mint, "mint", "", "Expected claim mint")
	_ = cmd.MarkFlagRequired("authority-key")
	return cmd
}

func newTransferCmd(opts *globalOptions) *cobra.Command {
	var symbol string
	cmd := &cobra.Command{
		Use:   "transfer <to> <amount>",
		Short: "Transfer tokens in base units",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, ok := new(big.Int).SetString(args[1], 10)
			if !ok {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			key, err := opts.signingKey()
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			if symbol == "" {
				global, err := c.Global(cmd.Context())
				if err != nil {
					return err
				}
				symbol = global.Mint
			}
			receipt, err := c.Transfer(cmd.Context(), key, args[0], symbol, amount)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), receipt)
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "Token symbol (defaults to the claim mint)")
	return cmd
}
