package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"claimchain/crypto"
)

func newGenerateKeyCmd(opts *globalOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "generate-key",
		Short: "Create a new account keystore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.GeneratePrivateKey()
			if err != nil {
				return err
			}
			pass, err := opts.keyPass.Get()
			if err != nil {
				return err
			}
			if err := crypto.SaveToKeystore(out, key, pass); err != nil {
				return fmt.Errorf("write keystore: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", key.PubKey().Address().String(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "wallet.keystore", "Keystore output path")
	return cmd
}

func newAddressCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "address [keystore]",
		Short: "Print the address of a keystore",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.keyPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("keystore path required")
			}
			key, err := loadKey(path, opts.keyPass)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.PubKey().Address().String())
			return nil
		},
	}
}
