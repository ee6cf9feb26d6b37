package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"claimchain/cmd/internal/passphrase"
	"claimchain/config"
	"claimchain/core/types"
	"claimchain/crypto"
	"claimchain/sdk/go/client"
)

const (
	envRPCURL        = "CLAIM_RPC_URL"
	envAuthorityPass = "CLAIM_AUTHORITY_PASS"
	defaultRPCURL    = "http://127.0.0.1:8645"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	rpcURL  string
	token   string
	chainID uint64
	keyPath string

	keyPass       *passphrase.Source
	authorityPass *passphrase.Source
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{
		keyPass:       passphrase.NewSource(config.EnvKeystorePass, "signing keystore"),
		authorityPass: passphrase.NewSource(envAuthorityPass, "authority keystore"),
	}

	root := &cobra.Command{
		Use:           "claim-cli",
		Short:         "Operate the claim ledger over JSON-RPC",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.rpcURL, "rpc", envOr(envRPCURL, defaultRPCURL), "JSON-RPC endpoint")
	flags.StringVar(&opts.token, "token", os.Getenv(config.EnvRPCToken), "Bearer token for transaction submission")
	flags.Uint64Var(&opts.chainID, "chain-id", types.DefaultChainID, "Chain identifier embedded in transactions")
	flags.StringVar(&opts.keyPath, "key", "", "Keystore file of the signing account")

	root.AddCommand(
		newGenerateKeyCmd(opts),
		newAddressCmd(opts),
		newInitTokenCmd(opts),
		newInitializeCmd(opts),
		newSetEnabledCmd(opts),
		newSetAmountCmd(opts),
		newLoadAllocationsCmd(opts),
		newClaimCmd(opts),
		newTransferCmd(opts),
		newGlobalCmd(opts),
		newEntitlementCmd(opts),
		newBalanceCmd(opts),
		newExportCmd(),
	)
	return root
}

func (o *globalOptions) client() (*client.Client, error) {
	return client.New(o.rpcURL,
		client.WithAuthToken(o.token),
		client.WithChainID(new(big.Int).SetUint64(o.chainID)))
}

// signingKey decrypts the keystore named by --key.
func (o *globalOptions) signingKey() (*crypto.PrivateKey, error) {
	if strings.TrimSpace(o.keyPath) == "" {
		return nil, fmt.Errorf("--key is required")
	}
	return loadKey(o.keyPath, o.keyPass)
}

func loadKey(path string, source *passphrase.Source) (*crypto.PrivateKey, error) {
	pass, err := source.Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("load keystore %s: %w", path, err)
	}
	return key, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
