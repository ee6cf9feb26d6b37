package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"claimchain/crypto"
)

// Allocation assigns a whole-token entitlement to one user.
type Allocation struct {
	User   string `yaml:"user"`
	Amount uint64 `yaml:"amount"`
}

type allocationFile struct {
	Allocations []Allocation `yaml:"allocations"`
}

// loadAllocations parses and validates an allocation file. Later entries for
// the same user replace earlier ones.
func loadAllocations(path string) ([]Allocation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var file allocationFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: no allocations", path)
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	index := make(map[string]int, len(file.Allocations))
	out := make([]Allocation, 0, len(file.Allocations))
	for i, alloc := range file.Allocations {
		user := strings.TrimSpace(alloc.User)
		addr, err := crypto.DecodeAddress(user)
		if err != nil {
			return nil, fmt.Errorf("allocation %d: invalid user %q: %w", i, alloc.User, err)
		}
		alloc.User = addr.String()
		if pos, ok := index[alloc.User]; ok {
			out[pos] = alloc
			continue
		}
		index[alloc.User] = len(out)
		out = append(out, alloc)
	}
	return out, nil
}

func newLoadAllocationsCmd(opts *globalOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "load-allocations <file.yaml>",
		Short: "Upsert entitlements from an allocation file",
		Long: `Upsert entitlements from a YAML allocation file signed by the authority.

Example file:
  allocations:
    - user: clm1...
      amount: 400000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			allocations, err := loadAllocations(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dryRun {
				for _, alloc := range allocations {
					fmt.Fprintf(out, "%s %d\n", alloc.User, alloc.Amount)
				}
				return nil
			}
			key, err := opts.signingKey()
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			for i, alloc := range allocations {
				receipt, err := c.UpdateUserAmount(cmd.Context(), key, alloc.User, alloc.Amount)
				if err != nil {
					return fmt.Errorf("allocation %d (%s): %w", i, alloc.User, err)
				}
				fmt.Fprintf(out, "%s %d %s\n", alloc.User, alloc.Amount, receipt.TxHash)
			}
			fmt.Fprintf(out, "loaded %d allocations\n", len(allocations))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and print the allocations without submitting")
	return cmd
}
