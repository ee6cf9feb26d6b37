package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"claimchain/indexer"
	"claimchain/integrations/exports"
)

func newExportCmd() *cobra.Command {
	var (
		driver   string
		dsn      string
		format   string
		out      string
		claimant string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export indexed claims as CSV, JSONL or Parquet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := indexer.Open(driver, dsn)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			claims, err := indexer.New(db).Claims(claimant)
			if err != nil {
				return err
			}

			var (
				data     []byte
				checksum string
			)
			switch strings.ToLower(format) {
			case "csv":
				data, checksum, err = exports.ClaimsCSV(claims)
			case "jsonl":
				data, checksum, err = exports.ClaimsJSONL(claims)
			case "parquet":
				if out == "" {
					return fmt.Errorf("--out is required for parquet exports")
				}
				checksum, err = exports.WriteClaimsParquet(out, claims)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d claims to %s (blake3 %s)\n", len(claims), out, checksum)
				return nil
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d claims to %s (blake3 %s)\n", len(claims), out, checksum)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&driver, "driver", indexer.DriverSQLite, "Indexer driver (sqlite or postgres)")
	flags.StringVar(&dsn, "dsn", "", "Indexer connection string")
	flags.StringVar(&format, "format", "csv", "Output format: csv, jsonl or parquet")
	flags.StringVar(&out, "out", "", "Output file (stdout when empty; required for parquet)")
	flags.StringVar(&claimant, "user", "", "Only export claims by this user")
	_ = cmd.MarkFlagRequired("dsn")
	return cmd
}
