package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

func newGenerateCmd(opts *walletOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.keyPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("key %s already exists; use --force to overwrite", path)
			}

			if err := os.MkdirAll(opts.accountPath, 0o700); err != nil {
				return fmt.Errorf("create account directory: %w", err)
			}

			privateKey, err := crypto.GenerateKey()
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			if err := crypto.SaveECDSA(path, privateKey); err != nil {
				return fmt.Errorf("save key: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), crypto.PubkeyToAddress(privateKey.PublicKey).Hex())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing key.")
	return cmd
}
