package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/time-economy/internal/wallet"
)

func newAddressCmd(opts *walletOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the wallet address of the key",
		RunE: func(cmd *cobra.Command, args []string) error {
			privateKey, err := opts.loadKey()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), wallet.FromCommon(crypto.PubkeyToAddress(privateKey.PublicKey)))
			return nil
		},
	}
}
