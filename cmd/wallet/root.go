package main

import (
	"crypto/ecdsa"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

const keyExtension = ".ecdsa"

type walletOptions struct {
	accountName string
	accountPath string
}

func (o *walletOptions) keyPath() string {
	name := o.accountName
	if !strings.HasSuffix(name, keyExtension) {
		name += keyExtension
	}
	return filepath.Join(o.accountPath, name)
}

func (o *walletOptions) loadKey() (*ecdsa.PrivateKey, error) {
	return crypto.LoadECDSA(o.keyPath())
}

func newRootCmd() *cobra.Command {
	opts := &walletOptions{}

	root := &cobra.Command{
		Use:          "wallet",
		Short:        "Manage a local signing key for the time-economy API",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.accountName, "account", "a", "private", "Name of the private key file.")
	root.PersistentFlags().StringVarP(&opts.accountPath, "account-path", "p", "accounts/", "Directory holding private keys.")

	root.AddCommand(
		newGenerateCmd(opts),
		newAddressCmd(opts),
		newSignCmd(opts),
	)
	return root
}
