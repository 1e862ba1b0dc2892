package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/time-economy/internal/identity"
	"github.com/time-economy/internal/signature"
	"github.com/time-economy/internal/types"
)

type signedPayload struct {
	WalletAddress string `json:"walletAddress"`
	Message       string `json:"message"`
	Signature     string `json:"signature"`
}

func newSignCmd(opts *walletOptions) *cobra.Command {
	var (
		message  string
		socialID int64
		nonce    string
		domain   string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a message and print the walletAddress/message/signature fields",
		Long: "Signs --message as given, or builds a sign-in message for --social-id " +
			"with an optional --nonce from GET /auth/nonce.",
		RunE: func(cmd *cobra.Command, args []string) error {
			privateKey, err := opts.loadKey()
			if err != nil {
				return err
			}
			address := crypto.PubkeyToAddress(privateKey.PublicKey).Hex()

			if message == "" {
				if !types.SocialID(socialID).IsValid() {
					return fmt.Errorf("either --message or a positive --social-id is required")
				}
				var expires time.Time
				if ttl > 0 {
					expires = time.Now().Add(ttl)
				}
				message = identity.BuildMessage(domain, types.SocialID(socialID), address, nonce, expires)
			}

			sig, err := signature.Sign(message, privateKey)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(signedPayload{
				WalletAddress: address,
				Message:       message,
				Signature:     sig,
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Exact message to sign.")
	cmd.Flags().Int64VarP(&socialID, "social-id", "s", 0, "Social id to put in a generated sign-in message.")
	cmd.Flags().StringVarP(&nonce, "nonce", "n", "", "Nonce issued by the API.")
	cmd.Flags().StringVar(&domain, "domain", "time-economy", "Domain named in a generated sign-in message.")
	cmd.Flags().DurationVar(&ttl, "ttl", 10*time.Minute, "Expiry of a generated sign-in message; 0 for none.")
	return cmd
}
