// Package signature verifies wallet signatures over personal messages.
//
// Messages are hashed with the wallet ecosystem's personal-message prefix
// ("\x19Ethereum Signed Message:\n" + length) before recovery, which is what
// browser wallets apply for personal_sign.
package signature

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/time-economy/internal/wallet"
)

// signatureLength is the [R || S || V] byte length.
const signatureLength = crypto.SignatureLength

// legacyV is added to the recovery id by most wallets.
const legacyV = 27

var errMalformed = errors.New("malformed signature")

// Verify reports whether signature over message was produced by the key
// controlling claimedAddress. Any failure, including malformed input, yields
// false; callers cannot tell why verification failed.
func Verify(claimedAddress, message, signature string) bool {
	if !wallet.IsValid(strings.TrimSpace(claimedAddress)) {
		return false
	}

	recovered, err := Recover(message, signature)
	if err != nil {
		return false
	}

	return wallet.Equal(recovered, claimedAddress)
}

// Recover returns the normalized address that signed message.
func Recover(message, signature string) (string, error) {
	sig, err := decode(signature)
	if err != nil {
		return "", err
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}

	return wallet.FromCommon(crypto.PubkeyToAddress(*pub)), nil
}

// Sign produces a personal-message signature with V in {27, 28}, the form
// wallets hand back to clients.
func Sign(message string, privateKey *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), privateKey)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += legacyV

	return hexutil.Encode(sig), nil
}

// decode parses a hex signature into the 65 byte form SigToPub expects
// (recovery id 0 or 1), rejecting non-canonical values.
func decode(signature string) ([]byte, error) {
	signature = strings.TrimSpace(signature)
	if !strings.HasPrefix(signature, "0x") && !strings.HasPrefix(signature, "0X") {
		signature = "0x" + signature
	}

	raw, err := hexutil.Decode(signature)
	if err != nil || len(raw) != signatureLength {
		return nil, errMalformed
	}

	sig := make([]byte, signatureLength)
	copy(sig, raw)

	v := sig[crypto.RecoveryIDOffset]
	if v >= legacyV {
		v -= legacyV
	}
	if v != 0 && v != 1 {
		return nil, errMalformed
	}
	sig[crypto.RecoveryIDOffset] = v

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return nil, errMalformed
	}

	return sig, nil
}
