// Package main provides a wallet CLI that produces the signed messages the
// API accepts on mutating requests.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
