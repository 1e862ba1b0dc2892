package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/time-economy/internal/signature"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestWalletCLI_GenerateAddressSign(t *testing.T) {
	dir := t.TempDir()

	generated, err := run(t, "generate", "-p", dir)
	require.NoError(t, err)
	generated = strings.TrimSpace(generated)

	addr, err := run(t, "address", "-p", dir)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(generated), strings.TrimSpace(addr))

	_, err = run(t, "generate", "-p", dir)
	assert.Error(t, err, "existing key must not be overwritten silently")

	out, err := run(t, "sign", "-p", dir, "--social-id", "42", "--nonce", "abc123")
	require.NoError(t, err)

	var payload signedPayload
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Contains(t, payload.Message, "Social ID: 42")
	assert.Contains(t, payload.Message, "Nonce: abc123")
	assert.True(t, signature.Verify(payload.WalletAddress, payload.Message, payload.Signature))
}

func TestWalletCLI_SignRequiresInput(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "generate", "-p", dir)
	require.NoError(t, err)

	_, err = run(t, "sign", "-p", dir)
	assert.Error(t, err)

	out, err := run(t, "sign", "-p", dir, "-m", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, `"message": "hello"`)
}
