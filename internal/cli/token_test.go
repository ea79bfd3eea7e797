package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fretehub/credit-ledger/internal/auth"
)

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("JWT_ISSUER", "credit-ledger")

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"token", "ops-team", "--role", auth.RoleAdmin, "--ttl", "1h"})
	require.NoError(t, rootCmd.Execute())

	claims, err := auth.NewTokenManager("cli-secret", "credit-ledger").Parse(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "ops-team", claims.Subject)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
	assert.Contains(t, errOut.String(), "expires")
}

func TestTokenCommand_UnknownRole(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"token", "x", "--role", "root"})
	assert.Error(t, rootCmd.Execute())
}
