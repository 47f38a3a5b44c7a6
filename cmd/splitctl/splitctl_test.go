package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/splitdraft/internal/expense/split"
	"github.com/fkhayef/splitdraft/pkg/middleware"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCompute(t *testing.T) {
	out, err := execute(t, "compute", "--mode", "equal", "--amount", "100", "--participants", "a,b,c", "--payer", "b")
	require.NoError(t, err)

	assert.Contains(t, out, "₹33.34")
	assert.Equal(t, 2, strings.Count(out, "₹33.33"))
	assert.Contains(t, out, "sum ₹100.00 of ₹100.00 (ok: true)")
	assert.NotContains(t, out, "warning:")
}

func TestCompute_CurrencyAndErrors(t *testing.T) {
	out, err := execute(t, "compute", "--currency", "USD", "--amount", "10", "--participants", "a,b,c")
	require.NoError(t, err)
	assert.Contains(t, out, "$3.34")

	_, err = execute(t, "compute", "--mode", "thirds", "--amount", "10", "--participants", "a")
	assert.ErrorIs(t, err, split.ErrUnknownMode)

	_, err = execute(t, "compute", "--amount", "ten", "--participants", "a")
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	out, err := execute(t, "check", "--amount", "100", "--line", "a=60", "--line", "b=40")
	require.NoError(t, err)
	assert.Contains(t, out, "accepted")

	out, err = execute(t, "check", "--amount", "100", "--line", "a=60", "--line", "b=30")
	assert.ErrorIs(t, err, split.ErrUnreconciled)
	assert.Contains(t, out, "warning: The split sum (₹90.00) must equal the total (₹100.00).")

	_, err = execute(t, "check", "--amount", "100", "--line", "a60")
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	out, err := execute(t, "token", "user-1", "--secret", "0123456789abcdef")
	require.NoError(t, err)

	claims, err := middleware.NewJWTManager("0123456789abcdef", time.Hour).Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	t.Setenv("JWT_SECRET", "")
	_, err = execute(t, "token", "user-1")
	assert.Error(t, err)
}
