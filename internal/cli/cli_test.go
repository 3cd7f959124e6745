package cli

import (
	"bytes"
	"strings"
	"testing"

	"credit_engine/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("DATABASE_URL", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestMigrateList(t *testing.T) {
	out, err := run(t, "migrate", "--list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "migrations/001_wallets_ledger.sql", lines[0])
	assert.Equal(t, "migrations/004_tool_reversal_policy.sql", lines[3])
}

func TestToken(t *testing.T) {
	out, err := run(t, "token", "42", "--ttl", "1m")
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(strings.TrimSpace(out), ".")))
}

func TestCommandsNeedDatabase(t *testing.T) {
	_, err := run(t, "verify", "7")
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrNoDSN)
}

func TestBadDatabaseURLIsReported(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("DATABASE_URL", "postgres://user@localhost:notaport/db")

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"verify", "7"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database url")
}

func TestParseUserID(t *testing.T) {
	id, err := parseUserID("15")
	require.NoError(t, err)
	assert.Equal(t, int64(15), id)

	for _, bad := range []string{"0", "-3", "abc"} {
		_, err := parseUserID(bad)
		assert.Error(t, err, bad)
	}
}
