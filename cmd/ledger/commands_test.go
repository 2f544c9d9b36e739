package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := execute(context.Background(), args, &out)
	return out.String(), err
}

func useSQLite(t *testing.T) {
	t.Helper()
	t.Setenv("LEDGER_STORE", "sqlite")
	t.Setenv("LEDGER_SQLITE_PATH", filepath.Join(t.TempDir(), "ledger.db"))
	t.Setenv("LEDGER_LOG_LEVEL", "error")
	t.Setenv("LEDGER_KAFKA_BROKERS", "")
}

func TestCommandsAgainstSQLite(t *testing.T) {
	useSQLite(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema ready (sqlite)")

	out, err = run(t, "create-account", "--branch", "b1", "--code", "1000", "--name", "Cash In Hand")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	assert.NotEmpty(t, id)

	out, err = run(t, "balance", "--branch", "b1", "--code", "1000")
	require.NoError(t, err)
	assert.Equal(t, "1000 Cash In Hand 0.00\n", out)

	out, err = run(t, "balance", "--id", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Cash In Hand")

	out, err = run(t, "accounts", "--branch", "b1")
	require.NoError(t, err)
	assert.Contains(t, out, "CODE")
	assert.Contains(t, out, "1000")
	assert.Contains(t, out, "coa")

	_, err = run(t, "create-account", "--branch", "b1", "--code", "1000", "--name", "Again")
	assert.ErrorContains(t, err, "unique violation")
}

func TestBalanceNeedsSelector(t *testing.T) {
	useSQLite(t)

	_, err := run(t, "balance", "--branch", "b1")
	assert.ErrorContains(t, err, "either --id or both --branch and --code")
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("LEDGER_STORE", "postgres")
	t.Setenv("LEDGER_DATABASE_URL", "")
	t.Setenv("LEDGER_KAFKA_BROKERS", "")

	_, err := run(t, "accounts", "--branch", "b1")
	assert.ErrorContains(t, err, "invalid config")
}
