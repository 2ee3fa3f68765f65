package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energytracker/internal/core"
	"energytracker/internal/storage"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("APP_ENV", "testing")
	t.Setenv("DEFAULT_RATE", "7.5")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DATABASE", filepath.Join(dir, "unused.db"))
	return filepath.Join(dir, "energy.db")
}

func execute(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--db", db, "--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRateCommands(t *testing.T) {
	db := setupEnv(t)

	out, err := execute(t, db, "rate", "show")
	require.NoError(t, err)
	assert.Equal(t, "₹7.50 per kWh\n", out)

	out, err = execute(t, db, "rate", "set", "9.25")
	require.NoError(t, err)
	assert.Contains(t, out, "Rate set to ₹9.25 per kWh")

	out, err = execute(t, db, "rate", "show")
	require.NoError(t, err)
	assert.Equal(t, "₹9.25 per kWh\n", out)

	out, err = execute(t, db, "rate", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "₹9.25")
	assert.Contains(t, out, "₹7.50")
}

func TestRateSetRejectsInvalidValue(t *testing.T) {
	db := setupEnv(t)

	_, err := execute(t, db, "rate", "set", "abc")
	assert.Error(t, err)

	_, err = execute(t, db, "rate", "set", "0")
	assert.Error(t, err)
}

func TestEntriesCommand(t *testing.T) {
	db := setupEnv(t)

	repo, err := storage.NewSQLiteRepository(db, 7.5, nil)
	require.NoError(t, err)
	_, err = repo.AddEntry(context.Background(), core.EntryInput{
		Date: core.NewDate(2024, 1, 15), Appliance: "Air Conditioner", PowerWatts: 1500, HoursUsed: 8,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	out, err := execute(t, db, "entries", "1", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, "January 2024")
	assert.Contains(t, out, "Air Conditioner")
	assert.Contains(t, out, "Total: 12.00 kWh at ₹7.50 per kWh = ₹90.00 (1 entries)")

	out, err = execute(t, db, "entries", "2", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, "No entries found for February 2024")
}

func TestEntriesCommandInvalidArgs(t *testing.T) {
	db := setupEnv(t)

	_, err := execute(t, db, "entries", "jan")
	assert.Error(t, err)

	_, err = execute(t, db, "entries", "13", "2024")
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
}

func TestEnvCommand(t *testing.T) {
	db := setupEnv(t)

	out, err := execute(t, db, "env")
	require.NoError(t, err)
	assert.Contains(t, out, "DATABASE")
	assert.Contains(t, out, "MQTT_BROKER")
}

func TestOfflineCommandsRunWithDefaultSecretInProduction(t *testing.T) {
	db := setupEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("SECRET_KEY", "")
	require.NoError(t, os.Unsetenv("SECRET_KEY"))

	out, err := execute(t, db, "rate", "show")
	require.NoError(t, err)
	assert.Equal(t, "₹7.50 per kWh\n", out)
}
