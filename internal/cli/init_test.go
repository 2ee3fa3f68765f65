package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energytracker/internal/config"
	"energytracker/internal/events"
	"energytracker/internal/log"
)

func TestLoadEnvFileMissing(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ENERGYTRACKER_CLI_TEST=loaded\n"), 0o600))

	t.Setenv("ENERGYTRACKER_CLI_TEST", "")
	require.NoError(t, os.Unsetenv("ENERGYTRACKER_CLI_TEST"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("ENERGYTRACKER_CLI_TEST"))
}

func TestLoadEnvFileKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ENERGYTRACKER_CLI_TEST=from-file\n"), 0o600))
	t.Setenv("ENERGYTRACKER_CLI_TEST", "from-env")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-env", os.Getenv("ENERGYTRACKER_CLI_TEST"))
}

func TestSetupLoggerProduction(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&config.Config{Environment: config.EnvProduction}, &buf)

	logger.Debug("hidden")
	logger.Info("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"visible"`)
	assert.Contains(t, out, `"component":"app"`)
}

func TestSetupLoggerLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&config.Config{Environment: config.EnvProduction, LogLevel: "error"}, &buf)

	logger.Warn("dropped")
	assert.Empty(t, buf.String())
}

func TestInitStore(t *testing.T) {
	cfg := &config.Config{DatabasePath: filepath.Join(t.TempDir(), "energy.db"), DefaultRate: 7.5}

	repo, err := InitStore(cfg, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	rate, err := repo.CurrentRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7.5, rate)
}

func TestInitPublisherWithoutBrokers(t *testing.T) {
	pub, err := InitPublisher(context.Background(), &config.Config{}, log.Discard())
	require.NoError(t, err)
	assert.IsType(t, events.Noop{}, pub)
}

func TestInitPublisherBadAMQPURL(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := InitPublisher(ctx, &config.Config{AMQPURL: "amqp://127.0.0.1:1/", AMQPExchange: "energy"}, log.Discard())
	assert.Error(t, err)
}
