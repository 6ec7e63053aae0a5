package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// clearEnv убирает переменные окружения конфигурации на время теста.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RUN_ADDRESS", "DATABASE_URI", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
		"DB_MAX_IDLE_TIME", "RATE_SERVICE_ADDRESS", "RATE_TIMEOUT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestParseFlags(t *testing.T) {
	clearEnv(t)
	fset := flag.NewFlagSet("test", flag.ContinueOnError)

	cfg, err := parse(fset, []string{"-a", ":9090", "-d", "postgres://localhost/events", "-l", "debug"}, filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Handler.ServerAddr)
	require.Equal(t, "postgres://localhost/events", cfg.Store.DBDsn)
	require.Equal(t, "debug", cfg.Logger.LogLevel)
	require.Equal(t, 25, cfg.Store.MaxOpenConns)
	require.Equal(t, "5s", cfg.Service.RateTimeout)
	require.Empty(t, cfg.Service.RateServiceAddr)
}

func TestParseEnvOverridesFlags(t *testing.T) {
	clearEnv(t)
	t.Setenv("RUN_ADDRESS", ":7070")
	t.Setenv("DATABASE_URI", "postgres://db/events")
	t.Setenv("DB_MAX_OPEN_CONNS", "5")

	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := parse(fset, []string{"-a", ":9090", "-d", "postgres://flag/events"}, filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.Handler.ServerAddr)
	require.Equal(t, "postgres://db/events", cfg.Store.DBDsn)
	require.Equal(t, 5, cfg.Store.MaxOpenConns)
}

func TestParseDotEnv(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("RATE_SERVICE_ADDRESS=https://rates.example\nDATABASE_URI=postgres://dotenv/events\n"), 0o600))

	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := parse(fset, nil, envFile)
	require.NoError(t, err)
	require.Equal(t, "https://rates.example", cfg.Service.RateServiceAddr)
	require.Equal(t, "postgres://dotenv/events", cfg.Store.DBDsn)
}

func TestParseRequiresDSN(t *testing.T) {
	clearEnv(t)
	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	_, err := parse(fset, nil, filepath.Join(t.TempDir(), ".env"))
	require.Error(t, err)
}
