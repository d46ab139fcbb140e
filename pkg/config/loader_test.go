package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/clickmart/pkg/config"
)

type notifierConfig struct {
	Env     string        `env:"APP_ENV" envDefault:"development"`
	Workers int           `env:"WORKERS" envDefault:"5"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	Nested  nestedConfig
}

type nestedConfig struct {
	URL string `env:"NESTED_URL,required"`
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("defaults and nested structs", func(t *testing.T) {
		t.Parallel()

		var cfg notifierConfig
		err := config.Load(&cfg, config.WithEnvironment(map[string]string{"NESTED_URL": "mongodb://db"}))
		require.NoError(t, err)

		assert.Equal(t, "development", cfg.Env)
		assert.Equal(t, 5, cfg.Workers)
		assert.Equal(t, 10*time.Second, cfg.Timeout)
		assert.Equal(t, "mongodb://db", cfg.Nested.URL)
	})

	t.Run("prefix", func(t *testing.T) {
		t.Parallel()

		var cfg notifierConfig
		err := config.Load(&cfg,
			config.WithPrefix("NOTIFIER_"),
			config.WithEnvironment(map[string]string{
				"NOTIFIER_WORKERS":    "10",
				"NOTIFIER_NESTED_URL": "mongodb://other",
				"WORKERS":             "1",
			}))
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.Workers)
		assert.Equal(t, "mongodb://other", cfg.Nested.URL)
	})

	t.Run("missing required", func(t *testing.T) {
		t.Parallel()

		var cfg notifierConfig
		err := config.Load(&cfg, config.WithEnvironment(map[string]string{}))
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Parallel()

		var cfg notifierConfig
		err := config.Load(&cfg, config.WithEnvironment(map[string]string{"NESTED_URL": "x", "WORKERS": "many"}))
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		t.Parallel()

		assert.ErrorIs(t, config.Load[notifierConfig](nil), config.ErrNilPointer)
	})
}

// Env file tests touch the process environment and cannot run in parallel.
func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("CLICKMART_TEST_NESTED_URL=mongodb://from-file\nCLICKMART_TEST_WORKERS=7\n"), 0o644))

	t.Cleanup(func() {
		os.Unsetenv("CLICKMART_TEST_NESTED_URL")
		os.Unsetenv("CLICKMART_TEST_WORKERS")
	})
	t.Setenv("CLICKMART_TEST_WORKERS", "9")

	var cfg notifierConfig
	err := config.Load(&cfg,
		config.WithPrefix("CLICKMART_TEST_"),
		config.WithEnvFiles(filepath.Join(dir, "missing.env"), file))
	require.NoError(t, err)

	assert.Equal(t, "mongodb://from-file", cfg.Nested.URL)
	assert.Equal(t, 9, cfg.Workers, "process environment wins over the file")
}

func TestMustLoad(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		var cfg notifierConfig
		config.MustLoad(&cfg, config.WithEnvironment(map[string]string{}))
	})
}
