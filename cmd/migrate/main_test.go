package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDSN(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(envDSN, "postgres://env")
		dsn, err := resolveDSN("postgres://flag")
		require.NoError(t, err)
		assert.Equal(t, "postgres://flag", dsn)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(envDSN, "postgres://env")
		dsn, err := resolveDSN("")
		require.NoError(t, err)
		assert.Equal(t, "postgres://env", dsn)
	})

	t.Run("database config", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv(envDSN, "")
		t.Setenv("MICROFINDER_DB_NAME", "microfinder")
		t.Setenv("MICROFINDER_DB_USER", "app")
		dsn, err := resolveDSN("")
		require.NoError(t, err)
		assert.Equal(t, "postgres://app:@localhost:5432/microfinder?sslmode=disable", dsn)
	})
}

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"steps requires integer", []string{"steps", "two"}},
		{"steps rejects zero", []string{"steps", "0"}},
		{"force requires integer", []string{"force", "x"}},
		{"up takes no args", []string{"up", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := rootCommand()
			cmd.SetArgs(tt.args)
			cmd.SilenceErrors = true
			assert.Error(t, cmd.Execute())
		})
	}
}
