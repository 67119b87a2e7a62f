package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "novapage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	require.Equal(t, "lru-k", cfg.Replacer.Policy)
	require.Equal(t, 64, cfg.Replacer.Capacity)
	require.Equal(t, 2, cfg.Replacer.K)
	require.Equal(t, "memory", cfg.Disk.Mode)
	require.Equal(t, "info", cfg.Log.Level)
	require.False(t, cfg.Debug.DeadlockDetection)
}

func TestLoadConfig_FileEnvAndFlags(t *testing.T) {
	path := writeConfig(t, `
app_name: bench
replacer:
  policy: clock
  capacity: 16
  k: 3
disk:
  mode: file
  workdir: /tmp/novapage
  pages_per_segment: 128
log:
  level: debug
  format: json
sim:
  pages: 200
`)
	t.Setenv("NOVAPAGE_SIM_WORKERS", "9")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--frames=32", "--policy=lru-k"}))

	cfg, err := LoadConfig(path, fs)
	require.NoError(t, err)
	require.Equal(t, "bench", cfg.AppName)
	require.Equal(t, "lru-k", cfg.Replacer.Policy)
	require.Equal(t, 32, cfg.Replacer.Capacity)
	require.Equal(t, 3, cfg.Replacer.K)
	require.Equal(t, "file", cfg.Disk.Mode)
	require.Equal(t, 128, cfg.Disk.PagesPerSegment)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, 200, cfg.Sim.Pages)
	require.Equal(t, 9, cfg.Sim.Workers)
	// Unset flags keep file or default values.
	require.Equal(t, 100000, cfg.Sim.Accesses)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown policy", body: "replacer:\n  policy: arc\n"},
		{name: "unknown disk mode", body: "disk:\n  mode: tape\n"},
		{name: "zero capacity", body: "replacer:\n  capacity: 0\n"},
		{name: "zero k", body: "replacer:\n  k: 0\n"},
		{name: "flat skew", body: "sim:\n  skew: 1.0\n"},
		{name: "write ratio", body: "sim:\n  write_ratio: 1.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body), nil)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}
