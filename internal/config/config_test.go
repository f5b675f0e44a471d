package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default().ListenAddr, cfg.ListenAddr)
	require.Equal(t, 10, cfg.SlabCapacity)
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shuttle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":9999\"\nslab_capacity: 3\n"), 0o600))

	t.Setenv("SHUTTLE_SLAB_CAPACITY", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.ListenAddr)
	require.Equal(t, 7, cfg.SlabCapacity, "env overrides file")
}
