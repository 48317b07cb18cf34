package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerateEthereumKey(t *testing.T) {
	logger, _ := test.NewNullLogger()
	keyPath := filepath.Join(t.TempDir(), "keys", "ethereum.key")

	generated, err := loadOrGenerateEthereumKey(logger, keyPath, false)
	require.NoError(t, err)

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := loadOrGenerateEthereumKey(logger, keyPath, false)
	require.NoError(t, err)
	assert.Equal(t, generated.Address(), loaded.Address())

	replaced, err := loadOrGenerateEthereumKey(logger, keyPath, true)
	require.NoError(t, err)
	assert.NotEqual(t, generated.Address(), replaced.Address())
}

func TestLoadEthereumKeyCorrupt(t *testing.T) {
	logger, _ := test.NewNullLogger()
	keyPath := filepath.Join(t.TempDir(), "ethereum.key")
	require.NoError(t, os.WriteFile(keyPath, []byte("zz\n"), 0600))

	_, err := loadOrGenerateEthereumKey(logger, keyPath, false)
	assert.Error(t, err)
}
