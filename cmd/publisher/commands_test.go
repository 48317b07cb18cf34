package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
	"github.com/ZentaChain/zentalk-streams/pkg/publisher"
	"github.com/ZentaChain/zentalk-streams/pkg/storage"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	return &Config{
		DataDir:       filepath.Join(dir, "data"),
		StorePassword: "correct horse",
		EthKeyPath:    filepath.Join(dir, "keys", "ethereum.key"),
		RSAKeyPath:    filepath.Join(dir, "keys", "rsa.pem"),
		LogLevel:      "error",
	}
}

func runCommand(cfg *Config, args ...string) (string, error) {
	cmd := newRootCommand(cfg)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStreamCommands(t *testing.T) {
	cfg := testConfig(t)

	_, err := runCommand(cfg, "stream", "add", "0xabc/sensors", "--partitions", "3")
	require.NoError(t, err)
	_, err = runCommand(cfg, "stream", "add", "0xabc/logs")
	require.NoError(t, err)

	out, err := runCommand(cfg, "stream", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "0xabc/sensors")
	assert.Contains(t, out, "0xabc/logs")
	assert.Regexp(t, `0xabc/sensors\s+3`, out)
	assert.Regexp(t, `0xabc/logs\s+1`, out)

	_, err = runCommand(cfg, "stream", "add", "0xabc/empty", "--partitions", "0")
	assert.ErrorIs(t, err, publisher.ErrInvalidConfiguration)
}

func TestStreamTrustCommands(t *testing.T) {
	cfg := testConfig(t)
	publisherID := "0x00000000000000000000000000000000000000AA"

	_, err := runCommand(cfg, "stream", "trust", "s1", publisherID)
	require.NoError(t, err)

	out, err := runCommand(cfg, "stream", "publishers", "s1")
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(publisherID)+"\n", out)

	out, err = runCommand(cfg, "stream", "publishers", "s2")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = runCommand(cfg, "stream", "trust", "s1", "0x1234")
	assert.Error(t, err)
}

func TestGroupKeyCommands(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCommand(cfg, "groupkey", "generate", "s1", "--id", "k1")
	require.NoError(t, err)
	assert.Equal(t, "k1\n", out)

	out, err = runCommand(cfg, "groupkey", "generate", "s1")
	require.NoError(t, err)
	generatedID := strings.TrimSpace(out)
	assert.Len(t, generatedID, 36)

	_, err = runCommand(cfg, "groupkey", "add", "s1", "k2", strings.Repeat("ab", 32))
	require.NoError(t, err)

	out, err = runCommand(cfg, "groupkey", "list", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "k1")
	assert.Contains(t, out, "k2")
	assert.Contains(t, out, generatedID)

	_, err = runCommand(cfg, "groupkey", "delete", "s1", "k1")
	require.NoError(t, err)

	out, err = runCommand(cfg, "groupkey", "list", "s1")
	require.NoError(t, err)
	assert.NotContains(t, out, "k1")

	_, err = runCommand(cfg, "groupkey", "delete", "s1", "k1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = runCommand(cfg, "groupkey", "add", "s1", "k3", "abcd")
	assert.ErrorIs(t, err, crypto.ErrInvalidKeyMaterial)

	// Stored keys are never replaced
	_, err = runCommand(cfg, "groupkey", "add", "s1", "k2", strings.Repeat("cd", 32))
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestGroupKeyCommandsWrongPassword(t *testing.T) {
	cfg := testConfig(t)

	_, err := runCommand(cfg, "groupkey", "add", "s1", "k1", strings.Repeat("ab", 32))
	require.NoError(t, err)

	cfg.StorePassword = "wrong"
	store, err := storage.Open(cfg.databasePath(), cfg.StorePassword, nil)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.GroupKey(t.Context(), "s1", "k1")
	assert.ErrorIs(t, err, storage.ErrInvalidPassword)
}

func TestParticipantCommands(t *testing.T) {
	cfg := testConfig(t)

	key, err := crypto.GenerateRSAKeyPairWithBits(2048)
	require.NoError(t, err)
	pemData, err := crypto.ExportPublicKeyPEM(&key.PublicKey)
	require.NoError(t, err)

	pemPath := filepath.Join(t.TempDir(), "subscriber.pem")
	require.NoError(t, os.WriteFile(pemPath, pemData, 0600))

	address := "0x00000000000000000000000000000000000000BB"
	_, err = runCommand(cfg, "participant", "add", address, pemPath)
	require.NoError(t, err)

	out, err := runCommand(cfg, "participant", "list")
	require.NoError(t, err)
	assert.Contains(t, out, strings.ToLower(address))

	garbagePath := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(garbagePath, []byte("not a key"), 0600))
	_, err = runCommand(cfg, "participant", "add", address, garbagePath)
	assert.Error(t, err)

	_, err = runCommand(cfg, "participant", "add", "0x1234", pemPath)
	assert.Error(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	cfg := testConfig(t)

	_, err := runCommand(cfg, "--log-level", "loud", "stream", "list")
	assert.Error(t, err)
}
