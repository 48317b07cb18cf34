package publisher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
)

func TestEncryptPayloadRoundTrip(t *testing.T) {
	key := testGroupKey(t, "k1")
	plaintext := []byte(`{"temperature":21.5}`)

	encrypted, err := EncryptPayload(plaintext, key)
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "temperature")

	decrypted, err := DecryptPayload(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptPayloadFreshNonce(t *testing.T) {
	key := testGroupKey(t, "k1")
	plaintext := []byte(`{"a":1}`)

	first, err := EncryptPayload(plaintext, key)
	require.NoError(t, err)
	second, err := EncryptPayload(plaintext, key)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDecryptPayloadWrongKey(t *testing.T) {
	key := testGroupKey(t, "k1")
	other := testGroupKey(t, "k2")

	encrypted, err := EncryptPayload([]byte(`{"a":1}`), key)
	require.NoError(t, err)

	_, err = DecryptPayload(encrypted, other)
	assert.True(t, errors.Is(err, crypto.ErrDecryptionFailed), "got %v", err)
}

func TestRotationRoundTrip(t *testing.T) {
	current := testGroupKey(t, "k1")
	next := testGroupKey(t, "k2")

	wrapped, err := WrapForRotation(next, current)
	require.NoError(t, err)
	assert.Equal(t, "k2", wrapped.GroupKeyID)
	assert.NotContains(t, wrapped.EncryptedGroupKeyHex, next.Hex())

	unwrapped, err := UnwrapRotation(wrapped, current)
	require.NoError(t, err)
	assert.True(t, next.Equal(unwrapped))

	_, err = UnwrapRotation(wrapped, next)
	assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
}

func TestExchangeWrapRoundTrip(t *testing.T) {
	privateKey, _ := testRSAKey(t)
	key := testGroupKey(t, "k1")

	wrapped, err := WrapForExchange(key, &privateKey.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "k1", wrapped.GroupKeyID)

	unwrapped, err := UnwrapExchange(wrapped, privateKey)
	require.NoError(t, err)
	assert.True(t, key.Equal(unwrapped))
}

func TestUnwrapExchangeRejectsGarbage(t *testing.T) {
	privateKey, _ := testRSAKey(t)

	_, err := UnwrapExchange(&protocol.EncryptedGroupKey{GroupKeyID: "k1", EncryptedGroupKeyHex: "zz"}, privateKey)
	assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)

	_, err = UnwrapExchange(&protocol.EncryptedGroupKey{GroupKeyID: "k1", EncryptedGroupKeyHex: "00ff"}, privateKey)
	assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
}

func TestDecryptContent(t *testing.T) {
	key := testGroupKey(t, "k1")
	creator := newUnsignedCreator(t)
	stream := protocol.Stream{ID: "s1", Partitions: 1}

	plain, err := creator.CreateMessage(stream, map[string]any{"n": 1.0}, fixedClock(1000)())
	require.NoError(t, err)
	payload, err := DecryptContent(plain, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": 1.0}, payload)

	encrypted, err := creator.CreateMessage(stream, map[string]any{"n": 2.0}, fixedClock(1000)(), WithGroupKey(key))
	require.NoError(t, err)
	payload, err = DecryptContent(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": 2.0}, payload)

	_, err = DecryptContent(encrypted, testGroupKey(t, "k2"))
	assert.ErrorIs(t, err, ErrGroupKeyNotFound)
}
