package publisher

import (
	"context"
	"crypto/rsa"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
)

var (
	rsaKeyOnce sync.Once
	rsaKey     *rsa.PrivateKey
	rsaKeyErr  error
)

// testRSAKey returns a shared 2048-bit key pair, generated once per test binary
func testRSAKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	rsaKeyOnce.Do(func() {
		rsaKey, rsaKeyErr = crypto.GenerateRSAKeyPairWithBits(2048)
	})
	if rsaKeyErr != nil {
		t.Fatalf("Failed to generate RSA key: %v", rsaKeyErr)
	}

	pemData, err := crypto.ExportPublicKeyPEM(&rsaKey.PublicKey)
	if err != nil {
		t.Fatalf("Failed to export public key: %v", err)
	}
	return rsaKey, string(pemData)
}

func testSigner(t *testing.T) *EthereumSigner {
	t.Helper()
	key, err := crypto.GenerateEthereumKey()
	if err != nil {
		t.Fatalf("Failed to generate Ethereum key: %v", err)
	}
	return NewEthereumSigner(key)
}

func testGroupKey(t *testing.T, id string) *crypto.GroupKey {
	t.Helper()
	key, err := crypto.GenerateGroupKey(id)
	if err != nil {
		t.Fatalf("Failed to generate group key: %v", err)
	}
	return key
}

func testAddress(b byte) protocol.Address {
	var addr protocol.Address
	for i := range addr {
		addr[i] = b
	}
	return addr
}

// fixedClock returns a clock stuck at ms
func fixedClock(ms int64) func() time.Time {
	return func() time.Time {
		return time.UnixMilli(ms)
	}
}

// fixedRandom always picks the same partition
type fixedRandom int

func (r fixedRandom) IntN(n int) int {
	return int(r) % n
}

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newSignedCreator(t *testing.T) (*MessageCreator, *EthereumSigner) {
	t.Helper()
	signer := testSigner(t)
	creator, err := NewMessageCreator(Config{
		Signer: signer,
		Clock:  fixedClock(1000),
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("Failed to create message creator: %v", err)
	}
	return creator, signer
}

func newUnsignedCreator(t *testing.T) *MessageCreator {
	t.Helper()
	creator, err := NewMessageCreator(Config{
		PublisherID: testAddress(0xaa),
		Clock:       fixedClock(1000),
		Logger:      quietLogger(),
	})
	if err != nil {
		t.Fatalf("Failed to create message creator: %v", err)
	}
	return creator
}

// memoryKeys is an in-memory GroupKeyProvider
type memoryKeys map[string]*crypto.GroupKey

func (m memoryKeys) GroupKey(_ context.Context, streamID string, groupKeyID string) (*crypto.GroupKey, error) {
	key, ok := m[streamID+"/"+groupKeyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupKeyNotFound, groupKeyID)
	}
	return key, nil
}

func (m memoryKeys) add(streamID string, key *crypto.GroupKey) {
	m[streamID+"/"+key.ID()] = key
}
