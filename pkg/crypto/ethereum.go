package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
)

// EthereumSignatureSize is the size of an r || s || v signature
const EthereumSignatureSize = 65

var ErrInvalidSignature = errors.New("invalid signature")

// EthereumKey is a secp256k1 identity key and the address derived from it
type EthereumKey struct {
	priv    *secp256k1.PrivateKey
	address protocol.Address
}

// GenerateEthereumKey generates a new random identity key
func GenerateEthereumKey() (*EthereumKey, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate secp256k1 key: %w", err)
	}
	return newEthereumKey(priv), nil
}

// EthereumKeyFromHex imports a hex encoded 32-byte private key (0x prefix optional)
func EthereumKeyFromHex(keyHex string) (*EthereumKey, error) {
	keyHex = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"))
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: private key is not hex: %v", ErrInvalidKeyMaterial, err)
	}
	if len(raw) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("%w: expected %d byte private key, got %d", ErrInvalidKeyMaterial, secp256k1.PrivKeyBytesLen, len(raw))
	}

	priv := secp256k1.PrivKeyFromBytes(raw)
	if priv.Key.IsZero() {
		return nil, fmt.Errorf("%w: private key is zero", ErrInvalidKeyMaterial)
	}
	return newEthereumKey(priv), nil
}

func newEthereumKey(priv *secp256k1.PrivateKey) *EthereumKey {
	return &EthereumKey{
		priv:    priv,
		address: PubKeyToAddress(priv.PubKey()),
	}
}

// Address returns the Ethereum address of the key
func (k *EthereumKey) Address() protocol.Address {
	return k.address
}

// Hex returns the 0x-prefixed private key
func (k *EthereumKey) Hex() string {
	return "0x" + hex.EncodeToString(k.priv.Serialize())
}

// SignPersonal signs msg as an Ethereum personal message and returns r || s || v
func (k *EthereumKey) SignPersonal(msg []byte) []byte {
	compact := ecdsa.SignCompact(k.priv, PersonalMessageHash(msg), false)

	// SignCompact returns v || r || s with v = 27 + recovery id
	sig := make([]byte, 0, EthereumSignatureSize)
	sig = append(sig, compact[1:]...)
	return append(sig, compact[0])
}

// PubKeyToAddress derives the Ethereum address of a public key
func PubKeyToAddress(pub *secp256k1.PublicKey) protocol.Address {
	var addr protocol.Address
	uncompressed := pub.SerializeUncompressed()
	copy(addr[:], Keccak256(uncompressed[1:])[12:])
	return addr
}

// PersonalMessageHash returns keccak256("\x19Ethereum Signed Message:\n" + len(msg) + msg)
func PersonalMessageHash(msg []byte) []byte {
	prefix := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(msg))
	return Keccak256([]byte(prefix), msg)
}

// RecoverPersonal returns the address that produced sig over msg
func RecoverPersonal(msg []byte, sig []byte) (protocol.Address, error) {
	var addr protocol.Address
	if len(sig) != EthereumSignatureSize {
		return addr, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, EthereumSignatureSize, len(sig))
	}

	v := sig[64]
	if v < 27 {
		v += 27
	}

	compact := make([]byte, 0, EthereumSignatureSize)
	compact = append(compact, v)
	compact = append(compact, sig[:64]...)

	pub, _, err := ecdsa.RecoverCompact(compact, PersonalMessageHash(msg))
	if err != nil {
		return addr, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return PubKeyToAddress(pub), nil
}
