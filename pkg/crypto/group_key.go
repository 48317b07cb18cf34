package crypto

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// GroupKey is an immutable symmetric key used to encrypt stream content.
// The AES-GCM handle is derived once at construction.
type GroupKey struct {
	id       string
	keyHex   string
	material []byte
	aead     cipher.AEAD
}

// NewGroupKey creates a group key from its id and hex encoded 256-bit material
func NewGroupKey(id string, keyHex string) (*GroupKey, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty group key id", ErrInvalidKeyMaterial)
	}

	material, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: group key %s is not hex: %v", ErrInvalidKeyMaterial, id, err)
	}

	return newGroupKey(id, material)
}

// GroupKeyFromBytes creates a group key from raw 256-bit material
func GroupKeyFromBytes(id string, material []byte) (*GroupKey, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty group key id", ErrInvalidKeyMaterial)
	}
	return newGroupKey(id, bytes.Clone(material))
}

func newGroupKey(id string, material []byte) (*GroupKey, error) {
	aead, err := newGCM(material)
	if err != nil {
		return nil, fmt.Errorf("group key %s: %w", id, err)
	}

	return &GroupKey{
		id:       id,
		keyHex:   hex.EncodeToString(material),
		material: material,
		aead:     aead,
	}, nil
}

// GenerateGroupKey creates a random group key. An empty id gets a UUID.
func GenerateGroupKey(id string) (*GroupKey, error) {
	return GenerateGroupKeyFrom(id, rand.Reader)
}

// GenerateGroupKeyFrom creates a group key reading material from r
func GenerateGroupKeyFrom(id string, r io.Reader) (*GroupKey, error) {
	if id == "" {
		id = uuid.NewString()
	}

	material := make([]byte, GroupKeySize)
	if _, err := io.ReadFull(r, material); err != nil {
		return nil, fmt.Errorf("failed to generate group key: %w", err)
	}

	return newGroupKey(id, material)
}

// ID returns the group key id
func (k *GroupKey) ID() string {
	return k.id
}

// Hex returns the hex encoded key material
func (k *GroupKey) Hex() string {
	return k.keyHex
}

// Material returns a copy of the raw key material
func (k *GroupKey) Material() []byte {
	return bytes.Clone(k.material)
}

// Equal reports whether both keys have the same id and material
func (k *GroupKey) Equal(other *GroupKey) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.id == other.id && bytes.Equal(k.material, other.material)
}

// Encrypt encrypts plaintext with AES-256-GCM under this key
func (k *GroupKey) Encrypt(plaintext []byte) ([]byte, error) {
	return sealGCM(k.aead, plaintext)
}

// Decrypt decrypts data produced by Encrypt
func (k *GroupKey) Decrypt(ciphertext []byte) ([]byte, error) {
	return openGCM(k.aead, ciphertext)
}

func (k *GroupKey) String() string {
	return fmt.Sprintf("GroupKey{id=%s}", k.id)
}
