package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
)

const (
	// AES-256 requires 32-byte keys
	GroupKeySize = 32

	// AES-GCM nonce size (96 bits / 12 bytes is standard)
	NonceSize = 12
)

// newGCM creates an AES-GCM AEAD for a 256-bit key
func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != GroupKeySize {
		return nil, fmt.Errorf("%w: expected %d byte key, got %d", ErrInvalidKeyMaterial, GroupKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// sealGCM encrypts plaintext and returns nonce || ciphertext || tag
func sealGCM(gcm cipher.AEAD, plaintext []byte) ([]byte, error) {
	nonce, err := GenerateNonce(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends to nonce, so the output is prefixed with it
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// openGCM decrypts the nonce || ciphertext || tag layout produced by sealGCM
func openGCM(gcm cipher.AEAD, data []byte) ([]byte, error) {
	if len(data) < NonceSize+gcm.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short (%d bytes)", ErrDecryptionFailed, len(data))
	}

	plaintext, err := gcm.Open(nil, data[:NonceSize], data[NonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: wrong key or corrupted data", ErrDecryptionFailed)
	}
	return plaintext, nil
}

// EncryptHex encrypts plaintext under key and hex encodes the result
func EncryptHex(plaintext []byte, key *GroupKey) (string, error) {
	ciphertext, err := key.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ciphertext), nil
}

// DecryptHex reverses EncryptHex
func DecryptHex(ciphertextHex string, key *GroupKey) ([]byte, error) {
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not hex: %v", ErrDecryptionFailed, err)
	}
	return key.Decrypt(ciphertext)
}
