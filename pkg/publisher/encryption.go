package publisher

import (
	"crypto/rsa"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
)

// EncryptPayload encrypts serialized content under key, hex encoded
func EncryptPayload(plaintext []byte, key *crypto.GroupKey) (string, error) {
	return crypto.EncryptHex(plaintext, key)
}

// DecryptPayload reverses EncryptPayload
func DecryptPayload(ciphertextHex string, key *crypto.GroupKey) ([]byte, error) {
	return crypto.DecryptHex(ciphertextHex, key)
}

// WrapForRotation encrypts the material of newKey under currentKey so that
// holders of currentKey can obtain the next key from the same envelope
func WrapForRotation(newKey, currentKey *crypto.GroupKey) (*protocol.EncryptedGroupKey, error) {
	encrypted, err := crypto.EncryptHex(newKey.Material(), currentKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt group key %s: %w", newKey.ID(), err)
	}
	return &protocol.EncryptedGroupKey{
		GroupKeyID:           newKey.ID(),
		EncryptedGroupKeyHex: encrypted,
	}, nil
}

// UnwrapRotation recovers the key wrapped by WrapForRotation
func UnwrapRotation(encrypted *protocol.EncryptedGroupKey, currentKey *crypto.GroupKey) (*crypto.GroupKey, error) {
	material, err := crypto.DecryptHex(encrypted.EncryptedGroupKeyHex, currentKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt group key %s: %w", encrypted.GroupKeyID, err)
	}
	return crypto.GroupKeyFromBytes(encrypted.GroupKeyID, material)
}

// WrapForExchange encrypts the material of key under an RSA public key
func WrapForExchange(key *crypto.GroupKey, publicKey *rsa.PublicKey) (*protocol.EncryptedGroupKey, error) {
	encrypted, err := crypto.WrapKey(key.Material(), publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap group key %s: %w", key.ID(), err)
	}
	return &protocol.EncryptedGroupKey{
		GroupKeyID:           key.ID(),
		EncryptedGroupKeyHex: hex.EncodeToString(encrypted),
	}, nil
}

// UnwrapExchange recovers a key wrapped by WrapForExchange
func UnwrapExchange(encrypted *protocol.EncryptedGroupKey, privateKey *rsa.PrivateKey) (*crypto.GroupKey, error) {
	ciphertext, err := hex.DecodeString(encrypted.EncryptedGroupKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: group key %s is not hex", crypto.ErrDecryptionFailed, encrypted.GroupKeyID)
	}

	material, err := crypto.UnwrapKey(ciphertext, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap group key %s: %w", encrypted.GroupKeyID, err)
	}
	return crypto.GroupKeyFromBytes(encrypted.GroupKeyID, material)
}

// DecryptContent returns the JSON payload of a data envelope, decrypting
// it with key when the envelope is AES encrypted
func DecryptContent(msg *protocol.StreamMessage, key *crypto.GroupKey) (map[string]any, error) {
	content := []byte(msg.SerializedContent)

	switch msg.EncryptionType {
	case protocol.EncryptionNone:
	case protocol.EncryptionAES:
		if key == nil || key.ID() != msg.GroupKeyID {
			return nil, fmt.Errorf("%w: message is encrypted with group key %s", ErrGroupKeyNotFound, msg.GroupKeyID)
		}
		plaintext, err := DecryptPayload(msg.SerializedContent, key)
		if err != nil {
			return nil, err
		}
		content = plaintext
	default:
		return nil, fmt.Errorf("cannot decrypt %s content with a group key", msg.EncryptionType)
	}

	var payload map[string]any
	if err := json.Unmarshal(content, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse content: %w", err)
	}
	return payload, nil
}
