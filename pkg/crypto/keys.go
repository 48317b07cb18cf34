package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrInvalidKeyMaterial = errors.New("invalid key material")
	ErrEncryptionFailed   = errors.New("encryption failed")
	ErrDecryptionFailed   = errors.New("decryption failed")
)

// DefaultRSAKeyBits is the size of generated key exchange key pairs
const DefaultRSAKeyBits = 4096

const (
	pemPrivateKeyPKCS1 = "RSA PRIVATE KEY"
	pemPrivateKeyPKCS8 = "PRIVATE KEY"
	pemPublicKeyPKIX   = "PUBLIC KEY"
	pemPublicKeyPKCS1  = "RSA PUBLIC KEY"
)

// GenerateRSAKeyPair generates a new RSA-4096 key exchange key pair
func GenerateRSAKeyPair() (*rsa.PrivateKey, error) {
	return GenerateRSAKeyPairWithBits(DefaultRSAKeyBits)
}

// GenerateRSAKeyPairWithBits generates an RSA key pair of the given size
func GenerateRSAKeyPairWithBits(bits int) (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, bits)
}

// ExportPrivateKeyPEM encodes key as a PKCS#1 "RSA PRIVATE KEY" block
func ExportPrivateKeyPEM(key *rsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, ErrInvalidKeyMaterial
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  pemPrivateKeyPKCS1,
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), nil
}

// ExportPublicKeyPEM encodes key as a PKIX "PUBLIC KEY" block. This is the
// form carried in GroupKeyRequest content and in the GroupKeyID of RSA
// encrypted key exchange messages.
func ExportPublicKeyPEM(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPublicKeyPKIX, Bytes: der}), nil
}

// ImportPrivateKeyPEM decodes a PKCS#1 or PKCS#8 RSA private key
func ImportPrivateKeyPEM(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidKeyMaterial)
	}

	switch block.Type {
	case pemPrivateKeyPKCS1:
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
		}
		return key, nil
	case pemPrivateKeyPKCS8:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidKeyMaterial)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrInvalidKeyMaterial, block.Type)
	}
}

// ImportPublicKeyPEM decodes a PKIX or PKCS#1 RSA public key
func ImportPublicKeyPEM(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidKeyMaterial)
	}

	switch block.Type {
	case pemPublicKeyPKIX:
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidKeyMaterial)
		}
		return key, nil
	case pemPublicKeyPKCS1:
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrInvalidKeyMaterial, block.Type)
	}
}

// PublicKeyFromString parses the PEM string carried in group key requests
func PublicKeyFromString(publicKey string) (*rsa.PublicKey, error) {
	return ImportPublicKeyPEM([]byte(publicKey))
}

// WriteKeyFile writes PEM data readable by the owner only, creating the
// parent directory if needed
func WriteKeyFile(path string, pemData []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	return os.WriteFile(path, pemData, 0600)
}

// ReadKeyFile reads PEM data written by WriteKeyFile
func ReadKeyFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WrapKey encrypts key material under publicKey with RSA-OAEP(SHA-256)
func WrapKey(material []byte, publicKey *rsa.PublicKey) ([]byte, error) {
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, publicKey, material, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return wrapped, nil
}

// UnwrapKey reverses WrapKey
func UnwrapKey(wrapped []byte, privateKey *rsa.PrivateKey) ([]byte, error) {
	material, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, privateKey, wrapped, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return material, nil
}
