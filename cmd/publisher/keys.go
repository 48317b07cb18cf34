package main

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
)

// loadOrGenerateRSAKey loads the key exchange key pair, creating it when
// the file does not exist or generate is set
func loadOrGenerateRSAKey(log *logrus.Logger, keyPath string, generate bool) (*rsa.PrivateKey, error) {
	// Check if key file exists
	if _, err := os.Stat(keyPath); err == nil && !generate {
		log.Debug("Loading existing RSA key...")
		pemData, err := crypto.ReadKeyFile(keyPath)
		if err != nil {
			return nil, err
		}
		return crypto.ImportPrivateKeyPEM(pemData)
	}

	log.Info("Generating new RSA-4096 key pair...")
	privateKey, err := crypto.GenerateRSAKeyPair()
	if err != nil {
		return nil, err
	}

	pemData, err := crypto.ExportPrivateKeyPEM(privateKey)
	if err != nil {
		return nil, err
	}

	if err := crypto.WriteKeyFile(keyPath, pemData); err != nil {
		return nil, err
	}
	log.Infof("✓ New RSA key saved to %s", keyPath)

	// Also save public key
	pubPEM, err := crypto.ExportPublicKeyPEM(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}

	pubPath := keyPath + ".pub"
	if err := crypto.WriteKeyFile(pubPath, pubPEM); err != nil {
		return nil, err
	}
	log.Infof("✓ Public key saved to %s", pubPath)

	return privateKey, nil
}

// loadOrGenerateEthereumKey loads the hex encoded signing key, creating it
// when the file does not exist or generate is set
func loadOrGenerateEthereumKey(log *logrus.Logger, keyPath string, generate bool) (*crypto.EthereumKey, error) {
	if _, err := os.Stat(keyPath); err == nil && !generate {
		log.Debug("Loading existing Ethereum key...")
		data, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, err
		}
		return crypto.EthereumKeyFromHex(strings.TrimSpace(string(data)))
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", keyPath, err)
	}

	log.Info("Generating new Ethereum key...")
	key, err := crypto.GenerateEthereumKey()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(keyPath), 0700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(keyPath, []byte(key.Hex()+"\n"), 0600); err != nil {
		return nil, err
	}
	log.Infof("✓ New Ethereum key saved to %s (address %s)", keyPath, key.Address())

	return key, nil
}
