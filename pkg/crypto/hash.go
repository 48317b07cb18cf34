package crypto

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Keccak256 generates the legacy Keccak-256 hash used by Ethereum
func Keccak256(data ...[]byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	for _, d := range data {
		hash.Write(d)
	}
	return hash.Sum(nil)
}

// Keccak256Hex generates a Keccak-256 hash and returns hex string
func Keccak256Hex(data []byte) string {
	return hex.EncodeToString(Keccak256(data))
}

// PartitionHash returns the first four bytes of MD5(key) read as a
// little-endian signed 32-bit integer
func PartitionHash(key string) int32 {
	sum := md5.Sum([]byte(key))
	return int32(binary.LittleEndian.Uint32(sum[:4]))
}

// GenerateNonce generates a random nonce
func GenerateNonce(size int) ([]byte, error) {
	nonce := make([]byte, size)
	_, err := rand.Read(nonce)
	if err != nil {
		return nil, err
	}
	return nonce, nil
}
