package storage

import (
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/pbkdf2"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
	"github.com/ZentaChain/zentalk-streams/pkg/publisher"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrConflict        = errors.New("conflict")
)

const (
	// PBKDF2 iterations for the sealing key
	sealKeyIterations = 100000

	// Salt for the sealing key (constant per application)
	sealKeySalt = "ZenTalk-Streams-KeyStore-v1"
)

var (
	_ publisher.GroupKeyProvider   = (*Store)(nil)
	_ publisher.PublicKeyDirectory = (*Store)(nil)
	_ publisher.StreamMetadata     = (*Store)(nil)
)

// Store keeps the publisher's group keys, participant public keys and
// stream metadata in SQLite. Group key material is sealed at rest with a
// key derived from the store password.
type Store struct {
	db      *sql.DB
	sealKey *crypto.GroupKey
	log     *logrus.Logger
}

// GroupKeyRecord is a stored group key without its material
type GroupKeyRecord struct {
	StreamID   string
	GroupKeyID string
	CreatedAt  int64
}

// Participant is a stored RSA public key
type Participant struct {
	Address   string
	PublicKey string
	UpdatedAt int64
}

// Open opens (or creates) the store at dbPath
func Open(dbPath string, password string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
	}

	sealKey, err := crypto.GroupKeyFromBytes("storage", deriveKey(password))
	if err != nil {
		return nil, err
	}

	// Open SQLite database
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{
		db:      db,
		sealKey: sealKey,
		log:     logger,
	}

	// Initialize schema
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logger.WithField("path", dbPath).Debug("Opened key store")
	return store, nil
}

// deriveKey derives the sealing key from password using PBKDF2-SHA256
func deriveKey(password string) []byte {
	return pbkdf2.Key([]byte(password), []byte(sealKeySalt), sealKeyIterations, crypto.GroupKeySize, sha256.New)
}

// initSchema creates database tables
func (s *Store) initSchema() error {
	schema := `
	-- Group keys, material sealed with the store key
	CREATE TABLE IF NOT EXISTS group_keys (
		stream_id TEXT NOT NULL,
		group_key_id TEXT NOT NULL,
		sealed_key BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (stream_id, group_key_id)
	);

	-- RSA public keys of key exchange participants
	CREATE TABLE IF NOT EXISTS participants (
		address TEXT PRIMARY KEY,
		public_key TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Streams this node publishes to
	CREATE TABLE IF NOT EXISTS streams (
		id TEXT PRIMARY KEY,
		partitions INTEGER NOT NULL CHECK (partitions > 0)
	);

	-- Group key requests this node sent, answered at most once
	CREATE TABLE IF NOT EXISTS key_requests (
		request_id TEXT PRIMARY KEY,
		publisher TEXT NOT NULL,
		stream_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		answered_at INTEGER
	);

	-- Publishers whose group key announcements are accepted per stream
	CREATE TABLE IF NOT EXISTS trusted_publishers (
		stream_id TEXT NOT NULL,
		publisher TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (stream_id, publisher)
	);

	CREATE INDEX IF NOT EXISTS idx_group_keys_created ON group_keys(stream_id, created_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
