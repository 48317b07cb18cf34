package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
	"github.com/ZentaChain/zentalk-streams/pkg/publisher"
)

// ===== GROUP KEY OPERATIONS =====

// PutGroupKey stores key for streamID. A stored key is never replaced:
// storing the same material again is a no-op, different material under an
// existing id fails with ErrConflict.
func (s *Store) PutGroupKey(ctx context.Context, streamID string, key *crypto.GroupKey) error {
	sealed, err := s.sealKey.Encrypt(key.Material())
	if err != nil {
		return fmt.Errorf("failed to seal group key: %w", err)
	}

	query := `
		INSERT INTO group_keys (stream_id, group_key_id, sealed_key, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(stream_id, group_key_id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query, streamID, key.ID(), sealed, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store group key: %w", err)
	}

	if count, _ := result.RowsAffected(); count == 0 {
		existing, err := s.GroupKey(ctx, streamID, key.ID())
		if err != nil {
			return err
		}
		if !existing.Equal(key) {
			return fmt.Errorf("%w: group key %s of stream %s is already stored with different material", ErrConflict, key.ID(), streamID)
		}
		return nil
	}

	s.log.WithFields(logrus.Fields{
		"stream_id":    streamID,
		"group_key_id": key.ID(),
	}).Info("🔑 Stored group key")
	return nil
}

// GroupKey implements publisher.GroupKeyProvider
func (s *Store) GroupKey(ctx context.Context, streamID string, groupKeyID string) (*crypto.GroupKey, error) {
	query := `SELECT sealed_key FROM group_keys WHERE stream_id = ? AND group_key_id = ?`

	var sealed []byte
	err := s.db.QueryRowContext(ctx, query, streamID, groupKeyID).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: key %s of stream %s: %w", publisher.ErrGroupKeyNotFound, groupKeyID, streamID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group key: %w", err)
	}

	material, err := s.sealKey.Decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot unseal group key %s", ErrInvalidPassword, groupKeyID)
	}

	return crypto.GroupKeyFromBytes(groupKeyID, material)
}

// LatestGroupKey returns the most recently added key of streamID
func (s *Store) LatestGroupKey(ctx context.Context, streamID string) (*crypto.GroupKey, error) {
	query := `
		SELECT group_key_id FROM group_keys
		WHERE stream_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`

	var id string
	err := s.db.QueryRowContext(ctx, query, streamID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: stream %s has no keys: %w", publisher.ErrGroupKeyNotFound, streamID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest group key: %w", err)
	}

	return s.GroupKey(ctx, streamID, id)
}

// ListGroupKeys lists the keys of streamID, oldest first
func (s *Store) ListGroupKeys(ctx context.Context, streamID string) ([]GroupKeyRecord, error) {
	query := `
		SELECT stream_id, group_key_id, created_at
		FROM group_keys
		WHERE stream_id = ?
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group keys: %w", err)
	}
	defer rows.Close()

	var records []GroupKeyRecord
	for rows.Next() {
		var record GroupKeyRecord
		if err := rows.Scan(&record.StreamID, &record.GroupKeyID, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group key: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// DeleteGroupKey removes a key
func (s *Store) DeleteGroupKey(ctx context.Context, streamID string, groupKeyID string) error {
	query := `DELETE FROM group_keys WHERE stream_id = ? AND group_key_id = ?`

	result, err := s.db.ExecContext(ctx, query, streamID, groupKeyID)
	if err != nil {
		return fmt.Errorf("failed to delete group key: %w", err)
	}

	count, _ := result.RowsAffected()
	if count == 0 {
		return fmt.Errorf("%w: key %s of stream %s: %w", publisher.ErrGroupKeyNotFound, groupKeyID, streamID, ErrNotFound)
	}
	return nil
}
