package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
	"github.com/ZentaChain/zentalk-streams/pkg/publisher"
)

// KeyRequest is a group key request sent by this node
type KeyRequest struct {
	RequestID  string
	Publisher  string
	StreamID   string
	CreatedAt  int64
	AnsweredAt int64 // 0 while pending
}

// ===== KEY REQUEST OPERATIONS =====

// PutKeyRequest records a group key request sent to publisherID
func (s *Store) PutKeyRequest(ctx context.Context, requestID string, publisherID protocol.Address, streamID string) error {
	query := `
		INSERT INTO key_requests (request_id, publisher, stream_id, created_at)
		VALUES (?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, requestID, publisherID.Hex(), streamID, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to store key request: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"publisher":  publisherID.Hex(),
		"stream_id":  streamID,
	}).Debug("Stored key request")
	return nil
}

// KeyRequest retrieves a recorded request
func (s *Store) KeyRequest(ctx context.Context, requestID string) (*KeyRequest, error) {
	query := `
		SELECT request_id, publisher, stream_id, created_at, COALESCE(answered_at, 0)
		FROM key_requests WHERE request_id = ?
	`

	var request KeyRequest
	err := s.db.QueryRowContext(ctx, query, requestID).Scan(
		&request.RequestID, &request.Publisher, &request.StreamID, &request.CreatedAt, &request.AnsweredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: key request %s", ErrNotFound, requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key request: %w", err)
	}

	return &request, nil
}

// ClaimKeyRequest marks the pending request sent to publisherID for streamID
// as answered. It fails with ErrNotFound when no such request is pending,
// so every request accepts one response at most.
func (s *Store) ClaimKeyRequest(ctx context.Context, requestID string, publisherID protocol.Address, streamID string) error {
	query := `
		UPDATE key_requests SET answered_at = ?
		WHERE request_id = ? AND publisher = ? AND stream_id = ? AND answered_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, time.Now().UnixMilli(), requestID, publisherID.Hex(), streamID)
	if err != nil {
		return fmt.Errorf("failed to claim key request: %w", err)
	}

	count, _ := result.RowsAffected()
	if count == 0 {
		return fmt.Errorf("%w: no pending key request %s to %s for stream %s", ErrNotFound, requestID, publisherID, streamID)
	}
	return nil
}

// ===== TRUSTED PUBLISHER OPERATIONS =====

// TrustPublisher accepts group key announcements from publisherID for streamID
func (s *Store) TrustPublisher(ctx context.Context, streamID string, publisherID protocol.Address) error {
	if streamID == "" {
		return fmt.Errorf("%w: empty stream id", publisher.ErrInvalidConfiguration)
	}

	query := `
		INSERT INTO trusted_publishers (stream_id, publisher, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(stream_id, publisher) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, streamID, publisherID.Hex(), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to trust publisher: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"stream_id": streamID,
		"publisher": publisherID.Hex(),
	}).Info("🤝 Trusted publisher")
	return nil
}

// TrustsPublisher reports whether announcements from publisherID are accepted
// for streamID: it was trusted explicitly, or this node requested keys of
// streamID from it
func (s *Store) TrustsPublisher(ctx context.Context, streamID string, publisherID protocol.Address) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM trusted_publishers WHERE stream_id = ? AND publisher = ?
		) OR EXISTS (
			SELECT 1 FROM key_requests WHERE stream_id = ? AND publisher = ?
		)
	`

	var trusted bool
	err := s.db.QueryRowContext(ctx, query, streamID, publisherID.Hex(), streamID, publisherID.Hex()).Scan(&trusted)
	if err != nil {
		return false, fmt.Errorf("failed to check trusted publisher: %w", err)
	}
	return trusted, nil
}

// ListTrustedPublishers lists the explicitly trusted publishers of streamID
func (s *Store) ListTrustedPublishers(ctx context.Context, streamID string) ([]string, error) {
	query := `SELECT publisher FROM trusted_publishers WHERE stream_id = ? ORDER BY publisher ASC`

	rows, err := s.db.QueryContext(ctx, query, streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trusted publishers: %w", err)
	}
	defer rows.Close()

	var publishers []string
	for rows.Next() {
		var publisherID string
		if err := rows.Scan(&publisherID); err != nil {
			return nil, fmt.Errorf("failed to scan trusted publisher: %w", err)
		}
		publishers = append(publishers, publisherID)
	}

	return publishers, rows.Err()
}
