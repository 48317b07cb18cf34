package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
	"github.com/ZentaChain/zentalk-streams/pkg/publisher"
)

// ===== STREAM OPERATIONS =====

// PutStream adds or updates the partition count of a stream
func (s *Store) PutStream(ctx context.Context, stream protocol.Stream) error {
	if stream.ID == "" {
		return fmt.Errorf("%w: empty stream id", publisher.ErrInvalidConfiguration)
	}
	if stream.Partitions < 1 {
		return fmt.Errorf("%w: stream %s has %d partitions", publisher.ErrInvalidConfiguration, stream.ID, stream.Partitions)
	}

	query := `
		INSERT INTO streams (id, partitions) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET partitions = excluded.partitions
	`

	if _, err := s.db.ExecContext(ctx, query, stream.ID, stream.Partitions); err != nil {
		return fmt.Errorf("failed to store stream: %w", err)
	}
	return nil
}

// Stream implements publisher.StreamMetadata
func (s *Store) Stream(ctx context.Context, streamID string) (protocol.Stream, error) {
	stream := protocol.Stream{ID: streamID}

	err := s.db.QueryRowContext(ctx, `SELECT partitions FROM streams WHERE id = ?`, streamID).Scan(&stream.Partitions)
	if errors.Is(err, sql.ErrNoRows) {
		return stream, fmt.Errorf("stream %s: %w", streamID, ErrNotFound)
	}
	if err != nil {
		return stream, fmt.Errorf("failed to get stream: %w", err)
	}

	return stream, nil
}

// ListStreams retrieves all streams
func (s *Store) ListStreams(ctx context.Context) ([]protocol.Stream, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, partitions FROM streams ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list streams: %w", err)
	}
	defer rows.Close()

	var streams []protocol.Stream
	for rows.Next() {
		var stream protocol.Stream
		if err := rows.Scan(&stream.ID, &stream.Partitions); err != nil {
			return nil, fmt.Errorf("failed to scan stream: %w", err)
		}
		streams = append(streams, stream)
	}

	return streams, rows.Err()
}
