package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
	"github.com/ZentaChain/zentalk-streams/pkg/publisher"
)

// ===== PARTICIPANT OPERATIONS =====

// PutPublicKey adds or updates the RSA public key of a participant
func (s *Store) PutPublicKey(ctx context.Context, participant protocol.Address, publicKeyPEM string) error {
	if _, err := crypto.PublicKeyFromString(publicKeyPEM); err != nil {
		return fmt.Errorf("public key of %s: %w", participant, err)
	}

	query := `
		INSERT INTO participants (address, public_key, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			public_key = excluded.public_key,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query, participant.Hex(), publicKeyPEM, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store public key: %w", err)
	}

	s.log.WithField("participant", participant.Hex()).Debug("Stored participant public key")
	return nil
}

// PublicKey implements publisher.PublicKeyDirectory
func (s *Store) PublicKey(ctx context.Context, participant protocol.Address) (string, error) {
	query := `SELECT public_key FROM participants WHERE address = ?`

	var publicKey string
	err := s.db.QueryRowContext(ctx, query, participant.Hex()).Scan(&publicKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s: %w", publisher.ErrPublicKeyNotFound, participant, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get public key: %w", err)
	}

	return publicKey, nil
}

// ListParticipants retrieves all participants
func (s *Store) ListParticipants(ctx context.Context) ([]Participant, error) {
	query := `SELECT address, public_key, updated_at FROM participants ORDER BY address ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.Address, &p.PublicKey, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// DeletePublicKey removes a participant
func (s *Store) DeletePublicKey(ctx context.Context, participant protocol.Address) error {
	query := `DELETE FROM participants WHERE address = ?`
	_, err := s.db.ExecContext(ctx, query, participant.Hex())
	return err
}
