package publisher

import (
	"context"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
)

// GroupKeyProvider looks up group keys by id.
// Unknown keys are reported with an error wrapping ErrGroupKeyNotFound.
type GroupKeyProvider interface {
	GroupKey(ctx context.Context, streamID string, groupKeyID string) (*crypto.GroupKey, error)
}

// PublicKeyDirectory returns the PEM encoded RSA public key of a participant.
// Unknown participants are reported with an error wrapping ErrPublicKeyNotFound.
type PublicKeyDirectory interface {
	PublicKey(ctx context.Context, participant protocol.Address) (string, error)
}

// StreamMetadata returns the partition count of a stream
type StreamMetadata interface {
	Stream(ctx context.Context, streamID string) (protocol.Stream, error)
}

// GroupKeys resolves ids in order through provider
func GroupKeys(ctx context.Context, provider GroupKeyProvider, streamID string, groupKeyIDs []string) ([]*crypto.GroupKey, error) {
	keys := make([]*crypto.GroupKey, 0, len(groupKeyIDs))
	for _, id := range groupKeyIDs {
		key, err := provider.GroupKey(ctx, streamID, id)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
