package publisher

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
)

// MsgChainIDLength is the length of the random chain id of a session
const MsgChainIDLength = 20

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Config configures a MessageCreator
type Config struct {
	// PublisherID is required when Signer is nil; otherwise the signer's address is used
	PublisherID protocol.Address
	// Signer is optional. Without it data messages are unsigned and key exchange is unavailable.
	Signer Signer
	// Random picks partitions for messages without a partition key
	Random RandomSource
	// Clock supplies timestamps for key exchange messages
	Clock func() time.Time
	// Logger is optional
	Logger *logrus.Logger
}

// MessageCreator builds sequenced, optionally encrypted and signed envelopes
// for one publisher identity. It is safe for concurrent use.
type MessageCreator struct {
	publisherID protocol.Address
	signer      Signer
	chains      *ChainSequencer
	partitioner *Partitioner
	clock       func() time.Time
	log         *logrus.Logger
}

// NewMessageCreator creates a MessageCreator with a fresh message chain id
func NewMessageCreator(config Config) (*MessageCreator, error) {
	publisherID := config.PublisherID
	if config.Signer != nil {
		if protocol.IsZeroAddress(publisherID) {
			publisherID = config.Signer.Address()
		} else if publisherID != config.Signer.Address() {
			return nil, fmt.Errorf("%w: publisher %s does not match signer %s", ErrInvalidConfiguration, publisherID, config.Signer.Address())
		}
	}
	if protocol.IsZeroAddress(publisherID) {
		return nil, fmt.Errorf("%w: publisher id is required", ErrInvalidConfiguration)
	}

	msgChainID, err := generateMsgChainID()
	if err != nil {
		return nil, err
	}

	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
	}

	return &MessageCreator{
		publisherID: publisherID,
		signer:      config.Signer,
		chains:      NewChainSequencer(publisherID, msgChainID),
		partitioner: NewPartitioner(config.Random),
		clock:       clock,
		log:         logger,
	}, nil
}

// PublisherID returns the identity stamped on every message
func (c *MessageCreator) PublisherID() protocol.Address {
	return c.publisherID
}

// MsgChainID returns the chain id of this session
func (c *MessageCreator) MsgChainID() string {
	return c.chains.MsgChainID()
}

// IsSigned reports whether the creator signs its messages
func (c *MessageCreator) IsSigned() bool {
	return c.signer != nil
}

// Chains exposes the chain sequencer
func (c *MessageCreator) Chains() *ChainSequencer {
	return c.chains
}

// ===== OPTIONS =====

type messageOptions struct {
	partitionKey string
	groupKey     *crypto.GroupKey
	newGroupKey  *crypto.GroupKey
}

// MessageOption customizes CreateMessage
type MessageOption func(*messageOptions)

// WithPartitionKey routes the message by key instead of randomly
func WithPartitionKey(key string) MessageOption {
	return func(o *messageOptions) {
		o.partitionKey = key
	}
}

// WithGroupKey encrypts the content under key
func WithGroupKey(key *crypto.GroupKey) MessageOption {
	return func(o *messageOptions) {
		o.groupKey = key
	}
}

// WithNewGroupKey attaches the next group key, encrypted under the current one.
// Ignored unless WithGroupKey is also given.
func WithNewGroupKey(key *crypto.GroupKey) MessageOption {
	return func(o *messageOptions) {
		o.newGroupKey = key
	}
}

// ===== DATA MESSAGES =====

// CreateMessage builds the envelope for payload published to stream at timestamp
func (c *MessageCreator) CreateMessage(stream protocol.Stream, payload map[string]any, timestamp time.Time, opts ...MessageOption) (*protocol.StreamMessage, error) {
	var o messageOptions
	for _, opt := range opts {
		opt(&o)
	}

	partition, err := c.partitioner.SelectPartition(stream.Partitions, o.partitionKey)
	if err != nil {
		return nil, fmt.Errorf("stream %s: %w", stream.ID, err)
	}

	if payload == nil {
		payload = map[string]any{}
	}
	content, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	msg := &protocol.StreamMessage{
		MessageType:       protocol.MessageTypeStreamMessage,
		ContentType:       protocol.ContentTypeJSON,
		EncryptionType:    protocol.EncryptionNone,
		SerializedContent: string(content),
	}

	// Encrypt before sequencing so a failure leaves no gap in the chain
	if o.groupKey != nil {
		encrypted, err := EncryptPayload(content, o.groupKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt content: %w", err)
		}
		msg.EncryptionType = protocol.EncryptionAES
		msg.GroupKeyID = o.groupKey.ID()
		msg.SerializedContent = encrypted

		if o.newGroupKey != nil {
			msg.NewGroupKey, err = WrapForRotation(o.newGroupKey, o.groupKey)
			if err != nil {
				return nil, err
			}
		}
	}

	msg.ID, msg.PrevRef = c.chains.NextID(stream.ID, partition, timestamp.UnixMilli())

	if c.signer != nil {
		if err := SignMessage(c.signer, msg); err != nil {
			return nil, err
		}
	}

	return msg, nil
}

// generateMsgChainID returns a random alphanumeric chain id
func generateMsgChainID() (string, error) {
	id := make([]byte, 0, MsgChainIDLength)
	buf := make([]byte, MsgChainIDLength*2)

	for len(id) < MsgChainIDLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate message chain id: %w", err)
		}
		for _, b := range buf {
			// Reject the tail of the byte range to keep the distribution uniform
			if int(b) >= 256-256%len(alphanumeric) {
				continue
			}
			id = append(id, alphanumeric[int(b)%len(alphanumeric)])
			if len(id) == MsgChainIDLength {
				break
			}
		}
	}
	return string(id), nil
}
