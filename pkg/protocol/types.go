package protocol

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Protocol constants
const (
	// Protocol version of the envelopes produced by this package
	ProtocolVersion = 32

	// AddressSize is the size of an Ethereum address
	AddressSize = 20
)

// MessageType identifies what the SerializedContent of an envelope carries
type MessageType uint8

// Message types
const (
	MessageTypeStreamMessage         MessageType = 27
	MessageTypeGroupKeyRequest       MessageType = 28
	MessageTypeGroupKeyResponse      MessageType = 29
	MessageTypeGroupKeyAnnounce      MessageType = 30
	MessageTypeGroupKeyErrorResponse MessageType = 31
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeStreamMessage:
		return "STREAM_MESSAGE"
	case MessageTypeGroupKeyRequest:
		return "GROUP_KEY_REQUEST"
	case MessageTypeGroupKeyResponse:
		return "GROUP_KEY_RESPONSE"
	case MessageTypeGroupKeyAnnounce:
		return "GROUP_KEY_ANNOUNCE"
	case MessageTypeGroupKeyErrorResponse:
		return "GROUP_KEY_ERROR_RESPONSE"
	default:
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
}

// ContentType is the encoding of the (decrypted) content
type ContentType uint8

// Content types
const (
	ContentTypeJSON ContentType = 0
)

// EncryptionType describes how SerializedContent is encrypted
type EncryptionType uint8

// Encryption types
const (
	EncryptionNone EncryptionType = 0
	EncryptionRSA  EncryptionType = 1
	EncryptionAES  EncryptionType = 2
)

func (e EncryptionType) String() string {
	switch e {
	case EncryptionNone:
		return "NONE"
	case EncryptionRSA:
		return "RSA"
	case EncryptionAES:
		return "AES"
	default:
		return fmt.Sprintf("EncryptionType(%d)", uint8(e))
	}
}

// SignatureType describes the signature scheme of an envelope
type SignatureType uint8

// Signature types
const (
	SignatureNone SignatureType = 0
	SignatureETH  SignatureType = 2
)

var ErrInvalidAddress = errors.New("invalid address")

// Address represents an Ethereum address (20 bytes)
type Address [AddressSize]byte

// ParseAddress parses a hex address with or without the 0x prefix
func ParseAddress(s string) (Address, error) {
	var addr Address

	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != AddressSize*2 {
		return addr, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return addr, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	copy(addr[:], raw)
	return addr, nil
}

// Hex returns the lowercase 0x-prefixed form used on the wire
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

// MarshalText implements encoding.TextMarshaler
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// IsZeroAddress checks if address is zero
func IsZeroAddress(addr Address) bool {
	zero := Address{}
	return addr == zero
}

// Stream is the metadata needed to publish to a stream
type Stream struct {
	ID         string `json:"id"`
	Partitions int    `json:"partitions"`
}

// MessageID uniquely identifies one envelope
type MessageID struct {
	StreamID        string
	StreamPartition int
	Timestamp       int64 // Unix milliseconds
	SequenceNumber  int
	PublisherID     Address
	MsgChainID      string
}

// Ref returns the MessageRef pointing at this message
func (id MessageID) Ref() MessageRef {
	return MessageRef{Timestamp: id.Timestamp, SequenceNumber: id.SequenceNumber}
}

// StreamMessage is the protocol envelope for data and key exchange messages
type StreamMessage struct {
	ID                MessageID
	PrevRef           *MessageRef
	MessageType       MessageType
	ContentType       ContentType
	EncryptionType    EncryptionType
	GroupKeyID        string // Symmetric key id (AES) or recipient public key (RSA)
	SerializedContent string
	NewGroupKey       *EncryptedGroupKey // Next key encrypted under GroupKeyID (AES only)
	SignatureType     SignatureType
	Signature         []byte
}

// IsSigned reports whether the envelope carries a signature
func (m *StreamMessage) IsSigned() bool {
	return m.SignatureType != SignatureNone && len(m.Signature) > 0
}

// Validate checks the envelope-level invariants
func (m *StreamMessage) Validate() error {
	if m.EncryptionType != EncryptionNone && m.GroupKeyID == "" {
		return fmt.Errorf("%s envelope without group key id", m.EncryptionType)
	}
	if m.NewGroupKey != nil && m.EncryptionType != EncryptionAES {
		return fmt.Errorf("new group key attached to %s envelope", m.EncryptionType)
	}
	return nil
}

// NowUnixMilli returns current time in Unix milliseconds
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}
