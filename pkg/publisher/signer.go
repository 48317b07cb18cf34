package publisher

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
)

// Signer signs envelopes on behalf of a publisher identity
type Signer interface {
	Address() protocol.Address
	SignatureType() protocol.SignatureType
	Sign(payload []byte) ([]byte, error)
}

// EthereumSigner signs with a secp256k1 key using Ethereum personal messages
type EthereumSigner struct {
	key *crypto.EthereumKey
}

// NewEthereumSigner creates a signer for key
func NewEthereumSigner(key *crypto.EthereumKey) *EthereumSigner {
	return &EthereumSigner{key: key}
}

func (s *EthereumSigner) Address() protocol.Address {
	return s.key.Address()
}

func (s *EthereumSigner) SignatureType() protocol.SignatureType {
	return protocol.SignatureETH
}

func (s *EthereumSigner) Sign(payload []byte) ([]byte, error) {
	return s.key.SignPersonal(payload), nil
}

// PayloadToSign builds the canonical bytes covered by an envelope signature:
// streamId, partition, timestamp, sequence number, publisher, chain id,
// previous ref, serialized content, message type, encryption type, group key
// id and the rotated group key, concatenated
func PayloadToSign(msg *protocol.StreamMessage) []byte {
	var b strings.Builder

	b.WriteString(msg.ID.StreamID)
	b.WriteString(strconv.Itoa(msg.ID.StreamPartition))
	b.WriteString(strconv.FormatInt(msg.ID.Timestamp, 10))
	b.WriteString(strconv.Itoa(msg.ID.SequenceNumber))
	b.WriteString(msg.ID.PublisherID.Hex())
	b.WriteString(msg.ID.MsgChainID)

	if msg.PrevRef != nil {
		b.WriteString(strconv.FormatInt(msg.PrevRef.Timestamp, 10))
		b.WriteString(strconv.Itoa(msg.PrevRef.SequenceNumber))
	}

	b.WriteString(msg.SerializedContent)
	b.WriteString(strconv.Itoa(int(msg.MessageType)))
	b.WriteString(strconv.Itoa(int(msg.EncryptionType)))
	b.WriteString(msg.GroupKeyID)

	if msg.NewGroupKey != nil {
		b.WriteString(msg.NewGroupKey.Serialize())
	}

	return []byte(b.String())
}

// SignMessage attaches a signature by signer to msg
func SignMessage(signer Signer, msg *protocol.StreamMessage) error {
	signature, err := signer.Sign(PayloadToSign(msg))
	if err != nil {
		return fmt.Errorf("failed to sign message: %w", err)
	}

	msg.SignatureType = signer.SignatureType()
	msg.Signature = signature
	return nil
}

// VerifySignature checks that msg was signed by its publisher
func VerifySignature(msg *protocol.StreamMessage) error {
	if !msg.IsSigned() {
		return ErrUnsigned
	}
	if msg.SignatureType != protocol.SignatureETH {
		return fmt.Errorf("%w: unsupported signature type %d", crypto.ErrInvalidSignature, msg.SignatureType)
	}

	signer, err := crypto.RecoverPersonal(PayloadToSign(msg), msg.Signature)
	if err != nil {
		return err
	}
	if signer != msg.ID.PublisherID {
		return fmt.Errorf("%w: signed by %s, published by %s", ErrSignatureMismatch, signer, msg.ID.PublisherID)
	}
	return nil
}
