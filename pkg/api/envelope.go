package api

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
)

// Envelope is the JSON form of a StreamMessage exchanged with API clients
type Envelope struct {
	StreamID        string                      `json:"streamId"`
	StreamPartition int                         `json:"streamPartition"`
	Timestamp       int64                       `json:"timestamp"`
	SequenceNumber  int                         `json:"sequenceNumber"`
	PublisherID     protocol.Address            `json:"publisherId"`
	MsgChainID      string                      `json:"msgChainId"`
	PrevMsgRef      *protocol.MessageRef        `json:"prevMsgRef"`
	MessageType     protocol.MessageType        `json:"messageType"`
	ContentType     protocol.ContentType        `json:"contentType"`
	EncryptionType  protocol.EncryptionType     `json:"encryptionType"`
	GroupKeyID      string                      `json:"groupKeyId,omitempty"`
	Content         string                      `json:"content"`
	NewGroupKey     *protocol.EncryptedGroupKey `json:"newGroupKey,omitempty"`
	SignatureType   protocol.SignatureType      `json:"signatureType"`
	Signature       string                      `json:"signature,omitempty"` // 0x-prefixed hex
}

// EnvelopeFromMessage converts msg to its JSON form
func EnvelopeFromMessage(msg *protocol.StreamMessage) *Envelope {
	env := &Envelope{
		StreamID:        msg.ID.StreamID,
		StreamPartition: msg.ID.StreamPartition,
		Timestamp:       msg.ID.Timestamp,
		SequenceNumber:  msg.ID.SequenceNumber,
		PublisherID:     msg.ID.PublisherID,
		MsgChainID:      msg.ID.MsgChainID,
		PrevMsgRef:      msg.PrevRef,
		MessageType:     msg.MessageType,
		ContentType:     msg.ContentType,
		EncryptionType:  msg.EncryptionType,
		GroupKeyID:      msg.GroupKeyID,
		Content:         msg.SerializedContent,
		NewGroupKey:     msg.NewGroupKey,
		SignatureType:   msg.SignatureType,
	}
	if len(msg.Signature) > 0 {
		env.Signature = "0x" + hex.EncodeToString(msg.Signature)
	}
	return env
}

// Message converts the envelope back to a StreamMessage
func (e *Envelope) Message() (*protocol.StreamMessage, error) {
	msg := &protocol.StreamMessage{
		ID: protocol.MessageID{
			StreamID:        e.StreamID,
			StreamPartition: e.StreamPartition,
			Timestamp:       e.Timestamp,
			SequenceNumber:  e.SequenceNumber,
			PublisherID:     e.PublisherID,
			MsgChainID:      e.MsgChainID,
		},
		PrevRef:           e.PrevMsgRef,
		MessageType:       e.MessageType,
		ContentType:       e.ContentType,
		EncryptionType:    e.EncryptionType,
		GroupKeyID:        e.GroupKeyID,
		SerializedContent: e.Content,
		NewGroupKey:       e.NewGroupKey,
		SignatureType:     e.SignatureType,
	}

	if e.Signature != "" {
		signature, err := hex.DecodeString(strings.TrimPrefix(e.Signature, "0x"))
		if err != nil {
			return nil, fmt.Errorf("signature is not hex: %w", err)
		}
		msg.Signature = signature
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}
