package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// KeyExchangeStreamPrefix prefixes the per-participant key exchange stream
const KeyExchangeStreamPrefix = "SYSTEM/keyexchange/"

// KeyExchangeStreamID returns the stream carrying key exchange messages for addr
func KeyExchangeStreamID(addr Address) string {
	return KeyExchangeStreamPrefix + addr.Hex()
}

// IsKeyExchangeStream reports whether streamID is a key exchange stream
func IsKeyExchangeStream(streamID string) bool {
	return strings.HasPrefix(streamID, KeyExchangeStreamPrefix)
}

// ===== ENCRYPTED GROUP KEY =====

// EncryptedGroupKey is a group key's material encrypted for transport
// Wire format: [groupKeyId, encryptedGroupKeyHex]
type EncryptedGroupKey struct {
	GroupKeyID           string
	EncryptedGroupKeyHex string
}

// MarshalJSON encodes the key as a 2-element array
func (k EncryptedGroupKey) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{k.GroupKeyID, k.EncryptedGroupKeyHex})
}

// UnmarshalJSON decodes the 2-element array form
func (k *EncryptedGroupKey) UnmarshalJSON(data []byte) error {
	var fields [2]string
	if err := decodeArray(data, "encrypted group key", &fields[0], &fields[1]); err != nil {
		return err
	}
	k.GroupKeyID = fields[0]
	k.EncryptedGroupKeyHex = fields[1]
	return nil
}

// Serialize returns the JSON string form used in signatures
func (k *EncryptedGroupKey) Serialize() string {
	data, _ := json.Marshal(k)
	return string(data)
}

// ===== GROUP KEY REQUEST =====

// GroupKeyRequest asks a publisher for group keys of a stream
// Wire format: [requestId, streamId, rsaPublicKey, [groupKeyIds]]
type GroupKeyRequest struct {
	RequestID   string
	StreamID    string
	PublicKey   string // Requester's RSA public key, PEM
	GroupKeyIDs []string
}

func (r GroupKeyRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.RequestID, r.StreamID, r.PublicKey, nonNil(r.GroupKeyIDs)})
}

func (r *GroupKeyRequest) UnmarshalJSON(data []byte) error {
	return decodeArray(data, "group key request", &r.RequestID, &r.StreamID, &r.PublicKey, &r.GroupKeyIDs)
}

// ===== GROUP KEY RESPONSE =====

// GroupKeyResponse answers a GroupKeyRequest
// Wire format: [requestId, streamId, [[groupKeyId, encryptedHex], ...]]
type GroupKeyResponse struct {
	RequestID          string
	StreamID           string
	EncryptedGroupKeys []EncryptedGroupKey
}

func (r GroupKeyResponse) MarshalJSON() ([]byte, error) {
	keys := r.EncryptedGroupKeys
	if keys == nil {
		keys = []EncryptedGroupKey{}
	}
	return json.Marshal([]any{r.RequestID, r.StreamID, keys})
}

func (r *GroupKeyResponse) UnmarshalJSON(data []byte) error {
	return decodeArray(data, "group key response", &r.RequestID, &r.StreamID, &r.EncryptedGroupKeys)
}

// ===== GROUP KEY ANNOUNCE =====

// GroupKeyAnnounce pushes new group keys to a subscriber
// Wire format: [streamId, [[groupKeyId, encryptedHex], ...]]
type GroupKeyAnnounce struct {
	StreamID           string
	EncryptedGroupKeys []EncryptedGroupKey
}

func (a GroupKeyAnnounce) MarshalJSON() ([]byte, error) {
	keys := a.EncryptedGroupKeys
	if keys == nil {
		keys = []EncryptedGroupKey{}
	}
	return json.Marshal([]any{a.StreamID, keys})
}

func (a *GroupKeyAnnounce) UnmarshalJSON(data []byte) error {
	return decodeArray(data, "group key announce", &a.StreamID, &a.EncryptedGroupKeys)
}

// ===== GROUP KEY ERROR RESPONSE =====

// GroupKeyErrorResponse reports a failure to serve a GroupKeyRequest
// Wire format: [requestId, streamId, errorCode, errorMessage, [groupKeyIds]]
type GroupKeyErrorResponse struct {
	RequestID   string
	StreamID    string
	Code        ErrorCode
	Message     string
	GroupKeyIDs []string
}

func (r GroupKeyErrorResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.RequestID, r.StreamID, string(r.Code), r.Message, nonNil(r.GroupKeyIDs)})
}

func (r *GroupKeyErrorResponse) UnmarshalJSON(data []byte) error {
	var code string
	if err := decodeArray(data, "group key error response", &r.RequestID, &r.StreamID, &code, &r.Message, &r.GroupKeyIDs); err != nil {
		return err
	}
	r.Code = ErrorCode(code)
	return nil
}

// ===== ENVELOPE CONTENT =====

// ParseGroupKeyRequest extracts the request carried by a GROUP_KEY_REQUEST envelope
func ParseGroupKeyRequest(msg *StreamMessage) (*GroupKeyRequest, error) {
	if msg.MessageType != MessageTypeGroupKeyRequest {
		return nil, NewKeyExchangeError(KindMalformedMessage,
			fmt.Sprintf("expected %s, got %s", MessageTypeGroupKeyRequest, msg.MessageType), nil)
	}

	var req GroupKeyRequest
	if err := json.Unmarshal([]byte(msg.SerializedContent), &req); err != nil {
		return nil, NewKeyExchangeError(KindInvalidGroupKeyRequest, "could not parse group key request", err)
	}
	if req.RequestID == "" || req.StreamID == "" || req.PublicKey == "" {
		return nil, NewKeyExchangeError(KindInvalidGroupKeyRequest, "group key request is missing fields", nil)
	}
	return &req, nil
}

// ParseGroupKeyResponse extracts the response carried by a GROUP_KEY_RESPONSE envelope
func ParseGroupKeyResponse(msg *StreamMessage) (*GroupKeyResponse, error) {
	if msg.MessageType != MessageTypeGroupKeyResponse {
		return nil, NewKeyExchangeError(KindMalformedMessage,
			fmt.Sprintf("expected %s, got %s", MessageTypeGroupKeyResponse, msg.MessageType), nil)
	}

	var resp GroupKeyResponse
	if err := json.Unmarshal([]byte(msg.SerializedContent), &resp); err != nil {
		return nil, NewKeyExchangeError(KindInvalidGroupKeyResponse, "could not parse group key response", err)
	}
	return &resp, nil
}

// ParseGroupKeyAnnounce extracts the announce carried by a GROUP_KEY_ANNOUNCE envelope
func ParseGroupKeyAnnounce(msg *StreamMessage) (*GroupKeyAnnounce, error) {
	if msg.MessageType != MessageTypeGroupKeyAnnounce {
		return nil, NewKeyExchangeError(KindMalformedMessage,
			fmt.Sprintf("expected %s, got %s", MessageTypeGroupKeyAnnounce, msg.MessageType), nil)
	}

	var announce GroupKeyAnnounce
	if err := json.Unmarshal([]byte(msg.SerializedContent), &announce); err != nil {
		return nil, NewKeyExchangeError(KindInvalidGroupKeyResponse, "could not parse group key announce", err)
	}
	return &announce, nil
}

// ParseGroupKeyErrorResponse extracts the error carried by a GROUP_KEY_ERROR_RESPONSE envelope
func ParseGroupKeyErrorResponse(msg *StreamMessage) (*GroupKeyErrorResponse, error) {
	if msg.MessageType != MessageTypeGroupKeyErrorResponse {
		return nil, NewKeyExchangeError(KindMalformedMessage,
			fmt.Sprintf("expected %s, got %s", MessageTypeGroupKeyErrorResponse, msg.MessageType), nil)
	}

	var resp GroupKeyErrorResponse
	if err := json.Unmarshal([]byte(msg.SerializedContent), &resp); err != nil {
		return nil, NewKeyExchangeError(KindMalformedMessage, "could not parse group key error response", err)
	}
	return &resp, nil
}

// decodeArray decodes a fixed-length JSON array into dst, element by element
func decodeArray(data []byte, name string, dst ...any) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if len(fields) != len(dst) {
		return fmt.Errorf("%s: expected %d elements, got %d", name, len(dst), len(fields))
	}
	for i, field := range fields {
		if err := json.Unmarshal(field, dst[i]); err != nil {
			return fmt.Errorf("%s element %d: %w", name, i, err)
		}
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
