package publisher

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
)

var errMissingRequest = protocol.NewKeyExchangeError(protocol.KindInvalidGroupKeyRequest, "missing group key request", nil)

// KeyExchange builds the signed group key exchange messages.
// It can only be obtained from a signing MessageCreator.
type KeyExchange struct {
	creator *MessageCreator
	signer  Signer
}

// KeyExchange returns the key exchange builder, or ErrSigningRequired when
// the creator has no signer
func (c *MessageCreator) KeyExchange() (*KeyExchange, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("%w: key exchange messages must be signed with an Ethereum account", ErrSigningRequired)
	}
	return &KeyExchange{creator: c, signer: c.signer}, nil
}

// CreateGroupKeyRequest asks publisher for the given group keys of streamID.
// rsaPublicKey is the requester's PEM public key the keys will be wrapped under.
func (c *MessageCreator) CreateGroupKeyRequest(publisher protocol.Address, streamID string, rsaPublicKey string, groupKeyIDs []string) (*protocol.StreamMessage, error) {
	kx, err := c.KeyExchange()
	if err != nil {
		return nil, fmt.Errorf("cannot create unsigned group key request: %w", err)
	}
	return kx.CreateGroupKeyRequest(publisher, streamID, rsaPublicKey, groupKeyIDs)
}

// CreateGroupKeyResponse answers request with groupKeys for subscriber
func (c *MessageCreator) CreateGroupKeyResponse(subscriber protocol.Address, request *protocol.GroupKeyRequest, groupKeys []*crypto.GroupKey) (*protocol.StreamMessage, error) {
	kx, err := c.KeyExchange()
	if err != nil {
		return nil, fmt.Errorf("cannot create unsigned group key response: %w", err)
	}
	return kx.CreateGroupKeyResponse(subscriber, request, groupKeys)
}

// CreateGroupKeyAnnounce pushes groupKeys to subscriber
func (c *MessageCreator) CreateGroupKeyAnnounce(subscriber protocol.Address, streamID string, publicKey string, groupKeys []*crypto.GroupKey) (*protocol.StreamMessage, error) {
	kx, err := c.KeyExchange()
	if err != nil {
		return nil, fmt.Errorf("cannot create unsigned group key announce: %w", err)
	}
	return kx.CreateGroupKeyAnnounce(subscriber, streamID, publicKey, groupKeys)
}

// CreateGroupKeyErrorResponse reports to destination why request failed
func (c *MessageCreator) CreateGroupKeyErrorResponse(destination protocol.Address, request *protocol.GroupKeyRequest, cause error) (*protocol.StreamMessage, error) {
	kx, err := c.KeyExchange()
	if err != nil {
		return nil, fmt.Errorf("cannot create unsigned group key error response: %w", err)
	}
	return kx.CreateGroupKeyErrorResponse(destination, request, cause)
}

// CreateGroupKeyRequest builds a signed, unencrypted GROUP_KEY_REQUEST
// addressed to the key exchange stream of publisher
func (k *KeyExchange) CreateGroupKeyRequest(publisher protocol.Address, streamID string, rsaPublicKey string, groupKeyIDs []string) (*protocol.StreamMessage, error) {
	if _, err := crypto.PublicKeyFromString(rsaPublicKey); err != nil {
		return nil, fmt.Errorf("group key request public key: %w", err)
	}

	request := protocol.GroupKeyRequest{
		RequestID:   uuid.NewString(),
		StreamID:    streamID,
		PublicKey:   rsaPublicKey,
		GroupKeyIDs: groupKeyIDs,
	}

	msg, err := k.envelope(publisher, protocol.MessageTypeGroupKeyRequest, request, protocol.EncryptionNone, "")
	if err != nil {
		return nil, err
	}

	k.creator.log.WithFields(logrus.Fields{
		"request_id": request.RequestID,
		"stream_id":  streamID,
		"publisher":  publisher.Hex(),
		"keys":       len(groupKeyIDs),
	}).Debug("Created group key request")
	return msg, nil
}

// CreateGroupKeyResponse builds a signed GROUP_KEY_RESPONSE with every key
// wrapped under the request's public key
func (k *KeyExchange) CreateGroupKeyResponse(subscriber protocol.Address, request *protocol.GroupKeyRequest, groupKeys []*crypto.GroupKey) (*protocol.StreamMessage, error) {
	if request == nil {
		return nil, errMissingRequest
	}

	encrypted, err := wrapAll(groupKeys, request.PublicKey)
	if err != nil {
		return nil, err
	}

	response := protocol.GroupKeyResponse{
		RequestID:          request.RequestID,
		StreamID:           request.StreamID,
		EncryptedGroupKeys: encrypted,
	}

	msg, err := k.envelope(subscriber, protocol.MessageTypeGroupKeyResponse, response, protocol.EncryptionRSA, request.PublicKey)
	if err != nil {
		return nil, err
	}

	k.creator.log.WithFields(logrus.Fields{
		"request_id": request.RequestID,
		"stream_id":  request.StreamID,
		"subscriber": subscriber.Hex(),
		"keys":       len(encrypted),
	}).Debug("Created group key response")
	return msg, nil
}

// CreateGroupKeyAnnounce builds a signed GROUP_KEY_ANNOUNCE with every key
// wrapped under publicKey
func (k *KeyExchange) CreateGroupKeyAnnounce(subscriber protocol.Address, streamID string, publicKey string, groupKeys []*crypto.GroupKey) (*protocol.StreamMessage, error) {
	encrypted, err := wrapAll(groupKeys, publicKey)
	if err != nil {
		return nil, err
	}

	announce := protocol.GroupKeyAnnounce{
		StreamID:           streamID,
		EncryptedGroupKeys: encrypted,
	}

	msg, err := k.envelope(subscriber, protocol.MessageTypeGroupKeyAnnounce, announce, protocol.EncryptionRSA, publicKey)
	if err != nil {
		return nil, err
	}

	k.creator.log.WithFields(logrus.Fields{
		"stream_id":  streamID,
		"subscriber": subscriber.Hex(),
		"keys":       len(encrypted),
	}).Debug("Created group key announce")
	return msg, nil
}

// CreateGroupKeyErrorResponse builds a signed, unencrypted
// GROUP_KEY_ERROR_RESPONSE whose code is derived from cause
func (k *KeyExchange) CreateGroupKeyErrorResponse(destination protocol.Address, request *protocol.GroupKeyRequest, cause error) (*protocol.StreamMessage, error) {
	if request == nil {
		return nil, errMissingRequest
	}

	message := ""
	if cause != nil {
		message = cause.Error()
	}

	response := protocol.GroupKeyErrorResponse{
		RequestID:   request.RequestID,
		StreamID:    request.StreamID,
		Code:        protocol.CodeFor(cause),
		Message:     message,
		GroupKeyIDs: request.GroupKeyIDs,
	}

	msg, err := k.envelope(destination, protocol.MessageTypeGroupKeyErrorResponse, response, protocol.EncryptionNone, "")
	if err != nil {
		return nil, err
	}

	k.creator.log.WithFields(logrus.Fields{
		"request_id":  request.RequestID,
		"stream_id":   request.StreamID,
		"destination": destination.Hex(),
		"code":        response.Code,
	}).Debug("Created group key error response")
	return msg, nil
}

// ServeGroupKeyRequest answers a GROUP_KEY_REQUEST envelope with a response
// carrying the requested keys, or with an error response when the request
// cannot be served. A message that is not a GROUP_KEY_REQUEST is returned as
// a MalformedMessage error instead, since it has no request id to answer.
func (k *KeyExchange) ServeGroupKeyRequest(ctx context.Context, requestMsg *protocol.StreamMessage, keys GroupKeyProvider) (*protocol.StreamMessage, error) {
	request, err := protocol.ParseGroupKeyRequest(requestMsg)
	if err != nil {
		return nil, err
	}
	requester := requestMsg.ID.PublisherID

	groupKeys, err := k.resolveRequest(ctx, requestMsg, request, keys)
	if err != nil {
		k.creator.log.WithFields(logrus.Fields{
			"request_id": request.RequestID,
			"requester":  requester.Hex(),
		}).WithError(err).Warn("Rejecting group key request")
		return k.CreateGroupKeyErrorResponse(requester, request, err)
	}

	return k.CreateGroupKeyResponse(requester, request, groupKeys)
}

// resolveRequest validates request and looks up the keys it asks for
func (k *KeyExchange) resolveRequest(ctx context.Context, requestMsg *protocol.StreamMessage, request *protocol.GroupKeyRequest, keys GroupKeyProvider) ([]*crypto.GroupKey, error) {
	if requestMsg.ContentType != protocol.ContentTypeJSON {
		return nil, protocol.NewKeyExchangeError(protocol.KindMalformedMessage,
			fmt.Sprintf("unsupported content type %d", requestMsg.ContentType), nil)
	}
	if err := VerifySignature(requestMsg); err != nil {
		return nil, protocol.NewKeyExchangeError(protocol.KindInvalidGroupKeyRequest, "request signature is invalid", err)
	}
	if len(request.GroupKeyIDs) == 0 {
		return nil, protocol.NewKeyExchangeError(protocol.KindInvalidGroupKeyRequest, "no group keys requested", nil)
	}
	if _, err := crypto.PublicKeyFromString(request.PublicKey); err != nil {
		return nil, protocol.NewKeyExchangeError(protocol.KindInvalidGroupKeyRequest, "request public key is invalid", err)
	}

	groupKeys, err := GroupKeys(ctx, keys, request.StreamID, request.GroupKeyIDs)
	if errors.Is(err, ErrGroupKeyNotFound) {
		return nil, protocol.NewKeyExchangeError(protocol.KindInvalidGroupKeyRequest,
			fmt.Sprintf("unknown group key for stream %s", request.StreamID), err)
	}
	if err != nil {
		return nil, err
	}
	return groupKeys, nil
}

// envelope sequences, serializes and signs a key exchange message on the
// key exchange stream of destination
func (k *KeyExchange) envelope(destination protocol.Address, msgType protocol.MessageType, content any, encryption protocol.EncryptionType, groupKeyID string) (*protocol.StreamMessage, error) {
	serialized, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s: %w", msgType, err)
	}

	msg := &protocol.StreamMessage{
		MessageType:       msgType,
		ContentType:       protocol.ContentTypeJSON,
		EncryptionType:    encryption,
		GroupKeyID:        groupKeyID,
		SerializedContent: string(serialized),
	}

	timestamp := k.creator.clock().UnixMilli()
	msg.ID, msg.PrevRef = k.creator.chains.NextID(protocol.KeyExchangeStreamID(destination), 0, timestamp)

	if err := SignMessage(k.signer, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// wrapAll RSA-wraps every key under the PEM public key
func wrapAll(groupKeys []*crypto.GroupKey, publicKeyPEM string) ([]protocol.EncryptedGroupKey, error) {
	publicKey, err := crypto.PublicKeyFromString(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("recipient public key: %w", err)
	}

	encrypted := make([]protocol.EncryptedGroupKey, 0, len(groupKeys))
	for _, key := range groupKeys {
		egk, err := WrapForExchange(key, publicKey)
		if err != nil {
			return nil, err
		}
		encrypted = append(encrypted, *egk)
	}
	return encrypted, nil
}

// ===== RECEIVING SIDE =====

// OpenGroupKeyResponse verifies a GROUP_KEY_RESPONSE or GROUP_KEY_ANNOUNCE
// envelope and unwraps its keys with the requester's private key
func OpenGroupKeyResponse(msg *protocol.StreamMessage, privateKey *rsa.PrivateKey) ([]*crypto.GroupKey, error) {
	if err := VerifySignature(msg); err != nil {
		return nil, err
	}

	var encrypted []protocol.EncryptedGroupKey
	switch msg.MessageType {
	case protocol.MessageTypeGroupKeyResponse:
		response, err := protocol.ParseGroupKeyResponse(msg)
		if err != nil {
			return nil, err
		}
		encrypted = response.EncryptedGroupKeys
	case protocol.MessageTypeGroupKeyAnnounce:
		announce, err := protocol.ParseGroupKeyAnnounce(msg)
		if err != nil {
			return nil, err
		}
		encrypted = announce.EncryptedGroupKeys
	default:
		return nil, protocol.NewKeyExchangeError(protocol.KindMalformedMessage,
			fmt.Sprintf("%s does not carry group keys", msg.MessageType), nil)
	}

	keys := make([]*crypto.GroupKey, 0, len(encrypted))
	for i := range encrypted {
		key, err := UnwrapExchange(&encrypted[i], privateKey)
		if err != nil {
			return nil, protocol.NewKeyExchangeError(protocol.KindInvalidGroupKeyResponse, "could not unwrap group key", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
