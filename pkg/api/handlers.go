package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
	"github.com/ZentaChain/zentalk-streams/pkg/publisher"
	"github.com/ZentaChain/zentalk-streams/pkg/storage"
)

// errUnsolicited rejects group keys this node did not ask the sender for
var errUnsolicited = errors.New("unsolicited group keys")

// PublishRequest is the body of POST /api/v1/streams/:streamId/messages
type PublishRequest struct {
	Payload       map[string]any `json:"payload"`
	Timestamp     *int64         `json:"timestamp,omitempty"` // Unix milliseconds, defaults to now
	PartitionKey  string         `json:"partitionKey,omitempty"`
	GroupKeyID    string         `json:"groupKeyId,omitempty"`
	NewGroupKeyID string         `json:"newGroupKeyId,omitempty"`
}

// GroupKeyRequestBody is the body of POST /api/v1/keyexchange/requests
type GroupKeyRequestBody struct {
	Publisher   protocol.Address `json:"publisher" binding:"required"`
	StreamID    string           `json:"streamId" binding:"required"`
	GroupKeyIDs []string         `json:"groupKeyIds" binding:"required,min=1"`
}

// GroupKeyAnnounceBody is the body of POST /api/v1/keyexchange/announce
type GroupKeyAnnounceBody struct {
	Subscriber  protocol.Address `json:"subscriber" binding:"required"`
	StreamID    string           `json:"streamId" binding:"required"`
	GroupKeyIDs []string         `json:"groupKeyIds" binding:"required,min=1"`
}

// ParticipantBody is the body of PUT /api/v1/participants/:address
type ParticipantBody struct {
	PublicKey string `json:"publicKey" binding:"required"`
}

// NodeInfoResponse describes the publishing identity of this node
type NodeInfoResponse struct {
	PublisherID protocol.Address `json:"publisherId"`
	MsgChainID  string           `json:"msgChainId"`
	Signed      bool             `json:"signed"`
	PublicKey   string           `json:"publicKey"`
}

// OpenResponse lists the group keys received from a response or announce
type OpenResponse struct {
	StreamID    string   `json:"streamId"`
	GroupKeyIDs []string `json:"groupKeyIds"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"publisher": s.creator.PublisherID(),
		"time":      s.clock().UTC().Format(time.RFC3339),
	})
}

// handleNodeInfo handles GET /api/v1/node/info
func (s *Server) handleNodeInfo(c *gin.Context) {
	c.JSON(http.StatusOK, NodeInfoResponse{
		PublisherID: s.creator.PublisherID(),
		MsgChainID:  s.creator.MsgChainID(),
		Signed:      s.creator.IsSigned(),
		PublicKey:   s.publicKeyPEM,
	})
}

// handlePublish handles POST /api/v1/streams/:streamId/messages
func (s *Server) handlePublish(c *gin.Context) {
	ctx := c.Request.Context()
	streamID := c.Param("streamId")

	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	stream, err := s.backend.Stream(ctx, streamID)
	if err != nil {
		s.fail(c, err)
		return
	}

	var opts []publisher.MessageOption
	if req.PartitionKey != "" {
		opts = append(opts, publisher.WithPartitionKey(req.PartitionKey))
	}
	if req.GroupKeyID != "" {
		key, err := s.backend.GroupKey(ctx, streamID, req.GroupKeyID)
		if err != nil {
			s.fail(c, err)
			return
		}
		opts = append(opts, publisher.WithGroupKey(key))
	}
	if req.NewGroupKeyID != "" {
		key, err := s.backend.GroupKey(ctx, streamID, req.NewGroupKeyID)
		if err != nil {
			s.fail(c, err)
			return
		}
		opts = append(opts, publisher.WithNewGroupKey(key))
	}

	timestamp := s.clock()
	if req.Timestamp != nil {
		timestamp = time.UnixMilli(*req.Timestamp)
	}

	msg, err := s.creator.CreateMessage(stream, req.Payload, timestamp, opts...)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.WithFields(logrus.Fields{
		"stream_id": streamID,
		"partition": msg.ID.StreamPartition,
		"seq":       msg.ID.SequenceNumber,
		"encrypted": msg.EncryptionType != protocol.EncryptionNone,
	}).Info("📤 Created stream message")

	c.JSON(http.StatusOK, EnvelopeFromMessage(msg))
}

// handleGroupKeyRequest handles POST /api/v1/keyexchange/requests
func (s *Server) handleGroupKeyRequest(c *gin.Context) {
	var req GroupKeyRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	msg, err := s.creator.CreateGroupKeyRequest(req.Publisher, req.StreamID, s.publicKeyPEM, req.GroupKeyIDs)
	if err != nil {
		s.fail(c, err)
		return
	}

	// Remember the request so its response can be matched
	request, err := protocol.ParseGroupKeyRequest(msg)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.backend.PutKeyRequest(c.Request.Context(), request.RequestID, req.Publisher, req.StreamID); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, EnvelopeFromMessage(msg))
}

// handleGroupKeyAnnounce handles POST /api/v1/keyexchange/announce
func (s *Server) handleGroupKeyAnnounce(c *gin.Context) {
	ctx := c.Request.Context()

	var req GroupKeyAnnounceBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	// Fail before any lookup when the node cannot sign
	kx, err := s.creator.KeyExchange()
	if err != nil {
		s.fail(c, err)
		return
	}

	publicKey, err := s.backend.PublicKey(ctx, req.Subscriber)
	if err != nil {
		s.fail(c, err)
		return
	}

	keys, err := publisher.GroupKeys(ctx, s.backend, req.StreamID, req.GroupKeyIDs)
	if err != nil {
		s.fail(c, err)
		return
	}

	msg, err := kx.CreateGroupKeyAnnounce(req.Subscriber, req.StreamID, publicKey, keys)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, EnvelopeFromMessage(msg))
}

// handleServeRequest handles POST /api/v1/keyexchange/responses.
// The body is a GROUP_KEY_REQUEST envelope; the reply is a response or an
// error response envelope addressed to the requester.
func (s *Server) handleServeRequest(c *gin.Context) {
	var env Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		badRequest(c, "Invalid envelope", err)
		return
	}

	requestMsg, err := env.Message()
	if err != nil {
		badRequest(c, "Invalid envelope", err)
		return
	}

	kx, err := s.creator.KeyExchange()
	if err != nil {
		s.fail(c, err)
		return
	}

	reply, err := kx.ServeGroupKeyRequest(c.Request.Context(), requestMsg, s.backend)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.WithFields(logrus.Fields{
		"requester": requestMsg.ID.PublisherID.Hex(),
		"reply":     reply.MessageType.String(),
	}).Info("🔑 Served group key request")

	c.JSON(http.StatusOK, EnvelopeFromMessage(reply))
}

// handleOpenResponse handles POST /api/v1/keyexchange/open.
// The body is a GROUP_KEY_RESPONSE or GROUP_KEY_ANNOUNCE envelope addressed
// to this node. A response must answer a pending request of this node, an
// announce must come from a publisher trusted for the stream. Stored keys
// are never replaced.
func (s *Server) handleOpenResponse(c *gin.Context) {
	ctx := c.Request.Context()

	var env Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		badRequest(c, "Invalid envelope", err)
		return
	}

	msg, err := env.Message()
	if err != nil {
		badRequest(c, "Invalid envelope", err)
		return
	}

	if msg.GroupKeyID != s.publicKeyPEM {
		badRequest(c, "Envelope is not addressed to this node", nil)
		return
	}

	keys, err := publisher.OpenGroupKeyResponse(msg, s.rsaKey)
	if err != nil {
		s.fail(c, err)
		return
	}

	streamID, err := s.authorizeGroupKeys(ctx, msg)
	if err != nil {
		s.log.WithError(err).WithField("sender", msg.ID.PublisherID.Hex()).Warn("⚠️  Rejected group keys")
		s.fail(c, err)
		return
	}

	resp := OpenResponse{StreamID: streamID, GroupKeyIDs: make([]string, 0, len(keys))}
	for _, key := range keys {
		if err := s.backend.PutGroupKey(ctx, streamID, key); err != nil {
			s.fail(c, err)
			return
		}
		resp.GroupKeyIDs = append(resp.GroupKeyIDs, key.ID())
	}

	c.JSON(http.StatusOK, resp)
}

// authorizeGroupKeys returns the stream whose keys msg may deliver. The
// signature of msg has been verified, so its PublisherID is the sender.
func (s *Server) authorizeGroupKeys(ctx context.Context, msg *protocol.StreamMessage) (string, error) {
	sender := msg.ID.PublisherID

	if msg.MessageType == protocol.MessageTypeGroupKeyResponse {
		response, err := protocol.ParseGroupKeyResponse(msg)
		if err != nil {
			return "", err
		}
		err = s.backend.ClaimKeyRequest(ctx, response.RequestID, sender, response.StreamID)
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%w: no pending request %s to %s", errUnsolicited, response.RequestID, sender)
		}
		if err != nil {
			return "", err
		}
		return response.StreamID, nil
	}

	announce, err := protocol.ParseGroupKeyAnnounce(msg)
	if err != nil {
		return "", err
	}
	trusted, err := s.backend.TrustsPublisher(ctx, announce.StreamID, sender)
	if err != nil {
		return "", err
	}
	if !trusted {
		return "", fmt.Errorf("%w: %s is not trusted for stream %s", errUnsolicited, sender, announce.StreamID)
	}
	return announce.StreamID, nil
}

// handleTrustPublisher handles PUT /api/v1/streams/:streamId/publishers/:address
func (s *Server) handleTrustPublisher(c *gin.Context) {
	publisherID, err := protocol.ParseAddress(c.Param("address"))
	if err != nil {
		badRequest(c, "Invalid publisher address", err)
		return
	}

	if err := s.backend.TrustPublisher(c.Request.Context(), c.Param("streamId"), publisherID); err != nil {
		s.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// handlePutParticipant handles PUT /api/v1/participants/:address
func (s *Server) handlePutParticipant(c *gin.Context) {
	participant, err := protocol.ParseAddress(c.Param("address"))
	if err != nil {
		badRequest(c, "Invalid participant address", err)
		return
	}

	var req ParticipantBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	if err := s.backend.PutPublicKey(c.Request.Context(), participant, req.PublicKey); err != nil {
		s.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ===== ERRORS =====

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	var kerr *protocol.KeyExchangeError
	switch {
	case errors.Is(err, publisher.ErrSigningRequired),
		errors.Is(err, errUnsolicited):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, publisher.ErrInvalidConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, publisher.ErrGroupKeyNotFound),
		errors.Is(err, publisher.ErrPublicKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, crypto.ErrInvalidKeyMaterial),
		errors.Is(err, crypto.ErrInvalidSignature),
		errors.Is(err, crypto.ErrDecryptionFailed),
		errors.Is(err, publisher.ErrUnsigned),
		errors.Is(err, publisher.ErrSignatureMismatch),
		errors.Is(err, protocol.ErrInvalidAddress),
		errors.As(err, &kerr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)

	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
	}
	var kerr *protocol.KeyExchangeError
	if errors.As(err, &kerr) {
		resp.Code = string(kerr.Kind.Code())
	}

	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", c.Request.URL.Path).Error("❌ Request failed")
		resp.Message = "internal error"
	}

	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Message = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}
