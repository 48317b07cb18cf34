// Package api provides the HTTP REST API of the stream publisher
package api

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
	"github.com/ZentaChain/zentalk-streams/pkg/publisher"
)

// Backend resolves the collaborators the publisher needs
type Backend interface {
	publisher.GroupKeyProvider
	publisher.PublicKeyDirectory
	publisher.StreamMetadata
	PutPublicKey(ctx context.Context, participant protocol.Address, publicKeyPEM string) error
	PutGroupKey(ctx context.Context, streamID string, key *crypto.GroupKey) error
	PutKeyRequest(ctx context.Context, requestID string, publisherID protocol.Address, streamID string) error
	ClaimKeyRequest(ctx context.Context, requestID string, publisherID protocol.Address, streamID string) error
	TrustPublisher(ctx context.Context, streamID string, publisherID protocol.Address) error
	TrustsPublisher(ctx context.Context, streamID string, publisherID protocol.Address) (bool, error)
}

// Server represents the HTTP API server of the publisher
type Server struct {
	creator      *publisher.MessageCreator
	backend      Backend
	rsaKey       *rsa.PrivateKey
	publicKeyPEM string
	clock        func() time.Time
	log          *logrus.Logger

	router *gin.Engine
	port   int
	config *Config
}

// Config holds server configuration
type Config struct {
	Port         int
	EnableCORS   bool
	RateLimit    int // Requests per minute, 0 disables limiting
	APIKeys      []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		RateLimit:    600,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Deps are the components the server exposes
type Deps struct {
	Creator *publisher.MessageCreator
	Backend Backend
	// RSAKey receives the group keys this node requests
	RSAKey *rsa.PrivateKey
	// Clock defaults to time.Now
	Clock  func() time.Time
	Logger *logrus.Logger
}

// NewServer creates a new HTTP API server
func NewServer(deps Deps, config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if deps.Creator == nil || deps.Backend == nil || deps.RSAKey == nil {
		return nil, errors.New("api: creator, backend and RSA key are required")
	}

	publicKeyPEM, err := crypto.ExportPublicKeyPEM(&deps.RSAKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to export public key: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		creator:      deps.Creator,
		backend:      deps.Backend,
		rsaKey:       deps.RSAKey,
		publicKeyPEM: string(publicKeyPEM),
		clock:        clock,
		log:          logger,
		router:       newRouter(),
		port:         config.Port,
		config:       config,
	}

	// Setup middleware
	server.setupMiddleware(config)

	// Setup routes
	server.setupRoutes()

	return server, nil
}

// newRouter creates the gin engine. Stream ids may contain slashes, so
// path parameters are matched on the escaped path.
func newRouter() *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.UnescapePathValues = true
	return router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(config *Config) {
	// Error recovery
	s.router.Use(gin.Recovery())

	// Request logging
	s.router.Use(LoggingMiddleware(s.log))

	// CORS middleware
	if config.EnableCORS {
		s.router.Use(CORSMiddleware())
	}

	// Rate limiting
	if config.RateLimit > 0 {
		s.router.Use(RateLimitMiddleware(NewRateLimiter(config.RateLimit)))
	}
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check endpoint (outside versioning)
	s.router.GET("/health", s.handleHealth)

	// API v1 group
	v1 := s.router.Group("/api/v1")
	if len(s.config.APIKeys) > 0 {
		keys := make(map[string]bool, len(s.config.APIKeys))
		for _, key := range s.config.APIKeys {
			keys[key] = true
		}
		v1.Use(AuthMiddleware(keys))
	}
	{
		v1.GET("/node/info", s.handleNodeInfo)

		// Streams
		v1.POST("/streams/:streamId/messages", s.handlePublish)
		v1.PUT("/streams/:streamId/publishers/:address", s.handleTrustPublisher)

		// Key exchange
		kx := v1.Group("/keyexchange")
		{
			kx.POST("/requests", s.handleGroupKeyRequest)
			kx.POST("/announce", s.handleGroupKeyAnnounce)
			kx.POST("/responses", s.handleServeRequest)
			kx.POST("/open", s.handleOpenResponse)
		}

		// Participants
		v1.PUT("/participants/:address", s.handlePutParticipant)
	}
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("🌐 HTTP API server starting on port %d...", s.port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	s.log.Info("🛑 Shutting down HTTP API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}
