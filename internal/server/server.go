package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/wevote/wevoteserver/internal/apidocs"
	"github.com/wevote/wevoteserver/internal/auth"
	"github.com/wevote/wevoteserver/internal/authz"
	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/ratelimit"
	"github.com/wevote/wevoteserver/internal/service/pollinglocations"
	"github.com/wevote/wevoteserver/internal/service/positions"
	"github.com/wevote/wevoteserver/internal/service/representatives"
	"github.com/wevote/wevoteserver/internal/service/voterguides"
)

// Server is the We Vote HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): KeyVerifier, Limiter, MCPServer.
type ServerConfig struct {
	// Required dependencies.
	Store            Store
	JWTMgr           *auth.JWTManager
	Positions        *positions.Service
	VoterGuides      *voterguides.Service
	PollingLocations *pollinglocations.Service
	Representatives  *representatives.Service
	Logger           *slog.Logger

	// Optional dependencies (nil = disabled).
	KeyVerifier *authz.KeyVerifier
	Limiter     ratelimit.Limiter
	MCPServer   *mcpserver.MCPServer

	// RequireAPIKey enforces api_key on /apis/v1. It needs KeyVerifier.
	RequireAPIKey bool
	TrustProxy    bool

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Store:            cfg.Store,
		JWTMgr:           cfg.JWTMgr,
		KeyVerifier:      cfg.KeyVerifier,
		Positions:        cfg.Positions,
		VoterGuides:      cfg.VoterGuides,
		PollingLocations: cfg.PollingLocations,
		Representatives:  cfg.Representatives,
		Logger:           cfg.Logger,
		Version:          cfg.Version,
	})

	publicRL := ratelimit.Middleware(cfg.Limiter, ratelimit.APIKeyOrIPKeyFunc(cfg.TrustProxy), cfg.Logger)
	authRL := ratelimit.Middleware(cfg.Limiter, ratelimit.IPKeyFunc(cfg.TrustProxy), cfg.Logger)

	var verifier *authz.KeyVerifier
	if cfg.RequireAPIKey {
		verifier = cfg.KeyVerifier
	}
	apiKey := apiKeyMiddleware(verifier, cfg.Logger)

	mux := http.NewServeMux()

	// Public API, one route per documented endpoint (api key + rate limit).
	routes := h.apiRoutes()
	for _, ep := range apidocs.All() {
		fn, ok := routes[ep.Name]
		if !ok {
			cfg.Logger.Error("documented endpoint has no handler", "api_name", ep.Name)
			continue
		}
		handler := publicRL(apiKey(fn))
		path := strings.TrimSuffix(ep.URLRoot, "/")
		mux.Handle(ep.Method+" "+path, handler)
		mux.Handle(ep.Method+" "+path+"/{$}", handler)
	}

	// API documentation (no api key).
	mux.HandleFunc("GET /apis/v1/docs", h.HandleDocsIndex)
	mux.HandleFunc("GET /apis/v1/docs/{$}", h.HandleDocsIndex)
	mux.HandleFunc("GET /apis/v1/docs/{name}", h.HandleDocsEndpoint)
	mux.HandleFunc("GET /apis/v1/docs/{name}/{$}", h.HandleDocsEndpoint)

	// Admin token (no auth, rate limited by IP).
	mux.Handle("POST /admin/token", authRL(http.HandlerFunc(h.HandleToken)))

	viewer := requireRole(model.RolePoliticalDataViewer)
	volunteer := requireRole(model.RoleVerifiedVolunteer)
	manager := requireRole(model.RolePoliticalDataManager)
	adminOnly := requireRole(model.RoleAdmin)

	// Polling locations and representatives.
	mux.Handle("POST /admin/polling-locations/import", manager(http.HandlerFunc(h.HandleImportPollingLocations)))
	mux.Handle("POST /admin/polling-locations", manager(http.HandlerFunc(h.HandleSavePollingLocation)))
	mux.Handle("GET /admin/polling-locations/{we_vote_id}", viewer(http.HandlerFunc(h.HandleGetPollingLocation)))
	mux.Handle("POST /admin/representatives/retrieve", manager(http.HandlerFunc(h.HandleRetrieveRepresentatives)))
	mux.Handle("POST /admin/batch-processes", manager(http.HandlerFunc(h.HandleCreateBatchProcess)))
	mux.Handle("POST /admin/batch-processes/next", manager(http.HandlerFunc(h.HandleProcessNextBatch)))

	// Voter guide possibilities and voter guides.
	mux.Handle("GET /admin/voter-guide-possibilities", viewer(http.HandlerFunc(h.HandleListPossibilities)))
	mux.Handle("POST /admin/voter-guide-possibilities/{id}/scan", volunteer(http.HandlerFunc(h.HandleScanPossibility)))
	mux.Handle("POST /admin/voter-guide-possibilities/{id}/extract", volunteer(http.HandlerFunc(h.HandleExtractPossibility)))
	mux.Handle("POST /admin/voter-guide-possibilities/{id}/promote", manager(http.HandlerFunc(h.HandlePromotePossibility)))
	mux.Handle("DELETE /admin/voter-guide-possibilities/{id}", adminOnly(http.HandlerFunc(h.HandleDeletePossibility)))
	mux.Handle("POST /admin/voter-guides/refresh", manager(http.HandlerFunc(h.HandleRefreshVoterGuide)))

	// Positions.
	mux.Handle("POST /admin/positions/merge", manager(http.HandlerFunc(h.HandleMergePositions)))
	mux.Handle("POST /admin/positions/{we_vote_id}/visibility", manager(http.HandlerFunc(h.HandleSetPositionVisibility)))

	// API keys (admin-only).
	mux.Handle("POST /admin/api-keys", adminOnly(http.HandlerFunc(h.HandleCreateKey)))
	mux.Handle("GET /admin/api-keys", adminOnly(http.HandlerFunc(h.HandleListKeys)))
	mux.Handle("DELETE /admin/api-keys/{id}", adminOnly(http.HandlerFunc(h.HandleRevokeKey)))

	// MCP StreamableHTTP transport (auth required, viewer+).
	if cfg.MCPServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(cfg.MCPServer)
		mux.Handle("/mcp", viewer(mcpHTTP))
	}

	// Health (no auth, no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → auth → body limit → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = bodyLimitMiddleware(cfg.MaxRequestBodyBytes, handler)
	handler = authMiddleware(cfg.JWTMgr, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// apiRoutes maps each documented /apis/v1 endpoint name to its handler.
func (h *Handlers) apiRoutes() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"positionRetrieve":                       h.HandlePositionRetrieve,
		"positionListForBallotItem":              h.HandlePositionListForBallotItem,
		"voterPositionRetrieve":                  h.HandleVoterPositionRetrieve,
		"voterPositionSave":                      h.HandleVoterPositionSave,
		"voterPositionVisibilitySave":            h.HandleVoterPositionVisibilitySave,
		"voterGuidePossibilityRetrieve":          h.HandleVoterGuidePossibilityRetrieve,
		"voterGuidePossibilitySave":              h.HandleVoterGuidePossibilitySave,
		"voterGuidePossibilityPositionsRetrieve": h.HandleVoterGuidePossibilityPositionsRetrieve,
		"voterGuidePossibilityPositionSave":      h.HandleVoterGuidePossibilityPositionSave,
		"voterGuidesRetrieve":                    h.HandleVoterGuidesRetrieve,
		"pollingLocationsSyncOut":                h.HandlePollingLocationsSyncOut,
		"representativesQuery":                   h.HandleRepresentativesQuery,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
