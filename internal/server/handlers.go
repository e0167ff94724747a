package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/wevote/wevoteserver/internal/apidocs"
	"github.com/wevote/wevoteserver/internal/auth"
	"github.com/wevote/wevoteserver/internal/authz"
	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/service/pollinglocations"
	"github.com/wevote/wevoteserver/internal/service/positions"
	"github.com/wevote/wevoteserver/internal/service/representatives"
	"github.com/wevote/wevoteserver/internal/service/voterguides"
	"github.com/wevote/wevoteserver/internal/storage"
)

// Store is the persistence the handlers use directly. *storage.DB implements it.
type Store interface {
	Ping(ctx context.Context) error
	GetVoterByDeviceID(ctx context.Context, voterDeviceID string) (model.Voter, error)
	CreateAPIKey(ctx context.Context, key model.APIKey) (model.APIKey, error)
	ListAPIKeys(ctx context.Context, limit, offset int) ([]model.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	store            Store
	jwtMgr           *auth.JWTManager
	keyVerifier      *authz.KeyVerifier
	positions        *positions.Service
	voterGuides      *voterguides.Service
	pollingLocations *pollinglocations.Service
	representatives  *representatives.Service
	validate         *validator.Validate
	logger           *slog.Logger
	startedAt        time.Time
	version          string
}

// HandlersDeps holds all dependencies for constructing Handlers.
// KeyVerifier may be nil; api key checks and revocation eviction are then skipped.
type HandlersDeps struct {
	Store            Store
	JWTMgr           *auth.JWTManager
	KeyVerifier      *authz.KeyVerifier
	Positions        *positions.Service
	VoterGuides      *voterguides.Service
	PollingLocations *pollinglocations.Service
	Representatives  *representatives.Service
	Logger           *slog.Logger
	Version          string
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		store:            d.Store,
		jwtMgr:           d.JWTMgr,
		keyVerifier:      d.KeyVerifier,
		positions:        d.Positions,
		voterGuides:      d.VoterGuides,
		pollingLocations: d.PollingLocations,
		representatives:  d.Representatives,
		validate:         newValidator(),
		logger:           d.Logger,
		startedAt:        time.Now(),
		version:          d.Version,
	}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := model.HealthResponse{
		Status:   "healthy",
		Version:  h.version,
		Postgres: "connected",
		Uptime:   int64(time.Since(h.startedAt).Seconds()),
	}
	httpStatus := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		resp.Status = "unhealthy"
		resp.Postgres = "disconnected"
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, resp)
}

type docsIndexEntry struct {
	Name         string `json:"api_name"`
	Method       string `json:"method"`
	URLRoot      string `json:"url_root"`
	Introduction string `json:"api_introduction"`
	DocsURL      string `json:"docs_url"`
}

type docsIndexResponse struct {
	apiStatus
	APIList []docsIndexEntry `json:"api_list"`
}

// HandleDocsIndex handles GET /apis/v1/docs.
func (h *Handlers) HandleDocsIndex(w http.ResponseWriter, r *http.Request) {
	all := apidocs.All()
	resp := docsIndexResponse{
		apiStatus: newAPIStatus(true, model.NewStatus("API_DOCS_RETRIEVED")),
		APIList:   make([]docsIndexEntry, 0, len(all)),
	}
	for _, ep := range all {
		resp.APIList = append(resp.APIList, docsIndexEntry{
			Name:         ep.Name,
			Method:       ep.Method,
			URLRoot:      ep.URLRoot,
			Introduction: ep.Introduction,
			DocsURL:      apidocs.URLRoot + "docs/" + ep.Name + "/",
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleDocsEndpoint handles GET /apis/v1/docs/{name}.
func (h *Handlers) HandleDocsEndpoint(w http.ResponseWriter, r *http.Request) {
	ep, ok := apidocs.Get(r.PathValue("name"))
	if !ok {
		writeError(w, r, http.StatusNotFound, statusNotFound, "no documentation for "+r.PathValue("name"))
		return
	}
	writeJSON(w, http.StatusOK, ep)
}

// HandleToken handles POST /admin/token. The voter behind the device id must
// hold at least one admin role.
func (h *Handlers) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req model.TokenRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	voter, err := h.store.GetVoterByDeviceID(r.Context(), req.VoterDeviceID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, r, http.StatusUnauthorized, model.StatusValidVoterIDMissing, "")
		return
	}
	if err != nil {
		h.writeInternalError(w, r, "failed to look up voter", err)
		return
	}
	if len(voter.Roles()) == 0 {
		writeError(w, r, http.StatusForbidden, statusForbidden, "voter has no admin role")
		return
	}
	token, expiresAt, err := h.jwtMgr.IssueToken(voter)
	if err != nil {
		h.writeInternalError(w, r, "failed to issue token", err)
		return
	}
	h.logger.Info("admin token issued",
		"voter_we_vote_id", voter.WeVoteID,
		"role", voter.HighestRole())
	writeJSON(w, http.StatusOK, struct {
		apiStatus
		model.TokenResponse
	}{
		apiStatus:     newAPIStatus(true, model.NewStatus(statusTokenIssued)),
		TokenResponse: model.TokenResponse{Token: token, ExpiresAt: expiresAt},
	})
}
