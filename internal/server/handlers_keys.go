package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/wevote/wevoteserver/internal/auth"
	"github.com/wevote/wevoteserver/internal/ctxutil"
	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/storage"
)

// HandleCreateKey handles POST /admin/api-keys (admin-only).
// Mints a new API key and returns the raw key exactly once. After this
// response, only the prefix is available.
func (h *Handlers) HandleCreateKey(w http.ResponseWriter, r *http.Request) {
	claims := ctxutil.ClaimsFromContext(r.Context())

	var req model.CreateKeyRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	rawKey, prefix, err := model.GenerateRawKey()
	if err != nil {
		h.writeInternalError(w, r, "failed to generate api key", err)
		return
	}
	hash, err := auth.HashAPIKey(rawKey)
	if err != nil {
		h.writeInternalError(w, r, "failed to hash api key", err)
		return
	}

	created, err := h.store.CreateAPIKey(r.Context(), model.APIKey{
		Prefix:    prefix,
		KeyHash:   hash,
		Label:     req.Label,
		CreatedBy: claims.VoterWeVoteID,
	})
	if err != nil {
		h.writeInternalError(w, r, "failed to create api key", err)
		return
	}
	h.logger.Info("api key created",
		"api_key_id", created.ID,
		"prefix", created.Prefix,
		"created_by", created.CreatedBy)

	writeJSON(w, http.StatusCreated, struct {
		apiStatus
		model.APIKeyWithRawKey
	}{
		apiStatus:        newAPIStatus(true, model.NewStatus(statusAPIKeyCreated)),
		APIKeyWithRawKey: model.APIKeyWithRawKey{APIKey: created, RawKey: rawKey},
	})
}

type apiKeyListResponse struct {
	apiStatus
	Keys   []model.APIKey `json:"keys"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// HandleListKeys handles GET /admin/api-keys (admin-only). Key hashes are
// never exposed.
func (h *Handlers) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	limit, offset := formPage(r)
	keys, err := h.store.ListAPIKeys(r.Context(), limit, offset)
	if err != nil {
		h.writeInternalError(w, r, "failed to list api keys", err)
		return
	}
	if keys == nil {
		keys = []model.APIKey{}
	}
	writeJSON(w, http.StatusOK, apiKeyListResponse{
		apiStatus: newAPIStatus(true, model.NewStatus(statusAPIKeysRetrieved)),
		Keys:      keys,
		Limit:     limit,
		Offset:    offset,
	})
}

// HandleRevokeKey handles DELETE /admin/api-keys/{id} (admin-only). The key
// stops verifying immediately on this process.
func (h *Handlers) HandleRevokeKey(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, statusInvalidInput, "invalid api key id")
		return
	}
	if err := h.store.RevokeAPIKey(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, statusNotFound, "api key not found")
			return
		}
		h.writeInternalError(w, r, "failed to revoke api key", err)
		return
	}
	if h.keyVerifier != nil {
		h.keyVerifier.Forget(id)
	}
	h.logger.Info("api key revoked", "api_key_id", id,
		"revoked_by", ctxutil.ClaimsFromContext(r.Context()).VoterWeVoteID)
	writeJSON(w, http.StatusOK, newAPIStatus(true, model.NewStatus(statusAPIKeyRevoked)))
}
