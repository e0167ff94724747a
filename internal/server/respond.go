package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wevote/wevoteserver/internal/ctxutil"
	"github.com/wevote/wevoteserver/internal/model"
)

// Status codes written by the HTTP layer itself.
const (
	statusUnauthorized               = "UNAUTHORIZED"
	statusForbidden                  = "FORBIDDEN"
	statusInvalidInput               = "INVALID_INPUT"
	statusNotFound                   = "NOT_FOUND"
	statusInternalError              = "INTERNAL_ERROR"
	statusVisibilitySettingInvalid   = "VISIBILITY_SETTING_INVALID"
	statusOrganizationOrElectionMiss = "ORGANIZATION_WE_VOTE_ID_OR_ELECTION_ID_MISSING"
	statusTokenIssued                = "TOKEN_ISSUED"
	statusAPIKeyCreated              = "API_KEY_CREATED"
	statusAPIKeyRevoked              = "API_KEY_REVOKED"
	statusAPIKeysRetrieved           = "API_KEYS_RETRIEVED"
)

// apiStatus is embedded in every response body.
type apiStatus struct {
	Status  model.Status `json:"status"`
	Success bool         `json:"success"`
}

func newAPIStatus(success bool, status model.Status) apiStatus {
	return apiStatus{Status: status, Success: success}
}

// errorResponse is written for transport-level failures.
type errorResponse struct {
	Status    string `json:"status"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON writes data as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a {"status","success":false} body.
func writeError(w http.ResponseWriter, r *http.Request, httpStatus int, status, message string) {
	writeJSON(w, httpStatus, errorResponse{
		Status:    status,
		Message:   message,
		RequestID: ctxutil.RequestIDFromContext(r.Context()),
	})
}

// writeInternalError logs err and writes a 500.
func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "path", r.URL.Path,
		"request_id", ctxutil.RequestIDFromContext(r.Context()))
	writeError(w, r, http.StatusInternalServerError, statusInternalError, msg)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage flattens validator errors into "field: rule" pairs.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// decodeJSON decodes and validates a JSON request body into target. On
// failure it writes a 400 and returns false.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, http.StatusRequestEntityTooLarge, statusInvalidInput, "request body too large")
			return false
		}
		writeError(w, r, http.StatusBadRequest, statusInvalidInput, "invalid request body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		writeError(w, r, http.StatusBadRequest, statusInvalidInput, validationMessage(err))
		return false
	}
	return true
}

// Form and query parameters. r.FormValue reads both the query string and a
// urlencoded POST body.

func formString(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

// formInt64 returns 0 for absent or malformed values.
func formInt64(r *http.Request, key string) int64 {
	n, err := strconv.ParseInt(formString(r, key), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// formBool returns nil when the parameter is absent.
func formBool(r *http.Request, key string) *bool {
	v := formString(r, key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// formBallotItem reads kind_of_ballot_item and ballot_item_we_vote_id. An
// unknown kind leaves Kind empty so the service reports it.
func formBallotItem(r *http.Request) model.BallotItem {
	kind, _ := model.ParseBallotItemKind(formString(r, "kind_of_ballot_item"))
	return model.BallotItem{Kind: kind, WeVoteID: formString(r, "ballot_item_we_vote_id")}
}

const (
	defaultPageSize = 50
	maxPageSize     = 1000
	maxOffset       = 100_000
)

// formPage returns a bounded limit and offset.
func formPage(r *http.Request) (limit, offset int) {
	limit = int(formInt64(r, "limit"))
	switch {
	case limit <= 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}
	offset = int(formInt64(r, "offset"))
	if offset < 0 {
		offset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	return limit, offset
}

// pathInt64 parses a positive integer path value.
func pathInt64(r *http.Request, name string) (int64, bool) {
	n, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
