package server

import (
	"net/http"

	"github.com/wevote/wevoteserver/internal/model"
)

// HandlePollingLocationsSyncOut handles GET /apis/v1/pollingLocationsSyncOut.
// A successful call returns a bare JSON array; failures return the usual
// status object.
func (h *Handlers) HandlePollingLocationsSyncOut(w http.ResponseWriter, r *http.Request) {
	limit, offset := formPage(r)
	res, err := h.pollingLocations.ListPollingLocations(r.Context(), formString(r, "state_code"), limit, offset)
	if err != nil {
		h.writeInternalError(w, r, "failed to list polling locations", err)
		return
	}
	if !res.Success {
		writeJSON(w, http.StatusOK, newAPIStatus(false, res.Status))
		return
	}
	list := res.PollingLocations
	if list == nil {
		list = []model.PollingLocation{}
	}
	writeJSON(w, http.StatusOK, list)
}

type representativesResponse struct {
	apiStatus
	StateCode       string                 `json:"state_code"`
	Representatives []model.Representative `json:"representatives"`
}

// HandleRepresentativesQuery handles GET /apis/v1/representativesQuery.
func (h *Handlers) HandleRepresentativesQuery(w http.ResponseWriter, r *http.Request) {
	limit, offset := formPage(r)
	state := formString(r, "state_code")
	res, err := h.representatives.ListRepresentatives(r.Context(), state, limit, offset)
	if err != nil {
		h.writeInternalError(w, r, "failed to list representatives", err)
		return
	}
	list := res.Representatives
	if list == nil {
		list = []model.Representative{}
	}
	writeJSON(w, http.StatusOK, representativesResponse{
		apiStatus:       newAPIStatus(res.Success, res.Status),
		StateCode:       state,
		Representatives: list,
	})
}
