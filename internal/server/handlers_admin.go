package server

import (
	"net/http"
	"strings"

	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/service/representatives"
	"github.com/wevote/wevoteserver/internal/service/voterguides"
)

type importResponse struct {
	apiStatus
	Files   int `json:"files"`
	Saved   int `json:"saved"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// HandleImportPollingLocations handles POST /admin/polling-locations/import.
func (h *Handlers) HandleImportPollingLocations(w http.ResponseWriter, r *http.Request) {
	var req model.ImportPollingLocationsRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	res, err := h.pollingLocations.ImportFromGlob(r.Context(), req.Glob)
	if err != nil {
		h.writeInternalError(w, r, "failed to import polling locations", err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{
		apiStatus: newAPIStatus(res.Success, res.Status),
		Files:     res.Files,
		Saved:     res.Saved,
		Updated:   res.Updated,
		Skipped:   res.Skipped,
		Failed:    res.Failed,
	})
}

type pollingLocationResponse struct {
	apiStatus
	PollingLocation           *model.PollingLocation `json:"polling_location,omitempty"`
	NewPollingLocationCreated bool                   `json:"new_polling_location_created"`
	Updated                   bool                   `json:"updated"`
}

// HandleSavePollingLocation handles POST /admin/polling-locations.
func (h *Handlers) HandleSavePollingLocation(w http.ResponseWriter, r *http.Request) {
	var req model.PollingLocationInput
	if !h.decodeJSON(w, r, &req) {
		return
	}
	res, err := h.pollingLocations.UpdateOrCreatePollingLocation(r.Context(), model.PollingLocation{
		PollingLocationID:  req.PollingLocationID,
		LocationName:       req.LocationName,
		PollingHoursText:   req.PollingHoursText,
		DirectionsText:     req.DirectionsText,
		Line1:              req.Line1,
		Line2:              req.Line2,
		City:               req.City,
		State:              strings.ToUpper(req.State),
		ZipLong:            req.ZipLong,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		UseForBulkRetrieve: req.UseForBulkRetrieve,
	})
	if err != nil {
		h.writeInternalError(w, r, "failed to save polling location", err)
		return
	}
	resp := pollingLocationResponse{
		apiStatus:                 newAPIStatus(res.Success, res.Status),
		NewPollingLocationCreated: res.NewPollingLocationCreated,
		Updated:                   res.Updated,
	}
	if res.Success {
		resp.PollingLocation = &res.PollingLocation
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetPollingLocation handles GET /admin/polling-locations/{we_vote_id}.
func (h *Handlers) HandleGetPollingLocation(w http.ResponseWriter, r *http.Request) {
	res, err := h.pollingLocations.RetrievePollingLocation(r.Context(), r.PathValue("we_vote_id"))
	if err != nil {
		h.writeInternalError(w, r, "failed to retrieve polling location", err)
		return
	}
	resp := pollingLocationResponse{apiStatus: newAPIStatus(res.Success, res.Status)}
	if res.Success {
		resp.PollingLocation = &res.PollingLocation
	}
	writeJSON(w, http.StatusOK, resp)
}

type retrieveRepresentativesResponse struct {
	apiStatus
	LogKind                model.PollingLocationLogKind `json:"kind_of_log_entry,omitempty"`
	OfficesHeldCreated     int                          `json:"offices_held_created"`
	OfficesHeldUpdated     int                          `json:"offices_held_updated"`
	RepresentativesCreated int                          `json:"representatives_created"`
	RepresentativesUpdated int                          `json:"representatives_updated"`
	OfficesHeld            []model.OfficeHeld           `json:"offices_held"`
	Representatives        []model.Representative       `json:"representatives"`
}

// HandleRetrieveRepresentatives handles POST /admin/representatives/retrieve.
// Omitted rules permit every create and update.
func (h *Handlers) HandleRetrieveRepresentatives(w http.ResponseWriter, r *http.Request) {
	var req model.RetrieveRepresentativesRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	rules := model.AllowAll()
	if req.Rules != nil {
		rules = *req.Rules
	}
	res, err := h.representatives.RetrieveRepresentativesForPollingLocationByWeVoteID(r.Context(),
		req.PollingLocationWeVoteID, representatives.RetrieveOptions{Rules: rules})
	if err != nil {
		h.writeInternalError(w, r, "failed to retrieve representatives", err)
		return
	}
	resp := retrieveRepresentativesResponse{
		apiStatus:              newAPIStatus(res.Success, res.Status),
		LogKind:                res.LogKind,
		OfficesHeldCreated:     res.Groom.OfficesHeldCreated,
		OfficesHeldUpdated:     res.Groom.OfficesHeldUpdated,
		RepresentativesCreated: res.Groom.RepresentativesCreated,
		RepresentativesUpdated: res.Groom.RepresentativesUpdated,
		OfficesHeld:            res.Groom.OfficesHeld,
		Representatives:        res.Groom.Representatives,
	}
	if resp.OfficesHeld == nil {
		resp.OfficesHeld = []model.OfficeHeld{}
	}
	if resp.Representatives == nil {
		resp.Representatives = []model.Representative{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type batchProcessResponse struct {
	apiStatus
	BatchProcess *model.BatchProcess `json:"batch_process,omitempty"`
	Retrieved    int                 `json:"retrieved"`
	Failed       int                 `json:"failed"`
	Completed    bool                `json:"completed"`
}

func newBatchProcessResponse(res representatives.BatchResult) batchProcessResponse {
	resp := batchProcessResponse{
		apiStatus: newAPIStatus(res.Success, res.Status),
		Retrieved: res.Retrieved,
		Failed:    res.Failed,
		Completed: res.Completed,
	}
	if res.BatchProcess.ID > 0 {
		resp.BatchProcess = &res.BatchProcess
	}
	return resp
}

// HandleCreateBatchProcess handles POST /admin/batch-processes.
func (h *Handlers) HandleCreateBatchProcess(w http.ResponseWriter, r *http.Request) {
	var req model.BatchProcessRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	res, err := h.representatives.CreateRepresentativesBatchProcess(r.Context(), req.StateCode)
	if err != nil {
		h.writeInternalError(w, r, "failed to create batch process", err)
		return
	}
	writeJSON(w, http.StatusOK, newBatchProcessResponse(res))
}

// HandleProcessNextBatch handles POST /admin/batch-processes/next.
func (h *Handlers) HandleProcessNextBatch(w http.ResponseWriter, r *http.Request) {
	res, err := h.representatives.ProcessNextRepresentatives(r.Context())
	if err != nil {
		h.writeInternalError(w, r, "failed to process batch", err)
		return
	}
	writeJSON(w, http.StatusOK, newBatchProcessResponse(res))
}

type possibilityListResponse struct {
	apiStatus
	VoterGuidePossibilities []model.VoterGuidePossibility `json:"voter_guide_possibilities"`
}

// HandleListPossibilities handles GET /admin/voter-guide-possibilities.
func (h *Handlers) HandleListPossibilities(w http.ResponseWriter, r *http.Request) {
	limit, offset := formPage(r)
	flag := func(key string) bool {
		b := formBool(r, key)
		return b != nil && *b
	}
	list, err := h.voterGuides.ListPossibilities(r.Context(), model.PossibilityFilter{
		StateCode:       strings.ToUpper(formString(r, "state_code")),
		IncludeIgnored:  flag("include_ignored"),
		IncludeVerified: flag("include_verified"),
		IncludeHidden:   flag("include_hidden"),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		h.writeInternalError(w, r, "failed to list voter guide possibilities", err)
		return
	}
	if list == nil {
		list = []model.VoterGuidePossibility{}
	}
	writeJSON(w, http.StatusOK, possibilityListResponse{
		apiStatus:               newAPIStatus(true, model.NewStatus("VOTER_GUIDE_POSSIBILITIES_RETRIEVED")),
		VoterGuidePossibilities: list,
	})
}

// possibilityID reads the {id} path value, writing a 400 when it is not a
// positive integer.
func possibilityID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, statusInvalidInput, "id must be a positive integer")
	}
	return id, ok
}

type scanResponse struct {
	apiStatus
	Added []model.VoterGuidePossibilityPosition `json:"added"`
}

// HandleScanPossibility handles POST /admin/voter-guide-possibilities/{id}/scan.
func (h *Handlers) HandleScanPossibility(w http.ResponseWriter, r *http.Request) {
	id, ok := possibilityID(w, r)
	if !ok {
		return
	}
	res, err := h.voterGuides.ScanPossibility(r.Context(), id)
	if err != nil {
		h.writeInternalError(w, r, "failed to scan voter guide possibility", err)
		return
	}
	added := res.Added
	if added == nil {
		added = []model.VoterGuidePossibilityPosition{}
	}
	writeJSON(w, http.StatusOK, scanResponse{apiStatus: newAPIStatus(res.Success, res.Status), Added: added})
}

type extractResponse struct {
	apiStatus
	VoterGuidePossibility *model.VoterGuidePossibility      `json:"voter_guide_possibility,omitempty"`
	PossibleEndorsements  []voterguides.PossibleEndorsement `json:"possible_endorsement_list"`
	MatchedCount          int                               `json:"matched_count"`
	UnmatchedCount        int                               `json:"unmatched_count"`
}

// HandleExtractPossibility handles POST /admin/voter-guide-possibilities/{id}/extract.
// The body is optional.
func (h *Handlers) HandleExtractPossibility(w http.ResponseWriter, r *http.Request) {
	id, ok := possibilityID(w, r)
	if !ok {
		return
	}
	var req model.ExtractRequest
	if r.ContentLength != 0 && r.Body != http.NoBody {
		if !h.decodeJSON(w, r, &req) {
			return
		}
	}
	res, err := h.voterGuides.ExtractPossibleEndorsements(r.Context(), id, voterguides.ExtractOptions{SaveMatches: req.SaveMatches})
	if err != nil {
		h.writeInternalError(w, r, "failed to extract endorsements", err)
		return
	}
	resp := extractResponse{
		apiStatus:            newAPIStatus(res.Success, res.Status),
		PossibleEndorsements: res.Endorsements,
		MatchedCount:         res.MatchedCount,
		UnmatchedCount:       res.UnmatchedCount,
	}
	if res.Possibility.ID > 0 {
		resp.VoterGuidePossibility = &res.Possibility
	}
	if resp.PossibleEndorsements == nil {
		resp.PossibleEndorsements = []voterguides.PossibleEndorsement{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type promoteResponse struct {
	apiStatus
	Promoted    int                `json:"promoted"`
	Removed     int                `json:"removed"`
	Skipped     int                `json:"skipped"`
	VoterGuides []model.VoterGuide `json:"voter_guides"`
}

// HandlePromotePossibility handles POST /admin/voter-guide-possibilities/{id}/promote.
func (h *Handlers) HandlePromotePossibility(w http.ResponseWriter, r *http.Request) {
	id, ok := possibilityID(w, r)
	if !ok {
		return
	}
	res, err := h.voterGuides.PromotePossibilityPositions(r.Context(), id)
	if err != nil {
		h.writeInternalError(w, r, "failed to promote possibility positions", err)
		return
	}
	guides := res.VoterGuides
	if guides == nil {
		guides = []model.VoterGuide{}
	}
	writeJSON(w, http.StatusOK, promoteResponse{
		apiStatus:   newAPIStatus(res.Success, res.Status),
		Promoted:    res.Promoted,
		Removed:     res.Removed,
		Skipped:     res.Skipped,
		VoterGuides: guides,
	})
}

// HandleDeletePossibility handles DELETE /admin/voter-guide-possibilities/{id}.
func (h *Handlers) HandleDeletePossibility(w http.ResponseWriter, r *http.Request) {
	id, ok := possibilityID(w, r)
	if !ok {
		return
	}
	res, err := h.voterGuides.DeletePossibility(r.Context(), id)
	if err != nil {
		h.writeInternalError(w, r, "failed to delete voter guide possibility", err)
		return
	}
	writeJSON(w, http.StatusOK, newAPIStatus(res.Success, res.Status))
}

type voterGuideResponse struct {
	apiStatus
	VoterGuide *model.VoterGuide `json:"voter_guide,omitempty"`
	Created    bool              `json:"created"`
}

// HandleRefreshVoterGuide handles POST /admin/voter-guides/refresh.
func (h *Handlers) HandleRefreshVoterGuide(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshVoterGuideRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	res, err := h.voterGuides.UpdateOrCreateOrganizationVoterGuideByElectionID(r.Context(),
		req.OrganizationWeVoteID, req.GoogleCivicElectionID)
	if err != nil {
		h.writeInternalError(w, r, "failed to refresh voter guide", err)
		return
	}
	resp := voterGuideResponse{apiStatus: newAPIStatus(res.Success, res.Status), Created: res.Created}
	if res.Success {
		resp.VoterGuide = &res.VoterGuide
	}
	writeJSON(w, http.StatusOK, resp)
}

type switchResponse struct {
	apiStatus
	Position *model.Position `json:"position,omitempty"`
	Merged   bool            `json:"merged"`
}

// HandleSetPositionVisibility handles POST /admin/positions/{we_vote_id}/visibility.
func (h *Handlers) HandleSetPositionVisibility(w http.ResponseWriter, r *http.Request) {
	var req model.VisibilityRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	// The validator has already restricted the value to a parseable spelling.
	vis, _ := model.ParseVisibility(req.Visibility)
	res, err := h.positions.SwitchPositionVisibility(r.Context(), r.PathValue("we_vote_id"), vis)
	if err != nil {
		h.writeInternalError(w, r, "failed to switch position visibility", err)
		return
	}
	resp := switchResponse{apiStatus: newAPIStatus(res.Success, res.Status), Merged: res.Merged}
	if res.Success {
		resp.Position = &res.Position
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleMergePositions handles POST /admin/positions/merge.
func (h *Handlers) HandleMergePositions(w http.ResponseWriter, r *http.Request) {
	var req model.MergeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	res, err := h.positions.MergePositionsByWeVoteID(r.Context(), req.KeeperWeVoteID, req.DuplicateWeVoteID)
	if err != nil {
		h.writeInternalError(w, r, "failed to merge positions", err)
		return
	}
	resp := switchResponse{apiStatus: newAPIStatus(res.Success, res.Status), Merged: res.Merged}
	if res.Success {
		resp.Position = &res.Position
	}
	writeJSON(w, http.StatusOK, resp)
}
