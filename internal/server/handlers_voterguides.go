package server

import (
	"errors"
	"net/http"

	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/service/voterguides"
	"github.com/wevote/wevoteserver/internal/storage"
)

type possibilityResponse struct {
	apiStatus
	*model.VoterGuidePossibility
	Created bool `json:"created,omitempty"`
}

// HandleVoterGuidePossibilityRetrieve handles GET /apis/v1/voterGuidePossibilityRetrieve.
func (h *Handlers) HandleVoterGuidePossibilityRetrieve(w http.ResponseWriter, r *http.Request) {
	res, err := h.voterGuides.RetrievePossibility(r.Context(),
		formInt64(r, "voter_guide_possibility_id"), formString(r, "voter_guide_possibility_url"))
	if err != nil {
		h.writeInternalError(w, r, "failed to retrieve voter guide possibility", err)
		return
	}
	resp := possibilityResponse{apiStatus: newAPIStatus(res.Success, res.Status)}
	if res.Possibility.ID > 0 {
		resp.VoterGuidePossibility = &res.Possibility
	}
	writeJSON(w, http.StatusOK, resp)
}

// submitterWeVoteID resolves an optional voter_device_id to the voter's
// we_vote_id. Unknown devices yield "".
func (h *Handlers) submitterWeVoteID(r *http.Request) (string, error) {
	device := formString(r, "voter_device_id")
	if model.ValidateVoterDeviceID(device) != nil {
		return "", nil
	}
	v, err := h.store.GetVoterByDeviceID(r.Context(), device)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v.WeVoteID, nil
}

// HandleVoterGuidePossibilitySave handles POST /apis/v1/voterGuidePossibilitySave.
func (h *Handlers) HandleVoterGuidePossibilitySave(w http.ResponseWriter, r *http.Request) {
	submitter, err := h.submitterWeVoteID(r)
	if err != nil {
		h.writeInternalError(w, r, "failed to look up voter", err)
		return
	}
	res, err := h.voterGuides.CreateOrUpdatePossibility(r.Context(), voterguides.PossibilityInput{
		ID:                        formInt64(r, "voter_guide_possibility_id"),
		URL:                       formString(r, "voter_guide_possibility_url"),
		Type:                      formString(r, "voter_guide_possibility_type"),
		OrganizationName:          formString(r, "organization_name"),
		OrganizationTwitterHandle: formString(r, "organization_twitter_handle"),
		OrganizationWeVoteID:      formString(r, "organization_we_vote_id"),
		CandidateName:             formString(r, "candidate_name"),
		CandidateTwitterHandle:    formString(r, "candidate_twitter_handle"),
		CandidateWeVoteID:         formString(r, "candidate_we_vote_id"),
		StateCode:                 formString(r, "state_code"),
		GoogleCivicElectionID:     formInt64(r, "google_civic_election_id"),
		VoterWhoSubmittedWeVoteID: submitter,
		ContributorComments:       formString(r, "contributor_comments"),
		ContributorEmail:          formString(r, "contributor_email"),
		IgnoreThisSource:          formBool(r, "ignore_this_source"),
		DoneVerified:              formBool(r, "done_verified"),
		HideFromActiveReview:      formBool(r, "hide_from_active_review"),
	})
	if err != nil {
		h.writeInternalError(w, r, "failed to save voter guide possibility", err)
		return
	}
	resp := possibilityResponse{apiStatus: newAPIStatus(res.Success, res.Status), Created: res.Created}
	if res.Success {
		resp.VoterGuidePossibility = &res.Possibility
	}
	writeJSON(w, http.StatusOK, resp)
}

type possibilityPositionsResponse struct {
	apiStatus
	VoterGuidePossibilityID int64                                 `json:"voter_guide_possibility_id"`
	PossiblePositionList    []model.VoterGuidePossibilityPosition `json:"possible_position_list"`
}

// HandleVoterGuidePossibilityPositionsRetrieve handles
// GET /apis/v1/voterGuidePossibilityPositionsRetrieve.
func (h *Handlers) HandleVoterGuidePossibilityPositionsRetrieve(w http.ResponseWriter, r *http.Request) {
	id := formInt64(r, "voter_guide_possibility_id")
	res, err := h.voterGuides.ListPossibilityPositions(r.Context(), id)
	if err != nil {
		h.writeInternalError(w, r, "failed to list possibility positions", err)
		return
	}
	list := res.Positions
	if list == nil {
		list = []model.VoterGuidePossibilityPosition{}
	}
	writeJSON(w, http.StatusOK, possibilityPositionsResponse{
		apiStatus:               newAPIStatus(res.Success, res.Status),
		VoterGuidePossibilityID: id,
		PossiblePositionList:    list,
	})
}

type possibilityPositionSaveResponse struct {
	apiStatus
	*model.VoterGuidePossibilityPosition
	Created bool `json:"created"`
}

// HandleVoterGuidePossibilityPositionSave handles
// POST /apis/v1/voterGuidePossibilityPositionSave.
func (h *Handlers) HandleVoterGuidePossibilityPositionSave(w http.ResponseWriter, r *http.Request) {
	in := voterguides.PossibilityPositionInput{
		ID:                         formInt64(r, "possibility_position_id"),
		VoterGuidePossibilityID:    formInt64(r, "voter_guide_possibility_id"),
		PossibilityPositionNumber:  int(formInt64(r, "possibility_position_number")),
		BallotItemName:             formString(r, "ballot_item_name"),
		BallotItemStateCode:        formString(r, "ballot_item_state_code"),
		CandidateWeVoteID:          formString(r, "candidate_we_vote_id"),
		CandidateTwitterHandle:     formString(r, "candidate_twitter_handle"),
		MeasureWeVoteID:            formString(r, "measure_we_vote_id"),
		OrganizationName:           formString(r, "organization_name"),
		OrganizationTwitterHandle:  formString(r, "organization_twitter_handle"),
		OrganizationWeVoteID:       formString(r, "organization_we_vote_id"),
		StatementText:              formString(r, "statement_text"),
		MoreInfoURL:                formString(r, "more_info_url"),
		GoogleCivicElectionID:      formInt64(r, "google_civic_election_id"),
		PossibilityShouldBeIgnored: formBool(r, "possibility_should_be_ignored"),
		PositionShouldBeRemoved:    formBool(r, "position_should_be_removed"),
	}
	if raw := formString(r, "position_stance"); raw != "" {
		stance, ok := model.ParseStance(raw)
		if !ok {
			writeJSON(w, http.StatusOK, possibilityPositionSaveResponse{
				apiStatus: newAPIStatus(false, model.NewStatus(statusStanceInvalid)),
			})
			return
		}
		in.PositionStance = stance
	}
	res, err := h.voterGuides.SavePossibilityPosition(r.Context(), in)
	if err != nil {
		h.writeInternalError(w, r, "failed to save possibility position", err)
		return
	}
	resp := possibilityPositionSaveResponse{apiStatus: newAPIStatus(res.Success, res.Status), Created: res.Created}
	if res.Success {
		resp.VoterGuidePossibilityPosition = &res.Position
	}
	writeJSON(w, http.StatusOK, resp)
}

type voterGuidesResponse struct {
	apiStatus
	VoterGuides []model.VoterGuide `json:"voter_guides"`
}

// HandleVoterGuidesRetrieve handles GET /apis/v1/voterGuidesRetrieve.
func (h *Handlers) HandleVoterGuidesRetrieve(w http.ResponseWriter, r *http.Request) {
	limit, offset := formPage(r)
	f := model.VoterGuideFilter{
		OrganizationWeVoteID:  formString(r, "organization_we_vote_id"),
		GoogleCivicElectionID: formInt64(r, "google_civic_election_id"),
		Limit:                 limit,
		Offset:                offset,
	}
	if f.OrganizationWeVoteID == "" && f.GoogleCivicElectionID <= 0 {
		writeJSON(w, http.StatusOK, voterGuidesResponse{
			apiStatus:   newAPIStatus(false, model.NewStatus(statusOrganizationOrElectionMiss)),
			VoterGuides: []model.VoterGuide{},
		})
		return
	}
	res, err := h.voterGuides.ListVoterGuides(r.Context(), f)
	if err != nil {
		h.writeInternalError(w, r, "failed to list voter guides", err)
		return
	}
	list := res.VoterGuides
	if list == nil {
		list = []model.VoterGuide{}
	}
	writeJSON(w, http.StatusOK, voterGuidesResponse{
		apiStatus:   newAPIStatus(res.Success, res.Status),
		VoterGuides: list,
	})
}
