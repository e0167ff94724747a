package server

import (
	"net/http"

	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/service/positions"
)

const (
	statusPositionWeVoteIDMissing = "POSITION_WE_VOTE_ID_MISSING"
	statusStanceInvalid           = "STANCE_INVALID"
)

type positionResponse struct {
	apiStatus
	*model.Position
	IsPublicPosition bool `json:"is_public_position"`
}

func newPositionResponse(success bool, status model.Status, p *model.Position) positionResponse {
	resp := positionResponse{apiStatus: newAPIStatus(success, status), Position: p}
	if p != nil {
		resp.IsPublicPosition = p.Visibility.IsPublic()
	}
	return resp
}

// HandlePositionRetrieve handles GET /apis/v1/positionRetrieve. Only public
// positions are returned; a friends-only row reads as not found.
func (h *Handlers) HandlePositionRetrieve(w http.ResponseWriter, r *http.Request) {
	weVoteID := formString(r, "position_we_vote_id")
	if weVoteID == "" {
		writeJSON(w, http.StatusOK, newPositionResponse(false, model.NewStatus(statusPositionWeVoteIDMissing), nil))
		return
	}
	res, err := h.positions.RetrievePositionTableUnknown(r.Context(), model.PositionLookup{
		Kind:     model.LookupByWeVoteID,
		WeVoteID: weVoteID,
	})
	if err != nil {
		h.writeInternalError(w, r, "failed to retrieve position", err)
		return
	}
	if !res.Found || !res.Position.Visibility.IsPublic() {
		writeJSON(w, http.StatusOK, newPositionResponse(res.Success,
			model.NewStatus(model.StatusRetrievePositionNoneFound), nil))
		return
	}
	writeJSON(w, http.StatusOK, newPositionResponse(true, res.Status, &res.Position))
}

type positionListResponse struct {
	apiStatus
	KindOfBallotItem      model.BallotItemKind `json:"kind_of_ballot_item"`
	BallotItemWeVoteID    string               `json:"ballot_item_we_vote_id"`
	GoogleCivicElectionID int64                `json:"google_civic_election_id,omitempty"`
	PositionList          []model.Position     `json:"position_list"`
}

// HandlePositionListForBallotItem handles GET /apis/v1/positionListForBallotItem.
func (h *Handlers) HandlePositionListForBallotItem(w http.ResponseWriter, r *http.Request) {
	item := formBallotItem(r)
	electionID := formInt64(r, "google_civic_election_id")
	res, err := h.positions.ListPositionsForBallotItem(r.Context(), item, electionID)
	if err != nil {
		h.writeInternalError(w, r, "failed to list positions", err)
		return
	}
	list := res.Positions
	if list == nil {
		list = []model.Position{}
	}
	writeJSON(w, http.StatusOK, positionListResponse{
		apiStatus:             newAPIStatus(res.Success, res.Status),
		KindOfBallotItem:      item.Kind,
		BallotItemWeVoteID:    item.WeVoteID,
		GoogleCivicElectionID: electionID,
		PositionList:          list,
	})
}

// HandleVoterPositionRetrieve handles GET /apis/v1/voterPositionRetrieve.
func (h *Handlers) HandleVoterPositionRetrieve(w http.ResponseWriter, r *http.Request) {
	res, err := h.positions.RetrieveVoterPosition(r.Context(), formString(r, "voter_device_id"), formBallotItem(r))
	if err != nil {
		h.writeInternalError(w, r, "failed to retrieve voter position", err)
		return
	}
	var p *model.Position
	if res.Found {
		p = &res.Position
	}
	writeJSON(w, http.StatusOK, newPositionResponse(res.Success, res.Status, p))
}

type voterPositionSaveResponse struct {
	positionResponse
	NewPositionCreated bool `json:"new_position_created"`
}

// HandleVoterPositionSave handles POST /apis/v1/voterPositionSave.
func (h *Handlers) HandleVoterPositionSave(w http.ResponseWriter, r *http.Request) {
	var fields positions.PositionFields
	if raw := formString(r, "stance"); raw != "" {
		stance, ok := model.ParseStance(raw)
		if !ok {
			writeJSON(w, http.StatusOK, voterPositionSaveResponse{
				positionResponse: newPositionResponse(false, model.NewStatus(statusStanceInvalid), nil),
			})
			return
		}
		fields.Stance = stance
	}
	fields.StatementText = formString(r, "statement_text")
	fields.MoreInfoURL = formString(r, "more_info_url")
	setAsPublic := false
	if b := formBool(r, "set_as_public_position"); b != nil {
		setAsPublic = *b
	}

	res, err := h.positions.SaveVoterPosition(r.Context(), formString(r, "voter_device_id"), formBallotItem(r), fields, setAsPublic)
	if err != nil {
		h.writeInternalError(w, r, "failed to save voter position", err)
		return
	}
	var p *model.Position
	if res.Success {
		p = &res.Position
	}
	writeJSON(w, http.StatusOK, voterPositionSaveResponse{
		positionResponse:   newPositionResponse(res.Success, res.Status, p),
		NewPositionCreated: res.NewPositionCreated,
	})
}

type visibilitySaveResponse struct {
	positionResponse
	Merged bool `json:"merged"`
}

// HandleVoterPositionVisibilitySave handles POST /apis/v1/voterPositionVisibilitySave.
func (h *Handlers) HandleVoterPositionVisibilitySave(w http.ResponseWriter, r *http.Request) {
	vis, ok := model.ParseVisibility(formString(r, "visibility_setting"))
	if !ok {
		writeJSON(w, http.StatusOK, visibilitySaveResponse{
			positionResponse: newPositionResponse(false, model.NewStatus(statusVisibilitySettingInvalid), nil),
		})
		return
	}
	res, err := h.positions.SetVoterPositionVisibility(r.Context(), formString(r, "voter_device_id"), formBallotItem(r), vis)
	if err != nil {
		h.writeInternalError(w, r, "failed to change position visibility", err)
		return
	}
	var p *model.Position
	if res.Success {
		p = &res.Position
	}
	writeJSON(w, http.StatusOK, visibilitySaveResponse{
		positionResponse: newPositionResponse(res.Success, res.Status, p),
		Merged:           res.Merged,
	})
}
