// Package apidocs is the registry of /apis/v1 endpoint documentation.
package apidocs

import (
	"slices"
	"strings"
)

// Param documents one query or form parameter.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"value"`
	Description string `json:"description"`
}

// StatusCode documents one status code an endpoint may return.
type StatusCode struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Endpoint documents one API endpoint.
type Endpoint struct {
	Name            string       `json:"api_name"`
	Method          string       `json:"method"`
	Introduction    string       `json:"api_introduction"`
	URLRoot         string       `json:"url_root"`
	Required        []Param      `json:"required_query_parameter_list"`
	Optional        []Param      `json:"optional_query_parameter_list"`
	StatusCodes     []StatusCode `json:"potential_status_codes_list"`
	TryNow          []Param      `json:"try_now_link_variables_dict"`
	ResponseExample string       `json:"api_response"`
}

// URLRoot is the path every documented endpoint lives under.
const URLRoot = "/apis/v1/"

var (
	apiKey = Param{"api_key", "string", "The unique key provided to any organization using the WeVoteServer APIs"}

	voterDeviceID = Param{"voter_device_id", "string", "An 88 character unique identifier linked to a voter record on the server"}

	kindOfBallotItem = Param{"kind_of_ballot_item", "string", "The kind of ballot item: OFFICE, CANDIDATE or MEASURE"}

	ballotItemWeVoteID = Param{"ballot_item_we_vote_id", "string", "The unique identifier for the ballot item, across all networks"}

	electionID = Param{"google_civic_election_id", "integer", "The unique identifier for a particular election"}

	stateCode = Param{"state_code", "string", "Two-letter state code"}

	possibilityID = Param{"voter_guide_possibility_id", "integer", "The internal id of a voter guide possibility"}

	limitParam  = Param{"limit", "integer", "Maximum number of rows to return. Defaults to 50"}
	offsetParam = Param{"offset", "integer", "Number of rows to skip"}

	voterStatusCodes = []StatusCode{
		{"VALID_VOTER_DEVICE_ID_MISSING", "Cannot proceed. A valid voter_device_id parameter was not included."},
		{"VALID_VOTER_ID_MISSING", "Cannot proceed. A valid voter_id was not found."},
	}

	ballotItemStatusCodes = []StatusCode{
		{"VALID_KIND_OF_BALLOT_ITEM_MISSING", "kind_of_ballot_item was missing or not OFFICE, CANDIDATE or MEASURE."},
		{"VALID_BALLOT_ITEM_WE_VOTE_ID_MISSING", "ballot_item_we_vote_id was missing."},
	}
)

func codes(groups ...[]StatusCode) []StatusCode {
	var out []StatusCode
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var registry = []Endpoint{
	{
		Name:         "positionRetrieve",
		Method:       "GET",
		Introduction: "Retrieve one public position by its we_vote_id.",
		Required:     []Param{apiKey, {"position_we_vote_id", "string", "The unique identifier for the position"}},
		StatusCodes: []StatusCode{
			{"RETRIEVE_POSITION_FOUND", "The position was found."},
			{"RETRIEVE_POSITION_NONE_FOUND", "No position has that we_vote_id."},
		},
		ResponseExample: `{
  "status": "RETRIEVE_POSITION_FOUND",
  "success": true,
  "position_we_vote_id": "wv01pos123",
  "ballot_item_display_name": "Maria Gonzalez",
  "speaker_display_name": "Sierra Club California",
  "stance": "SUPPORT",
  "statement_text": "",
  "more_info_url": "",
  "google_civic_election_id": 7000
}`,
	},
	{
		Name:         "positionListForBallotItem",
		Method:       "GET",
		Introduction: "List the public positions about one office, candidate or measure.",
		Required:     []Param{apiKey, kindOfBallotItem, ballotItemWeVoteID},
		Optional:     []Param{electionID},
		StatusCodes:  codes(ballotItemStatusCodes, []StatusCode{{"POSITION_LIST_RETRIEVED", "Positions were listed."}}),
		ResponseExample: `{
  "status": "POSITION_LIST_RETRIEVED",
  "success": true,
  "kind_of_ballot_item": "CANDIDATE",
  "ballot_item_we_vote_id": "wv01cand7",
  "position_list": [
    {"position_we_vote_id": "wv01pos123", "speaker_display_name": "Sierra Club California", "stance": "SUPPORT"}
  ]
}`,
	},
	{
		Name:         "voterPositionRetrieve",
		Method:       "GET",
		Introduction: "Retrieve the position the signed-in voter holds on one ballot item, from either the public or the friends-only table.",
		Required:     []Param{voterDeviceID, apiKey, kindOfBallotItem, ballotItemWeVoteID},
		StatusCodes: codes(voterStatusCodes, ballotItemStatusCodes, []StatusCode{
			{"RETRIEVE_POSITION_FOUND", "The voter's position was found."},
			{"RETRIEVE_POSITION_NONE_FOUND", "The voter holds no position on this ballot item."},
		}),
		TryNow: []Param{kindOfBallotItem, ballotItemWeVoteID},
		ResponseExample: `{
  "status": "RETRIEVE_POSITION_FOUND",
  "success": true,
  "position_we_vote_id": "wv01pos456",
  "ballot_item_display_name": "Proposition 1",
  "is_public_position": false,
  "stance": "OPPOSE",
  "statement_text": "Too expensive",
  "kind_of_ballot_item": "MEASURE",
  "ballot_item_we_vote_id": "wv01meas1"
}`,
	},
	{
		Name:         "voterPositionSave",
		Method:       "POST",
		Introduction: "Create or update the signed-in voter's position on one ballot item.",
		Required:     []Param{voterDeviceID, apiKey, kindOfBallotItem, ballotItemWeVoteID},
		Optional: []Param{
			{"stance", "string", "SUPPORT, OPPOSE, INFORMATION_ONLY, STILL_DECIDING or NO_STANCE"},
			{"statement_text", "string", "The voter's comment"},
			{"more_info_url", "string", "A link with more information"},
			{"set_as_public_position", "boolean", "Save to the public table instead of friends-only"},
		},
		StatusCodes: codes(voterStatusCodes, ballotItemStatusCodes, []StatusCode{
			{"POSITION_CREATED", "A new position was saved."},
			{"POSITION_UPDATED", "The existing position was updated."},
		}),
		ResponseExample: `{
  "status": "POSITION_UPDATED",
  "success": true,
  "position_we_vote_id": "wv01pos456",
  "new_position_created": false,
  "is_public_position": false
}`,
	},
	{
		Name:         "voterPositionVisibilitySave",
		Method:       "POST",
		Introduction: "Move the signed-in voter's position between the public and friends-only tables.",
		Required: []Param{voterDeviceID, apiKey, kindOfBallotItem, ballotItemWeVoteID,
			{"visibility_setting", "string", "SHOW_PUBLIC or FRIENDS_ONLY"}},
		StatusCodes: codes(voterStatusCodes, ballotItemStatusCodes, []StatusCode{
			{"POSITION_MOVED", "The position now lives in the requested table."},
			{"POSITION_ALREADY_IN_TARGET_TABLE", "Nothing to do."},
			{"VISIBILITY_SETTING_INVALID", "visibility_setting was not SHOW_PUBLIC or FRIENDS_ONLY."},
			{"POSITION_MERGED", "A duplicate already lived in the target table and was merged."},
		}),
		ResponseExample: `{
  "status": "POSITION_MOVED",
  "success": true,
  "position_we_vote_id": "wv01pos456",
  "visibility_setting": "SHOW_PUBLIC"
}`,
	},
	{
		Name:         "voterGuidePossibilityRetrieve",
		Method:       "GET",
		Introduction: "Retrieve one voter guide possibility by id or by URL.",
		Required:     []Param{apiKey},
		Optional:     []Param{possibilityID, {"voter_guide_possibility_url", "string", "The URL of the page"}},
		StatusCodes: []StatusCode{
			{"VOTER_GUIDE_POSSIBILITY_FOUND", "The possibility was found."},
			{"VOTER_GUIDE_POSSIBILITY_NOT_FOUND", "No possibility matches."},
			{"VOTER_GUIDE_POSSIBILITY_ID_MISSING", "Neither id nor URL was given."},
		},
		ResponseExample: `{
  "status": "VOTER_GUIDE_POSSIBILITY_FOUND",
  "success": true,
  "voter_guide_possibility_id": 12,
  "voter_guide_possibility_url": "https://sierraclub.example/endorsements",
  "voter_guide_possibility_type": "ORGANIZATION_ENDORSING_CANDIDATES",
  "organization_we_vote_id": "wv01org3"
}`,
	},
	{
		Name:         "voterGuidePossibilitySave",
		Method:       "POST",
		Introduction: "Submit or update a page that may hold endorsements. Saving an existing URL updates that possibility.",
		Required:     []Param{apiKey, {"voter_guide_possibility_url", "string", "The URL of the page"}},
		Optional: []Param{
			possibilityID,
			{"voter_guide_possibility_type", "string", "ORGANIZATION_ENDORSING_CANDIDATES, ENDORSEMENTS_FOR_CANDIDATE or UNKNOWN_TYPE"},
			{"organization_name", "string", ""},
			{"organization_twitter_handle", "string", ""},
			{"organization_we_vote_id", "string", ""},
			{"candidate_name", "string", ""},
			{"candidate_we_vote_id", "string", ""},
			stateCode,
			electionID,
			{"contributor_comments", "string", ""},
			{"contributor_email", "string", ""},
			{"ignore_this_source", "boolean", ""},
		},
		StatusCodes: []StatusCode{
			{"VOTER_GUIDE_POSSIBILITY_CREATED", "A new possibility was saved."},
			{"VOTER_GUIDE_POSSIBILITY_UPDATED", "The existing possibility was updated."},
			{"VOTER_GUIDE_POSSIBILITY_URL_MISSING", "voter_guide_possibility_url was missing."},
		},
		ResponseExample: `{
  "status": "VOTER_GUIDE_POSSIBILITY_CREATED",
  "success": true,
  "voter_guide_possibility_id": 12
}`,
	},
	{
		Name:         "voterGuidePossibilityPositionsRetrieve",
		Method:       "GET",
		Introduction: "List the rows found on one voter guide possibility, in position-number order.",
		Required:     []Param{apiKey, possibilityID},
		StatusCodes: []StatusCode{
			{"VOTER_GUIDE_POSSIBILITY_POSITIONS_RETRIEVED", "Rows were listed."},
			{"VOTER_GUIDE_POSSIBILITY_NOT_FOUND", "No possibility has that id."},
		},
		ResponseExample: `{
  "status": "VOTER_GUIDE_POSSIBILITY_POSITIONS_RETRIEVED",
  "success": true,
  "voter_guide_possibility_id": 12,
  "possible_position_list": [
    {"possibility_position_number": 1, "ballot_item_name": "Maria Gonzalez", "position_stance": "SUPPORT"}
  ]
}`,
	},
	{
		Name:         "voterGuidePossibilityPositionSave",
		Method:       "POST",
		Introduction: "Create or update one row of a voter guide possibility.",
		Required:     []Param{apiKey, possibilityID},
		Optional: []Param{
			{"possibility_position_id", "integer", "Update this row"},
			{"possibility_position_number", "integer", "Update the row with this number, or create it"},
			{"ballot_item_name", "string", ""},
			{"candidate_we_vote_id", "string", ""},
			{"measure_we_vote_id", "string", ""},
			{"organization_name", "string", ""},
			{"organization_we_vote_id", "string", ""},
			{"position_stance", "string", ""},
			{"statement_text", "string", ""},
			{"more_info_url", "string", ""},
			{"possibility_should_be_ignored", "boolean", ""},
			{"position_should_be_removed", "boolean", ""},
		},
		StatusCodes: []StatusCode{
			{"VOTER_GUIDE_POSSIBILITY_POSITION_SAVED", "The row was saved."},
			{"VOTER_GUIDE_POSSIBILITY_POSITION_NOT_ON_POSSIBILITY", "The row belongs to another possibility."},
		},
		ResponseExample: `{
  "status": "VOTER_GUIDE_POSSIBILITY_POSITION_SAVED",
  "success": true,
  "possibility_position_id": 31,
  "possibility_position_number": 2
}`,
	},
	{
		Name:         "voterGuidesRetrieve",
		Method:       "GET",
		Introduction: "List voter guides for an organization, an election, or both.",
		Required:     []Param{apiKey},
		Optional:     []Param{{"organization_we_vote_id", "string", ""}, electionID, limitParam, offsetParam},
		StatusCodes: []StatusCode{
			{"VOTER_GUIDES_RETRIEVED", "Voter guides were listed."},
			{"ORGANIZATION_WE_VOTE_ID_OR_ELECTION_ID_MISSING", "Neither filter was given."},
		},
		ResponseExample: `{
  "status": "VOTER_GUIDES_RETRIEVED",
  "success": true,
  "voter_guides": [
    {"we_vote_id": "wv01vg4", "organization_we_vote_id": "wv01org3", "google_civic_election_id": 7000, "number_of_positions": 2}
  ]
}`,
	},
	{
		Name:         "pollingLocationsSyncOut",
		Method:       "GET",
		Introduction: "Export the live polling locations of a state.",
		Required:     []Param{apiKey, stateCode},
		Optional:     []Param{limitParam, offsetParam},
		StatusCodes: []StatusCode{
			{"POLLING_LOCATIONS_RETRIEVED", "Polling locations were listed."},
			{"STATE_CODE_MISSING", "state_code was missing."},
		},
		ResponseExample: `[
  {"polling_location_we_vote_id": "wv01ploc9", "polling_location_id": "80001", "location_name": "Oakland Public Library",
   "line1": "125 14th St", "city": "Oakland", "state": "CA", "zip_long": "94612"}
]`,
	},
	{
		Name:         "representativesQuery",
		Method:       "GET",
		Introduction: "List the representatives currently serving a state.",
		Required:     []Param{apiKey, stateCode},
		Optional:     []Param{limitParam, offsetParam},
		StatusCodes: []StatusCode{
			{"REPRESENTATIVES_RETRIEVED", "Representatives were listed."},
			{"STATE_CODE_MISSING", "state_code was missing."},
		},
		ResponseExample: `{
  "status": "REPRESENTATIVES_RETRIEVED",
  "success": true,
  "representatives": [
    {"representative_we_vote_id": "wv01rep2", "representative_name": "Jane Doe", "office_held_name": "Governor of California"}
  ]
}`,
	},
}

func init() {
	for i := range registry {
		registry[i].URLRoot = URLRoot + registry[i].Name + "/"
	}
	slices.SortFunc(registry, func(a, b Endpoint) int { return strings.Compare(a.Name, b.Name) })
}

// All returns every documented endpoint, sorted by name.
func All() []Endpoint {
	return slices.Clone(registry)
}

// Get returns the documentation of one endpoint.
func Get(name string) (Endpoint, bool) {
	i := slices.IndexFunc(registry, func(e Endpoint) bool { return e.Name == name })
	if i < 0 {
		return Endpoint{}, false
	}
	return registry[i], true
}
