package model

import (
	"strings"
	"time"
)

// OfficeHeld is an elected office independent of any one election, keyed on
// (ocd_division_id, office_held_name).
type OfficeHeld struct {
	ID              int64     `json:"id"`
	WeVoteID        string    `json:"office_held_we_vote_id"`
	OfficeHeldName  string    `json:"office_held_name"`
	OcdDivisionID   string    `json:"ocd_division_id"`
	StateCode       string    `json:"state_code"`
	DistrictName    string    `json:"district_name"`
	DistrictID      string    `json:"district_id"`
	DistrictScope   string    `json:"district_scope"`
	Levels          []string  `json:"levels"`
	Roles           []string  `json:"roles"`
	YearsWithData   []int32   `json:"years_with_data"`
	DateLastUpdated time.Time `json:"date_last_updated"`
}

// Representative is a person currently holding an OfficeHeld, keyed on
// (office_held_we_vote_id, representative_name).
type Representative struct {
	ID                           int64     `json:"id"`
	WeVoteID                     string    `json:"representative_we_vote_id"`
	RepresentativeName           string    `json:"representative_name"`
	OfficeHeldWeVoteID           string    `json:"office_held_we_vote_id"`
	OfficeHeldName               string    `json:"office_held_name"`
	OcdDivisionID                string    `json:"ocd_division_id"`
	StateCode                    string    `json:"state_code"`
	PoliticalParty               string    `json:"political_party"`
	RepresentativeURL            string    `json:"representative_url"`
	RepresentativeURL2           string    `json:"representative_url2"`
	RepresentativeURL3           string    `json:"representative_url3"`
	RepresentativeEmail          string    `json:"representative_email"`
	RepresentativeEmail2         string    `json:"representative_email2"`
	RepresentativeEmail3         string    `json:"representative_email3"`
	RepresentativePhone          string    `json:"representative_phone"`
	RepresentativePhone2         string    `json:"representative_phone2"`
	RepresentativePhone3         string    `json:"representative_phone3"`
	TwitterHandle                string    `json:"representative_twitter_handle"`
	TwitterHandle2               string    `json:"representative_twitter_handle2"`
	TwitterHandle3               string    `json:"representative_twitter_handle3"`
	TwitterURL                   string    `json:"twitter_url"`
	FacebookURL                  string    `json:"facebook_url"`
	InstagramHandle              string    `json:"instagram_handle"`
	LinkedInURL                  string    `json:"linkedin_url"`
	YouTubeURL                   string    `json:"youtube_url"`
	WikipediaURL                 string    `json:"wikipedia_url"`
	BallotpediaRepresentativeURL string    `json:"ballotpedia_representative_url"`
	PhotoURLFromGoogleCivic      string    `json:"photo_url_from_google_civic"`
	GoogleCivicName              string    `json:"google_civic_representative_name"`
	GoogleCivicName2             string    `json:"google_civic_representative_name2"`
	GoogleCivicName3             string    `json:"google_civic_representative_name3"`
	YearsInOffice                []int32   `json:"years_in_office"`
	DateLastUpdated              time.Time `json:"date_last_updated"`
}

// AddToSlots stores v in the first empty slot unless an existing slot already
// holds it (case-insensitive). It reports whether anything changed.
func AddToSlots(v string, slots ...*string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, s := range slots {
		if strings.EqualFold(*s, v) {
			return false
		}
	}
	for _, s := range slots {
		if *s == "" {
			*s = v
			return true
		}
	}
	return false
}

// AddYear inserts year into years if absent, keeping ascending order.
func AddYear(years []int32, year int32) []int32 {
	for i, y := range years {
		if y == year {
			return years
		}
		if y > year {
			years = append(years, 0)
			copy(years[i+1:], years[i:])
			years[i] = year
			return years
		}
	}
	return append(years, year)
}
