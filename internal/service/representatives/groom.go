package representatives

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/wevote/wevoteserver/internal/civic"
	"github.com/wevote/wevoteserver/internal/matching"
	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/storage"
)

type officeKey struct{ ocdDivisionID, name string }

type representativeKey struct{ officeHeldWeVoteID, name string }

// ImportCache remembers the rows an import has already read or written, so a
// batch touching the same office from many addresses hits the store once.
// It is safe for concurrent use and must not outlive one batch.
type ImportCache struct {
	mu              sync.Mutex
	officesHeld     map[officeKey]model.OfficeHeld
	representatives map[representativeKey]model.Representative
}

// NewImportCache returns an empty cache.
func NewImportCache() *ImportCache {
	return &ImportCache{
		officesHeld:     make(map[officeKey]model.OfficeHeld),
		representatives: make(map[representativeKey]model.Representative),
	}
}

func (c *ImportCache) officeHeld(k officeKey) (model.OfficeHeld, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.officesHeld[k]
	return o, ok
}

func (c *ImportCache) putOfficeHeld(o model.OfficeHeld) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.officesHeld[officeKey{o.OcdDivisionID, o.OfficeHeldName}] = o
}

func (c *ImportCache) representative(k representativeKey) (model.Representative, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.representatives[k]
	return r, ok
}

func (c *ImportCache) putRepresentative(r model.Representative) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.representatives[representativeKey{r.OfficeHeldWeVoteID, r.RepresentativeName}] = r
}

// GroomOfficial turns a Google Civic official into representative fields:
// name, party, photo, contact slots and social channels. Office fields are
// left empty.
func GroomOfficial(o civic.Official) model.Representative {
	r := model.Representative{
		RepresentativeName:      strings.TrimSpace(o.Name),
		GoogleCivicName:         strings.TrimSpace(o.Name),
		PoliticalParty:          strings.TrimSpace(o.Party),
		PhotoURLFromGoogleCivic: upgradeURL(o.PhotoURL),
	}
	for _, u := range o.URLs {
		model.AddToSlots(upgradeURL(u), &r.RepresentativeURL, &r.RepresentativeURL2, &r.RepresentativeURL3)
	}
	for _, e := range o.Emails {
		model.AddToSlots(e, &r.RepresentativeEmail, &r.RepresentativeEmail2, &r.RepresentativeEmail3)
	}
	for _, p := range o.Phones {
		model.AddToSlots(p, &r.RepresentativePhone, &r.RepresentativePhone2, &r.RepresentativePhone3)
	}
	for _, ch := range o.Channels {
		id := strings.TrimSpace(ch.ID)
		if id == "" {
			continue
		}
		switch strings.ToLower(ch.Type) {
		case "twitter":
			h := matching.NormalizeTwitterHandle(id)
			if h == "" {
				continue
			}
			model.AddToSlots(h, &r.TwitterHandle, &r.TwitterHandle2, &r.TwitterHandle3)
			if r.TwitterURL == "" {
				r.TwitterURL = "https://twitter.com/" + h
			}
		case "facebook":
			r.FacebookURL = channelURL(id, "https://www.facebook.com/")
		case "instagram":
			r.InstagramHandle = lastPathSegment(id)
		case "linkedin":
			r.LinkedInURL = channelURL(id, "https://www.linkedin.com/in/")
		case "youtube":
			r.YouTubeURL = channelURL(id, "https://www.youtube.com/")
		case "wikipedia":
			r.WikipediaURL = channelURL(id, "https://en.wikipedia.org/wiki/")
		case "ballotpedia":
			r.BallotpediaRepresentativeURL = channelURL(id, "https://ballotpedia.org/")
		}
	}
	return r
}

func isURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") || strings.HasPrefix(l, "www.")
}

// upgradeURL forces https on anything that looks like a URL.
func upgradeURL(s string) string {
	s = strings.TrimSpace(s)
	switch l := strings.ToLower(s); {
	case strings.HasPrefix(l, "https://"):
		return s
	case strings.HasPrefix(l, "http://"):
		return "https://" + s[len("http://"):]
	case strings.HasPrefix(l, "www."):
		return "https://" + s
	}
	return s
}

func channelURL(id, base string) string {
	if isURL(id) {
		return upgradeURL(id)
	}
	return base + strings.TrimPrefix(id, "/")
}

func lastPathSegment(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	if isURL(s) {
		if i := strings.LastIndexByte(s, '/'); i >= 0 {
			s = s[i+1:]
		}
	}
	return strings.TrimPrefix(s, "@")
}

// mergeRepresentative copies groomed fields into dst without overwriting
// values already on file, and reports whether dst changed.
func mergeRepresentative(dst *model.Representative, src model.Representative) bool {
	changed := false
	fill := func(d *string, v string) {
		if *d == "" && v != "" {
			*d = v
			changed = true
		}
	}
	fill(&dst.PoliticalParty, src.PoliticalParty)
	fill(&dst.PhotoURLFromGoogleCivic, src.PhotoURLFromGoogleCivic)
	fill(&dst.TwitterURL, src.TwitterURL)
	fill(&dst.FacebookURL, src.FacebookURL)
	fill(&dst.InstagramHandle, src.InstagramHandle)
	fill(&dst.LinkedInURL, src.LinkedInURL)
	fill(&dst.YouTubeURL, src.YouTubeURL)
	fill(&dst.WikipediaURL, src.WikipediaURL)
	fill(&dst.BallotpediaRepresentativeURL, src.BallotpediaRepresentativeURL)
	for _, v := range []string{src.RepresentativeURL, src.RepresentativeURL2, src.RepresentativeURL3} {
		changed = model.AddToSlots(v, &dst.RepresentativeURL, &dst.RepresentativeURL2, &dst.RepresentativeURL3) || changed
	}
	for _, v := range []string{src.RepresentativeEmail, src.RepresentativeEmail2, src.RepresentativeEmail3} {
		changed = model.AddToSlots(v, &dst.RepresentativeEmail, &dst.RepresentativeEmail2, &dst.RepresentativeEmail3) || changed
	}
	for _, v := range []string{src.RepresentativePhone, src.RepresentativePhone2, src.RepresentativePhone3} {
		changed = model.AddToSlots(v, &dst.RepresentativePhone, &dst.RepresentativePhone2, &dst.RepresentativePhone3) || changed
	}
	for _, v := range []string{src.TwitterHandle, src.TwitterHandle2, src.TwitterHandle3} {
		changed = model.AddToSlots(v, &dst.TwitterHandle, &dst.TwitterHandle2, &dst.TwitterHandle3) || changed
	}
	changed = model.AddToSlots(src.GoogleCivicName, &dst.GoogleCivicName, &dst.GoogleCivicName2, &dst.GoogleCivicName3) || changed
	return changed
}

// StateFromOCDID returns the two-letter state of an OCD division id such as
// "ocd-division/country:us/state:ca/cd:12", or "" when it has none.
func StateFromOCDID(ocdDivisionID string) string {
	for _, seg := range strings.Split(ocdDivisionID, "/") {
		if v, ok := strings.CutPrefix(seg, "state:"); ok && len(v) == 2 {
			return strings.ToUpper(v)
		}
	}
	return ""
}

// districtOf splits the last segment of an OCD id into scope and id.
func districtOf(ocdDivisionID string) (scope, id string) {
	segs := strings.Split(ocdDivisionID, "/")
	last := segs[len(segs)-1]
	scope, id, ok := strings.Cut(last, ":")
	if !ok {
		return "", ""
	}
	return scope, id
}

// GroomOptions controls GroomAndStoreOfficeHeldWithRepresentatives.
type GroomOptions struct {
	Rules model.UpdateOrCreateRules
	// StateCode is used when an office's OCD id carries no state.
	StateCode string
	// Year is recorded in years_with_data and years_in_office.
	Year int32
}

// GroomResult counts what one response changed.
type GroomResult struct {
	Success                bool
	Status                 model.Status
	OfficesHeldCreated     int
	OfficesHeldUpdated     int
	RepresentativesCreated int
	RepresentativesUpdated int
	OfficesHeld            []model.OfficeHeld
	Representatives        []model.Representative
}

// GroomAndStoreOfficeHeldWithRepresentatives upserts every office in resp and
// every official listed under it, honouring opts.Rules. cache may be shared by
// the calls of one batch.
func (s *Service) GroomAndStoreOfficeHeldWithRepresentatives(ctx context.Context, resp civic.RepresentativesResponse, opts GroomOptions, cache *ImportCache) (GroomResult, error) {
	if cache == nil {
		cache = NewImportCache()
	}
	if opts.Year == 0 {
		opts.Year = int32(s.now().Year())
	}
	var res GroomResult
	for _, office := range resp.Offices {
		name := strings.TrimSpace(office.Name)
		if name == "" {
			continue
		}
		oh, ok, err := s.upsertOfficeHeld(ctx, resp, office, opts, cache, &res)
		if err != nil {
			return GroomResult{}, err
		}
		if !ok {
			res.Status.Addf("%s: %s", StatusOfficeHeldNotCreated, strings.ReplaceAll(name, " ", "_"))
			continue
		}
		res.OfficesHeld = append(res.OfficesHeld, oh)

		for _, official := range resp.OfficialsFor(office) {
			rep, ok, err := s.upsertRepresentative(ctx, oh, GroomOfficial(official), opts, cache, &res)
			if err != nil {
				return GroomResult{}, err
			}
			if ok {
				res.Representatives = append(res.Representatives, rep)
			}
		}
	}
	s.imported.Add(ctx, int64(res.OfficesHeldCreated+res.OfficesHeldUpdated+res.RepresentativesCreated+res.RepresentativesUpdated))
	res.Success = true
	res.Status.Addf("%s: %d offices, %d representatives", StatusRepresentativesStored, len(res.OfficesHeld), len(res.Representatives))
	return res, nil
}

func (s *Service) upsertOfficeHeld(ctx context.Context, resp civic.RepresentativesResponse, office civic.Office, opts GroomOptions, cache *ImportCache, res *GroomResult) (model.OfficeHeld, bool, error) {
	key := officeKey{office.DivisionID, strings.TrimSpace(office.Name)}
	existing, found := cache.officeHeld(key)
	if !found {
		var err error
		existing, err = s.store.GetOfficeHeld(ctx, key.ocdDivisionID, key.name)
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, storage.ErrNotFound):
			return model.OfficeHeld{}, false, fmt.Errorf("representatives: get office held: %w", err)
		}
	}

	state := StateFromOCDID(office.DivisionID)
	if state == "" {
		state = strings.ToUpper(opts.StateCode)
	}
	scope, districtID := districtOf(office.DivisionID)
	apply := func(o *model.OfficeHeld) bool {
		changed := false
		fill := func(d *string, v string) {
			if *d == "" && v != "" {
				*d = v
				changed = true
			}
		}
		fill(&o.StateCode, state)
		fill(&o.DistrictName, resp.Divisions[office.DivisionID].Name)
		fill(&o.DistrictScope, scope)
		fill(&o.DistrictID, districtID)
		for _, l := range office.Levels {
			if !slices.Contains(o.Levels, l) {
				o.Levels = append(slices.Clip(o.Levels), l)
				changed = true
			}
		}
		for _, r := range office.Roles {
			if !slices.Contains(o.Roles, r) {
				o.Roles = append(slices.Clip(o.Roles), r)
				changed = true
			}
		}
		if !slices.Contains(o.YearsWithData, opts.Year) {
			o.YearsWithData = model.AddYear(slices.Clone(o.YearsWithData), opts.Year)
			changed = true
		}
		return changed
	}

	if found {
		if opts.Rules.UpdateOfficeHeldEntries && apply(&existing) {
			saved, err := s.store.UpdateOfficeHeld(ctx, existing)
			if err != nil {
				return model.OfficeHeld{}, false, fmt.Errorf("representatives: update office held %s: %w", existing.WeVoteID, err)
			}
			existing = saved
			res.OfficesHeldUpdated++
		}
		cache.putOfficeHeld(existing)
		return existing, true, nil
	}
	if !opts.Rules.CreateOfficeHeldEntries {
		return model.OfficeHeld{}, false, nil
	}

	o := model.OfficeHeld{OfficeHeldName: key.name, OcdDivisionID: key.ocdDivisionID}
	apply(&o)
	created, err := s.store.CreateOfficeHeld(ctx, o)
	if errors.Is(err, storage.ErrDuplicate) {
		created, err = s.store.GetOfficeHeld(ctx, key.ocdDivisionID, key.name)
	} else if err == nil {
		res.OfficesHeldCreated++
	}
	if err != nil {
		return model.OfficeHeld{}, false, fmt.Errorf("representatives: create office held: %w", err)
	}
	cache.putOfficeHeld(created)
	return created, true, nil
}

func (s *Service) upsertRepresentative(ctx context.Context, oh model.OfficeHeld, groomed model.Representative, opts GroomOptions, cache *ImportCache, res *GroomResult) (model.Representative, bool, error) {
	if groomed.RepresentativeName == "" {
		return model.Representative{}, false, nil
	}
	key := representativeKey{oh.WeVoteID, groomed.RepresentativeName}
	existing, found := cache.representative(key)
	if !found {
		var err error
		existing, err = s.store.GetRepresentative(ctx, key.officeHeldWeVoteID, key.name)
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, storage.ErrNotFound):
			return model.Representative{}, false, fmt.Errorf("representatives: get representative: %w", err)
		}
	}

	if found {
		if opts.Rules.UpdateRepresentativeEntries {
			changed := mergeRepresentative(&existing, groomed)
			if !slices.Contains(existing.YearsInOffice, opts.Year) {
				existing.YearsInOffice = model.AddYear(slices.Clone(existing.YearsInOffice), opts.Year)
				changed = true
			}
			if existing.StateCode == "" && oh.StateCode != "" {
				existing.StateCode = oh.StateCode
				changed = true
			}
			if changed {
				saved, err := s.store.UpdateRepresentative(ctx, existing)
				if err != nil {
					return model.Representative{}, false, fmt.Errorf("representatives: update representative %s: %w", existing.WeVoteID, err)
				}
				existing = saved
				res.RepresentativesUpdated++
			}
		}
		cache.putRepresentative(existing)
		return existing, true, nil
	}
	if !opts.Rules.CreateRepresentativeEntries {
		res.Status.Addf("%s: %s", StatusRepresentativeNotCreated, strings.ReplaceAll(groomed.RepresentativeName, " ", "_"))
		return model.Representative{}, false, nil
	}

	r := groomed
	r.OfficeHeldWeVoteID = oh.WeVoteID
	r.OfficeHeldName = oh.OfficeHeldName
	r.OcdDivisionID = oh.OcdDivisionID
	r.StateCode = oh.StateCode
	r.YearsInOffice = model.AddYear(nil, opts.Year)
	created, err := s.store.CreateRepresentative(ctx, r)
	if errors.Is(err, storage.ErrDuplicate) {
		created, err = s.store.GetRepresentative(ctx, key.officeHeldWeVoteID, key.name)
	} else if err == nil {
		res.RepresentativesCreated++
	}
	if err != nil {
		return model.Representative{}, false, fmt.Errorf("representatives: create representative: %w", err)
	}
	cache.putRepresentative(created)
	return created, true, nil
}
