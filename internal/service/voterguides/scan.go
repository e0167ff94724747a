package voterguides

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wevote/wevoteserver/internal/matching"
	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/storage"
)

// maxPageBytes caps how much of a fetched page is parsed.
const maxPageBytes = 5 << 20

// ScanResult is the outcome of ScanPossibility.
type ScanResult struct {
	Success bool
	Status  model.Status
	Added   []model.VoterGuidePossibilityPosition
}

// ScanPossibility fetches the possibility's page and adds a row for every
// candidate in the election-year window whose name appears in the page text
// and is not already listed.
func (s *Service) ScanPossibility(ctx context.Context, possibilityID int64) (ScanResult, error) {
	var res ScanResult
	poss, err := s.store.GetPossibilityByID(ctx, possibilityID)
	if errors.Is(err, storage.ErrNotFound) {
		res.Status.Add(StatusPossibilityNotFound)
		return res, nil
	}
	if err != nil {
		return ScanResult{}, fmt.Errorf("voterguides: scan: %w", err)
	}
	if poss.Type == model.PossibilityEndorsementsForCandidate {
		// Candidate pages list organizations, which have no per-state universe to scan for.
		res.Success = true
		res.Status.Addf("%s: %s", StatusScanSkipped, poss.Type)
		return res, nil
	}

	text, err := s.fetchPageText(ctx, poss.URL)
	if err != nil {
		s.logger.Warn("voter guide possibility fetch failed",
			"voter_guide_possibility_id", poss.ID, "url", poss.URL, "error", err)
		res.Status.Addf("%s: %v", StatusFetchFailed, err)
		return res, nil
	}
	page := " " + matching.NormalizeName(text) + " "

	rows, err := s.store.ListPossibilityPositions(ctx, poss.ID)
	if err != nil {
		return ScanResult{}, fmt.Errorf("voterguides: scan rows: %w", err)
	}
	listed := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.CandidateWeVoteID != "" {
			listed[r.CandidateWeVoteID] = true
		}
		if n := matching.NormalizeName(r.BallotItemName); n != "" {
			listed[n] = true
		}
	}

	universe, err := s.store.ListCandidatesForYears(ctx, poss.StateCode, electionYears(s.now(), poss.Type))
	if err != nil {
		return ScanResult{}, fmt.Errorf("voterguides: scan candidates: %w", err)
	}
	for _, c := range universe {
		if listed[c.WeVoteID] || !mentions(page, c.Names()) {
			continue
		}
		if listed[matching.NormalizeName(c.CandidateName)] {
			continue
		}
		pp, err := s.store.CreatePossibilityPosition(ctx, model.VoterGuidePossibilityPosition{
			VoterGuidePossibilityID: poss.ID,
			BallotItemName:          c.CandidateName,
			BallotItemStateCode:     c.StateCode,
			CandidateWeVoteID:       c.WeVoteID,
			CandidateTwitterHandle:  c.TwitterHandle,
			GoogleCivicElectionID:   c.GoogleCivicElectionID,
		})
		if err != nil {
			return ScanResult{}, fmt.Errorf("voterguides: scan add row: %w", err)
		}
		listed[c.WeVoteID] = true
		res.Added = append(res.Added, pp)
	}

	res.Success = true
	res.Status.Addf("%s: %d added", StatusScanComplete, len(res.Added))
	return res, nil
}

// mentions reports whether any normalized name appears as a whole phrase in
// page, which must be normalized and padded with spaces.
func mentions(page string, names []string) bool {
	for _, n := range names {
		if n = matching.NormalizeName(n); n != "" && strings.Contains(page, " "+n+" ") {
			return true
		}
	}
	return false
}

// fetchPageText GETs url and returns the visible text of the document body.
func (s *Service) fetchPageText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "WeVoteServer/1.0 (+https://wevote.us)")
	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	var b strings.Builder
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		b.WriteString(sel.Text())
		b.WriteByte(' ')
	})
	if b.Len() == 0 {
		b.WriteString(doc.Text())
	}
	return b.String(), nil
}
