package pollinglocations

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wevote/wevoteserver/internal/model"
)

// skippedCity marks VIP placeholder entries that are not real places.
const skippedCity = "A BALLOT FOR EACH ELECTION"

// importConcurrency bounds how many files are parsed at once.
const importConcurrency = 4

type vipAddress struct {
	LocationName string `xml:"location_name"`
	Line1        string `xml:"line1"`
	Line2        string `xml:"line2"`
	City         string `xml:"city"`
	State        string `xml:"state"`
	Zip          string `xml:"zip"`
}

type vipPollingLocation struct {
	ID           string      `xml:"id,attr"`
	Address      *vipAddress `xml:"address"`
	PollingHours string      `xml:"polling_hours"`
	Directions   string      `xml:"directions"`
}

// ParseResult holds the usable entries of one VIP feed.
type ParseResult struct {
	Locations []model.PollingLocation
	Skipped   int
}

// RetrievePollingLocationsDataFromXML decodes the <polling_location> elements
// of a VIP feed. Entries without an address, with an empty city, or with the
// "A BALLOT FOR EACH ELECTION" placeholder city are skipped.
func RetrievePollingLocationsDataFromXML(r io.Reader) (ParseResult, error) {
	var res ParseResult
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return ParseResult{}, fmt.Errorf("pollinglocations: read xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "polling_location" {
			continue
		}
		var v vipPollingLocation
		if err := dec.DecodeElement(&v, &start); err != nil {
			return ParseResult{}, fmt.Errorf("pollinglocations: decode polling_location: %w", err)
		}
		loc, ok := v.toModel()
		if !ok {
			res.Skipped++
			continue
		}
		res.Locations = append(res.Locations, loc)
	}
}

func (v vipPollingLocation) toModel() (model.PollingLocation, bool) {
	if v.Address == nil || strings.TrimSpace(v.ID) == "" {
		return model.PollingLocation{}, false
	}
	city := strings.TrimSpace(v.Address.City)
	if city == "" || strings.EqualFold(city, skippedCity) {
		return model.PollingLocation{}, false
	}
	return model.PollingLocation{
		PollingLocationID: strings.TrimSpace(v.ID),
		LocationName:      strings.TrimSpace(v.Address.LocationName),
		PollingHoursText:  strings.TrimSpace(v.PollingHours),
		DirectionsText:    strings.TrimSpace(v.Directions),
		Line1:             strings.TrimSpace(v.Address.Line1),
		Line2:             strings.TrimSpace(v.Address.Line2),
		City:              city,
		State:             strings.ToUpper(strings.TrimSpace(v.Address.State)),
		ZipLong:           strings.TrimSpace(v.Address.Zip),
	}, true
}

// ImportResult counts what an import did.
type ImportResult struct {
	Success bool
	Status  model.Status
	Files   int
	Saved   int
	Updated int
	Skipped int
	Failed  int
}

func (r *ImportResult) add(o ImportResult) {
	r.Saved += o.Saved
	r.Updated += o.Updated
	r.Skipped += o.Skipped
	r.Failed += o.Failed
	r.Status.Merge(o.Status)
}

// ImportFromGlob parses every file matching pattern in parallel and upserts
// each entry. A file that cannot be opened or parsed is counted and logged;
// the other files still import. Store failures and cancellation abort.
func (s *Service) ImportFromGlob(ctx context.Context, pattern string) (ImportResult, error) {
	var res ImportResult
	files, err := filepath.Glob(pattern)
	if err != nil {
		return ImportResult{}, fmt.Errorf("pollinglocations: glob %q: %w", pattern, err)
	}
	if len(files) == 0 {
		res.Status.Add(StatusNoFilesMatched)
		return res, nil
	}
	res.Files = len(files)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importConcurrency)
	for _, path := range files {
		g.Go(func() error {
			fr, err := s.importFile(gctx, path)
			if err != nil {
				return err
			}
			mu.Lock()
			res.add(fr)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ImportResult{}, err
	}

	s.importedRows.Add(ctx, int64(res.Saved+res.Updated))
	s.logger.Info("polling location import finished",
		"pattern", pattern, "files", res.Files,
		"saved", res.Saved, "updated", res.Updated, "skipped", res.Skipped, "failed", res.Failed)
	res.Success = true
	res.Status.Addf("%s: %d saved, %d updated", StatusImportComplete, res.Saved, res.Updated)
	return res, nil
}

func (s *Service) importFile(ctx context.Context, path string) (ImportResult, error) {
	var res ImportResult
	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("open polling location file failed", "path", path, "error", err)
		res.Failed++
		res.Status.Addf("%s: %s", StatusImportFileFailed, filepath.Base(path))
		return res, nil
	}
	defer func() { _ = f.Close() }()

	parsed, err := RetrievePollingLocationsDataFromXML(f)
	if err != nil {
		s.logger.Warn("parse polling location file failed", "path", path, "error", err)
		res.Failed++
		res.Status.Addf("%s: %s", StatusImportFileFailed, filepath.Base(path))
		return res, nil
	}
	res.Skipped = parsed.Skipped

	for _, loc := range parsed.Locations {
		saved, err := s.UpdateOrCreatePollingLocation(ctx, loc)
		if err != nil {
			return ImportResult{}, fmt.Errorf("pollinglocations: import %s: %w", filepath.Base(path), err)
		}
		switch {
		case !saved.Success:
			res.Skipped++
		case saved.NewPollingLocationCreated:
			res.Saved++
		case saved.Updated:
			res.Updated++
		}
	}
	return res, nil
}
