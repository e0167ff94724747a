package storage

import (
	"context"
	"fmt"

	"github.com/wevote/wevoteserver/internal/model"
)

// nextWeVoteID increments the counter for abbrev and formats the id. Run it
// on the same querier as the insert that uses the id.
func (db *DB) nextWeVoteID(ctx context.Context, q querier, abbrev string) (string, error) {
	var n int64
	err := q.QueryRow(ctx,
		`INSERT INTO we_vote_id_counters (abbrev, last_value) VALUES ($1, 1)
		 ON CONFLICT (abbrev) DO UPDATE SET last_value = we_vote_id_counters.last_value + 1
		 RETURNING last_value`, abbrev,
	).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("storage: next we_vote_id for %s: %w", abbrev, err)
	}
	return model.FormatWeVoteID(db.sitePrefix, abbrev, n), nil
}
