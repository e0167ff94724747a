package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wevote/wevoteserver/internal/model"
)

const batchProcessColumns = `id, kind_of_process, state_code, date_added, date_started, date_checked_out,
	date_completed, batch_process_paused, completion_summary, polling_locations_retrieved`

func scanBatchProcess(row pgx.Row) (model.BatchProcess, error) {
	var b model.BatchProcess
	err := row.Scan(&b.ID, &b.Kind, &b.StateCode, &b.DateAdded, &b.DateStarted, &b.DateCheckedOut,
		&b.DateCompleted, &b.Paused, &b.CompletionSummary, &b.PollingLocationsRetrieved)
	return b, err
}

// CreateBatchProcess queues a new unit of work.
func (db *DB) CreateBatchProcess(ctx context.Context, kind model.BatchProcessKind, stateCode string) (model.BatchProcess, error) {
	b, err := scanBatchProcess(db.pool.QueryRow(ctx,
		`INSERT INTO batch_process (kind_of_process, state_code) VALUES ($1, upper($2))
		 RETURNING `+batchProcessColumns, string(kind), stateCode))
	if err != nil {
		return model.BatchProcess{}, fmt.Errorf("storage: create batch process: %w", err)
	}
	return b, nil
}

// GetBatchProcess looks a batch process up by id.
func (db *DB) GetBatchProcess(ctx context.Context, id int64) (model.BatchProcess, error) {
	b, err := scanBatchProcess(db.pool.QueryRow(ctx,
		`SELECT `+batchProcessColumns+` FROM batch_process WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.BatchProcess{}, ErrNotFound
		}
		return model.BatchProcess{}, fmt.Errorf("storage: get batch process: %w", err)
	}
	return b, nil
}

// ClaimBatchProcess checks out the oldest open, unpaused process of kind whose
// lease has lapsed. Concurrent claimers skip each other's locked rows.
// Returns ErrNotFound when nothing is claimable.
func (db *DB) ClaimBatchProcess(ctx context.Context, kind model.BatchProcessKind, lease time.Duration) (model.BatchProcess, error) {
	now := time.Now().UTC()
	var b model.BatchProcess
	err := db.inTx(ctx, "claim batch process", func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx,
			`SELECT id FROM batch_process
			 WHERE kind_of_process = $1
			   AND date_completed IS NULL
			   AND NOT batch_process_paused
			   AND (date_checked_out IS NULL OR date_checked_out < $2)
			 ORDER BY date_added, id
			 LIMIT 1
			 FOR UPDATE SKIP LOCKED`,
			string(kind), now.Add(-lease),
		).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("storage: select batch process: %w", err)
		}
		b, err = scanBatchProcess(tx.QueryRow(ctx,
			`UPDATE batch_process SET date_checked_out = $2, date_started = COALESCE(date_started, $2)
			 WHERE id = $1 RETURNING `+batchProcessColumns, id, now))
		if err != nil {
			return fmt.Errorf("storage: check out batch process: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.BatchProcess{}, err
	}
	return b, nil
}

// ReleaseBatchProcess clears the checkout so the next poll can claim the
// process again, adding retrieved to its running total.
func (db *DB) ReleaseBatchProcess(ctx context.Context, id int64, retrieved int) error {
	if _, err := db.pool.Exec(ctx,
		`UPDATE batch_process SET date_checked_out = NULL,
		 polling_locations_retrieved = polling_locations_retrieved + $2
		 WHERE id = $1`, id, retrieved,
	); err != nil {
		return fmt.Errorf("storage: release batch process: %w", err)
	}
	return nil
}

// CompleteBatchProcess marks the process done.
func (db *DB) CompleteBatchProcess(ctx context.Context, id int64, retrieved int, summary string) error {
	if _, err := db.pool.Exec(ctx,
		`UPDATE batch_process SET date_completed = now(), date_checked_out = NULL,
		 polling_locations_retrieved = polling_locations_retrieved + $2, completion_summary = $3
		 WHERE id = $1`, id, retrieved, summary,
	); err != nil {
		return fmt.Errorf("storage: complete batch process: %w", err)
	}
	return nil
}
