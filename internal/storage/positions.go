package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wevote/wevoteserver/internal/model"
)

var positionTables = map[model.Visibility]string{
	model.VisibilityPublic:      "position_entered",
	model.VisibilityFriendsOnly: "position_for_friends",
}

func positionTable(vis model.Visibility) (string, error) {
	t, ok := positionTables[vis]
	if !ok {
		return "", fmt.Errorf("storage: unknown position visibility %q", vis)
	}
	return t, nil
}

const positionColumns = `id, we_vote_id, organization_we_vote_id, public_figure_we_vote_id, voter_we_vote_id, voter_id,
	contest_office_we_vote_id, candidate_we_vote_id, contest_measure_we_vote_id, google_civic_election_id,
	vote_smart_time_span, stance, statement_text, statement_html, more_info_url, vote_smart_rating,
	ballot_item_display_name, speaker_display_name, state_code, date_entered, date_last_changed`

func scanPosition(row pgx.Row, vis model.Visibility) (model.Position, error) {
	p := model.Position{Visibility: vis}
	err := row.Scan(
		&p.ID, &p.WeVoteID, &p.OrganizationWeVoteID, &p.PublicFigureWeVoteID, &p.VoterWeVoteID, &p.VoterID,
		&p.ContestOfficeWeVoteID, &p.CandidateWeVoteID, &p.ContestMeasureWeVoteID, &p.GoogleCivicElectionID,
		&p.VoteSmartTimeSpan, &p.Stance, &p.StatementText, &p.StatementHTML, &p.MoreInfoURL, &p.VoteSmartRating,
		&p.BallotItemDisplayName, &p.SpeakerDisplayName, &p.StateCode, &p.DateEntered, &p.DateLastChanged,
	)
	return p, err
}

// GetPositionByWeVoteID looks a position up in the table for vis.
func (db *DB) GetPositionByWeVoteID(ctx context.Context, vis model.Visibility, weVoteID string) (model.Position, error) {
	table, err := positionTable(vis)
	if err != nil {
		return model.Position{}, err
	}
	p, err := scanPosition(db.pool.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM `+table+` WHERE we_vote_id = $1`, weVoteID), vis)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Position{}, ErrNotFound
		}
		return model.Position{}, fmt.Errorf("storage: get position: %w", err)
	}
	return p, nil
}

// positionWhere builds the WHERE clause for m. Zero-valued fields do not filter.
func positionWhere(m model.PositionMatch) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if !m.Speaker.IsZero() {
		switch m.Speaker.Kind {
		case model.SpeakerOrganization:
			add("organization_we_vote_id", m.Speaker.WeVoteID)
		case model.SpeakerPublicFigure:
			add("public_figure_we_vote_id", m.Speaker.WeVoteID)
		case model.SpeakerVoter:
			add("voter_we_vote_id", m.Speaker.WeVoteID)
		}
	}
	if !m.BallotItem.IsZero() {
		switch m.BallotItem.Kind {
		case model.BallotItemOffice:
			add("contest_office_we_vote_id", m.BallotItem.WeVoteID)
		case model.BallotItemCandidate:
			add("candidate_we_vote_id", m.BallotItem.WeVoteID)
		case model.BallotItemMeasure:
			add("contest_measure_we_vote_id", m.BallotItem.WeVoteID)
		}
	}
	if m.GoogleCivicElectionID > 0 {
		add("google_civic_election_id", m.GoogleCivicElectionID)
	}
	if m.VoteSmartTimeSpan != "" {
		add("vote_smart_time_span", m.VoteSmartTimeSpan)
	}
	if m.StateCode != "" {
		add("upper(state_code)", strings.ToUpper(m.StateCode))
	}
	if len(conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conds, " AND "), args
}

// FindPositions returns up to limit positions in the table for vis matching m,
// oldest first. A limit of zero or less means no limit.
func (db *DB) FindPositions(ctx context.Context, vis model.Visibility, m model.PositionMatch, limit int) ([]model.Position, error) {
	return db.findPositions(ctx, db.pool, vis, m, limit)
}

func (db *DB) findPositions(ctx context.Context, q querier, vis model.Visibility, m model.PositionMatch, limit int) ([]model.Position, error) {
	table, err := positionTable(vis)
	if err != nil {
		return nil, err
	}
	where, args := positionWhere(m)
	sql := `SELECT ` + positionColumns + ` FROM ` + table + ` WHERE ` + where + ` ORDER BY id`
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: find positions: %w", err)
	}
	defer rows.Close()

	var out []model.Position
	for rows.Next() {
		p, err := scanPosition(rows, vis)
		if err != nil {
			return nil, fmt.Errorf("storage: scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountPublicPositions counts an organization's public positions in one election.
func (db *DB) CountPublicPositions(ctx context.Context, organizationWeVoteID string, googleCivicElectionID int64) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx,
		`SELECT count(*) FROM position_entered
		 WHERE organization_we_vote_id = $1 AND google_civic_election_id = $2`,
		organizationWeVoteID, googleCivicElectionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: count public positions: %w", err)
	}
	return n, nil
}

// CreatePosition inserts p into the table for p.Visibility, minting a
// we_vote_id when p has none.
func (db *DB) CreatePosition(ctx context.Context, p model.Position) (model.Position, error) {
	return db.insertPosition(ctx, db.pool, p)
}

func (db *DB) insertPosition(ctx context.Context, q querier, p model.Position) (model.Position, error) {
	table, err := positionTable(p.Visibility)
	if err != nil {
		return model.Position{}, err
	}
	if p.WeVoteID == "" {
		if p.WeVoteID, err = db.nextWeVoteID(ctx, q, model.AbbrevPosition); err != nil {
			return model.Position{}, err
		}
	}
	if p.Stance == "" {
		p.Stance = model.StanceNoStance
	}
	now := time.Now().UTC()
	if p.DateEntered.IsZero() {
		p.DateEntered = now
	}
	p.DateLastChanged = now

	err = q.QueryRow(ctx,
		`INSERT INTO `+table+` (we_vote_id, organization_we_vote_id, public_figure_we_vote_id, voter_we_vote_id, voter_id,
		 contest_office_we_vote_id, candidate_we_vote_id, contest_measure_we_vote_id, google_civic_election_id,
		 vote_smart_time_span, stance, statement_text, statement_html, more_info_url, vote_smart_rating,
		 ballot_item_display_name, speaker_display_name, state_code, date_entered, date_last_changed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		 RETURNING id`,
		p.WeVoteID, p.OrganizationWeVoteID, p.PublicFigureWeVoteID, p.VoterWeVoteID, p.VoterID,
		p.ContestOfficeWeVoteID, p.CandidateWeVoteID, p.ContestMeasureWeVoteID, p.GoogleCivicElectionID,
		p.VoteSmartTimeSpan, string(p.Stance), p.StatementText, p.StatementHTML, p.MoreInfoURL, p.VoteSmartRating,
		p.BallotItemDisplayName, p.SpeakerDisplayName, p.StateCode, p.DateEntered, p.DateLastChanged,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Position{}, fmt.Errorf("storage: create position %s: %w", p.WeVoteID, ErrDuplicate)
		}
		return model.Position{}, fmt.Errorf("storage: create position: %w", err)
	}
	return p, nil
}

// UpdatePosition rewrites every mutable column of p in its own table.
func (db *DB) UpdatePosition(ctx context.Context, p model.Position) (model.Position, error) {
	return db.updatePosition(ctx, db.pool, p)
}

func (db *DB) updatePosition(ctx context.Context, q querier, p model.Position) (model.Position, error) {
	table, err := positionTable(p.Visibility)
	if err != nil {
		return model.Position{}, err
	}
	p.DateLastChanged = time.Now().UTC()
	tag, err := q.Exec(ctx,
		`UPDATE `+table+` SET organization_we_vote_id = $2, public_figure_we_vote_id = $3, voter_we_vote_id = $4,
		 voter_id = $5, contest_office_we_vote_id = $6, candidate_we_vote_id = $7, contest_measure_we_vote_id = $8,
		 google_civic_election_id = $9, vote_smart_time_span = $10, stance = $11, statement_text = $12,
		 statement_html = $13, more_info_url = $14, vote_smart_rating = $15, ballot_item_display_name = $16,
		 speaker_display_name = $17, state_code = $18, date_last_changed = $19
		 WHERE we_vote_id = $1`,
		p.WeVoteID, p.OrganizationWeVoteID, p.PublicFigureWeVoteID, p.VoterWeVoteID,
		p.VoterID, p.ContestOfficeWeVoteID, p.CandidateWeVoteID, p.ContestMeasureWeVoteID,
		p.GoogleCivicElectionID, p.VoteSmartTimeSpan, string(p.Stance), p.StatementText,
		p.StatementHTML, p.MoreInfoURL, p.VoteSmartRating, p.BallotItemDisplayName,
		p.SpeakerDisplayName, p.StateCode, p.DateLastChanged,
	)
	if err != nil {
		return model.Position{}, fmt.Errorf("storage: update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Position{}, ErrNotFound
	}
	return p, nil
}

func deletePosition(ctx context.Context, q querier, vis model.Visibility, weVoteID string) error {
	table, err := positionTable(vis)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `DELETE FROM `+table+` WHERE we_vote_id = $1`, weVoteID)
	if err != nil {
		return fmt.Errorf("storage: delete position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MovePosition copies p into the table for to, keeping its we_vote_id, and
// deletes it from its current table in one transaction.
func (db *DB) MovePosition(ctx context.Context, p model.Position, to model.Visibility) (model.Position, error) {
	if p.Visibility == to {
		return p, nil
	}
	var moved model.Position
	err := db.inTx(ctx, "move position", func(tx pgx.Tx) error {
		if err := deletePosition(ctx, tx, p.Visibility, p.WeVoteID); err != nil {
			return err
		}
		target := p
		target.ID = 0
		target.Visibility = to
		var err error
		moved, err = db.insertPosition(ctx, tx, target)
		return err
	})
	if err != nil {
		return model.Position{}, err
	}
	return moved, nil
}

// MergePositions saves keeper and deletes duplicate in one transaction.
// Callers fold the duplicate's fields into keeper first.
func (db *DB) MergePositions(ctx context.Context, keeper, duplicate model.Position) (model.Position, error) {
	var saved model.Position
	err := db.inTx(ctx, "merge positions", func(tx pgx.Tx) error {
		if err := deletePosition(ctx, tx, duplicate.Visibility, duplicate.WeVoteID); err != nil {
			return err
		}
		var err error
		saved, err = db.updatePosition(ctx, tx, keeper)
		return err
	})
	if err != nil {
		return model.Position{}, err
	}
	return saved, nil
}
