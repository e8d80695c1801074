package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"societyhub/internal/model"
)

const pollColumns = `id, created_by, title, description, options, is_multiple_choice,
	end_date, is_active, created_at, updated_at`

func scanPoll(row interface{ Scan(...any) error }) (*model.Poll, error) {
	var p model.Poll
	var description sql.NullString
	var options string
	var endDate sql.NullString
	err := row.Scan(
		&p.ID, &p.CreatedBy, &p.Title, &description, &options, &p.MultipleChoice,
		&endDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	if err := json.Unmarshal([]byte(options), &p.Options); err != nil {
		return nil, err
	}
	if endDate.Valid {
		d := parseDateKey(endDate.String)
		p.EndDate = &d
	}
	return &p, nil
}

// GetPoll returns a poll by id.
func (db *DB) GetPoll(ctx context.Context, id int64) (*model.Poll, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+pollColumns+` FROM polls WHERE id = ?`, id)
	p, err := scanPoll(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPolls returns polls newest first.
func (db *DB) ListPolls(ctx context.Context, activeOnly bool) ([]model.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id DESC`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var polls []model.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, *p)
	}
	return polls, rows.Err()
}

// CreatePoll inserts a poll with its options serialized as JSON.
func (db *DB) CreatePoll(ctx context.Context, p *model.Poll) error {
	options, err := json.Marshal(p.Options)
	if err != nil {
		return err
	}
	now := time.Now()
	var endDate any
	if p.EndDate != nil {
		endDate = dateKey(*p.EndDate)
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO polls (
			created_by, title, description, options, is_multiple_choice,
			end_date, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		p.CreatedBy, p.Title, p.Description, string(options), p.MultipleChoice,
		endDate, now, now,
	)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	p.IsActive = true
	p.CreatedAt = now
	p.UpdatedAt = now
	return err
}

// ClosePoll deactivates a poll so no further votes are accepted.
func (db *DB) ClosePoll(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE polls SET is_active = 0, updated_at = ? WHERE id = ? AND is_active = 1`,
		time.Now(), id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, gerr := db.GetPoll(ctx, id); gerr != nil {
			return gerr
		}
		return ErrVersionConflict
	}
	return nil
}

// CastVote records one option choice for a user. For single-choice polls the
// prior-vote check and the insert share one immediate transaction, so two
// concurrent votes for different options cannot both land. The unique index
// catches exact repeats either way.
func (db *DB) CastVote(ctx context.Context, v *model.PollVote, singleChoice bool) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if singleChoice {
			var count int
			err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM poll_votes WHERE poll_id = ? AND user_id = ?`,
				v.PollID, v.UserID,
			).Scan(&count)
			if err != nil {
				return err
			}
			if count > 0 {
				return ErrDuplicate
			}
		}

		now := time.Now()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO poll_votes (poll_id, user_id, option_id, created_at)
			VALUES (?, ?, ?, ?)`,
			v.PollID, v.UserID, v.OptionID, now,
		)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique") {
				return ErrDuplicate
			}
			return err
		}
		v.ID, err = res.LastInsertId()
		v.CreatedAt = now
		return err
	})
}

// PollResults tallies votes per option id.
func (db *DB) PollResults(ctx context.Context, pollID int64) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT option_id, COUNT(*) FROM poll_votes
		WHERE poll_id = ? GROUP BY option_id`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make(map[string]int)
	for rows.Next() {
		var option string
		var count int
		if err := rows.Scan(&option, &count); err != nil {
			return nil, err
		}
		results[option] = count
	}
	return results, rows.Err()
}
