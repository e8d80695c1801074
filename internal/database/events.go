package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"societyhub/internal/model"
)

const eventColumns = `id, title, description, event_date, start_minute, end_minute,
	location, max_attendees, registration_fee, created_by, is_active, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var description, location sql.NullString
	var eventDate string
	err := row.Scan(
		&e.ID, &e.Title, &description, &eventDate, &e.Start, &e.End,
		&location, &e.MaxAttendees, &e.RegistrationFee, &e.CreatedBy,
		&e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Description = description.String
	e.Location = location.String
	e.EventDate = parseDateKey(eventDate)
	return &e, nil
}

// GetEvent returns an event by id.
func (db *DB) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListEvents returns events on or after the given date, oldest first.
func (db *DB) ListEvents(ctx context.Context, from time.Time, activeOnly bool) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE event_date >= ?`
	args := []any{dateKey(from)}
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY event_date, start_minute`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// CreateEvent inserts an event.
func (db *DB) CreateEvent(ctx context.Context, e *model.Event) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO events (
			title, description, event_date, start_minute, end_minute, location,
			max_attendees, registration_fee, created_by, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, dateKey(e.EventDate), int(e.Start), int(e.End),
		e.Location, e.MaxAttendees, e.RegistrationFee, e.CreatedBy, e.IsActive, now, now,
	)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	e.CreatedAt = now
	e.UpdatedAt = now
	return err
}

// DeactivateEvent soft-deletes an event.
func (db *DB) DeactivateEvent(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE events SET is_active = 0, updated_at = ? WHERE id = ?`,
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
		return ErrNotFound
	}
	return nil
}

// CountRegistrations returns the number of registrations for an event.
func (db *DB) CountRegistrations(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE event_id = ?`, eventID,
	).Scan(&count)
	return count, err
}

// RegisterIfCapacityLeft inserts a registration unless the event is full.
// Count and insert share one immediate transaction, the same discipline as
// booking admission.
func (db *DB) RegisterIfCapacityLeft(ctx context.Context, eventID, userID int64, maxAttendees int) (*model.EventRegistration, error) {
	var reg *model.EventRegistration
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if maxAttendees > 0 {
			var count int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM event_registrations WHERE event_id = ?`, eventID,
			).Scan(&count); err != nil {
				return err
			}
			if count >= maxAttendees {
				return ErrCapacityFull
			}
		}

		now := time.Now()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO event_registrations (event_id, user_id, created_at)
			VALUES (?, ?, ?)`,
			eventID, userID, now,
		)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique") {
				return ErrDuplicate
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		reg = &model.EventRegistration{ID: id, EventID: eventID, UserID: userID, CreatedAt: now}
		return nil
	})
	return reg, err
}

// DeleteRegistration removes a user's registration for an event.
func (db *DB) DeleteRegistration(ctx context.Context, eventID, userID int64) error {
	res, err := db.ExecContext(ctx,
		`DELETE FROM event_registrations WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRegistrationsByUser returns a user's registrations, newest first.
func (db *DB) ListRegistrationsByUser(ctx context.Context, userID int64) ([]model.EventRegistration, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, event_id, user_id, created_at FROM event_registrations
		WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []model.EventRegistration
	for rows.Next() {
		var r model.EventRegistration
		if err := rows.Scan(&r.ID, &r.EventID, &r.UserID, &r.CreatedAt); err != nil {
			return nil, err
		}
		regs = append(regs, r)
	}
	return regs, rows.Err()
}
