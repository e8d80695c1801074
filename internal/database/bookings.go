package database

import (
	"context"
	"database/sql"
	"time"

	"societyhub/internal/model"
)

// BookingFilter narrows ListBookings results.
type BookingFilter struct {
	FacilityID  int64
	RequesterID int64
	Status      model.BookingStatus
	DateFrom    time.Time
	DateTo      time.Time
	Limit       int
	Offset      int
}

const bookingColumns = `id, facility_id, requester_id, date, start_minute, end_minute,
	purpose, status, total_amount, decided_by, decided_at, created_at, updated_at, version`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var date string
	var purpose sql.NullString
	var decidedBy sql.NullInt64
	var decidedAt sql.NullTime
	err := row.Scan(
		&b.ID, &b.FacilityID, &b.RequesterID, &date, &b.Start, &b.End,
		&purpose, &b.Status, &b.TotalAmount, &decidedBy, &decidedAt,
		&b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.Date = parseDateKey(date)
	b.Purpose = purpose.String
	if decidedBy.Valid {
		b.DecidedBy = &decidedBy.Int64
	}
	if decidedAt.Valid {
		b.DecidedAt = &decidedAt.Time
	}
	return &b, nil
}

// GetBooking returns a booking by id.
func (db *DB) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListDayBookings returns bookings for a facility and date, restricted to the
// given statuses (all statuses when empty), ordered by start time.
func (db *DB) ListDayBookings(ctx context.Context, facilityID int64, date time.Time, statuses ...model.BookingStatus) ([]model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE facility_id = ? AND date = ?`
	args := []any{facilityID, dateKey(date)}
	if len(statuses) > 0 {
		query += ` AND status IN (?` + repeatPlaceholder(len(statuses)-1) + `)`
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	query += ` ORDER BY start_minute`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// ListBookings returns bookings matching the filter, newest first.
func (db *DB) ListBookings(ctx context.Context, filter BookingFilter) ([]model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	var args []any
	if filter.FacilityID > 0 {
		query += ` AND facility_id = ?`
		args = append(args, filter.FacilityID)
	}
	if filter.RequesterID > 0 {
		query += ` AND requester_id = ?`
		args = append(args, filter.RequesterID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.DateFrom.IsZero() {
		query += ` AND date >= ?`
		args = append(args, dateKey(filter.DateFrom))
	}
	if !filter.DateTo.IsZero() {
		query += ` AND date <= ?`
		args = append(args, dateKey(filter.DateTo))
	}
	query += ` ORDER BY date DESC, start_minute DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// CreateBookingIfFree inserts a pending booking unless its interval overlaps a
// pending or approved booking on the same facility and date. The overlap check
// and the insert share one immediate transaction, so two concurrent requests
// for the same slot cannot both pass the check.
func (db *DB) CreateBookingIfFree(ctx context.Context, b *model.Booking) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM bookings
			WHERE facility_id = ? AND date = ?
			AND status IN ('pending', 'approved')
			AND start_minute < ? AND end_minute > ?`,
			b.FacilityID, dateKey(b.Date), int(b.End), int(b.Start),
		).Scan(&count)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrSlotTaken
		}

		now := time.Now()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO bookings (
				facility_id, requester_id, date, start_minute, end_minute,
				purpose, status, total_amount, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			b.FacilityID, b.RequesterID, dateKey(b.Date), int(b.Start), int(b.End),
			b.Purpose, string(model.BookingPending), b.TotalAmount, now, now,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		b.ID = id
		b.Status = model.BookingPending
		b.CreatedAt = now
		b.UpdatedAt = now
		b.Version = 1
		return nil
	})
}

// ApproveBookingIfFree moves a pending booking to approved unless another
// approved booking has taken an overlapping interval in the meantime. On
// ErrSlotTaken the booking is left pending for manual resolution.
func (db *DB) ApproveBookingIfFree(ctx context.Context, id, version, deciderID int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
		b, err := scanBooking(row)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if b.Status != model.BookingPending || b.Version != version {
			return ErrVersionConflict
		}

		var count int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM bookings
			WHERE facility_id = ? AND date = ? AND id != ?
			AND status = 'approved'
			AND start_minute < ? AND end_minute > ?`,
			b.FacilityID, dateKey(b.Date), id, int(b.End), int(b.Start),
		).Scan(&count)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrSlotTaken
		}

		now := time.Now()
		res, err := tx.ExecContext(ctx, `
			UPDATE bookings
			SET status = 'approved', decided_by = ?, decided_at = ?, updated_at = ?, version = version + 1
			WHERE id = ? AND version = ? AND status = 'pending'`,
			deciderID, now, now, id, version,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrVersionConflict
		}
		return nil
	})
}

// RejectBooking moves a pending booking to rejected, version-guarded.
func (db *DB) RejectBooking(ctx context.Context, id, version, deciderID int64) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'rejected', decided_by = ?, decided_at = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ? AND status = 'pending'`,
		deciderID, now, now, id, version,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// CancelBooking moves a booking to cancelled from the given status, version-guarded.
func (db *DB) CancelBooking(ctx context.Context, id, version int64, from model.BookingStatus) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'cancelled', updated_at = ?, version = version + 1
		WHERE id = ? AND version = ? AND status = ?`,
		now, id, version, string(from),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
