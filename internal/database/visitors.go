package database

import (
	"context"
	"database/sql"
	"time"

	"societyhub/internal/model"
)

const visitorColumns = `id, host_id, visitor_name, visitor_phone, purpose, expected_date,
	status, gate_pass, approved_by, approved_at, checked_in_by, checked_in_at,
	checked_out_at, created_at, updated_at`

func scanVisitor(row interface{ Scan(...any) error }) (*model.Visitor, error) {
	var v model.Visitor
	var phone, purpose sql.NullString
	var expectedDate string
	var approvedBy, checkedInBy sql.NullInt64
	var approvedAt, checkedInAt, checkedOutAt sql.NullTime
	err := row.Scan(
		&v.ID, &v.HostID, &v.VisitorName, &phone, &purpose, &expectedDate,
		&v.Status, &v.GatePass, &approvedBy, &approvedAt, &checkedInBy,
		&checkedInAt, &checkedOutAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.VisitorPhone = phone.String
	v.Purpose = purpose.String
	v.ExpectedDate = parseDateKey(expectedDate)
	if approvedBy.Valid {
		v.ApprovedBy = &approvedBy.Int64
	}
	if approvedAt.Valid {
		v.ApprovedAt = &approvedAt.Time
	}
	if checkedInBy.Valid {
		v.CheckedInBy = &checkedInBy.Int64
	}
	if checkedInAt.Valid {
		v.CheckedInAt = &checkedInAt.Time
	}
	if checkedOutAt.Valid {
		v.CheckedOutAt = &checkedOutAt.Time
	}
	return &v, nil
}

// GetVisitor returns a visitor by id.
func (db *DB) GetVisitor(ctx context.Context, id int64) (*model.Visitor, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+visitorColumns+` FROM visitors WHERE id = ?`, id)
	v, err := scanVisitor(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetVisitorByGatePass looks up a visitor by gate pass, for the security desk.
func (db *DB) GetVisitorByGatePass(ctx context.Context, gatePass string) (*model.Visitor, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+visitorColumns+` FROM visitors WHERE gate_pass = ?`, gatePass)
	v, err := scanVisitor(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListVisitors returns visitors for a host (hostID > 0) or a date (non-zero).
func (db *DB) ListVisitors(ctx context.Context, hostID int64, date time.Time) ([]model.Visitor, error) {
	query := `SELECT ` + visitorColumns + ` FROM visitors WHERE 1=1`
	var args []any
	if hostID > 0 {
		query += ` AND host_id = ?`
		args = append(args, hostID)
	}
	if !date.IsZero() {
		query += ` AND expected_date = ?`
		args = append(args, dateKey(date))
	}
	query += ` ORDER BY expected_date DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visitors []model.Visitor
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, err
		}
		visitors = append(visitors, *v)
	}
	return visitors, rows.Err()
}

// CreateVisitor inserts a pending visitor.
func (db *DB) CreateVisitor(ctx context.Context, v *model.Visitor) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO visitors (
			host_id, visitor_name, visitor_phone, purpose, expected_date,
			status, gate_pass, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.HostID, v.VisitorName, v.VisitorPhone, v.Purpose, dateKey(v.ExpectedDate),
		string(model.VisitorPending), v.GatePass, now, now,
	)
	if err != nil {
		return err
	}
	v.ID, err = res.LastInsertId()
	v.Status = model.VisitorPending
	v.CreatedAt = now
	v.UpdatedAt = now
	return err
}

// TransitionVisitor updates status from an expected previous status; the
// WHERE guard makes concurrent double transitions lose cleanly.
func (db *DB) TransitionVisitor(ctx context.Context, id int64, from, to model.VisitorStatus, actorID int64) error {
	now := time.Now()
	query := `UPDATE visitors SET status = ?, updated_at = ?`
	args := []any{string(to), now}

	switch to {
	case model.VisitorApproved, model.VisitorRejected:
		query += `, approved_by = ?, approved_at = ?`
		args = append(args, actorID, now)
	case model.VisitorCheckedIn:
		query += `, checked_in_by = ?, checked_in_at = ?`
		args = append(args, actorID, now)
	case model.VisitorCheckedOut:
		query += `, checked_out_at = ?`
		args = append(args, now)
	}

	query += ` WHERE id = ? AND status = ?`
	args = append(args, id, string(from))

	res, err := db.ExecContext(ctx, query, args...)
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
