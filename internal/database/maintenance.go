package database

import (
	"context"
	"database/sql"
	"time"

	"societyhub/internal/model"
)

const maintenanceColumns = `id, user_id, title, description, category, priority, status,
	assigned_to, estimated_cost, actual_cost, scheduled_date, completed_at, created_at, updated_at`

func scanMaintenance(row interface{ Scan(...any) error }) (*model.MaintenanceRequest, error) {
	var m model.MaintenanceRequest
	var scheduled sql.NullString
	err := row.Scan(
		&m.ID, &m.UserID, &m.Title, &m.Description, &m.Category, &m.Priority, &m.Status,
		&m.AssignedTo, &m.EstimatedCost, &m.ActualCost, &scheduled, &m.CompletedAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if scheduled.Valid {
		d := parseDateKey(scheduled.String)
		m.ScheduledDate = &d
	}
	return &m, nil
}

// GetMaintenanceRequest returns a request by id.
func (db *DB) GetMaintenanceRequest(ctx context.Context, id int64) (*model.MaintenanceRequest, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+maintenanceColumns+` FROM maintenance_requests WHERE id = ?`, id)
	m, err := scanMaintenance(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// MaintenanceFilter narrows ListMaintenanceRequests.
type MaintenanceFilter struct {
	UserID int64
	Status model.MaintenanceStatus
}

// ListMaintenanceRequests returns requests newest first.
func (db *DB) ListMaintenanceRequests(ctx context.Context, f MaintenanceFilter) ([]model.MaintenanceRequest, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_requests WHERE 1=1`
	var args []any
	if f.UserID > 0 {
		query += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MaintenanceRequest
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// CreateMaintenanceRequest inserts a new request in pending status.
func (db *DB) CreateMaintenanceRequest(ctx context.Context, m *model.MaintenanceRequest) error {
	now := time.Now()
	var scheduled any
	if m.ScheduledDate != nil {
		scheduled = dateKey(*m.ScheduledDate)
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO maintenance_requests (
			user_id, title, description, category, priority, status,
			estimated_cost, scheduled_date, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, 'pending', ?, ?, ?, ?)`,
		m.UserID, m.Title, m.Description, m.Category, string(m.Priority),
		m.EstimatedCost, scheduled, now, now,
	)
	if err != nil {
		return err
	}
	m.ID, err = res.LastInsertId()
	m.Status = model.MaintenancePending
	m.CreatedAt = now
	m.UpdatedAt = now
	return err
}

// MaintenanceUpdate carries the mutable fields of a status transition.
type MaintenanceUpdate struct {
	Status        model.MaintenanceStatus
	AssignedTo    *int64
	EstimatedCost *int64
	ActualCost    *int64
	ScheduledDate *time.Time
}

// TransitionMaintenance applies a status-guarded update. The WHERE clause
// pins the current status so concurrent staff actions cannot double-apply.
func (db *DB) TransitionMaintenance(ctx context.Context, id int64, from model.MaintenanceStatus, u MaintenanceUpdate) error {
	now := time.Now()
	query := `UPDATE maintenance_requests SET status = ?, updated_at = ?`
	args := []any{string(u.Status), now}

	if u.AssignedTo != nil {
		query += `, assigned_to = ?`
		args = append(args, *u.AssignedTo)
	}
	if u.EstimatedCost != nil {
		query += `, estimated_cost = ?`
		args = append(args, *u.EstimatedCost)
	}
	if u.ActualCost != nil {
		query += `, actual_cost = ?`
		args = append(args, *u.ActualCost)
	}
	if u.ScheduledDate != nil {
		query += `, scheduled_date = ?`
		args = append(args, dateKey(*u.ScheduledDate))
	}
	if u.Status == model.MaintenanceCompleted {
		query += `, completed_at = ?`
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
		if _, gerr := db.GetMaintenanceRequest(ctx, id); gerr != nil {
			return gerr
		}
		return ErrVersionConflict
	}
	return nil
}
