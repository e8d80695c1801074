package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"societyhub/internal/model"
)

const facilityColumns = `id, name, description, capacity, hourly_rate, amenities,
	open_time, close_time, min_duration, max_duration, is_active, created_at, updated_at`

func scanFacility(row interface{ Scan(...any) error }) (*model.Facility, error) {
	var f model.Facility
	var description, amenities sql.NullString
	err := row.Scan(
		&f.ID, &f.Name, &description, &f.Capacity, &f.HourlyRate, &amenities,
		&f.OpenTime, &f.CloseTime, &f.MinDuration, &f.MaxDuration,
		&f.IsActive, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Description = description.String
	if amenities.Valid && amenities.String != "" {
		_ = json.Unmarshal([]byte(amenities.String), &f.Amenities)
	}
	return &f, nil
}

// GetFacility returns a facility by id.
func (db *DB) GetFacility(ctx context.Context, id int64) (*model.Facility, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+facilityColumns+` FROM facilities WHERE id = ?`, id)
	f, err := scanFacility(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListFacilities returns facilities, optionally only active ones.
func (db *DB) ListFacilities(ctx context.Context, activeOnly bool) ([]model.Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facilities []model.Facility
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, err
		}
		facilities = append(facilities, *f)
	}
	return facilities, rows.Err()
}

// CreateFacility inserts a facility.
func (db *DB) CreateFacility(ctx context.Context, f *model.Facility) error {
	amenities, err := json.Marshal(f.Amenities)
	if err != nil {
		return err
	}
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO facilities (
			name, description, capacity, hourly_rate, amenities,
			open_time, close_time, min_duration, max_duration, is_active,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Name, f.Description, f.Capacity, f.HourlyRate, string(amenities),
		int(f.OpenTime), int(f.CloseTime), f.MinDuration, f.MaxDuration, f.IsActive,
		now, now,
	)
	if err != nil {
		return err
	}
	f.ID, err = res.LastInsertId()
	f.CreatedAt = now
	f.UpdatedAt = now
	return err
}

// UpdateFacility updates all editable fields.
func (db *DB) UpdateFacility(ctx context.Context, f *model.Facility) error {
	amenities, err := json.Marshal(f.Amenities)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE facilities
		SET name = ?, description = ?, capacity = ?, hourly_rate = ?, amenities = ?,
		    open_time = ?, close_time = ?, min_duration = ?, max_duration = ?,
		    is_active = ?, updated_at = ?
		WHERE id = ?`,
		f.Name, f.Description, f.Capacity, f.HourlyRate, string(amenities),
		int(f.OpenTime), int(f.CloseTime), f.MinDuration, f.MaxDuration,
		f.IsActive, time.Now(), f.ID,
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

// DeactivateFacility soft-deletes a facility. Bookings keep referencing it.
func (db *DB) DeactivateFacility(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE facilities SET is_active = 0, updated_at = ? WHERE id = ?`,
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
