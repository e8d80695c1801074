package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"societyhub/internal/model"
)

const profileColumns = `id, email, password_hash, full_name, phone, role, apartment_number,
	building_name, is_active, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	var phone, apartment, building sql.NullString
	err := row.Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.FullName, &phone, &p.Role, &apartment,
		&building, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Phone = phone.String
	p.ApartmentNumber = apartment.String
	p.BuildingName = building.String
	return &p, nil
}

// GetProfile returns a profile by id.
func (db *DB) GetProfile(ctx context.Context, id int64) (*model.Profile, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProfileByEmail returns a profile by email, case-insensitive.
func (db *DB) GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = ? COLLATE NOCASE`,
		strings.TrimSpace(email))
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProfiles returns profiles, optionally restricted to a role.
func (db *DB) ListProfiles(ctx context.Context, role model.Role) ([]model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles`
	var args []any
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, string(role))
	}
	query += ` ORDER BY full_name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// CreateProfile inserts a profile.
func (db *DB) CreateProfile(ctx context.Context, p *model.Profile) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO profiles (
			email, password_hash, full_name, phone, role, apartment_number,
			building_name, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(p.Email), p.PasswordHash, p.FullName, p.Phone, string(p.Role),
		p.ApartmentNumber, p.BuildingName, p.IsActive, now, now,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return ErrDuplicate
		}
		return err
	}
	p.ID, err = res.LastInsertId()
	p.CreatedAt = now
	p.UpdatedAt = now
	return err
}

// UpdateProfilePassword replaces the stored password hash.
func (db *DB) UpdateProfilePassword(ctx context.Context, id int64, hash string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE profiles SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now(), id,
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

// UpdateProfile updates editable profile fields.
func (db *DB) UpdateProfile(ctx context.Context, p *model.Profile) error {
	res, err := db.ExecContext(ctx, `
		UPDATE profiles
		SET full_name = ?, phone = ?, role = ?, apartment_number = ?,
		    building_name = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		p.FullName, p.Phone, string(p.Role), p.ApartmentNumber,
		p.BuildingName, p.IsActive, time.Now(), p.ID,
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
