package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"societyhub/internal/model"
)

const paymentColumns = `id, user_id, amount, payment_type, reference_id, receipt, status,
	description, due_date, paid_at, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*model.Payment, error) {
	var p model.Payment
	var description sql.NullString
	var dueDate sql.NullString
	err := row.Scan(
		&p.ID, &p.UserID, &p.Amount, &p.Type, &p.ReferenceID, &p.Receipt, &p.Status,
		&description, &dueDate, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	if dueDate.Valid {
		d := parseDateKey(dueDate.String)
		p.DueDate = &d
	}
	return &p, nil
}

// GetPayment returns a payment by id.
func (db *DB) GetPayment(ctx context.Context, id int64) (*model.Payment, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPaymentByReceipt resolves a payment from its receipt token.
func (db *DB) GetPaymentByReceipt(ctx context.Context, receipt string) (*model.Payment, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE receipt = ?`, receipt)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PaymentFilter narrows ListPayments.
type PaymentFilter struct {
	UserID int64
	Status model.PaymentStatus
	Type   model.PaymentType
}

// ListPayments returns payments newest first.
func (db *DB) ListPayments(ctx context.Context, f PaymentFilter) ([]model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE 1=1`
	var args []any
	if f.UserID > 0 {
		query += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Type != "" {
		query += ` AND payment_type = ?`
		args = append(args, string(f.Type))
	}
	query += ` ORDER BY id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// CreatePayment inserts a ledger record. The receipt token must be unique.
func (db *DB) CreatePayment(ctx context.Context, p *model.Payment) error {
	now := time.Now()
	var dueDate any
	if p.DueDate != nil {
		dueDate = dateKey(*p.DueDate)
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO payments (
			user_id, amount, payment_type, reference_id, receipt, status,
			description, due_date, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Amount, string(p.Type), p.ReferenceID, p.Receipt, string(p.Status),
		p.Description, dueDate, now, now,
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

// SettlePayment moves a payment between statuses, recording paid_at when
// it completes. Status-guarded like the other transition ops.
func (db *DB) SettlePayment(ctx context.Context, id int64, from, to model.PaymentStatus) error {
	now := time.Now()
	query := `UPDATE payments SET status = ?, updated_at = ?`
	args := []any{string(to), now}
	if to == model.PaymentCompleted {
		query += `, paid_at = ?`
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
		if _, gerr := db.GetPayment(ctx, id); gerr != nil {
			return gerr
		}
		return ErrVersionConflict
	}
	return nil
}
