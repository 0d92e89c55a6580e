package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/barberbook/barbershop-api/internal/model"
)

const shopColumns = "id,owner_id,name,description,address,phone,created_at,updated_at"

// BarbershopRepo encapsulates all database queries on the barbershops table.
type BarbershopRepo struct{ DB *sql.DB }

func NewBarbershopRepo(db *sql.DB) *BarbershopRepo { return &BarbershopRepo{DB: db} }

// Create inserts a new barbershop and fills in its generated ID.
func (r *BarbershopRepo) Create(ctx context.Context, b *model.Barbershop) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO barbershops (owner_id, name, description, address, phone) VALUES (?,?,?,?,?)",
		b.OwnerID, b.Name, b.Description, b.Address, b.Phone)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrShopNameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID fetches a barbershop by its id.
func (r *BarbershopRepo) GetByID(ctx context.Context, id uint64) (model.Barbershop, error) {
	var b model.Barbershop
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+shopColumns+" FROM barbershops WHERE id=? LIMIT 1", id).
		Scan(&b.ID, &b.OwnerID, &b.Name, &b.Description, &b.Address, &b.Phone, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Barbershop{}, ErrShopNotFound
	}
	return b, err
}

// List returns all barbershops ordered by name for public browsing.
func (r *BarbershopRepo) List(ctx context.Context) ([]model.Barbershop, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+shopColumns+" FROM barbershops ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Barbershop
	for rows.Next() {
		var b model.Barbershop
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Description, &b.Address, &b.Phone, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Update persists the mutable fields of b.
func (r *BarbershopRepo) Update(ctx context.Context, b *model.Barbershop) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE barbershops
		 SET name=?, description=?, address=?, phone=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=?`,
		b.Name, b.Description, b.Address, b.Phone, b.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrShopNameExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, b.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a barbershop together with its services and appointments.
// The cascade runs in a transaction so a cancelled request never leaves a
// shop half-deleted.
func (r *BarbershopRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var exists uint64
	if err = tx.QueryRowContext(ctx, "SELECT id FROM barbershops WHERE id=?", id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrShopNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM appointments WHERE barbershop_id=?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM services WHERE barbershop_id=?", id); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM barbershops WHERE id=?", id)
	return err
}
