package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/barberbook/barbershop-api/internal/model"
)

const serviceColumns = "id,barbershop_id,name,description,price_cents,duration_min,available,created_at,updated_at"

// ServiceRepo encapsulates all database queries on the services table.
type ServiceRepo struct{ DB *sql.DB }

func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{DB: db} }

// Create inserts a service under its barbershop and fills in the ID.
func (r *ServiceRepo) Create(ctx context.Context, s *model.Service) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO services (barbershop_id, name, description, price_cents, duration_min, available) VALUES (?,?,?,?,?,?)",
		s.BarbershopID, s.Name, s.Description, s.PriceCents, s.DurationMin, s.Available)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID fetches a service by its id.
func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (model.Service, error) {
	var s model.Service
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+serviceColumns+" FROM services WHERE id=? LIMIT 1", id).
		Scan(&s.ID, &s.BarbershopID, &s.Name, &s.Description, &s.PriceCents, &s.DurationMin, &s.Available, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Service{}, ErrServiceNotFound
	}
	return s, err
}

// ListByShop returns all services of a barbershop ordered by name.
func (r *ServiceRepo) ListByShop(ctx context.Context, shopID uint64) ([]model.Service, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+serviceColumns+" FROM services WHERE barbershop_id=? ORDER BY name", shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.BarbershopID, &s.Name, &s.Description, &s.PriceCents, &s.DurationMin, &s.Available, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update persists the mutable fields of s.
func (r *ServiceRepo) Update(ctx context.Context, s *model.Service) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE services
		 SET name=?, description=?, price_cents=?, duration_min=?, available=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=?`,
		s.Name, s.Description, s.PriceCents, s.DurationMin, s.Available, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a service.
func (r *ServiceRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM services WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrServiceNotFound
	}
	return nil
}
