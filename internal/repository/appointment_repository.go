package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/barberbook/barbershop-api/internal/model"
)

const apptColumns = "id,client_id,barber_id,barbershop_id,service_id,starts_at,ends_at,status,notes,created_at,updated_at"

// AppointmentRepo encapsulates all database queries on the appointments
// table.
type AppointmentRepo struct{ DB *sql.DB }

func NewAppointmentRepo(db *sql.DB) *AppointmentRepo { return &AppointmentRepo{DB: db} }

// Create inserts the appointment and fills in its generated ID.
func (r *AppointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO appointments (client_id, barber_id, barbershop_id, service_id, starts_at, ends_at, status, notes) VALUES (?,?,?,?,?,?,?,?)",
		a.ClientID, a.BarberID, a.BarbershopID, a.ServiceID, a.StartsAt, a.EndsAt, a.Status, a.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByID fetches an appointment by its id.
func (r *AppointmentRepo) GetByID(ctx context.Context, id uint64) (model.Appointment, error) {
	var a model.Appointment
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+apptColumns+" FROM appointments WHERE id=? LIMIT 1", id).
		Scan(&a.ID, &a.ClientID, &a.BarberID, &a.BarbershopID, &a.ServiceID, &a.StartsAt, &a.EndsAt, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Appointment{}, ErrAppointmentNotFound
	}
	return a, err
}

// ListAll returns every appointment, newest first.  Admin-only listing.
func (r *AppointmentRepo) ListAll(ctx context.Context) ([]model.Appointment, error) {
	return r.list(ctx,
		"SELECT "+apptColumns+" FROM appointments ORDER BY starts_at DESC")
}

// ListByParticipant returns appointments the user takes part in: as the
// booking client, as the assigned barber, or as the owner of the shop.
func (r *AppointmentRepo) ListByParticipant(ctx context.Context, userID uint64) ([]model.Appointment, error) {
	return r.list(ctx,
		`SELECT a.id,a.client_id,a.barber_id,a.barbershop_id,a.service_id,a.starts_at,a.ends_at,a.status,a.notes,a.created_at,a.updated_at
		 FROM appointments a
		 JOIN barbershops b ON b.id = a.barbershop_id
		 WHERE a.client_id=? OR a.barber_id=? OR b.owner_id=?
		 ORDER BY a.starts_at DESC`,
		userID, userID, userID)
}

// UpdateStatus moves the appointment to the given status.
func (r *AppointmentRepo) UpdateStatus(ctx context.Context, id uint64, status model.AppointmentStatus) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE appointments SET status=?, updated_at=CURRENT_TIMESTAMP WHERE id=?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the appointment.
func (r *AppointmentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM appointments WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Appointment, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.ClientID, &a.BarberID, &a.BarbershopID, &a.ServiceID, &a.StartsAt, &a.EndsAt, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
