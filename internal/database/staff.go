package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const staffColumns = `id, restaurant_id, email, hashed_password, hashed_pin, full_name, role, is_active, created_at, updated_at`

func (q *Queries) GetStaffByEmail(ctx context.Context, email string) (Staff, error) {
	return queryOne[Staff](ctx, q.db,
		`SELECT `+staffColumns+` FROM staff WHERE lower(email) = lower($1) AND is_active = true`, email)
}

func (q *Queries) GetStaffByID(ctx context.Context, id uuid.UUID) (Staff, error) {
	return queryOne[Staff](ctx, q.db,
		`SELECT `+staffColumns+` FROM staff WHERE id = $1 AND is_active = true`, id)
}

// ListStaffWithPin returns active staff of a restaurant that can log in by PIN.
func (q *Queries) ListStaffWithPin(ctx context.Context, restaurantID uuid.UUID) ([]Staff, error) {
	return queryMany[Staff](ctx, q.db,
		`SELECT `+staffColumns+` FROM staff
		 WHERE restaurant_id = $1 AND is_active = true AND hashed_pin IS NOT NULL
		 ORDER BY created_at`, restaurantID)
}

func (q *Queries) ListStaffByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]Staff, error) {
	return queryMany[Staff](ctx, q.db,
		`SELECT `+staffColumns+` FROM staff
		 WHERE restaurant_id = $1 AND is_active = true
		 ORDER BY full_name`, restaurantID)
}

type GetStaffParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetStaff(ctx context.Context, arg GetStaffParams) (Staff, error) {
	return queryOne[Staff](ctx, q.db,
		`SELECT `+staffColumns+` FROM staff
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true`, arg.ID, arg.RestaurantID)
}

type CreateStaffParams struct {
	RestaurantID   uuid.UUID
	Email          pgtype.Text
	HashedPassword pgtype.Text
	HashedPin      pgtype.Text
	FullName       string
	Role           string
}

func (q *Queries) CreateStaff(ctx context.Context, arg CreateStaffParams) (Staff, error) {
	return queryOne[Staff](ctx, q.db,
		`INSERT INTO staff (restaurant_id, email, hashed_password, hashed_pin, full_name, role)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+staffColumns,
		arg.RestaurantID, arg.Email, arg.HashedPassword, arg.HashedPin, arg.FullName, arg.Role)
}

type UpdateStaffParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Email        pgtype.Text
	FullName     string
	Role         string
}

func (q *Queries) UpdateStaff(ctx context.Context, arg UpdateStaffParams) (Staff, error) {
	return queryOne[Staff](ctx, q.db,
		`UPDATE staff SET email = $3, full_name = $4, role = $5, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true
		 RETURNING `+staffColumns,
		arg.ID, arg.RestaurantID, arg.Email, arg.FullName, arg.Role)
}

type UpdateStaffPinParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	HashedPin    pgtype.Text
}

func (q *Queries) UpdateStaffPin(ctx context.Context, arg UpdateStaffPinParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx,
		`UPDATE staff SET hashed_pin = $3, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true
		 RETURNING id`, arg.ID, arg.RestaurantID, arg.HashedPin).Scan(&id)
	return id, err
}

type SoftDeleteStaffParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) SoftDeleteStaff(ctx context.Context, arg SoftDeleteStaffParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx,
		`UPDATE staff SET is_active = false, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true
		 RETURNING id`, arg.ID, arg.RestaurantID).Scan(&id)
	return id, err
}
