package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const diningTableColumns = `id, restaurant_id, name, seats, status, is_active, created_at, updated_at`

func (q *Queries) ListDiningTables(ctx context.Context, restaurantID uuid.UUID) ([]DiningTable, error) {
	return queryMany[DiningTable](ctx, q.db,
		`SELECT `+diningTableColumns+` FROM dining_tables
		 WHERE restaurant_id = $1 AND is_active = true
		 ORDER BY name`, restaurantID)
}

type GetDiningTableParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetDiningTable(ctx context.Context, arg GetDiningTableParams) (DiningTable, error) {
	return queryOne[DiningTable](ctx, q.db,
		`SELECT `+diningTableColumns+` FROM dining_tables
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true`, arg.ID, arg.RestaurantID)
}

type CreateDiningTableParams struct {
	RestaurantID uuid.UUID
	Name         string
	Seats        int32
}

func (q *Queries) CreateDiningTable(ctx context.Context, arg CreateDiningTableParams) (DiningTable, error) {
	return queryOne[DiningTable](ctx, q.db,
		`INSERT INTO dining_tables (restaurant_id, name, seats)
		 VALUES ($1, $2, $3)
		 RETURNING `+diningTableColumns,
		arg.RestaurantID, arg.Name, arg.Seats)
}

type UpdateDiningTableParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Seats        int32
}

func (q *Queries) UpdateDiningTable(ctx context.Context, arg UpdateDiningTableParams) (DiningTable, error) {
	return queryOne[DiningTable](ctx, q.db,
		`UPDATE dining_tables SET name = $3, seats = $4, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true
		 RETURNING `+diningTableColumns,
		arg.ID, arg.RestaurantID, arg.Name, arg.Seats)
}

type SoftDeleteDiningTableParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

// SoftDeleteDiningTable only retires tables that are not in use.
func (q *Queries) SoftDeleteDiningTable(ctx context.Context, arg SoftDeleteDiningTableParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx,
		`UPDATE dining_tables SET is_active = false, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true AND status = 'AVAILABLE'
		 RETURNING id`, arg.ID, arg.RestaurantID).Scan(&id)
	return id, err
}

type UpdateDiningTableStatusParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Status       string
	FromStatus   string
}

// UpdateDiningTableStatus is a compare-and-set: it returns pgx.ErrNoRows when
// the table is no longer in FromStatus.
func (q *Queries) UpdateDiningTableStatus(ctx context.Context, arg UpdateDiningTableStatusParams) (DiningTable, error) {
	return queryOne[DiningTable](ctx, q.db,
		`UPDATE dining_tables SET status = $3, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND status = $4 AND is_active = true
		 RETURNING `+diningTableColumns,
		arg.ID, arg.RestaurantID, arg.Status, arg.FromStatus)
}

const reservationColumns = `id, restaurant_id, table_id, customer_id, guest_name, phone, party_size, reserved_for, status, notes, order_id, created_at, updated_at`

type ListReservationsParams struct {
	RestaurantID uuid.UUID
	From         time.Time
	To           time.Time
	Status       pgtype.Text
}

func (q *Queries) ListReservations(ctx context.Context, arg ListReservationsParams) ([]Reservation, error) {
	return queryMany[Reservation](ctx, q.db,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE restaurant_id = $1 AND reserved_for >= $2 AND reserved_for < $3
		   AND ($4::text IS NULL OR status = $4)
		 ORDER BY reserved_for`,
		arg.RestaurantID, arg.From, arg.To, arg.Status)
}

type GetReservationParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetReservation(ctx context.Context, arg GetReservationParams) (Reservation, error) {
	return queryOne[Reservation](ctx, q.db,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1 AND restaurant_id = $2`,
		arg.ID, arg.RestaurantID)
}

type CreateReservationParams struct {
	RestaurantID uuid.UUID
	TableID      pgtype.UUID
	CustomerID   pgtype.UUID
	GuestName    string
	Phone        pgtype.Text
	PartySize    int32
	ReservedFor  time.Time
	Notes        pgtype.Text
}

func (q *Queries) CreateReservation(ctx context.Context, arg CreateReservationParams) (Reservation, error) {
	return queryOne[Reservation](ctx, q.db,
		`INSERT INTO reservations (restaurant_id, table_id, customer_id, guest_name, phone, party_size, reserved_for, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+reservationColumns,
		arg.RestaurantID, arg.TableID, arg.CustomerID, arg.GuestName, arg.Phone, arg.PartySize, arg.ReservedFor, arg.Notes)
}

type UpdateReservationStatusParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Status       string
	FromStatus   string
	OrderID      pgtype.UUID
}

func (q *Queries) UpdateReservationStatus(ctx context.Context, arg UpdateReservationStatusParams) (Reservation, error) {
	return queryOne[Reservation](ctx, q.db,
		`UPDATE reservations SET status = $3, order_id = COALESCE($5, order_id), updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND status = $4
		 RETURNING `+reservationColumns,
		arg.ID, arg.RestaurantID, arg.Status, arg.FromStatus, arg.OrderID)
}

type CountBookedReservationsForTableParams struct {
	TableID   uuid.UUID
	ExcludeID uuid.UUID
}

func (q *Queries) CountBookedReservationsForTable(ctx context.Context, arg CountBookedReservationsForTableParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM reservations
		 WHERE table_id = $1 AND id <> $2 AND status = 'BOOKED'`,
		arg.TableID, arg.ExcludeID).Scan(&n)
	return n, err
}
