package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const vendorOrderColumns = `id, restaurant_id, vendor_id, status, notes, expected_date, total, created_by, created_at, updated_at, sent_at, received_at`

type CreateVendorOrderParams struct {
	RestaurantID uuid.UUID
	VendorID     uuid.UUID
	Notes        pgtype.Text
	ExpectedDate pgtype.Date
	CreatedBy    uuid.UUID
}

func (q *Queries) CreateVendorOrder(ctx context.Context, arg CreateVendorOrderParams) (VendorOrder, error) {
	return queryOne[VendorOrder](ctx, q.db,
		`INSERT INTO vendor_orders (restaurant_id, vendor_id, notes, expected_date, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+vendorOrderColumns,
		arg.RestaurantID, arg.VendorID, arg.Notes, arg.ExpectedDate, arg.CreatedBy)
}

type GetVendorOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetVendorOrder(ctx context.Context, arg GetVendorOrderParams) (VendorOrder, error) {
	return queryOne[VendorOrder](ctx, q.db,
		`SELECT `+vendorOrderColumns+` FROM vendor_orders WHERE id = $1 AND restaurant_id = $2`,
		arg.ID, arg.RestaurantID)
}

type ListVendorOrdersParams struct {
	RestaurantID uuid.UUID
	VendorID     pgtype.UUID
	Status       pgtype.Text
}

func (q *Queries) ListVendorOrders(ctx context.Context, arg ListVendorOrdersParams) ([]VendorOrder, error) {
	return queryMany[VendorOrder](ctx, q.db,
		`SELECT `+vendorOrderColumns+` FROM vendor_orders
		 WHERE restaurant_id = $1
		   AND ($2::uuid IS NULL OR vendor_id = $2)
		   AND ($3::text IS NULL OR status = $3)
		 ORDER BY created_at DESC`,
		arg.RestaurantID, arg.VendorID, arg.Status)
}

type UpdateVendorOrderStatusParams struct {
	ID         uuid.UUID
	Status     string
	FromStatus string
}

// UpdateVendorOrderStatus is a compare-and-set on status; it stamps sent_at
// and received_at on the matching transitions.
func (q *Queries) UpdateVendorOrderStatus(ctx context.Context, arg UpdateVendorOrderStatusParams) (VendorOrder, error) {
	return queryOne[VendorOrder](ctx, q.db,
		`UPDATE vendor_orders
		 SET status = $2,
		     sent_at = CASE WHEN $2 = 'SENT' THEN now() ELSE sent_at END,
		     received_at = CASE WHEN $2 = 'RECEIVED' THEN now() ELSE received_at END,
		     updated_at = now()
		 WHERE id = $1 AND status = $3
		 RETURNING `+vendorOrderColumns,
		arg.ID, arg.Status, arg.FromStatus)
}

// UpdateVendorOrderTotal recomputes the header total from its lines.
func (q *Queries) UpdateVendorOrderTotal(ctx context.Context, id uuid.UUID) (VendorOrder, error) {
	return queryOne[VendorOrder](ctx, q.db,
		`UPDATE vendor_orders
		 SET total = COALESCE((SELECT SUM(quantity * unit_cost) FROM vendor_order_lines WHERE vendor_order_id = $1), 0)::numeric(12,2),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+vendorOrderColumns, id)
}

const vendorOrderLineColumns = `id, vendor_order_id, ingredient_id, description, quantity, unit, unit_cost`

type CreateVendorOrderLineParams struct {
	VendorOrderID uuid.UUID
	IngredientID  pgtype.UUID
	Description   string
	Quantity      pgtype.Numeric
	Unit          string
	UnitCost      pgtype.Numeric
}

func (q *Queries) CreateVendorOrderLine(ctx context.Context, arg CreateVendorOrderLineParams) (VendorOrderLine, error) {
	return queryOne[VendorOrderLine](ctx, q.db,
		`INSERT INTO vendor_order_lines (vendor_order_id, ingredient_id, description, quantity, unit, unit_cost)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+vendorOrderLineColumns,
		arg.VendorOrderID, arg.IngredientID, arg.Description, arg.Quantity, arg.Unit, arg.UnitCost)
}

func (q *Queries) ListVendorOrderLines(ctx context.Context, vendorOrderID uuid.UUID) ([]VendorOrderLine, error) {
	return queryMany[VendorOrderLine](ctx, q.db,
		`SELECT `+vendorOrderLineColumns+` FROM vendor_order_lines
		 WHERE vendor_order_id = $1
		 ORDER BY description`, vendorOrderID)
}
