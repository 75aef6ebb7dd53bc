package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const customerColumns = `id, restaurant_id, name, phone, email, notes, is_active, created_at, updated_at`

type ListCustomersParams struct {
	RestaurantID uuid.UUID
	Search       pgtype.Text
	Limit        int32
	Offset       int32
}

func (q *Queries) ListCustomers(ctx context.Context, arg ListCustomersParams) ([]Customer, error) {
	return queryMany[Customer](ctx, q.db,
		`SELECT `+customerColumns+` FROM customers
		 WHERE restaurant_id = $1 AND is_active = true
		   AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%' OR phone ILIKE '%' || $2 || '%')
		 ORDER BY name
		 LIMIT $3 OFFSET $4`,
		arg.RestaurantID, arg.Search, arg.Limit, arg.Offset)
}

type GetCustomerParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetCustomer(ctx context.Context, arg GetCustomerParams) (Customer, error) {
	return queryOne[Customer](ctx, q.db,
		`SELECT `+customerColumns+` FROM customers
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true`, arg.ID, arg.RestaurantID)
}

type CreateCustomerParams struct {
	RestaurantID uuid.UUID
	Name         string
	Phone        pgtype.Text
	Email        pgtype.Text
	Notes        pgtype.Text
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	return queryOne[Customer](ctx, q.db,
		`INSERT INTO customers (restaurant_id, name, phone, email, notes)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+customerColumns,
		arg.RestaurantID, arg.Name, arg.Phone, arg.Email, arg.Notes)
}

type UpdateCustomerParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Phone        pgtype.Text
	Email        pgtype.Text
	Notes        pgtype.Text
}

func (q *Queries) UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (Customer, error) {
	return queryOne[Customer](ctx, q.db,
		`UPDATE customers SET name = $3, phone = $4, email = $5, notes = $6, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true
		 RETURNING `+customerColumns,
		arg.ID, arg.RestaurantID, arg.Name, arg.Phone, arg.Email, arg.Notes)
}

type SoftDeleteCustomerParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) SoftDeleteCustomer(ctx context.Context, arg SoftDeleteCustomerParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx,
		`UPDATE customers SET is_active = false, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true
		 RETURNING id`, arg.ID, arg.RestaurantID).Scan(&id)
	return id, err
}

// BillFactRow feeds the customer rollups.
type BillFactRow struct {
	CustomerID uuid.UUID      `db:"customer_id"`
	Total      pgtype.Numeric `db:"total"`
	PaidAmount pgtype.Numeric `db:"paid_amount"`
	CreatedAt  time.Time      `db:"created_at"`
}

type ListCustomerBillFactsParams struct {
	RestaurantID uuid.UUID
	CustomerID   pgtype.UUID
}

func (q *Queries) ListCustomerBillFacts(ctx context.Context, arg ListCustomerBillFactsParams) ([]BillFactRow, error) {
	return queryMany[BillFactRow](ctx, q.db,
		`SELECT customer_id, total, paid_amount, created_at FROM bills
		 WHERE restaurant_id = $1 AND customer_id IS NOT NULL
		   AND ($2::uuid IS NULL OR customer_id = $2)
		 ORDER BY created_at`,
		arg.RestaurantID, arg.CustomerID)
}

const vendorColumns = `id, restaurant_id, name, contact_name, phone, email, notes, is_active, created_at, updated_at`

func (q *Queries) ListVendors(ctx context.Context, restaurantID uuid.UUID) ([]Vendor, error) {
	return queryMany[Vendor](ctx, q.db,
		`SELECT `+vendorColumns+` FROM vendors
		 WHERE restaurant_id = $1 AND is_active = true
		 ORDER BY name`, restaurantID)
}

type GetVendorParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetVendor(ctx context.Context, arg GetVendorParams) (Vendor, error) {
	return queryOne[Vendor](ctx, q.db,
		`SELECT `+vendorColumns+` FROM vendors
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true`, arg.ID, arg.RestaurantID)
}

type CreateVendorParams struct {
	RestaurantID uuid.UUID
	Name         string
	ContactName  pgtype.Text
	Phone        pgtype.Text
	Email        pgtype.Text
	Notes        pgtype.Text
}

func (q *Queries) CreateVendor(ctx context.Context, arg CreateVendorParams) (Vendor, error) {
	return queryOne[Vendor](ctx, q.db,
		`INSERT INTO vendors (restaurant_id, name, contact_name, phone, email, notes)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+vendorColumns,
		arg.RestaurantID, arg.Name, arg.ContactName, arg.Phone, arg.Email, arg.Notes)
}

type UpdateVendorParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	ContactName  pgtype.Text
	Phone        pgtype.Text
	Email        pgtype.Text
	Notes        pgtype.Text
}

func (q *Queries) UpdateVendor(ctx context.Context, arg UpdateVendorParams) (Vendor, error) {
	return queryOne[Vendor](ctx, q.db,
		`UPDATE vendors SET name = $3, contact_name = $4, phone = $5, email = $6, notes = $7, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true
		 RETURNING `+vendorColumns,
		arg.ID, arg.RestaurantID, arg.Name, arg.ContactName, arg.Phone, arg.Email, arg.Notes)
}

type SoftDeleteVendorParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) SoftDeleteVendor(ctx context.Context, arg SoftDeleteVendorParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx,
		`UPDATE vendors SET is_active = false, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true
		 RETURNING id`, arg.ID, arg.RestaurantID).Scan(&id)
	return id, err
}

// ExpenseFactRow feeds the vendor rollups.
type ExpenseFactRow struct {
	VendorID    uuid.UUID      `db:"vendor_id"`
	Amount      pgtype.Numeric `db:"amount"`
	PaidAmount  pgtype.Numeric `db:"paid_amount"`
	ExpenseDate pgtype.Date    `db:"expense_date"`
}

type ListVendorExpenseFactsParams struct {
	RestaurantID uuid.UUID
	VendorID     pgtype.UUID
}

func (q *Queries) ListVendorExpenseFacts(ctx context.Context, arg ListVendorExpenseFactsParams) ([]ExpenseFactRow, error) {
	return queryMany[ExpenseFactRow](ctx, q.db,
		`SELECT vendor_id, amount, paid_amount, expense_date FROM expenses
		 WHERE restaurant_id = $1 AND vendor_id IS NOT NULL
		   AND ($2::uuid IS NULL OR vendor_id = $2)
		 ORDER BY expense_date`,
		arg.RestaurantID, arg.VendorID)
}
