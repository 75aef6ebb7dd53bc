package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const billColumns = `id, restaurant_id, order_id, customer_id, bill_number, subtotal, discount, tax, total, paid_amount, payment_method, status, created_by, created_at, updated_at`

func (q *Queries) GetNextBillNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx,
		`SELECT (COUNT(*) + 1)::int FROM bills WHERE restaurant_id = $1`, restaurantID).Scan(&n)
	return n, err
}

type CreateBillParams struct {
	RestaurantID  uuid.UUID
	OrderID       uuid.UUID
	CustomerID    pgtype.UUID
	BillNumber    string
	Subtotal      pgtype.Numeric
	Discount      pgtype.Numeric
	Tax           pgtype.Numeric
	Total         pgtype.Numeric
	PaidAmount    pgtype.Numeric
	PaymentMethod string
	Status        string
	CreatedBy     uuid.UUID
}

func (q *Queries) CreateBill(ctx context.Context, arg CreateBillParams) (Bill, error) {
	return queryOne[Bill](ctx, q.db,
		`INSERT INTO bills (restaurant_id, order_id, customer_id, bill_number, subtotal, discount, tax, total, paid_amount, payment_method, status, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+billColumns,
		arg.RestaurantID, arg.OrderID, arg.CustomerID, arg.BillNumber, arg.Subtotal, arg.Discount, arg.Tax,
		arg.Total, arg.PaidAmount, arg.PaymentMethod, arg.Status, arg.CreatedBy)
}

type GetBillParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetBill(ctx context.Context, arg GetBillParams) (Bill, error) {
	return queryOne[Bill](ctx, q.db,
		`SELECT `+billColumns+` FROM bills WHERE id = $1 AND restaurant_id = $2`,
		arg.ID, arg.RestaurantID)
}

func (q *Queries) GetBillByOrder(ctx context.Context, orderID uuid.UUID) (Bill, error) {
	return queryOne[Bill](ctx, q.db,
		`SELECT `+billColumns+` FROM bills WHERE order_id = $1`, orderID)
}

type ListBillsParams struct {
	RestaurantID uuid.UUID
	CustomerID   pgtype.UUID
	Status       pgtype.Text
	Limit        int32
	Offset       int32
}

func (q *Queries) ListBills(ctx context.Context, arg ListBillsParams) ([]Bill, error) {
	return queryMany[Bill](ctx, q.db,
		`SELECT `+billColumns+` FROM bills
		 WHERE restaurant_id = $1
		   AND ($2::uuid IS NULL OR customer_id = $2)
		   AND ($3::text IS NULL OR status = $3)
		 ORDER BY created_at DESC
		 LIMIT $4 OFFSET $5`,
		arg.RestaurantID, arg.CustomerID, arg.Status, arg.Limit, arg.Offset)
}

type AddBillPaymentParams struct {
	ID     uuid.UUID
	Amount pgtype.Numeric
}

// AddBillPayment applies a late payment and recomputes the status.
func (q *Queries) AddBillPayment(ctx context.Context, arg AddBillPaymentParams) (Bill, error) {
	return queryOne[Bill](ctx, q.db,
		`UPDATE bills
		 SET paid_amount = paid_amount + $2,
		     status = CASE WHEN paid_amount + $2 >= total THEN 'PAID'
		                   WHEN paid_amount + $2 > 0 THEN 'PARTIAL'
		                   ELSE 'UNPAID' END,
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+billColumns,
		arg.ID, arg.Amount)
}
