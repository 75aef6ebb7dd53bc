package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const pendingBillColumns = `id, restaurant_id, party_type, party_id, source_type, source_id, amount_due, amount_settled, status, created_at, updated_at`

type CreatePendingBillParams struct {
	RestaurantID uuid.UUID
	PartyType    string
	PartyID      uuid.UUID
	SourceType   string
	SourceID     uuid.UUID
	AmountDue    pgtype.Numeric
}

func (q *Queries) CreatePendingBill(ctx context.Context, arg CreatePendingBillParams) (PendingBill, error) {
	return queryOne[PendingBill](ctx, q.db,
		`INSERT INTO pending_bills (restaurant_id, party_type, party_id, source_type, source_id, amount_due)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+pendingBillColumns,
		arg.RestaurantID, arg.PartyType, arg.PartyID, arg.SourceType, arg.SourceID, arg.AmountDue)
}

type GetPendingBillParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetPendingBill(ctx context.Context, arg GetPendingBillParams) (PendingBill, error) {
	return queryOne[PendingBill](ctx, q.db,
		`SELECT `+pendingBillColumns+` FROM pending_bills WHERE id = $1 AND restaurant_id = $2`,
		arg.ID, arg.RestaurantID)
}

func (q *Queries) GetPendingBillForUpdate(ctx context.Context, arg GetPendingBillParams) (PendingBill, error) {
	return queryOne[PendingBill](ctx, q.db,
		`SELECT `+pendingBillColumns+` FROM pending_bills WHERE id = $1 AND restaurant_id = $2 FOR UPDATE`,
		arg.ID, arg.RestaurantID)
}

type ListPendingBillsParams struct {
	RestaurantID uuid.UUID
	PartyType    pgtype.Text
	PartyID      pgtype.UUID
	Status       pgtype.Text
}

func (q *Queries) ListPendingBills(ctx context.Context, arg ListPendingBillsParams) ([]PendingBill, error) {
	return queryMany[PendingBill](ctx, q.db,
		`SELECT `+pendingBillColumns+` FROM pending_bills
		 WHERE restaurant_id = $1
		   AND ($2::text IS NULL OR party_type = $2)
		   AND ($3::uuid IS NULL OR party_id = $3)
		   AND ($4::text IS NULL OR status = $4)
		 ORDER BY created_at DESC`,
		arg.RestaurantID, arg.PartyType, arg.PartyID, arg.Status)
}

type SettlePendingBillParams struct {
	ID     uuid.UUID
	Amount pgtype.Numeric
}

// SettlePendingBill adds to amount_settled and closes the record once it
// covers amount_due.
func (q *Queries) SettlePendingBill(ctx context.Context, arg SettlePendingBillParams) (PendingBill, error) {
	return queryOne[PendingBill](ctx, q.db,
		`UPDATE pending_bills
		 SET amount_settled = amount_settled + $2,
		     status = CASE WHEN amount_settled + $2 >= amount_due THEN 'SETTLED' ELSE 'OPEN' END,
		     updated_at = now()
		 WHERE id = $1 AND status = 'OPEN'
		 RETURNING `+pendingBillColumns,
		arg.ID, arg.Amount)
}

const pendingBillPaymentColumns = `id, pending_bill_id, amount, payment_method, created_by, created_at`

type CreatePendingBillPaymentParams struct {
	PendingBillID uuid.UUID
	Amount        pgtype.Numeric
	PaymentMethod string
	CreatedBy     uuid.UUID
}

func (q *Queries) CreatePendingBillPayment(ctx context.Context, arg CreatePendingBillPaymentParams) (PendingBillPayment, error) {
	return queryOne[PendingBillPayment](ctx, q.db,
		`INSERT INTO pending_bill_payments (pending_bill_id, amount, payment_method, created_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+pendingBillPaymentColumns,
		arg.PendingBillID, arg.Amount, arg.PaymentMethod, arg.CreatedBy)
}

func (q *Queries) ListPendingBillPayments(ctx context.Context, pendingBillID uuid.UUID) ([]PendingBillPayment, error) {
	return queryMany[PendingBillPayment](ctx, q.db,
		`SELECT `+pendingBillPaymentColumns+` FROM pending_bill_payments
		 WHERE pending_bill_id = $1
		 ORDER BY created_at`, pendingBillID)
}
