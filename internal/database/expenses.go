package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const expenseColumns = `id, restaurant_id, vendor_id, category, description, amount, paid_amount, expense_date, vendor_order_id, created_by, created_at, updated_at`

type ListExpensesParams struct {
	RestaurantID uuid.UUID
	StartDate    pgtype.Date
	EndDate      pgtype.Date
	VendorID     pgtype.UUID
	Category     pgtype.Text
	Limit        int32
	Offset       int32
}

func (q *Queries) ListExpenses(ctx context.Context, arg ListExpensesParams) ([]Expense, error) {
	return queryMany[Expense](ctx, q.db,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE restaurant_id = $1
		   AND ($2::date IS NULL OR expense_date >= $2)
		   AND ($3::date IS NULL OR expense_date <= $3)
		   AND ($4::uuid IS NULL OR vendor_id = $4)
		   AND ($5::text IS NULL OR category = $5)
		 ORDER BY expense_date DESC, created_at DESC
		 LIMIT $6 OFFSET $7`,
		arg.RestaurantID, arg.StartDate, arg.EndDate, arg.VendorID, arg.Category, arg.Limit, arg.Offset)
}

type ListExpensesForExportParams struct {
	RestaurantID uuid.UUID
	StartDate    time.Time
	EndDate      time.Time
}

type ExpenseExportRow struct {
	ExpenseDate pgtype.Date    `db:"expense_date"`
	Category    string         `db:"category"`
	Description pgtype.Text    `db:"description"`
	VendorName  pgtype.Text    `db:"vendor_name"`
	Amount      pgtype.Numeric `db:"amount"`
	PaidAmount  pgtype.Numeric `db:"paid_amount"`
}

func (q *Queries) ListExpensesForExport(ctx context.Context, arg ListExpensesForExportParams) ([]ExpenseExportRow, error) {
	return queryMany[ExpenseExportRow](ctx, q.db,
		`SELECT e.expense_date, e.category, e.description, v.name AS vendor_name, e.amount, e.paid_amount
		 FROM expenses e
		 LEFT JOIN vendors v ON v.id = e.vendor_id
		 WHERE e.restaurant_id = $1 AND e.expense_date >= $2 AND e.expense_date <= $3
		 ORDER BY e.expense_date, e.created_at`,
		arg.RestaurantID, arg.StartDate, arg.EndDate)
}

type GetExpenseParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetExpense(ctx context.Context, arg GetExpenseParams) (Expense, error) {
	return queryOne[Expense](ctx, q.db,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1 AND restaurant_id = $2`,
		arg.ID, arg.RestaurantID)
}

type CreateExpenseParams struct {
	RestaurantID  uuid.UUID
	VendorID      pgtype.UUID
	Category      string
	Description   pgtype.Text
	Amount        pgtype.Numeric
	PaidAmount    pgtype.Numeric
	ExpenseDate   pgtype.Date
	VendorOrderID pgtype.UUID
	CreatedBy     uuid.UUID
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	return queryOne[Expense](ctx, q.db,
		`INSERT INTO expenses (restaurant_id, vendor_id, category, description, amount, paid_amount, expense_date, vendor_order_id, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+expenseColumns,
		arg.RestaurantID, arg.VendorID, arg.Category, arg.Description, arg.Amount, arg.PaidAmount,
		arg.ExpenseDate, arg.VendorOrderID, arg.CreatedBy)
}

type UpdateExpenseParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Category     string
	Description  pgtype.Text
	ExpenseDate  pgtype.Date
}

// UpdateExpense edits descriptive fields only; amounts move through the
// pending bill that tracks them.
func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (Expense, error) {
	return queryOne[Expense](ctx, q.db,
		`UPDATE expenses SET category = $3, description = $4, expense_date = $5, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2
		 RETURNING `+expenseColumns,
		arg.ID, arg.RestaurantID, arg.Category, arg.Description, arg.ExpenseDate)
}

type DeleteExpenseParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

// DeleteExpense removes the expense together with the payable it opened.
func (q *Queries) DeleteExpense(ctx context.Context, arg DeleteExpenseParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx,
		`WITH pb AS (
		     DELETE FROM pending_bills WHERE source_type = 'EXPENSE' AND source_id = $1
		 )
		 DELETE FROM expenses WHERE id = $1 AND restaurant_id = $2
		 RETURNING id`, arg.ID, arg.RestaurantID).Scan(&id)
	return id, err
}

type AddExpensePaymentParams struct {
	ID     uuid.UUID
	Amount pgtype.Numeric
}

func (q *Queries) AddExpensePayment(ctx context.Context, arg AddExpensePaymentParams) (Expense, error) {
	return queryOne[Expense](ctx, q.db,
		`UPDATE expenses SET paid_amount = paid_amount + $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+expenseColumns,
		arg.ID, arg.Amount)
}
