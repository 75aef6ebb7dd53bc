package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type GetDailySalesParams struct {
	RestaurantID uuid.UUID
	StartAt      time.Time
	EndAt        time.Time
	// TimeZone is the IANA zone days are bucketed in.
	TimeZone string
}

type GetDailySalesRow struct {
	SaleDate      pgtype.Date    `db:"sale_date"`
	BillCount     int64          `db:"bill_count"`
	TotalRevenue  pgtype.Numeric `db:"total_revenue"`
	TotalDiscount pgtype.Numeric `db:"total_discount"`
	TotalTax      pgtype.Numeric `db:"total_tax"`
	TotalPaid     pgtype.Numeric `db:"total_paid"`
	Outstanding   pgtype.Numeric `db:"outstanding"`
}

// GetDailySales buckets bills by calendar day in arg.TimeZone, EndAt
// exclusive.
func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	return queryMany[GetDailySalesRow](ctx, q.db,
		`SELECT (created_at AT TIME ZONE $4)::date AS sale_date,
		        COUNT(*) AS bill_count,
		        COALESCE(SUM(total), 0)::numeric(12,2) AS total_revenue,
		        COALESCE(SUM(discount), 0)::numeric(12,2) AS total_discount,
		        COALESCE(SUM(tax), 0)::numeric(12,2) AS total_tax,
		        COALESCE(SUM(paid_amount), 0)::numeric(12,2) AS total_paid,
		        COALESCE(SUM(GREATEST(total - paid_amount, 0)), 0)::numeric(12,2) AS outstanding
		 FROM bills
		 WHERE restaurant_id = $1 AND created_at >= $2 AND created_at < $3
		 GROUP BY sale_date
		 ORDER BY sale_date`,
		arg.RestaurantID, arg.StartAt, arg.EndAt, arg.TimeZone)
}

type GetItemSalesParams struct {
	RestaurantID uuid.UUID
	StartAt      time.Time
	EndAt        time.Time
	Limit        int32
}

type GetItemSalesRow struct {
	MenuItemID   uuid.UUID      `db:"menu_item_id"`
	Name         string         `db:"name"`
	CategoryName string         `db:"category_name"`
	QuantitySold int64          `db:"quantity_sold"`
	TotalRevenue pgtype.Numeric `db:"total_revenue"`
}

func (q *Queries) GetItemSales(ctx context.Context, arg GetItemSalesParams) ([]GetItemSalesRow, error) {
	return queryMany[GetItemSalesRow](ctx, q.db,
		`SELECT oi.menu_item_id, oi.name, oi.category_name,
		        SUM(oi.quantity)::bigint AS quantity_sold,
		        SUM(oi.quantity * oi.unit_price)::numeric(12,2) AS total_revenue
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 WHERE o.restaurant_id = $1 AND o.status = 'SETTLED'
		   AND o.closed_at >= $2 AND o.closed_at < $3
		   AND oi.quantity > 0
		 GROUP BY oi.menu_item_id, oi.name, oi.category_name
		 ORDER BY quantity_sold DESC, total_revenue DESC
		 LIMIT $4`,
		arg.RestaurantID, arg.StartAt, arg.EndAt, arg.Limit)
}

type GetPaymentSummaryParams struct {
	RestaurantID uuid.UUID
	StartAt      time.Time
	EndAt        time.Time
}

type GetPaymentSummaryRow struct {
	PaymentMethod string         `db:"payment_method"`
	BillCount     int64          `db:"bill_count"`
	TotalPaid     pgtype.Numeric `db:"total_paid"`
}

// GetPaymentSummary totals customer money collected in the range per
// payment method. A bill counts what was taken when it was settled:
// bills.paid_amount less whatever its receivable collected later, since
// receivable payments are added onto the bill. Those payments count under
// their own method on the day they were made. BillCount is the number of
// distinct bills that took money (or credit) by that method.
func (q *Queries) GetPaymentSummary(ctx context.Context, arg GetPaymentSummaryParams) ([]GetPaymentSummaryRow, error) {
	return queryMany[GetPaymentSummaryRow](ctx, q.db,
		`WITH collections AS (
		     SELECT b.payment_method, b.id AS bill_id,
		            b.paid_amount - COALESCE(pb.amount_settled, 0) AS amount
		     FROM bills b
		     LEFT JOIN pending_bills pb ON pb.source_type = 'BILL' AND pb.source_id = b.id
		     WHERE b.restaurant_id = $1 AND b.created_at >= $2 AND b.created_at < $3
		     UNION ALL
		     SELECT p.payment_method, pb.source_id AS bill_id, p.amount
		     FROM pending_bill_payments p
		     JOIN pending_bills pb ON pb.id = p.pending_bill_id
		     WHERE pb.restaurant_id = $1 AND pb.source_type = 'BILL'
		       AND p.created_at >= $2 AND p.created_at < $3
		 )
		 SELECT payment_method,
		        COUNT(DISTINCT bill_id) AS bill_count,
		        COALESCE(SUM(amount), 0)::numeric(12,2) AS total_paid
		 FROM collections
		 GROUP BY payment_method
		 ORDER BY total_paid DESC`,
		arg.RestaurantID, arg.StartAt, arg.EndAt)
}
