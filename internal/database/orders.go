package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, restaurant_id, order_number, order_type, table_id, customer_id, guests, notes, status, kot_count, created_by, created_at, updated_at, closed_at`

func (q *Queries) GetNextOrderNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx,
		`SELECT (COUNT(*) + 1)::int FROM orders WHERE restaurant_id = $1`, restaurantID).Scan(&n)
	return n, err
}

type CreateOrderParams struct {
	RestaurantID uuid.UUID
	OrderNumber  string
	OrderType    string
	TableID      pgtype.UUID
	CustomerID   pgtype.UUID
	Guests       int32
	Notes        pgtype.Text
	CreatedBy    uuid.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return queryOne[Order](ctx, q.db,
		`INSERT INTO orders (restaurant_id, order_number, order_type, table_id, customer_id, guests, notes, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+orderColumns,
		arg.RestaurantID, arg.OrderNumber, arg.OrderType, arg.TableID, arg.CustomerID, arg.Guests, arg.Notes, arg.CreatedBy)
}

type GetOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return queryOne[Order](ctx, q.db,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND restaurant_id = $2`,
		arg.ID, arg.RestaurantID)
}

// GetOrderForUpdate locks the order row so cart edits, sends and settlement
// of the same order serialize.
func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderParams) (Order, error) {
	return queryOne[Order](ctx, q.db,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND restaurant_id = $2 FOR UPDATE`,
		arg.ID, arg.RestaurantID)
}

type ListOrdersParams struct {
	RestaurantID uuid.UUID
	Status       pgtype.Text
	TableID      pgtype.UUID
	PendingOnly  bool
	Limit        int32
	Offset       int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	return queryMany[Order](ctx, q.db,
		`SELECT `+orderColumns+` FROM orders
		 WHERE restaurant_id = $1
		   AND ($2::text IS NULL OR status = $2)
		   AND ($3::uuid IS NULL OR table_id = $3)
		   AND (NOT $4::bool OR (table_id IS NULL AND status = 'OPEN'))
		 ORDER BY created_at DESC
		 LIMIT $5 OFFSET $6`,
		arg.RestaurantID, arg.Status, arg.TableID, arg.PendingOnly, arg.Limit, arg.Offset)
}

type UpdateOrderTableParams struct {
	ID        uuid.UUID
	TableID   pgtype.UUID
	OrderType string
}

func (q *Queries) UpdateOrderTable(ctx context.Context, arg UpdateOrderTableParams) (Order, error) {
	return queryOne[Order](ctx, q.db,
		`UPDATE orders SET table_id = $2, order_type = $3, updated_at = now()
		 WHERE id = $1 AND status = 'OPEN'
		 RETURNING `+orderColumns,
		arg.ID, arg.TableID, arg.OrderType)
}

type UpdateOrderCustomerParams struct {
	ID         uuid.UUID
	CustomerID pgtype.UUID
}

func (q *Queries) UpdateOrderCustomer(ctx context.Context, arg UpdateOrderCustomerParams) (Order, error) {
	return queryOne[Order](ctx, q.db,
		`UPDATE orders SET customer_id = $2, updated_at = now()
		 WHERE id = $1 AND status = 'OPEN'
		 RETURNING `+orderColumns,
		arg.ID, arg.CustomerID)
}

// IncrementOrderKotCount reserves the next ticket number for an order.
func (q *Queries) IncrementOrderKotCount(ctx context.Context, id uuid.UUID) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx,
		`UPDATE orders SET kot_count = kot_count + 1, updated_at = now()
		 WHERE id = $1
		 RETURNING kot_count`, id).Scan(&n)
	return n, err
}

type CloseOrderParams struct {
	ID     uuid.UUID
	Status string
}

// CloseOrder moves an OPEN order to SETTLED or CANCELLED.
func (q *Queries) CloseOrder(ctx context.Context, arg CloseOrderParams) (Order, error) {
	return queryOne[Order](ctx, q.db,
		`UPDATE orders SET status = $2, closed_at = now(), updated_at = now()
		 WHERE id = $1 AND status = 'OPEN'
		 RETURNING `+orderColumns,
		arg.ID, arg.Status)
}

const orderItemColumns = `id, order_id, menu_item_id, name, category_id, category_name, station, unit_price, quantity, sent_quantity, instructions, created_at, updated_at`

func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	return queryMany[OrderItem](ctx, q.db,
		`SELECT `+orderItemColumns+` FROM order_items
		 WHERE order_id = $1
		 ORDER BY created_at, id`, orderID)
}

type GetOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) GetOrderItem(ctx context.Context, arg GetOrderItemParams) (OrderItem, error) {
	return queryOne[OrderItem](ctx, q.db,
		`SELECT `+orderItemColumns+` FROM order_items WHERE id = $1 AND order_id = $2`,
		arg.ID, arg.OrderID)
}

type FindUnsentOrderItemParams struct {
	OrderID      uuid.UUID
	MenuItemID   uuid.UUID
	Instructions string
}

// FindUnsentOrderItem finds a line the kitchen has not seen yet that a new
// addition of the same item can merge into.
func (q *Queries) FindUnsentOrderItem(ctx context.Context, arg FindUnsentOrderItemParams) (OrderItem, error) {
	return queryOne[OrderItem](ctx, q.db,
		`SELECT `+orderItemColumns+` FROM order_items
		 WHERE order_id = $1 AND menu_item_id = $2 AND instructions = $3 AND sent_quantity = 0
		 ORDER BY created_at
		 LIMIT 1`,
		arg.OrderID, arg.MenuItemID, arg.Instructions)
}

type CreateOrderItemParams struct {
	OrderID      uuid.UUID
	MenuItemID   uuid.UUID
	Name         string
	CategoryID   uuid.UUID
	CategoryName string
	Station      string
	UnitPrice    pgtype.Numeric
	Quantity     int32
	Instructions string
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return queryOne[OrderItem](ctx, q.db,
		`INSERT INTO order_items (order_id, menu_item_id, name, category_id, category_name, station, unit_price, quantity, instructions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+orderItemColumns,
		arg.OrderID, arg.MenuItemID, arg.Name, arg.CategoryID, arg.CategoryName, arg.Station, arg.UnitPrice, arg.Quantity, arg.Instructions)
}

type UpdateOrderItemParams struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	Quantity     int32
	Instructions string
}

func (q *Queries) UpdateOrderItem(ctx context.Context, arg UpdateOrderItemParams) (OrderItem, error) {
	return queryOne[OrderItem](ctx, q.db,
		`UPDATE order_items SET quantity = $3, instructions = $4, updated_at = now()
		 WHERE id = $1 AND order_id = $2
		 RETURNING `+orderItemColumns,
		arg.ID, arg.OrderID, arg.Quantity, arg.Instructions)
}

type DeleteOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) DeleteOrderItem(ctx context.Context, arg DeleteOrderItemParams) error {
	_, err := q.db.Exec(ctx, `DELETE FROM order_items WHERE id = $1 AND order_id = $2`, arg.ID, arg.OrderID)
	return err
}

// ReconcileOrderItemsParams carries the cart state after a send. SentIDs and
// SentQuantities are parallel.
type ReconcileOrderItemsParams struct {
	OrderID        uuid.UUID
	SentIDs        []uuid.UUID
	SentQuantities []int32
	DroppedIDs     []uuid.UUID
}

// ReconcileOrderItems writes the sent quantities of the kept lines and
// deletes the dropped ones.
func (q *Queries) ReconcileOrderItems(ctx context.Context, arg ReconcileOrderItemsParams) error {
	if len(arg.SentIDs) > 0 {
		if _, err := q.db.Exec(ctx,
			`UPDATE order_items oi SET sent_quantity = v.sent, updated_at = now()
			 FROM unnest($2::uuid[], $3::int4[]) AS v(id, sent)
			 WHERE oi.order_id = $1 AND oi.id = v.id AND oi.sent_quantity <> v.sent`,
			arg.OrderID, arg.SentIDs, arg.SentQuantities); err != nil {
			return err
		}
	}
	if len(arg.DroppedIDs) > 0 {
		if _, err := q.db.Exec(ctx,
			`DELETE FROM order_items WHERE order_id = $1 AND id = ANY($2::uuid[])`,
			arg.OrderID, arg.DroppedIDs); err != nil {
			return err
		}
	}
	return nil
}

const kotColumns = `id, restaurant_id, order_id, ticket_number, group_name, kind, lines, created_by, created_at`

type CreateKotParams struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	TicketNumber int32
	GroupName    string
	Kind         string
	Lines        []byte
	CreatedBy    uuid.UUID
}

func (q *Queries) CreateKot(ctx context.Context, arg CreateKotParams) (Kot, error) {
	return queryOne[Kot](ctx, q.db,
		`INSERT INTO kots (restaurant_id, order_id, ticket_number, group_name, kind, lines, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+kotColumns,
		arg.RestaurantID, arg.OrderID, arg.TicketNumber, arg.GroupName, arg.Kind, arg.Lines, arg.CreatedBy)
}

func (q *Queries) ListKotsByOrder(ctx context.Context, orderID uuid.UUID) ([]Kot, error) {
	return queryMany[Kot](ctx, q.db,
		`SELECT `+kotColumns+` FROM kots WHERE order_id = $1 ORDER BY ticket_number, created_at`, orderID)
}
