package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/enum"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/events"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/kot"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/tablestate"
)

const (
	maxOrderNumberRetries = 3
	maxBillNumberRetries  = 3

	orderNumberConstraint  = "orders_restaurant_id_order_number_key"
	billNumberConstraint   = "bills_restaurant_id_bill_number_key"
	openOrderPerTableIndex = "orders_one_open_per_table"
)

// Errors returned by the order service.
var (
	ErrInvalidOrderType     = errors.New("invalid order_type")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrNegativeQuantity     = errors.New("quantity must be >= 0")
	ErrInvalidGuests        = errors.New("guests must be >= 0")
	ErrTableNotAllowed      = errors.New("only DINE_IN orders can be seated at a table")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderClosed          = errors.New("order is not open")
	ErrItemNotFound         = errors.New("order item not found")
	ErrMenuItemNotFound     = errors.New("menu item not found")
	ErrMenuItemUnavailable  = errors.New("menu item is not available")
	ErrSentInstructions     = errors.New("instructions cannot change once the item was sent to the kitchen")
	ErrTableNotFound        = errors.New("table not found")
	ErrTableBusy            = errors.New("table is not available")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrNothingToSend        = errors.New("nothing to send")
	ErrEmptyOrder           = errors.New("order has no items")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrInvalidAmount        = errors.New("amount must be a non-negative number")
	ErrInvalidDiscount      = errors.New("invalid discount_type")
	ErrInvalidDiscountValue = errors.New("invalid discount_value")
	ErrDiscountTooLarge     = errors.New("discount exceeds subtotal")
	ErrCustomerRequired     = errors.New("customer_id is required when the bill is not paid in full")
)

// OrderStore defines the DB methods the order lifecycle needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error)
	GetKotPreference(ctx context.Context, restaurantID uuid.UUID) (database.KotPreference, error)

	GetNextOrderNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	UpdateOrderTable(ctx context.Context, arg database.UpdateOrderTableParams) (database.Order, error)
	UpdateOrderCustomer(ctx context.Context, arg database.UpdateOrderCustomerParams) (database.Order, error)
	IncrementOrderKotCount(ctx context.Context, id uuid.UUID) (int32, error)
	CloseOrder(ctx context.Context, arg database.CloseOrderParams) (database.Order, error)

	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
	GetDiningTable(ctx context.Context, arg database.GetDiningTableParams) (database.DiningTable, error)
	UpdateDiningTableStatus(ctx context.Context, arg database.UpdateDiningTableStatusParams) (database.DiningTable, error)
	GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error)

	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	FindUnsentOrderItem(ctx context.Context, arg database.FindUnsentOrderItemParams) (database.OrderItem, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	UpdateOrderItem(ctx context.Context, arg database.UpdateOrderItemParams) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) error
	ReconcileOrderItems(ctx context.Context, arg database.ReconcileOrderItemsParams) error
	CreateKot(ctx context.Context, arg database.CreateKotParams) (database.Kot, error)

	GetNextBillNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error)
	CreateBill(ctx context.Context, arg database.CreateBillParams) (database.Bill, error)
	CreatePendingBill(ctx context.Context, arg database.CreatePendingBillParams) (database.PendingBill, error)

	ListRecipeUsageForOrder(ctx context.Context, orderID uuid.UUID) ([]database.RecipeUsageRow, error)
	AdjustIngredientStock(ctx context.Context, arg database.AdjustIngredientStockParams) (database.Ingredient, error)
	CreateInventoryMovement(ctx context.Context, arg database.CreateInventoryMovementParams) (database.InventoryMovement, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// OrderService runs the order lifecycle: cart edits, kitchen tickets and
// payout. Each operation is one transaction; notifications go out after
// commit.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	notify   Notifier
}

// NewOrderService creates a new OrderService. A nil notifier disables
// dispatch.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, notify Notifier) *OrderService {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &OrderService{pool: pool, newStore: newStore, notify: notify}
}

// OpenOrderRequest is the input for opening an order. TableID is uuid.Nil
// for pending orders.
type OpenOrderRequest struct {
	RestaurantID uuid.UUID
	CreatedBy    uuid.UUID
	OrderType    string
	TableID      uuid.UUID
	CustomerID   uuid.UUID
	Guests       int32
	Notes        string
}

func (r *OpenOrderRequest) normalize() error {
	if r.OrderType == "" {
		r.OrderType = enum.OrderTypeDineIn
	}
	if !enum.IsValidOrderType(r.OrderType) {
		return ErrInvalidOrderType
	}
	if r.TableID != uuid.Nil && r.OrderType != enum.OrderTypeDineIn {
		return ErrTableNotAllowed
	}
	if r.Guests < 0 {
		return ErrInvalidGuests
	}
	if r.Guests == 0 {
		r.Guests = 1
	}
	return nil
}

// orderOpener is the subset of a store needed to open an order. Shared with
// the reservation flow, which seats a booking by opening an order.
type orderOpener interface {
	tableMover
	GetNextOrderNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
}

// OpenOrder creates an OPEN order, seating its table when one is given.
// Retries up to maxOrderNumberRetries times when two terminals draw the same
// order number.
func (s *OrderService) OpenOrder(ctx context.Context, req OpenOrderRequest) (database.Order, error) {
	if err := req.normalize(); err != nil {
		return database.Order{}, err
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		order, changes, err := s.openOrderTx(ctx, req)
		if err == nil {
			s.notify.TablesChanged(ctx, changes)
			s.notify.OrderChanged(ctx, order, "")
			return order, nil
		}
		if isUniqueViolation(err, orderNumberConstraint) {
			lastErr = err
			continue
		}
		return database.Order{}, err
	}
	return database.Order{}, lastErr
}

func (s *OrderService) openOrderTx(ctx context.Context, req OpenOrderRequest) (database.Order, []TableChange, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	order, changes, err := openOrder(ctx, s.newStore(tx), req)
	if err != nil {
		return database.Order{}, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, nil, fmt.Errorf("commit tx: %w", err)
	}
	return order, changes, nil
}

func openOrder(ctx context.Context, store orderOpener, req OpenOrderRequest) (database.Order, []TableChange, error) {
	if req.CustomerID != uuid.Nil {
		if err := checkCustomer(ctx, store, req.RestaurantID, req.CustomerID); err != nil {
			return database.Order{}, nil, err
		}
	}

	var changes []TableChange
	if req.TableID != uuid.Nil {
		change, err := seatTable(ctx, store, req.RestaurantID, req.TableID)
		if err != nil {
			return database.Order{}, nil, err
		}
		changes = append(changes, change)
	}

	nextNum, err := store.GetNextOrderNumber(ctx, req.RestaurantID)
	if err != nil {
		return database.Order{}, nil, fmt.Errorf("get next order number: %w", err)
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		RestaurantID: req.RestaurantID,
		OrderNumber:  fmt.Sprintf("%04d", nextNum),
		OrderType:    req.OrderType,
		TableID:      optionalUUID(req.TableID),
		CustomerID:   optionalUUID(req.CustomerID),
		Guests:       req.Guests,
		Notes:        optionalText(req.Notes),
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		if isUniqueViolation(err, openOrderPerTableIndex) {
			return database.Order{}, nil, ErrTableBusy
		}
		return database.Order{}, nil, fmt.Errorf("create order: %w", err)
	}
	return order, changes, nil
}

func checkCustomer(ctx context.Context, store interface {
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
}, restaurantID, customerID uuid.UUID) error {
	_, err := store.GetCustomer(ctx, database.GetCustomerParams{ID: customerID, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCustomerNotFound
		}
		return fmt.Errorf("get customer: %w", err)
	}
	return nil
}

// tableMover is the subset of a store needed to drive a table's status.
type tableMover interface {
	GetDiningTable(ctx context.Context, arg database.GetDiningTableParams) (database.DiningTable, error)
	UpdateDiningTableStatus(ctx context.Context, arg database.UpdateDiningTableStatusParams) (database.DiningTable, error)
}

// moveTable applies ev to a table with a compare-and-set on its current
// status. Returns tablestate.ErrInvalidTransition when ev does not apply and
// ErrTableBusy when another transaction moved the table first.
func moveTable(ctx context.Context, store tableMover, restaurantID, tableID uuid.UUID, ev tablestate.Event) (TableChange, error) {
	table, err := store.GetDiningTable(ctx, database.GetDiningTableParams{ID: tableID, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TableChange{}, ErrTableNotFound
		}
		return TableChange{}, fmt.Errorf("get table: %w", err)
	}

	next, err := tablestate.Next(table.Status, ev)
	if err != nil {
		return TableChange{}, err
	}

	updated, err := store.UpdateDiningTableStatus(ctx, database.UpdateDiningTableStatusParams{
		ID:           table.ID,
		RestaurantID: restaurantID,
		Status:       next,
		FromStatus:   table.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TableChange{}, ErrTableBusy
		}
		return TableChange{}, fmt.Errorf("update table status: %w", err)
	}
	return TableChange{Table: updated, Previous: table.Status}, nil
}

// seatTable is moveTable(SEAT) where any table that cannot be seated is busy.
func seatTable(ctx context.Context, store tableMover, restaurantID, tableID uuid.UUID) (TableChange, error) {
	change, err := moveTable(ctx, store, restaurantID, tableID, tablestate.EventSeat)
	if errors.Is(err, tablestate.ErrInvalidTransition) {
		return TableChange{}, ErrTableBusy
	}
	return change, err
}

// leaveTable frees a table whose order is going away: FREE when the kitchen
// never saw anything, VACATE (to CLEANING) otherwise. A table already moved
// on by staff is left alone.
func leaveTable(ctx context.Context, store tableMover, restaurantID uuid.UUID, tableID pgtype.UUID, used bool) ([]TableChange, error) {
	if !tableID.Valid {
		return nil, nil
	}
	ev := tablestate.EventFree
	if used {
		ev = tablestate.EventVacate
	}
	change, err := moveTable(ctx, store, restaurantID, tableID.Bytes, ev)
	if err != nil {
		if errors.Is(err, tablestate.ErrInvalidTransition) || errors.Is(err, ErrTableNotFound) {
			zap.L().Warn("table not released", zap.String("table_id", uuid.UUID(tableID.Bytes).String()), zap.Error(err))
			return nil, nil
		}
		return nil, err
	}
	return []TableChange{change}, nil
}

func lockOpenOrder(ctx context.Context, store OrderStore, restaurantID, orderID uuid.UUID) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: orderID, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusOpen {
		return database.Order{}, ErrOrderClosed
	}
	return order, nil
}

// AddItemRequest adds a menu item to an open order.
type AddItemRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	MenuItemID   uuid.UUID
	Quantity     int32
	Instructions string
}

// AddItem snapshots the menu item onto the order. A line the kitchen has
// not seen yet with the same item and instructions absorbs the quantity.
func (s *OrderService) AddItem(ctx context.Context, req AddItemRequest) (database.OrderItem, error) {
	if req.Quantity <= 0 {
		return database.OrderItem{}, ErrInvalidQuantity
	}
	instructions := strings.TrimSpace(req.Instructions)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.OrderItem{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := lockOpenOrder(ctx, store, req.RestaurantID, req.OrderID)
	if err != nil {
		return database.OrderItem{}, err
	}

	mi, err := store.GetMenuItemForOrder(ctx, database.GetMenuItemForOrderParams{
		ID:           req.MenuItemID,
		RestaurantID: req.RestaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, ErrMenuItemNotFound
		}
		return database.OrderItem{}, fmt.Errorf("get menu item: %w", err)
	}
	if !mi.IsAvailable {
		return database.OrderItem{}, ErrMenuItemUnavailable
	}

	var item database.OrderItem
	existing, err := store.FindUnsentOrderItem(ctx, database.FindUnsentOrderItemParams{
		OrderID:      order.ID,
		MenuItemID:   mi.ID,
		Instructions: instructions,
	})
	switch {
	case err == nil:
		item, err = store.UpdateOrderItem(ctx, database.UpdateOrderItemParams{
			ID:           existing.ID,
			OrderID:      order.ID,
			Quantity:     existing.Quantity + req.Quantity,
			Instructions: existing.Instructions,
		})
		if err != nil {
			return database.OrderItem{}, fmt.Errorf("update order item: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		item, err = store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:      order.ID,
			MenuItemID:   mi.ID,
			Name:         mi.Name,
			CategoryID:   mi.CategoryID,
			CategoryName: mi.CategoryName,
			Station:      mi.Station,
			UnitPrice:    mi.Price,
			Quantity:     req.Quantity,
			Instructions: instructions,
		})
		if err != nil {
			return database.OrderItem{}, fmt.Errorf("create order item: %w", err)
		}
	default:
		return database.OrderItem{}, fmt.Errorf("find order item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.OrderItem{}, fmt.Errorf("commit tx: %w", err)
	}
	s.notify.OrderChanged(ctx, order, "")
	return item, nil
}

// UpdateItemRequest changes a line. A nil Instructions keeps the current
// value.
type UpdateItemRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	ItemID       uuid.UUID
	Quantity     int32
	Instructions *string
}

// UpdateItem sets a line's quantity. A line the kitchen never saw is deleted
// at zero; a sent line stays at zero until the VOID ticket goes out. The
// returned item is nil when the line was deleted.
func (s *OrderService) UpdateItem(ctx context.Context, req UpdateItemRequest) (*database.OrderItem, error) {
	if req.Quantity < 0 {
		return nil, ErrNegativeQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := lockOpenOrder(ctx, store, req.RestaurantID, req.OrderID)
	if err != nil {
		return nil, err
	}

	item, err := store.GetOrderItem(ctx, database.GetOrderItemParams{ID: req.ItemID, OrderID: order.ID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}

	instructions := item.Instructions
	if req.Instructions != nil {
		instructions = strings.TrimSpace(*req.Instructions)
	}
	if item.SentQuantity > 0 && instructions != item.Instructions {
		return nil, ErrSentInstructions
	}

	var result *database.OrderItem
	if req.Quantity == 0 && item.SentQuantity == 0 {
		if err := store.DeleteOrderItem(ctx, database.DeleteOrderItemParams{ID: item.ID, OrderID: order.ID}); err != nil {
			return nil, fmt.Errorf("delete order item: %w", err)
		}
	} else {
		updated, err := store.UpdateOrderItem(ctx, database.UpdateOrderItemParams{
			ID:           item.ID,
			OrderID:      order.ID,
			Quantity:     req.Quantity,
			Instructions: instructions,
		})
		if err != nil {
			return nil, fmt.Errorf("update order item: %w", err)
		}
		result = &updated
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	s.notify.OrderChanged(ctx, order, "")
	return result, nil
}

// RemoveItem is UpdateItem with quantity zero.
func (s *OrderService) RemoveItem(ctx context.Context, restaurantID, orderID, itemID uuid.UUID) error {
	_, err := s.UpdateItem(ctx, UpdateItemRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		ItemID:       itemID,
	})
	return err
}

// AssignTable seats a pending order or moves an order to another table.
func (s *OrderService) AssignTable(ctx context.Context, restaurantID, orderID, tableID uuid.UUID) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := lockOpenOrder(ctx, store, restaurantID, orderID)
	if err != nil {
		return database.Order{}, err
	}
	if order.TableID.Valid && order.TableID.Bytes == tableID {
		return order, nil
	}

	change, err := seatTable(ctx, store, restaurantID, tableID)
	if err != nil {
		return database.Order{}, err
	}
	changes := []TableChange{change}

	if order.TableID.Valid {
		items, err := store.ListOrderItems(ctx, order.ID)
		if err != nil {
			return database.Order{}, fmt.Errorf("list order items: %w", err)
		}
		left, err := leaveTable(ctx, store, restaurantID, order.TableID, anySent(items))
		if err != nil {
			return database.Order{}, err
		}
		changes = append(changes, left...)
	}

	order, err = store.UpdateOrderTable(ctx, database.UpdateOrderTableParams{
		ID:        order.ID,
		TableID:   optionalUUID(tableID),
		OrderType: enum.OrderTypeDineIn,
	})
	if err != nil {
		if isUniqueViolation(err, openOrderPerTableIndex) {
			return database.Order{}, ErrTableBusy
		}
		return database.Order{}, fmt.Errorf("update order table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	s.notify.TablesChanged(ctx, changes)
	s.notify.OrderChanged(ctx, order, "")
	return order, nil
}

// SendKOT sends everything the kitchen has not seen yet.
func (s *OrderService) SendKOT(ctx context.Context, restaurantID, orderID, staffID uuid.UUID) (TicketBatch, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return TicketBatch{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := lockOpenOrder(ctx, store, restaurantID, orderID)
	if err != nil {
		return TicketBatch{}, err
	}

	batch, err := s.newBatch(ctx, store, order)
	if err != nil {
		return TicketBatch{}, err
	}
	if err := s.flush(ctx, store, &batch, staffID); err != nil {
		return TicketBatch{}, err
	}
	if len(batch.Tickets) == 0 {
		return TicketBatch{}, ErrNothingToSend
	}

	if err := tx.Commit(ctx); err != nil {
		return TicketBatch{}, fmt.Errorf("commit tx: %w", err)
	}
	s.notify.TicketsSent(ctx, batch)
	s.notify.OrderChanged(ctx, order, "")
	return batch, nil
}

// ReprintKOT persists and dispatches REPRINT tickets for everything already
// sent. Line state does not change.
func (s *OrderService) ReprintKOT(ctx context.Context, restaurantID, orderID, staffID uuid.UUID) (TicketBatch, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return TicketBatch{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := lockOpenOrder(ctx, store, restaurantID, orderID)
	if err != nil {
		return TicketBatch{}, err
	}

	items, err := store.ListOrderItems(ctx, order.ID)
	if err != nil {
		return TicketBatch{}, fmt.Errorf("list order items: %w", err)
	}
	pref, err := loadPreference(ctx, store, restaurantID)
	if err != nil {
		return TicketBatch{}, err
	}
	tickets, err := kot.Reprint(cartItems(items), pref)
	if err != nil {
		return TicketBatch{}, err
	}
	if len(tickets) == 0 {
		return TicketBatch{}, ErrNothingToSend
	}

	batch, err := s.newBatch(ctx, store, order)
	if err != nil {
		return TicketBatch{}, err
	}
	if batch.Tickets, err = persistTickets(ctx, store, order, tickets, staffID); err != nil {
		return TicketBatch{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TicketBatch{}, fmt.Errorf("commit tx: %w", err)
	}
	s.notify.TicketsSent(ctx, batch)
	return batch, nil
}

// newBatch fills the header fields printers and displays need.
func (s *OrderService) newBatch(ctx context.Context, store OrderStore, order database.Order) (TicketBatch, error) {
	r, err := store.GetRestaurant(ctx, order.RestaurantID)
	if err != nil {
		return TicketBatch{}, fmt.Errorf("get restaurant: %w", err)
	}
	batch := TicketBatch{RestaurantID: r.ID, RestaurantName: r.Name, Order: order}
	if order.TableID.Valid {
		t, err := store.GetDiningTable(ctx, database.GetDiningTableParams{ID: order.TableID.Bytes, RestaurantID: order.RestaurantID})
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return TicketBatch{}, fmt.Errorf("get table: %w", err)
		}
		batch.TableName = t.Name
	}
	return batch, nil
}

// flush builds the pending delta into tickets, persists them and reconciles
// line state. A cart already in sync leaves batch.Tickets empty.
func (s *OrderService) flush(ctx context.Context, store OrderStore, batch *TicketBatch, staffID uuid.UUID) error {
	items, err := store.ListOrderItems(ctx, batch.Order.ID)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	cart := cartItems(items)
	if !kot.HasPending(cart) {
		return nil
	}

	pref, err := loadPreference(ctx, store, batch.RestaurantID)
	if err != nil {
		return err
	}
	tickets, err := kot.Build(cart, pref)
	if err != nil {
		return err
	}
	if len(tickets) > 0 {
		if batch.Tickets, err = persistTickets(ctx, store, batch.Order, tickets, staffID); err != nil {
			return err
		}
	}

	reconciled := kot.MarkSent(cart)
	if err := store.ReconcileOrderItems(ctx, reconcileParams(batch.Order.ID, cart, reconciled)); err != nil {
		return fmt.Errorf("reconcile order items: %w", err)
	}
	return nil
}

// reconcileParams turns a MarkSent result into row changes: kept lines take
// their new sent quantity and lines MarkSent dropped are deleted.
func reconcileParams(orderID uuid.UUID, before, after []kot.CartItem) database.ReconcileOrderItemsParams {
	p := database.ReconcileOrderItemsParams{OrderID: orderID}
	kept := make(map[uuid.UUID]bool, len(after))
	for _, it := range after {
		kept[it.ItemID] = true
		p.SentIDs = append(p.SentIDs, it.ItemID)
		p.SentQuantities = append(p.SentQuantities, it.SentQuantity)
	}
	for _, it := range before {
		if !kept[it.ItemID] {
			p.DroppedIDs = append(p.DroppedIDs, it.ItemID)
		}
	}
	return p
}

func persistTickets(ctx context.Context, store OrderStore, order database.Order, tickets []kot.Ticket, staffID uuid.UUID) ([]SentTicket, error) {
	sent := make([]SentTicket, 0, len(tickets))
	for i, t := range tickets {
		number, err := store.IncrementOrderKotCount(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("ticket[%d]: next ticket number: %w", i, err)
		}
		lines, err := json.Marshal(t.Lines)
		if err != nil {
			return nil, fmt.Errorf("ticket[%d]: encode lines: %w", i, err)
		}
		k, err := store.CreateKot(ctx, database.CreateKotParams{
			RestaurantID: order.RestaurantID,
			OrderID:      order.ID,
			TicketNumber: number,
			GroupName:    t.Group,
			Kind:         string(t.Kind),
			Lines:        lines,
			CreatedBy:    staffID,
		})
		if err != nil {
			return nil, fmt.Errorf("ticket[%d]: create kot: %w", i, err)
		}
		sent = append(sent, SentTicket{Kot: k, Ticket: t})
	}
	return sent, nil
}

// loadPreference falls back to the default until the restaurant saves one.
func loadPreference(ctx context.Context, store interface {
	GetKotPreference(ctx context.Context, restaurantID uuid.UUID) (database.KotPreference, error)
}, restaurantID uuid.UUID) (kot.Preference, error) {
	row, err := store.GetKotPreference(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return kot.DefaultPreference(), nil
		}
		return kot.Preference{}, fmt.Errorf("get kot preference: %w", err)
	}
	return PreferenceFromRow(row)
}

// PreferenceFromRow decodes a stored KOT preference.
func PreferenceFromRow(row database.KotPreference) (kot.Preference, error) {
	pref := kot.Preference{
		Mode:         kot.Mode(row.Mode),
		DefaultGroup: row.DefaultGroup,
		GroupOrder:   row.GroupOrder,
	}
	if len(row.CategoryGroups) > 0 {
		if err := json.Unmarshal(row.CategoryGroups, &pref.CategoryGroups); err != nil {
			return kot.Preference{}, fmt.Errorf("decode category groups: %w", err)
		}
	}
	return pref, nil
}

func cartItems(items []database.OrderItem) []kot.CartItem {
	out := make([]kot.CartItem, 0, len(items))
	for _, it := range items {
		out = append(out, kot.CartItem{
			Line: kot.Line{
				ItemID:       it.ID,
				MenuItemID:   it.MenuItemID,
				Name:         it.Name,
				CategoryID:   it.CategoryID,
				CategoryName: it.CategoryName,
				Station:      it.Station,
				Quantity:     it.Quantity,
				Instructions: it.Instructions,
			},
			SentQuantity: it.SentQuantity,
		})
	}
	return out
}

func anySent(items []database.OrderItem) bool {
	for _, it := range items {
		if it.SentQuantity > 0 {
			return true
		}
	}
	return false
}

// SettleRequest is the payout input. An empty PaidAmount pays the total in
// full, except for CREDIT which defaults to nothing paid.
type SettleRequest struct {
	RestaurantID  uuid.UUID
	OrderID       uuid.UUID
	StaffID       uuid.UUID
	PaymentMethod string
	PaidAmount    string
	DiscountType  string
	DiscountValue string
	CustomerID    uuid.UUID
}

// SettleResult is the closed order and everything settlement produced.
type SettleResult struct {
	Order       database.Order
	Bill        database.Bill
	Change      decimal.Decimal
	Tickets     TicketBatch
	PendingBill *database.PendingBill
	LowStock    []database.Ingredient
}

// Settle closes an order: flushes any unsent delta as a final KOT, bills it,
// deducts stock by recipe and sends the table to cleaning. An unpaid balance
// becomes a receivable for the order's customer.
func (s *OrderService) Settle(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	if !enum.IsValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	tendered, err := parseTendered(req.PaidAmount, req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if req.DiscountType != "" && req.DiscountType != enum.DiscountTypePercentage && req.DiscountType != enum.DiscountTypeFixed {
		return nil, ErrInvalidDiscount
	}

	var lastErr error
	for attempt := 0; attempt < maxBillNumberRetries; attempt++ {
		result, changes, err := s.settleTx(ctx, req, tendered)
		if err == nil {
			s.notify.TicketsSent(ctx, result.Tickets)
			s.notify.TablesChanged(ctx, changes)
			s.notify.OrderChanged(ctx, result.Order, events.EventOrderSettled)
			return result, nil
		}
		if isUniqueViolation(err, billNumberConstraint) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// parseTendered returns nil when the amount should default to the total.
func parseTendered(s, method string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if method == enum.PaymentMethodCredit {
			zero := decimal.Zero
			return &zero, nil
		}
		return nil, nil
	}
	d, err := parseCents(s)
	if err != nil || d.IsNegative() {
		return nil, ErrInvalidAmount
	}
	return &d, nil
}

func (s *OrderService) settleTx(ctx context.Context, req SettleRequest, tendered *decimal.Decimal) (*SettleResult, []TableChange, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := lockOpenOrder(ctx, store, req.RestaurantID, req.OrderID)
	if err != nil {
		return nil, nil, err
	}

	// --- Attach customer ---
	if req.CustomerID != uuid.Nil && (!order.CustomerID.Valid || order.CustomerID.Bytes != req.CustomerID) {
		if err := checkCustomer(ctx, store, req.RestaurantID, req.CustomerID); err != nil {
			return nil, nil, err
		}
		order, err = store.UpdateOrderCustomer(ctx, database.UpdateOrderCustomerParams{
			ID:         order.ID,
			CustomerID: optionalUUID(req.CustomerID),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("update order customer: %w", err)
		}
	}

	// --- Final KOT for anything unsent ---
	batch, err := s.newBatch(ctx, store, order)
	if err != nil {
		return nil, nil, err
	}
	if err := s.flush(ctx, store, &batch, req.StaffID); err != nil {
		return nil, nil, err
	}

	// --- Totals ---
	items, err := store.ListOrderItems(ctx, order.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list order items: %w", err)
	}
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(numericToDecimal(it.UnitPrice).Mul(decimal.NewFromInt32(it.Quantity)))
	}
	if len(items) == 0 {
		return nil, nil, ErrEmptyOrder
	}
	discount, err := discountAmount(subtotal, req.DiscountType, req.DiscountValue)
	if err != nil {
		return nil, nil, err
	}
	restaurant, err := store.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, nil, fmt.Errorf("get restaurant: %w", err)
	}
	totals := computeTotals(subtotal, discount, numericToDecimal(restaurant.TaxRate), tendered)
	if totals.Outstanding.IsPositive() && !order.CustomerID.Valid {
		return nil, nil, ErrCustomerRequired
	}

	// --- Bill ---
	nextNum, err := store.GetNextBillNumber(ctx, req.RestaurantID)
	if err != nil {
		return nil, nil, fmt.Errorf("get next bill number: %w", err)
	}
	bill, err := store.CreateBill(ctx, database.CreateBillParams{
		RestaurantID:  req.RestaurantID,
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		BillNumber:    fmt.Sprintf("INV-%05d", nextNum),
		Subtotal:      decimalToNumeric(totals.Subtotal),
		Discount:      decimalToNumeric(totals.Discount),
		Tax:           decimalToNumeric(totals.Tax),
		Total:         decimalToNumeric(totals.Total),
		PaidAmount:    decimalToNumeric(totals.Paid),
		PaymentMethod: req.PaymentMethod,
		Status:        totals.Status,
		CreatedBy:     req.StaffID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create bill: %w", err)
	}

	// --- Inventory ---
	lowStock, err := deductStock(ctx, store, order, req.StaffID)
	if err != nil {
		return nil, nil, err
	}

	// --- Close order and table ---
	order, err = store.CloseOrder(ctx, database.CloseOrderParams{ID: order.ID, Status: enum.OrderStatusSettled})
	if err != nil {
		return nil, nil, fmt.Errorf("close order: %w", err)
	}
	changes, err := leaveTable(ctx, store, req.RestaurantID, order.TableID, true)
	if err != nil {
		return nil, nil, err
	}

	// --- Receivable ---
	var pending *database.PendingBill
	if totals.Outstanding.IsPositive() {
		pb, err := store.CreatePendingBill(ctx, database.CreatePendingBillParams{
			RestaurantID: req.RestaurantID,
			PartyType:    enum.PartyTypeCustomer,
			PartyID:      order.CustomerID.Bytes,
			SourceType:   enum.SourceTypeBill,
			SourceID:     bill.ID,
			AmountDue:    decimalToNumeric(totals.Outstanding),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create pending bill: %w", err)
		}
		pending = &pb
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}

	batch.Order = order
	return &SettleResult{
		Order:       order,
		Bill:        bill,
		Change:      totals.Change,
		Tickets:     batch,
		PendingBill: pending,
		LowStock:    lowStock,
	}, changes, nil
}

type billTotals struct {
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
	Paid        decimal.Decimal
	Change      decimal.Decimal
	Outstanding decimal.Decimal
	Status      string
}

func discountAmount(subtotal decimal.Decimal, discountType, value string) (decimal.Decimal, error) {
	if discountType == "" {
		return decimal.Zero, nil
	}
	dv, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil || dv.IsNegative() {
		return decimal.Zero, ErrInvalidDiscountValue
	}

	var amount decimal.Decimal
	switch discountType {
	case enum.DiscountTypePercentage:
		if dv.GreaterThan(decimal.NewFromInt(100)) {
			return decimal.Zero, ErrInvalidDiscountValue
		}
		amount = subtotal.Mul(dv).Div(decimal.NewFromInt(100))
	case enum.DiscountTypeFixed:
		amount = dv
	default:
		return decimal.Zero, ErrInvalidDiscount
	}
	amount = amount.Round(2)
	if amount.GreaterThan(subtotal) {
		return decimal.Zero, ErrDiscountTooLarge
	}
	return amount, nil
}

// computeTotals applies tax after discount. Tendered beyond the total is
// returned as change; a nil tendered pays the total exactly.
func computeTotals(subtotal, discount, taxRate decimal.Decimal, tendered *decimal.Decimal) billTotals {
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate).Div(decimal.NewFromInt(100)).Round(2)
	total := taxable.Add(tax)

	paid := total
	if tendered != nil {
		paid = *tendered
	}
	change := decimal.Zero
	if paid.GreaterThan(total) {
		change = paid.Sub(total)
		paid = total
	}

	status := enum.BillStatusUnpaid
	switch {
	case paid.GreaterThanOrEqual(total):
		status = enum.BillStatusPaid
	case paid.IsPositive():
		status = enum.BillStatusPartial
	}

	return billTotals{
		Subtotal:    subtotal,
		Discount:    discount,
		Tax:         tax,
		Total:       total,
		Paid:        paid,
		Change:      change,
		Outstanding: total.Sub(paid),
		Status:      status,
	}
}

// deductStock books a SALE movement per recipe ingredient and returns the
// ingredients that ended at or below their threshold. Stock may go negative.
func deductStock(ctx context.Context, store OrderStore, order database.Order, staffID uuid.UUID) ([]database.Ingredient, error) {
	usage, err := store.ListRecipeUsageForOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list recipe usage: %w", err)
	}

	var low []database.Ingredient
	for _, u := range usage {
		used := numericToDecimal(u.Quantity)
		if !used.IsPositive() {
			continue
		}
		ing, err := store.AdjustIngredientStock(ctx, database.AdjustIngredientStockParams{
			ID:           u.IngredientID,
			RestaurantID: order.RestaurantID,
			Delta:        quantityToNumeric(used.Neg()),
		})
		if err != nil {
			return nil, fmt.Errorf("adjust stock %s: %w", u.IngredientID, err)
		}
		if _, err := store.CreateInventoryMovement(ctx, database.CreateInventoryMovementParams{
			RestaurantID: order.RestaurantID,
			IngredientID: u.IngredientID,
			Kind:         enum.MovementSale,
			Quantity:     quantityToNumeric(used.Neg()),
			ReferenceID:  optionalUUID(order.ID),
			Note:         optionalText("order " + order.OrderNumber),
			CreatedBy:    optionalUUID(staffID),
		}); err != nil {
			return nil, fmt.Errorf("record movement %s: %w", u.IngredientID, err)
		}
		if numericToDecimal(ing.Stock).LessThanOrEqual(numericToDecimal(ing.LowStockThreshold)) {
			low = append(low, ing)
		}
	}
	return low, nil
}

// Cancel closes an open order without billing. Lines the kitchen already
// has are voided with VOID tickets.
func (s *OrderService) Cancel(ctx context.Context, restaurantID, orderID, staffID uuid.UUID) (database.Order, TicketBatch, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, TicketBatch{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := lockOpenOrder(ctx, store, restaurantID, orderID)
	if err != nil {
		return database.Order{}, TicketBatch{}, err
	}

	items, err := store.ListOrderItems(ctx, order.ID)
	if err != nil {
		return database.Order{}, TicketBatch{}, fmt.Errorf("list order items: %w", err)
	}
	sent := anySent(items)

	batch, err := s.newBatch(ctx, store, order)
	if err != nil {
		return database.Order{}, TicketBatch{}, err
	}
	if sent {
		cart := cartItems(items)
		for i := range cart {
			cart[i].Quantity = 0
		}
		pref, err := loadPreference(ctx, store, restaurantID)
		if err != nil {
			return database.Order{}, TicketBatch{}, err
		}
		tickets, err := kot.Build(cart, pref)
		if err != nil {
			return database.Order{}, TicketBatch{}, err
		}
		if batch.Tickets, err = persistTickets(ctx, store, order, tickets, staffID); err != nil {
			return database.Order{}, TicketBatch{}, err
		}
	}

	order, err = store.CloseOrder(ctx, database.CloseOrderParams{ID: order.ID, Status: enum.OrderStatusCancelled})
	if err != nil {
		return database.Order{}, TicketBatch{}, fmt.Errorf("close order: %w", err)
	}
	changes, err := leaveTable(ctx, store, restaurantID, order.TableID, sent)
	if err != nil {
		return database.Order{}, TicketBatch{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, TicketBatch{}, fmt.Errorf("commit tx: %w", err)
	}
	batch.Order = order
	s.notify.TicketsSent(ctx, batch)
	s.notify.TablesChanged(ctx, changes)
	s.notify.OrderChanged(ctx, order, events.EventOrderCancelled)
	return order, batch, nil
}
