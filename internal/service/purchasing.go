package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/enum"
)

const purchaseExpenseCategory = "Purchases"

// Errors returned by the purchasing service.
var (
	ErrEmptyVendorOrder        = errors.New("lines are required")
	ErrVendorOrderNotFound     = errors.New("vendor order not found")
	ErrInvalidVendorTransition = errors.New("invalid vendor order status transition")
	ErrIngredientNotFound      = errors.New("ingredient not found")
	ErrLineDescription         = errors.New("description or ingredient_id is required")
	ErrInvalidUnitCost         = errors.New("unit_cost must be >= 0")
)

// vendorOrderTransitions lists where each status may go.
var vendorOrderTransitions = map[string][]string{
	enum.VendorOrderStatusDraft: {enum.VendorOrderStatusSent, enum.VendorOrderStatusCancelled},
	enum.VendorOrderStatusSent:  {enum.VendorOrderStatusReceived, enum.VendorOrderStatusCancelled},
}

func canMoveVendorOrder(from, to string) bool {
	for _, s := range vendorOrderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PurchasingStore defines the DB methods for vendor ordering.
// Satisfied by *database.Queries.
type PurchasingStore interface {
	GetVendor(ctx context.Context, arg database.GetVendorParams) (database.Vendor, error)
	GetIngredient(ctx context.Context, arg database.GetIngredientParams) (database.Ingredient, error)

	CreateVendorOrder(ctx context.Context, arg database.CreateVendorOrderParams) (database.VendorOrder, error)
	CreateVendorOrderLine(ctx context.Context, arg database.CreateVendorOrderLineParams) (database.VendorOrderLine, error)
	UpdateVendorOrderTotal(ctx context.Context, id uuid.UUID) (database.VendorOrder, error)
	GetVendorOrder(ctx context.Context, arg database.GetVendorOrderParams) (database.VendorOrder, error)
	ListVendorOrderLines(ctx context.Context, vendorOrderID uuid.UUID) ([]database.VendorOrderLine, error)
	UpdateVendorOrderStatus(ctx context.Context, arg database.UpdateVendorOrderStatusParams) (database.VendorOrder, error)

	AdjustIngredientStock(ctx context.Context, arg database.AdjustIngredientStockParams) (database.Ingredient, error)
	CreateInventoryMovement(ctx context.Context, arg database.CreateInventoryMovementParams) (database.InventoryMovement, error)
	CreateExpense(ctx context.Context, arg database.CreateExpenseParams) (database.Expense, error)
	CreatePendingBill(ctx context.Context, arg database.CreatePendingBillParams) (database.PendingBill, error)
}

// NewPurchasingStore creates a PurchasingStore from a DBTX (pool or tx).
type NewPurchasingStore func(db database.DBTX) PurchasingStore

// PurchasingService runs vendor orders from draft to received stock.
type PurchasingService struct {
	pool     TxBeginner
	newStore NewPurchasingStore
}

func NewPurchasingService(pool TxBeginner, newStore NewPurchasingStore) *PurchasingService {
	return &PurchasingService{pool: pool, newStore: newStore}
}

// VendorOrderLineRequest is one line of a vendor order. Ingredient lines
// default their description and unit from the ingredient.
type VendorOrderLineRequest struct {
	IngredientID uuid.UUID
	Description  string
	Quantity     string
	Unit         string
	UnitCost     string
}

// CreateVendorOrderRequest is the input for drafting a vendor order.
type CreateVendorOrderRequest struct {
	RestaurantID uuid.UUID
	VendorID     uuid.UUID
	CreatedBy    uuid.UUID
	Notes        string
	ExpectedDate *time.Time
	Lines        []VendorOrderLineRequest
}

// VendorOrderResult is a vendor order with its lines.
type VendorOrderResult struct {
	Order database.VendorOrder
	Lines []database.VendorOrderLine
}

// CreateVendorOrder drafts a vendor order.
func (s *PurchasingService) CreateVendorOrder(ctx context.Context, req CreateVendorOrderRequest) (*VendorOrderResult, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyVendorOrder
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if _, err := store.GetVendor(ctx, database.GetVendorParams{ID: req.VendorID, RestaurantID: req.RestaurantID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("get vendor: %w", err)
	}

	// --- Validate lines before writing anything ---
	params := make([]database.CreateVendorOrderLineParams, 0, len(req.Lines))
	for i, l := range req.Lines {
		p, err := s.lineParams(ctx, store, req.RestaurantID, l)
		if err != nil {
			return nil, fmt.Errorf("line[%d]: %w", i, err)
		}
		params = append(params, p)
	}

	expected := pgtype.Date{}
	if req.ExpectedDate != nil {
		expected = pgtype.Date{Time: *req.ExpectedDate, Valid: true}
	}
	order, err := store.CreateVendorOrder(ctx, database.CreateVendorOrderParams{
		RestaurantID: req.RestaurantID,
		VendorID:     req.VendorID,
		Notes:        optionalText(req.Notes),
		ExpectedDate: expected,
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create vendor order: %w", err)
	}

	result := &VendorOrderResult{}
	for i, p := range params {
		p.VendorOrderID = order.ID
		line, err := store.CreateVendorOrderLine(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("line[%d]: create: %w", i, err)
		}
		result.Lines = append(result.Lines, line)
	}

	result.Order, err = store.UpdateVendorOrderTotal(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("update total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

func (s *PurchasingService) lineParams(ctx context.Context, store PurchasingStore, restaurantID uuid.UUID, l VendorOrderLineRequest) (database.CreateVendorOrderLineParams, error) {
	qty, err := decimal.NewFromString(strings.TrimSpace(l.Quantity))
	if err != nil || !qty.IsPositive() {
		return database.CreateVendorOrderLineParams{}, ErrInvalidQuantity
	}
	cost := decimal.Zero
	if strings.TrimSpace(l.UnitCost) != "" {
		cost, err = decimal.NewFromString(strings.TrimSpace(l.UnitCost))
		if err != nil || cost.IsNegative() {
			return database.CreateVendorOrderLineParams{}, ErrInvalidUnitCost
		}
	}

	desc := strings.TrimSpace(l.Description)
	unit := strings.TrimSpace(l.Unit)
	if l.IngredientID != uuid.Nil {
		ing, err := store.GetIngredient(ctx, database.GetIngredientParams{ID: l.IngredientID, RestaurantID: restaurantID})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.CreateVendorOrderLineParams{}, ErrIngredientNotFound
			}
			return database.CreateVendorOrderLineParams{}, fmt.Errorf("get ingredient: %w", err)
		}
		if desc == "" {
			desc = ing.Name
		}
		if unit == "" {
			unit = ing.Unit
		}
	}
	if desc == "" {
		return database.CreateVendorOrderLineParams{}, ErrLineDescription
	}

	return database.CreateVendorOrderLineParams{
		IngredientID: optionalUUID(l.IngredientID),
		Description:  desc,
		Quantity:     quantityToNumeric(qty),
		Unit:         unit,
		UnitCost:     decimalToNumeric(cost),
	}, nil
}

// SendVendorOrder marks a draft as sent to the vendor.
func (s *PurchasingService) SendVendorOrder(ctx context.Context, restaurantID, id uuid.UUID) (database.VendorOrder, error) {
	return s.transition(ctx, restaurantID, id, enum.VendorOrderStatusSent)
}

// CancelVendorOrder cancels an order that has not been received.
func (s *PurchasingService) CancelVendorOrder(ctx context.Context, restaurantID, id uuid.UUID) (database.VendorOrder, error) {
	return s.transition(ctx, restaurantID, id, enum.VendorOrderStatusCancelled)
}

func (s *PurchasingService) transition(ctx context.Context, restaurantID, id uuid.UUID, to string) (database.VendorOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.VendorOrder{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	order, err := moveVendorOrder(ctx, s.newStore(tx), restaurantID, id, to)
	if err != nil {
		return database.VendorOrder{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return database.VendorOrder{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

func moveVendorOrder(ctx context.Context, store PurchasingStore, restaurantID, id uuid.UUID, to string) (database.VendorOrder, error) {
	order, err := store.GetVendorOrder(ctx, database.GetVendorOrderParams{ID: id, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.VendorOrder{}, ErrVendorOrderNotFound
		}
		return database.VendorOrder{}, fmt.Errorf("get vendor order: %w", err)
	}
	if !canMoveVendorOrder(order.Status, to) {
		return database.VendorOrder{}, fmt.Errorf("%w: %s -> %s", ErrInvalidVendorTransition, order.Status, to)
	}
	updated, err := store.UpdateVendorOrderStatus(ctx, database.UpdateVendorOrderStatusParams{
		ID:         order.ID,
		Status:     to,
		FromStatus: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.VendorOrder{}, fmt.Errorf("%w: changed concurrently", ErrInvalidVendorTransition)
		}
		return database.VendorOrder{}, fmt.Errorf("update vendor order status: %w", err)
	}
	return updated, nil
}

// ReceiveRequest books the delivery of a vendor order. An empty PaidAmount
// means paid in full on delivery.
type ReceiveRequest struct {
	RestaurantID  uuid.UUID
	VendorOrderID uuid.UUID
	StaffID       uuid.UUID
	PaidAmount    string
	Category      string
}

// ReceiveResult is the received order, the expense booked for it and the
// payable opened when not paid in full.
type ReceiveResult struct {
	Order       database.VendorOrder
	Lines       []database.VendorOrderLine
	Expense     *database.Expense
	PendingBill *database.PendingBill
	Restocked   []database.Ingredient
}

// ReceiveVendorOrder adds ingredient lines to stock with PURCHASE movements
// and books the order total as an expense against the vendor.
func (s *PurchasingService) ReceiveVendorOrder(ctx context.Context, req ReceiveRequest) (*ReceiveResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := moveVendorOrder(ctx, store, req.RestaurantID, req.VendorOrderID, enum.VendorOrderStatusReceived)
	if err != nil {
		return nil, err
	}
	lines, err := store.ListVendorOrderLines(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	result := &ReceiveResult{Order: order, Lines: lines}

	// --- Stock ---
	for i, l := range lines {
		if !l.IngredientID.Valid {
			continue
		}
		ing, err := store.AdjustIngredientStock(ctx, database.AdjustIngredientStockParams{
			ID:           l.IngredientID.Bytes,
			RestaurantID: req.RestaurantID,
			Delta:        l.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("line[%d]: adjust stock: %w", i, err)
		}
		if _, err := store.CreateInventoryMovement(ctx, database.CreateInventoryMovementParams{
			RestaurantID: req.RestaurantID,
			IngredientID: ing.ID,
			Kind:         enum.MovementPurchase,
			Quantity:     l.Quantity,
			ReferenceID:  optionalUUID(order.ID),
			Note:         optionalText(l.Description),
			CreatedBy:    optionalUUID(req.StaffID),
		}); err != nil {
			return nil, fmt.Errorf("line[%d]: record movement: %w", i, err)
		}
		result.Restocked = append(result.Restocked, ing)
	}

	// --- Expense ---
	total := numericToDecimal(order.Total)
	if total.IsPositive() {
		paid := total
		if strings.TrimSpace(req.PaidAmount) != "" {
			paid, err = parseCents(req.PaidAmount)
			if err != nil || paid.IsNegative() {
				return nil, ErrInvalidAmount
			}
			if paid.GreaterThan(total) {
				return nil, ErrPaidExceedsAmount
			}
		}
		category := req.Category
		if strings.TrimSpace(category) == "" {
			category = purchaseExpenseCategory
		}
		booked, err := bookExpense(ctx, store, CreateExpenseRequest{
			RestaurantID:  req.RestaurantID,
			CreatedBy:     req.StaffID,
			VendorID:      order.VendorID,
			Category:      category,
			Description:   "Vendor order received",
			VendorOrderID: order.ID,
		}, total, paid)
		if err != nil {
			return nil, err
		}
		result.Expense = &booked.Expense
		result.PendingBill = booked.PendingBill
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}
