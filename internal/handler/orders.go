package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	OpenOrder(ctx context.Context, req service.OpenOrderRequest) (database.Order, error)
	AddItem(ctx context.Context, req service.AddItemRequest) (database.OrderItem, error)
	UpdateItem(ctx context.Context, req service.UpdateItemRequest) (*database.OrderItem, error)
	RemoveItem(ctx context.Context, restaurantID, orderID, itemID uuid.UUID) error
	AssignTable(ctx context.Context, restaurantID, orderID, tableID uuid.UUID) (database.Order, error)
	SendKOT(ctx context.Context, restaurantID, orderID, staffID uuid.UUID) (service.TicketBatch, error)
	ReprintKOT(ctx context.Context, restaurantID, orderID, staffID uuid.UUID) (service.TicketBatch, error)
	Settle(ctx context.Context, req service.SettleRequest) (*service.SettleResult, error)
	Cancel(ctx context.Context, restaurantID, orderID, staffID uuid.UUID) (database.Order, service.TicketBatch, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListKotsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Kot, error)
	GetBillByOrder(ctx context.Context, orderID uuid.UUID) (database.Bill, error)
}

// OrderHandler handles the order lifecycle: cart edits, KOTs, settlement
// and cancellation.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Open)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/items", h.AddItem)
	r.Patch("/{id}/items/{itemId}", h.UpdateItem)
	r.Delete("/{id}/items/{itemId}", h.RemoveItem)
	r.Post("/{id}/assign-table", h.AssignTable)
	r.Post("/{id}/kot", h.SendKOT)
	r.Post("/{id}/kot/reprint", h.ReprintKOT)
	r.Post("/{id}/settle", h.Settle)
	r.Post("/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type openOrderRequest struct {
	OrderType  string `json:"order_type"`
	TableID    string `json:"table_id"`
	CustomerID string `json:"customer_id"`
	Guests     int32  `json:"guests"`
	Notes      string `json:"notes"`
}

type addItemRequest struct {
	MenuItemID   string `json:"menu_item_id"`
	Quantity     int32  `json:"quantity"`
	Instructions string `json:"instructions"`
}

type updateItemRequest struct {
	Quantity     *int32  `json:"quantity"`
	Instructions *string `json:"instructions"`
}

type assignTableRequest struct {
	TableID string `json:"table_id"`
}

type settleRequest struct {
	PaymentMethod string `json:"payment_method"`
	PaidAmount    string `json:"paid_amount"`
	DiscountType  string `json:"discount_type"`
	DiscountValue string `json:"discount_value"`
	CustomerID    string `json:"customer_id"`
}

type orderResponse struct {
	ID          uuid.UUID  `json:"id"`
	OrderNumber string     `json:"order_number"`
	OrderType   string     `json:"order_type"`
	TableID     *uuid.UUID `json:"table_id"`
	CustomerID  *uuid.UUID `json:"customer_id"`
	Guests      int32      `json:"guests"`
	Notes       *string    `json:"notes"`
	Status      string     `json:"status"`
	KotCount    int32      `json:"kot_count"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at"`
}

func toOrderResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		OrderType:   o.OrderType,
		TableID:     uuidPtr(o.TableID),
		CustomerID:  uuidPtr(o.CustomerID),
		Guests:      o.Guests,
		Notes:       textPtr(o.Notes),
		Status:      o.Status,
		KotCount:    o.KotCount,
		CreatedBy:   o.CreatedBy,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		ClosedAt:    timestampPtr(o.ClosedAt),
	}
}

type orderItemResponse struct {
	ID              uuid.UUID `json:"id"`
	MenuItemID      uuid.UUID `json:"menu_item_id"`
	Name            string    `json:"name"`
	CategoryName    string    `json:"category_name"`
	Station         string    `json:"station"`
	UnitPrice       string    `json:"unit_price"`
	Quantity        int32     `json:"quantity"`
	SentQuantity    int32     `json:"sent_quantity"`
	PendingQuantity int32     `json:"pending_quantity"`
	Instructions    string    `json:"instructions"`
	LineTotal       string    `json:"line_total"`
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	price := numericToDecimal(it.UnitPrice)
	return orderItemResponse{
		ID:              it.ID,
		MenuItemID:      it.MenuItemID,
		Name:            it.Name,
		CategoryName:    it.CategoryName,
		Station:         it.Station,
		UnitPrice:       price.StringFixed(2),
		Quantity:        it.Quantity,
		SentQuantity:    it.SentQuantity,
		PendingQuantity: it.Quantity - it.SentQuantity,
		Instructions:    it.Instructions,
		LineTotal:       price.Mul(decimalFromInt(it.Quantity)).StringFixed(2),
	}
}

type kotResponse struct {
	ID           uuid.UUID       `json:"id"`
	TicketNumber int32           `json:"ticket_number"`
	Group        string          `json:"group"`
	Kind         string          `json:"kind"`
	Lines        json.RawMessage `json:"lines"`
	CreatedBy    uuid.UUID       `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toKotResponse(k database.Kot) kotResponse {
	lines := json.RawMessage(k.Lines)
	if len(lines) == 0 {
		lines = json.RawMessage("[]")
	}
	return kotResponse{
		ID:           k.ID,
		TicketNumber: k.TicketNumber,
		Group:        k.GroupName,
		Kind:         k.Kind,
		Lines:        lines,
		CreatedBy:    k.CreatedBy,
		CreatedAt:    k.CreatedAt,
	}
}

func toTicketResponses(batch service.TicketBatch) []kotResponse {
	resp := make([]kotResponse, len(batch.Tickets))
	for i, st := range batch.Tickets {
		resp[i] = toKotResponse(st.Kot)
	}
	return resp
}

type orderDetailResponse struct {
	orderResponse
	Items    []orderItemResponse `json:"items"`
	Subtotal string              `json:"subtotal"`
	Kots     []kotResponse       `json:"kots"`
	Bill     *billResponse       `json:"bill"`
}

type ticketsResponse struct {
	Order   orderResponse `json:"order"`
	Tickets []kotResponse `json:"tickets"`
}

type settleResponse struct {
	Order       orderResponse        `json:"order"`
	Bill        billResponse         `json:"bill"`
	Change      string               `json:"change"`
	Tickets     []kotResponse        `json:"tickets"`
	PendingBill *pendingBillResponse `json:"pending_bill"`
	LowStock    []ingredientResponse `json:"low_stock"`
}

// --- Handlers ---

// List returns orders, newest first. Filters: ?status=, ?table_id= and
// ?pending=true for pending orders, i.e. open carts with no table yet.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	tableID, ok := queryUUID(w, r, "table_id")
	if !ok {
		return
	}
	pending, _ := strconv.ParseBool(r.URL.Query().Get("pending"))
	limit, offset := pagination(r, 50, 200)

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		RestaurantID: rid,
		Status:       optionalText(strings.ToUpper(r.URL.Query().Get("status"))),
		TableID:      tableID,
		PendingOnly:  pending,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		internalError(w, r, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Open starts a new order. DINE_IN orders with a table occupy it.
func (h *OrderHandler) Open(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req openOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tableID, err := parseOptionalUUID(req.TableID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table_id")
		return
	}
	customerID, err := parseOptionalUUID(req.CustomerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer_id")
		return
	}

	order, err := h.svc.OpenOrder(r.Context(), service.OpenOrderRequest{
		RestaurantID: rid,
		CreatedBy:    staffID(r),
		OrderType:    strings.ToUpper(strings.TrimSpace(req.OrderType)),
		TableID:      tableID,
		CustomerID:   customerID,
		Guests:       req.Guests,
		Notes:        req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, "open order", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// Get returns an order with its lines, tickets and bill.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: id, RestaurantID: rid})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		internalError(w, r, "get order", err)
		return
	}
	items, err := h.store.ListOrderItems(r.Context(), order.ID)
	if err != nil {
		internalError(w, r, "list order items", err)
		return
	}
	kots, err := h.store.ListKotsByOrder(r.Context(), order.ID)
	if err != nil {
		internalError(w, r, "list kots", err)
		return
	}

	resp := orderDetailResponse{
		orderResponse: toOrderResponse(order),
		Items:         make([]orderItemResponse, len(items)),
		Kots:          make([]kotResponse, len(kots)),
	}
	subtotal := decimalFromInt(0)
	for i, it := range items {
		resp.Items[i] = toOrderItemResponse(it)
		subtotal = subtotal.Add(numericToDecimal(it.UnitPrice).Mul(decimalFromInt(it.Quantity)))
	}
	resp.Subtotal = subtotal.StringFixed(2)
	for i, k := range kots {
		resp.Kots[i] = toKotResponse(k)
	}

	bill, err := h.store.GetBillByOrder(r.Context(), order.ID)
	switch {
	case err == nil:
		b := toBillResponse(bill)
		resp.Bill = &b
	case errors.Is(err, pgx.ErrNoRows):
	default:
		internalError(w, r, "get bill by order", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddItem adds a menu item to the cart. An unsent line with the same item
// and instructions is merged.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	var req addItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	menuItemID, err := uuid.Parse(req.MenuItemID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu_item_id")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, err := h.svc.AddItem(r.Context(), service.AddItemRequest{
		RestaurantID: rid,
		OrderID:      id,
		MenuItemID:   menuItemID,
		Quantity:     req.Quantity,
		Instructions: req.Instructions,
	})
	if err != nil {
		writeServiceError(w, r, "add order item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderItemResponse(item))
}

// UpdateItem changes a line's quantity or instructions. Setting the quantity
// of an unsent line to 0 removes it and answers 204.
func (h *OrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}
	itemID, ok := urlUUID(w, r, "itemId", "order item")
	if !ok {
		return
	}

	var req updateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	item, err := h.svc.UpdateItem(r.Context(), service.UpdateItemRequest{
		RestaurantID: rid,
		OrderID:      id,
		ItemID:       itemID,
		Quantity:     *req.Quantity,
		Instructions: req.Instructions,
	})
	if err != nil {
		writeServiceError(w, r, "update order item", err)
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toOrderItemResponse(*item))
}

// RemoveItem sets a line's quantity to zero. Sent lines stay on the order so
// the next KOT voids them.
func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}
	itemID, ok := urlUUID(w, r, "itemId", "order item")
	if !ok {
		return
	}

	if err := h.svc.RemoveItem(r.Context(), rid, id, itemID); err != nil {
		writeServiceError(w, r, "remove order item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignTable moves an open order to another table, or seats a takeaway
// order at one.
func (h *OrderHandler) AssignTable(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	var req assignTableRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table_id")
		return
	}

	order, err := h.svc.AssignTable(r.Context(), rid, id, tableID)
	if err != nil {
		writeServiceError(w, r, "assign table", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// SendKOT sends everything not yet in the kitchen: NEW tickets for added
// quantities and VOID tickets for removed ones.
func (h *OrderHandler) SendKOT(w http.ResponseWriter, r *http.Request) {
	h.tickets(w, r, "send kot", h.svc.SendKOT)
}

// ReprintKOT prints the current sent state again without changing it.
func (h *OrderHandler) ReprintKOT(w http.ResponseWriter, r *http.Request) {
	h.tickets(w, r, "reprint kot", h.svc.ReprintKOT)
}

func (h *OrderHandler) tickets(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, restaurantID, orderID, staffID uuid.UUID) (service.TicketBatch, error)) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	batch, err := fn(r.Context(), rid, id, staffID(r))
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ticketsResponse{
		Order:   toOrderResponse(batch.Order),
		Tickets: toTicketResponses(batch),
	})
}

// Settle bills the order, records payment and closes it. Unsent lines are
// flushed to the kitchen first.
func (h *OrderHandler) Settle(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	var req settleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	customerID, err := parseOptionalUUID(req.CustomerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer_id")
		return
	}

	res, err := h.svc.Settle(r.Context(), service.SettleRequest{
		RestaurantID:  rid,
		OrderID:       id,
		StaffID:       staffID(r),
		PaymentMethod: strings.ToUpper(strings.TrimSpace(req.PaymentMethod)),
		PaidAmount:    req.PaidAmount,
		DiscountType:  strings.ToUpper(strings.TrimSpace(req.DiscountType)),
		DiscountValue: req.DiscountValue,
		CustomerID:    customerID,
	})
	if err != nil {
		writeServiceError(w, r, "settle order", err)
		return
	}

	resp := settleResponse{
		Order:    toOrderResponse(res.Order),
		Bill:     toBillResponse(res.Bill),
		Change:   res.Change.StringFixed(2),
		Tickets:  toTicketResponses(res.Tickets),
		LowStock: toIngredientResponses(res.LowStock),
	}
	if res.PendingBill != nil {
		pb := toPendingBillResponse(*res.PendingBill)
		resp.PendingBill = &pb
	}
	writeJSON(w, http.StatusOK, resp)
}

// Cancel closes an order without billing and voids anything the kitchen
// already has.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	order, batch, err := h.svc.Cancel(r.Context(), rid, id, staffID(r))
	if err != nil {
		writeServiceError(w, r, "cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, ticketsResponse{
		Order:   toOrderResponse(order),
		Tickets: toTicketResponses(batch),
	})
}
