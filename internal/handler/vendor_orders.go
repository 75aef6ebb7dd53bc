package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/inventory"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
)

// VendorOrderStore defines the database methods needed by vendor order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type VendorOrderStore interface {
	ListVendorOrders(ctx context.Context, arg database.ListVendorOrdersParams) ([]database.VendorOrder, error)
	GetVendorOrder(ctx context.Context, arg database.GetVendorOrderParams) (database.VendorOrder, error)
	ListVendorOrderLines(ctx context.Context, vendorOrderID uuid.UUID) ([]database.VendorOrderLine, error)
	ListIngredients(ctx context.Context, restaurantID uuid.UUID) ([]database.Ingredient, error)
}

// Purchaser is satisfied by *service.PurchasingService.
type Purchaser interface {
	CreateVendorOrder(ctx context.Context, req service.CreateVendorOrderRequest) (*service.VendorOrderResult, error)
	SendVendorOrder(ctx context.Context, restaurantID, id uuid.UUID) (database.VendorOrder, error)
	CancelVendorOrder(ctx context.Context, restaurantID, id uuid.UUID) (database.VendorOrder, error)
	ReceiveVendorOrder(ctx context.Context, req service.ReceiveRequest) (*service.ReceiveResult, error)
}

// VendorOrderHandler handles purchase orders to vendors.
type VendorOrderHandler struct {
	store VendorOrderStore
	svc   Purchaser
	now   func() time.Time
}

// NewVendorOrderHandler creates a new VendorOrderHandler.
func NewVendorOrderHandler(store VendorOrderStore, svc Purchaser) *VendorOrderHandler {
	return &VendorOrderHandler{store: store, svc: svc, now: time.Now}
}

// RegisterRoutes registers vendor order endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/vendor-orders
func (h *VendorOrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/parse", h.Parse)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/send", h.Send)
	r.Post("/{id}/receive", h.Receive)
	r.Post("/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type vendorOrderLineRequest struct {
	IngredientID string `json:"ingredient_id"`
	Description  string `json:"description"`
	Quantity     string `json:"quantity"`
	Unit         string `json:"unit"`
	UnitCost     string `json:"unit_cost"`
}

type createVendorOrderRequest struct {
	VendorID     string                   `json:"vendor_id"`
	Notes        string                   `json:"notes"`
	ExpectedDate string                   `json:"expected_date"`
	Lines        []vendorOrderLineRequest `json:"lines"`
}

type parseListRequest struct {
	Text string `json:"text"`
}

type receiveRequest struct {
	PaidAmount string `json:"paid_amount"`
	Category   string `json:"category"`
}

type vendorOrderResponse struct {
	ID           uuid.UUID  `json:"id"`
	VendorID     uuid.UUID  `json:"vendor_id"`
	Status       string     `json:"status"`
	Notes        *string    `json:"notes"`
	ExpectedDate *string    `json:"expected_date"`
	Total        string     `json:"total"`
	CreatedBy    uuid.UUID  `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	SentAt       *time.Time `json:"sent_at"`
	ReceivedAt   *time.Time `json:"received_at"`
}

func toVendorOrderResponse(o database.VendorOrder) vendorOrderResponse {
	return vendorOrderResponse{
		ID:           o.ID,
		VendorID:     o.VendorID,
		Status:       o.Status,
		Notes:        textPtr(o.Notes),
		ExpectedDate: datePtr(o.ExpectedDate),
		Total:        numericToString(o.Total),
		CreatedBy:    o.CreatedBy,
		CreatedAt:    o.CreatedAt,
		SentAt:       timestampPtr(o.SentAt),
		ReceivedAt:   timestampPtr(o.ReceivedAt),
	}
}

type vendorOrderLineResponse struct {
	ID           uuid.UUID  `json:"id"`
	IngredientID *uuid.UUID `json:"ingredient_id"`
	Description  string     `json:"description"`
	Quantity     string     `json:"quantity"`
	Unit         string     `json:"unit"`
	UnitCost     string     `json:"unit_cost"`
	LineTotal    string     `json:"line_total"`
}

func toVendorOrderLineResponses(lines []database.VendorOrderLine) []vendorOrderLineResponse {
	out := make([]vendorOrderLineResponse, len(lines))
	for i, l := range lines {
		qty, cost := numericToDecimal(l.Quantity), numericToDecimal(l.UnitCost)
		out[i] = vendorOrderLineResponse{
			ID:           l.ID,
			IngredientID: uuidPtr(l.IngredientID),
			Description:  l.Description,
			Quantity:     qty.String(),
			Unit:         l.Unit,
			UnitCost:     cost.StringFixed(2),
			LineTotal:    qty.Mul(cost).StringFixed(2),
		}
	}
	return out
}

type vendorOrderDetailResponse struct {
	vendorOrderResponse
	Lines []vendorOrderLineResponse `json:"lines"`
}

type parseListResponse struct {
	ExpectedDate *time.Time              `json:"expected_date"`
	Lines        []inventory.MatchedLine `json:"lines"`
	Warnings     []string                `json:"warnings"`
}

type receiveResponse struct {
	Order       vendorOrderDetailResponse `json:"order"`
	Expense     *expenseResponse          `json:"expense"`
	PendingBill *pendingBillResponse      `json:"pending_bill"`
	Restocked   []ingredientResponse      `json:"restocked"`
}

// --- Handlers ---

// List returns vendor orders, newest first. Filters: ?vendor_id=, ?status=.
func (h *VendorOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	vendorID, ok := queryUUID(w, r, "vendor_id")
	if !ok {
		return
	}

	orders, err := h.store.ListVendorOrders(r.Context(), database.ListVendorOrdersParams{
		RestaurantID: rid,
		VendorID:     vendorID,
		Status:       optionalText(strings.ToUpper(r.URL.Query().Get("status"))),
	})
	if err != nil {
		internalError(w, r, "list vendor orders", err)
		return
	}

	resp := make([]vendorOrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toVendorOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a vendor order with its lines.
func (h *VendorOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "vendor order")
	if !ok {
		return
	}

	o, err := h.store.GetVendorOrder(r.Context(), database.GetVendorOrderParams{ID: id, RestaurantID: rid})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "vendor order not found")
			return
		}
		internalError(w, r, "get vendor order", err)
		return
	}
	lines, err := h.store.ListVendorOrderLines(r.Context(), o.ID)
	if err != nil {
		internalError(w, r, "list vendor order lines", err)
		return
	}

	writeJSON(w, http.StatusOK, vendorOrderDetailResponse{
		vendorOrderResponse: toVendorOrderResponse(o),
		Lines:               toVendorOrderLineResponses(lines),
	})
}

// Create drafts a vendor order.
func (h *VendorOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req createVendorOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid vendor_id")
		return
	}
	var expected *time.Time
	if day, err := parseDay(req.ExpectedDate); err != nil {
		writeError(w, http.StatusBadRequest, "invalid expected_date, expected YYYY-MM-DD")
		return
	} else if !day.IsZero() {
		expected = &day
	}

	lines := make([]service.VendorOrderLineRequest, len(req.Lines))
	for i, l := range req.Lines {
		ingredientID, err := parseOptionalUUID(l.IngredientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid ingredient_id")
			return
		}
		lines[i] = service.VendorOrderLineRequest{
			IngredientID: ingredientID,
			Description:  l.Description,
			Quantity:     l.Quantity,
			Unit:         l.Unit,
			UnitCost:     l.UnitCost,
		}
	}

	res, err := h.svc.CreateVendorOrder(r.Context(), service.CreateVendorOrderRequest{
		RestaurantID: rid,
		VendorID:     vendorID,
		CreatedBy:    staffID(r),
		Notes:        req.Notes,
		ExpectedDate: expected,
		Lines:        lines,
	})
	if err != nil {
		writeServiceError(w, r, "create vendor order", err)
		return
	}

	writeJSON(w, http.StatusCreated, vendorOrderDetailResponse{
		vendorOrderResponse: toVendorOrderResponse(res.Order),
		Lines:               toVendorOrderLineResponses(res.Lines),
	})
}

// Parse turns a pasted shopping list into draft lines matched against the
// restaurant's ingredients. Nothing is stored.
func (h *VendorOrderHandler) Parse(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req parseListRequest
	if !decodeBody(w, r, &req) {
		return
	}

	list, err := inventory.Parse(req.Text, h.now())
	if err != nil {
		if errors.Is(err, inventory.ErrEmptyList) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, r, "parse purchase list", err)
		return
	}

	ingredients, err := h.store.ListIngredients(r.Context(), rid)
	if err != nil {
		internalError(w, r, "list ingredients", err)
		return
	}
	candidates := make([]inventory.Candidate, len(ingredients))
	for i, ing := range ingredients {
		candidates[i] = inventory.Candidate{ID: ing.ID, Name: ing.Name, Unit: ing.Unit, Keywords: ing.Keywords}
	}

	writeJSON(w, http.StatusOK, parseListResponse{
		ExpectedDate: list.ExpectedDate,
		Lines:        inventory.NewMatcher(candidates).MatchAll(list.Lines),
		Warnings:     list.Warnings,
	})
}

// Send marks a draft as sent to the vendor.
func (h *VendorOrderHandler) Send(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "send vendor order", h.svc.SendVendorOrder)
}

// Cancel cancels a draft or sent order.
func (h *VendorOrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel vendor order", h.svc.CancelVendorOrder)
}

func (h *VendorOrderHandler) transition(w http.ResponseWriter, r *http.Request, op string,
	move func(ctx context.Context, restaurantID, id uuid.UUID) (database.VendorOrder, error)) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "vendor order")
	if !ok {
		return
	}

	o, err := move(r.Context(), rid, id)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toVendorOrderResponse(o))
}

// Receive books the delivery: stock goes up for ingredient lines and the
// total is booked as an expense. An empty paid_amount means paid in full.
func (h *VendorOrderHandler) Receive(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "vendor order")
	if !ok {
		return
	}

	var req receiveRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.ReceiveVendorOrder(r.Context(), service.ReceiveRequest{
		RestaurantID:  rid,
		VendorOrderID: id,
		StaffID:       staffID(r),
		PaidAmount:    req.PaidAmount,
		Category:      req.Category,
	})
	if err != nil {
		writeServiceError(w, r, "receive vendor order", err)
		return
	}

	resp := receiveResponse{
		Order: vendorOrderDetailResponse{
			vendorOrderResponse: toVendorOrderResponse(res.Order),
			Lines:               toVendorOrderLineResponses(res.Lines),
		},
		Restocked: toIngredientResponses(res.Restocked),
	}
	if res.Expense != nil {
		e := toExpenseResponse(*res.Expense)
		resp.Expense = &e
	}
	if res.PendingBill != nil {
		pb := toPendingBillResponse(*res.PendingBill)
		resp.PendingBill = &pb
	}
	writeJSON(w, http.StatusOK, resp)
}
