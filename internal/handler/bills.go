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
)

// BillStore defines the database methods needed by bill handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type BillStore interface {
	ListBills(ctx context.Context, arg database.ListBillsParams) ([]database.Bill, error)
	GetBill(ctx context.Context, arg database.GetBillParams) (database.Bill, error)
}

// BillHandler serves settled bills.
type BillHandler struct {
	store BillStore
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(store BillStore) *BillHandler {
	return &BillHandler{store: store}
}

// RegisterRoutes registers bill endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/bills
func (h *BillHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

type billResponse struct {
	ID            uuid.UUID  `json:"id"`
	OrderID       uuid.UUID  `json:"order_id"`
	CustomerID    *uuid.UUID `json:"customer_id"`
	BillNumber    string     `json:"bill_number"`
	Subtotal      string     `json:"subtotal"`
	Discount      string     `json:"discount"`
	Tax           string     `json:"tax"`
	Total         string     `json:"total"`
	PaidAmount    string     `json:"paid_amount"`
	Outstanding   string     `json:"outstanding"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toBillResponse(b database.Bill) billResponse {
	total := numericToDecimal(b.Total)
	paid := numericToDecimal(b.PaidAmount)
	return billResponse{
		ID:            b.ID,
		OrderID:       b.OrderID,
		CustomerID:    uuidPtr(b.CustomerID),
		BillNumber:    b.BillNumber,
		Subtotal:      numericToString(b.Subtotal),
		Discount:      numericToString(b.Discount),
		Tax:           numericToString(b.Tax),
		Total:         total.StringFixed(2),
		PaidAmount:    paid.StringFixed(2),
		Outstanding:   total.Sub(paid).StringFixed(2),
		PaymentMethod: b.PaymentMethod,
		Status:        b.Status,
		CreatedAt:     b.CreatedAt,
	}
}

func toBillResponses(list []database.Bill) []billResponse {
	resp := make([]billResponse, len(list))
	for i, b := range list {
		resp[i] = toBillResponse(b)
	}
	return resp
}

// List returns bills, newest first. Filters: ?customer_id=, ?status=.
func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	customerID, ok := queryUUID(w, r, "customer_id")
	if !ok {
		return
	}
	limit, offset := pagination(r, 50, 200)

	bills, err := h.store.ListBills(r.Context(), database.ListBillsParams{
		RestaurantID: rid,
		CustomerID:   customerID,
		Status:       optionalText(strings.ToUpper(r.URL.Query().Get("status"))),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		internalError(w, r, "list bills", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillResponses(bills))
}

// Get returns one bill.
func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "bill")
	if !ok {
		return
	}

	b, err := h.store.GetBill(r.Context(), database.GetBillParams{ID: id, RestaurantID: rid})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "bill not found")
			return
		}
		internalError(w, r, "get bill", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillResponse(b))
}
