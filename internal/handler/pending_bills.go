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
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
)

// PendingBillStore defines the database methods needed by pending bill
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type PendingBillStore interface {
	ListPendingBills(ctx context.Context, arg database.ListPendingBillsParams) ([]database.PendingBill, error)
	GetPendingBill(ctx context.Context, arg database.GetPendingBillParams) (database.PendingBill, error)
	ListPendingBillPayments(ctx context.Context, pendingBillID uuid.UUID) ([]database.PendingBillPayment, error)
}

// PendingSettler is satisfied by *service.LedgerService.
type PendingSettler interface {
	SettlePendingBill(ctx context.Context, req service.SettlePendingRequest) (*service.SettlementResult, error)
}

// PendingBillHandler serves receivables and payables and records
// instalments against them.
type PendingBillHandler struct {
	store PendingBillStore
	svc   PendingSettler
}

// NewPendingBillHandler creates a new PendingBillHandler.
func NewPendingBillHandler(store PendingBillStore, svc PendingSettler) *PendingBillHandler {
	return &PendingBillHandler{store: store, svc: svc}
}

// RegisterRoutes registers pending bill endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/pending-bills
func (h *PendingBillHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/payments", h.Settle)
}

// --- Request / Response types ---

type settlePendingRequest struct {
	Amount        string `json:"amount"`
	PaymentMethod string `json:"payment_method"`
}

type pendingBillResponse struct {
	ID            uuid.UUID `json:"id"`
	PartyType     string    `json:"party_type"`
	PartyID       uuid.UUID `json:"party_id"`
	SourceType    string    `json:"source_type"`
	SourceID      uuid.UUID `json:"source_id"`
	AmountDue     string    `json:"amount_due"`
	AmountSettled string    `json:"amount_settled"`
	Balance       string    `json:"balance"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toPendingBillResponse(pb database.PendingBill) pendingBillResponse {
	due := numericToDecimal(pb.AmountDue)
	settled := numericToDecimal(pb.AmountSettled)
	return pendingBillResponse{
		ID:            pb.ID,
		PartyType:     pb.PartyType,
		PartyID:       pb.PartyID,
		SourceType:    pb.SourceType,
		SourceID:      pb.SourceID,
		AmountDue:     due.StringFixed(2),
		AmountSettled: settled.StringFixed(2),
		Balance:       due.Sub(settled).StringFixed(2),
		Status:        pb.Status,
		CreatedAt:     pb.CreatedAt,
		UpdatedAt:     pb.UpdatedAt,
	}
}

type pendingPaymentResponse struct {
	ID            uuid.UUID `json:"id"`
	Amount        string    `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	CreatedBy     uuid.UUID `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

func toPendingPaymentResponse(p database.PendingBillPayment) pendingPaymentResponse {
	return pendingPaymentResponse{
		ID:            p.ID,
		Amount:        numericToString(p.Amount),
		PaymentMethod: p.PaymentMethod,
		CreatedBy:     p.CreatedBy,
		CreatedAt:     p.CreatedAt,
	}
}

type pendingBillDetailResponse struct {
	pendingBillResponse
	Payments []pendingPaymentResponse `json:"payments"`
}

type settlementResponse struct {
	PendingBill pendingBillResponse    `json:"pending_bill"`
	Payment     pendingPaymentResponse `json:"payment"`
}

// --- Handlers ---

// List returns pending bills. Filters: ?party_type=CUSTOMER|VENDOR,
// ?party_id=, ?status=OPEN|SETTLED.
func (h *PendingBillHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	partyID, ok := queryUUID(w, r, "party_id")
	if !ok {
		return
	}

	list, err := h.store.ListPendingBills(r.Context(), database.ListPendingBillsParams{
		RestaurantID: rid,
		PartyType:    optionalText(strings.ToUpper(r.URL.Query().Get("party_type"))),
		PartyID:      partyID,
		Status:       optionalText(strings.ToUpper(r.URL.Query().Get("status"))),
	})
	if err != nil {
		internalError(w, r, "list pending bills", err)
		return
	}

	resp := make([]pendingBillResponse, len(list))
	for i, pb := range list {
		resp[i] = toPendingBillResponse(pb)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a pending bill with its instalments.
func (h *PendingBillHandler) Get(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "pending bill")
	if !ok {
		return
	}

	pb, err := h.store.GetPendingBill(r.Context(), database.GetPendingBillParams{ID: id, RestaurantID: rid})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "pending bill not found")
			return
		}
		internalError(w, r, "get pending bill", err)
		return
	}
	payments, err := h.store.ListPendingBillPayments(r.Context(), pb.ID)
	if err != nil {
		internalError(w, r, "list pending bill payments", err)
		return
	}

	resp := pendingBillDetailResponse{
		pendingBillResponse: toPendingBillResponse(pb),
		Payments:            make([]pendingPaymentResponse, len(payments)),
	}
	for i, p := range payments {
		resp.Payments[i] = toPendingPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Settle records an instalment. The bill closes when fully paid.
func (h *PendingBillHandler) Settle(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "pending bill")
	if !ok {
		return
	}

	var req settlePendingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.SettlePendingBill(r.Context(), service.SettlePendingRequest{
		RestaurantID:  rid,
		PendingBillID: id,
		StaffID:       staffID(r),
		Amount:        req.Amount,
		PaymentMethod: strings.ToUpper(strings.TrimSpace(req.PaymentMethod)),
	})
	if err != nil {
		writeServiceError(w, r, "settle pending bill", err)
		return
	}
	writeJSON(w, http.StatusOK, settlementResponse{
		PendingBill: toPendingBillResponse(res.PendingBill),
		Payment:     toPendingPaymentResponse(res.Payment),
	})
}
