package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/crm"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
)

// VendorStore defines the database methods needed by vendor handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type VendorStore interface {
	ListVendors(ctx context.Context, restaurantID uuid.UUID) ([]database.Vendor, error)
	GetVendor(ctx context.Context, arg database.GetVendorParams) (database.Vendor, error)
	CreateVendor(ctx context.Context, arg database.CreateVendorParams) (database.Vendor, error)
	UpdateVendor(ctx context.Context, arg database.UpdateVendorParams) (database.Vendor, error)
	SoftDeleteVendor(ctx context.Context, arg database.SoftDeleteVendorParams) (uuid.UUID, error)
	ListVendorExpenseFacts(ctx context.Context, arg database.ListVendorExpenseFactsParams) ([]database.ExpenseFactRow, error)
}

// VendorHandler handles vendor CRUD and payable summaries.
type VendorHandler struct {
	store VendorStore
}

// NewVendorHandler creates a new VendorHandler.
func NewVendorHandler(store VendorStore) *VendorHandler {
	return &VendorHandler{store: store}
}

// RegisterRoutes registers vendor endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/vendors
func (h *VendorHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/summaries", h.Summaries)
	r.Get("/summary", h.Summaries)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/summary", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type vendorResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ContactName *string   `json:"contact_name"`
	Phone       *string   `json:"phone"`
	Email       *string   `json:"email"`
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

func toVendorResponse(v database.Vendor) vendorResponse {
	return vendorResponse{
		ID:          v.ID,
		Name:        v.Name,
		ContactName: textPtr(v.ContactName),
		Phone:       textPtr(v.Phone),
		Email:       textPtr(v.Email),
		Notes:       textPtr(v.Notes),
		CreatedAt:   v.CreatedAt,
	}
}

type vendorDetailResponse struct {
	vendorResponse
	Summary crm.VendorRollup `json:"summary"`
}

type vendorSummaryResponse struct {
	Name string `json:"name"`
	crm.VendorRollup
}

func expenseFacts(rows []database.ExpenseFactRow) []crm.ExpenseFact {
	facts := make([]crm.ExpenseFact, len(rows))
	for i, f := range rows {
		facts[i] = crm.ExpenseFact{
			VendorID: f.VendorID,
			Amount:   numericToDecimal(f.Amount),
			Paid:     numericToDecimal(f.PaidAmount),
			At:       f.ExpenseDate.Time,
		}
	}
	return facts
}

// List returns all active vendors.
func (h *VendorHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	list, err := h.store.ListVendors(r.Context(), rid)
	if err != nil {
		internalError(w, r, "list vendors", err)
		return
	}
	resp := make([]vendorResponse, len(list))
	for i, v := range list {
		resp[i] = toVendorResponse(v)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a vendor with purchase and payable totals.
func (h *VendorHandler) Get(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "vendor")
	if !ok {
		return
	}

	v, err := h.store.GetVendor(r.Context(), database.GetVendorParams{ID: id, RestaurantID: rid})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "vendor not found")
			return
		}
		internalError(w, r, "get vendor", err)
		return
	}
	rows, err := h.store.ListVendorExpenseFacts(r.Context(), database.ListVendorExpenseFactsParams{
		RestaurantID: rid,
		VendorID:     pgtype.UUID{Bytes: id, Valid: true},
	})
	if err != nil {
		internalError(w, r, "list vendor expense facts", err)
		return
	}

	summary, ok := crm.VendorRollups(expenseFacts(rows))[id]
	if !ok {
		summary = crm.VendorRollup{VendorID: id}
	}
	writeJSON(w, http.StatusOK, vendorDetailResponse{
		vendorResponse: toVendorResponse(v),
		Summary:        summary,
	})
}

// Summaries ranks vendors by what is still owed to them.
func (h *VendorHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	rows, err := h.store.ListVendorExpenseFacts(r.Context(), database.ListVendorExpenseFactsParams{RestaurantID: rid})
	if err != nil {
		internalError(w, r, "list vendor expense facts", err)
		return
	}
	vendors, err := h.store.ListVendors(r.Context(), rid)
	if err != nil {
		internalError(w, r, "list vendors", err)
		return
	}
	names := make(map[uuid.UUID]string, len(vendors))
	for _, v := range vendors {
		names[v.ID] = v.Name
	}

	sorted := crm.SortedVendors(crm.VendorRollups(expenseFacts(rows)))
	resp := make([]vendorSummaryResponse, len(sorted))
	for i, s := range sorted {
		resp[i] = vendorSummaryResponse{Name: names[s.VendorID], VendorRollup: s}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a vendor.
func (h *VendorHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req partyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	v, err := h.store.CreateVendor(r.Context(), database.CreateVendorParams{
		RestaurantID: rid,
		Name:         req.Name,
		ContactName:  optionalText(req.ContactName),
		Phone:        optionalText(req.Phone),
		Email:        optionalText(req.Email),
		Notes:        optionalText(req.Notes),
	})
	if err != nil {
		internalError(w, r, "create vendor", err)
		return
	}
	writeJSON(w, http.StatusCreated, toVendorResponse(v))
}

// Update replaces a vendor's details.
func (h *VendorHandler) Update(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "vendor")
	if !ok {
		return
	}

	var req partyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	v, err := h.store.UpdateVendor(r.Context(), database.UpdateVendorParams{
		ID:           id,
		RestaurantID: rid,
		Name:         req.Name,
		ContactName:  optionalText(req.ContactName),
		Phone:        optionalText(req.Phone),
		Email:        optionalText(req.Email),
		Notes:        optionalText(req.Notes),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "vendor not found")
			return
		}
		internalError(w, r, "update vendor", err)
		return
	}
	writeJSON(w, http.StatusOK, toVendorResponse(v))
}

// Delete soft-deletes a vendor. Expenses and payables are kept.
func (h *VendorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "vendor")
	if !ok {
		return
	}

	if _, err := h.store.SoftDeleteVendor(r.Context(), database.SoftDeleteVendorParams{
		ID:           id,
		RestaurantID: rid,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "vendor not found")
			return
		}
		internalError(w, r, "delete vendor", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
