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
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/crm"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
)

// maxSummaryParties caps how many parties a summary listing resolves names for.
const maxSummaryParties = 1000

// CustomerStore defines the database methods needed by customer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CustomerStore interface {
	ListCustomers(ctx context.Context, arg database.ListCustomersParams) ([]database.Customer, error)
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	UpdateCustomer(ctx context.Context, arg database.UpdateCustomerParams) (database.Customer, error)
	SoftDeleteCustomer(ctx context.Context, arg database.SoftDeleteCustomerParams) (uuid.UUID, error)
	ListCustomerBillFacts(ctx context.Context, arg database.ListCustomerBillFactsParams) ([]database.BillFactRow, error)
	ListBills(ctx context.Context, arg database.ListBillsParams) ([]database.Bill, error)
}

// CustomerHandler handles customer CRUD and spending summaries.
type CustomerHandler struct {
	store CustomerStore
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore) *CustomerHandler {
	return &CustomerHandler{store: store}
}

// RegisterRoutes registers customer endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/customers
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/summaries", h.Summaries)
	r.Get("/summary", h.Summaries)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/summary", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/bills", h.Bills)
}

// --- Request / Response types ---

type partyRequest struct {
	Name        string `json:"name"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Notes       string `json:"notes"`
}

func (p *partyRequest) validate() string {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Name == "" {
		return "name is required"
	}
	if p.Email != "" && !validEmail(p.Email) {
		return "invalid email format"
	}
	return ""
}

type customerResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	Email     *string   `json:"email"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

func toCustomerResponse(c database.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     textPtr(c.Phone),
		Email:     textPtr(c.Email),
		Notes:     textPtr(c.Notes),
		CreatedAt: c.CreatedAt,
	}
}

type customerDetailResponse struct {
	customerResponse
	Summary crm.CustomerRollup `json:"summary"`
}

type customerSummaryResponse struct {
	Name string `json:"name"`
	crm.CustomerRollup
}

func billFacts(rows []database.BillFactRow) []crm.BillFact {
	facts := make([]crm.BillFact, len(rows))
	for i, f := range rows {
		facts[i] = crm.BillFact{
			CustomerID: f.CustomerID,
			Total:      numericToDecimal(f.Total),
			Paid:       numericToDecimal(f.PaidAmount),
			At:         f.CreatedAt,
		}
	}
	return facts
}

// --- Handlers ---

// List returns customers. ?q= matches name or phone.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r, 50, 200)

	list, err := h.store.ListCustomers(r.Context(), database.ListCustomersParams{
		RestaurantID: rid,
		Search:       queryText(r, "q"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		internalError(w, r, "list customers", err)
		return
	}

	resp := make([]customerResponse, len(list))
	for i, c := range list {
		resp[i] = toCustomerResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a customer with visit and spending totals.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
	if !ok {
		return
	}

	c, err := h.store.GetCustomer(r.Context(), database.GetCustomerParams{ID: id, RestaurantID: rid})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		internalError(w, r, "get customer", err)
		return
	}
	rows, err := h.store.ListCustomerBillFacts(r.Context(), database.ListCustomerBillFactsParams{
		RestaurantID: rid,
		CustomerID:   pgtype.UUID{Bytes: id, Valid: true},
	})
	if err != nil {
		internalError(w, r, "list customer bill facts", err)
		return
	}

	summary, ok := crm.CustomerRollups(billFacts(rows))[id]
	if !ok {
		summary = crm.CustomerRollup{CustomerID: id}
	}
	writeJSON(w, http.StatusOK, customerDetailResponse{
		customerResponse: toCustomerResponse(c),
		Summary:          summary,
	})
}

// Summaries ranks customers by total spent.
func (h *CustomerHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	rows, err := h.store.ListCustomerBillFacts(r.Context(), database.ListCustomerBillFactsParams{RestaurantID: rid})
	if err != nil {
		internalError(w, r, "list customer bill facts", err)
		return
	}
	customers, err := h.store.ListCustomers(r.Context(), database.ListCustomersParams{
		RestaurantID: rid,
		Limit:        maxSummaryParties,
	})
	if err != nil {
		internalError(w, r, "list customers", err)
		return
	}
	names := make(map[uuid.UUID]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.Name
	}

	sorted := crm.SortedCustomers(crm.CustomerRollups(billFacts(rows)))
	resp := make([]customerSummaryResponse, len(sorted))
	for i, s := range sorted {
		resp[i] = customerSummaryResponse{Name: names[s.CustomerID], CustomerRollup: s}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a customer.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	c, err := h.store.CreateCustomer(r.Context(), database.CreateCustomerParams{
		RestaurantID: rid,
		Name:         req.Name,
		Phone:        optionalText(req.Phone),
		Email:        optionalText(req.Email),
		Notes:        optionalText(req.Notes),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "phone number already registered")
			return
		}
		internalError(w, r, "create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerResponse(c))
}

// Update replaces a customer's details.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
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

	c, err := h.store.UpdateCustomer(r.Context(), database.UpdateCustomerParams{
		ID:           id,
		RestaurantID: rid,
		Name:         req.Name,
		Phone:        optionalText(req.Phone),
		Email:        optionalText(req.Email),
		Notes:        optionalText(req.Notes),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "phone number already registered")
			return
		}
		internalError(w, r, "update customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(c))
}

// Delete soft-deletes a customer. Their bills are kept.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
	if !ok {
		return
	}

	if _, err := h.store.SoftDeleteCustomer(r.Context(), database.SoftDeleteCustomerParams{
		ID:           id,
		RestaurantID: rid,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		internalError(w, r, "delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Bills returns the customer's bills, newest first.
func (h *CustomerHandler) Bills(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
	if !ok {
		return
	}
	limit, offset := pagination(r, 50, 200)

	bills, err := h.store.ListBills(r.Context(), database.ListBillsParams{
		RestaurantID: rid,
		CustomerID:   pgtype.UUID{Bytes: id, Valid: true},
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		internalError(w, r, "list customer bills", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillResponses(bills))
}
