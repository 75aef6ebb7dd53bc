package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/export"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
)

// ExpenseStore defines the database methods needed by expense handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ExpenseStore interface {
	ListExpenses(ctx context.Context, arg database.ListExpensesParams) ([]database.Expense, error)
	ListExpensesForExport(ctx context.Context, arg database.ListExpensesForExportParams) ([]database.ExpenseExportRow, error)
	GetExpense(ctx context.Context, arg database.GetExpenseParams) (database.Expense, error)
	UpdateExpense(ctx context.Context, arg database.UpdateExpenseParams) (database.Expense, error)
	DeleteExpense(ctx context.Context, arg database.DeleteExpenseParams) (uuid.UUID, error)
}

// ExpenseBooker is satisfied by *service.LedgerService.
type ExpenseBooker interface {
	CreateExpense(ctx context.Context, req service.CreateExpenseRequest) (*service.ExpenseResult, error)
}

// ExpenseHandler handles expenses and their spreadsheet export.
type ExpenseHandler struct {
	store  ExpenseStore
	ledger ExpenseBooker
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(store ExpenseStore, ledger ExpenseBooker) *ExpenseHandler {
	return &ExpenseHandler{store: store, ledger: ledger}
}

// RegisterRoutes registers expense endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/expenses
func (h *ExpenseHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/export", h.Export)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createExpenseRequest struct {
	VendorID    string `json:"vendor_id"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	PaidAmount  string `json:"paid_amount"`
	ExpenseDate string `json:"expense_date"`
}

type updateExpenseRequest struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	ExpenseDate string `json:"expense_date"`
}

type expenseResponse struct {
	ID            uuid.UUID  `json:"id"`
	VendorID      *uuid.UUID `json:"vendor_id"`
	Category      string     `json:"category"`
	Description   *string    `json:"description"`
	Amount        string     `json:"amount"`
	PaidAmount    string     `json:"paid_amount"`
	ExpenseDate   *string    `json:"expense_date"`
	VendorOrderID *uuid.UUID `json:"vendor_order_id"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toExpenseResponse(e database.Expense) expenseResponse {
	return expenseResponse{
		ID:            e.ID,
		VendorID:      uuidPtr(e.VendorID),
		Category:      e.Category,
		Description:   textPtr(e.Description),
		Amount:        numericToString(e.Amount),
		PaidAmount:    numericToString(e.PaidAmount),
		ExpenseDate:   datePtr(e.ExpenseDate),
		VendorOrderID: uuidPtr(e.VendorOrderID),
		CreatedBy:     e.CreatedBy,
		CreatedAt:     e.CreatedAt,
	}
}

type expenseResultResponse struct {
	Expense     expenseResponse      `json:"expense"`
	PendingBill *pendingBillResponse `json:"pending_bill"`
}

// parseDay reads a YYYY-MM-DD date; "" yields the zero time.
func parseDay(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, s, time.Local)
}

func queryDate(w http.ResponseWriter, r *http.Request, key string) (pgtype.Date, bool) {
	t, err := parseDay(r.URL.Query().Get(key))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+key+" date, expected YYYY-MM-DD")
		return pgtype.Date{}, false
	}
	if t.IsZero() {
		return pgtype.Date{}, true
	}
	return pgtype.Date{Time: t, Valid: true}, true
}

// --- Handlers ---

// List returns expenses, newest first. Filters: ?from=, ?to=, ?vendor_id=,
// ?category=.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	from, ok := queryDate(w, r, "from")
	if !ok {
		return
	}
	to, ok := queryDate(w, r, "to")
	if !ok {
		return
	}
	vendorID, ok := queryUUID(w, r, "vendor_id")
	if !ok {
		return
	}
	limit, offset := pagination(r, 50, 200)

	list, err := h.store.ListExpenses(r.Context(), database.ListExpensesParams{
		RestaurantID: rid,
		StartDate:    from,
		EndDate:      to,
		VendorID:     vendorID,
		Category:     queryText(r, "category"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		internalError(w, r, "list expenses", err)
		return
	}

	resp := make([]expenseResponse, len(list))
	for i, e := range list {
		resp[i] = toExpenseResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create books an expense. A vendor expense that is not fully paid opens a
// payable for the rest.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req createExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	vendorID, err := parseOptionalUUID(req.VendorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid vendor_id")
		return
	}
	day, err := parseDay(req.ExpenseDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense_date, expected YYYY-MM-DD")
		return
	}

	res, err := h.ledger.CreateExpense(r.Context(), service.CreateExpenseRequest{
		RestaurantID: rid,
		CreatedBy:    staffID(r),
		VendorID:     vendorID,
		Category:     req.Category,
		Description:  req.Description,
		Amount:       req.Amount,
		PaidAmount:   req.PaidAmount,
		ExpenseDate:  day,
	})
	if err != nil {
		writeServiceError(w, r, "create expense", err)
		return
	}

	resp := expenseResultResponse{Expense: toExpenseResponse(res.Expense)}
	if res.PendingBill != nil {
		pb := toPendingBillResponse(*res.PendingBill)
		resp.PendingBill = &pb
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Get returns one expense.
func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "expense")
	if !ok {
		return
	}

	e, err := h.store.GetExpense(r.Context(), database.GetExpenseParams{ID: id, RestaurantID: rid})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		internalError(w, r, "get expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

// Update edits the descriptive fields. Amounts are fixed once booked since
// payables are derived from them.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "expense")
	if !ok {
		return
	}

	var req updateExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Category = strings.TrimSpace(req.Category)
	if req.Category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}
	day, err := parseDay(req.ExpenseDate)
	if err != nil || day.IsZero() {
		writeError(w, http.StatusBadRequest, "expense_date is required, expected YYYY-MM-DD")
		return
	}

	e, err := h.store.UpdateExpense(r.Context(), database.UpdateExpenseParams{
		ID:           id,
		RestaurantID: rid,
		Category:     req.Category,
		Description:  optionalText(req.Description),
		ExpenseDate:  pgtype.Date{Time: day, Valid: true},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		internalError(w, r, "update expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

// Delete removes an expense and its unpaid payable. An expense whose
// payable already has instalments cannot be deleted.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "expense")
	if !ok {
		return
	}

	if _, err := h.store.DeleteExpense(r.Context(), database.DeleteExpenseParams{
		ID:           id,
		RestaurantID: rid,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		if isForeignKeyViolation(err) {
			writeError(w, http.StatusConflict, "expense has payments recorded against it")
			return
		}
		internalError(w, r, "delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export streams the expenses between ?from= and ?to= as an .xlsx workbook.
// Defaults to the current month.
func (h *ExpenseHandler) Export(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	from, end, ok := parseDateRange(w, r, monthStart, now)
	if !ok {
		return
	}
	to := end.AddDate(0, 0, -1)

	list, err := h.store.ListExpensesForExport(r.Context(), database.ListExpensesForExportParams{
		RestaurantID: rid,
		StartDate:    from,
		EndDate:      to,
	})
	if err != nil {
		internalError(w, r, "list expenses for export", err)
		return
	}

	rows := make([]export.ExpenseRow, len(list))
	for i, e := range list {
		rows[i] = export.ExpenseRow{
			Date:        e.ExpenseDate.Time,
			Category:    e.Category,
			Description: e.Description.String,
			Vendor:      e.VendorName.String,
			Amount:      numericToDecimal(e.Amount),
			Paid:        numericToDecimal(e.PaidAmount),
		}
	}

	title := fmt.Sprintf("Expenses %s to %s", from.Format(dateLayout), to.Format(dateLayout))
	filename := fmt.Sprintf("expenses_%s_%s.xlsx", from.Format(dateLayout), to.Format(dateLayout))
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := export.WriteExpenses(w, title, rows); err != nil {
		// Headers are already out; all that is left is to log.
		zap.L().Error("export expenses", zap.Error(err), zap.Stringer("restaurant_id", rid))
	}
}
