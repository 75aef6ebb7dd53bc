package handler_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/xuri/excelize/v2"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/export"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/handler"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
)

// --- Mocks ---

type mockExpenseStore struct {
	expenses   map[uuid.UUID]database.Expense
	withPaying map[uuid.UUID]bool // expenses whose payable has instalments
	exportArg  database.ListExpensesForExportParams
	exportRows []database.ExpenseExportRow
}

func newMockExpenseStore() *mockExpenseStore {
	return &mockExpenseStore{
		expenses:   make(map[uuid.UUID]database.Expense),
		withPaying: make(map[uuid.UUID]bool),
	}
}

func (m *mockExpenseStore) ListExpenses(_ context.Context, arg database.ListExpensesParams) ([]database.Expense, error) {
	var out []database.Expense
	for _, e := range m.expenses {
		if e.RestaurantID != arg.RestaurantID {
			continue
		}
		if arg.Category.Valid && e.Category != arg.Category.String {
			continue
		}
		if arg.StartDate.Valid && e.ExpenseDate.Time.Before(arg.StartDate.Time) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockExpenseStore) ListExpensesForExport(_ context.Context, arg database.ListExpensesForExportParams) ([]database.ExpenseExportRow, error) {
	m.exportArg = arg
	return m.exportRows, nil
}

func (m *mockExpenseStore) GetExpense(_ context.Context, arg database.GetExpenseParams) (database.Expense, error) {
	e, ok := m.expenses[arg.ID]
	if !ok || e.RestaurantID != arg.RestaurantID {
		return database.Expense{}, pgx.ErrNoRows
	}
	return e, nil
}

func (m *mockExpenseStore) UpdateExpense(_ context.Context, arg database.UpdateExpenseParams) (database.Expense, error) {
	e, ok := m.expenses[arg.ID]
	if !ok || e.RestaurantID != arg.RestaurantID {
		return database.Expense{}, pgx.ErrNoRows
	}
	e.Category, e.Description, e.ExpenseDate = arg.Category, arg.Description, arg.ExpenseDate
	m.expenses[e.ID] = e
	return e, nil
}

func (m *mockExpenseStore) DeleteExpense(_ context.Context, arg database.DeleteExpenseParams) (uuid.UUID, error) {
	e, ok := m.expenses[arg.ID]
	if !ok || e.RestaurantID != arg.RestaurantID {
		return uuid.Nil, pgx.ErrNoRows
	}
	if m.withPaying[e.ID] {
		return uuid.Nil, &pgconn.PgError{Code: "23503"}
	}
	delete(m.expenses, e.ID)
	return e.ID, nil
}

type mockLedger struct {
	last service.CreateExpenseRequest
	err  error
}

func (m *mockLedger) CreateExpense(_ context.Context, req service.CreateExpenseRequest) (*service.ExpenseResult, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	res := &service.ExpenseResult{Expense: database.Expense{
		ID: uuid.New(), RestaurantID: req.RestaurantID, Category: req.Category,
		Amount: numeric(req.Amount), PaidAmount: numeric(req.PaidAmount),
		ExpenseDate: pgtype.Date{Time: req.ExpenseDate, Valid: true},
	}}
	if req.PaidAmount != req.Amount {
		res.PendingBill = &database.PendingBill{ID: uuid.New(), AmountDue: numeric("100"), AmountSettled: numeric("0")}
	}
	return res, nil
}

func setupExpenseRouter(store *mockExpenseStore, ledger *mockLedger) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/restaurants/{rid}/expenses", handler.NewExpenseHandler(store, ledger).RegisterRoutes)
	return r
}

func day(s string) pgtype.Date {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		panic(err)
	}
	return pgtype.Date{Time: t, Valid: true}
}

// --- Tests ---

func TestExpenseCreate_OpensPayable(t *testing.T) {
	ledger := &mockLedger{}
	rid, vendor := uuid.New(), uuid.New()

	rr := doRequest(t, setupExpenseRouter(newMockExpenseStore(), ledger), "POST", "/restaurants/"+rid.String()+"/expenses", map[string]string{
		"vendor_id":    vendor.String(),
		"category":     "Groceries",
		"amount":       "500",
		"paid_amount":  "400",
		"expense_date": "2026-03-14",
	})

	expectStatus(t, rr, http.StatusCreated)
	if ledger.last.VendorID != vendor || ledger.last.ExpenseDate.Format("2006-01-02") != "2026-03-14" {
		t.Errorf("request: got %+v", ledger.last)
	}
	resp := decodeObject(t, rr)
	if resp["pending_bill"] == nil {
		t.Error("expected a pending bill for the unpaid balance")
	}
	if resp["expense"].(map[string]interface{})["expense_date"] != "2026-03-14" {
		t.Errorf("expense: got %v", resp["expense"])
	}
}

func TestExpenseCreate_Errors(t *testing.T) {
	rid := uuid.New()
	tests := []struct {
		name string
		err  error
		body map[string]string
		want int
	}{
		{"bad date", nil, map[string]string{"category": "Rent", "amount": "1", "expense_date": "14/03/2026"}, http.StatusBadRequest},
		{"bad vendor", nil, map[string]string{"category": "Rent", "amount": "1", "vendor_id": "v1"}, http.StatusBadRequest},
		{"overpaid", service.ErrPaidExceedsAmount, map[string]string{"category": "Rent", "amount": "1", "paid_amount": "2"}, http.StatusBadRequest},
		{"unknown vendor", service.ErrVendorNotFound, map[string]string{"category": "Rent", "amount": "1", "vendor_id": uuid.NewString()}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, setupExpenseRouter(newMockExpenseStore(), &mockLedger{err: tt.err}), "POST",
				"/restaurants/"+rid.String()+"/expenses", tt.body)
			expectStatus(t, rr, tt.want)
		})
	}
}

func TestExpenseList_Filters(t *testing.T) {
	store := newMockExpenseStore()
	rid := uuid.New()
	for _, e := range []database.Expense{
		{ID: uuid.New(), RestaurantID: rid, Category: "Rent", Amount: numeric("900"), PaidAmount: numeric("900"), ExpenseDate: day("2026-03-01")},
		{ID: uuid.New(), RestaurantID: rid, Category: "Groceries", Amount: numeric("50"), PaidAmount: numeric("50"), ExpenseDate: day("2026-03-10")},
		{ID: uuid.New(), RestaurantID: uuid.New(), Category: "Rent", Amount: numeric("1"), PaidAmount: numeric("1"), ExpenseDate: day("2026-03-10")},
	} {
		store.expenses[e.ID] = e
	}
	router := setupExpenseRouter(store, &mockLedger{})

	rr := doRequest(t, router, "GET", "/restaurants/"+rid.String()+"/expenses?category=Rent", nil)
	expectStatus(t, rr, http.StatusOK)
	if list := decodeList(t, rr); len(list) != 1 || list[0]["amount"] != "900.00" {
		t.Errorf("category filter: got %v", list)
	}

	rr = doRequest(t, router, "GET", "/restaurants/"+rid.String()+"/expenses?from=2026-03-05", nil)
	expectStatus(t, rr, http.StatusOK)
	if list := decodeList(t, rr); len(list) != 1 || list[0]["category"] != "Groceries" {
		t.Errorf("date filter: got %v", list)
	}

	rr = doRequest(t, router, "GET", "/restaurants/"+rid.String()+"/expenses?from=yesterday", nil)
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestExpenseDelete_WithInstalments(t *testing.T) {
	store := newMockExpenseStore()
	rid := uuid.New()
	paid := database.Expense{ID: uuid.New(), RestaurantID: rid, Category: "Dairy"}
	store.expenses[paid.ID] = paid
	store.withPaying[paid.ID] = true
	router := setupExpenseRouter(store, &mockLedger{})

	rr := doRequest(t, router, "DELETE", "/restaurants/"+rid.String()+"/expenses/"+paid.ID.String(), nil)
	expectStatus(t, rr, http.StatusConflict)

	store.withPaying[paid.ID] = false
	rr = doRequest(t, router, "DELETE", "/restaurants/"+rid.String()+"/expenses/"+paid.ID.String(), nil)
	expectStatus(t, rr, http.StatusNoContent)

	rr = doRequest(t, router, "GET", "/restaurants/"+rid.String()+"/expenses/"+paid.ID.String(), nil)
	expectStatus(t, rr, http.StatusNotFound)
}

func TestExpenseUpdate_RequiresDate(t *testing.T) {
	store := newMockExpenseStore()
	rid := uuid.New()
	e := database.Expense{ID: uuid.New(), RestaurantID: rid, Category: "Dairy", ExpenseDate: day("2026-03-01")}
	store.expenses[e.ID] = e
	router := setupExpenseRouter(store, &mockLedger{})
	path := "/restaurants/" + rid.String() + "/expenses/" + e.ID.String()

	rr := doRequest(t, router, "PUT", path, map[string]string{"category": "Milk"})
	expectStatus(t, rr, http.StatusBadRequest)

	rr = doRequest(t, router, "PUT", path, map[string]string{"category": "Milk", "description": "morning", "expense_date": "2026-03-02"})
	expectStatus(t, rr, http.StatusOK)
	resp := decodeObject(t, rr)
	if resp["category"] != "Milk" || resp["description"] != "morning" || resp["expense_date"] != "2026-03-02" {
		t.Errorf("updated: got %v", resp)
	}
}

func TestExpenseExport_Workbook(t *testing.T) {
	store := newMockExpenseStore()
	store.exportRows = []database.ExpenseExportRow{
		{ExpenseDate: day("2026-02-03"), Category: "Groceries", VendorName: text("Fresh Farms"), Amount: numeric("1200"), PaidAmount: numeric("1000")},
		{ExpenseDate: day("2026-02-09"), Category: "Rent", Description: text("February"), Amount: numeric("30000"), PaidAmount: numeric("30000")},
	}
	rid := uuid.New()

	rr := doRequest(t, setupExpenseRouter(store, &mockLedger{}), "GET",
		"/restaurants/"+rid.String()+"/expenses/export?from=2026-02-01&to=2026-02-28", nil)

	expectStatus(t, rr, http.StatusOK)
	if ct := rr.Header().Get("Content-Type"); ct != export.ContentTypeXLSX {
		t.Errorf("content type: got %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "expenses_2026-02-01_2026-02-28.xlsx") {
		t.Errorf("content disposition: got %q", cd)
	}
	if got := store.exportArg.EndDate.Format("2006-01-02"); got != "2026-02-28" {
		t.Errorf("export end date: got %s, want the inclusive 2026-02-28", got)
	}

	f, err := excelize.OpenReader(rr.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	vendor, _ := f.GetCellValue(export.ExpenseSheet, "D4")
	if vendor != "Fresh Farms" {
		t.Errorf("D4: got %q, want Fresh Farms", vendor)
	}
	due, _ := f.GetCellValue(export.ExpenseSheet, "G4", excelize.Options{RawCellValue: true})
	if due != "200" {
		t.Errorf("G4 due: got %q, want 200", due)
	}
}

func TestExpenseExport_RangeTooLong(t *testing.T) {
	rr := doRequest(t, setupExpenseRouter(newMockExpenseStore(), &mockLedger{}), "GET",
		"/restaurants/"+uuid.NewString()+"/expenses/export?from=2024-01-01&to=2026-01-01", nil)

	expectStatus(t, rr, http.StatusBadRequest)
}
