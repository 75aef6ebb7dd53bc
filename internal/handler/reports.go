package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
	GetItemSales(ctx context.Context, arg database.GetItemSalesParams) ([]database.GetItemSalesRow, error)
	GetPaymentSummary(ctx context.Context, arg database.GetPaymentSummaryParams) ([]database.GetPaymentSummaryRow, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	store ReportsStore
	now   func() time.Time
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store, now: time.Now}
}

// RegisterRoutes registers report endpoints.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/reports
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-sales", h.DailySales)
	r.Get("/item-sales", h.ItemSales)
	r.Get("/payment-summary", h.PaymentSummary)
}

// --- Response types ---

type dailySalesResponse struct {
	Date          string `json:"date"`
	BillCount     int64  `json:"bill_count"`
	TotalRevenue  string `json:"total_revenue"`
	TotalDiscount string `json:"total_discount"`
	TotalTax      string `json:"total_tax"`
	TotalPaid     string `json:"total_paid"`
	Outstanding   string `json:"outstanding"`
}

type itemSalesResponse struct {
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	Name         string    `json:"name"`
	CategoryName string    `json:"category_name"`
	QuantitySold int64     `json:"quantity_sold"`
	TotalRevenue string    `json:"total_revenue"`
}

type paymentSummaryResponse struct {
	PaymentMethod string `json:"payment_method"`
	BillCount     int64  `json:"bill_count"`
	TotalPaid     string `json:"total_paid"`
}

// defaultRange is the last 30 days including today.
func (h *ReportsHandler) defaultRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := h.now()
	return parseDateRange(w, r, now.AddDate(0, 0, -29), now)
}

// --- Handlers ---

// DailySales returns per-day bill totals. Query params: from, to (YYYY-MM-DD).
func (h *ReportsHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	from, to, ok := h.defaultRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), database.GetDailySalesParams{
		RestaurantID: rid,
		StartAt:      from,
		EndAt:        to,
		TimeZone:     zoneName(),
	})
	if err != nil {
		internalError(w, r, "get daily sales", err)
		return
	}

	resp := make([]dailySalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = dailySalesResponse{
			Date:          row.SaleDate.Time.Format(dateLayout),
			BillCount:     row.BillCount,
			TotalRevenue:  numericToString(row.TotalRevenue),
			TotalDiscount: numericToString(row.TotalDiscount),
			TotalTax:      numericToString(row.TotalTax),
			TotalPaid:     numericToString(row.TotalPaid),
			Outstanding:   numericToString(row.Outstanding),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ItemSales returns the best selling menu items. Query params: from, to,
// limit (default 20, max 100).
func (h *ReportsHandler) ItemSales(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	from, to, ok := h.defaultRange(w, r)
	if !ok {
		return
	}
	limit, _ := pagination(r, 20, 100)

	rows, err := h.store.GetItemSales(r.Context(), database.GetItemSalesParams{
		RestaurantID: rid,
		StartAt:      from,
		EndAt:        to,
		Limit:        limit,
	})
	if err != nil {
		internalError(w, r, "get item sales", err)
		return
	}

	resp := make([]itemSalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = itemSalesResponse{
			MenuItemID:   row.MenuItemID,
			Name:         row.Name,
			CategoryName: row.CategoryName,
			QuantitySold: row.QuantitySold,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// PaymentSummary returns till collections per payment method.
func (h *ReportsHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	from, to, ok := h.defaultRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetPaymentSummary(r.Context(), database.GetPaymentSummaryParams{
		RestaurantID: rid,
		StartAt:      from,
		EndAt:        to,
	})
	if err != nil {
		internalError(w, r, "get payment summary", err)
		return
	}

	resp := make([]paymentSummaryResponse, len(rows))
	for i, row := range rows {
		resp[i] = paymentSummaryResponse{
			PaymentMethod: row.PaymentMethod,
			BillCount:     row.BillCount,
			TotalPaid:     numericToString(row.TotalPaid),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
