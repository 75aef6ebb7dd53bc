//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/config"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/events"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/printer"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/router"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/ws"
)

// TestIntegrationFlow runs a dine-in service end to end against a real
// PostgreSQL: setup, menu, order, two KOT rounds, settle, reports.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:        "8081",
		DatabaseURL: connStr,
		JWTSecret:   "integration-test-secret",
		CORSOrigins: []string{"http://localhost:3000"},
	}
	hub := ws.NewHub()
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	dispatcher := service.NewDispatcher(hub, events.NoopPublisher{},
		printer.NewRouter(&config.PrinterRoutes{}, printer.TCPSink{}))
	go dispatcher.Run(hubCtx)
	server := httptest.NewServer(router.New(cfg, database.New(pool), pool, hub, dispatcher))
	defer server.Close()

	// --- 1. Setup wizard ---
	setup := httpPostJSON(t, server, "/setup", map[string]interface{}{
		"restaurant_name": "Corner Cafe",
		"owner_name":      "Asha",
		"owner_email":     "owner@test.com",
		"owner_password":  "password123",
		"tax_rate":        "5",
		"tables":          4,
	}, "")
	token := setup["access_token"].(string)
	restaurant := setup["restaurant"].(map[string]interface{})
	base := "/restaurants/" + restaurant["id"].(string)

	categories := setup["categories"].([]interface{})
	if len(categories) != 2 {
		t.Fatalf("setup categories = %d, want 2", len(categories))
	}
	stationOf := map[string]string{}
	categoryID := map[string]string{}
	for _, c := range categories {
		cat := c.(map[string]interface{})
		stationOf[cat["name"].(string)] = cat["station"].(string)
		categoryID[cat["name"].(string)] = cat["id"].(string)
	}
	if stationOf["Food"] != "KITCHEN" || stationOf["Drinks"] != "BAR" {
		t.Fatalf("default stations = %v", stationOf)
	}
	tableID := setup["tables"].([]interface{})[0].(map[string]interface{})["id"].(string)

	// --- 2. Login with the owner credentials ---
	login := httpPostJSON(t, server, "/auth/login", map[string]interface{}{
		"email": "owner@test.com", "password": "password123",
	}, "")
	if login["access_token"] == "" {
		t.Fatal("login returned no access token")
	}

	// --- 3. Cashier by PIN ---
	httpPostJSON(t, server, base+"/staff", map[string]interface{}{
		"full_name": "Ravi", "role": "CASHIER", "pin": "4321",
	}, token)
	pinLogin := httpPostJSON(t, server, "/auth/pin-login", map[string]interface{}{
		"restaurant_id": restaurant["id"], "pin": "4321",
	}, "")
	cashierToken := pinLogin["access_token"].(string)

	// --- 4. Menu ---
	sandwich := httpPostJSON(t, server, base+"/menu-items", map[string]interface{}{
		"category_id": categoryID["Food"], "name": "Veg Sandwich", "price": "120.00",
	}, token)
	chai := httpPostJSON(t, server, base+"/menu-items", map[string]interface{}{
		"category_id": categoryID["Drinks"], "name": "Masala Chai", "price": "40.00",
	}, token)

	// --- 5. Dine-in order seats the table ---
	order := httpPostJSON(t, server, base+"/orders", map[string]interface{}{
		"order_type": "DINE_IN", "table_id": tableID, "guests": 2,
	}, cashierToken)
	orderPath := base + "/orders/" + order["id"].(string)
	assertTableStatus(t, server, base, tableID, cashierToken, "OCCUPIED")

	httpPostJSON(t, server, orderPath+"/items", map[string]interface{}{
		"menu_item_id": sandwich["id"], "quantity": 1,
	}, cashierToken)
	httpPostJSON(t, server, orderPath+"/items", map[string]interface{}{
		"menu_item_id": chai["id"], "quantity": 2,
	}, cashierToken)

	// --- 6. Split tickets by station, first KOT ---
	pref := httpSendJSON(t, server, http.MethodPut, base+"/settings/kot-preference", map[string]interface{}{
		"mode": "KITCHEN_BAR", "default_group": "KITCHEN",
	}, token)
	if pref["mode"] != "KITCHEN_BAR" {
		t.Fatalf("kot preference mode = %v", pref["mode"])
	}
	first := httpPostJSON(t, server, orderPath+"/kot", nil, cashierToken)
	tickets := first["tickets"].([]interface{})
	if len(tickets) != 2 {
		t.Fatalf("first KOT tickets = %d, want 2 (kitchen + bar)", len(tickets))
	}

	// --- 7. Second round only carries the new line ---
	httpPostJSON(t, server, orderPath+"/items", map[string]interface{}{
		"menu_item_id": chai["id"], "quantity": 1, "instructions": "less sugar",
	}, cashierToken)
	second := httpPostJSON(t, server, orderPath+"/kot", nil, cashierToken)
	tickets = second["tickets"].([]interface{})
	if len(tickets) != 1 {
		t.Fatalf("second KOT tickets = %d, want 1", len(tickets))
	}
	if g := tickets[0].(map[string]interface{})["group"]; g != "BAR" {
		t.Errorf("second KOT group = %v, want BAR", g)
	}

	// --- 8. Settle in cash ---
	settled := httpPostJSON(t, server, orderPath+"/settle", map[string]interface{}{
		"payment_method": "CASH", "paid_amount": "300.00",
	}, cashierToken)
	bill := settled["bill"].(map[string]interface{})
	// 120 + 3 x 40 = 240, 5% tax = 12
	if bill["total"] != "252.00" {
		t.Errorf("bill total = %v, want 252.00", bill["total"])
	}
	if settled["change"] != "48.00" {
		t.Errorf("change = %v, want 48.00", settled["change"])
	}
	assertTableStatus(t, server, base, tableID, cashierToken, "CLEANING")

	// --- 9. Reports see the bill ---
	today := time.Now().Format("2006-01-02")
	daily := httpGetList(t, server, fmt.Sprintf("%s/reports/daily-sales?from=%s&to=%s", base, today, today), token)
	if len(daily) != 1 {
		t.Fatalf("daily sales rows = %d, want 1", len(daily))
	}
	if got := daily[0].(map[string]interface{})["bill_count"]; got != float64(1) {
		t.Errorf("bill_count = %v, want 1", got)
	}

	// --- 10. Floor staff cannot read reports ---
	req, _ := http.NewRequest(http.MethodGet, server.URL+base+"/reports/daily-sales", nil)
	req.Header.Set("Authorization", "Bearer "+cashierToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("cashier reports status = %d, want 403", resp.StatusCode)
	}

	// --- 11. Credit bill paid off later in cash ---
	customer := httpPostJSON(t, server, base+"/customers", map[string]interface{}{
		"name": "Meera", "phone": "9800000001",
	}, token)
	takeaway := httpPostJSON(t, server, base+"/orders", map[string]interface{}{
		"order_type": "TAKEAWAY",
	}, cashierToken)
	takeawayPath := base + "/orders/" + takeaway["id"].(string)
	httpPostJSON(t, server, takeawayPath+"/items", map[string]interface{}{
		"menu_item_id": sandwich["id"], "quantity": 1,
	}, cashierToken)
	onCredit := httpPostJSON(t, server, takeawayPath+"/settle", map[string]interface{}{
		"payment_method": "CREDIT", "customer_id": customer["id"],
	}, cashierToken)
	receivable, ok := onCredit["pending_bill"].(map[string]interface{})
	if !ok {
		t.Fatalf("credit settle opened no receivable: %v", onCredit)
	}
	// 120 + 5% tax
	if receivable["amount_due"] != "126.00" {
		t.Errorf("receivable amount_due = %v, want 126.00", receivable["amount_due"])
	}
	httpPostJSON(t, server, base+"/pending-bills/"+receivable["id"].(string)+"/payments", map[string]interface{}{
		"amount": "50.00", "payment_method": "CASH",
	}, token)

	// --- 12. Payment summary counts the instalment as cash ---
	summary := httpGetList(t, server, fmt.Sprintf("%s/reports/payment-summary?from=%s&to=%s", base, today, today), token)
	byMethod := map[string]map[string]interface{}{}
	for _, row := range summary {
		m := row.(map[string]interface{})
		byMethod[m["payment_method"].(string)] = m
	}
	if got := byMethod["CASH"]["total_paid"]; got != "302.00" {
		t.Errorf("CASH total_paid = %v, want 302.00 (252 at the till + 50 instalment)", got)
	}
	if got := byMethod["CASH"]["bill_count"]; got != float64(2) {
		t.Errorf("CASH bill_count = %v, want 2", got)
	}
	if got := byMethod["CREDIT"]["total_paid"]; got != "0.00" {
		t.Errorf("CREDIT total_paid = %v, want 0.00", got)
	}
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pos_test"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}
	return connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()
	if err := database.Migrate(connStr, true); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	// Second run must be a no-op.
	if err := database.Migrate(connStr, true); err != nil {
		t.Fatalf("re-run migrations: %v", err)
	}
}

func assertTableStatus(t *testing.T, server *httptest.Server, base, tableID, token, want string) {
	t.Helper()
	for _, tb := range httpGetList(t, server, base+"/tables", token) {
		table := tb.(map[string]interface{})
		if table["id"] == tableID {
			if table["status"] != want {
				t.Errorf("table status = %v, want %s", table["status"], want)
			}
			return
		}
	}
	t.Fatalf("table %s not listed", tableID)
}

// --- HTTP helpers ---

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	return httpSendJSON(t, server, http.MethodPost, path, body, token)
}

func httpSendJSON(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = b
	}

	req, err := http.NewRequest(method, server.URL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	var result map[string]interface{}
	doJSON(t, req, &result)
	return result
}

func httpGetList(t *testing.T, server *httptest.Server, path, token string) []interface{} {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var result []interface{}
	doJSON(t, req, &result)
	return result
}

func doJSON(t *testing.T, req *http.Request, out interface{}) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp) //nolint:errcheck
		t.Fatalf("%s %s: status %d, body: %v", req.Method, req.URL.Path, resp.StatusCode, errResp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
