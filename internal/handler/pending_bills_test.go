package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/enum"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/handler"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
)

type mockPendingBillStore struct {
	bills    map[uuid.UUID]database.PendingBill
	payments map[uuid.UUID][]database.PendingBillPayment
	lastList database.ListPendingBillsParams
}

func newMockPendingBillStore() *mockPendingBillStore {
	return &mockPendingBillStore{
		bills:    make(map[uuid.UUID]database.PendingBill),
		payments: make(map[uuid.UUID][]database.PendingBillPayment),
	}
}

func (m *mockPendingBillStore) add(rid uuid.UUID, partyType, due, settled string) database.PendingBill {
	pb := database.PendingBill{
		ID: uuid.New(), RestaurantID: rid, PartyType: partyType, PartyID: uuid.New(),
		SourceType: enum.SourceTypeExpense, SourceID: uuid.New(),
		AmountDue: numeric(due), AmountSettled: numeric(settled), Status: enum.PendingBillStatusOpen,
	}
	m.bills[pb.ID] = pb
	return pb
}

func (m *mockPendingBillStore) ListPendingBills(_ context.Context, arg database.ListPendingBillsParams) ([]database.PendingBill, error) {
	m.lastList = arg
	var out []database.PendingBill
	for _, pb := range m.bills {
		if pb.RestaurantID == arg.RestaurantID {
			out = append(out, pb)
		}
	}
	return out, nil
}

func (m *mockPendingBillStore) GetPendingBill(_ context.Context, arg database.GetPendingBillParams) (database.PendingBill, error) {
	pb, ok := m.bills[arg.ID]
	if !ok || pb.RestaurantID != arg.RestaurantID {
		return database.PendingBill{}, pgx.ErrNoRows
	}
	return pb, nil
}

func (m *mockPendingBillStore) ListPendingBillPayments(_ context.Context, id uuid.UUID) ([]database.PendingBillPayment, error) {
	return m.payments[id], nil
}

type mockSettler struct {
	store *mockPendingBillStore
	err   error
	last  service.SettlePendingRequest
}

func (m *mockSettler) SettlePendingBill(_ context.Context, req service.SettlePendingRequest) (*service.SettlementResult, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	pb := m.store.bills[req.PendingBillID]
	pb.AmountSettled = numeric(req.Amount)
	return &service.SettlementResult{
		PendingBill: pb,
		Payment: database.PendingBillPayment{
			ID: uuid.New(), PendingBillID: pb.ID, Amount: numeric(req.Amount), PaymentMethod: req.PaymentMethod,
		},
	}, nil
}

func setupPendingBillRouter(store *mockPendingBillStore, svc *mockSettler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/restaurants/{rid}/pending-bills", handler.NewPendingBillHandler(store, svc).RegisterRoutes)
	return r
}

func TestPendingBillList_Filters(t *testing.T) {
	store := newMockPendingBillStore()
	rid := uuid.New()
	store.add(rid, enum.PartyTypeVendor, "500", "200")
	partyID := uuid.New()
	router := setupPendingBillRouter(store, &mockSettler{store: store})

	rr := doRequest(t, router, http.MethodGet,
		"/restaurants/"+rid.String()+"/pending-bills?party_type=vendor&status=open&party_id="+partyID.String(), nil)
	expectStatus(t, rr, http.StatusOK)

	list := decodeList(t, rr)
	if len(list) != 1 || list[0]["balance"] != "300.00" {
		t.Fatalf("unexpected list: %v", list)
	}
	if store.lastList.PartyType.String != enum.PartyTypeVendor || store.lastList.Status.String != enum.PendingBillStatusOpen {
		t.Errorf("filters not upper-cased: %+v", store.lastList)
	}
	if uuid.UUID(store.lastList.PartyID.Bytes) != partyID {
		t.Errorf("party_id filter = %v", store.lastList.PartyID)
	}

	rr = doRequest(t, router, http.MethodGet, "/restaurants/"+rid.String()+"/pending-bills?party_id=x", nil)
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestPendingBillGet(t *testing.T) {
	store := newMockPendingBillStore()
	rid := uuid.New()
	pb := store.add(rid, enum.PartyTypeCustomer, "250", "100")
	store.payments[pb.ID] = []database.PendingBillPayment{
		{ID: uuid.New(), PendingBillID: pb.ID, Amount: numeric("100"), PaymentMethod: enum.PaymentMethodUPI},
	}
	router := setupPendingBillRouter(store, &mockSettler{store: store})

	rr := doRequest(t, router, http.MethodGet, "/restaurants/"+rid.String()+"/pending-bills/"+pb.ID.String(), nil)
	expectStatus(t, rr, http.StatusOK)
	resp := decodeObject(t, rr)
	payments := resp["payments"].([]interface{})
	if len(payments) != 1 || payments[0].(map[string]interface{})["amount"] != "100.00" {
		t.Errorf("payments = %v", payments)
	}

	rr = doRequest(t, router, http.MethodGet, "/restaurants/"+uuid.NewString()+"/pending-bills/"+pb.ID.String(), nil)
	expectStatus(t, rr, http.StatusNotFound)
}

func TestPendingBillSettle(t *testing.T) {
	store := newMockPendingBillStore()
	rid := uuid.New()
	pb := store.add(rid, enum.PartyTypeCustomer, "250", "0")
	path := "/restaurants/" + rid.String() + "/pending-bills/" + pb.ID.String() + "/payments"

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"partial", nil, http.StatusOK},
		{"over settlement", service.ErrOverSettlement, http.StatusBadRequest},
		{"already settled", service.ErrPendingBillSettled, http.StatusConflict},
		{"bad amount", service.ErrInvalidAmount, http.StatusBadRequest},
		{"unknown", service.ErrPendingBillNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSettler{store: store, err: tt.err}
			rr := doRequest(t, setupPendingBillRouter(store, svc), http.MethodPost, path,
				map[string]string{"amount": "100", "payment_method": " cash "})
			expectStatus(t, rr, tt.want)
			if svc.last.PaymentMethod != enum.PaymentMethodCash {
				t.Errorf("payment method = %q, want CASH", svc.last.PaymentMethod)
			}
		})
	}
}
