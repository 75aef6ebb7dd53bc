package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
)

// ReservationStore defines the database methods needed by reservation
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type ReservationStore interface {
	ListReservations(ctx context.Context, arg database.ListReservationsParams) ([]database.Reservation, error)
}

// ReservationService is satisfied by *service.TableService.
type ReservationService interface {
	CreateReservation(ctx context.Context, req service.CreateReservationRequest) (database.Reservation, error)
	SeatReservation(ctx context.Context, restaurantID, reservationID, staffID uuid.UUID) (database.Reservation, database.Order, error)
	CancelReservation(ctx context.Context, restaurantID, reservationID uuid.UUID) (database.Reservation, error)
	MarkNoShow(ctx context.Context, restaurantID, reservationID uuid.UUID) (database.Reservation, error)
}

// ReservationHandler handles the reservation lifecycle.
type ReservationHandler struct {
	store ReservationStore
	svc   ReservationService
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(store ReservationStore, svc ReservationService) *ReservationHandler {
	return &ReservationHandler{store: store, svc: svc}
}

// RegisterRoutes registers reservation endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/reservations
func (h *ReservationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/{id}/seat", h.Seat)
	r.Post("/{id}/cancel", h.Cancel)
	r.Post("/{id}/no-show", h.NoShow)
}

// --- Request / Response types ---

type createReservationRequest struct {
	TableID     string    `json:"table_id"`
	CustomerID  string    `json:"customer_id"`
	GuestName   string    `json:"guest_name"`
	Phone       string    `json:"phone"`
	PartySize   int32     `json:"party_size"`
	ReservedFor time.Time `json:"reserved_for"`
	Notes       string    `json:"notes"`
}

type reservationResponse struct {
	ID          uuid.UUID  `json:"id"`
	TableID     *uuid.UUID `json:"table_id"`
	CustomerID  *uuid.UUID `json:"customer_id"`
	GuestName   string     `json:"guest_name"`
	Phone       *string    `json:"phone"`
	PartySize   int32      `json:"party_size"`
	ReservedFor time.Time  `json:"reserved_for"`
	Status      string     `json:"status"`
	Notes       *string    `json:"notes"`
	OrderID     *uuid.UUID `json:"order_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toReservationResponse(res database.Reservation) reservationResponse {
	return reservationResponse{
		ID:          res.ID,
		TableID:     uuidPtr(res.TableID),
		CustomerID:  uuidPtr(res.CustomerID),
		GuestName:   res.GuestName,
		Phone:       textPtr(res.Phone),
		PartySize:   res.PartySize,
		ReservedFor: res.ReservedFor,
		Status:      res.Status,
		Notes:       textPtr(res.Notes),
		OrderID:     uuidPtr(res.OrderID),
		CreatedAt:   res.CreatedAt,
	}
}

type seatResponse struct {
	Reservation reservationResponse `json:"reservation"`
	Order       orderResponse       `json:"order"`
}

// --- Handlers ---

// List returns reservations between ?from= and ?to= (YYYY-MM-DD, inclusive),
// defaulting to the next seven days. ?status= narrows by status.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	today := startOfDay(time.Now())
	from, to, ok := parseDateRange(w, r, today, today.AddDate(0, 0, 6))
	if !ok {
		return
	}

	list, err := h.store.ListReservations(r.Context(), database.ListReservationsParams{
		RestaurantID: rid,
		From:         from,
		To:           to,
		Status:       queryText(r, "status"),
	})
	if err != nil {
		internalError(w, r, "list reservations", err)
		return
	}

	resp := make([]reservationResponse, len(list))
	for i, res := range list {
		resp[i] = toReservationResponse(res)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create books a party. A given AVAILABLE table is held as RESERVED.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req createReservationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tableID, err := parseOptionalUUID(req.TableID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table_id")
		return
	}
	customerID, err := parseOptionalUUID(req.CustomerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer_id")
		return
	}

	res, err := h.svc.CreateReservation(r.Context(), service.CreateReservationRequest{
		RestaurantID: rid,
		TableID:      tableID,
		CustomerID:   customerID,
		GuestName:    req.GuestName,
		Phone:        req.Phone,
		PartySize:    req.PartySize,
		ReservedFor:  req.ReservedFor,
		Notes:        req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, "create reservation", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationResponse(res))
}

// Seat opens a dine-in order for the party and occupies its table.
func (h *ReservationHandler) Seat(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "reservation")
	if !ok {
		return
	}

	res, order, err := h.svc.SeatReservation(r.Context(), rid, id, staffID(r))
	if err != nil {
		writeServiceError(w, r, "seat reservation", err)
		return
	}
	writeJSON(w, http.StatusOK, seatResponse{
		Reservation: toReservationResponse(res),
		Order:       toOrderResponse(order),
	})
}

// Cancel cancels a booked reservation.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, "cancel reservation", h.svc.CancelReservation)
}

// NoShow marks a booked party as never arrived.
func (h *ReservationHandler) NoShow(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, "mark no-show", h.svc.MarkNoShow)
}

func (h *ReservationHandler) close(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, restaurantID, reservationID uuid.UUID) (database.Reservation, error)) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "reservation")
	if !ok {
		return
	}

	res, err := fn(r.Context(), rid, id)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}
