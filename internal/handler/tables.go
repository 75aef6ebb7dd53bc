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

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	ListDiningTables(ctx context.Context, restaurantID uuid.UUID) ([]database.DiningTable, error)
	CreateDiningTable(ctx context.Context, arg database.CreateDiningTableParams) (database.DiningTable, error)
	UpdateDiningTable(ctx context.Context, arg database.UpdateDiningTableParams) (database.DiningTable, error)
	SoftDeleteDiningTable(ctx context.Context, arg database.SoftDeleteDiningTableParams) (uuid.UUID, error)
}

// TableStatusSetter is satisfied by *service.TableService.
type TableStatusSetter interface {
	SetStatus(ctx context.Context, restaurantID, tableID uuid.UUID, target string) (database.DiningTable, error)
}

// TableHandler handles dining table CRUD and manual status changes.
type TableHandler struct {
	store  TableStore
	status TableStatusSetter
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore, status TableStatusSetter) *TableHandler {
	return &TableHandler{store: store, status: status}
}

// RegisterRoutes registers table endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/tables
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/status", h.SetStatus)
}

// --- Request / Response types ---

type tableRequest struct {
	Name  string `json:"name"`
	Seats int32  `json:"seats"`
}

type tableStatusRequest struct {
	Status string `json:"status"`
}

type tableResponse struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Name         string    `json:"name"`
	Seats        int32     `json:"seats"`
	Status       string    `json:"status"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toTableResponse(t database.DiningTable) tableResponse {
	return tableResponse{
		ID:           t.ID,
		RestaurantID: t.RestaurantID,
		Name:         t.Name,
		Seats:        t.Seats,
		Status:       t.Status,
		UpdatedAt:    t.UpdatedAt,
	}
}

func (t *tableRequest) validate() string {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return "name is required"
	}
	if t.Seats <= 0 {
		return "seats must be > 0"
	}
	return ""
}

// --- Handlers ---

// List returns the floor plan with live statuses.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	tables, err := h.store.ListDiningTables(r.Context(), rid)
	if err != nil {
		internalError(w, r, "list tables", err)
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds an AVAILABLE table.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req tableRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	t, err := h.store.CreateDiningTable(r.Context(), database.CreateDiningTableParams{
		RestaurantID: rid,
		Name:         req.Name,
		Seats:        req.Seats,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "table name already exists")
			return
		}
		internalError(w, r, "create table", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTableResponse(t))
}

// Update renames a table or changes its seat count.
func (h *TableHandler) Update(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "table")
	if !ok {
		return
	}

	var req tableRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	t, err := h.store.UpdateDiningTable(r.Context(), database.UpdateDiningTableParams{
		ID:           id,
		RestaurantID: rid,
		Name:         req.Name,
		Seats:        req.Seats,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "table name already exists")
			return
		}
		internalError(w, r, "update table", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(t))
}

// Delete retires a table. Only AVAILABLE tables can be removed.
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "table")
	if !ok {
		return
	}

	if _, err := h.store.SoftDeleteDiningTable(r.Context(), database.SoftDeleteDiningTableParams{
		ID:           id,
		RestaurantID: rid,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "table not found or in use")
			return
		}
		internalError(w, r, "delete table", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetStatus applies a manual transition: mark a cleaned table AVAILABLE,
// hold an AVAILABLE table as RESERVED, or release a hold.
func (h *TableHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "table")
	if !ok {
		return
	}

	var req tableStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	t, err := h.status.SetStatus(r.Context(), rid, id, strings.ToUpper(strings.TrimSpace(req.Status)))
	if err != nil {
		if errors.Is(err, service.ErrTableNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeServiceError(w, r, "set table status", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(t))
}
