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
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/enum"
)

// CategoryStore defines the database methods needed by category handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CategoryStore interface {
	ListCategories(ctx context.Context, restaurantID uuid.UUID) ([]database.Category, error)
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error)
	UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.Category, error)
	SoftDeleteCategory(ctx context.Context, arg database.SoftDeleteCategoryParams) (uuid.UUID, error)
}

// CategoryHandler handles category CRUD endpoints.
type CategoryHandler struct {
	store CategoryStore
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(store CategoryStore) *CategoryHandler {
	return &CategoryHandler{store: store}
}

// RegisterRoutes registers category CRUD endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/categories
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type categoryRequest struct {
	Name      string `json:"name"`
	Station   string `json:"station"`
	SortOrder int32  `json:"sort_order"`
}

// normalize trims the name and defaults the station to KITCHEN.
func (c *categoryRequest) normalize() string {
	c.Name = strings.TrimSpace(c.Name)
	c.Station = strings.ToUpper(strings.TrimSpace(c.Station))
	if c.Station == "" {
		c.Station = enum.StationKitchen
	}
	switch {
	case c.Name == "":
		return "name is required"
	case !enum.IsValidStation(c.Station):
		return "station must be KITCHEN or BAR"
	}
	return ""
}

type categoryResponse struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Name         string    `json:"name"`
	Station      string    `json:"station"`
	SortOrder    int32     `json:"sort_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func toCategoryResponse(c database.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		RestaurantID: c.RestaurantID,
		Name:         c.Name,
		Station:      c.Station,
		SortOrder:    c.SortOrder,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
	}
}

// --- Handlers ---

// List returns all active categories, ordered by sort_order.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	cats, err := h.store.ListCategories(r.Context(), rid)
	if err != nil {
		internalError(w, r, "list categories", err)
		return
	}

	resp := make([]categoryResponse, len(cats))
	for i, c := range cats {
		resp[i] = toCategoryResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a category.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.normalize(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	cat, err := h.store.CreateCategory(r.Context(), database.CreateCategoryParams{
		RestaurantID: rid,
		Name:         req.Name,
		Station:      req.Station,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "category name already exists")
			return
		}
		internalError(w, r, "create category", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(cat))
}

// Update renames a category or moves it to another station.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "category")
	if !ok {
		return
	}

	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.normalize(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	cat, err := h.store.UpdateCategory(r.Context(), database.UpdateCategoryParams{
		ID:           id,
		RestaurantID: rid,
		Name:         req.Name,
		Station:      req.Station,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "category name already exists")
			return
		}
		internalError(w, r, "update category", err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(cat))
}

// Delete soft-deletes a category.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "category")
	if !ok {
		return
	}

	if _, err := h.store.SoftDeleteCategory(r.Context(), database.SoftDeleteCategoryParams{
		ID:           id,
		RestaurantID: rid,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		internalError(w, r, "delete category", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
