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

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/enum"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	SoftDeleteMenuItem(ctx context.Context, arg database.SoftDeleteMenuItemParams) (uuid.UUID, error)
	ListRecipeLines(ctx context.Context, menuItemID uuid.UUID) ([]database.RecipeLineRow, error)
}

// RecipeEditor is satisfied by *service.InventoryService.
type RecipeEditor interface {
	ReplaceRecipe(ctx context.Context, restaurantID, menuItemID uuid.UUID, lines []service.RecipeLineRequest) ([]database.RecipeLineRow, error)
}

// MenuHandler handles menu item CRUD and recipes.
type MenuHandler struct {
	store   MenuStore
	recipes RecipeEditor
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, recipes RecipeEditor) *MenuHandler {
	return &MenuHandler{store: store, recipes: recipes}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/menu-items
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/recipe", h.GetRecipe)
	r.Put("/{id}/recipe", h.ReplaceRecipe)
}

// --- Request / Response types ---

type menuItemRequest struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Station     string `json:"station"`
	IsAvailable *bool  `json:"is_available"`
}

type menuItemFields struct {
	categoryID uuid.UUID
	price      pgtype.Numeric
	station    pgtype.Text
	available  bool
}

// parse validates the request. An empty station means the item follows its
// category's station.
func (m *menuItemRequest) parse() (menuItemFields, string) {
	var f menuItemFields
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" || m.CategoryID == "" || m.Price == "" {
		return f, "category_id, name and price are required"
	}
	cid, err := uuid.Parse(m.CategoryID)
	if err != nil {
		return f, "invalid category_id"
	}
	f.categoryID = cid
	price, err := parseMoney(m.Price)
	if err != nil || numericToDecimal(price).IsNegative() {
		return f, "price must be a non-negative number"
	}
	f.price = price
	m.Station = strings.ToUpper(strings.TrimSpace(m.Station))
	if m.Station != "" {
		if !enum.IsValidStation(m.Station) {
			return f, "station must be KITCHEN or BAR"
		}
		f.station = pgtype.Text{String: m.Station, Valid: true}
	}
	f.available = m.IsAvailable == nil || *m.IsAvailable
	return f, ""
}

type menuItemResponse struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	CategoryID   uuid.UUID `json:"category_id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	Price        string    `json:"price"`
	Station      *string   `json:"station"`
	IsAvailable  bool      `json:"is_available"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:           m.ID,
		RestaurantID: m.RestaurantID,
		CategoryID:   m.CategoryID,
		Name:         m.Name,
		Description:  textPtr(m.Description),
		Price:        numericToString(m.Price),
		Station:      textPtr(m.Station),
		IsAvailable:  m.IsAvailable,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

type recipeLineRequest struct {
	IngredientID string `json:"ingredient_id"`
	Quantity     string `json:"quantity"`
}

type recipeLineResponse struct {
	IngredientID   uuid.UUID `json:"ingredient_id"`
	IngredientName string    `json:"ingredient_name"`
	Unit           string    `json:"unit"`
	Quantity       string    `json:"quantity"`
}

func toRecipeResponse(rows []database.RecipeLineRow) []recipeLineResponse {
	resp := make([]recipeLineResponse, len(rows))
	for i, rl := range rows {
		resp[i] = recipeLineResponse{
			IngredientID:   rl.IngredientID,
			IngredientName: rl.IngredientName,
			Unit:           rl.Unit,
			Quantity:       quantityString(rl.Quantity),
		}
	}
	return resp
}

// --- Handlers ---

// List returns active menu items, optionally filtered by ?category_id=.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	cid, ok := queryUUID(w, r, "category_id")
	if !ok {
		return
	}

	items, err := h.store.ListMenuItems(r.Context(), database.ListMenuItemsParams{
		RestaurantID: rid,
		CategoryID:   cid,
	})
	if err != nil {
		internalError(w, r, "list menu items", err)
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one menu item.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "menu item")
	if !ok {
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), database.GetMenuItemParams{ID: id, RestaurantID: rid})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		internalError(w, r, "get menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Create adds a menu item.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req menuItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	f, msg := req.parse()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		RestaurantID: rid,
		CategoryID:   f.categoryID,
		Name:         req.Name,
		Description:  optionalText(req.Description),
		Price:        f.price,
		Station:      f.station,
		IsAvailable:  f.available,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeError(w, http.StatusBadRequest, "category not found")
			return
		}
		internalError(w, r, "create menu item", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update replaces a menu item. Lines already on open orders keep the price
// they were added at.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "menu item")
	if !ok {
		return
	}

	var req menuItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	f, msg := req.parse()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:           id,
		RestaurantID: rid,
		CategoryID:   f.categoryID,
		Name:         req.Name,
		Description:  optionalText(req.Description),
		Price:        f.price,
		Station:      f.station,
		IsAvailable:  f.available,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		if isForeignKeyViolation(err) {
			writeError(w, http.StatusBadRequest, "category not found")
			return
		}
		internalError(w, r, "update menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete soft-deletes a menu item.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "menu item")
	if !ok {
		return
	}

	if _, err := h.store.SoftDeleteMenuItem(r.Context(), database.SoftDeleteMenuItemParams{
		ID:           id,
		RestaurantID: rid,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		internalError(w, r, "delete menu item", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetRecipe returns the ingredients consumed by one unit of the item.
func (h *MenuHandler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "menu item")
	if !ok {
		return
	}

	if _, err := h.store.GetMenuItem(r.Context(), database.GetMenuItemParams{ID: id, RestaurantID: rid}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		internalError(w, r, "get menu item", err)
		return
	}

	rows, err := h.store.ListRecipeLines(r.Context(), id)
	if err != nil {
		internalError(w, r, "list recipe lines", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponse(rows))
}

// ReplaceRecipe swaps the whole recipe. An empty list clears it.
func (h *MenuHandler) ReplaceRecipe(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "menu item")
	if !ok {
		return
	}

	var req []recipeLineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	lines := make([]service.RecipeLineRequest, len(req))
	for i, l := range req {
		iid, err := uuid.Parse(l.IngredientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid ingredient_id")
			return
		}
		lines[i] = service.RecipeLineRequest{IngredientID: iid, Quantity: l.Quantity}
	}

	rows, err := h.recipes.ReplaceRecipe(r.Context(), rid, id, lines)
	if err != nil {
		if errors.Is(err, service.ErrMenuItemNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeServiceError(w, r, "replace recipe", err)
		return
	}

	writeJSON(w, http.StatusOK, toRecipeResponse(rows))
}
