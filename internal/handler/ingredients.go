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
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
)

// IngredientStore defines the database methods needed by ingredient handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type IngredientStore interface {
	ListIngredients(ctx context.Context, restaurantID uuid.UUID) ([]database.Ingredient, error)
	ListLowStockIngredients(ctx context.Context, restaurantID uuid.UUID) ([]database.Ingredient, error)
	GetIngredient(ctx context.Context, arg database.GetIngredientParams) (database.Ingredient, error)
	CreateIngredient(ctx context.Context, arg database.CreateIngredientParams) (database.Ingredient, error)
	UpdateIngredient(ctx context.Context, arg database.UpdateIngredientParams) (database.Ingredient, error)
	SoftDeleteIngredient(ctx context.Context, arg database.SoftDeleteIngredientParams) (uuid.UUID, error)
	ListInventoryMovements(ctx context.Context, arg database.ListInventoryMovementsParams) ([]database.InventoryMovement, error)
}

// StockAdjuster is satisfied by *service.InventoryService.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, req service.AdjustRequest) (*service.AdjustResult, error)
}

// IngredientHandler handles ingredients, manual stock movements and the
// movement history.
type IngredientHandler struct {
	store IngredientStore
	stock StockAdjuster
}

// NewIngredientHandler creates a new IngredientHandler.
func NewIngredientHandler(store IngredientStore, stock StockAdjuster) *IngredientHandler {
	return &IngredientHandler{store: store, stock: stock}
}

// RegisterRoutes registers ingredient endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/ingredients
func (h *IngredientHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/low-stock", h.LowStock)
	r.Get("/movements", h.Movements)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/adjust", h.Adjust)
}

// --- Request / Response types ---

type ingredientRequest struct {
	Name              string   `json:"name"`
	Unit              string   `json:"unit"`
	Stock             string   `json:"stock"`
	LowStockThreshold string   `json:"low_stock_threshold"`
	CostPerUnit       string   `json:"cost_per_unit"`
	Keywords          []string `json:"keywords"`
}

type ingredientFields struct {
	stock     pgtype.Numeric
	threshold pgtype.Numeric
	cost      pgtype.Numeric
	keywords  []string
}

func (in *ingredientRequest) parse() (ingredientFields, string) {
	var f ingredientFields
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.ToLower(strings.TrimSpace(in.Unit))
	if in.Name == "" || in.Unit == "" {
		return f, "name and unit are required"
	}
	var err error
	if f.stock, err = parseQuantity(orZero(in.Stock)); err != nil {
		return f, "invalid stock"
	}
	if f.threshold, err = parseQuantity(orZero(in.LowStockThreshold)); err != nil || numericToDecimal(f.threshold).IsNegative() {
		return f, "low_stock_threshold must be a non-negative number"
	}
	if f.cost, err = parseMoney(orZero(in.CostPerUnit)); err != nil || numericToDecimal(f.cost).IsNegative() {
		return f, "cost_per_unit must be a non-negative number"
	}
	f.keywords = []string{}
	for _, k := range in.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			f.keywords = append(f.keywords, k)
		}
	}
	return f, ""
}

func orZero(s string) string {
	if strings.TrimSpace(s) == "" {
		return "0"
	}
	return s
}

type ingredientResponse struct {
	ID                uuid.UUID `json:"id"`
	RestaurantID      uuid.UUID `json:"restaurant_id"`
	Name              string    `json:"name"`
	Unit              string    `json:"unit"`
	Stock             string    `json:"stock"`
	LowStockThreshold string    `json:"low_stock_threshold"`
	CostPerUnit       string    `json:"cost_per_unit"`
	Keywords          []string  `json:"keywords"`
	LowStock          bool      `json:"low_stock"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toIngredientResponse(in database.Ingredient) ingredientResponse {
	stock := numericToDecimal(in.Stock)
	return ingredientResponse{
		ID:                in.ID,
		RestaurantID:      in.RestaurantID,
		Name:              in.Name,
		Unit:              in.Unit,
		Stock:             stock.String(),
		LowStockThreshold: quantityString(in.LowStockThreshold),
		CostPerUnit:       numericToString(in.CostPerUnit),
		Keywords:          in.Keywords,
		LowStock:          stock.LessThanOrEqual(numericToDecimal(in.LowStockThreshold)),
		UpdatedAt:         in.UpdatedAt,
	}
}

func toIngredientResponses(list []database.Ingredient) []ingredientResponse {
	resp := make([]ingredientResponse, len(list))
	for i, in := range list {
		resp[i] = toIngredientResponse(in)
	}
	return resp
}

type adjustRequest struct {
	Kind     string `json:"kind"`
	Quantity string `json:"quantity"`
	Note     string `json:"note"`
}

type movementResponse struct {
	ID           uuid.UUID  `json:"id"`
	IngredientID uuid.UUID  `json:"ingredient_id"`
	Kind         string     `json:"kind"`
	Quantity     string     `json:"quantity"`
	ReferenceID  *uuid.UUID `json:"reference_id"`
	Note         *string    `json:"note"`
	CreatedBy    *uuid.UUID `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toMovementResponse(m database.InventoryMovement) movementResponse {
	return movementResponse{
		ID:           m.ID,
		IngredientID: m.IngredientID,
		Kind:         m.Kind,
		Quantity:     quantityString(m.Quantity),
		ReferenceID:  uuidPtr(m.ReferenceID),
		Note:         textPtr(m.Note),
		CreatedBy:    uuidPtr(m.CreatedBy),
		CreatedAt:    m.CreatedAt,
	}
}

type adjustResponse struct {
	Ingredient ingredientResponse `json:"ingredient"`
	Movement   movementResponse   `json:"movement"`
}

// --- Handlers ---

// List returns all active ingredients.
func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	list, err := h.store.ListIngredients(r.Context(), rid)
	if err != nil {
		internalError(w, r, "list ingredients", err)
		return
	}
	writeJSON(w, http.StatusOK, toIngredientResponses(list))
}

// LowStock returns ingredients at or below their threshold.
func (h *IngredientHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	list, err := h.store.ListLowStockIngredients(r.Context(), rid)
	if err != nil {
		internalError(w, r, "list low stock ingredients", err)
		return
	}
	writeJSON(w, http.StatusOK, toIngredientResponses(list))
}

// Get returns one ingredient.
func (h *IngredientHandler) Get(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "ingredient")
	if !ok {
		return
	}

	in, err := h.store.GetIngredient(r.Context(), database.GetIngredientParams{ID: id, RestaurantID: rid})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "ingredient not found")
			return
		}
		internalError(w, r, "get ingredient", err)
		return
	}
	writeJSON(w, http.StatusOK, toIngredientResponse(in))
}

// Create adds an ingredient with its opening stock.
func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req ingredientRequest
	if !decodeBody(w, r, &req) {
		return
	}
	f, msg := req.parse()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	in, err := h.store.CreateIngredient(r.Context(), database.CreateIngredientParams{
		RestaurantID:      rid,
		Name:              req.Name,
		Unit:              req.Unit,
		Stock:             f.stock,
		LowStockThreshold: f.threshold,
		CostPerUnit:       f.cost,
		Keywords:          f.keywords,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "ingredient name already exists")
			return
		}
		internalError(w, r, "create ingredient", err)
		return
	}
	writeJSON(w, http.StatusCreated, toIngredientResponse(in))
}

// Update edits ingredient details. Stock only moves through adjustments,
// sales and vendor receipts, so a stock field in the body is ignored.
func (h *IngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "ingredient")
	if !ok {
		return
	}

	var req ingredientRequest
	if !decodeBody(w, r, &req) {
		return
	}
	f, msg := req.parse()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	in, err := h.store.UpdateIngredient(r.Context(), database.UpdateIngredientParams{
		ID:                id,
		RestaurantID:      rid,
		Name:              req.Name,
		Unit:              req.Unit,
		LowStockThreshold: f.threshold,
		CostPerUnit:       f.cost,
		Keywords:          f.keywords,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "ingredient not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "ingredient name already exists")
			return
		}
		internalError(w, r, "update ingredient", err)
		return
	}
	writeJSON(w, http.StatusOK, toIngredientResponse(in))
}

// Delete soft-deletes an ingredient.
func (h *IngredientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "ingredient")
	if !ok {
		return
	}

	if _, err := h.store.SoftDeleteIngredient(r.Context(), database.SoftDeleteIngredientParams{
		ID:           id,
		RestaurantID: rid,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "ingredient not found")
			return
		}
		internalError(w, r, "delete ingredient", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Adjust records a manual RESTOCK, WASTE or ADJUST movement.
func (h *IngredientHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "ingredient")
	if !ok {
		return
	}

	var req adjustRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.stock.AdjustStock(r.Context(), service.AdjustRequest{
		RestaurantID: rid,
		IngredientID: id,
		StaffID:      staffID(r),
		Kind:         strings.ToUpper(strings.TrimSpace(req.Kind)),
		Quantity:     req.Quantity,
		Note:         req.Note,
	})
	if err != nil {
		if errors.Is(err, service.ErrIngredientNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeServiceError(w, r, "adjust stock", err)
		return
	}

	writeJSON(w, http.StatusOK, adjustResponse{
		Ingredient: toIngredientResponse(res.Ingredient),
		Movement:   toMovementResponse(res.Movement),
	})
}

// Movements lists the stock ledger, newest first, optionally for one
// ?ingredient_id=.
func (h *IngredientHandler) Movements(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	iid, ok := queryUUID(w, r, "ingredient_id")
	if !ok {
		return
	}
	limit, offset := pagination(r, 50, 200)

	list, err := h.store.ListInventoryMovements(r.Context(), database.ListInventoryMovementsParams{
		RestaurantID: rid,
		IngredientID: iid,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		internalError(w, r, "list inventory movements", err)
		return
	}

	resp := make([]movementResponse, len(list))
	for i, m := range list {
		resp[i] = toMovementResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}
