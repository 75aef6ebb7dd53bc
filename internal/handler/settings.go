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
	"github.com/shopspring/decimal"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/kot"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
)

// SettingsStore defines the database methods needed by settings handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type SettingsStore interface {
	GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error)
	UpdateRestaurant(ctx context.Context, arg database.UpdateRestaurantParams) (database.Restaurant, error)
	GetKotPreference(ctx context.Context, restaurantID uuid.UUID) (database.KotPreference, error)
	UpsertKotPreference(ctx context.Context, arg database.UpsertKotPreferenceParams) (database.KotPreference, error)
}

// SettingsHandler serves restaurant profile and KOT preference endpoints.
type SettingsHandler struct {
	store SettingsStore
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// RegisterRoutes registers settings endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/settings
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Put("/", h.Update)
	r.Get("/kot-preference", h.GetKotPreference)
	r.Put("/kot-preference", h.UpdateKotPreference)
}

// --- Request / Response types ---

type updateRestaurantRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Currency string `json:"currency"`
	TaxRate  string `json:"tax_rate"`
}

type restaurantResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address"`
	Phone     *string   `json:"phone"`
	Currency  string    `json:"currency"`
	TaxRate   string    `json:"tax_rate"`
	CreatedAt time.Time `json:"created_at"`
}

func toRestaurantResponse(r database.Restaurant) restaurantResponse {
	return restaurantResponse{
		ID:        r.ID,
		Name:      r.Name,
		Address:   textPtr(r.Address),
		Phone:     textPtr(r.Phone),
		Currency:  r.Currency,
		TaxRate:   numericToString(r.TaxRate),
		CreatedAt: r.CreatedAt,
	}
}

type kotPreferenceResponse struct {
	kot.Preference
	UpdatedAt *time.Time `json:"updated_at"`
}

func toKotPreferenceResponse(row database.KotPreference) (kotPreferenceResponse, error) {
	pref, err := service.PreferenceFromRow(row)
	if err != nil {
		return kotPreferenceResponse{}, err
	}
	at := row.UpdatedAt
	return kotPreferenceResponse{Preference: pref, UpdatedAt: &at}, nil
}

// --- Handlers ---

// Get returns the restaurant profile.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	rest, err := h.store.GetRestaurant(r.Context(), rid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "restaurant not found")
			return
		}
		internalError(w, r, "get restaurant", err)
		return
	}

	writeJSON(w, http.StatusOK, toRestaurantResponse(rest))
}

// Update replaces the restaurant profile.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req updateRestaurantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Name == "" || req.Currency == "" {
		writeError(w, http.StatusBadRequest, "name and currency are required")
		return
	}
	if len(req.Currency) != 3 {
		writeError(w, http.StatusBadRequest, "currency must be a 3-letter code")
		return
	}
	if req.TaxRate == "" {
		req.TaxRate = "0"
	}
	rate, err := decimal.NewFromString(req.TaxRate)
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		writeError(w, http.StatusBadRequest, "tax_rate must be between 0 and 100")
		return
	}
	taxRate, err := parseMoney(rate.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tax_rate")
		return
	}

	rest, err := h.store.UpdateRestaurant(r.Context(), database.UpdateRestaurantParams{
		ID:       rid,
		Name:     req.Name,
		Address:  optionalText(req.Address),
		Phone:    optionalText(req.Phone),
		Currency: req.Currency,
		TaxRate:  taxRate,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "restaurant not found")
			return
		}
		internalError(w, r, "update restaurant", err)
		return
	}

	writeJSON(w, http.StatusOK, toRestaurantResponse(rest))
}

// GetKotPreference returns the stored grouping preference, or the default
// SINGLE preference when none was saved.
func (h *SettingsHandler) GetKotPreference(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	row, err := h.store.GetKotPreference(r.Context(), rid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusOK, kotPreferenceResponse{Preference: kot.DefaultPreference()})
			return
		}
		internalError(w, r, "get kot preference", err)
		return
	}

	resp, err := toKotPreferenceResponse(row)
	if err != nil {
		internalError(w, r, "decode kot preference", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateKotPreference stores a new grouping preference. It only affects
// tickets sent afterwards.
func (h *SettingsHandler) UpdateKotPreference(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var pref kot.Preference
	if !decodeBody(w, r, &pref) {
		return
	}
	pref.DefaultGroup = strings.TrimSpace(pref.DefaultGroup)
	if pref.DefaultGroup == "" {
		pref.DefaultGroup = kot.DefaultGroup
	}
	if err := pref.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	row, err := h.store.UpsertKotPreference(r.Context(), service.PreferenceParams(rid, pref))
	if err != nil {
		internalError(w, r, "upsert kot preference", err)
		return
	}

	resp, err := toKotPreferenceResponse(row)
	if err != nil {
		internalError(w, r, "decode kot preference", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
