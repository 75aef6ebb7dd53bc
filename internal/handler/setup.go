package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
)

// SetupRunner is satisfied by *service.SetupService.
type SetupRunner interface {
	Setup(ctx context.Context, req service.SetupRequest) (*service.SetupResult, error)
}

// SetupHandler runs the first-launch wizard.
type SetupHandler struct {
	svc       SetupRunner
	jwtSecret string
}

// NewSetupHandler creates a new SetupHandler.
func NewSetupHandler(svc SetupRunner, jwtSecret string) *SetupHandler {
	return &SetupHandler{svc: svc, jwtSecret: jwtSecret}
}

// RegisterRoutes registers the public setup endpoint.
func (h *SetupHandler) RegisterRoutes(r chi.Router) {
	r.Post("/setup", h.Setup)
}

// --- Request / Response types ---

type setupRequest struct {
	RestaurantName string `json:"restaurant_name"`
	Address        string `json:"address"`
	Phone          string `json:"phone"`
	Currency       string `json:"currency"`
	TaxRate        string `json:"tax_rate"`
	OwnerName      string `json:"owner_name"`
	OwnerEmail     string `json:"owner_email"`
	OwnerPassword  string `json:"owner_password"`
	OwnerPin       string `json:"owner_pin"`
	Tables         int    `json:"tables"`
	SeatsPerTable  int32  `json:"seats_per_table"`
}

type setupResponse struct {
	Restaurant    restaurantResponse    `json:"restaurant"`
	Categories    []categoryResponse    `json:"categories"`
	Tables        []tableResponse       `json:"tables"`
	KotPreference kotPreferenceResponse `json:"kot_preference"`
	tokenResponse
}

// --- Handlers ---

// Setup creates a restaurant with its owner, default categories, tables and
// KOT preference, then signs the owner in.
func (h *SetupHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.Setup(r.Context(), service.SetupRequest{
		RestaurantName: req.RestaurantName,
		Address:        req.Address,
		Phone:          req.Phone,
		Currency:       req.Currency,
		TaxRate:        req.TaxRate,
		OwnerName:      req.OwnerName,
		OwnerEmail:     req.OwnerEmail,
		OwnerPassword:  req.OwnerPassword,
		OwnerPin:       req.OwnerPin,
		Tables:         req.Tables,
		SeatsPerTable:  req.SeatsPerTable,
	})
	if err != nil {
		writeServiceError(w, r, "setup restaurant", err)
		return
	}

	tokens, err := issueTokens(h.jwtSecret, res.Owner)
	if err != nil {
		internalError(w, r, "setup: issue tokens", err)
		return
	}
	pref, err := toKotPreferenceResponse(res.Preference)
	if err != nil {
		internalError(w, r, "setup: decode kot preference", err)
		return
	}

	resp := setupResponse{
		Restaurant:    toRestaurantResponse(res.Restaurant),
		Categories:    make([]categoryResponse, len(res.Categories)),
		Tables:        make([]tableResponse, len(res.Tables)),
		KotPreference: pref,
		tokenResponse: tokens,
	}
	for i, c := range res.Categories {
		resp.Categories[i] = toCategoryResponse(c)
	}
	for i, t := range res.Tables {
		resp.Tables[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusCreated, resp)
}
