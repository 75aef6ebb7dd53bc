package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/auth"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetStaffByEmail(ctx context.Context, email string) (database.Staff, error)
	ListStaffWithPin(ctx context.Context, restaurantID uuid.UUID) ([]database.Staff, error)
	GetStaffByID(ctx context.Context, id uuid.UUID) (database.Staff, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/pin-login", h.PinLogin)
	r.Post("/auth/refresh", h.Refresh)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type pinLoginRequest struct {
	RestaurantID string `json:"restaurant_id"`
	Pin          string `json:"pin"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	Staff        staffResponse `json:"staff"`
}

// --- Handlers ---

// Login handles email + password authentication for owners and managers.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	s, err := h.store.GetStaffByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		internalError(w, r, "get staff by email", err)
		return
	}
	if !s.HashedPassword.Valid || !auth.CheckPassword(s.HashedPassword.String, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.respondWithTokens(w, r, s)
}

// PinLogin handles restaurant_id + PIN authentication for floor staff.
// PINs are bcrypt hashes, so each candidate is compared in turn.
func (h *AuthHandler) PinLogin(w http.ResponseWriter, r *http.Request) {
	var req pinLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RestaurantID == "" || req.Pin == "" {
		writeError(w, http.StatusBadRequest, "restaurant_id and pin are required")
		return
	}
	rid, err := uuid.Parse(req.RestaurantID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid restaurant_id")
		return
	}
	if err := auth.ValidatePin(req.Pin); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	candidates, err := h.store.ListStaffWithPin(r.Context(), rid)
	if err != nil {
		internalError(w, r, "list staff with pin", err)
		return
	}
	for _, s := range candidates {
		if auth.CheckPassword(s.HashedPin.String, req.Pin) {
			h.respondWithTokens(w, r, s)
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "invalid credentials")
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	id, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	s, err := h.store.GetStaffByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "staff not found")
			return
		}
		internalError(w, r, "get staff by id", err)
		return
	}

	h.respondWithTokens(w, r, s)
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, r *http.Request, s database.Staff) {
	resp, err := issueTokens(h.jwtSecret, s)
	if err != nil {
		internalError(w, r, "issue tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func issueTokens(secret string, s database.Staff) (tokenResponse, error) {
	access, err := auth.GenerateToken(secret, s.ID, s.RestaurantID, s.Role)
	if err != nil {
		return tokenResponse{}, err
	}
	refresh, err := auth.GenerateRefreshToken(secret, s.ID)
	if err != nil {
		return tokenResponse{}, err
	}
	return tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Staff:        toStaffResponse(s),
	}, nil
}
