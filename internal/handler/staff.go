package handler

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/auth"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/enum"
)

const minPasswordLength = 8

// StaffStore defines the database methods needed by staff handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type StaffStore interface {
	ListStaffByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]database.Staff, error)
	ListStaffWithPin(ctx context.Context, restaurantID uuid.UUID) ([]database.Staff, error)
	CreateStaff(ctx context.Context, arg database.CreateStaffParams) (database.Staff, error)
	UpdateStaff(ctx context.Context, arg database.UpdateStaffParams) (database.Staff, error)
	UpdateStaffPin(ctx context.Context, arg database.UpdateStaffPinParams) (uuid.UUID, error)
	SoftDeleteStaff(ctx context.Context, arg database.SoftDeleteStaffParams) (uuid.UUID, error)
}

// StaffHandler handles staff CRUD and PIN resets.
type StaffHandler struct {
	store StaffStore
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(store StaffStore) *StaffHandler {
	return &StaffHandler{store: store}
}

// RegisterRoutes registers staff endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/staff
func (h *StaffHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Put("/{id}/pin", h.SetPin)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createStaffRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Pin      string `json:"pin"`
}

type updateStaffRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type setPinRequest struct {
	Pin string `json:"pin"`
}

type staffResponse struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Email        *string   `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	HasPin       bool      `json:"has_pin"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func toStaffResponse(s database.Staff) staffResponse {
	return staffResponse{
		ID:           s.ID,
		RestaurantID: s.RestaurantID,
		Email:        textPtr(s.Email),
		FullName:     s.FullName,
		Role:         s.Role,
		HasPin:       s.HashedPin.Valid,
		IsActive:     s.IsActive,
		CreatedAt:    s.CreatedAt,
	}
}

// managesByPassword reports whether a role signs in with email and password.
func managesByPassword(role string) bool {
	return role == enum.StaffRoleOwner || role == enum.StaffRoleManager
}

func validEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}

// --- Handlers ---

// List returns all active staff of the restaurant.
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	staff, err := h.store.ListStaffByRestaurant(r.Context(), rid)
	if err != nil {
		internalError(w, r, "list staff", err)
		return
	}

	resp := make([]staffResponse, len(staff))
	for i, s := range staff {
		resp[i] = toStaffResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a staff member. Owners and managers need email and password;
// floor roles need a PIN.
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req createStaffRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.FullName == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "full_name and role are required")
		return
	}
	if !enum.IsValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if managesByPassword(req.Role) && (req.Email == "" || req.Password == "") {
		writeError(w, http.StatusBadRequest, "email and password are required for "+req.Role)
		return
	}
	if !managesByPassword(req.Role) && req.Pin == "" {
		writeError(w, http.StatusBadRequest, "pin is required for "+req.Role)
		return
	}
	if req.Email != "" && !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if req.Password != "" && len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	params := database.CreateStaffParams{
		RestaurantID: rid,
		Email:        optionalText(req.Email),
		FullName:     req.FullName,
		Role:         req.Role,
	}
	if req.Password != "" {
		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			internalError(w, r, "create staff: hash password", err)
			return
		}
		params.HashedPassword = pgtype.Text{String: hashed, Valid: true}
	}
	if req.Pin != "" {
		pin, ok := h.hashNewPin(w, r, rid, uuid.Nil, req.Pin)
		if !ok {
			return
		}
		params.HashedPin = pin
	}

	s, err := h.store.CreateStaff(r.Context(), params)
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email already exists")
			return
		}
		internalError(w, r, "create staff", err)
		return
	}

	writeJSON(w, http.StatusCreated, toStaffResponse(s))
}

// Update changes a staff member's name, role and email.
func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "staff")
	if !ok {
		return
	}

	var req updateStaffRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.FullName == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "full_name and role are required")
		return
	}
	if !enum.IsValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if req.Email != "" && !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}

	s, err := h.store.UpdateStaff(r.Context(), database.UpdateStaffParams{
		ID:           id,
		RestaurantID: rid,
		Email:        optionalText(req.Email),
		FullName:     req.FullName,
		Role:         req.Role,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "staff not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email already exists")
			return
		}
		internalError(w, r, "update staff", err)
		return
	}

	writeJSON(w, http.StatusOK, toStaffResponse(s))
}

// SetPin replaces a staff member's PIN. An empty PIN disables PIN login.
func (h *StaffHandler) SetPin(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "staff")
	if !ok {
		return
	}

	var req setPinRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pin := pgtype.Text{}
	if req.Pin != "" {
		pin, ok = h.hashNewPin(w, r, rid, id, req.Pin)
		if !ok {
			return
		}
	}

	if _, err := h.store.UpdateStaffPin(r.Context(), database.UpdateStaffPinParams{
		ID:           id,
		RestaurantID: rid,
		HashedPin:    pin,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "staff not found")
			return
		}
		internalError(w, r, "update staff pin", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete soft-deletes a staff member.
func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "staff")
	if !ok {
		return
	}
	if id == staffID(r) {
		writeError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	if _, err := h.store.SoftDeleteStaff(r.Context(), database.SoftDeleteStaffParams{
		ID:           id,
		RestaurantID: rid,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "staff not found")
			return
		}
		internalError(w, r, "delete staff", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// hashNewPin validates pin and rejects one already used by another staff
// member of the restaurant, since PIN login identifies staff by PIN alone.
func (h *StaffHandler) hashNewPin(w http.ResponseWriter, r *http.Request, rid, self uuid.UUID, pin string) (pgtype.Text, bool) {
	if err := auth.ValidatePin(pin); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return pgtype.Text{}, false
	}
	existing, err := h.store.ListStaffWithPin(r.Context(), rid)
	if err != nil {
		internalError(w, r, "list staff with pin", err)
		return pgtype.Text{}, false
	}
	for _, s := range existing {
		if s.ID != self && auth.CheckPassword(s.HashedPin.String, pin) {
			writeError(w, http.StatusConflict, "pin already in use")
			return pgtype.Text{}, false
		}
	}
	hashed, err := auth.HashPin(pin)
	if err != nil {
		internalError(w, r, "hash pin", err)
		return pgtype.Text{}, false
	}
	return pgtype.Text{String: hashed, Valid: true}, true
}
