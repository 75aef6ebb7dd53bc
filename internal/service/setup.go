package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/auth"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/enum"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/kot"
)

const (
	maxSetupTables   = 200
	defaultCurrency  = "INR"
	defaultSeats     = 4
	minPasswordChars = 8
	staffEmailIndex  = "staff_email_key"
)

// Errors returned by the setup service.
var (
	ErrRestaurantNameRequired = errors.New("restaurant_name is required")
	ErrOwnerNameRequired      = errors.New("owner_name is required")
	ErrInvalidEmail           = errors.New("invalid email")
	ErrPasswordTooShort       = errors.New("password must be at least 8 characters")
	ErrInvalidTableCount      = errors.New("tables must be between 0 and 200")
	ErrInvalidTaxRate         = errors.New("tax_rate must be between 0 and 100")
	ErrEmailTaken             = errors.New("email is already registered")
)

// SetupStore defines the DB methods the setup wizard writes through.
// Satisfied by *database.Queries.
type SetupStore interface {
	CreateRestaurant(ctx context.Context, arg database.CreateRestaurantParams) (database.Restaurant, error)
	CreateStaff(ctx context.Context, arg database.CreateStaffParams) (database.Staff, error)
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error)
	CreateDiningTable(ctx context.Context, arg database.CreateDiningTableParams) (database.DiningTable, error)
	UpsertKotPreference(ctx context.Context, arg database.UpsertKotPreferenceParams) (database.KotPreference, error)
}

// NewSetupStore creates a SetupStore from a DBTX (pool or tx).
type NewSetupStore func(db database.DBTX) SetupStore

// SetupRequest is the first-run wizard input.
type SetupRequest struct {
	RestaurantName string
	Address        string
	Phone          string
	Currency       string
	TaxRate        string
	OwnerName      string
	OwnerEmail     string
	OwnerPassword  string
	OwnerPin       string
	Tables         int
	SeatsPerTable  int32
}

// SetupResult is everything the wizard created.
type SetupResult struct {
	Restaurant database.Restaurant
	Owner      database.Staff
	Categories []database.Category
	Tables     []database.DiningTable
	Preference database.KotPreference
}

// SetupService creates a ready-to-use restaurant in one transaction.
type SetupService struct {
	pool     TxBeginner
	newStore NewSetupStore
}

func NewSetupService(pool TxBeginner, newStore NewSetupStore) *SetupService {
	return &SetupService{pool: pool, newStore: newStore}
}

type setupDefaults struct {
	name    string
	station string
}

var defaultCategories = []setupDefaults{
	{"Food", enum.StationKitchen},
	{"Drinks", enum.StationBar},
}

func (r *SetupRequest) normalize() (decimal.Decimal, error) {
	r.RestaurantName = strings.TrimSpace(r.RestaurantName)
	r.OwnerName = strings.TrimSpace(r.OwnerName)
	r.OwnerEmail = strings.ToLower(strings.TrimSpace(r.OwnerEmail))
	if r.RestaurantName == "" {
		return decimal.Zero, ErrRestaurantNameRequired
	}
	if r.OwnerName == "" {
		return decimal.Zero, ErrOwnerNameRequired
	}
	if _, err := mail.ParseAddress(r.OwnerEmail); err != nil {
		return decimal.Zero, ErrInvalidEmail
	}
	if len(r.OwnerPassword) < minPasswordChars {
		return decimal.Zero, ErrPasswordTooShort
	}
	if r.OwnerPin != "" {
		if err := auth.ValidatePin(r.OwnerPin); err != nil {
			return decimal.Zero, err
		}
	}
	if r.Tables < 0 || r.Tables > maxSetupTables {
		return decimal.Zero, ErrInvalidTableCount
	}
	if r.SeatsPerTable <= 0 {
		r.SeatsPerTable = defaultSeats
	}
	if r.Currency == "" {
		r.Currency = defaultCurrency
	}

	rate := decimal.Zero
	if r.TaxRate != "" {
		d, err := decimal.NewFromString(r.TaxRate)
		if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
			return decimal.Zero, ErrInvalidTaxRate
		}
		rate = d
	}
	return rate, nil
}

// Setup creates the restaurant, its owner, the default Food/Drinks
// categories, numbered tables and the default KOT preference.
func (s *SetupService) Setup(ctx context.Context, req SetupRequest) (*SetupResult, error) {
	rate, err := req.normalize()
	if err != nil {
		return nil, err
	}

	hashedPassword, err := auth.HashPassword(req.OwnerPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hashedPin := pgtype.Text{}
	if req.OwnerPin != "" {
		h, err := auth.HashPin(req.OwnerPin)
		if err != nil {
			return nil, fmt.Errorf("hash pin: %w", err)
		}
		hashedPin = pgtype.Text{String: h, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	result := &SetupResult{}

	result.Restaurant, err = store.CreateRestaurant(ctx, database.CreateRestaurantParams{
		Name:     req.RestaurantName,
		Address:  optionalText(req.Address),
		Phone:    optionalText(req.Phone),
		Currency: req.Currency,
		TaxRate:  decimalToNumeric(rate),
	})
	if err != nil {
		return nil, fmt.Errorf("create restaurant: %w", err)
	}
	rid := result.Restaurant.ID

	result.Owner, err = store.CreateStaff(ctx, database.CreateStaffParams{
		RestaurantID:   rid,
		Email:          pgtype.Text{String: req.OwnerEmail, Valid: true},
		HashedPassword: pgtype.Text{String: hashedPassword, Valid: true},
		HashedPin:      hashedPin,
		FullName:       req.OwnerName,
		Role:           enum.StaffRoleOwner,
	})
	if err != nil {
		if isUniqueViolation(err, staffEmailIndex) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create owner: %w", err)
	}

	for i, c := range defaultCategories {
		cat, err := store.CreateCategory(ctx, database.CreateCategoryParams{
			RestaurantID: rid,
			Name:         c.name,
			Station:      c.station,
			SortOrder:    int32(i),
		})
		if err != nil {
			return nil, fmt.Errorf("create category %q: %w", c.name, err)
		}
		result.Categories = append(result.Categories, cat)
	}

	for i := 1; i <= req.Tables; i++ {
		t, err := store.CreateDiningTable(ctx, database.CreateDiningTableParams{
			RestaurantID: rid,
			Name:         fmt.Sprintf("T%d", i),
			Seats:        req.SeatsPerTable,
		})
		if err != nil {
			return nil, fmt.Errorf("create table %d: %w", i, err)
		}
		result.Tables = append(result.Tables, t)
	}

	result.Preference, err = store.UpsertKotPreference(ctx, PreferenceParams(rid, kot.DefaultPreference()))
	if err != nil {
		return nil, fmt.Errorf("save kot preference: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// PreferenceParams encodes a KOT preference for storage.
func PreferenceParams(restaurantID uuid.UUID, pref kot.Preference) database.UpsertKotPreferenceParams {
	groups := []byte("{}")
	if len(pref.CategoryGroups) > 0 {
		// map[uuid.UUID]string always marshals.
		groups, _ = json.Marshal(pref.CategoryGroups)
	}
	return database.UpsertKotPreferenceParams{
		RestaurantID:   restaurantID,
		Mode:           string(pref.Mode),
		DefaultGroup:   pref.DefaultGroup,
		CategoryGroups: groups,
		GroupOrder:     pref.GroupOrder,
	}
}
