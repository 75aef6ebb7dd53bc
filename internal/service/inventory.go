package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/enum"
)

// Errors returned by the inventory service.
var (
	ErrInvalidMovementKind = errors.New("kind must be RESTOCK, WASTE or ADJUST")
	ErrZeroAdjustment      = errors.New("quantity must not be zero")
	ErrDuplicateIngredient = errors.New("ingredient listed twice in recipe")
)

// InventoryStore defines the DB methods for manual stock changes and
// recipes. Satisfied by *database.Queries.
type InventoryStore interface {
	GetIngredient(ctx context.Context, arg database.GetIngredientParams) (database.Ingredient, error)
	AdjustIngredientStock(ctx context.Context, arg database.AdjustIngredientStockParams) (database.Ingredient, error)
	CreateInventoryMovement(ctx context.Context, arg database.CreateInventoryMovementParams) (database.InventoryMovement, error)

	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	DeleteRecipeLines(ctx context.Context, menuItemID uuid.UUID) error
	CreateRecipeLine(ctx context.Context, arg database.CreateRecipeLineParams) (database.RecipeLine, error)
	ListRecipeLines(ctx context.Context, menuItemID uuid.UUID) ([]database.RecipeLineRow, error)
}

// NewInventoryStore creates an InventoryStore from a DBTX (pool or tx).
type NewInventoryStore func(db database.DBTX) InventoryStore

// InventoryService records stock movements and maintains recipes.
type InventoryService struct {
	pool     TxBeginner
	newStore NewInventoryStore
}

func NewInventoryService(pool TxBeginner, newStore NewInventoryStore) *InventoryService {
	return &InventoryService{pool: pool, newStore: newStore}
}

// AdjustRequest is a manual stock change. Quantity is positive for RESTOCK
// and WASTE; ADJUST takes a signed correction.
type AdjustRequest struct {
	RestaurantID uuid.UUID
	IngredientID uuid.UUID
	StaffID      uuid.UUID
	Kind         string
	Quantity     string
	Note         string
}

// AdjustResult is the ingredient after the change and the movement logged.
type AdjustResult struct {
	Ingredient database.Ingredient
	Movement   database.InventoryMovement
	LowStock   bool
}

func signedDelta(kind, quantity string) (decimal.Decimal, error) {
	qty, err := decimal.NewFromString(strings.TrimSpace(quantity))
	if err != nil {
		return decimal.Zero, ErrInvalidQuantity
	}
	switch kind {
	case enum.MovementRestock:
		if !qty.IsPositive() {
			return decimal.Zero, ErrInvalidQuantity
		}
		return qty, nil
	case enum.MovementWaste:
		if !qty.IsPositive() {
			return decimal.Zero, ErrInvalidQuantity
		}
		return qty.Neg(), nil
	case enum.MovementAdjust:
		if qty.IsZero() {
			return decimal.Zero, ErrZeroAdjustment
		}
		return qty, nil
	}
	return decimal.Zero, ErrInvalidMovementKind
}

// AdjustStock applies a manual change and logs it as a movement.
func (s *InventoryService) AdjustStock(ctx context.Context, req AdjustRequest) (*AdjustResult, error) {
	delta, err := signedDelta(req.Kind, req.Quantity)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	ing, err := store.AdjustIngredientStock(ctx, database.AdjustIngredientStockParams{
		ID:           req.IngredientID,
		RestaurantID: req.RestaurantID,
		Delta:        quantityToNumeric(delta),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIngredientNotFound
		}
		return nil, fmt.Errorf("adjust stock: %w", err)
	}
	mv, err := store.CreateInventoryMovement(ctx, database.CreateInventoryMovementParams{
		RestaurantID: req.RestaurantID,
		IngredientID: ing.ID,
		Kind:         req.Kind,
		Quantity:     quantityToNumeric(delta),
		Note:         optionalText(req.Note),
		CreatedBy:    optionalUUID(req.StaffID),
	})
	if err != nil {
		return nil, fmt.Errorf("record movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &AdjustResult{
		Ingredient: ing,
		Movement:   mv,
		LowStock:   numericToDecimal(ing.Stock).LessThanOrEqual(numericToDecimal(ing.LowStockThreshold)),
	}, nil
}

// RecipeLineRequest is one ingredient of a recipe, per portion.
type RecipeLineRequest struct {
	IngredientID uuid.UUID
	Quantity     string
}

// ReplaceRecipe swaps a menu item's recipe for lines. An empty list clears
// it, so the item no longer draws stock.
func (s *InventoryService) ReplaceRecipe(ctx context.Context, restaurantID, menuItemID uuid.UUID, lines []RecipeLineRequest) ([]database.RecipeLineRow, error) {
	seen := make(map[uuid.UUID]bool, len(lines))
	qtys := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		if seen[l.IngredientID] {
			return nil, fmt.Errorf("line[%d]: %w", i, ErrDuplicateIngredient)
		}
		seen[l.IngredientID] = true
		q, err := decimal.NewFromString(strings.TrimSpace(l.Quantity))
		if err != nil || !q.IsPositive() {
			return nil, fmt.Errorf("line[%d]: %w", i, ErrInvalidQuantity)
		}
		qtys[i] = q
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if _, err := store.GetMenuItem(ctx, database.GetMenuItemParams{ID: menuItemID, RestaurantID: restaurantID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	if err := store.DeleteRecipeLines(ctx, menuItemID); err != nil {
		return nil, fmt.Errorf("clear recipe: %w", err)
	}
	for i, l := range lines {
		if _, err := store.GetIngredient(ctx, database.GetIngredientParams{ID: l.IngredientID, RestaurantID: restaurantID}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("line[%d]: %w", i, ErrIngredientNotFound)
			}
			return nil, fmt.Errorf("line[%d]: get ingredient: %w", i, err)
		}
		if _, err := store.CreateRecipeLine(ctx, database.CreateRecipeLineParams{
			MenuItemID:   menuItemID,
			IngredientID: l.IngredientID,
			Quantity:     quantityToNumeric(qtys[i]),
		}); err != nil {
			return nil, fmt.Errorf("line[%d]: create: %w", i, err)
		}
	}
	recipe, err := store.ListRecipeLines(ctx, menuItemID)
	if err != nil {
		return nil, fmt.Errorf("list recipe: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return recipe, nil
}
