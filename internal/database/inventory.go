package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const ingredientColumns = `id, restaurant_id, name, unit, stock, low_stock_threshold, cost_per_unit, keywords, is_active, created_at, updated_at`

func (q *Queries) ListIngredients(ctx context.Context, restaurantID uuid.UUID) ([]Ingredient, error) {
	return queryMany[Ingredient](ctx, q.db,
		`SELECT `+ingredientColumns+` FROM ingredients
		 WHERE restaurant_id = $1 AND is_active = true
		 ORDER BY name`, restaurantID)
}

func (q *Queries) ListLowStockIngredients(ctx context.Context, restaurantID uuid.UUID) ([]Ingredient, error) {
	return queryMany[Ingredient](ctx, q.db,
		`SELECT `+ingredientColumns+` FROM ingredients
		 WHERE restaurant_id = $1 AND is_active = true AND stock <= low_stock_threshold
		 ORDER BY stock - low_stock_threshold, name`, restaurantID)
}

type GetIngredientParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetIngredient(ctx context.Context, arg GetIngredientParams) (Ingredient, error) {
	return queryOne[Ingredient](ctx, q.db,
		`SELECT `+ingredientColumns+` FROM ingredients
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true`, arg.ID, arg.RestaurantID)
}

type CreateIngredientParams struct {
	RestaurantID      uuid.UUID
	Name              string
	Unit              string
	Stock             pgtype.Numeric
	LowStockThreshold pgtype.Numeric
	CostPerUnit       pgtype.Numeric
	Keywords          []string
}

func (q *Queries) CreateIngredient(ctx context.Context, arg CreateIngredientParams) (Ingredient, error) {
	if arg.Keywords == nil {
		arg.Keywords = []string{}
	}
	return queryOne[Ingredient](ctx, q.db,
		`INSERT INTO ingredients (restaurant_id, name, unit, stock, low_stock_threshold, cost_per_unit, keywords)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+ingredientColumns,
		arg.RestaurantID, arg.Name, arg.Unit, arg.Stock, arg.LowStockThreshold, arg.CostPerUnit, arg.Keywords)
}

type UpdateIngredientParams struct {
	ID                uuid.UUID
	RestaurantID      uuid.UUID
	Name              string
	Unit              string
	LowStockThreshold pgtype.Numeric
	CostPerUnit       pgtype.Numeric
	Keywords          []string
}

// UpdateIngredient edits descriptive fields only; stock moves through
// AdjustIngredientStock so every change leaves a movement.
func (q *Queries) UpdateIngredient(ctx context.Context, arg UpdateIngredientParams) (Ingredient, error) {
	if arg.Keywords == nil {
		arg.Keywords = []string{}
	}
	return queryOne[Ingredient](ctx, q.db,
		`UPDATE ingredients
		 SET name = $3, unit = $4, low_stock_threshold = $5, cost_per_unit = $6, keywords = $7, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true
		 RETURNING `+ingredientColumns,
		arg.ID, arg.RestaurantID, arg.Name, arg.Unit, arg.LowStockThreshold, arg.CostPerUnit, arg.Keywords)
}

type SoftDeleteIngredientParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) SoftDeleteIngredient(ctx context.Context, arg SoftDeleteIngredientParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx,
		`UPDATE ingredients SET is_active = false, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true
		 RETURNING id`, arg.ID, arg.RestaurantID).Scan(&id)
	return id, err
}

type AdjustIngredientStockParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Delta        pgtype.Numeric
}

func (q *Queries) AdjustIngredientStock(ctx context.Context, arg AdjustIngredientStockParams) (Ingredient, error) {
	return queryOne[Ingredient](ctx, q.db,
		`UPDATE ingredients SET stock = stock + $3, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2
		 RETURNING `+ingredientColumns,
		arg.ID, arg.RestaurantID, arg.Delta)
}

const inventoryMovementColumns = `id, restaurant_id, ingredient_id, kind, quantity, reference_id, note, created_by, created_at`

type CreateInventoryMovementParams struct {
	RestaurantID uuid.UUID
	IngredientID uuid.UUID
	Kind         string
	Quantity     pgtype.Numeric
	ReferenceID  pgtype.UUID
	Note         pgtype.Text
	CreatedBy    pgtype.UUID
}

func (q *Queries) CreateInventoryMovement(ctx context.Context, arg CreateInventoryMovementParams) (InventoryMovement, error) {
	return queryOne[InventoryMovement](ctx, q.db,
		`INSERT INTO inventory_movements (restaurant_id, ingredient_id, kind, quantity, reference_id, note, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+inventoryMovementColumns,
		arg.RestaurantID, arg.IngredientID, arg.Kind, arg.Quantity, arg.ReferenceID, arg.Note, arg.CreatedBy)
}

type ListInventoryMovementsParams struct {
	RestaurantID uuid.UUID
	IngredientID pgtype.UUID
	Limit        int32
	Offset       int32
}

func (q *Queries) ListInventoryMovements(ctx context.Context, arg ListInventoryMovementsParams) ([]InventoryMovement, error) {
	return queryMany[InventoryMovement](ctx, q.db,
		`SELECT `+inventoryMovementColumns+` FROM inventory_movements
		 WHERE restaurant_id = $1 AND ($2::uuid IS NULL OR ingredient_id = $2)
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		arg.RestaurantID, arg.IngredientID, arg.Limit, arg.Offset)
}
