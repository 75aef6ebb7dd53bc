package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const categoryColumns = `id, restaurant_id, name, station, sort_order, is_active, created_at`

func (q *Queries) ListCategories(ctx context.Context, restaurantID uuid.UUID) ([]Category, error) {
	return queryMany[Category](ctx, q.db,
		`SELECT `+categoryColumns+` FROM categories
		 WHERE restaurant_id = $1 AND is_active = true
		 ORDER BY sort_order, name`, restaurantID)
}

type CreateCategoryParams struct {
	RestaurantID uuid.UUID
	Name         string
	Station      string
	SortOrder    int32
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	return queryOne[Category](ctx, q.db,
		`INSERT INTO categories (restaurant_id, name, station, sort_order)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+categoryColumns,
		arg.RestaurantID, arg.Name, arg.Station, arg.SortOrder)
}

type UpdateCategoryParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Station      string
	SortOrder    int32
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	return queryOne[Category](ctx, q.db,
		`UPDATE categories SET name = $3, station = $4, sort_order = $5
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true
		 RETURNING `+categoryColumns,
		arg.ID, arg.RestaurantID, arg.Name, arg.Station, arg.SortOrder)
}

type SoftDeleteCategoryParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) SoftDeleteCategory(ctx context.Context, arg SoftDeleteCategoryParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx,
		`UPDATE categories SET is_active = false
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true
		 RETURNING id`, arg.ID, arg.RestaurantID).Scan(&id)
	return id, err
}

const menuItemColumns = `id, restaurant_id, category_id, name, description, price, station, is_available, is_active, created_at, updated_at`

type ListMenuItemsParams struct {
	RestaurantID uuid.UUID
	CategoryID   pgtype.UUID
}

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	return queryMany[MenuItem](ctx, q.db,
		`SELECT `+menuItemColumns+` FROM menu_items
		 WHERE restaurant_id = $1 AND is_active = true
		   AND ($2::uuid IS NULL OR category_id = $2)
		 ORDER BY name`, arg.RestaurantID, arg.CategoryID)
}

type GetMenuItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetMenuItem(ctx context.Context, arg GetMenuItemParams) (MenuItem, error) {
	return queryOne[MenuItem](ctx, q.db,
		`SELECT `+menuItemColumns+` FROM menu_items
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true`, arg.ID, arg.RestaurantID)
}

type CreateMenuItemParams struct {
	RestaurantID uuid.UUID
	CategoryID   uuid.UUID
	Name         string
	Description  pgtype.Text
	Price        pgtype.Numeric
	Station      pgtype.Text
	IsAvailable  bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return queryOne[MenuItem](ctx, q.db,
		`INSERT INTO menu_items (restaurant_id, category_id, name, description, price, station, is_available)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+menuItemColumns,
		arg.RestaurantID, arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.Station, arg.IsAvailable)
}

type UpdateMenuItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	CategoryID   uuid.UUID
	Name         string
	Description  pgtype.Text
	Price        pgtype.Numeric
	Station      pgtype.Text
	IsAvailable  bool
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	return queryOne[MenuItem](ctx, q.db,
		`UPDATE menu_items
		 SET category_id = $3, name = $4, description = $5, price = $6, station = $7,
		     is_available = $8, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true
		 RETURNING `+menuItemColumns,
		arg.ID, arg.RestaurantID, arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.Station, arg.IsAvailable)
}

type SoftDeleteMenuItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) SoftDeleteMenuItem(ctx context.Context, arg SoftDeleteMenuItemParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx,
		`UPDATE menu_items SET is_active = false, updated_at = now()
		 WHERE id = $1 AND restaurant_id = $2 AND is_active = true
		 RETURNING id`, arg.ID, arg.RestaurantID).Scan(&id)
	return id, err
}

type GetMenuItemForOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

// GetMenuItemForOrderRow is the snapshot copied onto an order line. Station
// is the item override or, failing that, the category default.
type GetMenuItemForOrderRow struct {
	ID           uuid.UUID      `db:"id"`
	Name         string         `db:"name"`
	Price        pgtype.Numeric `db:"price"`
	CategoryID   uuid.UUID      `db:"category_id"`
	CategoryName string         `db:"category_name"`
	Station      string         `db:"station"`
	IsAvailable  bool           `db:"is_available"`
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, arg GetMenuItemForOrderParams) (GetMenuItemForOrderRow, error) {
	return queryOne[GetMenuItemForOrderRow](ctx, q.db,
		`SELECT mi.id, mi.name, mi.price, mi.category_id, c.name AS category_name,
		        COALESCE(mi.station, c.station) AS station, mi.is_available
		 FROM menu_items mi
		 JOIN categories c ON c.id = mi.category_id
		 WHERE mi.id = $1 AND mi.restaurant_id = $2 AND mi.is_active = true`,
		arg.ID, arg.RestaurantID)
}

type RecipeLineRow struct {
	MenuItemID     uuid.UUID      `db:"menu_item_id"`
	IngredientID   uuid.UUID      `db:"ingredient_id"`
	IngredientName string         `db:"ingredient_name"`
	Unit           string         `db:"unit"`
	Quantity       pgtype.Numeric `db:"quantity"`
}

func (q *Queries) ListRecipeLines(ctx context.Context, menuItemID uuid.UUID) ([]RecipeLineRow, error) {
	return queryMany[RecipeLineRow](ctx, q.db,
		`SELECT rl.menu_item_id, rl.ingredient_id, i.name AS ingredient_name, i.unit, rl.quantity
		 FROM recipe_lines rl
		 JOIN ingredients i ON i.id = rl.ingredient_id
		 WHERE rl.menu_item_id = $1
		 ORDER BY i.name`, menuItemID)
}

func (q *Queries) DeleteRecipeLines(ctx context.Context, menuItemID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM recipe_lines WHERE menu_item_id = $1`, menuItemID)
	return err
}

type CreateRecipeLineParams struct {
	MenuItemID   uuid.UUID
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
}

func (q *Queries) CreateRecipeLine(ctx context.Context, arg CreateRecipeLineParams) (RecipeLine, error) {
	return queryOne[RecipeLine](ctx, q.db,
		`INSERT INTO recipe_lines (menu_item_id, ingredient_id, quantity)
		 VALUES ($1, $2, $3)
		 RETURNING menu_item_id, ingredient_id, quantity`,
		arg.MenuItemID, arg.IngredientID, arg.Quantity)
}

// RecipeUsageRow is the total quantity of one ingredient consumed by an order.
type RecipeUsageRow struct {
	IngredientID uuid.UUID      `db:"ingredient_id"`
	Quantity     pgtype.Numeric `db:"quantity"`
}

func (q *Queries) ListRecipeUsageForOrder(ctx context.Context, orderID uuid.UUID) ([]RecipeUsageRow, error) {
	return queryMany[RecipeUsageRow](ctx, q.db,
		`SELECT rl.ingredient_id, SUM(rl.quantity * oi.quantity)::numeric(12,3) AS quantity
		 FROM order_items oi
		 JOIN recipe_lines rl ON rl.menu_item_id = oi.menu_item_id
		 WHERE oi.order_id = $1 AND oi.quantity > 0
		 GROUP BY rl.ingredient_id
		 ORDER BY rl.ingredient_id`, orderID)
}
