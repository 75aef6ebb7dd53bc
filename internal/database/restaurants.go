package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const restaurantColumns = `id, name, address, phone, currency, tax_rate, created_at, updated_at`

type CreateRestaurantParams struct {
	Name     string
	Address  pgtype.Text
	Phone    pgtype.Text
	Currency string
	TaxRate  pgtype.Numeric
}

func (q *Queries) CreateRestaurant(ctx context.Context, arg CreateRestaurantParams) (Restaurant, error) {
	return queryOne[Restaurant](ctx, q.db,
		`INSERT INTO restaurants (name, address, phone, currency, tax_rate)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+restaurantColumns,
		arg.Name, arg.Address, arg.Phone, arg.Currency, arg.TaxRate)
}

func (q *Queries) GetRestaurant(ctx context.Context, id uuid.UUID) (Restaurant, error) {
	return queryOne[Restaurant](ctx, q.db,
		`SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`, id)
}

type UpdateRestaurantParams struct {
	ID       uuid.UUID
	Name     string
	Address  pgtype.Text
	Phone    pgtype.Text
	Currency string
	TaxRate  pgtype.Numeric
}

func (q *Queries) UpdateRestaurant(ctx context.Context, arg UpdateRestaurantParams) (Restaurant, error) {
	return queryOne[Restaurant](ctx, q.db,
		`UPDATE restaurants
		 SET name = $2, address = $3, phone = $4, currency = $5, tax_rate = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING `+restaurantColumns,
		arg.ID, arg.Name, arg.Address, arg.Phone, arg.Currency, arg.TaxRate)
}

const kotPreferenceColumns = `restaurant_id, mode, default_group, category_groups, group_order, updated_at`

func (q *Queries) GetKotPreference(ctx context.Context, restaurantID uuid.UUID) (KotPreference, error) {
	return queryOne[KotPreference](ctx, q.db,
		`SELECT `+kotPreferenceColumns+` FROM kot_preferences WHERE restaurant_id = $1`, restaurantID)
}

type UpsertKotPreferenceParams struct {
	RestaurantID   uuid.UUID
	Mode           string
	DefaultGroup   string
	CategoryGroups []byte
	GroupOrder     []string
}

func (q *Queries) UpsertKotPreference(ctx context.Context, arg UpsertKotPreferenceParams) (KotPreference, error) {
	if arg.GroupOrder == nil {
		arg.GroupOrder = []string{}
	}
	return queryOne[KotPreference](ctx, q.db,
		`INSERT INTO kot_preferences (restaurant_id, mode, default_group, category_groups, group_order)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (restaurant_id) DO UPDATE
		 SET mode = EXCLUDED.mode,
		     default_group = EXCLUDED.default_group,
		     category_groups = EXCLUDED.category_groups,
		     group_order = EXCLUDED.group_order,
		     updated_at = now()
		 RETURNING `+kotPreferenceColumns,
		arg.RestaurantID, arg.Mode, arg.DefaultGroup, arg.CategoryGroups, arg.GroupOrder)
}
