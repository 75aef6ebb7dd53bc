package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
)

var seedOpts struct {
	restaurant string
	email      string
	password   string
	name       string
	tables     int
	menu       bool
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo restaurant with an owner account",
	Long: `seed runs the setup wizard once: restaurant, owner, default categories,
tables and KOT preference. With --menu it also adds a few sample items.

Running it again with an email that already exists is a no-op.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	f := seedCmd.Flags()
	f.StringVar(&seedOpts.restaurant, "restaurant", "Demo Cafe", "restaurant name")
	f.StringVar(&seedOpts.email, "email", "owner@example.com", "owner email")
	f.StringVar(&seedOpts.password, "password", "", "owner password (required)")
	f.StringVar(&seedOpts.name, "name", "Owner", "owner full name")
	f.IntVar(&seedOpts.tables, "tables", 8, "number of tables to create")
	f.BoolVar(&seedOpts.menu, "menu", true, "add sample menu items")
	_ = seedCmd.MarkFlagRequired("password")
}

// sample menu per default category name.
var sampleMenu = map[string][]struct{ name, price string }{
	"Food": {
		{"Veg Sandwich", "120.00"},
		{"Paneer Wrap", "160.00"},
		{"French Fries", "90.00"},
	},
	"Drinks": {
		{"Masala Chai", "40.00"},
		{"Cold Coffee", "110.00"},
		{"Fresh Lime Soda", "70.00"},
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	queries := database.New(pool)
	if existing, err := queries.GetStaffByEmail(ctx, seedOpts.email); err == nil {
		zap.L().Info("owner already exists, skipping",
			zap.String("email", seedOpts.email), zap.String("restaurant_id", existing.RestaurantID.String()))
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check owner: %w", err)
	}

	setup := service.NewSetupService(pool, func(db database.DBTX) service.SetupStore {
		return database.New(db)
	})
	res, err := setup.Setup(ctx, service.SetupRequest{
		RestaurantName: seedOpts.restaurant,
		OwnerName:      seedOpts.name,
		OwnerEmail:     seedOpts.email,
		OwnerPassword:  seedOpts.password,
		Tables:         seedOpts.tables,
	})
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	if seedOpts.menu {
		if err := seedMenu(ctx, queries, res); err != nil {
			return err
		}
	}

	zap.L().Info("seed completed",
		zap.String("restaurant_id", res.Restaurant.ID.String()),
		zap.String("owner_id", res.Owner.ID.String()),
		zap.Int("tables", len(res.Tables)))
	fmt.Fprintf(cmd.OutOrStdout(), "restaurant %s\n", res.Restaurant.ID)
	return nil
}

func seedMenu(ctx context.Context, q *database.Queries, res *service.SetupResult) error {
	for _, c := range res.Categories {
		for _, item := range sampleMenu[c.Name] {
			var price pgtype.Numeric
			if err := price.Scan(item.price); err != nil {
				return err
			}
			if _, err := q.CreateMenuItem(ctx, database.CreateMenuItemParams{
				RestaurantID: res.Restaurant.ID,
				CategoryID:   c.ID,
				Name:         item.name,
				Price:        price,
				IsAvailable:  true,
			}); err != nil {
				return fmt.Errorf("create menu item %q: %w", item.name, err)
			}
		}
	}
	return nil
}
