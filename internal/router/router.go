package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/config"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/enum"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/handler"
	mw "github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/middleware"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/ws"
)

// Version is reported by /health and the mDNS TXT record.
const Version = "1.0.0"

// New creates a Chi router with all application routes wired up.
// Applies authentication, restaurant scoping, and role-based middleware as needed.
// notify receives committed order and table changes; pass a
// *service.Dispatcher in production.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, notify service.Notifier) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services share the pool; each opens its own transaction per call.
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, notify)
	tableService := service.NewTableService(pool, func(db database.DBTX) service.TableStore {
		return database.New(db)
	}, notify)
	ledgerService := service.NewLedgerService(pool, func(db database.DBTX) service.LedgerStore {
		return database.New(db)
	})
	purchasingService := service.NewPurchasingService(pool, func(db database.DBTX) service.PurchasingStore {
		return database.New(db)
	})
	inventoryService := service.NewInventoryService(pool, func(db database.DBTX) service.InventoryStore {
		return database.New(db)
	})
	setupService := service.NewSetupService(pool, func(db database.DBTX) service.SetupStore {
		return database.New(db)
	})

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"` + Version + `"}`)) //nolint:errcheck
	})

	handler.NewSetupHandler(setupService, cfg.JWTSecret).RegisterRoutes(r)
	handler.NewAuthHandler(queries, cfg.JWTSecret).RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/restaurants/{rid}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/restaurants/{rid}", func(r chi.Router) {
			r.Use(mw.RequireRestaurant)

			// Floor: every role
			r.Route("/categories", handler.NewCategoryHandler(queries).RegisterRoutes)
			r.Route("/menu-items", handler.NewMenuHandler(queries, inventoryService).RegisterRoutes)
			r.Route("/ingredients", handler.NewIngredientHandler(queries, inventoryService).RegisterRoutes)
			r.Route("/tables", handler.NewTableHandler(queries, tableService).RegisterRoutes)
			r.Route("/reservations", handler.NewReservationHandler(queries, tableService).RegisterRoutes)
			r.Route("/orders", handler.NewOrderHandler(orderService, queries).RegisterRoutes)
			r.Route("/bills", handler.NewBillHandler(queries).RegisterRoutes)
			r.Route("/customers", handler.NewCustomerHandler(queries).RegisterRoutes)

			// Back office: owners and managers
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.StaffRoleOwner, enum.StaffRoleManager))

				settingsHandler := handler.NewSettingsHandler(queries)
				r.Route("/settings", settingsHandler.RegisterRoutes)
				r.Get("/kot-preference", settingsHandler.GetKotPreference)
				r.Put("/kot-preference", settingsHandler.UpdateKotPreference)
				r.Route("/staff", handler.NewStaffHandler(queries).RegisterRoutes)
				r.Route("/vendors", handler.NewVendorHandler(queries).RegisterRoutes)
				r.Route("/expenses", handler.NewExpenseHandler(queries, ledgerService).RegisterRoutes)
				r.Route("/pending-bills", handler.NewPendingBillHandler(queries, ledgerService).RegisterRoutes)
				r.Route("/vendor-orders", handler.NewVendorOrderHandler(queries, purchasingService).RegisterRoutes)
				r.Route("/reports", handler.NewReportsHandler(queries).RegisterRoutes)
			})
		})
	})

	zap.L().Info("router initialized")
	return r
}
