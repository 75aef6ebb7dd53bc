package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/config"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/database"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/discovery"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/events"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/printer"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/router"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/service"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/ws"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)
	// chi's request logger writes through the standard library logger.
	defer zap.RedirectStdLog(logger)()

	if err := run(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.Load()
	if err := config.ApplyTimeZone(cfg.TimeZone); err != nil {
		return err
	}

	if err := database.Migrate(cfg.DatabaseURL, true); err != nil {
		return err
	}
	zap.L().Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return err
	}

	var pub events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		np, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		pub = np
		zap.L().Info("publishing kitchen events to NATS", zap.String("url", cfg.NATSURL))
	}
	defer pub.Close() //nolint:errcheck

	routes, err := config.LoadPrinterRoutes(cfg.PrinterRoutesFile)
	if err != nil {
		return err
	}
	printers := printer.NewRouter(routes, printer.TCPSink{})
	if !printers.Enabled() {
		zap.L().Info("no printer routes configured, tickets go to displays only")
	}

	hub := ws.NewHub()
	dispatcher := service.NewDispatcher(hub, pub, printers)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, database.New(pool), pool, hub, dispatcher),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		zap.L().Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.MDNS {
		g.Go(func() error {
			host, _ := os.Hostname()
			if host == "" {
				host = "cafe-pos"
			}
			if err := discovery.Announce(gctx, host, cfg.Port, router.Version); err != nil {
				// Discovery is a convenience; the API stays up without it.
				zap.L().Warn("mdns announce failed", zap.Error(err))
			}
			return nil
		})
	}

	return g.Wait()
}
