// Command server exposes deal reconciliation as an inbound webhook and
// runs the daily currency trigger alongside it.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/crmsync/internal/bootstrap"
	"github.com/erp/crmsync/internal/infrastructure/telemetry"
	"github.com/erp/crmsync/internal/interfaces/http/handler"
	"github.com/erp/crmsync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, "server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		return bootstrap.ExitFailure
	}
	defer rt.Close()
	cfg := rt.Config
	log := rt.Logger

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	crm, err := rt.BitrixClient()
	if err != nil {
		log.Error("CRM client not configured", zap.Error(err))
		return bootstrap.ExitCode(err)
	}
	dealSync, err := rt.DealSyncService(crm, false)
	if err != nil {
		log.Error("Deal sync not configured", zap.Error(err))
		return bootstrap.ExitCode(err)
	}
	trigger, marker, err := rt.CurrencyTrigger(crm)
	if err != nil {
		log.Error("Currency trigger not configured", zap.Error(err))
		return bootstrap.ExitCode(err)
	}
	defer func() {
		if err := marker.Close(); err != nil {
			log.Warn("Failed to close run marker", zap.Error(err))
		}
	}()

	engine := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		WebhookToken:   cfg.Server.WebhookToken,
		MaxBodySize:    cfg.Server.MaxBodySize,
		MeterProvider:  rt.Meter,
		Logger:         log,
	}, router.Handlers{
		Health:   handler.NewHealthHandler(),
		System:   handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, trigger),
		Order:    handler.NewOrderHandler(dealSync),
		Currency: handler.NewCurrencyHandler(trigger),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	if err := trigger.Start(ctx); err != nil {
		log.Error("Failed to start currency trigger", zap.Error(err))
		return bootstrap.ExitFailure
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exit := bootstrap.ExitOK
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
		exit = bootstrap.ExitFailure
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		exit = bootstrap.ExitFailure
	}
	if err := trigger.Stop(shutdownCtx); err != nil {
		log.Error("Currency trigger did not stop cleanly", zap.Error(err))
		exit = bootstrap.ExitFailure
	}

	log.Info("Server exited")
	return exit
}
