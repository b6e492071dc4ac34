// Command dealsync fetches one pending order and reconciles it with the CRM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	appintegration "github.com/erp/crmsync/internal/application/integration"
	"github.com/erp/crmsync/internal/bootstrap"
	"github.com/erp/crmsync/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, appintegration.JobDealSync)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dealsync: %v\n", err)
		return bootstrap.ExitFailure
	}
	defer rt.Close()

	ctx, log := logger.WithRunID(ctx, rt.Logger, uuid.NewString())

	crm, err := rt.BitrixClient()
	if err != nil {
		log.Error("CRM client not configured", zap.Error(err))
		return bootstrap.ExitCode(err)
	}
	svc, err := rt.DealSyncService(crm, true)
	if err != nil {
		log.Error("Deal sync not configured", zap.Error(err))
		return bootstrap.ExitCode(err)
	}

	log.Info("Deal sync starting")
	result, err := svc.SyncFromSource(ctx)
	if err != nil {
		code := bootstrap.ExitCode(err)
		if code == bootstrap.ExitValidation {
			log.Warn("Order rejected", zap.Error(err))
		} else {
			log.Error("Deal sync failed", zap.Error(err))
		}
		return code
	}

	log.Info("Deal sync finished",
		zap.String("delivery_code", result.DeliveryCode),
		zap.String("contact_id", result.ContactID),
		zap.String("deal_id", result.DealID),
		zap.Bool("contact_created", result.ContactCreated),
		zap.Bool("deal_created", result.DealCreated),
		zap.Int("writes", result.WriteCount()),
	)
	return bootstrap.ExitOK
}
