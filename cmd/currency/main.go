// Command currency keeps the CRM currency directory in line with the central
// bank rates, running one pass per day at the configured hour.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	appintegration "github.com/erp/crmsync/internal/application/integration"
	"github.com/erp/crmsync/internal/bootstrap"
	"go.uber.org/zap"
)

const stopTimeout = 30 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("currency", flag.ContinueOnError)
	once := fs.Bool("once", false, "run a single pass now and exit")
	if err := bootstrap.ParseFlags(fs, args); err != nil {
		return bootstrap.ExitCode(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, appintegration.JobCurrencySync)
	if err != nil {
		fmt.Fprintf(os.Stderr, "currency: %v\n", err)
		return bootstrap.ExitFailure
	}
	defer rt.Close()
	log := rt.Logger

	crm, err := rt.BitrixClient()
	if err != nil {
		log.Error("CRM client not configured", zap.Error(err))
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

	if *once {
		if _, err := trigger.RunOnce(ctx); err != nil {
			return bootstrap.ExitCode(err)
		}
		return bootstrap.ExitOK
	}

	if err := trigger.Start(ctx); err != nil {
		log.Error("Failed to start currency trigger", zap.Error(err))
		return bootstrap.ExitFailure
	}
	<-ctx.Done()
	log.Info("Shutting down currency updater")

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := trigger.Stop(stopCtx); err != nil {
		log.Error("Currency trigger did not stop cleanly", zap.Error(err))
		return bootstrap.ExitFailure
	}
	return bootstrap.ExitOK
}
