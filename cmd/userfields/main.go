// Command userfields makes sure the custom deal fields exist in the CRM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	appintegration "github.com/erp/crmsync/internal/application/integration"
	"github.com/erp/crmsync/internal/bootstrap"
	"github.com/erp/crmsync/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("userfields", flag.ContinueOnError)
	names := fs.String("fields", "", "comma-separated field names (default: userfields.names from config)")
	if err := bootstrap.ParseFlags(fs, args); err != nil {
		return bootstrap.ExitCode(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, appintegration.JobUserFields)
	if err != nil {
		fmt.Fprintf(os.Stderr, "userfields: %v\n", err)
		return bootstrap.ExitFailure
	}
	defer rt.Close()

	ctx, log := logger.WithRunID(ctx, rt.Logger, uuid.NewString())

	fields := rt.Config.UserFields.Names
	if *names != "" {
		fields = splitNames(*names)
	}

	crm, err := rt.BitrixClient()
	if err != nil {
		log.Error("CRM client not configured", zap.Error(err))
		return bootstrap.ExitCode(err)
	}
	svc, err := rt.UserFieldService(crm)
	if err != nil {
		log.Error("Userfield provisioner not configured", zap.Error(err))
		return bootstrap.ExitCode(err)
	}

	result, err := svc.Ensure(ctx, fields)
	if err != nil {
		log.Error("Userfield provisioning failed", zap.Error(err))
		return bootstrap.ExitCode(err)
	}

	log.Info("Userfields provisioned",
		zap.Strings("created", result.Created),
		zap.Strings("existing", result.Existing),
	)
	return bootstrap.ExitOK
}

func splitNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
