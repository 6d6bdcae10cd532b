package main

import (
	"context"
	"hangoutd/app/client/gmaps"
	"hangoutd/app/client/oracle"
	"hangoutd/app/config"
	"hangoutd/app/server"
	"hangoutd/app/server/mcpsrv"
	"hangoutd/app/service/events"
	"hangoutd/app/service/orchestrator"
	"hangoutd/app/service/store"
	"hangoutd/app/util/mylog"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, oracle.NewClient)
	do.Provide(di, gmaps.NewClient)
	do.Provide(di, store.New)
	do.Provide(di, events.New)
	do.Provide(di, orchestrator.New)
	do.Provide(di, server.New)
	do.Provide(di, mcpsrv.New)

	if len(os.Args) > 1 && os.Args[1] == "mcp" {
		if err = do.MustInvoke[*mcpsrv.Server](di).ServeStdio(); err != nil {
			log.Fatalf("mcp server failed: %v", err)
		}

		return
	}

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go logPlanUpdates(appCtx, do.MustInvoke[*events.Service](di))

	go do.MustInvoke[*server.Service](di).Run(appCtx)

	<-appCtx.Done()
}

func logPlanUpdates(ctx context.Context, eventSvc *events.Service) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-eventSvc.Channel():
			if !ok {
				return
			}

			if update.Finalized {
				slog.Info("Plan finalized",
					"session_id", update.SessionID,
					"version", update.Plan.Version,
					"venue", update.Plan.VenueRecommendation,
					"telegram", true)
			} else {
				slog.Info("Plan updated",
					"session_id", update.SessionID,
					"version", update.Plan.Version,
					"venue", update.Plan.VenueRecommendation,
					"confidence", update.Plan.ConfidenceLevel,
					"telegram", true)
			}
		}
	}
}
