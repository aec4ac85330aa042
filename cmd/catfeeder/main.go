package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Miquel-TA/cat-feeder/config"
	"github.com/Miquel-TA/cat-feeder/internal/app"
	httphandler "github.com/Miquel-TA/cat-feeder/internal/handlers/http"
	"github.com/Miquel-TA/cat-feeder/internal/lib/logger/handlers/slogpretty"
	"github.com/Miquel-TA/cat-feeder/pkg/utils"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.LoadConfig()
	log := setupLogger(cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown on SIGINT/SIGTERM
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("shutting down...")
		cancel()
	}()

	log.Info("initializing cat feeder pipeline...")
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error(fmt.Sprintf("failed to initialize app: %v", err))
		os.Exit(1)
	}

	// Independent activities: actuator link lifecycle, the single release
	// loop, the status broadcaster and the donation source pump.
	go application.Link.Run(ctx)
	go application.Dispatcher.Run(ctx)
	go application.Status.Run(ctx)
	go application.Pump.Run(ctx)

	if cfg.DemoMode {
		generator := utils.NewDonationGenerator()
		go func() {
			log.Info("demo mode: generating random donations")
			for ctx.Err() == nil {
				event := generator.GenerateRandomDonation()
				if application.KafkaProducer != nil {
					if err := application.KafkaProducer.PublishDonation(ctx, event); err != nil && ctx.Err() == nil {
						log.Warn("demo publish failed", "error", err)
					}
				} else {
					application.DonationCh <- event
				}
				time.Sleep(3 * time.Second)
			}
		}()
	}

	httpAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	httpServer := httphandler.NewServer(httpAddr, application.Status, application.History, application.Broadcaster.Handler(), log)

	go func() {
		log.Info(fmt.Sprintf("HTTP server listening on %s", httpAddr))
		if err := httpServer.Start(); err != nil {
			log.Info(fmt.Sprintf("HTTP server stopped: %v", err))
		}
	}()

	<-ctx.Done()

	log.Info("cleaning up app resources...")
	application.Cleanup(log)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	log.Info("shutting down HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown error", "error", err)
	}

	log.Info("service stopped.")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
