package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Domenick1991/slotbooking/config"
	"github.com/Domenick1991/slotbooking/internal/bootstrap"
	"github.com/Domenick1991/slotbooking/internal/email"
	"github.com/Domenick1991/slotbooking/internal/kafka"
	"github.com/Domenick1991/slotbooking/internal/logger"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("build app", zap.Error(err))
	}
	defer app.Close()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Sweeper.Run(ctx)
	}()

	if len(cfg.Catalog.Directory) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keepGenerated(ctx, app, lg)
		}()
	}

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.NotificationsTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, lg.Named("consumer"))
		defer consumer.Close()

		sender := email.NewSender(lg.Named("email"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := consumer.ConsumeReservationEvents(ctx, sender.Send)
			if err != nil && ctx.Err() == nil {
				lg.Error("notification consumer stopped", zap.Error(err))
			}
		}()
	}

	lg.Info("worker started",
		zap.Duration("sweep_interval", cfg.Worker.SweepInterval()),
		zap.Int("directory", len(cfg.Catalog.Directory)))
	<-ctx.Done()
	lg.Info("shutdown signal received")
	wg.Wait()
	lg.Info("worker stopped")
}

// keepGenerated extends the directory's slots to the configured horizon on
// start and then on every generation tick.
func keepGenerated(ctx context.Context, app *bootstrap.App, lg *zap.Logger) {
	horizon := time.Duration(app.Config.Catalog.HorizonDays) * 24 * time.Hour
	t := time.NewTicker(app.Config.Worker.GenerationInterval())
	defer t.Stop()

	for {
		res, err := app.Catalog.GenerateDirectory(ctx, app.Config.Catalog.Directory, horizon)
		if err != nil && ctx.Err() == nil {
			lg.Error("directory generation incomplete", zap.Error(err))
		}
		if res.Created > 0 {
			lg.Info("directory extended", zap.Int("created", res.Created))
		}

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
