package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mindreader/config"
	"mindreader/db"
	"mindreader/game"
	qhttp "mindreader/http"
	"mindreader/logger"
	"mindreader/ml"
	"mindreader/monitoring"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override http.port")
	return cmd
}

func runServe(parent context.Context, port int) (err error) {
	// 1. Load config
	cfg, fromFile, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port > 0 {
		cfg.Http.Port = port
	}

	// 2. Logger
	log, level, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()
	if !fromFile {
		log.Warn("config file not found, using defaults", zap.String("path", configPath))
	}

	// 3. Database
	store, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		err = multierr.Append(err, store.Close())
	}()
	log.Info("database initialized", zap.String("path", cfg.Database.Path))

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Predictors and game
	registry := ml.NewRegistry(cfg.Predictors, log.Named("ml"))
	if cfg.Game.Warmup {
		go func() {
			if err := registry.Warmup(ctx); err != nil {
				log.Warn("predictor warmup failed", zap.Error(err))
			}
		}()
	}

	g, err := game.NewGame(ctx, registry, store, cfg.Game, log.Named("game"))
	if err != nil {
		return err
	}
	metrics := monitoring.NewMetrics()
	g.SetRecorder(metrics)

	// 5. HTTP + websocket
	hub := monitoring.NewWebSocketHub(log.Named("ws"), metrics)
	api := &qhttp.API{
		Game:     g,
		Registry: registry,
		Stats:    store,
		Hub:      hub,
		Metrics:  metrics,
		Logger:   log.Named("api"),
	}
	hub.SetHandler(api.HandleCommand)
	go hub.Start()

	server := qhttp.NewServer(qhttp.ServerConfigFrom(cfg.Http), api, log.Named("http"))

	group, gctx := errgroup.WithContext(ctx)
	group.Go(server.Start)
	group.Go(func() error {
		<-gctx.Done()
		hub.Stop()
		return server.Stop(context.Background())
	})
	if fromFile {
		group.Go(func() error {
			err := config.Watch(gctx, configPath, log, func(updated *config.Config) {
				if err := logger.SetLevel(level, updated.Log.Level); err != nil {
					log.Warn("ignoring log level change", zap.Error(err))
					return
				}
				log.Info("log level updated", zap.String("level", updated.Log.Level))
			})
			// 监听失败不影响服务
			if err != nil {
				log.Warn("config watcher stopped", zap.Error(err))
			}
			return nil
		})
	}

	err = group.Wait()
	log.Info("exiting")
	return err
}
