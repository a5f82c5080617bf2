package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/heimdex/clipmark-agent/internal/api"
	"github.com/heimdex/clipmark-agent/internal/clips"
	"github.com/heimdex/clipmark-agent/internal/config"
	"github.com/heimdex/clipmark-agent/internal/db"
	"github.com/heimdex/clipmark-agent/internal/logging"
	"github.com/heimdex/clipmark-agent/internal/persist"
	"github.com/heimdex/clipmark-agent/internal/playback"
	"github.com/heimdex/clipmark-agent/internal/realtime"
	"github.com/heimdex/clipmark-agent/internal/ui"
)

var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting clipmark agent", "version", Version, "data_dir", logging.SanitizePath(cfg.DataDir()), "storage", cfg.Storage())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	deviceID, err := ensureConfigSecret(database, db.ConfigDeviceID, 16)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureConfigSecret(database, db.ConfigAuthToken, 32)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                  CLIPMARK AGENT v%-24s ║\n", Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rdb *redis.Client
	if cfg.RedisURL() != "" {
		rdb, err = persist.OpenRedis(ctx, cfg.RedisURL())
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis", "url", logging.SanitizeURL(cfg.RedisURL()))
	}

	backend, closeBackend, err := openBackend(ctx, cfg, database, rdb)
	if err != nil {
		return err
	}
	defer closeBackend()

	restoreCtx, restoreCancel := context.WithTimeout(ctx, 10*time.Second)
	initial := persist.Restore(restoreCtx, backend, logger)
	restoreCancel()

	store := clips.NewStore(initial, logger)
	defer persist.Attach(store, backend, logger)()

	hub := realtime.NewHub(logger)

	var relay *realtime.Relay
	if rdb != nil {
		relay = realtime.NewRelay(rdb, logger)
	}

	events := api.NewEvents(store, hub, relay, logger)
	defer events.WireStore()()

	if relay != nil {
		go func() {
			if err := relay.Run(ctx, nil, events.ApplyRemote); err != nil && ctx.Err() == nil {
				logger.Error("relay stopped", "error", err)
			}
		}()
	}

	media := playback.NewRemoteMedia(hub, logger)

	var tray *ui.Tray
	controller := playback.NewController(playback.ControllerConfig{
		Store:           store,
		Media:           media,
		Logger:          logger,
		PollInterval:    cfg.PollInterval(),
		TransitionDelay: cfg.TransitionDelay(),
		OnStatus: func(s playback.Status) {
			events.PlaybackStatus(s)
			if tray != nil {
				tray.UpdateStatus(s)
			}
		},
	})
	media.OnDuration(controller.ReportDuration)

	hub.OnMessage(api.NewClientMessageHandler(controller, media, logger))

	quitCh := make(chan struct{})

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray = ui.NewTray(ui.TrayConfig{
			Navigator: controller,
			Logger:    logger,
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	go hub.Run(ctx)
	go controller.Run(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Port:        cfg.Port(),
		Version:     Version,
		Store:       store,
		Playback:    controller,
		Media:       media,
		Hub:         hub,
		MediaServer: playback.NewMediaServer(cfg.MediaDir(), logger),
		Tokens:      database,
		Logger:      logger,
		StartTime:   startTime,
		DeviceID:    deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case <-quitCh:
	}

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	cancel()
	if tray != nil {
		tray.Quit()
	}

	logger.Info("shutdown complete")
	return nil
}

// openBackend selects where the clip state snapshot is persisted.
func openBackend(ctx context.Context, cfg config.Config, database *db.DB, rdb *redis.Client) (persist.Store, func(), error) {
	noop := func() {}

	switch cfg.Storage() {
	case config.StorageRedis:
		return persist.NewRedisStore(rdb), noop, nil
	case config.StoragePostgres:
		pool, err := persist.OpenPostgres(ctx, cfg.DatabaseURL())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		pg := persist.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to prepare postgres schema: %w", err)
		}
		return pg, pool.Close, nil
	case config.StorageMemory:
		return persist.NewMemoryStore(), noop, nil
	default:
		return persist.NewSQLiteStore(database.Conn()), noop, nil
	}
}

// ensureConfigSecret returns the stored value for key, generating and storing
// n random bytes hex-encoded on first run.
func ensureConfigSecret(database *db.DB, key string, n int) (string, error) {
	ctx := context.Background()

	existing, err := database.GetConfig(ctx, key)
	if err == nil && existing != "" {
		return existing, nil
	}

	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	value := hex.EncodeToString(b)

	if err := database.SetConfig(ctx, key, value); err != nil {
		return "", err
	}
	return value, nil
}
