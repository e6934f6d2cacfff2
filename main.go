package main

import (
	"os"
	"os/signal"
	"syscall"

	"botdeck/api"
	"botdeck/config"
	"botdeck/engine"
	"botdeck/logger"
	"botdeck/session"
	"botdeck/store"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file if present (for local/dev runs)
	_ = godotenv.Load()

	logger.Init(nil)

	logger.Info("╔════════════════════════════════════════════╗")
	logger.Info("║   🤖 botdeck - trading bot control plane   ║")
	logger.Info("╚════════════════════════════════════════════╝")

	config.Init()
	cfg := config.Get()

	dbPath := "data.db"
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}

	logger.Infof("📋 Initializing database: %s", dbPath)
	st, err := store.New(dbPath)
	if err != nil {
		logger.Fatalf("❌ Failed to initialize database: %v", err)
	}
	defer st.Close()

	logger.Infof("🔌 Remote engine gateway: %s (timeout %s)", cfg.EngineBaseURL, cfg.EngineTimeout)
	gateway := engine.NewClient(cfg.EngineBaseURL, cfg.EngineTimeout)

	sessions := session.NewManager(gateway, st.Bot(), st.Order(), session.Intervals{
		Logs:      cfg.LogPollInterval,
		Orders:    cfg.OrderPollInterval,
		Reconcile: cfg.ReconcileInterval,
	})

	server := api.NewServer(sessions, st, gateway, cfg.APIServerPort)

	// Serve until interrupted
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Infof("⏹  Received signal %v, shutting down...", sig)
	case err := <-errCh:
		logger.Errorf("❌ API server stopped: %v", err)
	}

	sessions.CloseAll()
	if err := server.Shutdown(); err != nil {
		logger.Warnf("⚠️  Server shutdown: %v", err)
	}
	logger.Info("👋 Shutdown complete")
}
