package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Kelokecl/keloke-trends-worker/internal/config"
	"github.com/Kelokecl/keloke-trends-worker/internal/events"
	"github.com/Kelokecl/keloke-trends-worker/internal/httpapi"
	"github.com/Kelokecl/keloke-trends-worker/internal/meli"
	"github.com/Kelokecl/keloke-trends-worker/internal/scheduler"
	"github.com/Kelokecl/keloke-trends-worker/internal/secrets"
	"github.com/Kelokecl/keloke-trends-worker/internal/store"
	"github.com/Kelokecl/keloke-trends-worker/internal/worker"
)

func main() {
	// .env is a convenience for local runs; absence is fine.
	_ = godotenv.Load()

	envDataDir := os.Getenv("KELOKE_DATA_DIR")
	bootDir := envDataDir
	if bootDir == "" {
		bootDir = "."
	}
	if err := os.MkdirAll(bootDir, 0o755); err != nil {
		log.Fatal(err)
	}

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(bootDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	raw, err := config.Load(userCfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfg, val := config.NormalizeAndValidate(raw)
	for _, w := range val.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !val.OK() {
		for _, e := range val.Errors {
			log.Printf("[config] error: %s", e)
		}
		log.Fatalf("config invalid (%s)", userCfgPath)
	}

	var cfgVal atomic.Value // stores config.Config
	cfgVal.Store(cfg)

	dataDir := cfg.ResolveDataDir(envDataDir)
	if dataDir != bootDir {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			log.Fatal(err)
		}
	}

	dbPath := filepath.Join(dataDir, "keloke.db")
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	clientSecret, err := secrets.GetClientSecret(cfg.OAuth.KeyringAccount)
	if err != nil {
		// Category-only deployments can still run; seller refresh will fail
		// loudly when attempted.
		log.Printf("[secrets] %v", err)
	}

	client := meli.NewClient(cfg.Marketplace.APIBase, cfg.Marketplace.UserAgent,
		cfg.Marketplace.RequestsPerSec, cfg.Marketplace.Burst)
	refresher := meli.NewRefresher(client.TokenURL(), cfg.ClientID(), clientSecret,
		cfg.Marketplace.UserAgent, worker.NewCredentialStore(db.Pool))

	hub := events.NewHub()
	proc := &worker.Processor{
		DB:        db,
		Client:    client,
		Refresher: refresher,
		Hub:       hub,
		LockPath:  filepath.Join(dataDir, "run.lock"),
	}

	mux := httpapi.NewMux(httpapi.Deps{
		DB:       db.Pool,
		Hub:      hub,
		CfgVal:   &cfgVal,
		RunBatch: proc.Run,
	})
	handler := httpapi.Chain(mux, httpapi.RequestID, httpapi.Recover, httpapi.AccessLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Worker.RunSeconds > 0 {
		interval := time.Duration(cfg.Worker.RunSeconds) * time.Second
		go scheduler.Every(ctx, interval, "worker", func(ctx context.Context) error {
			_, err := proc.Run(ctx, worker.RunParams{
				SiteID: config.SiteID(cfg.Marketplace.Country),
				Batch:  cfg.Worker.Batch,
				Limit:  cfg.Worker.Limit,
			})
			if errors.Is(err, worker.ErrRunInProgress) {
				return nil
			}
			return err
		})
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("worker listening on http://%s (db=%s)", addr, dbPath)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
