package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wakala/status-reconciler/internal/api"
	"github.com/wakala/status-reconciler/internal/config"
	"github.com/wakala/status-reconciler/internal/domain"
	"github.com/wakala/status-reconciler/internal/ingestion"
	"github.com/wakala/status-reconciler/internal/reconciliation"
	"github.com/wakala/status-reconciler/internal/repository"
	"github.com/wakala/status-reconciler/internal/scheduler"
)

func main() {
	configPath := flag.String("config", os.Getenv("RECONCILER_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Initializing database at %s", cfg.Database.Path)
	db, err := repository.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to init DB: %v", err)
	}
	defer db.Close()

	// Create repositories.
	txnRepo := repository.NewTransactionRepo(db)
	cycleRepo := repository.NewCycleRepo(db)

	// Seed transactions if DB is empty.
	count, err := txnRepo.Count()
	if err != nil {
		log.Fatalf("Failed to count transactions: %v", err)
	}
	switch {
	case count == 0 && cfg.Seed.TransactionsPath != "":
		log.Println("Database is empty, seeding transactions...")
		if err := seedTransactions(txnRepo, cfg.Seed.TransactionsPath); err != nil {
			log.Printf("WARNING: Failed to seed transactions: %v", err)
		}
	case count == 0:
		log.Println("Database is empty and no seed file is configured")
	default:
		log.Printf("Database already has %d transactions, skipping seed", count)
	}

	// Create the reconciliation engine.
	engine := reconciliation.NewEngine(
		newReportSource(cfg),
		txnRepo,
		reconciliation.WithRecorder(cycleRepo),
		reconciliation.WithVerbose(cfg.Log.Verbose),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if cfg.Server.Port != "" {
		srv = &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           api.NewRouter(txnRepo, cycleRepo),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("Status API listening on http://localhost:%s", cfg.Server.Port)
			log.Printf("  GET    /healthz")
			log.Printf("  GET    /api/v1/transactions")
			log.Printf("  GET    /api/v1/transactions/summary")
			log.Printf("  GET    /api/v1/transactions/{id}")
			log.Printf("  GET    /api/v1/cycles")
			log.Printf("  GET    /api/v1/cycles/latest")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("ERROR: status API stopped: %v", err)
				stop()
			}
		}()
	}

	sched := scheduler.New(cfg.Period(), cfg.CycleTimeout(), func(ctx context.Context) {
		engine.Run(ctx)
	})
	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Scheduler stopped: %v", err)
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("WARNING: status API shutdown: %v", err)
		}
	}
	log.Println("Reconciler stopped")
}

func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newReportSource(cfg config.Config) domain.ReportSource {
	if cfg.Report.URL != "" {
		log.Printf("Downloading reports from %s", cfg.Report.URL)
		return ingestion.NewHTTPSource(cfg.Report.URL, cfg.Report.Token, cfg.ReportTimeout())
	}
	log.Printf("Reading reports from %s", cfg.Report.Path)
	return ingestion.NewFileSource(cfg.Report.Path)
}

func seedTransactions(repo *repository.TransactionRepo, path string) error {
	candidates := []string{path}

	// Also try to find relative to the executable.
	if exe, err := os.Executable(); err == nil && !filepath.IsAbs(path) {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, path),
			filepath.Join(dir, "..", "..", path),
		)
	}

	var data []byte
	var loadErr error
	for _, p := range candidates {
		data, loadErr = os.ReadFile(p)
		if loadErr == nil {
			log.Printf("Loaded transactions from %s", p)
			break
		}
	}
	if loadErr != nil {
		return fmt.Errorf("could not find %s in any candidate path: %w", path, loadErr)
	}

	var txns []domain.Transaction
	if err := json.Unmarshal(data, &txns); err != nil {
		return fmt.Errorf("unmarshal transactions: %w", err)
	}

	inserted, err := repo.BulkInsert(txns)
	if err != nil {
		return fmt.Errorf("bulk insert: %w", err)
	}

	log.Printf("Seeded %d transactions (out of %d in file)", inserted, len(txns))
	return nil
}
