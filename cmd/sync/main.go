package main

import (
	"context"
	"log"
	"time"

	"msp-ledger-service/internal/config"
	"msp-ledger-service/internal/database"
	"msp-ledger-service/internal/repositories"
	"msp-ledger-service/internal/services"
)

// The sync job is a single-pass batch process, run periodically by an
// external scheduler. It posts 'wait' records from the staging store into
// the general ledger and never fails the run for a single bad record.
func main() {
	log.Printf("[%s] Starting sync process...", time.Now().Format(time.RFC3339))

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	stagingDB, err := database.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Error connecting to staging database: %v", err)
	}
	defer stagingDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ledgerDB, err := database.NewLedgerConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Error connecting to ledger database: %v", err)
	}
	defer ledgerDB.Close()

	syncService := services.NewSyncService(
		repositories.NewTransactionRepository(stagingDB),
		repositories.NewLedgerRepository(ledgerDB),
		cfg.Ledger.OfficeID,
		cfg.Ledger.UserID,
	)

	summary, err := syncService.Run()
	if err != nil {
		log.Fatalf("Sync run failed: %v", err)
	}
	log.Printf("Sync finished: processed=%d posted=%d skipped=%d failed=%d",
		summary.Processed, summary.Posted, summary.Skipped, summary.Failed)
}
