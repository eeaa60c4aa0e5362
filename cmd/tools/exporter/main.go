// cmd/tools/exporter/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"loanstream/internal/common/config"
	"loanstream/internal/common/database"
	"loanstream/internal/common/logger"
	"loanstream/internal/export"
	"loanstream/internal/store"
)

const sampleInsertCount = 5

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx := context.Background()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres open failed", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres unreachable", zap.Error(err))
	}

	appStore := store.New(pg.DB, log)

	rows, err := appStore.QueryAll(ctx)
	if err != nil {
		zapLog.Fatal("query failed", zap.Error(err))
	}
	if len(rows) == 0 {
		fmt.Println("No data found in database. Generate some records first.")
		return
	}

	filename := export.Filename(time.Now())
	f, err := os.Create(filename)
	if err != nil {
		zapLog.Fatal("create export file failed", zap.Error(err))
	}

	written, err := export.WriteCSV(f, rows)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		zapLog.Fatal("csv export failed", zap.Error(err))
	}

	fraud := 0
	for _, rec := range rows {
		if rec.IsFraud {
			fraud++
		}
	}

	fmt.Printf("Exported %d records to %s\n", written, filename)
	fmt.Printf("Fraud rate: %.1f%%\n", float64(fraud)/float64(len(rows))*100)
	fmt.Printf("Normal applications: %d\n", len(rows)-fraud)
	fmt.Printf("Fraud applications: %d\n", fraud)

	fmt.Printf("\nSample INSERT statements (first %d records):\n\n", sampleInsertCount)
	for _, stmt := range export.InsertStatements(rows, sampleInsertCount) {
		fmt.Println(stmt)
	}
}
