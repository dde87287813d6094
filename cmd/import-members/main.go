// Command import-members upserts a CSV roster into the members table.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"ClubSend/internal/config"
	"ClubSend/internal/csvparser"
	"ClubSend/internal/db"
)

func main() {
	file := flag.String("file", "", "path to the member roster CSV")
	maxRows := flag.Int("max-rows", 0, "stop after this many members (0 = default limit)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if *file == "" {
		logger.Fatal("-file is required")
	}

	cfg, err := config.LoadDatabase()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ------------------------------------------------
	// Parse
	// ------------------------------------------------
	f, err := os.Open(*file)
	if err != nil {
		logger.Fatal("failed to open roster", zap.Error(err))
	}
	defer f.Close()

	rows, skipped, err := csvparser.ParseMemberRows(f, *maxRows)
	if err != nil {
		logger.Fatal("failed to parse roster", zap.String("file", *file), zap.Error(err))
	}
	if len(skipped) > 0 {
		logger.Warn("skipped roster rows", zap.Ints("lines", skipped))
	}

	// ------------------------------------------------
	// Database
	// ------------------------------------------------
	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("database migration failed", zap.Error(err))
		}
	}

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer store.Close()

	// ------------------------------------------------
	// Upsert
	// ------------------------------------------------
	imported := 0
	for _, row := range rows {
		if err := store.UpsertMember(ctx, row.Name, row.Email, row.OptIn); err != nil {
			logger.Error("failed to upsert member",
				zap.Int("line", row.Line),
				zap.String("email", row.Email),
				zap.Error(err),
			)
			continue
		}
		imported++
	}

	logger.Info("member import complete",
		zap.Int("imported", imported),
		zap.Int("failed", len(rows)-imported),
		zap.Int("skipped", len(skipped)),
	)
}
