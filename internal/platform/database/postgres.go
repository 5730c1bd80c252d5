package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"designhub/internal/platform/config"
	"designhub/internal/platform/logger"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

var DB *sql.DB

func Connect(ctx context.Context) error {
	var err error
	DB, err = sql.Open("pgx", config.AppConfig.DBConnStr)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err = DB.PingContext(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	logger.Info(ctx, "connected to PostgreSQL", zap.String("host", config.AppConfig.DBHost), zap.String("db", config.AppConfig.DBName))
	return nil
}

// Migrate applies the embedded schema. Statements are idempotent so it runs on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func Close() {
	if DB != nil {
		DB.Close()
		logger.Info(context.Background(), "database connection closed")
	}
}
