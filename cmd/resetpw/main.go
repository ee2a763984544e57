// Command resetpw resets a user's password directly in the database and
// revokes the user's refresh tokens. It reads the same configuration as the
// server (BOOKMARKER_DATABASE_DSN, -d, .env).
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/dmitrijs2005/bookmarker/internal/admin"
	"github.com/dmitrijs2005/bookmarker/internal/dbx"
	"github.com/dmitrijs2005/bookmarker/internal/logging"
	"github.com/dmitrijs2005/bookmarker/internal/server/auth"
	"github.com/dmitrijs2005/bookmarker/internal/server/config"
	"github.com/dmitrijs2005/bookmarker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bookmarker/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := resetPassword(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func resetPassword(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("database DSN is required (BOOKMARKER_DATABASE_DSN or -d)")
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db open error: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping error: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stderr, "error")
	svc := services.NewUserService(
		db,
		dbx.NewSQLTransactor(db, nil),
		repomanager.NewPostgresRepositoryManager(),
		auth.NewBcryptHasher(cfg.BcryptCost),
		auth.NewTokenCodec([]byte(cfg.SecretKey)),
		cfg,
		logger,
	)

	return admin.NewResetTool(svc, os.Stdin, os.Stdout).Run(ctx)
}
