// Package server wires configuration, storage, services and the HTTP API
// together and runs them until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/bookmarker/internal/dbx"
	"github.com/dmitrijs2005/bookmarker/internal/logging"
	"github.com/dmitrijs2005/bookmarker/internal/server/auth"
	"github.com/dmitrijs2005/bookmarker/internal/server/config"
	"github.com/dmitrijs2005/bookmarker/internal/server/httpapi"
	"github.com/dmitrijs2005/bookmarker/internal/server/repositories/memory"
	"github.com/dmitrijs2005/bookmarker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bookmarker/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const pingTimeout = 5 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// storage picks PostgreSQL when a DSN is configured and the in-memory store
// otherwise.
type storage struct {
	sqlDB *sql.DB
	db    dbx.DBTX
	tx    dbx.Transactor
	repos repomanager.RepositoryManager
}

func openStorage(ctx context.Context, c *config.Config, l logging.Logger) (*storage, error) {
	if c.DatabaseDSN == "" {
		l.Warn(ctx, "no database DSN configured, data is kept in memory only")
		store := memory.NewStore()
		return &storage{tx: store, repos: store}, nil
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if c.MigrateOnStart {
		if err := repos.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		l.Info(ctx, "database migrations applied")
	}

	return &storage{sqlDB: db, db: db, tx: dbx.NewSQLTransactor(db, nil), repos: repos}, nil
}

func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {
	st, err := openStorage(ctx, c, l)
	if err != nil {
		return nil, err
	}

	if c.SecretKey == config.DefaultSecretKey {
		l.Warn(ctx, "using the default secret key, set BOOKMARKER_SECRET_KEY in production")
	}

	codec := auth.NewTokenCodec([]byte(c.SecretKey))
	hasher := auth.NewBcryptHasher(c.BcryptCost)

	us := services.NewUserService(st.db, st.tx, st.repos, hasher, codec, c, l)
	bs := services.NewBookmarkService(st.db, st.tx, st.repos, l)
	resolver := auth.NewBearerResolver(codec, st.repos.Users(st.db), nil)

	srv, err := httpapi.NewServer(c.HTTPAddr, c.CORSAllowOriginPattern, l, httpapi.NewHandler(us, bs, resolver, l))
	if err != nil {
		if st.sqlDB != nil {
			_ = st.sqlDB.Close()
		}
		return nil, err
	}

	return &App{config: c, logger: l, db: st.sqlDB, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP until ctx is cancelled or a termination signal arrives,
// then closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	err := app.server.Run(ctx)

	if app.db != nil {
		if cerr := app.db.Close(); cerr != nil {
			app.logger.Error(ctx, "db close error", "error", cerr.Error())
		}
	}
	app.logger.Info(ctx, "App stopped")
	return err
}
