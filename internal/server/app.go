// Package server assembles the file sharing service: configuration,
// logging, the row store, blob storage, services and the HTTP and gRPC
// servers, and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/smartids/internal/cryptox"
	"github.com/dmitrijs2005/smartids/internal/logging"
	"github.com/dmitrijs2005/smartids/internal/server/blobstore"
	"github.com/dmitrijs2005/smartids/internal/server/config"
	"github.com/dmitrijs2005/smartids/internal/server/httpapi"
	"github.com/dmitrijs2005/smartids/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/smartids/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/smartids/internal/server/grpc"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	fileService  *services.FileService
	shareService *services.ShareService
}

// NewApp connects the row store, applies migrations and builds the services.
// A missing master key is only logged: uploads and downloads then fail per
// request with a configuration error.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, rm, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := blobstore.New(ctx, c, logger.With("module", "blobstore"))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	keys := cryptox.NewKeyWrapper(c.MasterKeyHex)
	if err := keys.Ready(); err != nil {
		logger.Warn(ctx, "MASTER_KEY missing or invalid; uploads and downloads will fail")
	}

	ss := services.NewShareService(db, rm, c, logger.With("module", "shares"))
	fs := services.NewFileService(db, rm, store, keys, ss, c, logger.With("module", "files"))

	return &App{config: c, logger: logger, db: db, fileService: fs, shareService: ss}, nil
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

func (app *App) httpHandler() http.Handler {
	h := httpapi.NewHandler(app.fileService, app.shareService,
		app.config.MaxUploadSize, app.config.PublicBaseURL, app.logger)
	health := func(r *http.Request) error { return app.db.PingContext(r.Context()) }
	return httpapi.NewRouter(h, []byte(app.config.SecretKey), app.config.AllowedOrigins, health, app.logger)
}

// Run serves HTTP and gRPC until ctx is cancelled, a signal arrives or one
// of the servers fails. The database is closed on return.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.httpHandler(), app.logger)
		return s.Run(gctx)
	})

	g.Go(func() error {
		s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.db.PingContext, 10*time.Second)
		return s.Run(gctx)
	})

	err := g.Wait()
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close", "error", cerr)
	}
	if err != nil {
		app.logger.Error(ctx, "server stopped with error", "error", err)
		return err
	}
	app.logger.Info(ctx, "App stopped")
	return nil
}
