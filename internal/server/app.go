// Package server initializes and runs the main application server.
// It opens the database, runs migrations, wires services and transport,
// and handles graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"contactkeeper/internal/logging"
	"contactkeeper/internal/server/api"
	"contactkeeper/internal/server/config"
	"contactkeeper/internal/server/imaging"
	"contactkeeper/internal/server/mail"
	"contactkeeper/internal/server/repositories/repomanager"
	"contactkeeper/internal/server/services"
	"contactkeeper/internal/server/storage"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	userService    *services.UserService
	contactService *services.ContactService
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	notifier := mail.NewSMTPNotifier(c.SMTPAddr, c.SMTPFrom, c.BaseURL)
	pipeline := imaging.NewResizer(imaging.AvatarSize)
	objects := storage.NewS3Store(storage.Options{
		User:         c.S3RootUser,
		Password:     c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})

	us := services.NewUserService(db, m, c, logger, notifier, pipeline, objects)
	cs := services.NewContactService(db, m)

	return &App{config: c, logger: logger, db: db, userService: us, contactService: cs}, nil
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	handler := api.NewHandler(app.userService, app.contactService, app.logger, app.config.SecretKey)
	s := api.NewHTTPServer(app.config.EndpointAddr, handler, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run() {

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
