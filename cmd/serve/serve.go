// Package serve runs the web server and the notification worker.
package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/debatetab/debatetab/internal/api"
	"github.com/debatetab/debatetab/internal/api/auth"
	v1 "github.com/debatetab/debatetab/internal/api/v1"
	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/datastore"
	"github.com/debatetab/debatetab/internal/datastore/migration"
	"github.com/debatetab/debatetab/internal/datastore/repository"
	"github.com/debatetab/debatetab/internal/errors"
	"github.com/debatetab/debatetab/internal/logger"
	"github.com/debatetab/debatetab/internal/notification"
	"github.com/debatetab/debatetab/internal/observability"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server and notification worker",
		Long: `Start the HTTP API and deliver queued emails.

Pending data migrations are applied before the server starts unless
--skip-migrations is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings, !skipMigrations)
		},
	}

	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port for the web server")
	cmd.Flags().StringVar(&settings.Notification.Queue.Type, "queue", viper.GetString("notification.queue.type"), "Notification queue backend (memory, mqtt, webhook)")
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending data migrations on startup")

	return cmd
}

// Run serves until ctx is cancelled or a component fails.
func Run(ctx context.Context, settings *conf.Settings, applyMigrations bool) error {
	log := logger.Global().Module("main")

	manager, err := datastore.Open(&settings.Database, logger.Global().Module("datastore"))
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.Close(); err != nil {
			log.Warn("failed to close database", logger.Error(err))
		}
	}()
	db := manager.DB()

	if applyMigrations {
		applied, err := migration.NewRunner(db, logger.Global().Module("migration")).Run(ctx)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			log.Info("data migrations applied", logger.Any("versions", applied))
		}
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return errors.New(err).
			Component("main").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_metrics").
			Build()
	}

	queue, err := notification.NewQueue(ctx, &settings.Notification.Queue)
	if err != nil {
		return err
	}
	defer func() {
		if err := queue.Close(); err != nil {
			log.Warn("failed to close notification queue", logger.Error(err))
		}
	}()

	tournaments := repository.NewTournamentRepository(db)
	people := repository.NewPersonRepository(db)
	preferences := repository.NewPreferenceRepository(db)

	sender, err := newSender(&settings.Notification.Email, log)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	started := 0

	deliveries, err := consume(gctx, queue, settings.Notification.Queue.BufferSize)
	if err != nil {
		return err
	}
	switch {
	case deliveries == nil:
		log.Info("queued emails are delivered by the queue consumer", logger.String("queue", queue.Name()))
	case sender == nil:
		log.Warn("email transport not configured, queued emails will not be delivered")
	default:
		worker := notification.NewWorker(&notification.WorkerConfig{
			Sender:      sender,
			People:      people,
			Preferences: preferences,
			Tournaments: tournaments,
			Metrics:     m.Notification,
			Logger:      logger.Global().Module("notification"),
			SiteURL:     settings.Notification.Email.SiteURL,
		})
		g.Go(func() error { return worker.Run(gctx, deliveries) })
		started++
	}

	if settings.WebServer.Enabled {
		authorizer, err := auth.NewSessionAuthorizer(&settings.Security)
		if err != nil {
			return err
		}
		deps := &v1.Dependencies{
			Tournaments: tournaments,
			People:      people,
			Preferences: preferences,
			Queue:       notification.NewInstrumentedQueue(queue, m.Notification),
		}
		// A nil *ShoutrrrSender must not become a non-nil interface.
		if sender != nil {
			deps.Sender = sender
		}
		server, err := api.New(settings, deps,
			api.WithMetrics(m),
			api.WithAuthorizer(authorizer),
			api.WithLogger(logger.Global().Module("api")),
		)
		if err != nil {
			return err
		}
		g.Go(func() error { return server.Run(gctx) })
		started++
	}

	if started == 0 {
		log.Warn("web server disabled and no local delivery, nothing to run")
		return nil
	}

	log.Info("debatetab started",
		logger.String("queue", queue.Name()),
		logger.Bool("web_server", settings.WebServer.Enabled),
		logger.String("database", manager.Path()))

	return g.Wait()
}

// newSender returns nil without an error when no SMTP URL is configured.
func newSender(cfg *conf.EmailSettings, log logger.Logger) (*notification.ShoutrrrSender, error) {
	if cfg.SMTPURL == "" {
		return nil, nil
	}
	sender, err := notification.NewShoutrrrSender(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("email transport configured", logger.String("from", cfg.From))
	return sender, nil
}

// consume returns the channel the local worker reads from, or nil when
// the backend hands messages to an external consumer.
func consume(ctx context.Context, queue notification.Queue, buffer int) (<-chan *notification.Message, error) {
	switch q := queue.(type) {
	case *notification.MemoryQueue:
		return q.Messages(), nil
	case *notification.MQTTQueue:
		return q.Consume(ctx, buffer)
	default:
		return nil, nil
	}
}
