// Package app initializes and holds long-lived application services,
// acting as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"

	gstorage "cloud.google.com/go/storage"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/config"
	"github.com/timoparlison/febiscrawler/internal/crawler"
	"github.com/timoparlison/febiscrawler/internal/database"
	"github.com/timoparlison/febiscrawler/internal/migrate"
	"github.com/timoparlison/febiscrawler/internal/output"
	"github.com/timoparlison/febiscrawler/internal/parser"
	"github.com/timoparlison/febiscrawler/internal/pipeline"
	"github.com/timoparlison/febiscrawler/internal/publish"
	"github.com/timoparlison/febiscrawler/internal/session"
	"github.com/timoparlison/febiscrawler/internal/storage/gcs"
	"github.com/timoparlison/febiscrawler/internal/storage/memory"
	"github.com/timoparlison/febiscrawler/internal/storage/supabase"
	"github.com/timoparlison/febiscrawler/internal/transfer"
)

// App holds the shared services a command run needs. The crawl-side
// services are built eagerly; the remote event store connects lazily so a
// local-only crawl never needs database credentials.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	fs      afero.Fs
	session *session.Session
	writer  *output.Writer
	ledger  *output.Ledger

	eventStore crawler.EventStore
}

// New builds the service container from configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	fs := afero.NewOsFs()

	sess, err := session.New(session.Config{
		Password:       cfg.Site.Password,
		UserAgent:      cfg.Site.UserAgent,
		Timeout:        cfg.RequestTimeout(),
		LoginMarker:    cfg.Site.LoginMarker,
		PasswordMarker: cfg.Site.PasswordMarker,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init session: %w", err)
	}

	writer, err := output.NewWriter(fs, cfg.Output.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("init output writer: %w", err)
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		fs:      fs,
		session: sess,
		writer:  writer,
		ledger:  output.NewLedger(fs, cfg.Output.Dir),
	}, nil
}

// Close releases every held service. Safe on all exit paths.
func (a *App) Close() {
	a.session.Close()
	if a.eventStore != nil {
		a.eventStore.Close()
	}
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Pipeline builds the crawl orchestrator over the shared session.
func (a *App) Pipeline() *pipeline.Pipeline {
	return pipeline.New(pipeline.Deps{
		Session:     a.session,
		IndexParser: parser.NewIndexParser(a.cfg.Site.BaseURL, a.cfg.BasePath(), a.logger),
		EventParser: parser.NewEventParser(a.cfg.Site.BaseURL, a.logger),
		Records:     a.writer,
		Ledger:      a.ledger,
		Downloader: transfer.NewDownloader(
			a.session.Client(), a.fs,
			a.cfg.Download.MaxRetries, a.cfg.Download.BackoffBase(), a.logger,
		),
		Executor: transfer.NewExecutor(a.cfg.Download.MaxParallel, a.cfg.Download.Delay(), a.logger),
		IndexURL: a.cfg.IndexURL(),
		EventURL: a.cfg.EventURL,
		Logger:   a.logger,
	})
}

// Publisher builds the remote publisher. Connecting to the database and
// resolving the event bucket both happen here, failing fast before any
// upload starts.
func (a *App) Publisher(ctx context.Context) (*publish.Publisher, error) {
	store, err := a.EventStore(ctx)
	if err != nil {
		return nil, err
	}
	blobStore, err := a.blobStore(ctx, a.cfg.Storage.EventBucket)
	if err != nil {
		return nil, err
	}
	uploader := transfer.NewUploader(blobStore, a.fs, a.cfg.Upload.MaxRetries, a.cfg.Upload.BackoffBase(), a.logger)
	executor := transfer.NewExecutor(a.cfg.Upload.MaxParallel, a.cfg.Upload.Delay(), a.logger)
	return publish.NewPublisher(a.writer, a.ledger, store, uploader, executor, a.logger), nil
}

// TeamMigrator builds the administration page migrator.
func (a *App) TeamMigrator(ctx context.Context) (*migrate.TeamMigrator, error) {
	store, err := a.EventStore(ctx)
	if err != nil {
		return nil, err
	}
	blobStore, err := a.blobStore(ctx, a.cfg.Storage.TeamBucket)
	if err != nil {
		return nil, err
	}
	return migrate.NewTeamMigrator(
		a.session, parser.NewTeamParser(a.logger), store, blobStore,
		a.session.Client(), a.fs, a.cfg.Output.Dir, a.cfg.TeamPageURL(),
		a.cfg.Upload.MaxRetries, a.cfg.Upload.BackoffBase(), a.logger,
	), nil
}

// BoardMigrator builds the executive board page migrator. The board page
// is public, so it gets a plain client instead of the members session.
func (a *App) BoardMigrator(ctx context.Context) (*migrate.BoardMigrator, error) {
	store, err := a.EventStore(ctx)
	if err != nil {
		return nil, err
	}
	blobStore, err := a.blobStore(ctx, a.cfg.Storage.BoardBucket)
	if err != nil {
		return nil, err
	}
	client := resty.New().
		SetTimeout(a.cfg.RequestTimeout()).
		SetHeader("User-Agent", a.cfg.Site.UserAgent)
	return migrate.NewBoardMigrator(
		client, parser.NewBoardParser(a.logger), store, blobStore,
		a.fs, a.cfg.Output.Dir, a.cfg.BoardPageURL(),
		a.cfg.Upload.MaxRetries, a.cfg.Upload.BackoffBase(), a.logger,
	), nil
}

// EventStore connects to the remote database on first use and caches the
// connection for the rest of the run.
func (a *App) EventStore(ctx context.Context) (crawler.EventStore, error) {
	if a.eventStore != nil {
		return a.eventStore, nil
	}
	if a.cfg.Supabase.DatabaseDSN == "" {
		return nil, fmt.Errorf("supabase.database_dsn is not set")
	}
	a.logger.Info("connecting to remote database")
	store, err := database.NewPostgresStore(ctx, a.cfg.Supabase.DatabaseDSN, a.logger)
	if err != nil {
		return nil, err
	}
	a.eventStore = store
	return store, nil
}

// blobStore resolves the configured storage provider for one bucket.
func (a *App) blobStore(ctx context.Context, bucket string) (crawler.BlobStore, error) {
	switch a.cfg.Storage.Provider {
	case "supabase":
		return supabase.New(supabase.Config{
			ProjectID:      a.cfg.Supabase.ProjectID,
			ServiceRoleKey: a.cfg.Supabase.ServiceRoleKey,
			Bucket:         bucket,
		})
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		return gcs.New(client, gcs.Config{Bucket: a.cfg.Storage.GCSBucket})
	case "memory":
		a.logger.Warn("using in-memory storage provider, uploads are discarded at exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", a.cfg.Storage.Provider)
	}
}
