package main

import (
	"fmt"
	"io"
	"os"

	"github.com/UkralStul/blog-service/internal/config"
	"github.com/UkralStul/blog-service/internal/logging"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/UkralStul/blog-service/internal/storage/gormdb"
	"github.com/UkralStul/blog-service/internal/storage/inmemory"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "server",
		Short:        "Blog service",
		SilenceUsage: true,
		RunE:         runServe, // serve по умолчанию
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (yaml, json or toml)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newCreateSuperuserCommand())
	root.AddCommand(newModerateCommand())
	return root
}

// app - общие зависимости всех команд.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	store storage.Storage
	close func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load(config.New(), configPath)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStorage(cfg, log)
	if err != nil {
		return nil, err
	}
	log.WithField("storage", cfg.Storage).Info("storage ready")

	return &app{cfg: cfg, log: log, store: store, close: closeStore}, nil
}

func openStorage(cfg *config.Config, log *logrus.Logger) (storage.Storage, func() error, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		store, err := gormdb.NewPostgres(cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return store, store.Close, nil
	case config.StorageSQLite:
		store, err := gormdb.NewSQLite(cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		return store, store.Close, nil
	default:
		return inmemory.New(), func() error { return nil }, nil
	}
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
