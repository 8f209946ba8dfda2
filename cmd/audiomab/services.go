package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"audiomab/internal/catalog"
	"audiomab/internal/flood"
	httpserver "audiomab/internal/http"
	"audiomab/internal/i18n"
	"audiomab/internal/library"
	"audiomab/internal/offline"
	"audiomab/internal/resolver"
	"audiomab/pkg/musiclink"
)

const (
	libraryDBName = "library.db"
	offlineDBName = "offline.db"
)

type services struct {
	engine    *resolver.Engine
	catalog   *catalog.Importer
	library   *library.Library
	offline   *offline.Manager
	floodgate *flood.Floodgate
	localizer *i18n.Localizer
	metrics   *httpserver.Metrics

	closers []func() error
}

func initializeServices(ctx context.Context) (*services, error) {
	svcs := &services{
		metrics:   httpserver.NewMetrics(),
		localizer: i18n.NewLocalizer(config.App.Language),
		floodgate: flood.New(config.App.FloodLimitPerMinute),
	}
	svcs.closers = append(svcs.closers, func() error {
		svcs.floodgate.Stop()
		return nil
	})

	client := &http.Client{}
	opts := resolver.OptionsFromConfig(config.Resolver)
	opts.Client = client
	opts.Recorder = svcs.metrics
	svcs.engine = resolver.NewEngine(resolver.BuildBackends(config.Resolver, client), opts, logger.Named("resolver"))

	svcs.catalog = catalog.NewImporter(musiclink.NewAppleMusicScraper(), svcs.engine,
		config.App.CatalogMaxSongs, svcs.metrics, logger.Named("catalog"))

	libStore, offlineStore, err := openStores(config.Storage.Path)
	if err != nil {
		return nil, err
	}
	svcs.closers = append(svcs.closers, libStore.Close, offlineStore.Close)

	svcs.library, err = library.Open(ctx, libStore, config.App.RecentLimit, logger.Named("library"))
	if err != nil {
		svcs.Close()
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	svcs.offline = offline.NewManager(offlineStore, svcs.engine, config.Storage.OfflineMaxBytes,
		svcs.metrics, logger.Named("offline"))

	return svcs, nil
}

// openStores keeps state in memory unless a storage directory is configured.
func openStores(dir string) (library.Store, offline.Store, error) {
	if dir == "" {
		logger.Info("No storage path configured, library and offline audio are kept in memory")
		return library.NewMemoryStore(), offline.NewMemoryStore(), nil
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	libStore, err := library.NewSQLiteStore(filepath.Join(dir, libraryDBName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open library store: %w", err)
	}

	offlineStore, err := offline.NewSQLiteStore(filepath.Join(dir, offlineDBName))
	if err != nil {
		_ = libStore.Close()
		return nil, nil, fmt.Errorf("failed to open offline store: %w", err)
	}

	logger.Info("Using persistent storage", zap.String("path", dir))
	return libStore, offlineStore, nil
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Debug("Failed to close service", zap.Error(err))
		}
	}
	s.closers = nil
}
