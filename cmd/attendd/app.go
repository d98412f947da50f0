package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/connectivity"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/export"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/location"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/photo"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/remote"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/repository"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/service"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/store"
	"github.com/fabian123z3/sistemareconocimiento-sub000/pkg/config"
	"github.com/fabian123z3/sistemareconocimiento-sub000/pkg/logger"
)

// application holds the fully wired dependency graph shared by every
// command. Commands that only read local state still go through the same
// construction so behaviour matches daemon mode.
type application struct {
	cfg    *config.Config
	logger *zap.Logger

	store      store.Store
	repo       *repository.StateRepository
	metrics    *service.MetricsService
	client     *remote.Client
	monitor    *connectivity.Monitor
	workers    *service.WorkerService
	capture    *service.CaptureService
	submission *service.SubmissionService
	sync       *service.SyncService
	exporter   *export.Exporter
}

func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	st, err := newStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	repo := repository.NewStateRepository(st, cfg.History.Limit)
	metrics := service.NewMetricsService()
	client := remote.NewClient(cfg.Server, metrics, logr)

	probeURL := cfg.Probe.URL
	if probeURL == "" {
		probeURL = cfg.Server.BaseURL + "/health/"
	}
	monitor := connectivity.NewMonitor(
		connectivity.NewInterfaceLinkChecker(),
		connectivity.NewHTTPProber(probeURL, cfg.Probe.Timeout),
		cfg.Probe.Interval,
		cfg.Probe.Timeout,
		logr,
	)

	var geocoder location.Geocoder
	if g := location.NewHTTPGeocoder(cfg.Geocode); g != nil {
		geocoder = g
	}
	locations := location.NewProvider(location.NewStaticSource(cfg.Device), geocoder, logr)

	normalizer := photo.NewNormalizer(cfg.Capture.MaxPhotoWidth, cfg.Capture.JPEGQuality)
	capture := service.NewCaptureService(normalizer, cfg.Capture.PhotosRequired, logr)
	workers := service.NewWorkerService(client, repo, logr)
	verifier := service.NewVerificationService(client, cfg.Verify.Timeout, metrics, logr)
	syncer := service.NewSyncService(repo, client, monitor, metrics, logr)
	submission := service.NewSubmissionService(
		repo, client, verifier, monitor, locations, workers, syncer,
		metrics, nil, logr, cfg.Capture.PhotosRequired,
	)

	return &application{
		cfg:        cfg,
		logger:     logr,
		store:      st,
		repo:       repo,
		metrics:    metrics,
		client:     client,
		monitor:    monitor,
		workers:    workers,
		capture:    capture,
		submission: submission,
		sync:       syncer,
		exporter:   export.NewExporter(),
	}, nil
}

func newStore(cfg *config.Config) (store.Store, error) {
	var (
		base store.Store
		err  error
	)
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		base, err = store.NewRedisStore(cfg.Redis)
	case config.StoreBackendFile, "":
		base, err = store.NewFileStore(cfg.Store.DataDir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Store.SealPassphrase != "" {
		return store.NewSealedStore(base, cfg.Store.SealPassphrase)
	}
	return base, nil
}

func (a *application) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
