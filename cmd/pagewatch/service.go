package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/api"
	"github.com/JakeFAU/pagewatch/internal/archive"
	"github.com/JakeFAU/pagewatch/internal/clock/system"
	"github.com/JakeFAU/pagewatch/internal/config"
	collyfetcher "github.com/JakeFAU/pagewatch/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/pagewatch/internal/fetcher/headless"
	"github.com/JakeFAU/pagewatch/internal/hash/sha256"
	"github.com/JakeFAU/pagewatch/internal/headless/detector"
	"github.com/JakeFAU/pagewatch/internal/id/uuid"
	"github.com/JakeFAU/pagewatch/internal/logbuffer"
	"github.com/JakeFAU/pagewatch/internal/metrics"
	"github.com/JakeFAU/pagewatch/internal/monitor"
	"github.com/JakeFAU/pagewatch/internal/notifier/webhook"
	"github.com/JakeFAU/pagewatch/internal/policy/ratelimit"
	pubsubpublisher "github.com/JakeFAU/pagewatch/internal/publisher/pubsub"
	"github.com/JakeFAU/pagewatch/internal/storage/gcs"
	"github.com/JakeFAU/pagewatch/internal/storage/local"
	"github.com/JakeFAU/pagewatch/internal/watch"
)

const shutdownTimeout = 10 * time.Second

// service owns the monitor loop and the HTTP listeners.
type service struct {
	cfg     config.Config
	logger  *zap.Logger
	monitor *monitor.Loop
	viewer  *api.Server
	closers []func()
}

func newService(ctx context.Context, cfg config.Config, buf *logbuffer.Buffer, logger *zap.Logger) (*service, error) {
	svc := &service{cfg: cfg, logger: logger}
	clock := system.New()

	httpFetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Monitor.UserAgent,
		Timeout:   cfg.Monitor.FetchTimeout,
	})

	var pageFetcher watch.Fetcher = httpFetcher
	if cfg.Monitor.Headless || cfg.Monitor.AutoHeadless {
		headless, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			UserAgent:         cfg.Monitor.UserAgent,
			NavigationTimeout: cfg.Monitor.NavTimeout,
		})
		switch {
		case err != nil:
			logger.Warn("headless fetcher init failed, using plain HTTP", zap.Error(err))
		case cfg.Monitor.Headless:
			pageFetcher = headless
		default:
			pageFetcher = detector.NewFetcher(httpFetcher, headless, detector.NewHeuristic(0), logger.Named("detector"))
		}
		if err == nil {
			svc.closers = append(svc.closers, headless.Close)
		}
	}

	notifier := webhook.New(webhook.Config{
		URL:       cfg.Notify.WebhookURL,
		Timeout:   cfg.Notify.Timeout,
		MaxLength: cfg.Notify.MaxLength,
	}, httpFetcher, logger.Named("notify"))

	archiveLogger := logger.Named("archive")
	checker := archive.NewChecker(archive.CheckerConfig{
		Endpoint: cfg.Archive.AvailabilityEndpoint,
		Timeout:  cfg.Archive.AvailabilityTimeout,
	}, httpFetcher, clock, archiveLogger)
	archiver := archive.New(
		archive.Config{
			SaveEndpoint:   cfg.Archive.SaveEndpoint,
			UserAgent:      cfg.Archive.UserAgent,
			SubmitTimeout:  cfg.Archive.SubmitTimeout,
			SettleDelay:    cfg.Archive.SettleDelay,
			SnapshotMaxAge: cfg.Archive.SnapshotMaxAge,
		},
		httpFetcher,
		checker,
		archive.NewGate(clock, cfg.Archive.Cooldown),
		ratelimit.New(ratelimit.Config{RequestsPerMinute: cfg.Archive.RequestsPerMinute}),
		clock,
		archiveLogger,
	)

	deps := monitor.Deps{
		Fetcher:  pageFetcher,
		Hasher:   sha256.New(),
		Notifier: notifier,
		Archiver: archiver,
		IDs:      uuid.New(),
		Clock:    clock,
	}
	captures, err := svc.captureStore(ctx)
	if err != nil {
		svc.Close()
		return nil, err
	}
	deps.Captures = captures

	if cfg.PubSub.Enabled() {
		publisher, err := pubsubpublisher.Connect(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		deps.Publisher = publisher
		svc.closers = append(svc.closers, func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("pubsub close failed", zap.Error(err))
			}
		})
	}

	svc.monitor = monitor.New(monitor.Config{
		URL:            cfg.Monitor.URL,
		Interval:       cfg.Monitor.Interval,
		FetchTimeout:   cfg.Monitor.FetchTimeout,
		Selector:       cfg.Monitor.Selector,
		ArchiveTargets: cfg.Archive.Targets,
		Topic:          cfg.PubSub.TopicName,
		CapturePrefix:  cfg.Capture.Prefix,
	}, deps, logger.Named("monitor"))
	svc.viewer = api.NewServer(buf, logger.Named("api"))
	return svc, nil
}

// captureStore builds the configured page capture backend. It returns nil
// when captures are disabled.
func (s *service) captureStore(ctx context.Context) (watch.BlobStore, error) {
	switch s.cfg.Capture.Backend {
	case config.CaptureLocal:
		store, err := local.New(local.Config{BaseDir: s.cfg.Capture.Dir})
		if err != nil {
			return nil, fmt.Errorf("init local capture store: %w", err)
		}
		return store, nil
	case config.CaptureGCS:
		store, err := gcs.Connect(ctx, gcs.Config{Bucket: s.cfg.Capture.Bucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs capture store: %w", err)
		}
		s.closers = append(s.closers, func() {
			if err := store.Close(); err != nil {
				s.logger.Warn("gcs close failed", zap.Error(err))
			}
		})
		return store, nil
	default:
		return nil, nil
	}
}

// runMonitor runs the loop until ctx is done. A failed initial fetch ends
// monitoring but leaves the viewer up.
func (s *service) runMonitor(ctx context.Context) {
	err := s.monitor.Run(ctx)
	switch {
	case errors.Is(err, monitor.ErrInitialFetch):
		s.logger.Error("monitor exited, log viewer stays up", zap.Error(err))
	case err != nil && ctx.Err() == nil:
		s.logger.Error("monitor exited", zap.Error(err))
	default:
		s.logger.Info("monitor stopped")
	}
}

// Serve runs the monitor and HTTP listeners until ctx is canceled or a
// listener fails.
func (s *service) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	servers := []*http.Server{{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.viewer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}}
	if s.cfg.Server.MetricsPort > 0 {
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		s.runMonitor(ctx)
	}()

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			s.logger.Info("http server started", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown initiated")
	case serveErr = <-errCh:
		s.logger.Error("http server error", zap.Error(serveErr))
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown error", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}
	<-monitorDone
	s.logger.Info("shutdown complete")
	return serveErr
}

// Close releases the browser and publisher, newest first.
func (s *service) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
