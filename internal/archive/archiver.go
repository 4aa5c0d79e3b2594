package archive

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/metrics"
	"github.com/JakeFAU/pagewatch/internal/watch"
)

const (
	// DefaultSaveEndpoint prefixes the URL being archived.
	DefaultSaveEndpoint = "https://web.archive.org/save/"
	// DefaultUserAgent is the browser identification sent with submissions.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	defaultSubmitTimeout  = 60 * time.Second
	defaultSettleDelay    = 5 * time.Second
	defaultSnapshotMaxAge = time.Hour
)

// Outcomes recorded per submission.
const (
	OutcomeSkipped     = "skipped"
	OutcomeRateLimited = "rate_limited"
	OutcomeTransport   = "transport_error"
	OutcomeRecent      = "recent"
	OutcomeUnverified  = "unverified"
)

// Config controls archive submissions.
type Config struct {
	SaveEndpoint   string
	UserAgent      string
	SubmitTimeout  time.Duration
	SettleDelay    time.Duration
	SnapshotMaxAge time.Duration
}

// Archiver implements watch.Archiver.
type Archiver struct {
	cfg       Config
	fetcher   watch.Fetcher
	snapshots watch.SnapshotChecker
	gate      *Gate
	pacer     watch.Pacer
	clock     watch.Clock
	logger    *zap.Logger
}

// New builds an Archiver. pacer may be nil.
func New(
	cfg Config,
	fetcher watch.Fetcher,
	snapshots watch.SnapshotChecker,
	gate *Gate,
	pacer watch.Pacer,
	clock watch.Clock,
	logger *zap.Logger,
) *Archiver {
	if cfg.SaveEndpoint == "" {
		cfg.SaveEndpoint = DefaultSaveEndpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = defaultSubmitTimeout
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	} else if cfg.SettleDelay == 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.SnapshotMaxAge <= 0 {
		cfg.SnapshotMaxAge = defaultSnapshotMaxAge
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		cfg:       cfg,
		fetcher:   fetcher,
		snapshots: snapshots,
		gate:      gate,
		pacer:     pacer,
		clock:     clock,
		logger:    logger,
	}
}

// ArchiveAll submits each target in order, one at a time.
func (a *Archiver) ArchiveAll(ctx context.Context, targets []string) {
	for _, target := range targets {
		if ctx.Err() != nil {
			return
		}
		a.ArchiveOne(ctx, target)
	}
}

// ArchiveOne submits target unless the gate is cooling, then checks that a
// recent snapshot exists.
func (a *Archiver) ArchiveOne(ctx context.Context, target string) {
	if cooling, until := a.gate.Cooling(); cooling {
		a.logger.Info("⏸️ Archive cooldown active, skipping.",
			zap.String("url", target),
			zap.String("until", until.Format(time.RFC3339)),
		)
		metrics.ObserveArchive(OutcomeSkipped)
		return
	}

	if a.pacer != nil {
		if err := a.pacer.Wait(ctx, a.saveURL(target)); err != nil {
			a.logger.Warn("Archive pacing interrupted.", zap.String("url", target), zap.Error(err))
			return
		}
	}

	resp, err := a.fetcher.Fetch(ctx, watch.FetchRequest{
		URL:     a.saveURL(target),
		Headers: http.Header{"User-Agent": {a.cfg.UserAgent}},
		Timeout: a.cfg.SubmitTimeout,
	})
	switch {
	case watch.IsRateLimited(err):
		until := a.gate.Trip()
		a.logger.Warn("🛑 Archive rate limited, cooling down.",
			zap.String("url", target),
			zap.Int("status", watch.StatusCode(err)),
			zap.String("until", until.Format(time.RFC3339)),
		)
		metrics.ObserveArchive(OutcomeRateLimited)
		return
	case err != nil && watch.StatusCode(err) == 0:
		if ctx.Err() != nil {
			return
		}
		until := a.gate.Trip()
		a.logger.Warn("❌ Archive request failed, cooling down.",
			zap.String("url", target),
			zap.Bool("timeout", watch.IsTimeout(err)),
			zap.String("until", until.Format(time.RFC3339)),
			zap.Error(err),
		)
		metrics.ObserveArchive(OutcomeTransport)
		return
	case err != nil:
		a.logger.Warn("Archive save returned an error status.",
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
		)
	default:
		a.logger.Info("📦 Archive requested.", zap.String("url", target), zap.Int("status", resp.StatusCode))
	}

	if err := a.clock.Sleep(ctx, a.cfg.SettleDelay); err != nil {
		return
	}

	recent, snapshotURL := a.snapshots.RecentSnapshot(ctx, target, a.cfg.SnapshotMaxAge)
	switch {
	case recent:
		a.logger.Info("✅ Archived.", zap.String("url", target), zap.String("snapshot", snapshotURL))
		metrics.ObserveArchive(OutcomeRecent)
	case snapshotURL != "":
		a.logger.Warn("⚠️ No recent snapshot, latest is stale.",
			zap.String("url", target),
			zap.String("snapshot", snapshotURL),
		)
		metrics.ObserveArchive(OutcomeUnverified)
	default:
		a.logger.Warn("⚠️ No recent snapshot found.", zap.String("url", target))
		metrics.ObserveArchive(OutcomeUnverified)
	}
}

func (a *Archiver) saveURL(target string) string {
	endpoint := a.cfg.SaveEndpoint
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return endpoint + target
}
