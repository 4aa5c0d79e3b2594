// Package monitor polls one page and reacts when its content digest changes:
// it notifies, optionally captures the page and publishes a change event,
// and archives the configured targets.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/metrics"
	"github.com/JakeFAU/pagewatch/internal/watch"
)

// ErrInitialFetch is returned by Run when the first fetch fails. The loop
// does not retry it.
var ErrInitialFetch = errors.New("initial fetch failed")

// Poll outcomes.
const (
	OutcomeInitial   = "initial"
	OutcomeUnchanged = "unchanged"
	OutcomeChanged   = "changed"
	OutcomeFailed    = "failed"
)

const (
	defaultInterval     = 600 * time.Second
	defaultFetchTimeout = 10 * time.Second

	captureTimeLayout  = "20060102T150405Z"
	captureContentType = "text/html; charset=utf-8"
)

// Config controls the polling loop.
type Config struct {
	URL          string
	Interval     time.Duration
	FetchTimeout time.Duration
	// Selector limits hashing to matching elements when set.
	Selector       string
	ArchiveTargets []string
	// Topic names the change event stream for the publisher.
	Topic string
	// CapturePrefix is prepended to the object path of page captures.
	CapturePrefix string
}

// Deps are the collaborators of a Loop. Publisher, IDs, and Captures may be nil.
type Deps struct {
	Fetcher   watch.Fetcher
	Hasher    watch.Hasher
	Notifier  watch.Notifier
	Archiver  watch.Archiver
	Publisher watch.Publisher
	IDs       watch.IDGenerator
	Captures  watch.BlobStore
	Clock     watch.Clock
}

// pollResult is one successful fetch of the page.
type pollResult struct {
	digest string
	body   []byte
	took   time.Duration
}

// Loop is the single-goroutine monitor state machine.
type Loop struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

// New builds a Loop.
func New(cfg Config, deps Deps, logger *zap.Logger) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{cfg: cfg, deps: deps, logger: logger}
}

// Run fetches the page once, then re-fetches every interval until ctx is
// done. It returns ErrInitialFetch if the first fetch fails, otherwise the
// context error.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("🔍 Monitoring HTML content.", zap.String("url", l.cfg.URL))

	last, err := l.poll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("monitor stopped: %w", ctx.Err())
		}
		l.logger.Error("❌ Failed to get initial HTML content. Exiting monitor.", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrInitialFetch, err)
	}
	l.logger.Info("Initial hash recorded.", zap.String("digest", last.digest))
	metrics.ObservePoll(OutcomeInitial, last.took)

	for {
		if err := l.deps.Clock.Sleep(ctx, l.cfg.Interval); err != nil {
			return fmt.Errorf("monitor stopped: %w", err)
		}
		current, err := l.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("monitor stopped: %w", ctx.Err())
			}
			l.logger.Warn("⚠️ Failed to fetch. Skipping.")
			continue
		}
		if current.digest == last.digest {
			l.logger.Debug("No change.", zap.String("digest", current.digest))
			metrics.ObservePoll(OutcomeUnchanged, current.took)
			continue
		}
		metrics.ObservePoll(OutcomeChanged, current.took)
		l.handleChange(ctx, last.digest, current)
		last = current
	}
}

// poll fetches the page and returns its digest, body, and fetch latency.
// Failures are counted here; successes are counted by the caller.
func (l *Loop) poll(ctx context.Context) (pollResult, error) {
	resp, err := l.deps.Fetcher.Fetch(ctx, watch.FetchRequest{
		URL:     l.cfg.URL,
		Timeout: l.cfg.FetchTimeout,
	})
	if err != nil {
		metrics.ObservePoll(OutcomeFailed, 0)
		if ctx.Err() == nil {
			l.logger.Warn("❌ Error fetching HTML.", zap.String("url", l.cfg.URL), zap.Error(err))
		}
		return pollResult{}, fmt.Errorf("fetch %s: %w", l.cfg.URL, err)
	}

	body, matched, err := scope(resp.Body, l.cfg.Selector)
	if err != nil {
		metrics.ObservePoll(OutcomeFailed, 0)
		l.logger.Warn("❌ Error scoping HTML.", zap.String("selector", l.cfg.Selector), zap.Error(err))
		return pollResult{}, err
	}
	if !matched {
		l.logger.Warn("Selector matched nothing, hashing full page.", zap.String("selector", l.cfg.Selector))
	}

	digest, err := l.deps.Hasher.Hash(body)
	if err != nil {
		metrics.ObservePoll(OutcomeFailed, 0)
		return pollResult{}, fmt.Errorf("hash content: %w", err)
	}
	return pollResult{digest: digest, body: resp.Body, took: resp.Duration}, nil
}

func (l *Loop) handleChange(ctx context.Context, previous string, current pollResult) {
	now := l.deps.Clock.Now()
	l.logger.Warn("⚠️ HTML content changed!",
		zap.String("previous", previous),
		zap.String("current", current.digest),
	)
	metrics.SetLastChange(now)

	l.deps.Notifier.Notify(ctx, Message(l.cfg.URL))
	l.publish(ctx, watch.ChangeEvent{
		ID:             l.newID(),
		URL:            l.cfg.URL,
		PreviousDigest: previous,
		Digest:         current.digest,
		DetectedAt:     now,
		CaptureURI:     l.capture(ctx, now, current),
	})
	l.deps.Archiver.ArchiveAll(ctx, l.cfg.ArchiveTargets)
}

// capture stores the changed page body and returns its URI, or "" when
// captures are disabled or the write fails.
func (l *Loop) capture(ctx context.Context, at time.Time, res pollResult) string {
	if l.deps.Captures == nil {
		return ""
	}
	name := fmt.Sprintf("%s-%s.html", at.UTC().Format(captureTimeLayout), shortDigest(res.digest))
	uri, err := l.deps.Captures.PutObject(ctx, path.Join(l.cfg.CapturePrefix, name), captureContentType, res.body)
	if err != nil {
		l.logger.Warn("Page capture failed.", zap.String("object", name), zap.Error(err))
		metrics.ObserveCapture("failed")
		return ""
	}
	l.logger.Info("📄 Changed page captured.", zap.String("uri", uri))
	metrics.ObserveCapture("stored")
	return uri
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func (l *Loop) publish(ctx context.Context, event watch.ChangeEvent) {
	if l.deps.Publisher == nil {
		return
	}
	id, err := l.deps.Publisher.Publish(ctx, l.cfg.Topic, event)
	if err != nil {
		l.logger.Warn("Change event publish failed.", zap.String("event_id", event.ID), zap.Error(err))
		metrics.ObservePublish("failed")
		return
	}
	l.logger.Debug("Change event published.", zap.String("event_id", event.ID), zap.String("message_id", id))
	metrics.ObservePublish("published")
}

func (l *Loop) newID() string {
	if l.deps.IDs == nil {
		return ""
	}
	id, err := l.deps.IDs.NewID()
	if err != nil {
		l.logger.Warn("Change event ID generation failed.", zap.Error(err))
		return ""
	}
	return id
}

// Message is the notification text for a change of url.
func Message(url string) string {
	return fmt.Sprintf("⚠️ Content changed! <%s>", url)
}
