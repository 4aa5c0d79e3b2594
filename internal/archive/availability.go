package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/watch"
)

const (
	// DefaultAvailabilityEndpoint is the Wayback availability API.
	DefaultAvailabilityEndpoint = "https://archive.org/wayback/available"
	// TimestampLayout parses the 14-digit snapshot timestamps.
	TimestampLayout            = "20060102150405"
	defaultAvailabilityTimeout = 30 * time.Second
)

// Snapshot is the closest archived copy reported by the availability API.
type Snapshot struct {
	Available bool   `json:"available"`
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// CapturedAt parses Timestamp as UTC.
func (s Snapshot) CapturedAt() (time.Time, error) {
	ts, err := time.ParseInLocation(TimestampLayout, s.Timestamp, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse snapshot timestamp %q: %w", s.Timestamp, err)
	}
	return ts, nil
}

type availabilityResponse struct {
	ArchivedSnapshots struct {
		Closest *Snapshot `json:"closest"`
	} `json:"archived_snapshots"`
}

// CheckerConfig controls availability queries.
type CheckerConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// Checker implements watch.SnapshotChecker against the availability API.
type Checker struct {
	cfg     CheckerConfig
	fetcher watch.Fetcher
	clock   watch.Clock
	logger  *zap.Logger
}

// NewChecker builds a Checker.
func NewChecker(cfg CheckerConfig, fetcher watch.Fetcher, clock watch.Clock, logger *zap.Logger) *Checker {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultAvailabilityEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultAvailabilityTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{cfg: cfg, fetcher: fetcher, clock: clock, logger: logger}
}

// RecentSnapshot reports whether target has a snapshot no older than maxAge.
// A stale snapshot still returns its URL. Query failures are logged and
// reported as (false, "").
func (c *Checker) RecentSnapshot(ctx context.Context, target string, maxAge time.Duration) (bool, string) {
	snap, err := c.closest(ctx, target)
	if err != nil {
		c.logger.Warn("❌ Snapshot check failed.", zap.String("url", target), zap.Error(err))
		return false, ""
	}
	if snap == nil || !snap.Available || snap.URL == "" {
		return false, ""
	}
	captured, err := snap.CapturedAt()
	if err != nil {
		c.logger.Warn("❌ Snapshot check failed.", zap.String("url", target), zap.Error(err))
		return false, ""
	}
	return c.clock.Now().Sub(captured) <= maxAge, snap.URL
}

func (c *Checker) closest(ctx context.Context, target string) (*Snapshot, error) {
	endpoint, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse availability endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("url", target)
	endpoint.RawQuery = q.Encode()

	resp, err := c.fetcher.Fetch(ctx, watch.FetchRequest{
		URL:     endpoint.String(),
		Timeout: c.cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("query availability: %w", err)
	}
	var body availabilityResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode availability: %w", err)
	}
	return body.ArchivedSnapshots.Closest, nil
}
