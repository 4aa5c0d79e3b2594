// Package webhook posts change notifications to a Discord-style webhook.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/metrics"
	"github.com/JakeFAU/pagewatch/internal/watch"
)

const (
	// DefaultMaxLength is the content limit applied before sending.
	DefaultMaxLength = 1900
	defaultTimeout   = 20 * time.Second
)

// Config controls webhook delivery.
type Config struct {
	URL       string
	Timeout   time.Duration
	MaxLength int
}

// Notifier implements watch.Notifier. Delivery failures are logged and never
// returned; there are no retries.
type Notifier struct {
	cfg     Config
	fetcher watch.Fetcher
	logger  *zap.Logger
}

type payload struct {
	Content string `json:"content"`
}

// New builds a Notifier that sends through fetcher.
func New(cfg Config, fetcher watch.Fetcher, logger *zap.Logger) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{cfg: cfg, fetcher: fetcher, logger: logger}
}

// Notify sends message, truncated to the configured length. Without a
// configured URL it only logs a warning.
func (n *Notifier) Notify(ctx context.Context, message string) {
	if n.cfg.URL == "" {
		n.logger.Warn("⚠️ Webhook URL not set.")
		metrics.ObserveNotification("skipped")
		return
	}
	body, err := json.Marshal(payload{Content: Truncate(message, n.cfg.MaxLength)})
	if err != nil {
		n.logger.Error("Webhook payload encoding failed.", zap.Error(err))
		return
	}
	resp, err := n.fetcher.Fetch(ctx, watch.FetchRequest{
		URL:     n.cfg.URL,
		Method:  http.MethodPost,
		Headers: http.Header{"Content-Type": {"application/json"}},
		Body:    body,
		Timeout: n.cfg.Timeout,
	})
	if err != nil {
		n.logger.Error("❌ Error sending message.", zap.Error(err))
		metrics.ObserveNotification("failed")
		return
	}
	n.logger.Info("✅ Webhook message sent.", zap.Int("status", resp.StatusCode))
	metrics.ObserveNotification("sent")
}

// Truncate returns at most limit runes of s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
