// Package main hosts the pagewatch entrypoint.
//
// Architecture overview:
//   - Monitor: internal/monitor.Loop fetches the configured page once, records its SHA-256 digest, then
//     re-fetches every interval. A failed initial fetch ends monitoring; later failures skip the cycle. When the
//     digest changes the loop posts a webhook message, publishes a change event when a topic is configured, and
//     archives the configured targets.
//   - Fetching: all outbound HTTP goes through the Colly fetcher. With monitor.headless set, the monitored page is
//     rendered by the Chromedp fetcher instead; init failure falls back to plain HTTP.
//   - Archiving: internal/archive submits each target to the Wayback save endpoint, trips a shared cooldown gate on
//     429/503 or transport failure, and verifies the result with the availability API.
//   - Log viewer: zap tees every entry into a bounded ring buffer which internal/api renders at / and /index.html.
//   - Configuration & plumbing: Viper populates config from env/files and go-playground/validator checks it; zap
//     provides structured logging with an optional lumberjack file; Prometheus metrics are exported on a separate
//     listener when server.metrics_port is set.
//
// Quick checklist:
//   - Configure env vars: PAGEWATCH_MONITOR_URL, DISCORD_WEBHOOK_URL (or PAGEWATCH_NOTIFY_WEBHOOK_URL), PORT (or
//     PAGEWATCH_SERVER_PORT), PAGEWATCH_ARCHIVE_TARGETS as a comma list, and pubsub project/topic when change
//     events should be published.
//   - Run locally: go run ./cmd/pagewatch --config config.yaml (or rely solely on env overrides).
//   - The process reacts to SIGINT/SIGTERM by stopping the monitor and draining the HTTP listeners.
package main
