// Package config loads and validates monitor configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PAGEWATCH_MONITOR_URL.
const EnvPrefix = "PAGEWATCH"

// DefaultArchiveTargets are archived, in order, after every change.
var DefaultArchiveTargets = []string{
	"https://sheets.artistgrid.cx/artists.html",
	"https://sheets.artistgrid.cx/",
	"https://artistgrid.cx/",
}

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Capture CaptureConfig `mapstructure:"capture"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the log viewer and metrics listeners.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"gt=0,lte=65535"`
	// MetricsPort serves /metrics on a separate listener; 0 disables it.
	MetricsPort int `mapstructure:"metrics_port" validate:"gte=0,lte=65535"`
}

// MonitorConfig governs polling of the monitored page.
type MonitorConfig struct {
	URL          string        `mapstructure:"url" validate:"required,url"`
	Interval     time.Duration `mapstructure:"interval" validate:"gt=0"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
	UserAgent    string        `mapstructure:"user_agent"`
	Selector     string        `mapstructure:"selector"`
	Headless     bool          `mapstructure:"headless"`
	// AutoHeadless switches to the browser once the page looks client-rendered.
	AutoHeadless bool          `mapstructure:"auto_headless"`
	NavTimeout   time.Duration `mapstructure:"nav_timeout" validate:"gt=0"`
}

// NotifyConfig configures webhook delivery.
type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url" validate:"omitempty,url"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxLength  int           `mapstructure:"max_length" validate:"gt=0"`
}

// ArchiveConfig configures Wayback submissions and verification.
type ArchiveConfig struct {
	Targets              []string      `mapstructure:"targets" validate:"dive,url"`
	SaveEndpoint         string        `mapstructure:"save_endpoint" validate:"required,url"`
	AvailabilityEndpoint string        `mapstructure:"availability_endpoint" validate:"required,url"`
	UserAgent            string        `mapstructure:"user_agent" validate:"required"`
	SubmitTimeout        time.Duration `mapstructure:"submit_timeout" validate:"gt=0"`
	AvailabilityTimeout  time.Duration `mapstructure:"availability_timeout" validate:"gt=0"`
	SettleDelay          time.Duration `mapstructure:"settle_delay" validate:"gte=0"`
	SnapshotMaxAge       time.Duration `mapstructure:"snapshot_max_age" validate:"gt=0"`
	Cooldown             time.Duration `mapstructure:"cooldown" validate:"gt=0"`
	// RequestsPerMinute paces submissions per host; 0 disables pacing.
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" validate:"gte=0"`
}

// Capture backends.
const (
	CaptureNone  = "none"
	CaptureLocal = "local"
	CaptureGCS   = "gcs"
)

// CaptureConfig selects where changed page bodies are stored.
type CaptureConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=none local gcs"`
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// PubSubConfig holds the optional change event topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Enabled reports whether change events should be published.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.TopicName != ""
}

// LoggingConfig selects zap features and sinks.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb" validate:"gt=0"`
	MaxBackups  int    `mapstructure:"max_backups" validate:"gte=0"`
	BufferSize  int    `mapstructure:"buffer_size" validate:"gt=0"`
}

// Load builds a Config from an optional file plus environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindAliases(v); err != nil {
		return Config{}, err
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Archive.Targets = cleanList(cfg.Archive.Targets)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// bindAliases maps the conventional unprefixed variables.
func bindAliases(v *viper.Viper) error {
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return fmt.Errorf("bind server.port: %w", err)
	}
	if err := v.BindEnv("notify.webhook_url", EnvPrefix+"_NOTIFY_WEBHOOK_URL", "DISCORD_WEBHOOK_URL"); err != nil {
		return fmt.Errorf("bind notify.webhook_url: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.metrics_port", 0)
	v.SetDefault("monitor.url", "https://sheets.artistgrid.cx/artists.html")
	v.SetDefault("monitor.interval", 600*time.Second)
	v.SetDefault("monitor.fetch_timeout", 10*time.Second)
	v.SetDefault("monitor.user_agent", "pagewatch/0.1")
	v.SetDefault("monitor.selector", "")
	v.SetDefault("monitor.headless", false)
	v.SetDefault("monitor.auto_headless", false)
	v.SetDefault("monitor.nav_timeout", 45*time.Second)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.timeout", 20*time.Second)
	v.SetDefault("notify.max_length", 1900)
	v.SetDefault("archive.targets", DefaultArchiveTargets)
	v.SetDefault("archive.save_endpoint", "https://web.archive.org/save/")
	v.SetDefault("archive.availability_endpoint", "https://archive.org/wayback/available")
	v.SetDefault("archive.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) "+
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("archive.submit_timeout", 60*time.Second)
	v.SetDefault("archive.availability_timeout", 30*time.Second)
	v.SetDefault("archive.settle_delay", 5*time.Second)
	v.SetDefault("archive.snapshot_max_age", time.Hour)
	v.SetDefault("archive.cooldown", time.Hour)
	v.SetDefault("archive.requests_per_minute", 0)
	v.SetDefault("capture.backend", CaptureNone)
	v.SetDefault("capture.dir", "captures")
	v.SetDefault("capture.bucket", "")
	v.SetDefault("capture.prefix", "pages")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.buffer_size", 1000)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	})
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return fmt.Errorf("validate config: %w", err)
	}
	switch {
	case c.Capture.Backend == CaptureLocal && c.Capture.Dir == "":
		return errors.New("capture.dir: is required for the local backend")
	case c.Capture.Backend == CaptureGCS && c.Capture.Bucket == "":
		return errors.New("capture.bucket: is required for the gcs backend")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return errors.New("pubsub: project_id and topic_name must be set together")
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s: is required", field)
	case "url":
		return fmt.Errorf("%s: must be an absolute URL, got %q", field, fe.Value())
	case "gt":
		return fmt.Errorf("%s: must be > %s", field, fe.Param())
	case "gte":
		return fmt.Errorf("%s: must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Errorf("%s: must be <= %s", field, fe.Param())
	case "oneof":
		return fmt.Errorf("%s: must be one of [%s]", field, fe.Param())
	default:
		return fmt.Errorf("%s: failed %s validation", field, fe.Tag())
	}
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
