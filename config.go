package observe

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel/metric"
	"gopkg.in/yaml.v3"

	"github.com/AnatoleLucet/observe/internal"
)

var validate = validator.New()

var ErrInvalidConfig = errors.New("invalid config")

// TieBreak decides which write wins when reactions of the same wave share an output.
type TieBreak = internal.TieBreak

const (
	TieBreakRegistration = internal.TieBreakRegistration
	TieBreakCompletion   = internal.TieBreakCompletion
)

// Config holds the tunables of an app. The zero value of a field means its default.
type Config struct {
	// "registration" (default) or "completion"
	TieBreak string `yaml:"tie_break" validate:"omitempty,oneof=registration completion"`

	// 0 waits for suspending bodies forever
	TaskTimeout time.Duration `yaml:"task_timeout" validate:"min=0"`

	MaxCascadeDepth int `yaml:"max_cascade_depth" validate:"omitempty,min=1"`

	// recent callback errors kept for App.Errors, 0 keeps none
	ErrorHistory int `yaml:"error_history" validate:"min=0"`
}

func DefaultConfig() Config {
	return Config{
		TieBreak:        TieBreakRegistration.String(),
		MaxCascadeDepth: internal.DefaultMaxCascadeDepth,
		ErrorHistory:    32,
	}
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) tieBreak() TieBreak {
	if c.TieBreak == TieBreakCompletion.String() {
		return TieBreakCompletion
	}
	return TieBreakRegistration
}

// LoadConfig reads a YAML file over the defaults, applies OBSERVE_* environment
// overrides and validates the result. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	if err := loadConfigFromEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func loadConfigFromEnv(cfg *Config) error {
	if v := os.Getenv("OBSERVE_TIE_BREAK"); v != "" {
		cfg.TieBreak = v
	}
	if v := os.Getenv("OBSERVE_TASK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: OBSERVE_TASK_TIMEOUT: %w", ErrInvalidConfig, err)
		}
		cfg.TaskTimeout = d
	}
	if v := os.Getenv("OBSERVE_MAX_CASCADE_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: OBSERVE_MAX_CASCADE_DEPTH: %w", ErrInvalidConfig, err)
		}
		cfg.MaxCascadeDepth = n
	}
	if v := os.Getenv("OBSERVE_ERROR_HISTORY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: OBSERVE_ERROR_HISTORY: %w", ErrInvalidConfig, err)
		}
		cfg.ErrorHistory = n
	}
	return nil
}

type options struct {
	config   Config
	logger   *slog.Logger
	clock    clockz.Clock
	provider metric.MeterProvider
}

type Option func(o *options)

// WithConfig replaces the whole config. Options given after it still apply.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock sets the clock used for firing timestamps and task timeouts.
func WithClock(clock clockz.Clock) Option {
	return func(o *options) { o.clock = clock }
}

func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) { o.provider = provider }
}

func WithTieBreak(t TieBreak) Option {
	return func(o *options) { o.config.TieBreak = t.String() }
}

func WithTaskTimeout(d time.Duration) Option {
	return func(o *options) { o.config.TaskTimeout = d }
}

func WithMaxCascadeDepth(n int) Option {
	return func(o *options) { o.config.MaxCascadeDepth = n }
}

func WithErrorHistory(n int) Option {
	return func(o *options) { o.config.ErrorHistory = n }
}

func (o *options) settings() internal.Settings {
	return internal.Settings{
		Logger:          o.logger,
		Clock:           o.clock,
		MeterProvider:   o.provider,
		TieBreak:        o.config.tieBreak(),
		TaskTimeout:     o.config.TaskTimeout,
		MaxCascadeDepth: o.config.MaxCascadeDepth,
		ErrorHistory:    o.config.ErrorHistory,
	}
}
