package i18nhttp

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
)

// Configuration mirrors the options surface for environment-driven setups.
type Configuration struct {
	LoadPath string `envDefault:"/locales/{{lng}}/{{ns}}.json" env:"I18N_LOAD_PATH" yaml:"load_path"`
	AddPath  string `envDefault:""                             env:"I18N_ADD_PATH"  yaml:"add_path"`

	RequestTimeout time.Duration `envDefault:"30s" env:"I18N_REQUEST_TIMEOUT" yaml:"request_timeout"`

	CacheEnabled       bool          `envDefault:"false" env:"I18N_CACHE_ENABLED"        yaml:"cache_enabled"`
	StaleTime          time.Duration `envDefault:"5m"    env:"I18N_STALE_TIME"           yaml:"stale_time"`
	CacheTime          time.Duration `envDefault:"10m"   env:"I18N_CACHE_TIME"           yaml:"cache_time"`
	Retries            int           `envDefault:"3"     env:"I18N_RETRY_COUNT"          yaml:"retry_count"`
	RefetchOnFocus     bool          `envDefault:"false" env:"I18N_REFETCH_ON_FOCUS"     yaml:"refetch_on_focus"`
	RefetchOnReconnect bool          `envDefault:"true"  env:"I18N_REFETCH_ON_RECONNECT" yaml:"refetch_on_reconnect"`

	ReloadInterval time.Duration `envDefault:"0" env:"I18N_RELOAD_INTERVAL" yaml:"reload_interval"`
}

// ConfigFromEnv convenience method to process configs.
func ConfigFromEnv[T any]() (T, error) {
	return env.ParseAs[T]()
}

// WithConfig applies an environment-derived configuration. Options placed
// after it still override individual fields.
func WithConfig(cfg Configuration) Option {
	return func(_ context.Context, b *Backend) {
		if cfg.LoadPath != "" {
			b.opts.LoadPath = Static(cfg.LoadPath)
		}
		if cfg.AddPath != "" {
			b.opts.AddPath = Static(cfg.AddPath)
		}
		if cfg.RequestTimeout > 0 {
			b.opts.Transport = Static(TransportOptions{Timeout: cfg.RequestTimeout})
		}

		b.opts.Cache.Enabled = cfg.CacheEnabled
		b.opts.Cache.StaleTime = cfg.StaleTime
		b.opts.Cache.CacheTime = cfg.CacheTime
		b.opts.Cache.Retries = cfg.Retries
		b.opts.Cache.RefetchOnFocus = cfg.RefetchOnFocus
		b.opts.Cache.RefetchOnReconnect = cfg.RefetchOnReconnect

		b.opts.ReloadInterval = cfg.ReloadInterval
	}
}
