package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Cron       CronConfig       `mapstructure:"cron"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Elasticity ElasticityConfig `mapstructure:"elasticity"`
	Demand     DemandConfig     `mapstructure:"demand"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr    string   `mapstructure:"http_addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// CronConfig holds robfig/cron specs (seconds field first).
type CronConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	PriceBatch         string `mapstructure:"price_batch"`
	ElasticityTraining string `mapstructure:"elasticity_training"`
	DemandTraining     string `mapstructure:"demand_training"`
	Monitoring         string `mapstructure:"monitoring"`
	FeatureETL         string `mapstructure:"feature_etl"`
}

type PricingConfig struct {
	RangeLower             float64       `mapstructure:"range_lower"`
	RangeUpper             float64       `mapstructure:"range_upper"`
	GridSteps              int           `mapstructure:"grid_steps"`
	DefaultElasticity      float64       `mapstructure:"default_elasticity"`
	DefaultMinMarginPct    float64       `mapstructure:"default_min_margin_pct"`
	DefaultMaxDiscountPct  float64       `mapstructure:"default_max_discount_pct"`
	DefaultMaxDailyMovePct float64       `mapstructure:"default_max_daily_move_pct"`
	DefaultVendorID        string        `mapstructure:"default_vendor_id"`
	BatchConcurrency       int           `mapstructure:"batch_concurrency"`
	KeyLockTTL             time.Duration `mapstructure:"key_lock_ttl"`
}

type ElasticityConfig struct {
	MinObs              int           `mapstructure:"min_obs"`
	MinUniquePrices     int           `mapstructure:"min_unique_prices"`
	DriftWindowDays     int           `mapstructure:"drift_window_days"`
	DriftDataWindowDays int           `mapstructure:"drift_data_window_days"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
}

type DemandConfig struct {
	Predictor     string        `mapstructure:"predictor"`
	ModelPath     string        `mapstructure:"model_path"`
	RemoteURL     string        `mapstructure:"remote_url"`
	RemoteTimeout time.Duration `mapstructure:"remote_timeout"`
	Trees         int           `mapstructure:"trees"`
	LearningRate  float64       `mapstructure:"learning_rate"`
	MaxDepth      int           `mapstructure:"max_depth"`
	MinLeaf       int           `mapstructure:"min_leaf"`
	Subsample     float64       `mapstructure:"subsample"`
	Colsample     float64       `mapstructure:"colsample"`
	Seed          int64         `mapstructure:"seed"`
}

type CacheConfig struct {
	Backend       string `mapstructure:"backend"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

type AlertsConfig struct {
	Enabled                  bool    `mapstructure:"enabled"`
	WebhookURL               string  `mapstructure:"webhook_url"`
	TelegramBotToken         string  `mapstructure:"telegram_bot_token"`
	TelegramChatID           string  `mapstructure:"telegram_chat_id"`
	MaxMAPE                  float64 `mapstructure:"max_mape"`
	MinR2                    float64 `mapstructure:"min_r2"`
	MaxElasticityDrift       float64 `mapstructure:"max_elasticity_drift"`
	MinSuggestionCoveragePct float64 `mapstructure:"min_suggestion_coverage_pct"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.price_batch", "0 30 2 * * *")
	v.SetDefault("cron.elasticity_training", "0 0 1 * * 0")
	v.SetDefault("cron.demand_training", "0 0 3 * * 0")
	v.SetDefault("cron.monitoring", "0 0 4 * * *")
	v.SetDefault("cron.feature_etl", "0 0 1 * * *")

	v.SetDefault("pricing.range_lower", 0.7)
	v.SetDefault("pricing.range_upper", 1.3)
	v.SetDefault("pricing.grid_steps", 21)
	v.SetDefault("pricing.default_elasticity", -1.5)
	v.SetDefault("pricing.default_min_margin_pct", 10.0)
	v.SetDefault("pricing.default_max_discount_pct", 50.0)
	v.SetDefault("pricing.default_max_daily_move_pct", 20.0)
	v.SetDefault("pricing.default_vendor_id", "default_vendor")
	v.SetDefault("pricing.batch_concurrency", 8)
	v.SetDefault("pricing.key_lock_ttl", "30s")

	v.SetDefault("elasticity.min_obs", 10)
	v.SetDefault("elasticity.min_unique_prices", 3)
	v.SetDefault("elasticity.drift_window_days", 30)
	v.SetDefault("elasticity.drift_data_window_days", 0)
	v.SetDefault("elasticity.cache_ttl", "10m")

	v.SetDefault("demand.predictor", "local")
	v.SetDefault("demand.model_path", "./models_artifacts/demand/demand_model.json")
	v.SetDefault("demand.remote_url", "")
	v.SetDefault("demand.remote_timeout", "5s")
	v.SetDefault("demand.trees", 200)
	v.SetDefault("demand.learning_rate", 0.05)
	v.SetDefault("demand.max_depth", 4)
	v.SetDefault("demand.min_leaf", 5)
	v.SetDefault("demand.subsample", 0.8)
	v.SetDefault("demand.colsample", 0.8)
	v.SetDefault("demand.seed", 42)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.key_prefix", "pricing:")

	// Alerts stay off until a channel is configured.
	v.SetDefault("alerts.enabled", false)
	v.SetDefault("alerts.max_mape", 0.5)
	v.SetDefault("alerts.min_r2", 0.0)
	v.SetDefault("alerts.max_elasticity_drift", 1.0)
	v.SetDefault("alerts.min_suggestion_coverage_pct", 50.0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "pricing")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "pricing")
	v.SetDefault("tracing.sample_ratio", 0.1)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
