package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Email     EmailSettings     `mapstructure:"email"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisSettings configures the key-value store connection. KeyPrefix is the
// process-wide namespace prepended to every key so multiple applications can
// share one backing store.
type RedisSettings struct {
	Enabled           bool          `mapstructure:"enabled"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	KeyPrefix         string        `mapstructure:"key_prefix"`
	DefaultTTL        time.Duration `mapstructure:"default_ttl"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval"`
	DisconnectTimeout time.Duration `mapstructure:"disconnect_timeout"`
}

type JWTSettings struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// RateLimitSettings configures fixed-window limits per endpoint group.
type RateLimitSettings struct {
	WindowDuration          time.Duration `mapstructure:"window_duration"`
	DefaultMaxRequests      int           `mapstructure:"default_max_requests"`
	LoginMaxAttempts        int           `mapstructure:"login_max_attempts"`
	VerificationMaxRequests int           `mapstructure:"verification_max_requests"`
}

type EmailSettings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// KafkaSettings configures the event producer. An empty broker list selects
// the logging stub publisher.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type TelemetrySettings struct {
	MetricsPort int `mapstructure:"metrics_port"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("MTE")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"redis.enabled",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.key_prefix",
		"redis.default_ttl",
		"redis.reconnect_interval",
		"redis.disconnect_timeout",
		"jwt.secret",
		"jwt.issuer",
		"jwt.token_ttl",
		"rate_limit.window_duration",
		"rate_limit.default_max_requests",
		"rate_limit.login_max_attempts",
		"rate_limit.verification_max_requests",
		"email.host",
		"email.port",
		"email.user",
		"email.password",
		"email.from",
		"kafka.brokers",
		"kafka.topic_prefix",
		"telemetry.metrics_port",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "mte-core")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 3000)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "mte")
	v.SetDefault("postgres.password", "mte_password")
	v.SetDefault("postgres.database", "mtexpress")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.key_prefix", "mte:")
	v.SetDefault("redis.default_ttl", "1h")
	v.SetDefault("redis.reconnect_interval", "3s")
	v.SetDefault("redis.disconnect_timeout", "1s")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "mte-core")
	v.SetDefault("jwt.token_ttl", "2h")

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.default_max_requests", 10)
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.verification_max_requests", 3)

	v.SetDefault("email.host", "smtp.gmail.com")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.user", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "mte")

	v.SetDefault("telemetry.metrics_port", 9090)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "MTE_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
