package config

import (
	"time"

	redisclient "github.com/vietddude/streamguard/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig            `yaml:"server"`
	Logging   LoggingConfig           `yaml:"logging"`
	Redis     redisclient.Config      `yaml:"redis"`
	Pool      PoolConfig              `yaml:"pool"`
	Policies  map[string]PolicyConfig `yaml:"policies"`
	Retry     PathConfig              `yaml:"retry"`
	Recovery  PathConfig              `yaml:"recovery"`
	Cache     CacheConfig             `yaml:"cache"`
	Resources []ResourceConfig        `yaml:"resources"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// PoolConfig holds connection pool limits and maintenance intervals.
type PoolConfig struct {
	MaxConnections      int            `yaml:"max_connections"`
	MaxPerType          map[string]int `yaml:"max_per_type"`
	DefaultMaxPerType   int            `yaml:"default_max_per_type"`
	IdleTimeout         time.Duration  `yaml:"idle_timeout"`
	MaxAge              time.Duration  `yaml:"max_age"`
	HealthCheckInterval time.Duration  `yaml:"health_check_interval"`
	HealthCheckTimeout  time.Duration  `yaml:"health_check_timeout"`
	ReapInterval        time.Duration  `yaml:"reap_interval"`
	MaxHealthRetries    int            `yaml:"max_health_retries"`
	BreakerThreshold    int            `yaml:"breaker_threshold"`
	BreakerResetTimeout time.Duration  `yaml:"breaker_reset_timeout"`
	CreateTimeout       time.Duration  `yaml:"create_timeout"`
}

// PolicyConfig overrides fields of one category's recovery policy. Omitted
// fields keep the built-in value.
type PolicyConfig struct {
	Strategy   *string        `yaml:"strategy"`
	MaxRetries *int           `yaml:"max_retries"`
	BaseDelay  *time.Duration `yaml:"base_delay"`
	MaxDelay   *time.Duration `yaml:"max_delay"`
	Timeout    *time.Duration `yaml:"timeout"`
	Jitter     *bool          `yaml:"jitter"`
}

// PathConfig holds overrides that apply only to the retry engine or only
// to the recovery orchestrator, layered on the shared policies.
type PathConfig struct {
	Policies map[string]PolicyConfig `yaml:"policies"`
}

// CacheConfig holds cache bounds.
type CacheConfig struct {
	MaxSize           int64         `yaml:"max_size"`
	MaxItems          int           `yaml:"max_items"`
	DefaultTTL        time.Duration `yaml:"default_ttl"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	CompressThreshold int           `yaml:"compress_threshold"` // negative disables
}

// ResourceConfig names a remote resource the pool can connect to.
type ResourceConfig struct {
	Name       string        `yaml:"name"`
	Type       string        `yaml:"type"` // http, grpc, tcp
	URL        string        `yaml:"url"`
	HealthPath string        `yaml:"health_path"`
	Timeout    time.Duration `yaml:"timeout"`
}
