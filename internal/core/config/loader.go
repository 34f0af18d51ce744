package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/streamguard/internal/core/domain"
	"github.com/vietddude/streamguard/internal/core/policy"
	redisclient "github.com/vietddude/streamguard/internal/infra/redis"
	"github.com/vietddude/streamguard/internal/infra/transport"
	"github.com/vietddude/streamguard/internal/resilience/cache"
	"github.com/vietddude/streamguard/internal/resilience/pool"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding environment variables first.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	var cfg AppConfig
	cfg.applyDefaults()
	return &cfg
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = redisclient.DefaultChannel
	}

	pd := pool.DefaultConfig()
	p := &c.Pool
	if p.MaxConnections == 0 {
		p.MaxConnections = pd.MaxConnections
	}
	if p.DefaultMaxPerType == 0 {
		p.DefaultMaxPerType = pd.DefaultMaxPerType
	}
	if p.IdleTimeout == 0 {
		p.IdleTimeout = pd.IdleTimeout
	}
	if p.MaxAge == 0 {
		p.MaxAge = pd.MaxAge
	}
	if p.HealthCheckInterval == 0 {
		p.HealthCheckInterval = pd.HealthCheckInterval
	}
	if p.HealthCheckTimeout == 0 {
		p.HealthCheckTimeout = pd.HealthCheckTimeout
	}
	if p.ReapInterval == 0 {
		p.ReapInterval = pd.ReapInterval
	}
	if p.MaxHealthRetries == 0 {
		p.MaxHealthRetries = pd.MaxHealthRetries
	}
	if p.BreakerThreshold == 0 {
		p.BreakerThreshold = pd.BreakerThreshold
	}
	if p.BreakerResetTimeout == 0 {
		p.BreakerResetTimeout = pd.BreakerResetTimeout
	}
	if p.CreateTimeout == 0 {
		p.CreateTimeout = pd.CreateTimeout
	}

	cd := cache.DefaultConfig()
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = cd.MaxSize
	}
	if c.Cache.MaxItems == 0 {
		c.Cache.MaxItems = cd.MaxItems
	}
	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = cd.DefaultTTL
	}
	if c.Cache.SweepInterval == 0 {
		c.Cache.SweepInterval = cd.SweepInterval
	}
	if c.Cache.CompressThreshold == 0 {
		c.Cache.CompressThreshold = cd.CompressThreshold
	}

	for i := range c.Resources {
		if c.Resources[i].Timeout == 0 {
			c.Resources[i].Timeout = 10 * time.Second
		}
	}
}

// Validate reports every configuration error found.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Pool.MaxConnections < 0 || c.Pool.DefaultMaxPerType < 0 {
		errs = append(errs, errors.New("pool limits must not be negative"))
	}
	if c.Cache.MaxSize < 0 || c.Cache.MaxItems < 0 {
		errs = append(errs, errors.New("cache limits must not be negative"))
	}

	for section, m := range map[string]map[string]PolicyConfig{
		"policies":          c.Policies,
		"retry.policies":    c.Retry.Policies,
		"recovery.policies": c.Recovery.Policies,
	} {
		if _, err := toOverrides(m); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}

	seen := make(map[string]bool)
	for i, r := range c.Resources {
		switch {
		case r.Name == "":
			errs = append(errs, fmt.Errorf("resources[%d]: name is required", i))
		case seen[r.Name]:
			errs = append(errs, fmt.Errorf("resources[%d]: duplicate name %q", i, r.Name))
		}
		seen[r.Name] = true

		switch r.Type {
		case transport.TypeHTTP, transport.TypeGRPC, transport.TypeTCP:
		default:
			errs = append(errs, fmt.Errorf("resources[%d]: unsupported type %q", i, r.Type))
		}
		if strings.TrimSpace(r.URL) == "" {
			errs = append(errs, fmt.Errorf("resources[%d]: url is required", i))
		}
	}

	return errors.Join(errs...)
}

func toOverrides(m map[string]PolicyConfig) (map[domain.ErrorCategory]policy.Override, error) {
	out := make(map[domain.ErrorCategory]policy.Override, len(m))
	for name, pc := range m {
		cat, err := domain.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		o := policy.Override{
			MaxRetries: pc.MaxRetries,
			BaseDelay:  pc.BaseDelay,
			MaxDelay:   pc.MaxDelay,
			Timeout:    pc.Timeout,
			Jitter:     pc.Jitter,
		}
		if pc.Strategy != nil {
			st, err := policy.ParseStrategy(*pc.Strategy)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			o.Strategy = &st
		}
		if pc.MaxRetries != nil && *pc.MaxRetries < 0 {
			return nil, fmt.Errorf("%s: max_retries must not be negative", name)
		}
		out[cat] = o
	}
	return out, nil
}

// SharedPolicies builds the policy table both recovery paths start from.
func (c *AppConfig) SharedPolicies() (*policy.Table, error) {
	o, err := toOverrides(c.Policies)
	if err != nil {
		return nil, err
	}
	return policy.NewTable(o), nil
}

// RetryPolicies returns the table used by the retry engine.
func (c *AppConfig) RetryPolicies() (*policy.Table, error) {
	return c.pathPolicies(c.Retry)
}

// RecoveryPolicies returns the table used by the recovery orchestrator.
func (c *AppConfig) RecoveryPolicies() (*policy.Table, error) {
	return c.pathPolicies(c.Recovery)
}

func (c *AppConfig) pathPolicies(p PathConfig) (*policy.Table, error) {
	shared, err := c.SharedPolicies()
	if err != nil {
		return nil, err
	}
	o, err := toOverrides(p.Policies)
	if err != nil {
		return nil, err
	}
	if len(o) == 0 {
		return shared, nil
	}
	return shared.With(o), nil
}

// PoolSettings converts the pool section.
func (c *AppConfig) PoolSettings() pool.Config {
	p := c.Pool
	return pool.Config{
		MaxConnections:      p.MaxConnections,
		MaxPerType:          p.MaxPerType,
		DefaultMaxPerType:   p.DefaultMaxPerType,
		IdleTimeout:         p.IdleTimeout,
		MaxAge:              p.MaxAge,
		HealthCheckInterval: p.HealthCheckInterval,
		HealthCheckTimeout:  p.HealthCheckTimeout,
		ReapInterval:        p.ReapInterval,
		MaxHealthRetries:    p.MaxHealthRetries,
		BreakerThreshold:    p.BreakerThreshold,
		BreakerResetTimeout: p.BreakerResetTimeout,
		CreateTimeout:       p.CreateTimeout,
	}
}

// CacheSettings converts the cache section.
func (c *AppConfig) CacheSettings() cache.Config {
	return cache.Config{
		MaxSize:           c.Cache.MaxSize,
		MaxItems:          c.Cache.MaxItems,
		DefaultTTL:        c.Cache.DefaultTTL,
		SweepInterval:     c.Cache.SweepInterval,
		CompressThreshold: c.Cache.CompressThreshold,
	}
}

// Endpoints converts the resources section.
func (c *AppConfig) Endpoints() []transport.Endpoint {
	out := make([]transport.Endpoint, 0, len(c.Resources))
	for _, r := range c.Resources {
		out = append(out, transport.Endpoint{
			Name:       r.Name,
			Type:       r.Type,
			URL:        r.URL,
			HealthPath: r.HealthPath,
			Timeout:    r.Timeout,
		})
	}
	return out
}
