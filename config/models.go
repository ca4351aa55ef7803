package config

import (
	"errors"
	"fmt"
	"time"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Existing backport branch policies.
const (
	BranchPolicySuffix = "suffix"
	BranchPolicyFail   = "fail"
)

// Config holds application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Store       StoreConfig       `mapstructure:"store"`
	Postgres    PostgresConfig    `mapstructure:"postgres"`
	SQLite      SQLiteConfig      `mapstructure:"sqlite"`
	Bot         BotConfig         `mapstructure:"bot"`
	Integration IntegrationConfig `mapstructure:"integration"`
	Backport    BackportConfig    `mapstructure:"backport"`
	Scratch     ScratchConfig     `mapstructure:"scratch"`
	Census      CensusConfig      `mapstructure:"census"`
	Forge       ForgeConfig       `mapstructure:"forge"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// Validate ensures required fields are present.
func (c Config) Validate() error {
	if c.Server.Port == 0 {
		return errors.New("server.port is required")
	}
	switch c.Store.Backend {
	case StorePostgres:
		if c.Postgres.User == "" || c.Postgres.Password == "" || c.Postgres.DBName == "" {
			return errors.New("postgres credentials are required")
		}
		if c.Postgres.Host == "" {
			return errors.New("postgres.host is required")
		}
	case StoreSQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite.path is required")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	if c.Bot.Login == "" || c.Bot.Email == "" {
		return errors.New("bot.login and bot.email are required")
	}
	if c.Integration.CheckName == "" {
		return errors.New("integration.check_name is required")
	}
	if c.Integration.LockTTL <= 0 {
		return errors.New("integration.lock_ttl must be positive")
	}
	if c.Backport.Trunk == "" || c.Backport.BranchPrefix == "" {
		return errors.New("backport.trunk and backport.branch_prefix are required")
	}
	switch c.Backport.ExistingBranchPolicy {
	case BranchPolicySuffix, BranchPolicyFail:
	default:
		return fmt.Errorf("unknown backport.existing_branch_policy %q", c.Backport.ExistingBranchPolicy)
	}
	if c.Census.Path == "" {
		return errors.New("census.path is required")
	}
	if c.Forge.Kind != "github" {
		return fmt.Errorf("unsupported forge.kind %q", c.Forge.Kind)
	}
	return nil
}

// ServerAddr returns host:port for HTTP server binding.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ServerConfig contains HTTP server options.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HTTPConfig contains transport settings.
type HTTPConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoggingConfig contains logger preferences.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// StoreConfig selects the lock store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// PostgresConfig describes database connection parameters.
type PostgresConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"db_name"`
	SSLMode        string        `mapstructure:"ssl_mode"`
	MigrationsDir  string        `mapstructure:"migrations_dir"`
	MigrateTimeout time.Duration `mapstructure:"migrate_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
	MaxConns       int32         `mapstructure:"max_conns"`
	MinConns       int32         `mapstructure:"min_conns"`
}

// DSN returns a Postgres connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// SQLiteConfig describes the single-node lock store.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// BotConfig is the identity the workflows act as.
type BotConfig struct {
	Login string `mapstructure:"login"`
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

// IntegrationConfig tunes /integrate.
type IntegrationConfig struct {
	CheckName          string        `mapstructure:"check_name"`
	LockTTL            time.Duration `mapstructure:"lock_ttl"`
	IgnoreStaleReviews bool          `mapstructure:"ignore_stale_reviews"`
	MinReviewers       int           `mapstructure:"min_reviewers"`
}

// BackportConfig tunes /backport.
type BackportConfig struct {
	Trunk                string `mapstructure:"trunk"`
	BranchPrefix         string `mapstructure:"branch_prefix"`
	ExistingBranchPolicy string `mapstructure:"existing_branch_policy"`
}

// ScratchConfig locates per-invocation working copies.
type ScratchConfig struct {
	Dir string `mapstructure:"dir"`
}

// CensusConfig locates the contributor census.
type CensusConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// ForgeConfig selects and authenticates the code forge.
type ForgeConfig struct {
	Kind     string `mapstructure:"kind"`
	Token    string `mapstructure:"token"`
	BaseURL  string `mapstructure:"base_url"`
	Hostname string `mapstructure:"hostname"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Stdout       bool   `mapstructure:"stdout"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}
