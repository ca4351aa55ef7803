// Package config loads application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envFile = "config/.env"

// NewConfig loads configuration from environment using viper with typed defaults and validation.
// A non-empty file is read first; environment variables override it.
func NewConfig(file string) (*Config, error) {
	v := viper.New()
	if envMap, err := godotenv.Read(envFile); err == nil {
		for k, v := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, v)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	// A command runs fetches and pushes inline.
	v.SetDefault("http.request_timeout", 10*time.Minute)

	v.SetDefault("store.backend", StorePostgres)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.db_name", "prbot")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.migrations_dir", "db/migrations")
	v.SetDefault("postgres.migrate_timeout", 10*time.Second)
	v.SetDefault("postgres.query_timeout", 2*time.Second)
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)

	v.SetDefault("sqlite.path", "prbot.db")

	v.SetDefault("bot.login", "duke")
	v.SetDefault("bot.name", "J. Duke")
	v.SetDefault("bot.email", "duke@openjdk.org")

	v.SetDefault("integration.check_name", "jcheck")
	v.SetDefault("integration.lock_ttl", 10*time.Minute)
	v.SetDefault("integration.ignore_stale_reviews", false)
	v.SetDefault("integration.min_reviewers", 1)

	v.SetDefault("backport.trunk", "master")
	v.SetDefault("backport.branch_prefix", "backport-")
	v.SetDefault("backport.existing_branch_policy", BranchPolicySuffix)

	v.SetDefault("scratch.dir", filepath.Join(os.TempDir(), "prbot"))

	v.SetDefault("census.path", "config/census.yaml")
	v.SetDefault("census.watch", true)

	v.SetDefault("forge.kind", "github")
	v.SetDefault("forge.token", "")
	v.SetDefault("forge.base_url", "")
	v.SetDefault("forge.hostname", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.stdout", false)
	v.SetDefault("telemetry.otlp_endpoint", "")
}

func bindEnvs(v *viper.Viper) {
	keys := []string{
		"logging.level",
		"server.host",
		"server.port",
		"server.shutdown_timeout",
		"http.request_timeout",
		"store.backend",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.db_name",
		"postgres.ssl_mode",
		"postgres.migrations_dir",
		"postgres.migrate_timeout",
		"postgres.query_timeout",
		"postgres.max_conns",
		"postgres.min_conns",
		"sqlite.path",
		"bot.login",
		"bot.name",
		"bot.email",
		"integration.check_name",
		"integration.lock_ttl",
		"integration.ignore_stale_reviews",
		"integration.min_reviewers",
		"backport.trunk",
		"backport.branch_prefix",
		"backport.existing_branch_policy",
		"scratch.dir",
		"census.path",
		"census.watch",
		"forge.kind",
		"forge.token",
		"forge.base_url",
		"forge.hostname",
		"telemetry.enabled",
		"telemetry.stdout",
		"telemetry.otlp_endpoint",
	}

	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}
