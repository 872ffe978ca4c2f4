package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Session   SessionConfig   `koanf:"session"`
	Vault     VaultConfig     `koanf:"vault"`
	Agents    AgentsConfig    `koanf:"agents"`
}

type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	RateLimit    float64       `koanf:"rate_limit"` // requests per second, 0 disables
	RateBurst    int           `koanf:"rate_burst"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp, none
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type SessionConfig struct {
	AdminToken string        `koanf:"admin_token"`
	TTL        time.Duration `koanf:"ttl"`
}

type VaultConfig struct {
	RevealEnabled bool `koanf:"reveal_enabled"`
}

type AgentsConfig struct {
	SeedFile string `koanf:"seed_file"`
}

// Load reads configuration from defaults, then an optional YAML file, then
// TRACELENS_-prefixed environment variables. Sections are single words, so
// the first underscore separates section from key and later ones survive
// (TRACELENS_SESSION_ADMIN_TOKEN -> session.admin_token). Later layers
// override earlier ones.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("server.addr", ":8088")
	k.Set("server.read_timeout", "15s")
	k.Set("server.write_timeout", "30s")
	k.Set("server.rate_limit", 0.0)
	k.Set("server.rate_burst", 20)
	k.Set("database.path", "tracelens.db")
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("telemetry.exporter", "stdout")
	k.Set("telemetry.otlp_endpoint", "localhost:4317")
	k.Set("telemetry.otlp_insecure", true)
	k.Set("session.ttl", "12h")
	k.Set("vault.reveal_enabled", false)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("TRACELENS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "TRACELENS_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
