package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SLACKGATE_"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Audit    AuditConfig    `koanf:"audit"`
	Slack    SlackConfig    `koanf:"slack"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type DatabaseConfig struct {
	URL            string `koanf:"url"`
	MigrationsPath string `koanf:"migrationspath"`
	MaxConns       int    `koanf:"maxconns"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type AuditConfig struct {
	Enabled         bool `koanf:"enabled"`
	BufferSize      int  `koanf:"buffersize"`
	BatchSize       int  `koanf:"batchsize"`
	FlushIntervalMS int  `koanf:"flushintervalms"`
}

// SlackConfig holds request verification settings. SigningSecret has no
// default; an empty value fails verifier construction at startup.
type SlackConfig struct {
	SigningSecret    string `koanf:"signingsecret"`
	MaxAgeSeconds    int    `koanf:"maxageseconds"`
	SignatureVersion string `koanf:"signatureversion"`
	EventsPath       string `koanf:"eventspath"`
	MaxBodyBytes     int64  `koanf:"maxbodybytes"`
}

func Load(configPaths ...string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	_ = k.Load(confmap.Provider(map[string]any{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"database.maxconns":       10,
		"database.migrationspath": "migrations",
		"log.level":               "info",
		"log.format":              "json",
		"audit.enabled":           true,
		"audit.buffersize":        4096,
		"audit.batchsize":         100,
		"audit.flushintervalms":   500,
		"slack.maxageseconds":     300,
		"slack.signatureversion":  "v1",
		"slack.eventspath":        "/slack/events",
		"slack.maxbodybytes":      1 << 20,
	}, "."), nil)

	// YAML file (optional)
	for _, path := range configPaths {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			continue
		}
	}

	// SLACKGATE_SLACK_SIGNINGSECRET -> slack.signingsecret
	_ = k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"_", ".",
		)
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
