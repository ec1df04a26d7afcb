// Package config loads gateway configuration from defaults, YAML files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is read when Load is called without an explicit path.
const DefaultFile = "config.yaml"

// sections are the top-level keys environment variables may set.
var sections = []string{"app", "server", "log", "upstream", "client", "observability"}

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. config.<env>.yaml next to the base file
// 3. The base YAML file (path, or config.yaml when empty)
// 4. Default values (lowest priority)
//
// A missing config.yaml is ignored; a missing explicit path is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := loadFile(k, path, explicit); err != nil {
		return nil, err
	}

	if appEnv := k.String("app.env"); appEnv != "" {
		envFile := filepath.Join(filepath.Dir(path), fmt.Sprintf("config.%s.yaml", appEnv))
		if err := loadFile(k, envFile, false); err != nil {
			return nil, err
		}
	}

	if err := loadEnv(k, os.Environ); err != nil {
		return nil, err
	}

	return unmarshal(k)
}

// LoadFromBytes loads configuration from YAML content layered over defaults.
// Environment variables are not consulted.
func LoadFromBytes(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	return unmarshal(k)
}

func loadFile(k *koanf.Koanf, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// loadEnv maps UPPER_CASE variables onto lower.case keys, e.g.
// UPSTREAM_ADMIN_URL sets upstream.admin.url. Variables outside the known
// sections are ignored.
func loadEnv(k *koanf.Koanf, environ func() []string) error {
	provider := env.Provider(".", env.Opt{
		EnvironFunc: environ,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ReplaceAll(strings.ToLower(key), "_", ".")
			section, _, _ := strings.Cut(key, ".")
			if !slices.Contains(sections, section) || section == key {
				return "", nil
			}
			return key, value
		},
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Observability.ApplyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":       "kratos-gateway",
		"app.version":    "v1.0.0",
		"app.env":        EnvDevelopment,
		"app.debug":      false,
		"app.rate.limit": 100,
		"app.rate.burst": 200,

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.timeout.read":     "15s",
		"server.timeout.write":    "60s",
		"server.timeout.idle":     "60s",
		"server.timeout.shutdown": "10s",
		"server.path.health":      "/health",
		"server.path.ready":       "/ready",
		"server.bodylimit":        "10M",

		"log.level":  "info",
		"log.pretty": false,

		"upstream.admin.url":     "http://localhost:4434",
		"upstream.admin.prefix":  "/api/kratos/admin",
		"upstream.admin.cookie":  "kratos_admin_url",
		"upstream.admin.header":  "X-Kratos-Admin-URL",
		"upstream.public.url":    "http://localhost:4433",
		"upstream.public.prefix": "/api/kratos/public",
		"upstream.public.cookie": "kratos_public_url",
		"upstream.public.header": "X-Kratos-Public-URL",

		"client.profile":    ProfileIdentity,
		"client.maxretries": 3,
		"client.timeout":    "30s",
		"client.delay.base": "500ms",
		"client.delay.max":  "5s",

		"observability.enabled":      false,
		"observability.service.name": "kratos-gateway",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
