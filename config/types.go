package config

import (
	"net"
	"strconv"
	"time"

	"github.com/kratos-console/gateway/observability"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Client retry profiles.
const (
	ProfileDefault  = "default"
	ProfileIdentity = "identity"
)

// Config represents the overall gateway configuration structure.
type Config struct {
	App           AppConfig            `koanf:"app" json:"app" yaml:"app" mapstructure:"app"`
	Server        ServerConfig         `koanf:"server" json:"server" yaml:"server" mapstructure:"server"`
	Log           LogConfig            `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
	Upstream      UpstreamConfig       `koanf:"upstream" json:"upstream" yaml:"upstream" mapstructure:"upstream"`
	Client        ClientConfig         `koanf:"client" json:"client" yaml:"client" mapstructure:"client"`
	Observability observability.Config `koanf:"observability" json:"observability" yaml:"observability" mapstructure:"observability"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string     `koanf:"name" json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	Version string     `koanf:"version" json:"version" yaml:"version" mapstructure:"version" validate:"required"`
	Env     string     `koanf:"env" json:"env" yaml:"env" mapstructure:"env" validate:"oneof=development staging production"`
	Debug   bool       `koanf:"debug" json:"debug" yaml:"debug" mapstructure:"debug"`
	Rate    RateConfig `koanf:"rate" json:"rate" yaml:"rate" mapstructure:"rate"`
}

// RateConfig holds per-IP rate limiting settings. A zero limit disables limiting.
type RateConfig struct {
	Limit float64 `koanf:"limit" json:"limit" yaml:"limit" mapstructure:"limit" validate:"gte=0"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string        `koanf:"host" json:"host" yaml:"host" mapstructure:"host"`
	Port      int           `koanf:"port" json:"port" yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`
	Timeout   TimeoutConfig `koanf:"timeout" json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	Path      PathConfig    `koanf:"path" json:"path" yaml:"path" mapstructure:"path"`
	BodyLimit string        `koanf:"bodylimit" json:"bodylimit" yaml:"bodylimit" mapstructure:"bodylimit"`
}

// TimeoutConfig holds various timeout durations for the server.
type TimeoutConfig struct {
	Read     time.Duration `koanf:"read" json:"read" yaml:"read" mapstructure:"read" validate:"gt=0"`
	Write    time.Duration `koanf:"write" json:"write" yaml:"write" mapstructure:"write" validate:"gt=0"`
	Idle     time.Duration `koanf:"idle" json:"idle" yaml:"idle" mapstructure:"idle" validate:"gt=0"`
	Shutdown time.Duration `koanf:"shutdown" json:"shutdown" yaml:"shutdown" mapstructure:"shutdown" validate:"gt=0"`
}

// PathConfig holds URL path settings for the server.
type PathConfig struct {
	Health string `koanf:"health" json:"health" yaml:"health" mapstructure:"health" validate:"required,startswith=/"`
	Ready  string `koanf:"ready" json:"ready" yaml:"ready" mapstructure:"ready" validate:"required,startswith=/"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error fatal"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// UpstreamConfig holds the identity service endpoints the gateway proxies to.
type UpstreamConfig struct {
	Admin  TargetConfig `koanf:"admin" json:"admin" yaml:"admin" mapstructure:"admin"`
	Public TargetConfig `koanf:"public" json:"public" yaml:"public" mapstructure:"public"`
	// AllowedHosts restricts cookie and header overrides to the listed hosts.
	// Empty allows any host.
	AllowedHosts []string `koanf:"allowedhosts" json:"allowedhosts" yaml:"allowedhosts" mapstructure:"allowedhosts"`
}

// TargetConfig describes one proxied upstream and how a request may override it.
type TargetConfig struct {
	URL    string `koanf:"url" json:"url" yaml:"url" mapstructure:"url" validate:"required,url"`
	Prefix string `koanf:"prefix" json:"prefix" yaml:"prefix" mapstructure:"prefix" validate:"required,startswith=/"`
	Cookie string `koanf:"cookie" json:"cookie" yaml:"cookie" mapstructure:"cookie"`
	Header string `koanf:"header" json:"header" yaml:"header" mapstructure:"header"`
}

// ClientConfig holds the retry policy of the upstream request client.
type ClientConfig struct {
	Profile    string        `koanf:"profile" json:"profile" yaml:"profile" mapstructure:"profile" validate:"oneof=default identity"`
	MaxRetries int           `koanf:"maxretries" json:"maxretries" yaml:"maxretries" mapstructure:"maxretries" validate:"gte=0,lte=10"`
	Timeout    time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	Delay      DelayConfig   `koanf:"delay" json:"delay" yaml:"delay" mapstructure:"delay"`
}

// DelayConfig holds the exponential backoff bounds.
type DelayConfig struct {
	Base time.Duration `koanf:"base" json:"base" yaml:"base" mapstructure:"base" validate:"gt=0"`
	Max  time.Duration `koanf:"max" json:"max" yaml:"max" mapstructure:"max" validate:"gt=0"`
}

// Address returns the host:port the server listens on.
func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
