// Package config holds the proxy's runtime settings: the address it binds
// for downstream clients, the upstream hosts its pool shards keys across,
// and the handful of knobs that shape logging and stats. Settings load
// from flags, environment variables and an optional config file via
// viper, the same layering Redis Cluster Proxy uses.
package config

// ServerProperties mirrors the shape of a godis-style config.Properties:
// a single struct, populated once at startup, read by every package that
// needs a setting, never mutated afterward.
type ServerProperties struct {
	Bind       string   `mapstructure:"bind"`
	Port       int      `mapstructure:"port"`
	Upstreams  []string `mapstructure:"upstreams"`
	StatPrefix string   `mapstructure:"stat-prefix"`

	LogDir      string `mapstructure:"log-dir"`
	LogLevel    string `mapstructure:"log-level"`
	MetricsBind string `mapstructure:"metrics-bind"`
}

// Properties is the process-wide settings instance. It is populated once
// by cmd.Execute before the server starts, and is read-only thereafter.
var Properties = &ServerProperties{
	Bind:        "0.0.0.0",
	Port:        6380,
	StatPrefix:  "",
	LogDir:      "./log",
	LogLevel:    "info",
	MetricsBind: ":9121",
}
