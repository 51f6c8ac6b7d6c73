package server

import (
	"fmt"
	"net/url"
	"strconv"
)

// MetadataServerConfig holds metadata store configuration
type MetadataServerConfig struct {
	Type     string                 `mapstructure:"type"     yaml:"type"`
	SQLite   MetadataSQLiteConfig   `mapstructure:"sqlite"   yaml:"sqlite"`
	Postgres MetadataPostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// MetadataSQLiteConfig holds SQLite-specific configuration
type MetadataSQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MetadataPostgresConfig holds PostgreSQL-specific configuration.
// URL takes precedence over the individual connection fields.
type MetadataPostgresConfig struct {
	URL      string `mapstructure:"url"      yaml:"url"`
	Host     string `mapstructure:"host"     yaml:"host"`
	Port     int    `mapstructure:"port"     yaml:"port"`
	User     string `mapstructure:"user"     yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
	SSLMode  string `mapstructure:"sslmode"  yaml:"sslmode"`
}

// DSN returns the connection URL for the configured database.
func (cfg MetadataPostgresConfig) DSN() string {
	if cfg.URL != "" {
		return cfg.URL
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%s", cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{cfg.SSLMode}}.Encode()
	}

	return u.String()
}
