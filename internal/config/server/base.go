package server

import (
	"fmt"

	"github.com/spf13/viper"
)

// ConfigName is the base name of the config file that is searched for and
// generated, without extension.
const ConfigName = "sham"

type BaseServerConfig struct {
	ShutdownTimeout string `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	Log      LogServerConfig      `mapstructure:"log"      yaml:"log"`
	Metadata MetadataServerConfig `mapstructure:"metadata" yaml:"metadata"`
	Assets   AssetsServerConfig   `mapstructure:"assets"   yaml:"assets"`
	HTTP     HTTPServerConfig     `mapstructure:"http"     yaml:"http"`
}

func LoadServerConfig() (*BaseServerConfig, error) {
	cfg := &BaseServerConfig{}

	setDefaults()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the agent cannot start with.
func (cfg *BaseServerConfig) Validate() error {
	if err := cfg.Log.validate(); err != nil {
		return err
	}

	if cfg.Assets.Dir == "" {
		return fmt.Errorf("assets.dir must not be empty")
	}

	if cfg.Assets.MaxPayloadSize <= 0 {
		return fmt.Errorf("assets.max_payload_size must be positive, got %d", cfg.Assets.MaxPayloadSize)
	}

	switch cfg.Metadata.Type {
	case "sqlite":
		if cfg.Metadata.SQLite.Path == "" {
			return fmt.Errorf("metadata.sqlite.path must not be empty")
		}
	case "postgres":
	default:
		return fmt.Errorf("unsupported metadata.type '%s'", cfg.Metadata.Type)
	}

	return nil
}
