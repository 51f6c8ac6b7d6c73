package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	config "github.com/mwantia/sham/internal/config/server"
)

var (
	envFiles    = []string{".env", ".env.local"}
	configPaths = []string{".", "./config", "/etc/sham", "$HOME/.sham"}
)

// initConfig reads the config file and any .env files next to it. Values from
// .env never override variables already present in the environment.
func initConfig(path string) error {
	dirs := []string{"."}

	if path != "" {
		viper.SetConfigFile(path)
		dirs = append(dirs, filepath.Dir(path))
	} else {
		viper.SetConfigName(config.ConfigName)
		viper.SetConfigType("yaml")
		for _, configPath := range configPaths {
			viper.AddConfigPath(configPath)
		}
		dirs = configPaths
	}

	for _, dir := range dirs {
		for _, envFile := range envFiles {
			// Missing .env files are expected
			_ = godotenv.Load(filepath.Join(os.ExpandEnv(dir), envFile))
		}
	}

	// SHAM_ASSETS_DIR maps to assets.dir
	viper.SetEnvPrefix("SHAM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}
