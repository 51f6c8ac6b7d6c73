package server

import (
	"fmt"
	"strings"
)

// LogServerConfig controls the agent's log output. File enables a rotated
// log file next to (or, with NoTerminal, instead of) stdout.
type LogServerConfig struct {
	Level      string                  `mapstructure:"level"       yaml:"level"`
	TimeFormat string                  `mapstructure:"time_format" yaml:"time_format"`
	File       string                  `mapstructure:"file"        yaml:"file"`
	NoColor    bool                    `mapstructure:"no_color"    yaml:"no_color"`
	JSON       bool                    `mapstructure:"json"        yaml:"json"`
	NoTerminal bool                    `mapstructure:"no_terminal" yaml:"no_terminal"`
	Rotation   LogServerRotationConfig `mapstructure:"rotation"    yaml:"rotation"`
}

// LogServerRotationConfig is passed to lumberjack; sizes are in megabytes and
// ages in days.
type LogServerRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"     yaml:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"  yaml:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"      yaml:"max_age"`
	Compress   bool `mapstructure:"compress"     yaml:"compress"`
}

var logLevels = []string{"TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "FATAL"}

func (cfg LogServerConfig) validate() error {
	level := strings.ToUpper(strings.TrimSpace(cfg.Level))
	for _, l := range logLevels {
		if level == l {
			return nil
		}
	}
	return fmt.Errorf("log.level must be one of %s, got '%s'", strings.Join(logLevels, ", "), cfg.Level)
}
