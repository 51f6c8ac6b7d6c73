package server

import "github.com/spf13/viper"

func GetServerDefault() BaseServerConfig {
	return BaseServerConfig{
		ShutdownTimeout: "10s",

		Log: LogServerConfig{
			Level:      "INFO",
			TimeFormat: "2006-01-02 15:04:05",
			File:       "",
			NoColor:    false,
			JSON:       false,
			NoTerminal: false,
			Rotation: LogServerRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},

		Metadata: MetadataServerConfig{
			Type: "sqlite",
			SQLite: MetadataSQLiteConfig{
				Path: "./data/sham.db",
			},
			Postgres: MetadataPostgresConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "sham",
				Database: "sham",
				SSLMode:  "disable",
			},
		},

		Assets: AssetsServerConfig{
			Dir:            "./data/assets",
			MaxPayloadSize: 50_000_000,
		},

		HTTP: HTTPServerConfig{
			Address: "0.0.0.0:8000",
		},
	}
}

func setDefaults() {
	defaults := GetServerDefault()

	viper.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.time_format", defaults.Log.TimeFormat)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_color", defaults.Log.NoColor)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)

	viper.SetDefault("metadata.type", defaults.Metadata.Type)
	viper.SetDefault("metadata.sqlite.path", defaults.Metadata.SQLite.Path)
	viper.SetDefault("metadata.postgres.url", defaults.Metadata.Postgres.URL)
	viper.SetDefault("metadata.postgres.host", defaults.Metadata.Postgres.Host)
	viper.SetDefault("metadata.postgres.port", defaults.Metadata.Postgres.Port)
	viper.SetDefault("metadata.postgres.user", defaults.Metadata.Postgres.User)
	viper.SetDefault("metadata.postgres.password", defaults.Metadata.Postgres.Password)
	viper.SetDefault("metadata.postgres.database", defaults.Metadata.Postgres.Database)
	viper.SetDefault("metadata.postgres.sslmode", defaults.Metadata.Postgres.SSLMode)

	viper.SetDefault("assets.dir", defaults.Assets.Dir)
	viper.SetDefault("assets.max_payload_size", defaults.Assets.MaxPayloadSize)

	viper.SetDefault("http.address", defaults.HTTP.Address)
}
