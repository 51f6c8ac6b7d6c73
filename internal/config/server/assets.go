package server

// AssetsServerConfig holds the blob storage settings
type AssetsServerConfig struct {
	Dir            string `mapstructure:"dir"              yaml:"dir"`
	MaxPayloadSize int64  `mapstructure:"max_payload_size" yaml:"max_payload_size"`
}

type HTTPServerConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
}
