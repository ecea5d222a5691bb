package config

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "toolbox-factory.yml"

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8081,
			CSRF: true,
		},
		Export: ExportConfig{
			Dir: "exports",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
