package config

// Config is the top-level toolbox factory configuration, corresponding to toolbox-factory.yml.
type Config struct {
	Server  ServerConfig  `yaml:"server" koanf:"server"`
	Export  ExportConfig  `yaml:"export" koanf:"export"`
	Logging LoggingConfig `yaml:"logging" koanf:"logging"`
	Library LibraryConfig `yaml:"library" koanf:"library"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	CSRF            bool `yaml:"csrf" koanf:"csrf"` // Disable only for API clients without a browser session
}

// ExportConfig controls where exported toolboxes are stored.
type ExportConfig struct {
	Dir string `yaml:"dir" koanf:"dir"`
}

// LoggingConfig mirrors internal/log.Options.
type LoggingConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
	Source bool   `yaml:"source" koanf:"source"`
	File   string `yaml:"file" koanf:"file"` // Rotating JSON log file; empty disables it
}

// LibraryConfig lists block definition files to preload.
type LibraryConfig struct {
	Preload []string `yaml:"preload" koanf:"preload"` // doublestar patterns, relative to the working directory
}
