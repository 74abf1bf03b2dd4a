package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxUploadSize = 20 * 1024 * 1024 // 20MB
	DefaultHandleTTL     = 30 * time.Minute
	DefaultFontFile      = "fonts/NotoSansCJKjp-Regular.otf"
)

// Config holds all configuration for the document pipeline server.
type Config struct {
	// Server configuration
	Host string
	Port int

	// Document generation
	TemplateDir string
	FontFile    string
	HandleTTL   time.Duration

	// Document-understanding service
	OCREndpoint string
	OCRKey      string
	OCRModelID  string

	// Application configuration
	LogLevel      string
	MaxUploadSize int64
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Host:          DefaultHost,
		Port:          DefaultPort,
		TemplateDir:   filepath.Join(currentDir, "templates"),
		FontFile:      filepath.Join(currentDir, DefaultFontFile),
		HandleTTL:     DefaultHandleTTL,
		OCRModelID:    "prebuilt-invoice",
		LogLevel:      DefaultLogLevel,
		MaxUploadSize: DefaultMaxUploadSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()

	pflag.Parse()

	populateConfigFromViper(cfg)

	if expanded, err := filepath.Abs(cfg.TemplateDir); err == nil {
		cfg.TemplateDir = expanded
	}
	if expanded, err := filepath.Abs(cfg.FontFile); err == nil {
		cfg.FontFile = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults.
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("KAWASETU")
	viper.AutomaticEnv()

	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("templatedir", cfg.TemplateDir)
	viper.SetDefault("fontfile", cfg.FontFile)
	viper.SetDefault("handlettl", cfg.HandleTTL)
	viper.SetDefault("ocrendpoint", cfg.OCREndpoint)
	viper.SetDefault("ocrkey", cfg.OCRKey)
	viper.SetDefault("ocrmodel", cfg.OCRModelID)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxuploadsize", cfg.MaxUploadSize)
}

// defineCommandLineFlags sets up all command line flags.
func defineCommandLineFlags(cfg *Config) {
	pflag.String("host", cfg.Host, "Server host address")
	pflag.Int("port", cfg.Port, "Server port")
	pflag.String("templatedir", cfg.TemplateDir, "Directory containing fillable document templates")
	pflag.String("fontfile", cfg.FontFile, "CJK font file embedded into generated documents")
	pflag.Duration("handlettl", cfg.HandleTTL, "Maximum age of an unrevoked document handle")
	pflag.String("ocrendpoint", cfg.OCREndpoint, "Document-understanding service endpoint")
	pflag.String("ocrkey", cfg.OCRKey, "Document-understanding service API key")
	pflag.String("ocrmodel", cfg.OCRModelID, "Document-understanding model ID")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxuploadsize", cfg.MaxUploadSize, "Maximum upload size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration.
func bindFlagsToViper() {
	for _, name := range []string{
		"host", "port", "templatedir", "fontfile", "handlettl",
		"ocrendpoint", "ocrkey", "ocrmodel", "loglevel", "maxuploadsize",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// populateConfigFromViper fills the config struct with values from viper.
func populateConfigFromViper(cfg *Config) {
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.TemplateDir = viper.GetString("templatedir")
	cfg.FontFile = viper.GetString("fontfile")
	cfg.HandleTTL = viper.GetDuration("handlettl")
	cfg.OCREndpoint = viper.GetString("ocrendpoint")
	cfg.OCRKey = viper.GetString("ocrkey")
	cfg.OCRModelID = viper.GetString("ocrmodel")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxUploadSize = viper.GetInt64("maxuploadsize")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if c.TemplateDir == "" {
		return errors.New("template directory cannot be empty")
	}
	if _, err := os.Stat(c.TemplateDir); err != nil {
		return fmt.Errorf("cannot access template directory %s: %w", c.TemplateDir, err)
	}

	if c.FontFile == "" {
		return errors.New("font file cannot be empty")
	}

	if c.HandleTTL <= 0 {
		return errors.New("handle TTL must be positive")
	}

	if c.MaxUploadSize <= 0 {
		return errors.New("maximum upload size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled.
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// OCRConfigured reports whether the document-understanding service
// credentials are present. The analyze route is disabled without them.
func (c *Config) OCRConfigured() bool {
	return c.OCREndpoint != "" && c.OCRKey != ""
}
