// Package config defines the data structures related to configuration and
// includes functions for loading and validating it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for EzValuation.
type Configuration struct {
	Server    ServerConfig    `yaml:"server,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Database  DatabaseConfig  `yaml:"database,omitempty"`
	Quotes    QuotesConfig    `yaml:"quotes,omitempty"`
	Valuation ValuationConfig `yaml:"valuation,omitempty"`
}

// ServerConfig holds HTTP listener options
type ServerConfig struct {
	Address     string   `yaml:"address,omitempty"`
	MaxBodySize string   `yaml:"maxBodySize,omitempty"` // e.g. 256K, 1M
	CORSOrigins []string `yaml:"corsOrigins,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// DatabaseConfig holds the SQLite location
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"`
}

// QuotesConfig configures the fund quote provider
type QuotesConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// ValuationConfig holds the fallbacks used when market indices are missing
type ValuationConfig struct {
	IPCA            float64 `yaml:"ipca,omitempty"`    // decimal
	Premium         float64 `yaml:"premium,omitempty"` // decimal
	ProjectionYears int     `yaml:"projectionYears,omitempty"`
	TerminalGrowth  float64 `yaml:"terminalGrowth,omitempty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxBodySize", "256K")
	v.SetDefault("server.corsOrigins", []string{})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("database.path", constants.DefaultDatabasePath)
	v.SetDefault("quotes.enabled", true)
	v.SetDefault("quotes.endpoint", constants.DefaultQuoteEndpoint)
	v.SetDefault("quotes.timeoutSeconds", constants.DefaultQuoteTimeoutSeconds)
	v.SetDefault("valuation.ipca", constants.DefaultIPCA)
	v.SetDefault("valuation.premium", constants.DefaultIPCAPremium)
	v.SetDefault("valuation.projectionYears", constants.DefaultProjectionYears)
	v.SetDefault("valuation.terminalGrowth", constants.DefaultTerminalGrowth)
}

// LoadConfiguration loads the YAML configuration at configPath on top of the
// defaults. Any key can be overridden by an EZV_ prefixed environment
// variable, e.g. EZV_DATABASE_PATH. An empty configPath loads defaults and
// environment only; a configPath that does not exist is an error.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
		v.SetConfigFile(configPath)
		v.SetConfigType("yml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file, %w", err)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	return &configuration, nil
}

// IsNotExist reports whether err came from a missing configuration file.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown logging level '%s'", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown logging format '%s'", c.Logging.Format))
	}

	if strings.TrimSpace(c.Database.Path) == "" {
		warnings = append(warnings, "Database path is empty; the default will be used")
	}

	if !c.Quotes.Enabled {
		warnings = append(warnings, "Fund quotes are disabled; analyses will be created in manual mode")
	} else if strings.TrimSpace(c.Quotes.Endpoint) == "" {
		warnings = append(warnings, "Fund quotes are enabled but no endpoint is configured")
	}
	if c.Quotes.TimeoutSeconds < 0 {
		warnings = append(warnings, fmt.Sprintf("Negative quote timeout %d; the default will be used", c.Quotes.TimeoutSeconds))
	}

	if c.Valuation.IPCA < 0 || c.Valuation.IPCA > 0.5 {
		warnings = append(warnings, fmt.Sprintf("Default IPCA %.4f looks like a percentage, expected a decimal fraction", c.Valuation.IPCA))
	}
	if c.Valuation.Premium <= 0 || c.Valuation.Premium > 0.5 {
		warnings = append(warnings, fmt.Sprintf("Default IPCA+ premium %.4f should be a positive decimal fraction", c.Valuation.Premium))
	}
	if c.Valuation.ProjectionYears < 1 {
		warnings = append(warnings, fmt.Sprintf("Projection horizon %d is below one year", c.Valuation.ProjectionYears))
	}

	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			warnings = append(warnings, "CORS allows every origin")
			break
		}
	}

	return warnings
}
