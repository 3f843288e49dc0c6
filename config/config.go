// Package config loads the etsreport configuration: built in defaults,
// optionally overridden by a YAML file, in turn overridden by ETSLOG_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
	"kastelo.dev/etslog/excel"
)

// EnvPrefix is the prefix of the environment variables read by Load, for
// example ETSLOG_LOGGING_LEVEL.
const EnvPrefix = "ETSLOG"

type Config struct {
	Input    InputConfig    `yaml:"input" envconfig:"INPUT"`
	Output   OutputConfig   `yaml:"output" envconfig:"OUTPUT"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Database DatabaseConfig `yaml:"database" envconfig:"DATABASE"`
	Workbook excel.Options  `yaml:"workbook" ignored:"true"`
}

type InputConfig struct {
	// Encoding is the IANA name of the log text encoding.
	Encoding            string `yaml:"encoding" envconfig:"ENCODING"`
	StrictPassFail      bool   `yaml:"strict_pass_fail" envconfig:"STRICT_PASS_FAIL"`
	StrictQuotes        bool   `yaml:"strict_quotes" envconfig:"STRICT_QUOTES"`
	CheckRequirementIDs bool   `yaml:"check_requirement_ids" envconfig:"CHECK_REQUIREMENT_IDS"`
}

type OutputConfig struct {
	CSV  string `yaml:"csv" envconfig:"CSV"`
	XLSX string `yaml:"xlsx" envconfig:"XLSX"`
	BOM  bool   `yaml:"bom" envconfig:"BOM"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" envconfig:"DRIVER"`
	DSN    string `yaml:"dsn" envconfig:"DSN"`
}

func Default() Config {
	return Config{
		Input: InputConfig{
			Encoding: "utf-8",
		},
		Output: OutputConfig{
			CSV:  "output.csv",
			XLSX: "output.xlsx",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "results.db",
		},
		Workbook: excel.DefaultOptions(),
	}
}

// Load returns the configuration. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without an environment variable are left as they are.
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database driver %q", c.Database.Driver)
	}

	if c.Workbook.NameColumnWidth < 0 || c.Workbook.ValueColumnWidth < 0 {
		return fmt.Errorf("column widths must not be negative")
	}
	return nil
}
