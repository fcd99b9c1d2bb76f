package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/followledger/followledger/internal/utils"
)

// Config captures the settings required to build reports and serve them.
type Config struct {
	Subject string        `yaml:"subject" validate:"required"`
	Export  ExportConfig  `yaml:"export"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Report  ReportConfig  `yaml:"report"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig locates the platform export files.
type ExportConfig struct {
	Dir           string `yaml:"dir" validate:"required"`
	FollowersGlob string `yaml:"followersGlob" validate:"required"`
	FollowingFile string `yaml:"followingFile" validate:"required"`
	FollowingKey  string `yaml:"followingKey"`
	SkipInvalid   bool   `yaml:"skipInvalid"`
}

// LedgerConfig points at the SQLite ledger database.
type LedgerConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// ReportConfig controls where report files land and where the monthly series begins.
type ReportConfig struct {
	OutputDir  string `yaml:"outputDir" validate:"required"`
	StartMonth string `yaml:"startMonth" validate:"required"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address" validate:"required"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout" validate:"gte=0"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FOLLOWLEDGER_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Validate reports the first group of invalid settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := utils.ParseMonth(c.Report.StartMonth); err != nil {
		return fmt.Errorf("invalid config: report.startMonth: %w", err)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Export: ExportConfig{
			Dir:           ".",
			FollowersGlob: "followers_*.json",
			FollowingFile: "following.json",
			FollowingKey:  "relationships_following",
		},
		Ledger: LedgerConfig{Path: "output/db.sqlite3"},
		Report: ReportConfig{
			OutputDir:  "output",
			StartMonth: "2024-08",
		},
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FOLLOWLEDGER_SUBJECT"); v != "" {
		cfg.Subject = v
	}
	if v := os.Getenv("FOLLOWLEDGER_EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}
	if v := os.Getenv("FOLLOWLEDGER_FOLLOWERS_GLOB"); v != "" {
		cfg.Export.FollowersGlob = v
	}
	if v := os.Getenv("FOLLOWLEDGER_FOLLOWING_FILE"); v != "" {
		cfg.Export.FollowingFile = v
	}
	if v := os.Getenv("FOLLOWLEDGER_SKIP_INVALID"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Export.SkipInvalid = b
		}
	}
	if v := os.Getenv("FOLLOWLEDGER_LEDGER_PATH"); v != "" {
		cfg.Ledger.Path = v
	}
	if v := os.Getenv("FOLLOWLEDGER_OUTPUT_DIR"); v != "" {
		cfg.Report.OutputDir = v
	}
	if v := os.Getenv("FOLLOWLEDGER_START_MONTH"); v != "" {
		cfg.Report.StartMonth = v
	}
	if v := os.Getenv("FOLLOWLEDGER_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("FOLLOWLEDGER_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("FOLLOWLEDGER_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
	if v := os.Getenv("FOLLOWLEDGER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FOLLOWLEDGER_LOG_FORMAT"); strings.EqualFold(v, "json") {
		cfg.Logging.JSON = true
	}
}
