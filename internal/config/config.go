package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Report struct {
		URL            string `yaml:"url"`
		Path           string `yaml:"path"`
		Token          string `yaml:"token"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"report"`
	Schedule struct {
		PeriodMS            int `yaml:"period_ms"`
		CycleTimeoutSeconds int `yaml:"cycle_timeout_seconds"`
	} `yaml:"schedule"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Seed struct {
		TransactionsPath string `yaml:"transactions_path"`
	} `yaml:"seed"`
	Log struct {
		Verbose bool `yaml:"verbose"`
	} `yaml:"log"`
}

func Default() Config {
	cfg := Config{}
	cfg.Database.Path = "reconciler.db"
	cfg.Report.TimeoutSeconds = 30
	cfg.Schedule.PeriodMS = 60000
	cfg.Schedule.CycleTimeoutSeconds = 0
	cfg.Server.Port = "8080"
	cfg.Seed.TransactionsPath = "testdata/transactions.json"
	return cfg
}

// Load reads a YAML file on top of Default. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv("DB_PATH")); v != "" {
		c.Database.Path = v
	}
	if v := strings.TrimSpace(getenv("REPORT_URL")); v != "" {
		c.Report.URL = v
		c.Report.Path = ""
	}
	if v := strings.TrimSpace(getenv("REPORT_PATH")); v != "" {
		c.Report.Path = v
		c.Report.URL = ""
	}
	if v := strings.TrimSpace(getenv("REPORT_TOKEN")); v != "" {
		c.Report.Token = v
	}
	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		c.Server.Port = v
	}
	if v := strings.TrimSpace(getenv("SEED_PATH")); v != "" {
		c.Seed.TransactionsPath = v
	}
	if v := strings.TrimSpace(getenv("UPDATE_STATUS_SCHEDULE_MS")); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UPDATE_STATUS_SCHEDULE_MS: %w", err)
		}
		c.Schedule.PeriodMS = ms
	}
	if v := strings.TrimSpace(getenv("CYCLE_TIMEOUT_SECONDS")); v != "" {
		s, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CYCLE_TIMEOUT_SECONDS: %w", err)
		}
		c.Schedule.CycleTimeoutSeconds = s
	}
	if v := strings.TrimSpace(getenv("LOG_VERBOSE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_VERBOSE: %w", err)
		}
		c.Log.Verbose = b
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	hasURL := strings.TrimSpace(c.Report.URL) != ""
	hasPath := strings.TrimSpace(c.Report.Path) != ""
	switch {
	case !hasURL && !hasPath:
		errs = append(errs, errors.New("one of report.url or report.path is required"))
	case hasURL && hasPath:
		errs = append(errs, errors.New("report.url and report.path are mutually exclusive"))
	}
	if c.Schedule.PeriodMS <= 0 {
		errs = append(errs, fmt.Errorf("schedule.period_ms must be positive, got %d", c.Schedule.PeriodMS))
	}
	if c.Schedule.CycleTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("schedule.cycle_timeout_seconds must not be negative, got %d", c.Schedule.CycleTimeoutSeconds))
	}
	if c.Report.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("report.timeout_seconds must not be negative, got %d", c.Report.TimeoutSeconds))
	}
	return errors.Join(errs...)
}

func (c Config) Period() time.Duration {
	return time.Duration(c.Schedule.PeriodMS) * time.Millisecond
}

func (c Config) CycleTimeout() time.Duration {
	return time.Duration(c.Schedule.CycleTimeoutSeconds) * time.Second
}

func (c Config) ReportTimeout() time.Duration {
	return time.Duration(c.Report.TimeoutSeconds) * time.Second
}
