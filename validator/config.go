package validator

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alovak/cardflow-validator/internal/expiry"
	"gopkg.in/yaml.v3"
)

// Config is a configuration for the validator application
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	ISO8583Addr string `yaml:"iso8583_addr"`
	// ExpiryTZ is an IANA timezone name used to decide "today" (empty = process local time).
	ExpiryTZ string `yaml:"expiry_tz"`
	// Workers bounds how many records of a batch are validated at once.
	Workers int `yaml:"workers"`

	InputPath  string `yaml:"input_path"`
	OutputPath string `yaml:"output_path"`

	// RepoBackend is "mem" or "pg".
	RepoBackend string `yaml:"repo_backend"`
	DBDSN       string `yaml:"db_dsn"`
	PANHashKey  string `yaml:"pan_hash_key"`

	// ExplainRejections adds the rejection reason to single-card API responses.
	ExplainRejections bool `yaml:"explain_rejections"`
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:    "localhost:9090",
		ISO8583Addr: "localhost:8583",
		Workers:     1,
		InputPath:   "credit_cards.json",
		OutputPath:  "validated_credit_cards.json",
		RepoBackend: "mem",
		PANHashKey:  "dev-secret-pepper",
	}
}

// LoadConfig reads a YAML file on top of the defaults, then applies
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getenv("HTTP_ADDR", c.HTTPAddr)
	c.ISO8583Addr = getenv("ISO8583_ADDR", c.ISO8583Addr)
	c.ExpiryTZ = getenv("EXPIRY_TZ", c.ExpiryTZ)
	c.InputPath = getenv("INPUT_PATH", c.InputPath)
	c.OutputPath = getenv("OUTPUT_PATH", c.OutputPath)
	c.RepoBackend = getenv("REPO_BACKEND", c.RepoBackend)
	c.DBDSN = getenv("DB_DSN", c.DBDSN)
	c.PANHashKey = getenv("PAN_HASH_KEY", c.PANHashKey)
	if v, err := strconv.Atoi(os.Getenv("WORKERS")); err == nil {
		c.Workers = v
	}
	if v, err := strconv.ParseBool(os.Getenv("EXPLAIN_REJECTIONS")); err == nil {
		c.ExplainRejections = v
	}
}

// Validate checks the settings that cannot be defaulted later.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive (got %d)", c.Workers)
	}
	switch c.RepoBackend {
	case "mem":
	case "pg":
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required for pg backend")
		}
	default:
		return fmt.Errorf("unsupported REPO_BACKEND=%s", c.RepoBackend)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid expiry_tz %q: %w", c.ExpiryTZ, err)
	}
	return nil
}

// Location is the zone in which "today" is taken.
func (c *Config) Location() (*time.Location, error) {
	return expiry.Location(c.ExpiryTZ)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
