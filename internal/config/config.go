// Package config resolves educhat settings from defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Free models offered to users.
var FreeModels = []string{
	"nvidia/nemotron-nano-9b-v2:free",
	"meta-llama/llama-3.3-8b-instruct:free",
	"minimax/minimax-m2:free",
}

const DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"

// Config is the top-level structure for educhat.yaml. SessionTTL is how long
// an untouched session stays in memory; zero keeps sessions until shutdown.
type Config struct {
	Addr          string        `yaml:"addr"`
	DataDir       string        `yaml:"data_dir"`
	APIKey        string        `yaml:"api_key"`
	AdminPassword string        `yaml:"admin_password"`
	Gateway       GatewayConfig `yaml:"gateway"`
	Models        []string      `yaml:"models"`
	DefaultModel  string        `yaml:"default_model"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	Log           LogConfig     `yaml:"log"`
}

// GatewayConfig controls calls to the inference gateway. Parallel fans one
// question out to all selected models concurrently.
type GatewayConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
	Parallel  bool          `yaml:"parallel"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // console | json
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	models := make([]string, len(FreeModels))
	copy(models, FreeModels)
	return &Config{
		Addr:    ":3000",
		DataDir: "chat_data",
		Gateway: GatewayConfig{
			Endpoint:  DefaultEndpoint,
			MaxTokens: 800,
			Timeout:   30 * time.Second,
		},
		Models:       models,
		DefaultModel: models[len(models)-1],
		SessionTTL:   30 * time.Minute,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ReadConfig reads a YAML file at path over the defaults.
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Load builds the effective configuration. A missing YAML file or .env file
// is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		read, err := ReadConfig(path)
		switch {
		case err == nil:
			cfg = read
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("OPENROUTER_API_KEY", &c.APIKey)
	setString("ADMIN_PASS", &c.AdminPassword)
	setString("EDUCHAT_ADDR", &c.Addr)
	setString("EDUCHAT_DATA_DIR", &c.DataDir)
	setString("EDUCHAT_ENDPOINT", &c.Gateway.Endpoint)
	setString("EDUCHAT_DEFAULT_MODEL", &c.DefaultModel)
	setString("EDUCHAT_LOG_LEVEL", &c.Log.Level)
	setString("EDUCHAT_LOG_FORMAT", &c.Log.Format)

	if v := os.Getenv("EDUCHAT_MODELS"); v != "" {
		var models []string
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		c.Models = models
	}
	if v := os.Getenv("EDUCHAT_PARALLEL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing EDUCHAT_PARALLEL: %w", err)
		}
		c.Gateway.Parallel = b
	}
	if v := os.Getenv("EDUCHAT_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing EDUCHAT_SESSION_TTL: %w", err)
		}
		c.SessionTTL = d
	}
	return nil
}

// Validate checks the settings that have no safe fallback.
func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return errors.New("config: at least one model must be offered")
	}
	if c.DataDir == "" {
		return errors.New("config: data_dir is empty")
	}
	if c.Gateway.Timeout <= 0 {
		return errors.New("config: gateway timeout must be positive")
	}
	if c.SessionTTL < 0 {
		return errors.New("config: session_ttl must not be negative")
	}
	if !slices.Contains(c.Models, c.DefaultModel) {
		c.DefaultModel = c.Models[len(c.Models)-1]
	}
	return nil
}

// Warnings lists configuration gaps that degrade the service without
// stopping it.
func (c *Config) Warnings() []string {
	var out []string
	if c.APIKey == "" {
		out = append(out, "OPENROUTER_API_KEY not set: every model answer will be a configuration warning")
	}
	if c.AdminPassword == "" {
		out = append(out, "ADMIN_PASS not set: admin features are disabled")
	}
	return out
}
