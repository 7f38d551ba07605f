package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	defaultCurrentURL     = "https://rtwqmsdb1.cpcb.gov.in/data/internet/layers/10/index.json"
	defaultRequestTimeout = 30 * time.Second
	defaultOutputDir      = "."
	defaultFormat         = "csv"
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"

	envPrefix = "WATCHER"
)

// Config holds runtime configuration for the watcher.
type Config struct {
	CurrentURL     string        `yaml:"current_url" envconfig:"CURRENT_URL" validate:"required,url"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" validate:"gt=0"`
	InsecureTLS    bool          `yaml:"insecure_tls" envconfig:"INSECURE_TLS"`
	OutputDir      string        `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	Format         string        `yaml:"format" envconfig:"EXPORT_FORMAT" validate:"oneof=csv xlsx"`
	DryRun         bool          `yaml:"dry_run" envconfig:"DRY_RUN"`
	Strict         bool          `yaml:"strict" envconfig:"STRICT"`
	LogLevel       string        `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn warning error"`
	LogFormat      string        `yaml:"log_format" envconfig:"LOG_FORMAT" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CurrentURL:     defaultCurrentURL,
		RequestTimeout: defaultRequestTimeout,
		InsecureTLS:    true,
		OutputDir:      defaultOutputDir,
		Format:         defaultFormat,
		LogLevel:       defaultLogLevel,
		LogFormat:      defaultLogFormat,
	}
}

// Load builds the configuration from defaults, an optional YAML file, the
// environment (optionally .env) in that order of precedence. Environment
// keys take the WATCHER_ prefix; the bare names are accepted too.
func Load(configFile string) (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Default()

	if configFile == "" {
		configFile = strings.TrimSpace(os.Getenv("WATCHER_CONFIG_FILE"))
	}
	if configFile != "" {
		if err := loadFile(configFile, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid environment: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() {
	c.CurrentURL = strings.TrimSpace(c.CurrentURL)
	c.OutputDir = strings.TrimSpace(c.OutputDir)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

var validate = validator.New()

// Validate checks the final configuration, after any flag overrides.
func (c *Config) Validate() error {
	c.normalize()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
