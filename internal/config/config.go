package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/healthmate/internal/domain/insight"
)

// EnvPrefix is prepended to every environment override, e.g.
// HEALTHMATE_DATABASE_PASSWORD or HEALTHMATE_AI_API_KEY.
const EnvPrefix = "HEALTHMATE"

const DefaultPath = "config.yaml"

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"corsOrigins" split_words:"true"`
		MaxUploadMB int      `yaml:"maxUploadMB" split_words:"true"`
		RateLimit   struct {
			Capacity        int `yaml:"capacity"`
			RefillPerSecond int `yaml:"refillPerSecond" split_words:"true"`
		} `yaml:"rateLimit" split_words:"true"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode" split_words:"true"`
		// Path is the sqlite file.
		Path string `yaml:"path"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string        `yaml:"endpoint"`
		AccessKey  string        `yaml:"accessKey" split_words:"true"`
		SecretKey  string        `yaml:"secretKey" split_words:"true"`
		BucketName string        `yaml:"bucketName" split_words:"true"`
		Region     string        `yaml:"region"`
		UseSSL     bool          `yaml:"useSSL" envconfig:"USE_SSL"`
		PublicURL  string        `yaml:"publicURL" envconfig:"PUBLIC_URL"`
		URLExpiry  time.Duration `yaml:"urlExpiry" envconfig:"URL_EXPIRY"`
	} `yaml:"minio"`

	AI struct {
		Provider string        `yaml:"provider"`
		APIKey   string        `yaml:"apiKey" envconfig:"API_KEY"`
		Model    string        `yaml:"model"`
		BaseURL  string        `yaml:"baseURL" envconfig:"BASE_URL"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"ai"`

	Analysis struct {
		MaxConcurrent     int           `yaml:"maxConcurrent" split_words:"true"`
		ReconcileInterval time.Duration `yaml:"reconcileInterval" split_words:"true"`
		GracePeriod       time.Duration `yaml:"gracePeriod" split_words:"true"`
	} `yaml:"analysis"`

	Texts insight.Texts `yaml:"texts" ignored:"true"`

	Auth struct {
		// APIKeys maps owner ID to API key. Env form: owner1:key1,owner2:key2
		APIKeys map[string]string `yaml:"apiKeys" envconfig:"API_KEYS"`
	} `yaml:"auth"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Load baca config.yaml, lalu .env, lalu environment (HEALTHMATE_*).
// A missing file is only an error when the path was set explicitly.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	// .env optional, tidak override env yang sudah ada
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate isi default dan tolak nilai yang tidak dikenal
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 10
	}
	if c.Server.RateLimit.Capacity <= 0 {
		c.Server.RateLimit.Capacity = 60
	}
	if c.Server.RateLimit.RefillPerSecond <= 0 {
		c.Server.RateLimit.RefillPerSecond = 1
	}

	switch c.Database.Driver {
	case "":
		c.Database.Driver = "mysql"
		fallthrough
	case "mysql":
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
	case "postgres":
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
	case "sqlite":
		if c.Database.Path == "" {
			c.Database.Path = "healthmate.db"
		}
	default:
		return fmt.Errorf("unknown database driver %q (mysql, postgres, sqlite)", c.Database.Driver)
	}
	if c.Database.Driver != "sqlite" && (c.Database.Host == "" || c.Database.Name == "") {
		return fmt.Errorf("database host and name are required for %s", c.Database.Driver)
	}

	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "medical-reports"
	}

	switch c.AI.Provider {
	case "":
		// gemini is the only backend that receives PDF bytes
		c.AI.Provider = "gemini"
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown ai provider %q (openai, gemini)", c.AI.Provider)
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = 60 * time.Second
	}

	if c.Analysis.MaxConcurrent <= 0 {
		c.Analysis.MaxConcurrent = 4
	}
	if c.Analysis.GracePeriod <= 0 {
		c.Analysis.GracePeriod = 10 * time.Minute
	}
	if c.Analysis.ReconcileInterval < 0 {
		return fmt.Errorf("analysis reconcile interval must not be negative")
	}
	// a run still inside its backend call must never look stale
	if c.Analysis.GracePeriod <= c.AI.Timeout {
		return fmt.Errorf("analysis grace period %s must be longer than ai timeout %s", c.Analysis.GracePeriod, c.AI.Timeout)
	}

	if n := len(c.Texts.FallbackQuestions); n != 0 && n != len(insight.DefaultFallbackQuestions) {
		return fmt.Errorf("texts.fallbackQuestions needs exactly %d entries, got %d", len(insight.DefaultFallbackQuestions), n)
	}
	c.Texts = c.Texts.WithDefaults()

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
