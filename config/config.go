// ABOUTME: Configuration for storage, classifier, web server and logging
// ABOUTME: Layers defaults, the XDG config file, a local .env file and SALESDESK_ environment variables
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const (
	// AppName names the XDG data and config directories.
	AppName = "salesdesk"

	// ConfigFileName is the JSON file inside the XDG config directory.
	ConfigFileName = "config.json"

	EnvPrefix = "SALESDESK_"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Classifier providers.
const (
	ProviderNone   = "none"
	ProviderGemini = "gemini"
	ProviderHTTP   = "http"
)

type Config struct {
	Storage    StorageConfig    `json:"storage"`
	Classifier ClassifierConfig `json:"classifier"`
	Web        WebConfig        `json:"web"`
	Log        LogConfig        `json:"log"`
	Gmail      GmailConfig      `json:"gmail"`
}

type StorageConfig struct {
	Backend string `json:"backend"`
	// DataDir holds crm.db for sqlite and the badger directory.
	DataDir string `json:"data_dir"`
}

type ClassifierConfig struct {
	Provider     string        `json:"provider"`
	GeminiAPIKey string        `json:"gemini_api_key,omitempty"`
	GeminiModel  string        `json:"gemini_model,omitempty"`
	HTTPEndpoint string        `json:"http_endpoint,omitempty"`
	HTTPAPIKey   string        `json:"http_api_key,omitempty"`
	CallTimeout  time.Duration `json:"call_timeout,omitempty"`

	// RateLimit is calls per second; 0 disables limiting.
	RateLimit       float64       `json:"rate_limit,omitempty"`
	RateBurst       int           `json:"rate_burst,omitempty"`
	BreakerFailures uint32        `json:"breaker_failures,omitempty"`
	BreakerCooldown time.Duration `json:"breaker_cooldown,omitempty"`
}

type WebConfig struct {
	Addr string `json:"addr"`
}

type LogConfig struct {
	Level string `json:"level"`
	// Development switches zap to its console encoder.
	Development bool `json:"development"`
}

type GmailConfig struct {
	// Query is the Gmail search used to find inquiry messages.
	Query      string `json:"query"`
	MaxResults int64  `json:"max_results"`
}

// Default returns a config with every field set to its default.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendSQLite,
			DataDir: filepath.Join(xdg.DataHome, AppName),
		},
		Classifier: ClassifierConfig{
			Provider:        ProviderNone,
			GeminiModel:     "gemini-2.5-flash",
			CallTimeout:     30 * time.Second,
			RateLimit:       2,
			RateBurst:       4,
			BreakerFailures: 3,
			BreakerCooldown: 30 * time.Second,
		},
		Web: WebConfig{Addr: "127.0.0.1:8080"},
		Log: LogConfig{Level: "info"},
		Gmail: GmailConfig{
			Query:      "category:primary",
			MaxResults: 100,
		},
	}
}

// Path returns the location of the JSON config file.
func Path() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// Load builds the effective config. A missing config file or .env file is
// not an error; a malformed one is.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFile(Path())
}

// LoadFile reads path over the defaults and then applies environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config file with owner-only permissions.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Classifier.Provider {
	case ProviderNone:
	case ProviderGemini:
		if c.Classifier.GeminiAPIKey == "" {
			return errors.New("gemini classifier requires GEMINI_API_KEY")
		}
	case ProviderHTTP:
		if c.Classifier.HTTPEndpoint == "" {
			return errors.New("http classifier requires an endpoint")
		}
	default:
		return fmt.Errorf("unknown classifier provider %q", c.Classifier.Provider)
	}
	if c.Classifier.CallTimeout <= 0 {
		return errors.New("classifier call timeout must be positive")
	}
	return nil
}

// DatabasePath is the sqlite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataDir, "crm.db")
}

// BadgerDir is the badger directory inside the data directory.
func (c *Config) BadgerDir() string {
	return filepath.Join(c.Storage.DataDir, "badger")
}

// TokenPath is where the Gmail OAuth token is cached.
func (c *Config) TokenPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "google-token.json")
}

// CredentialsPath is the OAuth client file downloaded from Google Cloud.
func (c *Config) CredentialsPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "google-credentials.json")
}

func (c *Config) applyEnv() error {
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.DataDir, "DATA_DIR")
	setString(&c.Classifier.Provider, "CLASSIFIER")
	setString(&c.Classifier.GeminiModel, "GEMINI_MODEL")
	setString(&c.Classifier.HTTPEndpoint, "CLASSIFIER_URL")
	setString(&c.Classifier.HTTPAPIKey, "CLASSIFIER_API_KEY")
	setString(&c.Web.Addr, "ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Gmail.Query, "GMAIL_QUERY")

	// The Gemini key keeps its conventional unprefixed name.
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Classifier.GeminiAPIKey = v
	}
	setString(&c.Classifier.GeminiAPIKey, "GEMINI_API_KEY")

	if err := setDuration(&c.Classifier.CallTimeout, "CALL_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Classifier.BreakerCooldown, "BREAKER_COOLDOWN"); err != nil {
		return err
	}
	if v, ok := lookup("RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sRATE_LIMIT: %w", EnvPrefix, err)
		}
		c.Classifier.RateLimit = f
	}
	if v, ok := lookup("LOG_DEV"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sLOG_DEV: %w", EnvPrefix, err)
		}
		c.Log.Development = b
	}
	return nil
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	return v, v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = d
	return nil
}
