package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends for the per-user key/value store.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageMemory = "memory"
)

// Config holds the configuration for the application.
type Config struct {
	Port           string `yaml:"port"`
	DatabasePath   string `yaml:"database_path"`
	StorageBackend string `yaml:"storage_backend"`
	StoragePath    string `yaml:"storage_path"`

	LLMProvider  string `yaml:"llm_provider"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
	GroqAPIKey   string `yaml:"groq_api_key"`

	// Auth Config. With neither a secret nor a Cognito pool the API runs
	// unauthenticated as a single anonymous user.
	AuthJWTSecret     string `yaml:"auth_jwt_secret"`
	CognitoRegion     string `yaml:"cognito_region"`
	CognitoUserPoolID string `yaml:"cognito_user_pool_id"`

	// Receipt uploads (optional)
	ReceiptsBucket string `yaml:"receipts_bucket"`
	AWSRegion      string `yaml:"aws_region"`
	S3Endpoint     string `yaml:"s3_endpoint"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// LoadDotEnv reads a .env file outside production. A missing file is fine.
func LoadDotEnv() {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}
}

// NewFromEnv creates a new Config object from environment variables and
// requires the key of the selected LLM provider.
func NewFromEnv() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case "groq":
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("LLM_PROVIDER must be gemini or groq, got %q", cfg.LLMProvider)
	}

	return cfg, nil
}

// Load reads the configuration without checking LLM keys, for commands that
// never generate. When SAVR_CONFIG_FILE names a YAML file its values are read
// first and any set environment variable overrides them.
func Load() (*Config, error) {
	cfg := &Config{}
	if path := os.Getenv("SAVR_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	override(&cfg.Port, "PORT")
	override(&cfg.DatabasePath, "DATABASE_PATH")
	override(&cfg.StorageBackend, "STORAGE_BACKEND")
	override(&cfg.StoragePath, "STORAGE_PATH")
	override(&cfg.LLMProvider, "LLM_PROVIDER")
	override(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	override(&cfg.GeminiModel, "GEMINI_MODEL")
	override(&cfg.GroqAPIKey, "GROQ_API_KEY")
	override(&cfg.AuthJWTSecret, "AUTH_JWT_SECRET")
	override(&cfg.CognitoRegion, "COGNITO_REGION")
	override(&cfg.CognitoUserPoolID, "COGNITO_USER_POOL_ID")
	override(&cfg.ReceiptsBucket, "RECEIPTS_BUCKET")
	override(&cfg.AWSRegion, "AWS_REGION")
	override(&cfg.S3Endpoint, "S3_ENDPOINT")
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSAllowedOrigins = splitList(origins)
	}

	applyDefaults(cfg)

	switch cfg.StorageBackend {
	case StorageSQLite, StorageMemory:
	case StorageFile:
		if cfg.StoragePath == "" {
			return nil, fmt.Errorf("STORAGE_PATH environment variable not set")
		}
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND must be sqlite, file or memory, got %q", cfg.StorageBackend)
	}

	if cfg.CognitoUserPoolID != "" && cfg.CognitoRegion == "" {
		return nil, fmt.Errorf("COGNITO_REGION environment variable not set")
	}

	return cfg, nil
}

// AuthEnabled reports whether bearer tokens are required.
func (c *Config) AuthEnabled() bool {
	return c.AuthJWTSecret != "" || c.CognitoUserPoolID != ""
}

func applyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "data/savr.db"
	}
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = StorageSQLite
	}
	if cfg.StorageBackend == StorageFile && cfg.StoragePath == "" {
		cfg.StoragePath = "data/storage"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "gemini"
	}
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = "us-east-1"
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
}

func override(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
