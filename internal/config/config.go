package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	environment := GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(logrus.DebugLevel)
	case "production":
		log.SetLevel(logrus.ErrorLevel)
	default:
		// Default to info level for other environments
		log.SetLevel(logrus.InfoLevel)
	}
}

// Config used for the application configuration, loading the input from environment variables.
// It is built once at startup and injected into constructors; nothing reads the
// environment after LoadConfig returns, so tests can substitute deterministic
// secrets and costs.
type Config struct {
	// Server Configuration
	Port int    `json:"port"`
	Host string `json:"host"`
	Env  string `json:"env"`

	// Database configuration
	DBDriver   string `json:"db_driver"`
	DBHost     string `json:"db_host"`
	DBPort     string `json:"db_port"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
	DBName     string `json:"db_name"`
	DBSSLMode  string `json:"db_sslmode"`
	DBPath     string `json:"db_path"`

	// Security Configuration
	MasterSecret   string `json:"master_secret"`
	HashCost       int    `json:"hash_cost"`
	AllowPlainPKCE bool   `json:"allow_plain_pkce"`

	// Grant lifetimes
	CodeTTL  time.Duration `json:"code_ttl"`
	TokenTTL time.Duration `json:"token_ttl"`

	// Bounded deadline applied to every store call
	StoreTimeout time.Duration `json:"store_timeout"`

	// Upstream resource API
	ResourceAPIURL string `json:"resource_api_url"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %d, Host: %s, Env: %s, DBDriver: %s, DBHost: %s, DBName: %s, DBPath: %s, DBPassword: [REDACTED], MasterSecret: [REDACTED], HashCost: %d, AllowPlainPKCE: %t, CodeTTL: %s, TokenTTL: %s, StoreTimeout: %s, ResourceAPIURL: %s}",
		c.Port, c.Host, c.Env, c.DBDriver, c.DBHost, c.DBName, c.DBPath, c.HashCost, c.AllowPlainPKCE, c.CodeTTL, c.TokenTTL, c.StoreTimeout, c.ResourceAPIURL)
}

// LoadConfig read the proper configuration from environment variables and returns a Config struct
// It validates the master secret and the bcrypt cost bounds.
// Returns an error if any required environment variable is missing or invalid
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, err
	}

	masterSecret := GetEnvWithDefault("MASTER_SECRET", "")
	if masterSecret == "" {
		return nil, errors.New("MASTER_SECRET environment variable is required")
	}

	hashCost := GetEnvAsType("HASH_COST", bcrypt.DefaultCost)
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("HASH_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, hashCost)
	}

	config := &Config{
		Port:           port,
		Host:           GetEnvWithDefault("APP_HOST", "localhost"),
		Env:            GetEnvWithDefault("APP_ENV", "development"),
		DBDriver:       GetEnvWithDefault("DB_DRIVER", "sqlite"),
		DBHost:         GetEnvWithDefault("DB_HOST", "localhost"),
		DBPort:         GetEnvWithDefault("DB_PORT", "5432"),
		DBUser:         GetEnvWithDefault("DB_USER", "user"),
		DBPassword:     GetEnvWithDefault("DB_PASSWORD", "password"),
		DBName:         GetEnvWithDefault("DB_NAME", "credex"),
		DBSSLMode:      GetEnvWithDefault("DB_SSLMODE", "disable"),
		DBPath:         GetEnvWithDefault("DB_PATH", "credex.sqlite"),
		MasterSecret:   masterSecret,
		HashCost:       hashCost,
		AllowPlainPKCE: GetEnvAsType("ALLOW_PLAIN_PKCE", false),
		CodeTTL:        time.Duration(GetEnvAsType("CODE_TTL_SECONDS", 300)) * time.Second,
		TokenTTL:       time.Duration(GetEnvAsType("TOKEN_TTL_SECONDS", 3600)) * time.Second,
		StoreTimeout:   time.Duration(GetEnvAsType("STORE_TIMEOUT_SECONDS", 5)) * time.Second,
		ResourceAPIURL: GetEnvWithDefault("RESOURCE_API_URL", "https://api.example.com"),
	}
	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Warnf("Environment variable %s not set, using default value: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}
