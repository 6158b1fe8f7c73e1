package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"squadvault/database"
	"squadvault/engine"
	"squadvault/ledger"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// HTTP ingress
	HTTPAddr       string
	RateLimitRPS   float64
	RateLimitBurst int
	TokenMaxAge    time.Duration

	// NATS; empty disables event forwarding
	NATSServers string

	// Treasury rules
	MintAuthorities []ledger.Identity // identities allowed to send CreditWallet
	MaxSquadMembers int

	// Cron spec for the vault audit; empty disables it
	ReconcileSchedule string

	LogLevel    string
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the process runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from the environment, after merging a .env file
// if one is present
func load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to read .env file")
	}

	config := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DatabaseName:      os.Getenv("DATABASE_NAME"),
		HTTPAddr:          getEnvWithDefault("HTTP_ADDR", ":8080"),
		RateLimitRPS:      20,
		RateLimitBurst:    40,
		TokenMaxAge:       5 * time.Minute,
		NATSServers:       os.Getenv("NATS_SERVERS"),
		MaxSquadMembers:   engine.MaxSquadMembers,
		ReconcileSchedule: "@every 5m",
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		Environment:       os.Getenv("ENVIRONMENT"),
	}

	if schedule, ok := os.LookupEnv("RECONCILE_SCHEDULE"); ok {
		config.ReconcileSchedule = strings.TrimSpace(schedule)
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps <= 0 {
			return nil, fmt.Errorf("RATE_LIMIT_RPS must be a positive number, got %q", v)
		}
		config.RateLimitRPS = rps
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil || burst <= 0 {
			return nil, fmt.Errorf("RATE_LIMIT_BURST must be a positive integer, got %q", v)
		}
		config.RateLimitBurst = burst
	}
	if v := os.Getenv("TOKEN_MAX_AGE"); v != "" {
		maxAge, err := time.ParseDuration(v)
		if err != nil || maxAge <= 0 {
			return nil, fmt.Errorf("TOKEN_MAX_AGE must be a positive duration, got %q", v)
		}
		config.TokenMaxAge = maxAge
	}
	if v := os.Getenv("MAX_SQUAD_MEMBERS"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("MAX_SQUAD_MEMBERS must be an integer, got %q", v)
		}
		config.MaxSquadMembers = engine.ClampMemberLimit(limit)
	}

	authorities, err := parseIdentities(os.Getenv("MINT_AUTHORITIES"))
	if err != nil {
		return nil, fmt.Errorf("MINT_AUTHORITIES: %w", err)
	}
	config.MintAuthorities = authorities

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// parseIdentities reads a comma-separated list of hex identities
func parseIdentities(raw string) ([]ledger.Identity, error) {
	var ids []ledger.Identity
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := ledger.ParseIdentity(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		HTTPAddr:        ":0",
		RateLimitRPS:    1000,
		RateLimitBurst:  1000,
		TokenMaxAge:     5 * time.Minute,
		MaxSquadMembers: engine.MaxSquadMembers,
		LogLevel:        "debug",
		Environment:     "test",
	}
}
