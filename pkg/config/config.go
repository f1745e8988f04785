package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Chain
	PolygonRPCURL string

	// Wallet
	PrivateKey    string
	ProxyAddress  string
	SignatureType int

	// Relayer (merge settlement through the forwarding proxy)
	RelayerURL            string
	BuilderAPIKey         string
	BuilderSecret         string
	BuilderPassphrase     string
	MergeProxyGasLimit    uint64
	MergeTryAnyway        bool
	MergeReceiptTimeout   time.Duration
	CollectionIDCacheSize int64

	// Polymarket CLOB API
	PolymarketCLOBURL    string
	PolymarketAPIKey     string
	PolymarketSecret     string
	PolymarketPassphrase string

	// Execution
	ExecutionMaxOrderSize   float64
	ExecutionSlippageFirst  float64
	ExecutionSlippageSecond float64
	ExecutionOrderType      string
	ExecutionGTDExpiration  time.Duration

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Chain defaults
		PolygonRPCURL: getEnvOrDefault("POLYGON_RPC_URL", "https://polygon-bor-rpc.publicnode.com"),

		// Wallet
		PrivateKey:    os.Getenv("POLYMARKET_PRIVATE_KEY"),
		ProxyAddress:  os.Getenv("POLYMARKET_PROXY_ADDRESS"),
		SignatureType: getIntOrDefault("POLYMARKET_SIGNATURE_TYPE", 1), // POLY_PROXY

		// Relayer defaults
		RelayerURL:            getEnvOrDefault("RELAYER_URL", "https://relayer-v2.polymarket.com"),
		BuilderAPIKey:         os.Getenv("POLY_BUILDER_API_KEY"),
		BuilderSecret:         os.Getenv("POLY_BUILDER_SECRET"),
		BuilderPassphrase:     os.Getenv("POLY_BUILDER_PASSPHRASE"),
		MergeProxyGasLimit:    getUint64OrDefault("MERGE_PROXY_GAS_LIMIT", 160000),
		MergeTryAnyway:        getBoolOrDefault("MERGE_TRY_ANYWAY", false),
		MergeReceiptTimeout:   getDurationOrDefault("MERGE_RECEIPT_TIMEOUT", 3*time.Minute),
		CollectionIDCacheSize: int64(getIntOrDefault("COLLECTION_ID_CACHE_SIZE", 10000)),

		// Polymarket API defaults
		PolymarketCLOBURL:    getEnvOrDefault("POLYMARKET_CLOB_URL", "https://clob.polymarket.com"),
		PolymarketAPIKey:     os.Getenv("POLYMARKET_API_KEY"),
		PolymarketSecret:     os.Getenv("POLYMARKET_SECRET"),
		PolymarketPassphrase: os.Getenv("POLYMARKET_PASSPHRASE"),

		// Execution defaults
		ExecutionMaxOrderSize:   getFloat64OrDefault("EXECUTION_MAX_ORDER_SIZE", 100.0),
		ExecutionSlippageFirst:  getFloat64OrDefault("EXECUTION_SLIPPAGE_FIRST", 0.0),
		ExecutionSlippageSecond: getFloat64OrDefault("EXECUTION_SLIPPAGE_SECOND", 0.01),
		ExecutionOrderType:      strings.ToUpper(getEnvOrDefault("EXECUTION_ORDER_TYPE", "GTD")),
		ExecutionGTDExpiration:  getDurationOrDefault("EXECUTION_GTD_EXPIRATION", 5*time.Minute),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "polymarket"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "polymarket123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "polymarket_settle"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
// Credentials are not required here; each command checks the ones it needs.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.PolygonRPCURL == "" {
		return fmt.Errorf("POLYGON_RPC_URL cannot be empty")
	}

	if c.RelayerURL == "" {
		return fmt.Errorf("RELAYER_URL cannot be empty")
	}

	if c.PolymarketCLOBURL == "" {
		return fmt.Errorf("POLYMARKET_CLOB_URL cannot be empty")
	}

	if c.SignatureType < 0 || c.SignatureType > 2 {
		return fmt.Errorf("POLYMARKET_SIGNATURE_TYPE must be 0, 1 or 2, got %d", c.SignatureType)
	}

	if c.MergeProxyGasLimit == 0 {
		return fmt.Errorf("MERGE_PROXY_GAS_LIMIT must be positive")
	}

	if c.ExecutionMaxOrderSize <= 0 {
		return fmt.Errorf("EXECUTION_MAX_ORDER_SIZE must be positive, got %f", c.ExecutionMaxOrderSize)
	}

	if c.ExecutionSlippageFirst < 0 || c.ExecutionSlippageSecond < 0 {
		return fmt.Errorf("EXECUTION_SLIPPAGE_FIRST and EXECUTION_SLIPPAGE_SECOND must not be negative")
	}

	switch c.ExecutionOrderType {
	case "GTC", "GTD", "FOK", "FAK":
	default:
		return fmt.Errorf("EXECUTION_ORDER_TYPE must be GTC, GTD, FOK or FAK, got %q", c.ExecutionOrderType)
	}

	if c.ExecutionOrderType == "GTD" && c.ExecutionGTDExpiration <= 0 {
		return fmt.Errorf("EXECUTION_GTD_EXPIRATION must be positive for GTD orders")
	}

	if c.StorageMode != "console" && c.StorageMode != "postgres" {
		return fmt.Errorf("STORAGE_MODE must be 'console' or 'postgres', got %q", c.StorageMode)
	}

	return nil
}

// HasBuilderCredentials reports whether all three relayer credentials are set.
func (c *Config) HasBuilderCredentials() bool {
	return c.BuilderAPIKey != "" && c.BuilderSecret != "" && c.BuilderPassphrase != ""
}

// HasCLOBCredentials reports whether all three CLOB API credentials are set.
func (c *Config) HasCLOBCredentials() bool {
	return c.PolymarketAPIKey != "" && c.PolymarketSecret != "" && c.PolymarketPassphrase != ""
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getUint64OrDefault(key string, defaultValue uint64) uint64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	uintVal, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return uintVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

// getBoolOrDefault accepts 1/true/yes/on and 0/false/no/off, case-insensitively.
func getBoolOrDefault(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}
