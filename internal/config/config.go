package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Cache       CacheConfig
	CORS        CORSConfig
	Log         LogConfig
	Metrics     MetricsConfig
	Node        NodeConfig
	Registry    RegistryConfig
	ServiceAuth ServiceAuthConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	LogLevel string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Enabled bool
	Type    string // "memory" or "redis"
	TTL     time.Duration
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool
}

// NodeConfig holds peripheral-node specific configuration
type NodeConfig struct {
	// BaseURL is the externally reachable address embedded into access
	// URIs registered with the central registry.
	BaseURL string
}

// RegistryConfig holds the central registry client configuration
type RegistryConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ServiceAuthConfig holds service-to-service credential configuration.
// SigningKey enables local token minting; when it is empty the node falls
// back to the remote token endpoint with the pre-shared secret.
type ServiceAuthConfig struct {
	SigningKey    string
	Issuer        string
	ServiceID     string
	ServiceSecret string
	ServiceName   string
	TokenURL      string
	TokenTTL      time.Duration
	SafetyMargin  time.Duration
	// Clients holds the serviceID:secret pairs the registry accepts on
	// its token endpoint.
	Clients map[string]string
}

// Load reads configuration from the environment, honoring a .env file when
// present.
func Load() (*Config, error) {
	// .env is optional; real deployments configure via the environment
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "fedhistoria"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			LogLevel: getEnv("DB_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", true),
			Type:    getEnv("CACHE_TYPE", "memory"),
			TTL:     getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvList("CORS_ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID", "X-Professional-ID", "X-Professional-Name", "X-Specialty"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
		Node: NodeConfig{
			BaseURL: getEnv("NODE_BASE_URL", "http://localhost:8080"),
		},
		Registry: RegistryConfig{
			BaseURL: getEnv("REGISTRY_BASE_URL", "http://localhost:8090"),
			Timeout: getEnvDuration("REGISTRY_TIMEOUT", 10*time.Second),
		},
		ServiceAuth: ServiceAuthConfig{
			SigningKey:    getEnv("SERVICE_AUTH_SIGNING_KEY", ""),
			Issuer:        getEnv("SERVICE_AUTH_ISSUER", "fedhistoria"),
			ServiceID:     getEnv("SERVICE_AUTH_SERVICE_ID", ""),
			ServiceSecret: getEnv("SERVICE_AUTH_SERVICE_SECRET", ""),
			ServiceName:   getEnv("SERVICE_AUTH_SERVICE_NAME", "fedhistoria-node"),
			TokenURL:      getEnv("SERVICE_AUTH_TOKEN_URL", ""),
			TokenTTL:      getEnvDuration("SERVICE_AUTH_TOKEN_TTL", 15*time.Minute),
			SafetyMargin:  getEnvDuration("SERVICE_AUTH_SAFETY_MARGIN", 30*time.Second),
			Clients:       getEnvPairs("SERVICE_AUTH_CLIENTS"),
		},
	}

	return cfg, nil
}

// Validate checks required configuration values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Cache.Enabled && c.Cache.Type != "memory" && c.Cache.Type != "redis" {
		return fmt.Errorf("unsupported cache type: %s", c.Cache.Type)
	}
	if c.Registry.Timeout <= 0 {
		return fmt.Errorf("registry timeout must be positive")
	}
	if c.ServiceAuth.SigningKey == "" && c.ServiceAuth.TokenURL == "" {
		// Neither local minting nor the remote fallback is configured.
		// Startup is allowed; sync proceeds unauthenticated and the risk
		// is logged by the token source.
		return nil
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvPairs parses "id1:secret1,id2:secret2" into a map.
func getEnvPairs(key string) map[string]string {
	out := make(map[string]string)
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return out
	}
	for _, pair := range strings.Split(v, ",") {
		id, secret, found := strings.Cut(strings.TrimSpace(pair), ":")
		if found && id != "" {
			out[id] = secret
		}
	}
	return out
}

func getEnvList(key string, fallback []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
