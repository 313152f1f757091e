package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	Server   ServerConfig
	CORS     CORSConfig
	Auth     AuthConfig
	Analysis AnalysisConfig
	CCH      CCHConfig
	Redis    RedisConfig
	Share    ShareConfig
	Board    BoardConfig
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	PublicURL    string
}

// CORSConfig CORS settings
type CORSConfig struct {
	AllowOrigins string
	AllowHeaders string
}

// AuthConfig adviser authentication settings
type AuthConfig struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	AdviserEmail       string
	AdviserPassword    string
	SecureCookie       bool
}

// AnalysisConfig external CGT model API settings
type AnalysisConfig struct {
	BaseURL      string
	ResponseMode string // markdown or json
	LLMProvider  string
	Timeout      time.Duration
	DemoDelay    time.Duration
}

// CCHConfig CCH verification service settings
type CCHConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RedisConfig Redis settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ShareConfig shared timeline snapshot settings
type ShareConfig struct {
	TTL time.Duration
}

// BoardConfig in-memory board session settings
type BoardConfig struct {
	IdleTTL time.Duration
}

// Load reads configuration from the environment.
func Load() *Config {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️ No .env file found, using environment variables")
	}

	jwtSecret := getRequiredEnv("JWT_SECRET")
	if jwtSecret == "change-this-secret-in-production" {
		log.Fatal("🚨 CRITICAL: JWT_SECRET must be changed from default value in production!")
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
			PublicURL:    getEnv("PUBLIC_URL", "http://localhost:3000"),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			AllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin, Content-Type, Accept, Authorization, x-report-source"),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			AccessTokenExpiry:  getDuration("ACCESS_TOKEN_EXPIRY", 1*time.Hour),
			RefreshTokenExpiry: getDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),
			AdviserEmail:       getEnv("ADVISER_EMAIL", ""),
			AdviserPassword:    getEnv("ADVISER_PASSWORD", ""),
			SecureCookie:       getBool("SECURE_COOKIE", false),
		},
		Analysis: AnalysisConfig{
			BaseURL:      getEnv("ANALYSIS_API_URL", ""),
			ResponseMode: getEnv("ANALYSIS_RESPONSE_MODE", "markdown"),
			LLMProvider:  getEnv("ANALYSIS_LLM_PROVIDER", "claude"),
			Timeout:      getDuration("ANALYSIS_TIMEOUT", 180*time.Second),
			DemoDelay:    getDuration("ANALYSIS_DEMO_DELAY", 1500*time.Millisecond),
		},
		CCH: CCHConfig{
			BaseURL: getEnv("CCH_API_URL", ""),
			Timeout: getDuration("CCH_TIMEOUT", 180*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		Share: ShareConfig{
			TTL: getDuration("SHARE_TTL", 90*24*time.Hour),
		},
		Board: BoardConfig{
			IdleTTL: getDuration("BOARD_IDLE_TTL", 2*time.Hour),
		},
	}
}

// getRequiredEnv fetches a required variable or exits.
func getRequiredEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("🚨 CRITICAL: Required environment variable %s is not set!", key)
	}
	return value
}

// getEnv fetches a variable with a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt fetches an integer variable.
func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getBool fetches a boolean variable.
func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getDuration fetches a duration variable. Bare numbers are seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if !strings.ContainsAny(value, "smh") {
			if secs, err := strconv.Atoi(value); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
