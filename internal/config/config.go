package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// City directory and geocoding configuration
	Cities CitiesConfig

	// Chat assistant configuration
	Chat ChatConfig

	// Redis configuration (optional shared coordinate store)
	Redis RedisConfig

	// Kafka configuration (optional booking event stream)
	Kafka KafkaConfig

	// Scheduled job configuration
	Jobs JobsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// CitiesConfig holds the external city directory and geocoder settings
type CitiesConfig struct {
	DirectoryURL     string
	GeocoderURL      string
	GeocoderAgent    string
	DefaultCountry   string
	Countries        []string // served by GET /cities/:country
	RequestTimeout   time.Duration
	ReadyWaitTimeout time.Duration
	FallbackLat      float64 // centroid returned when geocoding fails
	FallbackLon      float64
}

// ChatConfig holds the chat assistant settings
type ChatConfig struct {
	GeneratorURL   string
	NERURL         string // empty: match against the prefetched city list
	RequestTimeout time.Duration
	ReadyTimeout   time.Duration
	CostPerKm      float64
	ServiceFee     float64
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string // empty disables Redis
	Password string
	GeoKey   string
}

// KafkaConfig holds Kafka producer settings
type KafkaConfig struct {
	Brokers []string // empty disables Kafka
	Topic   string
}

// JobsConfig holds cron schedules (six fields, with seconds)
type JobsConfig struct {
	RideExpirySchedule string // empty disables the job
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 86400)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Cities: CitiesConfig{
			DirectoryURL:     getEnv("CITIES_API_URL", "https://countriesnow.space/api/v0.1/countries/cities"),
			GeocoderURL:      getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
			GeocoderAgent:    getEnv("GEOCODER_USER_AGENT", "triplink-backend/1.0"),
			DefaultCountry:   getEnv("CITIES_DEFAULT_COUNTRY", "romania"),
			Countries:        getEnvAsSlice("CITIES_COUNTRIES", nil),
			RequestTimeout:   getEnvAsDuration("CITIES_REQUEST_TIMEOUT", 5*time.Second),
			ReadyWaitTimeout: getEnvAsDuration("CITIES_READY_TIMEOUT", 15*time.Second),
			FallbackLat:      getEnvAsFloat("GEOCODER_FALLBACK_LAT", 45.9432),
			FallbackLon:      getEnvAsFloat("GEOCODER_FALLBACK_LON", 24.9668),
		},
		Chat: ChatConfig{
			GeneratorURL:   getEnv("CHAT_GENERATOR_URL", ""),
			NERURL:         getEnv("CHAT_NER_URL", ""),
			RequestTimeout: getEnvAsDuration("CHAT_REQUEST_TIMEOUT", 30*time.Second),
			ReadyTimeout:   getEnvAsDuration("CHAT_READY_TIMEOUT", 60*time.Second),
			CostPerKm:      getEnvAsFloat("CHAT_COST_PER_KM", 1.12),
			ServiceFee:     getEnvAsFloat("CHAT_SERVICE_FEE", 2.0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			GeoKey:   getEnv("REDIS_GEO_KEY", "triplink:city_locations"),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_BOOKING_TOPIC", "triplink.booking-events"),
		},
		Jobs: JobsConfig{
			RideExpirySchedule: os.Getenv("RIDE_EXPIRY_SCHEDULE"),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" && c.Server.Environment == "production" {
		return fmt.Errorf("DATABASE_URL is required in production")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Cities.DirectoryURL == "" || c.Cities.GeocoderURL == "" {
		return fmt.Errorf("CITIES_API_URL and GEOCODER_URL are required")
	}

	if c.Chat.CostPerKm < 0 || c.Chat.ServiceFee < 0 {
		return fmt.Errorf("CHAT_COST_PER_KM and CHAT_SERVICE_FEE must not be negative")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid float value for %s, using default: %g", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("5s") or plain seconds ("5")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// IsProduction reports whether the server runs with production settings
func (c *Config) IsProduction() bool {
	return getEnvAsBool("FORCE_PRODUCTION", false) || c.Server.Environment == "production"
}
