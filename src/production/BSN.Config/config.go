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

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// MongoDB configuration
	Mongo MongoConfig `json:"mongo"`

	// Live channel (WebSocket hub) configuration
	Hub HubConfig `json:"hub"`

	// Reporting window configuration
	Window WindowConfig `json:"window"`

	// Report generation configuration
	Report ReportConfig `json:"report"`

	// Auth configuration
	Auth AuthConfig `json:"auth"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// CORS configuration
	CORS CORSConfig `json:"cors"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// MongoConfig holds document-store configuration
type MongoConfig struct {
	URI            string        `json:"uri"`
	Database       string        `json:"database"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
}

// HubConfig holds live-connection configuration
type HubConfig struct {
	// SendBuffer is the per-connection outbound buffer. A connection whose
	// buffer is full at broadcast time is treated as failed and pruned.
	SendBuffer int `json:"send_buffer"`

	// IdleTimeout bounds how long a client may stay silent (no pong, no
	// message) before the connection is dropped.
	IdleTimeout time.Duration `json:"idle_timeout"`
}

// WindowConfig holds the reporting-day window configuration. The cutover is
// the single daily anchor used by both the live graph feed and the reports.
type WindowConfig struct {
	Cutover  string `json:"cutover"`  // "HH:MM" local time
	Timezone string `json:"timezone"` // IANA zone name
}

// ReportConfig holds file-export configuration
type ReportConfig struct {
	TempDir       string `json:"temp_dir"`
	MaxConcurrent int    `json:"max_concurrent"`
}

// AuthConfig holds authentication-related configuration
type AuthConfig struct {
	JWTSecretKey        string        `json:"jwt_secret_key"`
	JWTIssuer           string        `json:"jwt_issuer"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
	InternalAPISecret   string        `json:"internal_api_secret"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `json:"level"`
	Format       string `json:"format"` // json or text
	Output       string `json:"output"` // stdout or stderr
	EnableCaller bool   `json:"enable_caller"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// MQTTConfig holds MQTT-related configuration for the ingestor bridge
type MQTTConfig struct {
	BrokerHost  string        `json:"broker_host"`
	BrokerPort  int           `json:"broker_port"`
	BrokerUser  string        `json:"broker_user"`
	BrokerPass  string        `json:"broker_pass"`
	UseTLS      bool          `json:"use_tls"`
	CACertPath  string        `json:"ca_cert_path"`
	Topic       string        `json:"topic"`
	ClientID    string        `json:"client_id"`
	SharedGroup string        `json:"shared_group"`
	KeepAlive   time.Duration `json:"keep_alive"`
	PingTimeout time.Duration `json:"ping_timeout"`
}

// IngestorConfig holds configuration for the MQTT ingestor bridge service
type IngestorConfig struct {
	MQTT              MQTTConfig    `json:"mqtt"`
	Logging           LoggingConfig `json:"logging"`
	ApiServiceURL     string        `json:"api_service_url"`
	InternalAPISecret string        `json:"internal_api_secret"`
	HealthPort        string        `json:"health_port"`
}

// Load loads configuration from environment variables with fallback defaults
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	if err := godotenv.Load(); err != nil {
		// Environment variables can also be set directly
	}

	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "9001"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "dashboard"),
			ConnectTimeout: getDuration("MONGODB_CONNECT_TIMEOUT", 20*time.Second),
		},
		Hub: HubConfig{
			SendBuffer:  getInt("HUB_SEND_BUFFER", 32),
			IdleTimeout: getDuration("HUB_IDLE_TIMEOUT", 60*time.Second),
		},
		Window: WindowConfig{
			Cutover:  getEnv("REPORT_CUTOVER", "08:30"),
			Timezone: getEnv("REPORT_TIMEZONE", "Asia/Kolkata"),
		},
		Report: ReportConfig{
			TempDir:       getEnv("REPORT_TEMP_DIR", os.TempDir()),
			MaxConcurrent: getInt("REPORT_MAX_CONCURRENT", 2),
		},
		Auth: AuthConfig{
			JWTSecretKey:        getEnv("JWT_SECRET_KEY", "change-this-secret-in-production"),
			JWTIssuer:           getEnv("JWT_ISSUER", "bsn-dashboard-server"),
			AccessTokenDuration: getDuration("JWT_ACCESS_TOKEN_DURATION", 12*time.Hour),
			InternalAPISecret:   getEnv("INTERNAL_API_SECRET", ""),
		},
		Logging: LoggingConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			Format:       getEnv("LOG_FORMAT", "text"),
			Output:       getEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: getBool("LOG_ENABLE_CALLER", false),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:9000"}),
			AllowedMethods:   getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "token"}),
			ExposedHeaders:   getStringSlice("CORS_EXPOSED_HEADERS", []string{"Content-Length"}),
			AllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getInt("CORS_MAX_AGE", 43200),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadIngestorConfig loads configuration for the MQTT ingestor bridge
func LoadIngestorConfig() (*IngestorConfig, error) {
	if err := godotenv.Load(); err != nil {
		// Environment variables can also be set directly
	}

	config := &IngestorConfig{
		MQTT: MQTTConfig{
			BrokerHost:  getEnv("BROKER_HOST", "localhost"),
			BrokerPort:  getInt("BROKER_PORT", 1883),
			BrokerUser:  getEnv("BROKER_USER", ""),
			BrokerPass:  getEnv("BROKER_PASS", ""),
			UseTLS:      getBool("BROKER_TLS", false),
			CACertPath:  getEnv("BROKER_CA_FILE", ""),
			Topic:       getEnv("MQTT_TOPIC", "boards/+/readings"),
			ClientID:    getEnv("MQTT_CLIENT_ID", "board-ingestor"),
			SharedGroup: getEnv("MQTT_SHARED_GROUP", ""),
			KeepAlive:   getDuration("MQTT_KEEP_ALIVE", 30*time.Second),
			PingTimeout: getDuration("MQTT_PING_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			Format:       getEnv("LOG_FORMAT", "text"),
			Output:       getEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: getBool("LOG_ENABLE_CALLER", false),
		},
		ApiServiceURL:     getEnv("API_SERVICE_URL", "http://api-service:9001"),
		InternalAPISecret: getRequiredEnv("INTERNAL_API_SECRET"),
		HealthPort:        getEnv("INGESTOR_HEALTH_PORT", "9002"),
	}

	if config.ApiServiceURL == "" {
		return nil, fmt.Errorf("API_SERVICE_URL is required")
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if c.Auth.JWTSecretKey == "change-this-secret-in-production" {
		log.Println("WARNING: Using default JWT secret key. Change JWT_SECRET_KEY in production!")
	}
	if _, err := ParseCutover(c.Window.Cutover); err != nil {
		return fmt.Errorf("invalid REPORT_CUTOVER: %w", err)
	}
	if _, err := time.LoadLocation(c.Window.Timezone); err != nil {
		return fmt.Errorf("invalid REPORT_TIMEZONE: %w", err)
	}
	if c.Hub.SendBuffer < 1 {
		return fmt.Errorf("HUB_SEND_BUFFER must be at least 1")
	}
	if c.Report.MaxConcurrent < 1 {
		return fmt.Errorf("REPORT_MAX_CONCURRENT must be at least 1")
	}
	return nil
}

// ParseCutover parses an "HH:MM" cutover into an offset from local midnight.
func ParseCutover(s string) (time.Duration, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, nil
}

// GetMQTTBrokerURL returns the MQTT broker URL
func (c *IngestorConfig) GetMQTTBrokerURL() string {
	scheme := "tcp"
	if c.MQTT.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.MQTT.BrokerHost, c.MQTT.BrokerPort)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getRequiredEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("missing required environment variable: %s", key)
	}
	return value
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return intValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if value == "1" || value == "true" || value == "TRUE" {
		return true
	}
	if value == "0" || value == "false" || value == "FALSE" {
		return false
	}
	log.Fatalf("invalid %s: %q (expected true/false or 1/0)", key, value)
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return duration
}

func getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
