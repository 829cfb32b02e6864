package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/xhit/go-str2duration/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/warden/pkg/observability"
)

// Environment is the deployment mode the process runs in
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTest        Environment = "test"
	EnvProduction  Environment = "production"
)

// LogsType selects where the log sink writes when enabled
type LogsType string

const (
	LogsTypeMongoDB   LogsType = "mongodb"
	LogsTypeDirectory LogsType = "directory"
)

// LookupFunc resolves a single environment key. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Settings holds all application configuration. It is built once by Load and
// must be treated as read-only afterwards.
type Settings struct {
	Environment Environment

	Server        ServerConfig
	Auth          AuthConfig
	Credentials   CredentialsConfig
	Storage       StorageConfig
	RateLimit     RateLimitConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Mail          MailConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	HealthPort      int
	Timezone        string
	Location        *time.Location
	BaseURL         string
	BaseURLHTTPS    string
	AppURL          string
	AllowOrigins    []string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	Secret     string
	Expiration time.Duration
	Algorithm  string
}

// CredentialsConfig holds password hashing and generation settings
type CredentialsConfig struct {
	HashCost                int
	GeneratedPasswordLength int
}

// StorageConfig holds connection strings for the cache and document store
type StorageConfig struct {
	RedisURL string
	MongoURI string
}

// RateLimitConfig holds the per-client request budget. Requests of 0 disables
// limiting.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// TrustProxyHeaders keys anonymous clients by X-Forwarded-For/X-Real-IP
	TrustProxyHeaders bool
}

// Enabled reports whether a request budget is configured
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0
}

// LoggingConfig holds log level and sink settings
type LoggingConfig struct {
	Level           observability.LogLevel
	SinkEnabled     bool
	Type            LogsType
	Directory       string
	FileRetention   time.Duration
	ErrorCollection string
}

// ObservabilityConfig holds tracing settings
type ObservabilityConfig struct {
	OTelEnabled     bool
	OTelEndpoint    string
	OTelServiceName string
}

// MailConfig holds the optional Mailgun credentials
type MailConfig struct {
	APIKey      string
	Domain      string
	SenderEmail string
	SenderName  string
}

// Enabled reports whether every Mailgun credential is present
func (m MailConfig) Enabled() bool {
	return m.APIKey != "" && m.Domain != "" && m.SenderEmail != "" && m.SenderName != ""
}

// IsProduction reports whether the process runs in production mode
func (s *Settings) IsProduction() bool {
	return s.Environment == EnvProduction
}

// Keys accepted in place of a renamed key when the renamed key is unset
var legacyKeys = map[string]string{
	"APP_ENV":         "NODE_ENV",
	"ENABLE_LOG_SINK": "ENABLE_WINSTON",
}

// DefaultHealthPort is used for HEALTH_PORT unless PORT already takes it
const DefaultHealthPort = 9090

// rawSettings is the untyped view of the environment. The env tag doubles as
// the field name reported in violations.
type rawSettings struct {
	AppEnv          string `env:"APP_ENV" validate:"oneof=development test production"`
	Timezone        string `env:"TZ" validate:"required"`
	BaseURL         string `env:"BASE_URL" validate:"required,url"`
	BaseURLHTTPS    string `env:"BASE_URL_HTTPS" validate:"omitempty,url"`
	Port            string `env:"PORT" validate:"required,number"`
	HealthPort      string `env:"HEALTH_PORT" validate:"required,number"`
	ServerTimeout   string `env:"SERVER_TIMEOUT" validate:"required"`
	ShutdownTimeout string `env:"SHUTDOWN_TIMEOUT" validate:"required"`
	AllowOrigin     string `env:"ALLOW_ORIGIN" validate:"required"`
	AppURL          string `env:"APP_URL" validate:"required,url"`

	LogsDirectory   string `env:"LOGS_DIRECTORY" validate:"required"`
	LogFileDuration string `env:"LOG_FILE_DURATION" validate:"required"`
	LogLevel        string `env:"LOG_LEVEL" validate:"oneof=debug info warn warning error"`
	EnableLogSink   string `env:"ENABLE_LOG_SINK" validate:"oneof=0 1"`
	LogsType        string `env:"LOGS_TYPE" validate:"oneof=mongodb directory"`
	ErrorCollection string `env:"MONGODB_ERROR_COLLECTION_NAME" validate:"required"`

	JWTSecret     string `env:"JWT_SECRET" validate:"required"`
	JWTExpiration string `env:"JWT_SECRET_EXPIRATION" validate:"required"`
	JWTAlgorithm  string `env:"JWT_ALGORITHM" validate:"oneof=HS256 HS384 HS512"`

	Hash                    string `env:"HASH" validate:"required,number"`
	GeneratedPasswordLength string `env:"GENERATED_PASSWORD_LENGTH" validate:"required,number"`

	RedisURL string `env:"REDIS_URL" validate:"required"`
	MongoURI string `env:"MONGODB_URI" validate:"required,url"`

	RateLimitRequests string `env:"RATE_LIMIT_REQUESTS" validate:"required,number"`
	RateLimitWindow   string `env:"RATE_LIMIT_WINDOW" validate:"required"`
	TrustProxyHeaders string `env:"TRUST_PROXY_HEADERS" validate:"oneof=0 1 true false"`

	OTelEnabled     string `env:"OTEL_ENABLED" validate:"oneof=0 1 true false"`
	OTelEndpoint    string `env:"OTEL_ENDPOINT" validate:"omitempty,hostname_port"`
	OTelServiceName string `env:"OTEL_SERVICE_NAME" validate:"required"`

	MailgunAPIKey      string `env:"MAILGUN_API_KEY"`
	MailgunDomain      string `env:"MAILGUN_DOMAIN"`
	MailgunSenderEmail string `env:"MAILGUN_SENDER_EMAIL" validate:"omitempty,email"`
	MailgunName        string `env:"MAILGUN_NAME"`

	// keys maps a tag name to the legacy key its value was read from
	keys map[string]string
}

// keyFor returns the environment key a field's value actually came from
func (r rawSettings) keyFor(field string) string {
	if key, ok := r.keys[field]; ok {
		return key
	}
	return field
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("env"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

// LoadConfig loads configuration from the process environment
func LoadConfig() (*Settings, error) {
	return Load(os.LookupEnv)
}

// Load builds Settings from lookup. Every violation found is reported in a
// single *ConfigurationError; no partial Settings value is ever returned.
func Load(lookup LookupFunc) (*Settings, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	raw := readRaw(lookup)

	var violations violationList
	if err := validate.Struct(raw); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
		for _, fe := range validationErrors {
			violations.add(raw.keyFor(fe.Field()), describe(fe))
		}
	}

	settings := coerce(raw, &violations)
	if !violations.empty() {
		return nil, violations.err()
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// readRaw pulls every known key, applying defaults for absent or empty values
func readRaw(lookup LookupFunc) rawSettings {
	keys := make(map[string]string)
	getEnv := func(key, defaultValue string) string {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		if legacy, ok := legacyKeys[key]; ok {
			if value, ok := lookup(legacy); ok && strings.TrimSpace(value) != "" {
				keys[key] = legacy
				return strings.TrimSpace(value)
			}
		}
		return defaultValue
	}

	port := getEnv("PORT", "")
	healthPort := strconv.Itoa(DefaultHealthPort)
	if port == healthPort {
		healthPort = strconv.Itoa(DefaultHealthPort + 1)
	}

	return rawSettings{
		keys:            keys,
		AppEnv:          getEnv("APP_ENV", string(EnvDevelopment)),
		Timezone:        getEnv("TZ", "UTC"),
		BaseURL:         getEnv("BASE_URL", ""),
		BaseURLHTTPS:    getEnv("BASE_URL_HTTPS", ""),
		Port:            port,
		HealthPort:      getEnv("HEALTH_PORT", healthPort),
		ServerTimeout:   getEnv("SERVER_TIMEOUT", "150s"),
		ShutdownTimeout: getEnv("SHUTDOWN_TIMEOUT", "30s"),
		AllowOrigin:     getEnv("ALLOW_ORIGIN", ""),
		AppURL:          getEnv("APP_URL", ""),

		LogsDirectory:   getEnv("LOGS_DIRECTORY", ""),
		LogFileDuration: getEnv("LOG_FILE_DURATION", "3d"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		EnableLogSink:   getEnv("ENABLE_LOG_SINK", "0"),
		LogsType:        getEnv("LOGS_TYPE", string(LogsTypeMongoDB)),
		ErrorCollection: getEnv("MONGODB_ERROR_COLLECTION_NAME", ""),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTExpiration: getEnv("JWT_SECRET_EXPIRATION", "1d"),
		JWTAlgorithm:  getEnv("JWT_ALGORITHM", "HS256"),

		Hash:                    getEnv("HASH", ""),
		GeneratedPasswordLength: getEnv("GENERATED_PASSWORD_LENGTH", "10"),

		RedisURL: getEnv("REDIS_URL", ""),
		MongoURI: getEnv("MONGODB_URI", ""),

		RateLimitRequests: getEnv("RATE_LIMIT_REQUESTS", "0"),
		RateLimitWindow:   getEnv("RATE_LIMIT_WINDOW", "1m"),
		TrustProxyHeaders: strings.ToLower(getEnv("TRUST_PROXY_HEADERS", "false")),

		OTelEnabled:     strings.ToLower(getEnv("OTEL_ENABLED", "false")),
		OTelEndpoint:    getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "warden"),

		MailgunAPIKey:      getEnv("MAILGUN_API_KEY", ""),
		MailgunDomain:      getEnv("MAILGUN_DOMAIN", ""),
		MailgunSenderEmail: getEnv("MAILGUN_SENDER_EMAIL", ""),
		MailgunName:        getEnv("MAILGUN_NAME", ""),
	}
}

// coerce converts the validated strings into typed values. Keys that already
// failed tag validation are skipped so each key reports at most one violation.
func coerce(raw rawSettings, violations *violationList) *Settings {
	s := &Settings{
		Environment: Environment(raw.AppEnv),
		Server: ServerConfig{
			Timezone:     raw.Timezone,
			BaseURL:      raw.BaseURL,
			BaseURLHTTPS: raw.BaseURLHTTPS,
			AppURL:       raw.AppURL,
			AllowOrigins: splitOrigins(raw.AllowOrigin),
		},
		Auth: AuthConfig{
			Secret:    raw.JWTSecret,
			Algorithm: raw.JWTAlgorithm,
		},
		Storage: StorageConfig{
			RedisURL: raw.RedisURL,
			MongoURI: raw.MongoURI,
		},
		Logging: LoggingConfig{
			Level:           parseLogLevel(raw.LogLevel),
			SinkEnabled:     raw.EnableLogSink == "1",
			Type:            LogsType(raw.LogsType),
			Directory:       raw.LogsDirectory,
			ErrorCollection: raw.ErrorCollection,
		},
		Observability: ObservabilityConfig{
			OTelEnabled:     raw.OTelEnabled == "1" || raw.OTelEnabled == "true",
			OTelEndpoint:    raw.OTelEndpoint,
			OTelServiceName: raw.OTelServiceName,
		},
		Mail: MailConfig{
			APIKey:      raw.MailgunAPIKey,
			Domain:      raw.MailgunDomain,
			SenderEmail: raw.MailgunSenderEmail,
			SenderName:  raw.MailgunName,
		},
	}

	s.Server.Port = violations.intInRange("PORT", raw.Port, 1, 65535)
	s.Server.HealthPort = violations.intInRange("HEALTH_PORT", raw.HealthPort, 1, 65535)
	s.Server.RequestTimeout = violations.duration("SERVER_TIMEOUT", raw.ServerTimeout)
	s.Server.ShutdownTimeout = violations.duration("SHUTDOWN_TIMEOUT", raw.ShutdownTimeout)
	s.Logging.FileRetention = violations.duration("LOG_FILE_DURATION", raw.LogFileDuration)
	s.Auth.Expiration = violations.duration("JWT_SECRET_EXPIRATION", raw.JWTExpiration)
	s.Credentials.HashCost = violations.intInRange("HASH", raw.Hash, bcrypt.MinCost, bcrypt.MaxCost)
	s.Credentials.GeneratedPasswordLength = violations.intInRange("GENERATED_PASSWORD_LENGTH", raw.GeneratedPasswordLength, 1, 4096)
	s.RateLimit.Requests = violations.intInRange("RATE_LIMIT_REQUESTS", raw.RateLimitRequests, 0, 1_000_000)
	s.RateLimit.Window = violations.duration("RATE_LIMIT_WINDOW", raw.RateLimitWindow)
	s.RateLimit.TrustProxyHeaders = raw.TrustProxyHeaders == "1" || raw.TrustProxyHeaders == "true"

	if !violations.has("TZ") {
		loc, err := time.LoadLocation(raw.Timezone)
		if err != nil {
			violations.add("TZ", fmt.Sprintf("unknown timezone %q", raw.Timezone))
		} else {
			s.Server.Location = loc
		}
	}

	if !violations.has("REDIS_URL") {
		if _, err := redis.ParseURL(raw.RedisURL); err != nil {
			violations.add("REDIS_URL", "invalid redis connection string: "+err.Error())
		}
	}

	if !violations.has("ALLOW_ORIGIN") && len(s.Server.AllowOrigins) == 0 {
		violations.add("ALLOW_ORIGIN", "must list at least one origin")
	}

	return s
}

// Validate checks cross-field invariants of an already typed configuration
func (s *Settings) Validate() error {
	var violations violationList

	if s.Server.Port == s.Server.HealthPort {
		violations.add("HEALTH_PORT", "must differ from PORT")
	}
	if s.Auth.Secret == "" {
		violations.add("JWT_SECRET", "is required")
	}
	if s.Logging.SinkEnabled && s.Logging.Type == LogsTypeDirectory && s.Logging.FileRetention < 24*time.Hour {
		violations.add("LOG_FILE_DURATION", "must be at least one day when the directory sink is enabled")
	}
	if s.Observability.OTelEnabled && s.Observability.OTelEndpoint == "" {
		violations.add("OTEL_ENDPOINT", "is required when OTEL_ENABLED is set")
	}

	if violations.empty() {
		return nil
	}
	return violations.err()
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func splitOrigins(value string) []string {
	var origins []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// describe turns a validator failure into a human readable reason
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	case "number":
		return "must be a non-negative integer"
	case "email":
		return "must be a valid email address"
	case "hostname_port":
		return "must be in host:port form"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// intInRange parses an integer key and checks it against [lower, upper]
func (v *violationList) intInRange(key, value string, lower, upper int) int {
	if v.has(key) {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		v.add(key, "must be an integer")
		return 0
	}
	if n < lower || n > upper {
		v.add(key, fmt.Sprintf("must be between %d and %d", lower, upper))
		return 0
	}
	return n
}

// duration parses a duration key. Day and week units are accepted.
func (v *violationList) duration(key, value string) time.Duration {
	if v.has(key) {
		return 0
	}
	d, err := str2duration.ParseDuration(value)
	if err != nil {
		v.add(key, fmt.Sprintf("invalid duration %q", value))
		return 0
	}
	if d <= 0 {
		v.add(key, "must be a positive duration")
		return 0
	}
	return d
}
