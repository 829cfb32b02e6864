// Package config loads and validates process configuration from environment variables.
//
// # Overview
//
// Load reads every known key once, applies defaults for keys that are absent or
// empty, validates the raw strings against a fixed schema and coerces them into a
// typed Settings value. Any violation aborts the load with a *ConfigurationError
// that lists every failing key, so a misconfigured deployment fails before it
// binds a listener.
//
// # Configuration Keys
//
// Server settings:
//
//	APP_ENV="development"          # development, test, production (or NODE_ENV)
//	TZ="UTC"
//	BASE_URL="http://localhost:8080"   # required
//	BASE_URL_HTTPS="https://localhost:8443"
//	PORT="8080"                    # required
//	HEALTH_PORT="9090"             # 9091 when PORT is 9090
//	SERVER_TIMEOUT="150s"
//	SHUTDOWN_TIMEOUT="30s"
//	ALLOW_ORIGIN="https://app.example.com"   # required, comma separated
//	APP_URL="https://app.example.com"        # required
//
// Token and credential settings:
//
//	JWT_SECRET="..."               # required
//	JWT_SECRET_EXPIRATION="1d"
//	JWT_ALGORITHM="HS256"          # HS256, HS384, HS512
//	HASH="12"                      # required, bcrypt cost
//	GENERATED_PASSWORD_LENGTH="10"
//
// Storage settings:
//
//	REDIS_URL="redis://localhost:6379/0"            # required
//	MONGODB_URI="mongodb://localhost:27017/warden"  # required
//
// Rate limiting settings:
//
//	RATE_LIMIT_REQUESTS="0"        # requests per window per client, 0 disables
//	RATE_LIMIT_WINDOW="1m"
//	TRUST_PROXY_HEADERS="false"    # key anonymous clients by X-Forwarded-For
//
// Logging settings:
//
//	LOG_LEVEL="info"               # debug, info, warn, error
//	LOGS_DIRECTORY="/var/log/warden"   # required
//	LOG_FILE_DURATION="3d"
//	ENABLE_LOG_SINK="0"            # 0, 1 (or ENABLE_WINSTON)
//	LOGS_TYPE="mongodb"            # mongodb, directory
//	MONGODB_ERROR_COLLECTION_NAME="errors"   # required
//
// NODE_ENV and ENABLE_WINSTON are read only when the key they stand in for is
// unset, and violations name the key that was actually read.
//
// Durations accept Go syntax plus day and week units ("1d", "2w", "1d12h").
//
// # Usage Example
//
//	settings, err := config.LoadConfig()
//	if err != nil {
//		var cfgErr *config.ConfigurationError
//		if errors.As(err, &cfgErr) {
//			for _, v := range cfgErr.Violations {
//				log.Printf("config: %s", v)
//			}
//		}
//		os.Exit(1)
//	}
//
// # Related Packages
//
//   - pkg/auth: Uses the token settings
//   - pkg/observability: Uses the logging settings
package config
