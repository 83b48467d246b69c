// Package config provides application configuration management from environment variables.
//
// # Overview
//
// LoadConfig starts from Default, overlays the YAML file named by
// LARDER_CONFIG_FILE when set, applies LARDER_* environment variables on top
// and validates the result. Environment variables always win.
//
// # Configuration Structure
//
// Server settings:
//
//	LARDER_ENV="production"          # enables Secure cookies
//	LARDER_PORT="5000"
//	LARDER_HEALTH_PORT="9090"
//	LARDER_TRUST_PROXY="true"        # honor X-Forwarded-For
//	LARDER_CORS_ORIGINS="https://app.example"
//
// Session settings:
//
//	LARDER_JWT_SECRET="..."          # required, 32+ bytes in production
//	LARDER_TOKEN_TTL="1h"
//	LARDER_BCRYPT_COST="10"
//
// Storage settings:
//
//	LARDER_STORAGE_TYPE="mongo"      # memory, mongo
//	LARDER_MONGO_URI="mongodb://localhost:27017"
//	LARDER_MONGO_DATABASE="larder"
//	LARDER_REDIS_URL="redis://localhost:6379"
//	LARDER_CACHE_ENABLED="true"
//
// Rate limit, audit and purge settings:
//
//	LARDER_LOGIN_RATE_LIMIT="5"
//	LARDER_API_RATE_LIMIT="100"
//	LARDER_AUDIT_POSTGRES_URL="postgres://localhost/larder_audit"
//	LARDER_PURGE_SCHEDULE="@every 15m"
//
// Observability settings:
//
//	LARDER_LOG_LEVEL="info"  # debug, info, warn, error
//	LARDER_OTEL_ENABLED="true"
//	LARDER_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	http.SetCookie(w, cfg.Cookie().Issue(token))
//
// # Related Packages
//
//   - pkg/storage: Uses storage configuration
//   - pkg/observability: Uses observability configuration
package config
