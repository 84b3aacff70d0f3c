package config

import "time"

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment        string
	Addr               string
	DatabaseURL        string
	MigrationsDir      string
	JWTSecret          string
	TokenTTL           time.Duration
	GroqAPIKey         string
	GroqAPIURL         string
	GroqModel          string
	GroqTimeout        time.Duration
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// Development reports whether the service runs in development mode.
// Error responses include stack traces only in this mode.
func (c APIConfig) Development() bool {
	return c.Environment == "development"
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":4000"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://taskhive:taskhive@db:5432/taskhive?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		JWTSecret:          GetString("JWT_SECRET", "supersecuresecret"),
		TokenTTL:           time.Duration(GetInt("TOKEN_TTL_DAYS", 30)) * 24 * time.Hour,
		GroqAPIKey:         GetString("GROQ_API_KEY", ""),
		GroqAPIURL:         GetString("GROQ_API_URL", "https://api.groq.com/openai/v1/chat/completions"),
		GroqModel:          GetString("GROQ_MODEL", "llama3-8b-8192"),
		GroqTimeout:        time.Duration(GetInt("GROQ_TIMEOUT_SECONDS", 30)) * time.Second,
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}
