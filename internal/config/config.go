package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	DBDSN     string
	DBTimeout time.Duration

	JWTSecret   string
	CORSOrigins string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PayoutBaseURL      string
	PayoutAPIKey       string
	PayoutPrivateKey   string
	PayoutMerchantCode string
}

// Load reads the configuration from the environment. Missing required keys
// and malformed numbers are reported together.
func Load() (Config, error) {
	var problems []string

	timeoutMS, err := strconv.Atoi(get("DB_TIMEOUT_MS", "5000"))
	if err != nil || timeoutMS <= 0 {
		problems = append(problems, "DB_TIMEOUT_MS must be a positive integer")
	}
	redisDB, err := strconv.Atoi(get("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		problems = append(problems, "REDIS_DB must be a non-negative integer")
	}

	cfg := Config{
		AppPort:  get("APP_PORT", "8080"),
		AppEnv:   strings.ToLower(get("APP_ENV", "development")),
		LogLevel: get("LOG_LEVEL", "info"),

		DBDSN:     must("DB_DSN", &problems),
		DBTimeout: time.Duration(timeoutMS) * time.Millisecond,

		JWTSecret:   must("JWT_SECRET", &problems),
		CORSOrigins: get("CORS_ORIGINS", "http://localhost:3000"),

		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		PayoutBaseURL:      get("PAYOUT_BASE_URL", ""),
		PayoutAPIKey:       get("PAYOUT_API_KEY", ""),
		PayoutPrivateKey:   get("PAYOUT_PRIVATE_KEY", ""),
		PayoutMerchantCode: get("PAYOUT_MERCHANT_CODE", ""),
	}

	if cfg.PayoutBaseURL != "" && (cfg.PayoutAPIKey == "" || cfg.PayoutPrivateKey == "" || cfg.PayoutMerchantCode == "") {
		problems = append(problems, "PAYOUT_API_KEY, PAYOUT_PRIVATE_KEY and PAYOUT_MERCHANT_CODE are required with PAYOUT_BASE_URL")
	}
	if HasWildcardOrigin(cfg.CORSOrigins) {
		problems = append(problems, "CORS_ORIGINS must list explicit origins, credentials are allowed")
	}
	if cfg.IsProduction() && cfg.PayoutBaseURL == "" {
		problems = append(problems, "PAYOUT_BASE_URL is required in production")
	}

	if len(problems) > 0 {
		return Config{}, fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

func (c Config) IsProduction() bool { return c.AppEnv == "production" }

func get(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func must(k string, problems *[]string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		*problems = append(*problems, "missing env: "+k)
	}
	return v
}

// HasWildcardOrigin reports whether a comma separated origin list contains "*".
func HasWildcardOrigin(origins string) bool {
	for _, o := range strings.Split(origins, ",") {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
