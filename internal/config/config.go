package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port                   string
	BackendBaseURL         string
	BackendAPIToken        string
	RedisURL               string
	CacheTTLStatistics     time.Duration
	CacheTTLStatisticsHard time.Duration
	RequestTimeout         time.Duration
	StatisticsTimeout      time.Duration
	RateLimitPerMin        int
	CircuitFailLimit       int
	CircuitCooldown        time.Duration
	MaxCompareVendors      int
	CompareConcurrency     int
	AllowedOrigin          string
	LogLevel               string
	LogFormat              string
	ServiceVersion         string
}

func Load() Config {
	return Config{
		Port:                   getEnv("PORT", "8080"),
		BackendBaseURL:         strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:8000/api"), "/"),
		BackendAPIToken:        getEnv("BACKEND_API_TOKEN", ""),
		RedisURL:               getEnv("REDIS_URL", "redis://localhost:6379"),
		CacheTTLStatistics:     getEnvDuration("CACHE_TTL_STATISTICS", 300*time.Second),
		CacheTTLStatisticsHard: getEnvDuration("CACHE_TTL_STATISTICS_HARD", 86400*time.Second),
		RequestTimeout:         getEnvDuration("REQUEST_TIMEOUT", 12*time.Second),
		StatisticsTimeout:      getEnvDuration("STATISTICS_TIMEOUT", 60*time.Second),
		RateLimitPerMin:        getEnvInt("RATE_LIMIT_PER_MIN", 120),
		CircuitFailLimit:       getEnvInt("CIRCUIT_FAIL_LIMIT", 3),
		CircuitCooldown:        getEnvDuration("CIRCUIT_COOLDOWN", 20*time.Second),
		MaxCompareVendors:      getEnvInt("MAX_COMPARE_VENDORS", 20),
		CompareConcurrency:     getEnvInt("COMPARE_CONCURRENCY", 4),
		AllowedOrigin:          getEnv("ALLOWED_ORIGIN", "*"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "json"),
		ServiceVersion:         getEnv("SERVICE_VERSION", "dev"),
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvDuration reads a whole number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(i) * time.Second
}
