package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreDuckDB = "duckdb"
)

// Nearby candidate strategies.
const (
	NearbyScan = "scan"
	NearbyGeo  = "geo"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 10s
	RequestTimeout  time.Duration // per-request deadline enforced by chi

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Storage
	Store      string // "memory" | "redis" | "duckdb"
	DuckDBPath string // empty => in-memory database

	// Aggregation
	NearbyStrategy       string        // "scan" | "geo" (geo needs the redis store)
	NearbyCandidateLimit int           // cap on (object, location) candidates per nearby query
	DefaultRadiusKm      float64       // radius used when the query omits it
	TrendingWindow       time.Duration // trailing window used when the query omits it
	FeedLimit            int           // default size of the latest pulses feed

	// Ingestion
	RateLimitRequests int           // POST /api/pulse requests per window per client IP
	RateLimitWindow   time.Duration // ex: 1m

	// Catalog
	TMDBAPIKey            string        // optional, empty => fallback genre table
	TMDBBaseURL           string        // ex: https://api.themoviedb.org/3
	GenreTTL              time.Duration // how long a fetched genre table stays fresh
	GenreRefreshInterval  time.Duration // background refresh period
	StatsInterval         time.Duration // store gauges refresh period
	CatalogRequestTimeout time.Duration // per TMDB call

	// Redis (only read when Store == "redis")
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisPoolSize       int           // connection pool size
	RedisPingTimeout    time.Duration // timeout for each ping attempt
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries, doubles each attempt
	RedisMaxWait        time.Duration // cap on the wait between retries

	CORSOrigins  []string // allowed origins for browsers, empty => "*"
	AllowedCIDRS []string // optional, restricts /readyz, /infra, /metrics and /reload
	AllowedHosts []string // optional, Host headers accepted on /reload
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("PULSE_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("PULSE_SHUTDOWN_TIMEOUT", 10*time.Second),
		RequestTimeout:  mustDuration("PULSE_REQUEST_TIMEOUT", 15*time.Second),

		// Logging
		LogLevel:  getenv("PULSE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("PULSE_PRETTY_LOG", false),

		// Storage
		Store:      strings.ToLower(getenv("PULSE_STORE", StoreMemory)),
		DuckDBPath: getenv("PULSE_DUCKDB_PATH", ""),

		// Aggregation
		NearbyStrategy:       strings.ToLower(getenv("PULSE_NEARBY_STRATEGY", NearbyScan)),
		NearbyCandidateLimit: getenvInt("PULSE_NEARBY_CANDIDATE_LIMIT", 100),
		DefaultRadiusKm:      getenvFloat("PULSE_DEFAULT_RADIUS_KM", 50),
		TrendingWindow:       mustDuration("PULSE_TRENDING_WINDOW", 7*24*time.Hour),
		FeedLimit:            getenvInt("PULSE_FEED_LIMIT", 100),

		// Ingestion
		RateLimitRequests: getenvInt("PULSE_RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:   mustDuration("PULSE_RATE_LIMIT_WINDOW", time.Minute),

		// Catalog
		TMDBAPIKey:            getenv("TMDB_API_KEY", ""),
		TMDBBaseURL:           getenv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		GenreTTL:              mustDuration("PULSE_GENRE_TTL", 24*time.Hour),
		GenreRefreshInterval:  mustDuration("PULSE_GENRE_REFRESH_INTERVAL", 6*time.Hour),
		StatsInterval:         mustDuration("PULSE_STATS_INTERVAL", 30*time.Second),
		CatalogRequestTimeout: mustDuration("TMDB_REQUEST_TIMEOUT", 5*time.Second),

		// Access restrictions
		CORSOrigins:  splitAndTrim(getenv("PULSE_CORS_ORIGINS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("PULSE_ALLOWED_CIDRS", "")),
		AllowedHosts: splitAndTrim(getenv("PULSE_ALLOWED_HOSTS", "")),
		TrustProxy:   mustBool("PULSE_TRUST_PROXY", false),
	}

	switch cfg.Store {
	case StoreMemory, StoreDuckDB:
	case StoreRedis:
		loadRedis(cfg)
	default:
		panic(fmt.Sprintf("❌ FATAL: PULSE_STORE must be one of memory, redis, duckdb (got %q)", cfg.Store))
	}

	switch cfg.NearbyStrategy {
	case NearbyScan:
	case NearbyGeo:
		if cfg.Store != StoreRedis {
			panic("❌ FATAL: PULSE_NEARBY_STRATEGY=geo requires PULSE_STORE=redis")
		}
	default:
		panic(fmt.Sprintf("❌ FATAL: PULSE_NEARBY_STRATEGY must be scan or geo (got %q)", cfg.NearbyStrategy))
	}

	if cfg.NearbyCandidateLimit <= 0 {
		panic("❌ FATAL: PULSE_NEARBY_CANDIDATE_LIMIT must be positive")
	}
	if cfg.DefaultRadiusKm <= 0 {
		panic("❌ FATAL: PULSE_DEFAULT_RADIUS_KM must be positive")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfgCopy.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		if cfgCopy.TMDBAPIKey != "" {
			cfgCopy.TMDBAPIKey = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func loadRedis(cfg *Config) {
	cfg.RedisAddr = requireEnv("REDIS_ADDR")
	cfg.RedisUser = getenv("REDIS_USERNAME", "")
	cfg.RedisPassword = getenv("REDIS_PASSWORD", "")
	cfg.RedisDB = requireEnvInt("REDIS_DB")
	cfg.RedisDT = mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.RedisRT = mustDuration("REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.RedisWT = mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second)
	cfg.RedisPoolSize = getenvInt("REDIS_POOL_SIZE", 10)
	cfg.RedisPingTimeout = mustDuration("REDIS_PING_TIMEOUT", 5*time.Second)
	cfg.RedisConnectTimeout = mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second)
	cfg.RedisRetryInterval = mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second)
	cfg.RedisMaxWait = mustDuration("REDIS_MAX_WAIT", 10*time.Second)
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := requireEnv(key)
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
