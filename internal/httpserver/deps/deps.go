package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/pulse/internal/live"
	"github.com/MrSnakeDoc/pulse/internal/logger"
	"github.com/MrSnakeDoc/pulse/internal/pulse"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	Pulses    *pulse.Service // ingestion and aggregation
	Live      *live.Hub      // nil disables /api/pulse/live
	StoreKind string         // memory, redis or duckdb, reported by /infra

	RedisClient *redis.Client // nil unless the redis store is used

	AllowedCIDRS      []string      // IPs allowed on /readyz, /infra, /metrics and /reload
	AllowedHosts      []string      // Host headers accepted on /reload
	TrustProxy        bool          // resolve client IPs from proxy headers
	CORSOrigins       []string      // browser origins, empty => any
	RateLimitRequests int           // pulse submissions per window and client IP
	RateLimitWindow   time.Duration // window for RateLimitRequests

	ReloadTrigger chan struct{} // genre cache refresh requests
}
