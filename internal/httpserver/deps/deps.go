package deps

import (
	"time"

	"github.com/MrSnakeDoc/shelf/internal/index"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/repository"
	"github.com/MrSnakeDoc/shelf/internal/scheduler"
)

// SyncTrigger is the manual entry point into the tree sync loop.
type SyncTrigger interface {
	Trigger() bool
	Status() scheduler.SyncStatus
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	AllowedCIDRS []string               // IPs allowed to call mutating endpoints
	TrustProxy   bool                   // true if running behind a trusted reverse proxy
	RateLimit    RateLimit              // per-IP limit on mutating endpoints
	Repo         *repository.Repository // persisted collections
	Index        *index.MemoryIndex     // search index fed by the repository
	Sync         SyncTrigger            // nil when no tree file is configured
	SearchLimit  int                    // default max hits for /search
	ReadyTimeout time.Duration          // store ping timeout for /readyz
}

// RateLimit mirrors mw.RateLimitConfig without importing mw.
type RateLimit struct {
	Burst     int
	PerMinute int
}
