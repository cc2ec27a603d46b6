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

// Store backends accepted by SHELF_STORE_BACKEND.
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Tree formats accepted by SHELF_TREE_FORMAT.
const (
	TreeChrome           = "chrome"
	TreeHomepage         = "homepage"
	TreeHomepageServices = "homepage-services"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Storage
	StoreBackend string // redis | sqlite | memory
	KeyPrefix    string // prefix applied to every key by the backend (ex: "shelf:")
	SQLitePath   string // database file when StoreBackend == sqlite

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // dial timeout
	RedisRT               time.Duration // read timeout
	RedisWT               time.Duration // write timeout
	RedisMaxWait          time.Duration // max wait between connect retries
	RedisPingTimeout      time.Duration // timeout for each ping attempt
	RedisPoolSize         int           // connection pool size
	RedisConnectTimeout   time.Duration // total time to retry connecting
	RedisRetryInterval    time.Duration // initial wait between retries (grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Cross-context lock
	LockLease       time.Duration // lease duration written in the lock record
	LockHeartbeat   time.Duration // renewal interval while holding the lock
	LockRetryBase   time.Duration // base delay between acquisition attempts
	LockRetryJitter time.Duration // random jitter added to LockRetryBase
	LockTimeout     time.Duration // 0 = wait forever
	LockSettle      time.Duration // delay between the lock write and the confirming re-read

	// External tree sync
	TreeFormat          string        // chrome | homepage | homepage-services
	TreeFile            string        // path to the external tree (empty = sync disabled)
	SyncInterval        time.Duration // periodic sync interval
	SyncWatch           bool          // re-sync when TreeFile changes on disk
	SyncAllowEmpty      bool          // accept an empty tree (deletes every external item)
	SyncIncludeMobile   bool          // import Chrome "Mobile bookmarks"
	MaintenanceInterval time.Duration // sort reindex + layout repair interval

	AllowedCIDRS    []string // optional, restrict mutating endpoints to these IPs/CIDRs
	TrustProxy      bool     // true => trust X-Forwarded-For headers
	RateLimitBurst  int      // per-IP burst on mutating endpoints (0 = no limit)
	RateLimitPerMin int      // per-IP refill rate on mutating endpoints
	SearchLimit     int      // default max hits returned by /search
}

func Load() *Config {
	// A missing .env is the normal case in containers.
	_ = godotenv.Load()

	cfg := &Config{
		ListenPort:      getenv("SHELF_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SHELF_SHUTDOWN_TIMEOUT", 5*time.Second),

		LogLevel:  getenv("SHELF_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SHELF_PRETTY_LOG", true),

		StoreBackend: strings.ToLower(getenv("SHELF_STORE_BACKEND", BackendRedis)),
		KeyPrefix:    getenv("SHELF_KEY_PREFIX", "shelf:"),
		SQLitePath:   getenv("SHELF_SQLITE_PATH", "/data/shelf.db"),

		RedisUser:             getenv("SHELF_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("SHELF_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("SHELF_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("SHELF_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		LockLease:       mustDuration("SHELF_LOCK_LEASE", 4*time.Second),
		LockHeartbeat:   mustDuration("SHELF_LOCK_HEARTBEAT", 1*time.Second),
		LockRetryBase:   mustDuration("SHELF_LOCK_RETRY_BASE", 20*time.Millisecond),
		LockRetryJitter: mustDuration("SHELF_LOCK_RETRY_JITTER", 30*time.Millisecond),
		LockTimeout:     mustDuration("SHELF_LOCK_TIMEOUT", 0),
		LockSettle:      mustDuration("SHELF_LOCK_SETTLE", 10*time.Millisecond),

		TreeFormat:          strings.ToLower(getenv("SHELF_TREE_FORMAT", TreeChrome)),
		TreeFile:            getenv("SHELF_TREE_FILE", ""), // empty = sync disabled
		SyncInterval:        mustDuration("SHELF_SYNC_INTERVAL", time.Hour),
		SyncWatch:           mustBool("SHELF_SYNC_WATCH", true),
		SyncAllowEmpty:      mustBool("SHELF_SYNC_ALLOW_EMPTY", false),
		SyncIncludeMobile:   mustBool("SHELF_SYNC_INCLUDE_MOBILE", false),
		MaintenanceInterval: mustDuration("SHELF_MAINTENANCE_INTERVAL", 24*time.Hour),

		AllowedCIDRS:    parseAllowedIPs(getenv("SHELF_ALLOWED_CIDRS", "")),
		TrustProxy:      mustBool("SHELF_TRUST_PROXY", false),
		RateLimitBurst:  getenvInt("SHELF_RATE_LIMIT_BURST", 20),
		RateLimitPerMin: getenvInt("SHELF_RATE_LIMIT_PER_MIN", 60),
		SearchLimit:     getenvInt("SHELF_SEARCH_LIMIT", 20),
	}

	switch cfg.StoreBackend {
	case BackendRedis:
		cfg.RedisAddr = requireEnv("SHELF_REDIS_ADDR")
		if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
			panic("❌ FATAL: SHELF_REDIS_PASSWORD is required when SHELF_REDIS_PASSWORD_REQUIRED=true")
		}
	case BackendSQLite, BackendMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: unknown SHELF_STORE_BACKEND %q (want redis, sqlite or memory)", cfg.StoreBackend))
	}

	switch cfg.TreeFormat {
	case TreeChrome, TreeHomepage, TreeHomepageServices:
	default:
		panic(fmt.Sprintf("❌ FATAL: unknown SHELF_TREE_FORMAT %q (want chrome, homepage or homepage-services)", cfg.TreeFormat))
	}

	if cfg.LockHeartbeat >= cfg.LockLease {
		panic(fmt.Sprintf("❌ FATAL: SHELF_LOCK_HEARTBEAT (%v) must be shorter than SHELF_LOCK_LEASE (%v)",
			cfg.LockHeartbeat, cfg.LockLease))
	}

	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
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

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
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
	return splitAndTrim(allowed)
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
