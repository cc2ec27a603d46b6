package version

import (
	"runtime"
	"time"
)

// Set through -ldflags "-X github.com/MrSnakeDoc/shelf/internal/version.Version=..."
var (
	Version   = "dev"                           // ex: v0.3.0
	Commit    = "none"                          // ex: 9f3c2e1
	BuildDate = time.Now().Format(time.RFC3339) // ex: 2026-03-02T09:15:00Z
	GoVersion = runtime.Version()
)
