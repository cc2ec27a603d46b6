package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string     `json:"status"`
	UptimeSeconds float64    `json:"uptime_seconds"`
	Bookmarks     int        `json:"bookmarks"`
	IndexWarmedAt *time.Time `json:"index_warmed_at,omitempty"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	Build         buildInfo  `json:"build"`
}

type buildInfo struct {
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

// Healthz is the liveness probe. It never touches the store.
func Healthz(d deps.Deps) http.HandlerFunc {
	build := buildInfo{Version: d.Version, Commit: d.Commit, Date: d.BuildDate, GoVersion: d.GoVersion}
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status:        "ok",
			UptimeSeconds: time.Since(d.StartTime).Seconds(),
			Build:         build,
		}
		if d.Index != nil {
			resp.Bookmarks = d.Index.Count()
			if at := d.Index.LastWarm(); !at.IsZero() {
				resp.IndexWarmedAt = &at
			}
		}
		if d.Sync != nil {
			if at := d.Sync.Status().At; !at.IsZero() {
				resp.LastSyncAt = &at
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
