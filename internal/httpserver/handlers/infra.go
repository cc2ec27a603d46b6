package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/scheduler"
)

type componentStatus struct {
	OK         bool                  `json:"ok"`
	Items      *int                  `json:"items,omitempty"`
	LastReload string                `json:"last_reload,omitempty"`
	Mode       string                `json:"mode,omitempty"`
	Error      string                `json:"error,omitempty"`
	LastSync   *scheduler.SyncStatus `json:"last_sync,omitempty"`
	LockOwner  string                `json:"lock_owner,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of the store, the search index and the tree sync.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"store": checkStore(r.Context(), d),
			"index": indexStatus(d),
			"sync":  syncStatus(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if !components["store"].OK {
		return "critical" // no reads or writes possible
	}
	if s := components["sync"]; !s.OK && s.Mode != "disabled" {
		return "degraded"
	}
	return "ok"
}

func checkStore(parent context.Context, d deps.Deps) componentStatus {
	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()

	if err := d.Repo.Ping(ctx); err != nil {
		return componentStatus{OK: false, Error: err.Error(), LockOwner: d.Repo.Owner()}
	}
	return componentStatus{OK: true, LockOwner: d.Repo.Owner()}
}

func indexStatus(d deps.Deps) componentStatus {
	count := d.Index.Count()
	last := d.Index.LastWarm()
	lastStr := "never"
	if !last.IsZero() {
		lastStr = last.Format("2006-01-02 15:04:05")
	}
	return componentStatus{OK: true, Items: &count, LastReload: lastStr, Mode: "fuzzy"}
}

func syncStatus(d deps.Deps) componentStatus {
	if d.Sync == nil {
		return componentStatus{OK: true, Mode: "disabled"}
	}
	st := d.Sync.Status()
	return componentStatus{OK: st.Error == "", Mode: "enabled", LastSync: &st, Error: st.Error}
}
