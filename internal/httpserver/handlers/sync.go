package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// TriggerSync queues a tree sync: 202 when queued, 429 when one is already
// running or pending, 404 when no tree is configured.
func TriggerSync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Sync == nil {
			writeError(w, http.StatusNotFound, "tree sync is not configured")
			return
		}

		if !d.Sync.Trigger() {
			d.Logger.Warn("tree sync already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			writeError(w, http.StatusTooManyRequests, "sync already in progress, please wait")
			return
		}

		d.Logger.Info("manual tree sync triggered via endpoint",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "sync triggered"})
	}
}

func SyncStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Sync == nil {
			writeError(w, http.StatusNotFound, "tree sync is not configured")
			return
		}
		writeJSON(w, http.StatusOK, d.Sync.Status())
	}
}
