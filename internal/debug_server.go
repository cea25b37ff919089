package internal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// StatsProvider feeds the debug endpoint; see observability.Monitor.
type StatsProvider func() map[string]any

// StartDebugServer exposes runtime stats as JSON on /stats. It is a
// side surface for operators and tests, never required by the room
// core, and runs on its own listener so the main server port stays
// clean.
func StartDebugServer(log *slog.Logger, port int, statsProvider StatsProvider) {
	mux := http.NewServeMux()

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := map[string]any{}
		if statsProvider != nil {
			stats = statsProvider()
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Warn("failed to encode stats", "error", err)
		}
	})

	go func() {
		// All interfaces on purpose, the stats page is meant to be
		// reachable from the operator's machine.
		if err := http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux); err != nil {
			log.Warn("debug server stopped", "error", err)
		}
	}()
}
