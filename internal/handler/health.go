package handler

import (
	"net/http"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping() error
}

// HandleHealth returns 200 when the database answers and 503 otherwise.
func HandleHealth(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
