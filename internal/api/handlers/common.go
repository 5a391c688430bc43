package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// frameCacheTTL matches the dashboard's 5-minute data cache
const frameCacheTTL = 5 * time.Minute

// writeJSON writes a JSON response with status code
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseDateRange reads optional from/to query params, defaulting to the
// trailing year ending today
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(-1, 0, 0)
	to := now

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}

	return from, to, nil
}
