package api

import (
	"fmt"
	"net/http"
	"strconv"
)

// IntQueryParam parses a positive integer query parameter, capped at max.
// Returns the value and true if valid, or writes an error response and returns false.
func IntQueryParam(w http.ResponseWriter, r *http.Request, name string, defaultValue, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a positive integer", name))
		return 0, false
	}
	if n > max {
		n = max
	}
	return n, true
}
