package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// reject ends the request with {"error": msg} and logs the rejection with the
// request id assigned by chi's RequestID middleware.
func reject(w http.ResponseWriter, r *http.Request, status int, msg string) {
	slog.Debug("request rejected",
		"request_id", chimiddleware.GetReqID(r.Context()),
		"path", r.URL.Path,
		"status", status,
		"reason", msg,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
