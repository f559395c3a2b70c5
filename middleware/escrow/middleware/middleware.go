package middleware

import (
	"encoding/json"
	"net/http"

	"bount3-backend/models"
)

// Error sends a standardized error response
func Error(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message, Code: code})
}

// APIKeyValidator interface for API key validation
type APIKeyValidator interface {
	Validate(key string) bool
}

// RequireAPIKey rejects requests whose X-API-Key header fails validation.
func RequireAPIKey(v APIKeyValidator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if v != nil && !v.Validate(r.Header.Get("X-API-Key")) {
			Error(w, http.StatusForbidden, "invalid api key")
			return
		}
		next(w, r)
	}
}

// CORS middleware for handling cross-origin requests
func CORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}
