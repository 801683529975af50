package server

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a structured error response
func respondError(w http.ResponseWriter, status int, message, code string) {
	respondJSON(w, status, ErrorResponse{
		Error:      message,
		Code:       code,
		Suggestion: getErrorSuggestion(code),
	})
}

var errorSuggestions = map[string]string{
	"invalid_item_id":     "The item ID should be a number.",
	"item_not_found":      "The item may not exist yet. List items to find a valid ID.",
	"list_failed":         "The items file could not be read. Check that it exists and contains a JSON array.",
	"read_failed":         "The items file could not be read. Check that it exists and contains a JSON array.",
	"stats_failed":        "The items file could not be read. Check that it exists and contains a JSON array.",
	"save_failed":         "The item could not be saved. Check file permissions on the data directory.",
	"validation_failed":   "Name and category are required and price must be zero or more.",
	"parse_error":         "Send a JSON object with name, category and price.",
	"rate_limit_exceeded": "Too many requests. Wait a moment and try again.",
}

// getErrorSuggestion returns a user-friendly suggestion based on error code
func getErrorSuggestion(code string) string {
	if suggestion, ok := errorSuggestions[code]; ok {
		return suggestion
	}
	return "If the problem persists, check the application logs for more details."
}
