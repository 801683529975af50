package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hakimbdev/items-api/internal/items"
)

// HandleListItems serves a page of items, optionally filtered by name
func (s *Server) HandleListItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))

	result, err := s.store.List(r.Context(), items.Query{
		Search: query.Get("q"),
		Page:   ValidatePage(page),
		Limit:  ValidateLimit(limit, s.config.DefaultPageSize, s.config.MaxPageSize),
	})
	if err != nil {
		s.logRequestError(r, err, "Failed to list items")
		respondError(w, http.StatusInternalServerError, "Failed to list items", "list_failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// HandleGetItem serves a single item by ID
func (s *Server) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid item ID", "invalid_item_id")
		return
	}

	item, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, items.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Item not found", "item_not_found")
			return
		}
		s.logRequestError(r, err, "Failed to get item")
		respondError(w, http.StatusInternalServerError, "Failed to get item", "read_failed")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// HandleCreateItem appends a new item to the store
func (s *Server) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	var payload items.NewItem
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Request body must be a JSON object", "parse_error")
		return
	}

	item, err := s.store.Create(r.Context(), payload)
	if err != nil {
		if errors.Is(err, items.ErrInvalidItem) {
			respondError(w, http.StatusBadRequest, err.Error(), "validation_failed")
			return
		}
		s.logRequestError(r, err, "Failed to create item")
		respondError(w, http.StatusInternalServerError, "Failed to save item", "save_failed")
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

// HandleStats serves the statistics summary, from cache when possible
func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Summary(r.Context())
	if err != nil {
		s.logRequestError(r, err, "Failed to calculate stats")
		respondError(w, http.StatusInternalServerError, "Failed to calculate stats", "stats_failed")
		return
	}

	resp := StatsResponse{
		Summary: result.Summary,
		Cached:  result.Cached,
	}
	if result.Cached {
		age := result.Age.Milliseconds()
		resp.CacheAge = &age
	}

	respondJSON(w, http.StatusOK, resp)
}

// HandleHealth serves the health check endpoint
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Checks:  make(map[string]interface{}),
	}

	storeHealth := map[string]string{"status": "ok"}
	if _, err := s.store.Load(r.Context()); err != nil {
		storeHealth["status"] = "error"
		storeHealth["error"] = err.Error()
		health.Status = "degraded"
	}
	health.Checks["store"] = storeHealth

	_, cached := s.engine.Cache().Get()
	health.Checks["stats_cache"] = StatsCacheHealthCheck{
		Watch:  s.engine.State().String(),
		Cached: cached,
	}

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	respondJSON(w, statusCode, health)
}

func (s *Server) logRequestError(r *http.Request, err error, msg string) {
	s.log.Error().
		Err(err).
		Str("request_id", GetRequestID(r.Context())).
		Str("path", r.URL.Path).
		Msg(msg)
}
