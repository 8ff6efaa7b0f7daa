package handler

import (
	"net/http"

	"github.com/KOFI-GYIMAH/github-popularity/internal/cache"
	"github.com/KOFI-GYIMAH/github-popularity/internal/gateway"
	"github.com/gorilla/mux"
)

type BreakerStats interface {
	Stats() gateway.Stats
}

type CacheStats interface {
	Stats() cache.Stats
}

type HealthHandler struct {
	breaker BreakerStats
	cache   CacheStats
}

func NewHealthHandler(breaker BreakerStats, cache CacheStats) *HealthHandler {
	return &HealthHandler{breaker: breaker, cache: cache}
}

func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.health).Methods("GET")
}

// health godoc
// @Summary Health
// @Description Reports the upstream circuit breaker state and cache counters
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) health(w http.ResponseWriter, r *http.Request) {
	breaker := h.breaker.Stats()

	status := "ok"
	if breaker.State != "closed" {
		status = "degraded"
	}

	writeSuccess(w, HealthResponse{
		Status:  status,
		Breaker: breaker,
		Cache:   h.cache.Stats(),
	}, "Service is running")
}
