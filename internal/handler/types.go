package handler

import (
	"github.com/KOFI-GYIMAH/github-popularity/internal/cache"
	"github.com/KOFI-GYIMAH/github-popularity/internal/gateway"
)

type APIResponse struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Breaker gateway.Stats `json:"circuit_breaker"`
	Cache   cache.Stats   `json:"cache"`
}
