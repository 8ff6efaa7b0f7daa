package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/KOFI-GYIMAH/github-popularity/internal/models"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/errors"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/logger"
	"github.com/gorilla/mux"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type PopularityService interface {
	GetPopularRepositories(ctx context.Context, since, language string) ([]models.RankedRepository, error)
	ListRecentSearches(ctx context.Context, limit int) ([]models.SearchRecord, error)
}

type WarmupPublisher interface {
	PublishWarmupRequest(ctx context.Context, req models.WarmupRequest) error
}

type PopularityHandler struct {
	service   PopularityService
	publisher WarmupPublisher
}

// * publisher may be nil when no queue is configured, warm-up requests are then rejected
func NewPopularityHandler(service PopularityService, publisher WarmupPublisher) *PopularityHandler {
	return &PopularityHandler{
		service:   service,
		publisher: publisher,
	}
}

func (h *PopularityHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/repositories/popular", h.getPopularRepositories).Methods("GET")
	r.HandleFunc("/repositories/popular/history", h.getSearchHistory).Methods("GET")
	r.HandleFunc("/repositories/popular/warmup", h.warmup).Methods("POST")
}

// getPopularRepositories godoc
// @Summary Get Popular Repositories
// @Description Ranks repositories created after a date for a language by stars, forks and freshness
// @Tags Popularity
// @Produce json
// @Param since query string true "Creation date cutoff (YYYY-MM-DD)"
// @Param language query string true "Primary language, case-sensitive"
// @Success 200 {object} models.PopularRepositoriesResponse
// @Success 204 "No repositories matched"
// @Failure 400 {object} errors.HTTPErrorResponse
// @Failure 500 {object} errors.HTTPErrorResponse
// @Router /repositories/popular [get]
func (h *PopularityHandler) getPopularRepositories(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	since, language, err := validateQuery(query.Get("since"), query.Get("language"))
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}

	items, err := h.service.GetPopularRepositories(r.Context(), since, language)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}

	if len(items) == 0 {
		logger.Info("No popular repositories for [date=%s, lang=%s]", since, language)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	logger.Info("Ranked %d repositories for [date=%s, lang=%s]", len(items), since, language)
	writeSuccess(w, models.PopularRepositoriesResponse{
		Count: len(items),
		Items: items,
	}, "Successfully ranked repositories")
}

// getSearchHistory godoc
// @Summary Get Search History
// @Description Lists the most recent aggregations with their result counts and timings
// @Tags Popularity
// @Produce json
// @Param limit query int false "Max records to return" default(20)
// @Success 200 {array} models.SearchRecord
// @Failure 409 {object} errors.HTTPErrorResponse "History disabled"
// @Failure 500 {object} errors.HTTPErrorResponse
// @Router /repositories/popular/history [get]
func (h *PopularityHandler) getSearchHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	records, err := h.service.ListRecentSearches(r.Context(), limit)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}

	if records == nil {
		records = []models.SearchRecord{}
	}

	writeSuccess(w, records, "Successfully fetched search history")
}

// warmup godoc
// @Summary Queue Cache Warm-up
// @Description Queues a background refresh of the ranking for a date and language
// @Tags Popularity
// @Accept json
// @Produce json
// @Param request body models.WarmupRequest true "Query to warm up"
// @Success 202 {object} models.WarmupRequest
// @Failure 400 {object} errors.HTTPErrorResponse
// @Failure 409 {object} errors.HTTPErrorResponse "Queue disabled"
// @Failure 500 {object} errors.HTTPErrorResponse
// @Router /repositories/popular/warmup [post]
func (h *PopularityHandler) warmup(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		errors.WriteHTTPError(w, errors.New(
			errors.RefFeatureDisabled,
			"Warm-up queue disabled",
			"Queued warm-ups require RabbitMQ, set RABBITMQ_URL to enable them",
			nil,
			errors.LevelWarning,
		))
		return
	}

	var req models.WarmupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteHTTPError(w, invalidRequest("Request body must be a JSON object with 'since' and 'language'."))
		return
	}

	since, language, err := validateQuery(req.Since, req.Language)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	req = models.WarmupRequest{Since: since, Language: language}

	if err := h.publisher.PublishWarmupRequest(r.Context(), req); err != nil {
		errors.WriteHTTPError(w, err)
		return
	}

	logger.Info("Queued warm-up for [date=%s, lang=%s]", since, language)
	writeResponse(w, http.StatusAccepted, req, "Warm-up queued")
}
