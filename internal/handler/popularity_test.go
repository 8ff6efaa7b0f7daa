package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KOFI-GYIMAH/github-popularity/internal/cache"
	"github.com/KOFI-GYIMAH/github-popularity/internal/gateway"
	"github.com/KOFI-GYIMAH/github-popularity/internal/models"
	apperrors "github.com/KOFI-GYIMAH/github-popularity/pkg/errors"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPopularityService struct {
	mock.Mock
}

func (m *MockPopularityService) GetPopularRepositories(ctx context.Context, since, language string) ([]models.RankedRepository, error) {
	args := m.Called(ctx, since, language)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RankedRepository), args.Error(1)
}

func (m *MockPopularityService) ListRecentSearches(ctx context.Context, limit int) ([]models.SearchRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SearchRecord), args.Error(1)
}

type MockWarmupPublisher struct {
	mock.Mock
}

func (m *MockWarmupPublisher) PublishWarmupRequest(ctx context.Context, req models.WarmupRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func newRouter(h *PopularityHandler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/v1").Subrouter())
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()
	var resp apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestGetPopularRepositories(t *testing.T) {
	ranked := []models.RankedRepository{
		{FullName: "user/r2", Stars: 1000, Forks: 50, Language: "Java", PopularityScore: 4.5, URL: "https://github.com/user/r2"},
		{FullName: "user/r1", Stars: 100, Forks: 10, Language: "Java", PopularityScore: 1.78, URL: "https://github.com/user/r1"},
	}

	svc := new(MockPopularityService)
	svc.On("GetPopularRepositories", mock.Anything, "2023-01-01", "Java").Return(ranked, nil)

	rec := serve(newRouter(NewPopularityHandler(svc, nil)), "GET", "/v1/repositories/popular?since=2023-01-01&language=Java", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Status string                             `json:"status"`
		Data   models.PopularRepositoriesResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, 2, body.Data.Count)
	assert.Equal(t, ranked, body.Data.Items)
	svc.AssertExpectations(t)
}

func TestGetPopularRepositories_JSONFieldNames(t *testing.T) {
	svc := new(MockPopularityService)
	svc.On("GetPopularRepositories", mock.Anything, "2023-01-01", "Go").Return([]models.RankedRepository{
		{FullName: "user/r1", Stars: 1, Forks: 2, Language: "Go", PopularityScore: 1.5, URL: "u"},
	}, nil)

	rec := serve(newRouter(NewPopularityHandler(svc, nil)), "GET", "/v1/repositories/popular?since=2023-01-01&language=Go", "")

	var raw struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "success", raw.Status)
	assert.EqualValues(t, 1, raw.Data["count"])

	items, ok := raw.Data["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	for _, field := range []string{"fullName", "stars", "forks", "language", "popularityScore", "url"} {
		assert.Contains(t, item, field)
	}
}

func TestGetPopularRepositories_EmptyIsNoContent(t *testing.T) {
	svc := new(MockPopularityService)
	svc.On("GetPopularRepositories", mock.Anything, "2023-01-01", "Cobol").Return([]models.RankedRepository{}, nil)

	rec := serve(newRouter(NewPopularityHandler(svc, nil)), "GET", "/v1/repositories/popular?since=2023-01-01&language=Cobol", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestGetPopularRepositories_Validation(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		detail string
	}{
		{"missing since", "?language=Java", "Missing required parameter: 'since'."},
		{"bad since", "?since=01-01-2023&language=Java", "Invalid value ('01-01-2023') for parameter 'since'. Expected format: YYYY-MM-DD."},
		{"impossible date", "?since=2023-02-30&language=Java", "Invalid value ('2023-02-30') for parameter 'since'. Expected format: YYYY-MM-DD."},
		{"missing language", "?since=2023-01-01", "Missing required parameter: 'language'."},
		{"blank language", "?since=2023-01-01&language=%20%20", "Missing required parameter: 'language'."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPopularityService)

			rec := serve(newRouter(NewPopularityHandler(svc, nil)), "GET", "/v1/repositories/popular"+tt.query, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, apperrors.RefInvalidRequest, resp.ErrorRef)
			assert.Equal(t, tt.detail, resp.Detail)
			svc.AssertNotCalled(t, "GetPopularRepositories", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGetPopularRepositories_LanguageIsPassedVerbatim(t *testing.T) {
	svc := new(MockPopularityService)
	svc.On("GetPopularRepositories", mock.Anything, "2023-01-01", "C++").Return([]models.RankedRepository{}, nil)

	rec := serve(newRouter(NewPopularityHandler(svc, nil)), "GET", "/v1/repositories/popular?since=2023-01-01&language=C%2B%2B", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetPopularRepositories_UnexpectedErrorIsGeneric(t *testing.T) {
	svc := new(MockPopularityService)
	svc.On("GetPopularRepositories", mock.Anything, "2023-01-01", "Java").Return(nil, errors.New("pq: secret internal detail"))

	rec := serve(newRouter(NewPopularityHandler(svc, nil)), "GET", "/v1/repositories/popular?since=2023-01-01&language=Java", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")

	resp := decodeError(t, rec)
	assert.Equal(t, "Internal Server Error", resp.Title)
	assert.NotEmpty(t, resp.ErrorRef)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestGetSearchHistory(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		expectedLimit int
	}{
		{"default limit", "", 20},
		{"custom limit", "?limit=5", 5},
		{"limit too large", "?limit=1000", 20},
		{"invalid limit", "?limit=abc", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPopularityService)
			svc.On("ListRecentSearches", mock.Anything, tt.expectedLimit).Return(nil, nil)

			rec := serve(newRouter(NewPopularityHandler(svc, nil)), "GET", "/v1/repositories/popular/history"+tt.query, "")

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"status":"success","data":[],"message":"Successfully fetched search history"}`, rec.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestGetSearchHistory_Disabled(t *testing.T) {
	svc := new(MockPopularityService)
	svc.On("ListRecentSearches", mock.Anything, 20).Return(nil, apperrors.New(
		apperrors.RefFeatureDisabled, "Search history disabled", "", nil, apperrors.LevelWarning))

	rec := serve(newRouter(NewPopularityHandler(svc, nil)), "GET", "/v1/repositories/popular/history", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperrors.RefFeatureDisabled, decodeError(t, rec).ErrorRef)
}

func TestWarmup(t *testing.T) {
	publisher := new(MockWarmupPublisher)
	publisher.On("PublishWarmupRequest", mock.Anything, models.WarmupRequest{Since: "2024-01-01", Language: "Go"}).Return(nil)

	rec := serve(newRouter(NewPopularityHandler(new(MockPopularityService), publisher)),
		"POST", "/v1/repositories/popular/warmup", `{"since":"2024-01-01","language":"Go"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	publisher.AssertExpectations(t)
}

func TestWarmup_Errors(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		publishErr     error
		withPublisher  bool
		expectedStatus int
		expectedRef    string
	}{
		{"queue disabled", `{"since":"2024-01-01","language":"Go"}`, nil, false, http.StatusConflict, apperrors.RefFeatureDisabled},
		{"malformed body", `{"since":`, nil, true, http.StatusBadRequest, apperrors.RefInvalidRequest},
		{"invalid date", `{"since":"yesterday","language":"Go"}`, nil, true, http.StatusBadRequest, apperrors.RefInvalidRequest},
		{"missing language", `{"since":"2024-01-01"}`, nil, true, http.StatusBadRequest, apperrors.RefInvalidRequest},
		{
			"publish failure",
			`{"since":"2024-01-01","language":"Go"}`,
			apperrors.New(apperrors.RefQueuePublish, "Failed to queue warm-up", "", nil, apperrors.LevelFatal),
			true,
			http.StatusInternalServerError,
			apperrors.RefQueuePublish,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h *PopularityHandler
			if tt.withPublisher {
				publisher := new(MockWarmupPublisher)
				publisher.On("PublishWarmupRequest", mock.Anything, mock.Anything).Return(tt.publishErr).Maybe()
				h = NewPopularityHandler(new(MockPopularityService), publisher)
			} else {
				h = NewPopularityHandler(new(MockPopularityService), nil)
			}

			rec := serve(newRouter(h), "POST", "/v1/repositories/popular/warmup", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedRef, decodeError(t, rec).ErrorRef)
		})
	}
}

type stubBreaker struct{ stats gateway.Stats }

func (s stubBreaker) Stats() gateway.Stats { return s.stats }

type stubCache struct{ stats cache.Stats }

func (s stubCache) Stats() cache.Stats { return s.stats }

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		state    string
		expected string
	}{
		{"closed breaker", "closed", "ok"},
		{"open breaker", "open", "degraded"},
		{"half-open breaker", "half-open", "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mux.NewRouter()
			NewHealthHandler(
				stubBreaker{gateway.Stats{State: tt.state, Requests: 7, TotalFailures: 2}},
				stubCache{cache.Stats{Entries: 3, Hits: 10, Misses: 4}},
			).RegisterRoutes(r.PathPrefix("/v1").Subrouter())

			rec := serve(r, "GET", "/v1/health", "")

			assert.Equal(t, http.StatusOK, rec.Code)

			var body struct {
				Data HealthResponse `json:"data"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.expected, body.Data.Status)
			assert.Equal(t, tt.state, body.Data.Breaker.State)
			assert.Equal(t, uint32(7), body.Data.Breaker.Requests)
			assert.Equal(t, cache.Stats{Entries: 3, Hits: 10, Misses: 4}, body.Data.Cache)
		})
	}
}
