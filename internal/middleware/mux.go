package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/KOFI-GYIMAH/github-popularity/pkg/errors"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/logger"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

// * RequestID reuses an incoming X-Request-ID or generates one, and echoes it back
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rr := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rr, r)

		duration := time.Since(start)

		logger.Info("%s %s %d %s [%s]", r.Method, r.RequestURI, rr.statusCode, duration, RequestIDFrom(r.Context()))
	})
}

// * Recovery turns a panic into a generic 500, the panic value only reaches the log
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				errors.WriteHTTPError(w, fmt.Errorf("panic serving %s %s [%s]: %v", r.Method, r.RequestURI, RequestIDFrom(r.Context()), rec))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (rr *responseRecorder) WriteHeader(code int) {
	rr.statusCode = code
	rr.ResponseWriter.WriteHeader(code)
}
