package api

import (
	"log/slog"
	"net/http"
	"time"

	verrs "github.com/jbellamy/veilleur/internal/errors"
)

func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		writer := &respCodeWriter{ResponseWriter: w}
		next.ServeHTTP(writer, r)

		slog.Info("request completed",
			"method", r.Method,
			"url", r.URL.String(),
			"duration", time.Since(start),
			"status_code", writer.code,
		)
	})
}

// To trap the response status code for logging later.
type respCodeWriter struct {
	http.ResponseWriter
	code int
}

func (w *respCodeWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// userIDHeader identifies the acting user for read/pin state. Identity is
// handled upstream; this service trusts the header.
const userIDHeader = "X-User-ID"

func requestUserID(r *http.Request) (string, error) {
	id := r.Header.Get(userIDHeader)
	if id == "" {
		return "", verrs.E("missing user header", http.StatusUnauthorized)
	}

	return id, nil
}
