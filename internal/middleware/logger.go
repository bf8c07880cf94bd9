package middleware

import (
	"net/http"
	"time"

	"app/internal/logger"
)

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggerMiddleware logs each request with its status code and duration.
func LoggerMiddleware(next http.Handler) http.Handler {
	log := logger.New()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		log.Info().
			Int("status", rec.status).
			Str("duration", time.Since(start).String()).
			Msgf("%s %s", r.Method, r.URL.RequestURI())
	})
}
