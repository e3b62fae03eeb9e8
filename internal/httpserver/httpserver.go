// Package httpserver exposes the service endpoints next to the Telegram
// webhook: liveness, metrics and a landing page for uptime pingers.
package httpserver

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register installs the handlers on the DefaultServeMux. The default mux is
// deliberate: the bot library registers its webhook handler there too, so
// one listener serves everything. db may be nil when caching is disabled.
func Register(db *sql.DB) {
	http.Handle("/metrics", promhttp.Handler())
	// Pure liveness: never touches OCR, models or the database.
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	http.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("image translation bot"))
	})
}

// Start blocks on the listener; callers run it on the main goroutine in
// webhook mode and on a side goroutine in polling mode.
func Start(addr string) error {
	return http.ListenAndServe(addr, nil)
}
