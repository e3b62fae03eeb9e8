// Package keepalive pings the service's own public URL so free-tier hosts
// do not idle the process out between messages.
package keepalive

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Run pings url every interval until ctx is cancelled. Failures are logged
// and the loop keeps going; a missed ping is not worth crashing over.
func Run(ctx context.Context, url string, interval time.Duration, log *zap.SugaredLogger) {
	if url == "" || interval <= 0 {
		return
	}
	client := &http.Client{Timeout: 10 * time.Second}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				log.Warnw("keepalive request build failed", "err", err)
				continue
			}
			resp, err := client.Do(req)
			if err != nil {
				log.Warnw("keepalive ping failed", "url", url, "err", err)
				continue
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				log.Warnw("keepalive ping unhealthy", "url", url, "status", resp.StatusCode)
			}
		}
	}
}
