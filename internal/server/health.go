package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	commonhttp "github.com/sngm3741/store-catalog/api/internal/interfaces/http/common"
)

type healthCheck func(ctx context.Context) error

// healthHandler はインフラ (Mongo, 設定時は Redis) の疎通のみを返す。
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for _, name := range names {
			if err := s.checks[name](ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		body["time"] = time.Now().Format(time.RFC3339)

		commonhttp.WriteJSON(s.logger, w, status, body)
	}
}
