package app

import (
	"context"
	"fmt"
	"time"

	"contribs/internal/shared/observability"
)

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) observability.HealthStatus {
	status := observability.HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if s.app.Stdlib.Len() == 0 {
		status.Status = "degraded"
		status.Components["stdlib"] = "empty"
	} else {
		status.Components["stdlib"] = fmt.Sprintf("ok (%d modules)", s.app.Stdlib.Len())
	}

	if s.app.resolver != nil {
		status.Components["resolver"] = "ok"
		ps := s.app.resolver.ParserStats()
		status.Components["parser"] = fmt.Sprintf("ok (%d parsed, %d leased)", ps.Parsed, ps.Leased)
	} else {
		status.Status = "degraded"
		status.Components["resolver"] = "missing"
	}

	// The store is optional for resolve-only runs.
	if s.app.store != nil {
		if err := s.app.store.Ping(); err != nil {
			status.Status = "degraded"
			status.Components["store"] = "error: " + err.Error()
		} else {
			status.Components["store"] = "ok"
		}
	}

	return status
}
