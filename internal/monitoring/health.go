package monitoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// HealthChecker reports whether the service and its database are reachable.
type HealthChecker struct {
	db      *sql.DB
	timeout time.Duration
}

func NewHealthChecker(db *sql.DB) *HealthChecker {
	return &HealthChecker{
		db:      db,
		timeout: 2 * time.Second,
	}
}

type CheckResult struct {
	Status      string    `json:"status"`
	Component   string    `json:"component"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

type SystemHealth struct {
	Status     string                  `json:"status"`
	Components map[string]*CheckResult `json:"components"`
	Timestamp  time.Time               `json:"timestamp"`
}

func (h *HealthChecker) Check(ctx context.Context) *SystemHealth {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	dbResult := &CheckResult{
		Status:      StatusUp,
		Component:   "database",
		LastChecked: time.Now(),
	}
	if err := h.db.PingContext(ctx); err != nil {
		dbResult.Status = StatusDown
		dbResult.Error = err.Error()
	}

	health := &SystemHealth{
		Status:     dbResult.Status,
		Components: map[string]*CheckResult{"database": dbResult},
		Timestamp:  time.Now(),
	}
	return health
}

// Handler serves the health report, returning 503 when any component is down.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if health.Status != StatusUp {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})
}
