package db

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Checker is one dependency reported by the health endpoint.
type Checker interface {
	Name() string
	Ping(ctx context.Context) error
}

// statter is implemented by checkers that can describe their connections.
type statter interface {
	Stats() any
}

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// PoolChecker reports on a pgx pool.
type PoolChecker struct{ Pool *pgxpool.Pool }

func (PoolChecker) Name() string                     { return "postgres" }
func (p PoolChecker) Ping(ctx context.Context) error { return p.Pool.Ping(ctx) }
func (p PoolChecker) Stats() any                     { return GetPoolStats(p.Pool) }

// SQLChecker reports on a database/sql handle.
type SQLChecker struct {
	Label string
	DB    *sql.DB
}

func (s SQLChecker) Name() string                   { return s.Label }
func (s SQLChecker) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }
func (s SQLChecker) Stats() any {
	st := s.DB.Stats()
	return map[string]int{"open_conns": st.OpenConnections, "in_use": st.InUse, "idle": st.Idle}
}

// CheckResult is the per-dependency part of the health response.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Stats  any    `json:"stats,omitempty"`
}

// HealthHandler pings every checker and answers 503 when any of them fails.
func HealthHandler(checkers ...Checker) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		status := "healthy"
		code := http.StatusOK
		checks := make(map[string]CheckResult, len(checkers))
		for _, ch := range checkers {
			res := CheckResult{Status: "healthy"}
			if err := ch.Ping(ctx); err != nil {
				res.Status = "unhealthy"
				res.Error = err.Error()
				status = "unhealthy"
				code = http.StatusServiceUnavailable
			}
			if s, ok := ch.(statter); ok {
				res.Stats = s.Stats()
			}
			checks[ch.Name()] = res
		}

		return c.JSON(code, map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	}
}
