package handler

import (
	"context"
	"net/http"
	"time"

	"qr-loyalty-backend/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// healthProbeTimeout bounds each dependency ping.
const healthProbeTimeout = 2 * time.Second

type dependencyStatus struct {
	Status   string `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

// HealthCheck handles GET /health. A failing critical dependency makes the
// report "unhealthy" with 503; a failing optional one only "degraded".
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		deps := make(map[string]dependencyStatus, len(checkers))
		status, code := "healthy", http.StatusOK

		for _, checker := range checkers {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
			err := checker.Ping(ctx)
			cancel()

			dep := dependencyStatus{Status: "healthy", Critical: checker.Critical()}
			if err != nil {
				dep.Status, dep.Error = "unhealthy", err.Error()
				switch {
				case dep.Critical:
					status, code = "unhealthy", http.StatusServiceUnavailable
				case code == http.StatusOK:
					status = "degraded"
				}
			}
			deps[checker.Name()] = dep
		}

		c.JSON(code, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
