package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"rubi-trail/internal/core/ports"

	"github.com/gin-gonic/gin"
)

const (
	serviceName        = "rubi-trail-backend"
	healthCheckTimeout = 3 * time.Second
)

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Banner handles GET /.
func Banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": serviceName})
}

// HealthCheck handles GET /health. Dependencies are pinged in parallel and
// any failure turns the answer into 503.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		var (
			mu      sync.Mutex
			wg      sync.WaitGroup
			deps    = make(map[string]dependencyStatus, len(checkers))
			healthy = true
		)
		for _, checker := range checkers {
			wg.Add(1)
			go func(hc ports.HealthChecker) {
				defer wg.Done()
				st := dependencyStatus{Status: "healthy"}
				if err := hc.Ping(ctx); err != nil {
					st = dependencyStatus{Status: "unhealthy", Error: err.Error()}
				}
				mu.Lock()
				deps[hc.Name()] = st
				if st.Error != "" {
					healthy = false
				}
				mu.Unlock()
			}(checker)
		}
		wg.Wait()

		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "dependencies": deps})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "dependencies": deps})
	}
}
