// Package health provides the liveness endpoint for the gateway.
package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Status is the liveness response body.
type Status struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime"`
}

// Checker reports process liveness. It carries no backend state; the
// gateway is alive as soon as it can answer, regardless of upstream
// availability.
type Checker struct {
	version string
	started time.Time
}

// NewChecker creates a Checker stamped with the build version.
func NewChecker(version string) *Checker {
	return &Checker{
		version: version,
		started: time.Now(),
	}
}

// Uptime returns the time elapsed since the checker was created.
func (c *Checker) Uptime() time.Duration {
	return time.Since(c.started)
}

// Handler returns the gin handler for the liveness endpoint.
func (c *Checker) Handler() gin.HandlerFunc {
	return func(gc *gin.Context) {
		gc.JSON(http.StatusOK, Status{
			Status:  "ok",
			Version: c.version,
			Uptime:  c.Uptime().Round(time.Second).String(),
		})
	}
}
