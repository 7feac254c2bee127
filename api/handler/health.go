package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tendercrawl/crawler"
	"github.com/use-agent/tendercrawl/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Status is "running" until the crawl finishes, then "completed" or
// "failed". The endpoint answers 200 in every case so probes can tell a
// finished process from a dead one.
func Health(progress *crawler.Progress, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "running"
		if progress.Phase() == crawler.PhaseDone {
			status = "completed"
			if progress.Failed() {
				status = "failed"
			}
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: Version,
		})
	}
}
