package health

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dwarvesf/chain-scanner/internal/monitoring"
)

// consecutive failures after which a failing scan job makes the service
// unhealthy
const criticalFailures = 2

// Jobs handles the background jobs health check endpoint
func (h *HealthHandler) Jobs(c *gin.Context) {
	start := time.Now()

	// Handle case where job status manager is not available
	if h.jobStatusManager == nil {
		response := JobsHealthResponse{
			Status:     statusUnhealthy,
			Timestamp:  time.Now(),
			Jobs:       make(map[string]monitoring.JobStatus),
			Summary:    monitoring.JobsSummary{},
			DurationMs: time.Since(start).Milliseconds(),
		}
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	jobs := h.jobStatusManager.GetAllJobStatuses()
	summary := h.jobStatusManager.GetJobsSummary()

	status := statusHealthy
	if summary.StalledJobs > 0 {
		status = statusUnhealthy
	} else if summary.UnhealthyJobs > 0 {
		status = statusDegraded
		for _, chain := range h.chains {
			job, exists := jobs[monitoring.JobName(chain.Name)]
			if exists && job.Status == monitoring.JobStatusFailed && job.ConsecutiveFailures > criticalFailures {
				status = statusUnhealthy
				break
			}
		}
	}

	response := JobsHealthResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Jobs:       jobs,
		Summary:    summary,
		DurationMs: time.Since(start).Milliseconds(),
	}

	code := http.StatusOK
	if status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	} else if status == statusDegraded {
		code = http.StatusPartialContent
	}

	h.logger.Debug("Jobs health check completed", map[string]string{
		"overall_status": status,
		"duration":       strconv.FormatInt(response.DurationMs, 10) + "ms",
		"total_jobs":     strconv.Itoa(summary.TotalJobs),
		"unhealthy_jobs": strconv.Itoa(summary.UnhealthyJobs),
		"stalled_jobs":   strconv.Itoa(summary.StalledJobs),
		"running_jobs":   strconv.Itoa(summary.RunningJobs),
	})

	c.JSON(code, response)
}
