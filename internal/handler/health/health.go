package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dwarvesf/chain-scanner/internal/checkpoint"
	"github.com/dwarvesf/chain-scanner/internal/monitoring"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

// HealthHandler implements IHealthHandler interface
type HealthHandler struct {
	logger           *logger.Logger
	store            checkpoint.IStore
	chains           []Chain
	jobStatusManager *monitoring.JobStatusManager
}

// New creates a new health handler instance
func New(logger *logger.Logger, store checkpoint.IStore, chains []Chain, jobStatusManager *monitoring.JobStatusManager) IHealthHandler {
	return &HealthHandler{
		logger:           logger,
		store:            store,
		chains:           chains,
		jobStatusManager: jobStatusManager,
	}
}

// Basic handles the basic health check endpoint (/healthz)
func (h *HealthHandler) Basic(c *gin.Context) {
	response := BasicHealthResponse{
		Message: "ok",
	}
	c.JSON(http.StatusOK, response)
}

// Checkpoints reads the stored checkpoint of every chain. A chain without a
// checkpoint yet is healthy; a store failure is not.
func (h *HealthHandler) Checkpoints(c *gin.Context) {
	start := time.Now()

	response := HealthResponse{
		Timestamp: start,
		Checks:    make(map[string]HealthCheck),
	}

	ctx := context.Background()
	if c.Request != nil {
		ctx = c.Request.Context()
	}

	for _, chain := range h.chains {
		response.Checks[chain.Name] = h.checkCheckpoint(ctx, chain)
	}
	response.DurationMs = time.Since(start).Milliseconds()

	response.Status = overallStatus(response.Checks)
	c.JSON(statusCode(response.Status), response)
}

// Providers asks every provider of every chain for its block head in
// parallel.
func (h *HealthHandler) Providers(c *gin.Context) {
	start := time.Now()

	response := HealthResponse{
		Timestamp: start,
		Checks:    make(map[string]HealthCheck),
	}

	baseCtx := context.Background()
	if c.Request != nil {
		baseCtx = c.Request.Context()
	}
	ctx, cancel := context.WithTimeout(baseCtx, 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, chain := range h.chains {
		wg.Add(1)
		go func() {
			defer wg.Done()
			check := h.checkProviders(ctx, chain)
			mu.Lock()
			response.Checks[chain.Name] = check
			mu.Unlock()
		}()
	}

	wg.Wait()
	response.DurationMs = time.Since(start).Milliseconds()

	response.Status = overallStatus(response.Checks)
	c.JSON(statusCode(response.Status), response)
}

func (h *HealthHandler) checkCheckpoint(ctx context.Context, chain Chain) HealthCheck {
	start := time.Now()

	check := HealthCheck{
		Metadata: make(map[string]any),
	}

	if h.store == nil {
		check.Status = statusUnhealthy
		check.Error = "checkpoint store not available"
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	getCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	height, ok, err := h.store.Get(getCtx, chain.CheckpointKey)
	check.Latency = time.Since(start).Milliseconds()
	if err != nil {
		check.Status = statusUnhealthy
		if getCtx.Err() == context.DeadlineExceeded {
			check.Error = "timeout"
		} else {
			check.Error = err.Error()
		}
		return check
	}

	check.Status = statusHealthy
	check.Metadata["key"] = chain.CheckpointKey
	if ok {
		check.Metadata["latest_block_processed"] = height
	}
	return check
}

// checkProviders is healthy when every provider answered, degraded when some
// did and unhealthy when none did.
func (h *HealthHandler) checkProviders(ctx context.Context, chain Chain) HealthCheck {
	start := time.Now()

	check := HealthCheck{
		Metadata: make(map[string]any),
	}

	if chain.Probe == nil {
		check.Status = statusUnhealthy
		check.Error = "explorer not available"
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	samples := chain.Probe.ProbeBlockHeads(ctx)
	failed := 0
	for _, s := range samples {
		if s.Error != "" {
			failed++
			check.Metadata[s.Provider] = map[string]any{"error": s.Error}
			continue
		}
		check.Metadata[s.Provider] = map[string]any{"block_head": s.Height}
	}
	check.Latency = time.Since(start).Milliseconds()

	switch {
	case len(samples) == 0 || failed == len(samples):
		check.Status = statusUnhealthy
		check.Error = "no provider answered"
	case failed > 0:
		check.Status = statusDegraded
	default:
		check.Status = statusHealthy
	}
	return check
}

func overallStatus(checks map[string]HealthCheck) string {
	status := statusHealthy
	for _, check := range checks {
		switch check.Status {
		case statusUnhealthy:
			return statusUnhealthy
		case statusDegraded:
			status = statusDegraded
		}
	}
	return status
}

func statusCode(status string) int {
	if status == statusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
