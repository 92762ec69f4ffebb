package monitoring

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dwarvesf/chain-scanner/internal/explorer"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

// JobExecutionStatus represents different job execution states
type JobExecutionStatus string

const (
	JobStatusPending JobExecutionStatus = "pending"
	JobStatusRunning JobExecutionStatus = "running"
	JobStatusSuccess JobExecutionStatus = "success"
	JobStatusFailed  JobExecutionStatus = "failed"
	JobStatusStalled JobExecutionStatus = "stalled"
)

// JobStatus contains complete status information for a background job
type JobStatus struct {
	JobName             string             `json:"job_name"`
	Status              JobExecutionStatus `json:"status"`
	LastRunTime         time.Time          `json:"last_run_time"`
	LastDuration        time.Duration      `json:"last_duration_ms"`
	SuccessCount        int64              `json:"success_count"`
	FailureCount        int64              `json:"failure_count"`
	ConsecutiveFailures int64              `json:"consecutive_failures"`
	LastError           string             `json:"last_error,omitempty"`
	AverageExecution    time.Duration      `json:"average_execution_ms"`
	MaxExecutionTime    time.Duration      `json:"max_execution_ms"`
	MinExecutionTime    time.Duration      `json:"min_execution_ms"`
	Metadata            map[string]any     `json:"metadata,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// JobsSummary provides an overview of all job statuses
type JobsSummary struct {
	TotalJobs      int       `json:"total_jobs"`
	RunningJobs    int       `json:"running_jobs"`
	HealthyJobs    int       `json:"healthy_jobs"`
	UnhealthyJobs  int       `json:"unhealthy_jobs"`
	StalledJobs    int       `json:"stalled_jobs"`
	LastUpdateTime time.Time `json:"last_update_time"`
}

// JobStatusManager tracks the scan jobs of every chain.
type JobStatusManager struct {
	mu               sync.RWMutex
	statuses         map[string]*JobStatus
	logger           *logger.Logger
	metrics          *BackgroundJobMetrics
	stalledThreshold time.Duration
	now              func() time.Time
}

func NewJobStatusManager(l *logger.Logger, metrics *BackgroundJobMetrics, stalledThreshold time.Duration) *JobStatusManager {
	return &JobStatusManager{
		statuses:         make(map[string]*JobStatus),
		logger:           l,
		metrics:          metrics,
		stalledThreshold: stalledThreshold,
		now:              time.Now,
	}
}

// Start runs stalled job detection until ctx ends.
func (jsm *JobStatusManager) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jsm.detectStalledJobs()
		}
	}
}

func newJobStatus(jobName string, status JobExecutionStatus, now time.Time) *JobStatus {
	return &JobStatus{
		JobName:          jobName,
		Status:           status,
		Metadata:         make(map[string]any),
		CreatedAt:        now,
		UpdatedAt:        now,
		MinExecutionTime: time.Duration(math.MaxInt64),
	}
}

func (jsm *JobStatusManager) RegisterJob(jobName string) {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	if _, exists := jsm.statuses[jobName]; !exists {
		jsm.statuses[jobName] = newJobStatus(jobName, JobStatusPending, jsm.now())
		jsm.logger.Info("Job registered for monitoring", map[string]string{"job_name": jobName})
	}
}

func (jsm *JobStatusManager) StartJob(jobName string) {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	now := jsm.now()
	status, exists := jsm.statuses[jobName]
	if !exists {
		status = newJobStatus(jobName, JobStatusRunning, now)
		jsm.statuses[jobName] = status
	}
	status.Status = JobStatusRunning
	status.LastRunTime = now
	status.UpdatedAt = now

	jsm.metrics.activeJobs.Inc()
	jsm.logger.Debug("Job started", map[string]string{"job_name": jobName})
}

// CompleteJob records the outcome and execution time of the current run.
func (jsm *JobStatusManager) CompleteJob(jobName string, err error, metadata map[string]any) {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	status, exists := jsm.statuses[jobName]
	if !exists {
		jsm.logger.Error("Attempted to complete unregistered job", map[string]string{"job_name": jobName})
		return
	}

	now := jsm.now()
	duration := now.Sub(status.LastRunTime)
	status.LastDuration = duration
	status.UpdatedAt = now

	if duration < status.MinExecutionTime {
		status.MinExecutionTime = duration
	}
	if duration > status.MaxExecutionTime {
		status.MaxExecutionTime = duration
	}
	totalRuns := status.SuccessCount + status.FailureCount
	status.AverageExecution = (status.AverageExecution*time.Duration(totalRuns) + duration) / time.Duration(totalRuns+1)

	for key, value := range metadata {
		status.Metadata[key] = value
	}

	if err != nil {
		status.Status = JobStatusFailed
		status.FailureCount++
		status.ConsecutiveFailures++
		status.LastError = err.Error()
		status.Metadata["error_type"] = classifyJobError(err)

		jsm.metrics.jobRuns.WithLabelValues(jobName, "error").Inc()
		jsm.metrics.jobDuration.WithLabelValues(jobName, "failed").Observe(duration.Seconds())

		jsm.logger.Error("Job failed", map[string]string{
			"job_name":             jobName,
			"duration":             duration.String(),
			"error":                err.Error(),
			"consecutive_failures": strconv.FormatInt(status.ConsecutiveFailures, 10),
		})
	} else {
		status.Status = JobStatusSuccess
		status.SuccessCount++
		status.ConsecutiveFailures = 0
		status.LastError = ""
		delete(status.Metadata, "error_type")

		jsm.metrics.jobRuns.WithLabelValues(jobName, "success").Inc()
		jsm.metrics.jobDuration.WithLabelValues(jobName, "success").Observe(duration.Seconds())
	}

	jsm.metrics.activeJobs.Dec()
}

func copyStatus(status *JobStatus) JobStatus {
	out := *status
	out.Metadata = make(map[string]any, len(status.Metadata))
	for k, v := range status.Metadata {
		out.Metadata[k] = v
	}
	return out
}

func (jsm *JobStatusManager) GetJobStatus(jobName string) (*JobStatus, bool) {
	jsm.mu.RLock()
	defer jsm.mu.RUnlock()

	status, exists := jsm.statuses[jobName]
	if !exists {
		return nil, false
	}
	out := copyStatus(status)
	return &out, true
}

// GetAllJobStatuses reports running jobs past the stalled threshold as
// stalled.
func (jsm *JobStatusManager) GetAllJobStatuses() map[string]JobStatus {
	jsm.mu.RLock()
	defer jsm.mu.RUnlock()

	now := jsm.now()
	result := make(map[string]JobStatus, len(jsm.statuses))
	for name, status := range jsm.statuses {
		out := copyStatus(status)
		if status.Status == JobStatusRunning && now.Sub(status.LastRunTime) > jsm.stalledThreshold {
			out.Status = JobStatusStalled
		}
		result[name] = out
	}
	return result
}

func (jsm *JobStatusManager) GetJobsSummary() JobsSummary {
	statuses := jsm.GetAllJobStatuses()

	summary := JobsSummary{
		TotalJobs:      len(statuses),
		LastUpdateTime: jsm.now(),
	}
	for _, status := range statuses {
		switch status.Status {
		case JobStatusRunning:
			summary.RunningJobs++
		case JobStatusSuccess:
			summary.HealthyJobs++
		case JobStatusFailed:
			summary.UnhealthyJobs++
		case JobStatusStalled:
			summary.StalledJobs++
		}
	}
	return summary
}

func (jsm *JobStatusManager) detectStalledJobs() {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	now := jsm.now()
	stalledCount := 0
	for jobName, status := range jsm.statuses {
		if status.Status != JobStatusRunning || now.Sub(status.LastRunTime) <= jsm.stalledThreshold {
			continue
		}
		status.Status = JobStatusStalled
		status.UpdatedAt = now
		stalledCount++

		jsm.logger.Error("Job detected as stalled", map[string]string{
			"job_name":      jobName,
			"last_run_time": status.LastRunTime.Format(time.RFC3339),
			"duration":      now.Sub(status.LastRunTime).String(),
		})
	}
	jsm.metrics.stalledJobs.Set(float64(stalledCount))
}

// InstrumentedJob wraps a job function with monitoring, a timeout and panic
// recovery.
type InstrumentedJob struct {
	jobName       string
	jobFunc       func(ctx context.Context) (map[string]any, error)
	statusManager *JobStatusManager
	logger        *logger.Logger
	timeout       time.Duration
}

func NewInstrumentedJob(
	jobName string,
	jobFunc func(ctx context.Context) (map[string]any, error),
	statusManager *JobStatusManager,
	l *logger.Logger,
	timeout time.Duration,
) *InstrumentedJob {
	statusManager.RegisterJob(jobName)

	return &InstrumentedJob{
		jobName:       jobName,
		jobFunc:       jobFunc,
		statusManager: statusManager,
		logger:        l,
		timeout:       timeout,
	}
}

// Execute runs the job once. The job context is canceled when the timeout
// elapses or parent ends.
func (ij *InstrumentedJob) Execute(parent context.Context) error {
	ij.statusManager.StartJob(ij.jobName)

	ctx, cancel := context.WithTimeout(parent, ij.timeout)
	defer cancel()

	metadata, err := ij.run(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		ij.statusManager.metrics.jobTimeouts.WithLabelValues(ij.jobName).Inc()
		err = errors.Wrapf(err, "job timeout after %v", ij.timeout)
	}

	ij.statusManager.CompleteJob(ij.jobName, err, metadata)
	return err
}

func (ij *InstrumentedJob) run(ctx context.Context) (metadata map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("job panicked: %v", r)
			metadata = map[string]any{
				"panic":       fmt.Sprintf("%v", r),
				"stack_trace": string(debug.Stack()),
			}
			ij.logger.Error("Job panicked", map[string]string{
				"job_name": ij.jobName,
				"panic":    fmt.Sprintf("%v", r),
			})
		}
	}()
	return ij.jobFunc(ctx)
}

// BackgroundJobMetrics contains all Prometheus metrics for background job monitoring
type BackgroundJobMetrics struct {
	jobDuration *prometheus.HistogramVec
	jobRuns     *prometheus.CounterVec
	activeJobs  prometheus.Gauge
	stalledJobs prometheus.Gauge
	jobTimeouts *prometheus.CounterVec
}

func NewBackgroundJobMetrics() *BackgroundJobMetrics {
	return &BackgroundJobMetrics{
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chain_scanner_background_job_duration_seconds",
				Help:    "Background job execution duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 300, 600, 1800},
			},
			[]string{"job_name", "status"},
		),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chain_scanner_background_job_runs_total",
				Help: "Total number of background job runs",
			},
			[]string{"job_name", "status"},
		),
		activeJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chain_scanner_background_jobs_active",
				Help: "Number of currently running background jobs",
			},
		),
		stalledJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chain_scanner_background_jobs_stalled",
				Help: "Number of stalled background jobs",
			},
		),
		jobTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chain_scanner_job_timeouts_total",
				Help: "Total job timeouts",
			},
			[]string{"job_name"},
		),
	}
}

func (m *BackgroundJobMetrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(
		m.jobDuration,
		m.jobRuns,
		m.activeJobs,
		m.stalledJobs,
		m.jobTimeouts,
	)
}

func classifyJobError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case explorer.IsAllProvidersFailed(err):
		return "all_providers_failed"
	case errors.Is(err, explorer.ErrInvalidResponse):
		return "invalid_response"
	default:
		return string(classifyError(err))
	}
}
