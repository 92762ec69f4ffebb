package monitoring

import (
	"context"
	"time"

	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

// Heartbeater notifies an uptime monitor that a job is alive.
type Heartbeater interface {
	Heartbeat(ctx context.Context, webhookURL, chain string)
}

// InstrumentedScan runs the scan cycle of one chain as an InstrumentedJob and
// pings the heartbeat webhook after every successful cycle.
type InstrumentedScan struct {
	chain        string
	job          *InstrumentedJob
	heartbeat    Heartbeater
	heartbeatURL string
}

func NewInstrumentedScan(
	chain string,
	scan func(ctx context.Context) (map[string]any, error),
	statusManager *JobStatusManager,
	heartbeat Heartbeater,
	heartbeatURL string,
	l *logger.Logger,
	timeout time.Duration,
) *InstrumentedScan {
	return &InstrumentedScan{
		chain:        chain,
		job:          NewInstrumentedJob(JobName(chain), scan, statusManager, l, timeout),
		heartbeat:    heartbeat,
		heartbeatURL: heartbeatURL,
	}
}

// JobName is the job status key of a chain scan.
func JobName(chain string) string {
	return chain + "_block_scan"
}

func (s *InstrumentedScan) Execute(ctx context.Context) error {
	if err := s.job.Execute(ctx); err != nil {
		return err
	}
	if s.heartbeat != nil {
		s.heartbeat.Heartbeat(ctx, s.heartbeatURL, s.chain)
	}
	return nil
}
