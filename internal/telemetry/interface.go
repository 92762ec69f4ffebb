package telemetry

import (
	"context"

	"github.com/dwarvesf/chain-scanner/internal/model"
)

// IScanner is the per chain scan loop driven by Telemetry.
type IScanner interface {
	Chain() string
	Run(ctx context.Context) (model.ScanResult, error)
	ScanRange(ctx context.Context, after, to int64) (model.ScanResult, error)
}

type ITelemetry interface {
	Chains() []string
	ScanChain(ctx context.Context, chain string) (map[string]any, error)
	Backfill(ctx context.Context, chain string, after, to int64) (BackfillReport, error)
}
