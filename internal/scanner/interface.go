package scanner

import (
	"context"
	"time"

	"github.com/dwarvesf/chain-scanner/internal/model"
)

// IExplorer is the part of explorer.Explorer the scanner walks blocks with.
type IExplorer interface {
	Chain() string
	GetSafeBlockHead(ctx context.Context) (int64, error)
	GetBlockTxs(ctx context.Context, height int64) ([]model.TransferTx, error)
	GetBatchBlockTxs(ctx context.Context, from, to int64) ([]model.TransferTx, error)
	SupportsBatchBlocks() bool
}

// ISink receives the result of every committed cycle before the checkpoint
// moves.
type ISink interface {
	Publish(ctx context.Context, result model.ScanResult) error
}

type IMetrics interface {
	SetLatestBlockProcessed(chain string, height int64)
	SetServiceDelay(chain string, delay time.Duration)
	IncScanCycle(chain, status string)
}
