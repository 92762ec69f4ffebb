package telemetry

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

var (
	ErrUnknownChain   = errors.New("unknown chain")
	ErrScanInProgress = errors.New("scan already in progress")
)

type chainScan struct {
	scanner IScanner
	mu      sync.Mutex
}

// Telemetry owns the scanners of every enabled chain. At most one scan runs
// per chain at a time; a tick arriving while the previous cycle is still
// running is skipped.
type Telemetry struct {
	chains map[string]*chainScan
	logger *logger.Logger
}

func New(scanners []IScanner, logger *logger.Logger) *Telemetry {
	t := &Telemetry{
		chains: make(map[string]*chainScan, len(scanners)),
		logger: logger,
	}
	for _, s := range scanners {
		t.chains[s.Chain()] = &chainScan{scanner: s}
	}
	return t
}

func (t *Telemetry) Chains() []string {
	out := make([]string, 0, len(t.chains))
	for name := range t.chains {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ScanChain runs one cycle for chain and returns the job metadata describing
// it.
func (t *Telemetry) ScanChain(ctx context.Context, chain string) (map[string]any, error) {
	cs, ok := t.chains[chain]
	if !ok {
		return nil, errors.Wrap(ErrUnknownChain, chain)
	}
	if !cs.mu.TryLock() {
		t.logger.Warn("[ScanChain] previous cycle still running, skipping", map[string]string{
			"chain": chain,
		})
		return nil, ErrScanInProgress
	}
	defer cs.mu.Unlock()

	result, err := cs.scanner.Run(ctx)
	if err != nil {
		return nil, err
	}
	return resultMetadata(result), nil
}

// BackfillReport sums up the windows published by one Backfill call.
type BackfillReport struct {
	Chain      string
	FromHeight int64
	// ToHeight is the last height published. It is below the requested end
	// when a window failed.
	ToHeight        int64
	Windows         int
	OutputAddresses model.AddressSet
	InputAddresses  model.AddressSet
}

func (r *BackfillReport) add(result model.ScanResult) {
	if r.Windows == 0 {
		r.FromHeight = result.FromHeight
	}
	r.ToHeight = result.ToHeight
	r.Windows++
	for address := range result.Addresses.OutputAddresses {
		r.OutputAddresses.Add(address)
	}
	for address := range result.Addresses.InputAddresses {
		r.InputAddresses.Add(address)
	}
}

// Backfill rescans (after, to] for chain one window at a time, publishing
// each window. It shares the single flight guard with ScanChain. On error the
// report still describes the windows already published.
func (t *Telemetry) Backfill(ctx context.Context, chain string, after, to int64) (BackfillReport, error) {
	report := BackfillReport{
		Chain:           chain,
		ToHeight:        after,
		OutputAddresses: model.AddressSet{},
		InputAddresses:  model.AddressSet{},
	}
	cs, ok := t.chains[chain]
	if !ok {
		return report, errors.Wrap(ErrUnknownChain, chain)
	}
	if after < 0 || to <= after {
		return report, errors.Errorf("invalid range (%d, %d]", after, to)
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	t.logger.Info("[Backfill] scanning range", map[string]string{
		"chain": chain,
		"after": strconv.FormatInt(after, 10),
		"to":    strconv.FormatInt(to, 10),
	})
	for next := after; next < to; next = report.ToHeight {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result, err := cs.scanner.ScanRange(ctx, next, to)
		if err != nil {
			return report, errors.Wrapf(err, "window after %d", next)
		}
		if result.Empty() {
			break
		}
		report.add(result)
	}
	return report, nil
}

func resultMetadata(result model.ScanResult) map[string]any {
	if result.Empty() {
		return map[string]any{"blocks_scanned": 0}
	}
	return map[string]any{
		"from_height":            result.FromHeight,
		"to_height":              result.ToHeight,
		"latest_block_processed": result.LatestBlockProcessed,
		"blocks_scanned":         result.ToHeight - result.FromHeight + 1,
		"output_addresses":       len(result.Addresses.OutputAddresses),
		"input_addresses":        len(result.Addresses.InputAddresses),
	}
}
