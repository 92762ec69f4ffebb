package explorer

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dwarvesf/chain-scanner/internal/consts"
	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

type Config struct {
	Chain string
	// Providers holds the ordered candidates of each operation, earliest preferred.
	Providers map[Operation][]IProvider
	// UseAggregation merges block results of every candidate instead of
	// stopping at the first success.
	UseAggregation bool
	MaxWorkers     int
	CaseSensitive  bool
}

// Explorer executes chain operations against an ordered list of providers
// with fallback.
type Explorer struct {
	cfg     Config
	metrics IMetrics
	logger  *logger.Logger
}

func New(cfg Config, metrics IMetrics, logger *logger.Logger) *Explorer {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = consts.DEFAULT_SCAN_WORKERS
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Explorer{
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.With(map[string]string{"chain": cfg.Chain}),
	}
}

func (e *Explorer) Chain() string { return e.cfg.Chain }

func (e *Explorer) SupportsBatchBlocks() bool {
	return len(e.cfg.Providers[OpBatchBlockTxs]) > 0
}

func (e *Explorer) UseAggregation() bool { return e.cfg.UseAggregation }

func (e *Explorer) candidates(op Operation) []IProvider {
	providers := e.cfg.Providers[op]
	if op == OpBlockHead && len(providers) == 0 {
		return e.cfg.Providers[OpBlockTxs]
	}
	return providers
}

// Providers returns every distinct provider bound to any operation, by name.
func (e *Explorer) Providers() []IProvider {
	seen := map[string]IProvider{}
	for _, providers := range e.cfg.Providers {
		for _, p := range providers {
			seen[p.Name()] = p
		}
	}
	out := make([]IProvider, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// execute tries the candidates of op in order and returns the first success
// along with the provider that produced it.
func execute[T any](ctx context.Context, e *Explorer, op Operation, call func(context.Context, IProvider) (T, error)) (T, IProvider, error) {
	var zero T
	candidates := e.candidates(op)
	failed := &AllProvidersFailedError{Chain: e.cfg.Chain, Operation: op}
	if len(candidates) == 0 {
		failed.Errors = append(failed.Errors, ErrNoProviders)
		return zero, nil, failed
	}

	for _, p := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, nil, err
		}
		res, err := call(ctx, p)
		if err == nil {
			return res, p, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, nil, ctxErr
		}
		failed.Errors = append(failed.Errors, err)
		e.recordFailure(op, p, err)
	}
	return zero, nil, failed
}

func (e *Explorer) recordFailure(op Operation, p IProvider, err error) {
	fields := map[string]string{
		"provider":  p.Name(),
		"operation": string(op),
		"error":     err.Error(),
	}
	switch {
	case errors.Is(err, ErrNotSupported):
	case errors.Is(err, ErrInvalidResponse):
		if op == OpBlockTxs || op == OpBatchBlockTxs {
			e.metrics.IncMissedBlockTxs(e.cfg.Chain, p.Name())
		}
		e.logger.Debug("[Explorer.execute][invalid response]", fields)
	default:
		e.metrics.IncAPIError(e.cfg.Chain, p.Name())
		e.logger.Error("[Explorer.execute][provider failed]", fields)
	}
}

// headFor returns the block head of p when its parsers need one.
func headFor(ctx context.Context, p IProvider) (int64, error) {
	if !p.NeedBlockHead() {
		return 0, nil
	}
	return p.GetBlockHead(ctx)
}

func (e *Explorer) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	res, _, err := execute(ctx, e, OpBalance, func(ctx context.Context, p IProvider) (decimal.Decimal, error) {
		return p.GetBalance(ctx, address)
	})
	return res, err
}

func (e *Explorer) GetTokenBalance(ctx context.Context, address string, contract model.ContractInfo) (decimal.Decimal, error) {
	res, _, err := execute(ctx, e, OpTokenBalance, func(ctx context.Context, p IProvider) (decimal.Decimal, error) {
		return p.GetTokenBalance(ctx, address, contract)
	})
	return res, err
}

func (e *Explorer) GetTxDetails(ctx context.Context, txHash string) ([]model.TransferTx, error) {
	res, _, err := execute(ctx, e, OpTxDetails, func(ctx context.Context, p IProvider) ([]model.TransferTx, error) {
		head, err := headFor(ctx, p)
		if err != nil {
			return nil, err
		}
		return p.GetTxDetails(ctx, txHash, head)
	})
	return res, err
}

// GetAddressTxs returns the native transfers touching address, filtered by
// direction.
func (e *Explorer) GetAddressTxs(ctx context.Context, address string, direction Direction) ([]model.TransferTx, error) {
	res, _, err := execute(ctx, e, OpAddressTxs, func(ctx context.Context, p IProvider) ([]model.TransferTx, error) {
		head, err := headFor(ctx, p)
		if err != nil {
			return nil, err
		}
		return p.GetAddressTxs(ctx, address, head)
	})
	if err != nil {
		return nil, err
	}
	return FilterDirection(address, res, direction), nil
}

func (e *Explorer) GetTokenTxs(ctx context.Context, address string, contract model.ContractInfo, direction Direction) ([]model.TransferTx, error) {
	res, _, err := execute(ctx, e, OpTokenTxs, func(ctx context.Context, p IProvider) ([]model.TransferTx, error) {
		head, err := headFor(ctx, p)
		if err != nil {
			return nil, err
		}
		return p.GetTokenTxs(ctx, address, contract, head)
	})
	if err != nil {
		return nil, err
	}
	return FilterDirection(address, res, direction), nil
}

func (e *Explorer) GetBlockHead(ctx context.Context) (int64, error) {
	res, _, err := execute(ctx, e, OpBlockHead, func(ctx context.Context, p IProvider) (int64, error) {
		return p.GetBlockHead(ctx)
	})
	return res, err
}

// GetSafeBlockHead returns the head minus the answering provider's
// reorg safety offset.
func (e *Explorer) GetSafeBlockHead(ctx context.Context) (int64, error) {
	head, p, err := execute(ctx, e, OpBlockHead, func(ctx context.Context, p IProvider) (int64, error) {
		return p.GetBlockHead(ctx)
	})
	if err != nil {
		return 0, err
	}
	return head - p.BlockHeightOffset(), nil
}

func (e *Explorer) GetBlockTxs(ctx context.Context, height int64) ([]model.TransferTx, error) {
	call := func(ctx context.Context, p IProvider) ([]model.TransferTx, error) {
		return p.GetBlockTxs(ctx, height)
	}
	if e.cfg.UseAggregation {
		return e.aggregate(ctx, OpBlockTxs, call)
	}
	res, _, err := execute(ctx, e, OpBlockTxs, call)
	return res, err
}

func (e *Explorer) GetBatchBlockTxs(ctx context.Context, from, to int64) ([]model.TransferTx, error) {
	call := func(ctx context.Context, p IProvider) ([]model.TransferTx, error) {
		return p.GetBatchBlockTxs(ctx, from, to)
	}
	if e.cfg.UseAggregation {
		return e.aggregate(ctx, OpBatchBlockTxs, call)
	}
	res, _, err := execute(ctx, e, OpBatchBlockTxs, call)
	return res, err
}

// aggregate asks every candidate concurrently and merges their transfers,
// dropping duplicates. Results keep candidate order. It fails only when no
// candidate succeeded.
func (e *Explorer) aggregate(ctx context.Context, op Operation, call func(context.Context, IProvider) ([]model.TransferTx, error)) ([]model.TransferTx, error) {
	candidates := e.candidates(op)
	failed := &AllProvidersFailedError{Chain: e.cfg.Chain, Operation: op}
	if len(candidates) == 0 {
		failed.Errors = append(failed.Errors, ErrNoProviders)
		return nil, failed
	}

	results := make([][]model.TransferTx, len(candidates))
	errs := make([]error, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxWorkers)
	for i, p := range candidates {
		g.Go(func() error {
			results[i], errs[i] = call(gctx, p)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var merged []model.TransferTx
	seen := map[string]struct{}{}
	succeeded := 0
	for i, p := range candidates {
		if errs[i] != nil {
			failed.Errors = append(failed.Errors, errs[i])
			e.recordFailure(op, p, errs[i])
			continue
		}
		succeeded++
		for _, tx := range results[i] {
			key := tx.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, tx)
		}
	}
	if succeeded == 0 {
		return nil, failed
	}
	if merged == nil {
		merged = []model.TransferTx{}
	}
	return merged, nil
}

func (e *Explorer) findProvider(name string) (IProvider, bool) {
	for _, providers := range e.cfg.Providers {
		for _, p := range providers {
			if p.Name() == name {
				return p, true
			}
		}
	}
	return nil, false
}

// SampleBlockHead asks one named provider for its head, bypassing fallback.
func (e *Explorer) SampleBlockHead(ctx context.Context, providerName string) (int64, error) {
	p, ok := e.findProvider(providerName)
	if !ok {
		return 0, errors.Errorf("provider %s is not configured for %s", providerName, e.cfg.Chain)
	}
	return p.GetBlockHead(ctx)
}

type HeadSample struct {
	Provider string `json:"provider"`
	Height   int64  `json:"height"`
	Error    string `json:"error,omitempty"`
}

// ProbeBlockHeads asks every provider for its head concurrently.
func (e *Explorer) ProbeBlockHeads(ctx context.Context) []HeadSample {
	providers := e.Providers()
	samples := make([]HeadSample, len(providers))

	var g errgroup.Group
	g.SetLimit(e.cfg.MaxWorkers)
	for i, p := range providers {
		g.Go(func() error {
			samples[i].Provider = p.Name()
			height, err := p.GetBlockHead(ctx)
			if err != nil {
				samples[i].Error = err.Error()
				return nil
			}
			samples[i].Height = height
			return nil
		})
	}
	_ = g.Wait()
	return samples
}

// MaxBlockHead returns the highest head reported by any provider.
func (e *Explorer) MaxBlockHead(ctx context.Context) (int64, error) {
	var highest int64
	failed := &AllProvidersFailedError{Chain: e.cfg.Chain, Operation: OpBlockHead}
	for _, s := range e.ProbeBlockHeads(ctx) {
		if s.Error != "" {
			failed.Errors = append(failed.Errors, errors.New(s.Error))
			continue
		}
		if s.Height > highest {
			highest = s.Height
		}
	}
	if highest == 0 {
		if len(failed.Errors) == 0 {
			failed.Errors = append(failed.Errors, ErrNoProviders)
		}
		return 0, failed
	}
	return highest, nil
}
