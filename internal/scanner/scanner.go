package scanner

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/dwarvesf/chain-scanner/internal/checkpoint"
	"github.com/dwarvesf/chain-scanner/internal/consts"
	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

var (
	ErrNoSafeHead   = errors.New("safe block head is not positive")
	ErrInvalidRange = errors.New("invalid scan range")
)

type Config struct {
	Chain string
	// CacheKey namespaces the checkpoint of this chain inside CachePrefix.
	CacheKey      string
	CachePrefix   string
	WindowCap     int64
	Lookback      int64
	MaxWorkers    int
	CheckpointTTL time.Duration
	// IncludeInputs also tracks senders and outgoing transfers.
	IncludeInputs bool
	CaseSensitive bool
}

func (c Config) withDefaults() Config {
	if c.CacheKey == "" {
		c.CacheKey = c.Chain
	}
	if c.WindowCap <= 0 {
		c.WindowCap = consts.DEFAULT_WINDOW_CAP
	}
	if c.Lookback <= 0 {
		c.Lookback = consts.DEFAULT_LOOKBACK
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = consts.DEFAULT_SCAN_WORKERS
	}
	if c.CheckpointTTL <= 0 {
		c.CheckpointTTL = consts.DEFAULT_CHECKPOINT_TTL
	}
	return c
}

// Scanner walks the latest blocks of one chain. Cycles of the same Scanner
// must not overlap; the caller schedules them single-flight.
type Scanner struct {
	cfg      Config
	explorer IExplorer
	store    checkpoint.IStore
	sink     ISink
	metrics  IMetrics
	logger   *logger.Logger
	now      func() time.Time

	mu    sync.RWMutex
	state State
}

func New(cfg Config, explorer IExplorer, store checkpoint.IStore, sink ISink, metrics IMetrics, l *logger.Logger) *Scanner {
	cfg = cfg.withDefaults()
	return &Scanner{
		cfg:      cfg,
		explorer: explorer,
		store:    store,
		sink:     sink,
		metrics:  metrics,
		logger:   l.With(map[string]string{"chain": cfg.Chain}),
		now:      time.Now,
		state:    StateIdle,
	}
}

func (s *Scanner) Chain() string { return s.cfg.Chain }

func (s *Scanner) CheckpointKey() string {
	return checkpoint.Key(s.cfg.CachePrefix, s.cfg.CacheKey)
}

func (s *Scanner) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Scanner) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run scans the blocks between the stored checkpoint and the safe head.
func (s *Scanner) Run(ctx context.Context) (model.ScanResult, error) {
	return s.scan(ctx, s.liveWindow)
}

// ScanRange scans the first window of (after, to]. Both bounds are taken as
// given, so after may be zero to start from genesis. Callers covering a range
// wider than WindowCap call it again from the returned ToHeight.
func (s *Scanner) ScanRange(ctx context.Context, after, to int64) (model.ScanResult, error) {
	return s.scan(ctx, func(context.Context) (Window, error) {
		if after < 0 || to <= after {
			return Window{Min: after + 1, Max: to + 1}, errors.Wrapf(ErrInvalidRange, "(%d, %d]", after, to)
		}
		return ComputeWindow(to, after, s.cfg.WindowCap), nil
	})
}

// scan runs one cycle over the window returned by next. The checkpoint only
// moves when every block of the window was fetched and the result was
// published.
func (s *Scanner) scan(ctx context.Context, next func(context.Context) (Window, error)) (model.ScanResult, error) {
	s.setState(StateComputeWindow)
	window, err := next(ctx)
	if err != nil {
		return model.ScanResult{}, s.fail("[Scanner.scan][computeWindow]", window, err)
	}

	result := model.ScanResult{
		Chain:                s.cfg.Chain,
		FromHeight:           window.Min,
		ToHeight:             window.Last(),
		LatestBlockProcessed: window.Min - 1,
		Addresses:            model.NewTxAddresses(),
		Info:                 model.NewTxsInfo(),
	}
	if window.Empty() {
		s.logger.Debug("[Scanner.scan] no new blocks", map[string]string{
			"min_height": strconv.FormatInt(window.Min, 10),
		})
		s.metrics.IncScanCycle(s.cfg.Chain, cycleNoop)
		s.setState(StateIdle)
		return result, nil
	}

	s.setState(StateFetching)
	transfers, err := s.fetch(ctx, window)
	if err != nil {
		return model.ScanResult{}, s.fail("[Scanner.scan][fetch]", window, err)
	}

	s.setState(StateAggregating)
	result.Addresses, result.Info = s.aggregate(transfers)
	result.LatestBlockProcessed = window.Last()

	s.setState(StateCommitting)
	if err := s.commit(ctx, window, result, transfers); err != nil {
		return model.ScanResult{}, s.fail("[Scanner.scan][commit]", window, err)
	}

	s.logger.Info("[Scanner.scan] window committed", map[string]string{
		"min_height": strconv.FormatInt(window.Min, 10),
		"max_height": strconv.FormatInt(window.Last(), 10),
		"transfers":  strconv.Itoa(len(transfers)),
	})
	s.metrics.IncScanCycle(s.cfg.Chain, cycleSuccess)
	s.setState(StateIdle)
	return result, nil
}

func (s *Scanner) fail(msg string, window Window, err error) error {
	s.setState(StateFailed)
	s.metrics.IncScanCycle(s.cfg.Chain, cycleFailed)
	s.logger.Error(msg, map[string]string{
		"min_height": strconv.FormatInt(window.Min, 10),
		"max_height": strconv.FormatInt(window.Max, 10),
		"error":      err.Error(),
	})
	return err
}

// liveWindow starts after the stored checkpoint, or Lookback blocks below the
// safe head when none is stored.
func (s *Scanner) liveWindow(ctx context.Context) (Window, error) {
	safeHead, err := s.explorer.GetSafeBlockHead(ctx)
	if err != nil {
		return Window{}, errors.Wrap(err, "get safe block head")
	}
	if safeHead <= 0 {
		return Window{}, errors.Wrapf(ErrNoSafeHead, "chain %s head %d", s.cfg.Chain, safeHead)
	}

	processed, ok, err := s.store.Get(ctx, s.CheckpointKey())
	if err != nil {
		return Window{}, errors.Wrap(err, "read checkpoint")
	}
	if !ok {
		processed = safeHead - s.cfg.Lookback
	}
	return ComputeWindow(safeHead, processed, s.cfg.WindowCap), nil
}

// fetch returns the transfers of every height in window, ordered by height.
// Any failed height fails the whole window.
func (s *Scanner) fetch(ctx context.Context, window Window) ([]model.TransferTx, error) {
	if s.explorer.SupportsBatchBlocks() {
		txs, err := s.explorer.GetBatchBlockTxs(ctx, window.Min, window.Max)
		if err != nil {
			return nil, errors.Wrapf(err, "batch blocks %d..%d", window.Min, window.Last())
		}
		return txs, nil
	}

	blocks := make([][]model.TransferTx, window.Size())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxWorkers)
	for height := window.Min; height < window.Max; height++ {
		g.Go(func() error {
			txs, err := s.explorer.GetBlockTxs(gctx, height)
			if err != nil {
				return errors.Wrapf(err, "block %d", height)
			}
			blocks[height-window.Min] = txs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.TransferTx
	for _, txs := range blocks {
		out = append(out, txs...)
	}
	return out, nil
}

// aggregate builds the address index of a window. Receivers are always
// tracked; senders and outgoing transfers only with IncludeInputs, merged by
// tx hash.
func (s *Scanner) aggregate(transfers []model.TransferTx) (model.TxAddresses, model.TxsInfo) {
	addresses := model.NewTxAddresses()
	info := model.NewTxsInfo()

	for _, tx := range transfers {
		if !tx.Success || tx.IsSelfTransfer(s.cfg.CaseSensitive) {
			continue
		}
		currency := strings.ToLower(tx.Symbol)
		entry := model.TxInfo{
			TxHash:          tx.TxHash,
			Value:           tx.Value,
			ContractAddress: tx.Token,
			BlockHeight:     tx.BlockHeight,
			Symbol:          tx.Symbol,
			Index:           tx.Index,
		}

		if s.cfg.IncludeInputs && tx.FromAddress != "" {
			addresses.InputAddresses.Add(tx.FromAddress)
			info.OutgoingTxs.Merge(tx.FromAddress, currency, entry)
		}
		if tx.ToAddress != "" {
			addresses.OutputAddresses.Add(tx.ToAddress)
			info.IncomingTxs.Append(tx.ToAddress, currency, entry)
		}
	}
	return addresses, info
}

// commit publishes the result, then moves the checkpoint forward. A stored
// height at or past the window end is left untouched, and so is one with a gap
// of unscanned blocks before the window.
func (s *Scanner) commit(ctx context.Context, window Window, result model.ScanResult, transfers []model.TransferTx) error {
	if err := s.sink.Publish(ctx, result); err != nil {
		return errors.Wrap(err, "publish scan result")
	}

	key := s.CheckpointKey()
	stored, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return errors.Wrap(err, "read checkpoint")
	}
	if ok && stored >= window.Last() {
		return nil
	}
	if ok && window.Min > stored+1 {
		s.logger.Warn("[Scanner.commit] window is ahead of the checkpoint, keeping it", map[string]string{
			"checkpoint": strconv.FormatInt(stored, 10),
			"min_height": strconv.FormatInt(window.Min, 10),
		})
		return nil
	}
	if err := s.store.Set(ctx, key, window.Last(), s.cfg.CheckpointTTL); err != nil {
		return errors.Wrap(err, "write checkpoint")
	}
	s.metrics.SetLatestBlockProcessed(s.cfg.Chain, window.Last())

	if delay, ok := s.serviceDelay(transfers, stored); ok {
		s.metrics.SetServiceDelay(s.cfg.Chain, delay)
	}
	return nil
}

// serviceDelay is the age of the earliest dated transfer above the previous
// checkpoint.
func (s *Scanner) serviceDelay(transfers []model.TransferTx, previous int64) (time.Duration, bool) {
	var earliest time.Time
	for _, tx := range transfers {
		if tx.BlockHeight <= previous || tx.Date.IsZero() {
			continue
		}
		if earliest.IsZero() || tx.Date.Before(earliest) {
			earliest = tx.Date
		}
	}
	if earliest.IsZero() {
		return 0, false
	}
	return s.now().Sub(earliest), true
}
