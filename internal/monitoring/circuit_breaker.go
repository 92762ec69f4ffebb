package monitoring

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/dwarvesf/chain-scanner/internal/explorer"
	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

// BreakerProvider wraps an explorer.IProvider with a circuit breaker and call
// metrics. Invalid payloads and unsupported operations do not count as
// failures.
type BreakerProvider struct {
	wrapped        explorer.IProvider
	circuitBreaker *gobreaker.CircuitBreaker
	metrics        *ExternalAPIMetrics
	logger         *logger.Logger
}

func NewBreakerProvider(wrapped explorer.IProvider, config CircuitBreakerConfig, metrics *ExternalAPIMetrics, l *logger.Logger) *BreakerProvider {
	name := wrapped.Chain() + "/" + wrapped.Name()
	l = l.With(map[string]string{"chain": wrapped.Chain(), "provider": wrapped.Name()})

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.ConsecutiveFailureThreshold)
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, explorer.ErrInvalidResponse) ||
				errors.Is(err, explorer.ErrNotSupported) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			l.Info("Circuit breaker state change", map[string]string{
				"service": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			metrics.UpdateCircuitBreakerState(name, to)
		},
	}

	return &BreakerProvider{
		wrapped:        wrapped,
		circuitBreaker: gobreaker.NewCircuitBreaker(settings),
		metrics:        metrics,
		logger:         l,
	}
}

func (b *BreakerProvider) State() gobreaker.State { return b.circuitBreaker.State() }

// Unwrap returns the underlying provider.
func (b *BreakerProvider) Unwrap() explorer.IProvider { return b.wrapped }

func (b *BreakerProvider) Name() string             { return b.wrapped.Name() }
func (b *BreakerProvider) Chain() string            { return b.wrapped.Chain() }
func (b *BreakerProvider) BlockHeightOffset() int64 { return b.wrapped.BlockHeightOffset() }
func (b *BreakerProvider) NeedBlockHead() bool      { return b.wrapped.NeedBlockHead() }

func call[T any](b *BreakerProvider, op explorer.Operation, fn func() (T, error)) (T, error) {
	start := time.Now()
	result, err := b.circuitBreaker.Execute(func() (interface{}, error) {
		return fn()
	})
	duration := time.Since(start).Seconds()

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		b.metrics.RecordAPICall(b.Name(), string(op), "rejected", duration)
		return zero, explorer.NewAPIError(b.Name(), op, http.StatusServiceUnavailable, err)
	}

	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			b.metrics.RecordTimeout(b.Name(), string(op))
		}
		b.logError(op, duration, err)
	}
	b.metrics.RecordAPICall(b.Name(), string(op), status, duration)

	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func (b *BreakerProvider) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return call(b, explorer.OpBalance, func() (decimal.Decimal, error) {
		return b.wrapped.GetBalance(ctx, address)
	})
}

func (b *BreakerProvider) GetTokenBalance(ctx context.Context, address string, contract model.ContractInfo) (decimal.Decimal, error) {
	return call(b, explorer.OpTokenBalance, func() (decimal.Decimal, error) {
		return b.wrapped.GetTokenBalance(ctx, address, contract)
	})
}

func (b *BreakerProvider) GetTxDetails(ctx context.Context, txHash string, blockHead int64) ([]model.TransferTx, error) {
	return call(b, explorer.OpTxDetails, func() ([]model.TransferTx, error) {
		return b.wrapped.GetTxDetails(ctx, txHash, blockHead)
	})
}

func (b *BreakerProvider) GetAddressTxs(ctx context.Context, address string, blockHead int64) ([]model.TransferTx, error) {
	return call(b, explorer.OpAddressTxs, func() ([]model.TransferTx, error) {
		return b.wrapped.GetAddressTxs(ctx, address, blockHead)
	})
}

func (b *BreakerProvider) GetTokenTxs(ctx context.Context, address string, contract model.ContractInfo, blockHead int64) ([]model.TransferTx, error) {
	return call(b, explorer.OpTokenTxs, func() ([]model.TransferTx, error) {
		return b.wrapped.GetTokenTxs(ctx, address, contract, blockHead)
	})
}

func (b *BreakerProvider) GetBlockHead(ctx context.Context) (int64, error) {
	return call(b, explorer.OpBlockHead, func() (int64, error) {
		return b.wrapped.GetBlockHead(ctx)
	})
}

func (b *BreakerProvider) GetBlockTxs(ctx context.Context, height int64) ([]model.TransferTx, error) {
	return call(b, explorer.OpBlockTxs, func() ([]model.TransferTx, error) {
		return b.wrapped.GetBlockTxs(ctx, height)
	})
}

func (b *BreakerProvider) GetBatchBlockTxs(ctx context.Context, from, to int64) ([]model.TransferTx, error) {
	return call(b, explorer.OpBatchBlockTxs, func() ([]model.TransferTx, error) {
		return b.wrapped.GetBatchBlockTxs(ctx, from, to)
	})
}

func (b *BreakerProvider) logError(op explorer.Operation, duration float64, err error) {
	if errors.Is(err, explorer.ErrNotSupported) {
		return
	}
	b.logger.Error("External API call failed", map[string]string{
		"operation":  string(op),
		"duration":   strconv.FormatFloat(duration, 'f', 3, 64),
		"error":      err.Error(),
		"error_type": string(classifyError(err)),
		"cb_state":   b.circuitBreaker.State().String(),
	})
}
