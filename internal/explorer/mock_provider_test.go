package explorer

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/dwarvesf/chain-scanner/internal/model"
)

type mockProvider struct {
	mock.Mock
	name     string
	offset   int64
	needHead bool
}

func newMockProvider(name string) *mockProvider {
	return &mockProvider{name: name}
}

func (m *mockProvider) Name() string             { return m.name }
func (m *mockProvider) Chain() string            { return "ethereum" }
func (m *mockProvider) BlockHeightOffset() int64 { return m.offset }
func (m *mockProvider) NeedBlockHead() bool      { return m.needHead }

func (m *mockProvider) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockProvider) GetTokenBalance(ctx context.Context, address string, contract model.ContractInfo) (decimal.Decimal, error) {
	args := m.Called(ctx, address, contract)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockProvider) GetTxDetails(ctx context.Context, txHash string, blockHead int64) ([]model.TransferTx, error) {
	args := m.Called(ctx, txHash, blockHead)
	return transfersArg(args, 0), args.Error(1)
}

func (m *mockProvider) GetAddressTxs(ctx context.Context, address string, blockHead int64) ([]model.TransferTx, error) {
	args := m.Called(ctx, address, blockHead)
	return transfersArg(args, 0), args.Error(1)
}

func (m *mockProvider) GetTokenTxs(ctx context.Context, address string, contract model.ContractInfo, blockHead int64) ([]model.TransferTx, error) {
	args := m.Called(ctx, address, contract, blockHead)
	return transfersArg(args, 0), args.Error(1)
}

func (m *mockProvider) GetBlockHead(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockProvider) GetBlockTxs(ctx context.Context, height int64) ([]model.TransferTx, error) {
	args := m.Called(ctx, height)
	return transfersArg(args, 0), args.Error(1)
}

func (m *mockProvider) GetBatchBlockTxs(ctx context.Context, from, to int64) ([]model.TransferTx, error) {
	args := m.Called(ctx, from, to)
	return transfersArg(args, 0), args.Error(1)
}

func transfersArg(args mock.Arguments, i int) []model.TransferTx {
	if v := args.Get(i); v != nil {
		return v.([]model.TransferTx)
	}
	return nil
}

type countingMetrics struct {
	mu        sync.Mutex
	apiErrors map[string]int
	missed    map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{apiErrors: map[string]int{}, missed: map[string]int{}}
}

func (c *countingMetrics) IncAPIError(chain, provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiErrors[chain+"/"+provider]++
}

func (c *countingMetrics) IncMissedBlockTxs(chain, provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.missed[chain+"/"+provider]++
}
