package explorer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/model"
)

type Operation string

const (
	OpBalance       Operation = "balance"
	OpTokenBalance  Operation = "token_balance"
	OpTxDetails     Operation = "tx_details"
	OpAddressTxs    Operation = "address_txs"
	OpTokenTxs      Operation = "token_txs"
	OpBlockTxs      Operation = "block_txs"
	OpBlockHead     Operation = "block_head"
	OpBatchBlockTxs Operation = "batch_block_txs"
)

// Operations lists every operation a chain table may bind providers to.
var Operations = []Operation{
	OpBalance, OpTokenBalance, OpTxDetails, OpAddressTxs,
	OpTokenTxs, OpBlockTxs, OpBlockHead, OpBatchBlockTxs,
}

// IProvider is one third-party API surface for one chain. Implementations
// return ErrInvalidResponse (wrapped) for unusable payloads, ErrNotSupported
// for operations they lack, and *APIError for transport or provider failures.
type IProvider interface {
	Name() string
	Chain() string
	BlockHeightOffset() int64
	// NeedBlockHead reports whether parsers need the current head to compute
	// confirmations.
	NeedBlockHead() bool

	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
	GetTokenBalance(ctx context.Context, address string, contract model.ContractInfo) (decimal.Decimal, error)
	GetTxDetails(ctx context.Context, txHash string, blockHead int64) ([]model.TransferTx, error)
	GetAddressTxs(ctx context.Context, address string, blockHead int64) ([]model.TransferTx, error)
	GetTokenTxs(ctx context.Context, address string, contract model.ContractInfo, blockHead int64) ([]model.TransferTx, error)
	GetBlockHead(ctx context.Context) (int64, error)
	GetBlockTxs(ctx context.Context, height int64) ([]model.TransferTx, error)
	// GetBatchBlockTxs returns transfers of heights from..to-1.
	GetBatchBlockTxs(ctx context.Context, from, to int64) ([]model.TransferTx, error)
}

// IMetrics receives provider failure counters.
type IMetrics interface {
	IncAPIError(chain, provider string)
	IncMissedBlockTxs(chain, provider string)
}

type noopMetrics struct{}

func (noopMetrics) IncAPIError(string, string)       {}
func (noopMetrics) IncMissedBlockTxs(string, string) {}
