package base

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/explorer"
	"github.com/dwarvesf/chain-scanner/internal/model"
)

// Meta answers the descriptive part of explorer.IProvider from Options.
type Meta struct {
	Opts Options
}

func (m Meta) Name() string             { return m.Opts.Name }
func (m Meta) Chain() string            { return m.Opts.Chain }
func (m Meta) BlockHeightOffset() int64 { return m.Opts.BlockHeightOffset }

// Confirmations applies the chain's confirmation convention.
func (m Meta) Confirmations(head, height int64) *int64 {
	return model.Confirmations(head, height, m.Opts.ConfirmationOffset)
}

// Unsupported implements every operation of explorer.IProvider by returning
// explorer.ErrNotSupported. Providers embed it and override what they serve.
type Unsupported struct{}

func (Unsupported) GetBalance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, explorer.ErrNotSupported
}

func (Unsupported) GetTokenBalance(context.Context, string, model.ContractInfo) (decimal.Decimal, error) {
	return decimal.Zero, explorer.ErrNotSupported
}

func (Unsupported) GetTxDetails(context.Context, string, int64) ([]model.TransferTx, error) {
	return nil, explorer.ErrNotSupported
}

func (Unsupported) GetAddressTxs(context.Context, string, int64) ([]model.TransferTx, error) {
	return nil, explorer.ErrNotSupported
}

func (Unsupported) GetTokenTxs(context.Context, string, model.ContractInfo, int64) ([]model.TransferTx, error) {
	return nil, explorer.ErrNotSupported
}

func (Unsupported) GetBlockHead(context.Context) (int64, error) {
	return 0, explorer.ErrNotSupported
}

func (Unsupported) GetBlockTxs(context.Context, int64) ([]model.TransferTx, error) {
	return nil, explorer.ErrNotSupported
}

func (Unsupported) GetBatchBlockTxs(context.Context, int64, int64) ([]model.TransferTx, error) {
	return nil, explorer.ErrNotSupported
}
