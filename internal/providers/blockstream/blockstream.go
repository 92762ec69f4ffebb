package blockstream

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/consts"
	"github.com/dwarvesf/chain-scanner/internal/explorer"
	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/providers/base"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

// blockTxsPageSize is fixed by the Esplora API.
const blockTxsPageSize = 25

// Provider talks to Esplora compatible REST APIs (blockstream.info,
// mempool.space).
type Provider struct {
	base.Meta
	base.Unsupported

	client    *base.Client
	validator validator
	parser    parser
}

func New(opts base.Options, l *logger.Logger) *Provider {
	if opts.Symbol == "" {
		opts.Symbol = "BTC"
	}
	if opts.Precision == 0 {
		opts.Precision = consts.BTC_DECIMALS
	}
	client := base.NewClient(opts, l)
	opts = client.Options()

	v := validator{Validator: base.NewValidator(opts), params: paramsFor(opts.Network)}
	meta := base.Meta{Opts: opts}
	return &Provider{
		Meta:      meta,
		client:    client,
		validator: v,
		parser:    parser{meta: meta, validator: v},
	}
}

func (p *Provider) NeedBlockHead() bool { return true }

func (p *Provider) GetBlockHead(ctx context.Context) (int64, error) {
	var height int64
	if err := p.client.Get(ctx, explorer.OpBlockHead, "/blocks/tip/height", nil, &height); err != nil {
		return 0, err
	}
	if !p.validator.ValidateBlockHeadResponse(height) {
		return 0, explorer.InvalidResponse(p.Name(), explorer.OpBlockHead, "non positive height")
	}
	return height, nil
}

func (p *Provider) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !p.validator.ValidAddress(address) {
		return decimal.Zero, explorer.InvalidResponse(p.Name(), explorer.OpBalance, "invalid address "+address)
	}
	var resp GetBalanceResponse
	if err := p.client.Get(ctx, explorer.OpBalance, "/address/"+address, nil, &resp); err != nil {
		return decimal.Zero, err
	}
	if !p.validator.ValidateBalanceResponse(&resp) {
		return decimal.Zero, explorer.InvalidResponse(p.Name(), explorer.OpBalance, "missing chain_stats")
	}
	return p.parser.ParseBalanceResponse(&resp), nil
}

func (p *Provider) GetTxDetails(ctx context.Context, txHash string, blockHead int64) ([]model.TransferTx, error) {
	if !p.validator.ValidHash(txHash) {
		return nil, explorer.InvalidResponse(p.Name(), explorer.OpTxDetails, "invalid txid "+txHash)
	}
	var tx Transaction
	if err := p.client.Get(ctx, explorer.OpTxDetails, "/tx/"+txHash, nil, &tx); err != nil {
		return nil, err
	}
	if !p.validator.ValidateTransaction(&tx) {
		return nil, explorer.InvalidResponse(p.Name(), explorer.OpTxDetails, "malformed transaction")
	}
	return p.parser.ParseTxDetailsResponse(&tx, blockHead), nil
}

func (p *Provider) GetAddressTxs(ctx context.Context, address string, blockHead int64) ([]model.TransferTx, error) {
	if !p.validator.ValidAddress(address) {
		return nil, explorer.InvalidResponse(p.Name(), explorer.OpAddressTxs, "invalid address "+address)
	}
	var txs []Transaction
	if err := p.client.Get(ctx, explorer.OpAddressTxs, "/address/"+address+"/txs", nil, &txs); err != nil {
		return nil, err
	}
	return p.parser.ParseAddressTxsResponse(address, txs, blockHead), nil
}

// GetBlockTxs resolves the block hash, then fetches every page of the block
// concurrently.
func (p *Provider) GetBlockTxs(ctx context.Context, height int64) ([]model.TransferTx, error) {
	raw, err := p.client.DoRaw(ctx, base.Request{
		Operation: explorer.OpBlockTxs,
		Path:      "/block-height/" + strconv.FormatInt(height, 10),
	})
	if err != nil {
		return nil, err
	}
	hash := strings.TrimSpace(string(raw))
	if !p.validator.ValidHash(hash) {
		return nil, explorer.InvalidResponse(p.Name(), explorer.OpBlockTxs, "invalid block hash for height "+strconv.FormatInt(height, 10))
	}

	var block Block
	if err := p.client.Get(ctx, explorer.OpBlockTxs, "/block/"+hash, nil, &block); err != nil {
		return nil, err
	}
	if !p.validator.ValidateBlockTxsRawResponse(&block) {
		return nil, explorer.InvalidResponse(p.Name(), explorer.OpBlockTxs, "empty block "+hash)
	}

	lastPage := (block.TxCount - 1) / blockTxsPageSize
	txs, err := base.FetchPages(ctx, p.Opts.MaxWorkers, 0, lastPage, func(ctx context.Context, page int) ([]Transaction, error) {
		var pageTxs []Transaction
		path := fmt.Sprintf("/block/%s/txs/%d", hash, page*blockTxsPageSize)
		if err := p.client.Get(ctx, explorer.OpBlockTxs, path, nil, &pageTxs); err != nil {
			return nil, err
		}
		return pageTxs, nil
	})
	if err != nil {
		return nil, err
	}
	if len(txs) != block.TxCount {
		return nil, explorer.InvalidResponse(p.Name(), explorer.OpBlockTxs, fmt.Sprintf("block %s returned %d of %d transactions", hash, len(txs), block.TxCount))
	}
	return p.parser.ParseBlockTxsResponse(txs), nil
}
