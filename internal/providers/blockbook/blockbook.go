package blockbook

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/explorer"
	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/providers/base"
	"github.com/dwarvesf/chain-scanner/internal/registry"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

const apiPath = "/api/v2"

// Provider talks to Trezor Blockbook instances. The same client serves UTXO
// chains and account based chains indexed by Blockbook.
type Provider struct {
	base.Meta
	base.Unsupported

	client    *base.Client
	validator validator
	parser    parser
}

func New(opts base.Options, reg registry.IRegistry, l *logger.Logger) *Provider {
	client := base.NewClient(opts, l)
	opts = client.Options()

	v := validator{Validator: base.NewValidator(opts), ignoreNotSync: true}
	meta := base.Meta{Opts: opts}
	return &Provider{
		Meta:      meta,
		client:    client,
		validator: v,
		parser:    parser{meta: meta, validator: v, registry: reg},
	}
}

// NeedBlockHead is false: Blockbook reports confirmations itself.
func (p *Provider) NeedBlockHead() bool { return false }

func (p *Provider) GetBlockHead(ctx context.Context) (int64, error) {
	var resp StatusResponse
	if err := p.client.Get(ctx, explorer.OpBlockHead, apiPath, nil, &resp); err != nil {
		return 0, err
	}
	head, ok := p.parser.ParseBlockHeadResponse(&resp)
	if !ok {
		return 0, explorer.InvalidResponse(p.Name(), explorer.OpBlockHead, "backend not usable")
	}
	return head, nil
}

func (p *Provider) address(ctx context.Context, op explorer.Operation, address string, query map[string]string) (*AddressResponse, error) {
	var resp AddressResponse
	if err := p.client.Get(ctx, op, apiPath+"/address/"+address, query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (p *Provider) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	resp, err := p.address(ctx, explorer.OpBalance, address, map[string]string{"details": "basic"})
	if err != nil {
		return decimal.Zero, err
	}
	if !p.validator.ValidateBalanceResponse(resp) {
		return decimal.Zero, explorer.InvalidResponse(p.Name(), explorer.OpBalance, "missing address")
	}
	return p.parser.ParseBalanceResponse(resp), nil
}

func (p *Provider) GetTokenBalance(ctx context.Context, address string, contract model.ContractInfo) (decimal.Decimal, error) {
	resp, err := p.address(ctx, explorer.OpTokenBalance, address, map[string]string{
		"details":  "tokenBalances",
		"contract": contract.Address,
	})
	if err != nil {
		return decimal.Zero, err
	}
	if !p.validator.ValidateBalanceResponse(resp) {
		return decimal.Zero, explorer.InvalidResponse(p.Name(), explorer.OpTokenBalance, "missing address")
	}
	return p.parser.ParseTokenBalanceResponse(resp, contract), nil
}

func (p *Provider) GetTxDetails(ctx context.Context, txHash string, blockHead int64) ([]model.TransferTx, error) {
	var tx Transaction
	if err := p.client.Get(ctx, explorer.OpTxDetails, apiPath+"/tx/"+txHash, nil, &tx); err != nil {
		return nil, err
	}
	if tx.TxID == "" {
		return nil, explorer.InvalidResponse(p.Name(), explorer.OpTxDetails, "transaction not found")
	}
	return p.parser.ParseTxDetailsResponse(&tx, blockHead), nil
}

func (p *Provider) GetAddressTxs(ctx context.Context, address string, blockHead int64) ([]model.TransferTx, error) {
	resp, err := p.address(ctx, explorer.OpAddressTxs, address, map[string]string{
		"details":  "txs",
		"pageSize": strconv.Itoa(p.Opts.PageSize),
	})
	if err != nil {
		return nil, err
	}
	return p.parser.ParseAddressTxsResponse(address, resp, blockHead), nil
}

func (p *Provider) GetTokenTxs(ctx context.Context, address string, contract model.ContractInfo, blockHead int64) ([]model.TransferTx, error) {
	resp, err := p.address(ctx, explorer.OpTokenTxs, address, map[string]string{
		"details":  "txs",
		"pageSize": strconv.Itoa(p.Opts.PageSize),
		"contract": contract.Address,
	})
	if err != nil {
		return nil, err
	}
	return p.parser.ParseTokenTxsResponse(address, resp, contract, blockHead), nil
}

func (p *Provider) blockPage(ctx context.Context, height int64, page int) (*BlockResponse, error) {
	var resp BlockResponse
	path := apiPath + "/block/" + strconv.FormatInt(height, 10)
	if err := p.client.Get(ctx, explorer.OpBlockTxs, path, map[string]string{"page": strconv.Itoa(page)}, &resp); err != nil {
		return nil, err
	}
	if !p.validator.ValidateBlockTxsRawResponse(&resp) {
		return nil, explorer.InvalidResponse(p.Name(), explorer.OpBlockTxs, "block "+strconv.FormatInt(height, 10)+" page "+strconv.Itoa(page)+" is unusable")
	}
	return &resp, nil
}

// GetBlockTxs reads the first page to learn the page count, then fetches the
// remaining pages concurrently.
func (p *Provider) GetBlockTxs(ctx context.Context, height int64) ([]model.TransferTx, error) {
	first, err := p.blockPage(ctx, height, 1)
	if err != nil {
		return nil, err
	}
	txs := first.Txs
	if first.TotalPages > 1 {
		rest, err := base.FetchPages(ctx, p.Opts.MaxWorkers, 2, first.TotalPages, func(ctx context.Context, page int) ([]Transaction, error) {
			resp, err := p.blockPage(ctx, height, page)
			if err != nil {
				return nil, err
			}
			return resp.Txs, nil
		})
		if err != nil {
			return nil, err
		}
		txs = append(txs, rest...)
	}
	return p.parser.ParseBlockTxsResponse(txs), nil
}
