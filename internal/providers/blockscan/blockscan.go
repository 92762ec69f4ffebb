package blockscan

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/evm"
	"github.com/dwarvesf/chain-scanner/internal/explorer"
	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/providers/base"
	"github.com/dwarvesf/chain-scanner/internal/registry"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

const apiPath = "/v2/api"

// Provider talks to etherscan-compatible explorers.
type Provider struct {
	base.Meta
	base.Unsupported

	client    *base.Client
	validator validator
	parser    parser
}

func New(opts base.Options, reg registry.IRegistry, l *logger.Logger) *Provider {
	if opts.Auth == base.AuthNone {
		opts.Auth = base.AuthQuery
	}
	client := base.NewClient(opts, l)
	opts = client.Options()

	v := validator{Validator: base.NewValidator(opts)}
	meta := base.Meta{Opts: opts}
	return &Provider{
		Meta:      meta,
		client:    client,
		validator: v,
		parser: parser{
			meta:      meta,
			validator: v,
			decoder: evm.Decoder{
				Network:        opts.Network,
				Symbol:         opts.Symbol,
				Precision:      opts.Precision,
				Registry:       reg,
				BatchTransfers: opts.BatchTransfers,
			},
		},
	}
}

func (p *Provider) NeedBlockHead() bool { return true }

// request issues one module/action call and unwraps provider declared failures.
func (p *Provider) request(ctx context.Context, op explorer.Operation, params map[string]string) (*envelope, error) {
	query := map[string]string{}
	for k, v := range params {
		query[k] = v
	}
	if p.Opts.ChainID > 0 {
		query["chainid"] = strconv.FormatInt(p.Opts.ChainID, 10)
	}

	var env envelope
	if err := p.client.Get(ctx, op, apiPath, query, &env); err != nil {
		return nil, err
	}
	if reason, failed := p.validator.providerFailed(&env); failed {
		return nil, explorer.NewAPIError(p.Name(), op, 0, errors.New(reason))
	}
	return &env, nil
}

func (p *Provider) GetBlockHead(ctx context.Context) (int64, error) {
	env, err := p.request(ctx, explorer.OpBlockHead, map[string]string{
		"module": "proxy",
		"action": "eth_blockNumber",
	})
	if err != nil {
		return 0, err
	}
	head, ok := p.parser.ParseBlockHeadResponse(env)
	if !ok {
		return 0, explorer.InvalidResponse(p.Name(), explorer.OpBlockHead, "missing block number")
	}
	return head, nil
}

func (p *Provider) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	env, err := p.request(ctx, explorer.OpBalance, map[string]string{
		"module":  "account",
		"action":  "balance",
		"address": address,
		"tag":     "latest",
	})
	if err != nil {
		return decimal.Zero, err
	}
	if !p.validator.ValidateBalanceResponse(env) {
		return decimal.Zero, explorer.InvalidResponse(p.Name(), explorer.OpBalance, "missing balance")
	}
	return p.parser.ParseBalanceResponse(env, p.Opts.Precision), nil
}

func (p *Provider) GetTokenBalance(ctx context.Context, address string, contract model.ContractInfo) (decimal.Decimal, error) {
	env, err := p.request(ctx, explorer.OpTokenBalance, map[string]string{
		"module":          "account",
		"action":          "tokenbalance",
		"contractaddress": contract.Address,
		"address":         address,
		"tag":             "latest",
	})
	if err != nil {
		return decimal.Zero, err
	}
	if !p.validator.ValidateBalanceResponse(env) {
		return decimal.Zero, explorer.InvalidResponse(p.Name(), explorer.OpTokenBalance, "missing balance")
	}
	return p.parser.ParseBalanceResponse(env, contract.Decimals), nil
}

func (p *Provider) GetTxDetails(ctx context.Context, txHash string, blockHead int64) ([]model.TransferTx, error) {
	env, err := p.request(ctx, explorer.OpTxDetails, map[string]string{
		"module": "proxy",
		"action": "eth_getTransactionByHash",
		"txhash": txHash,
	})
	if err != nil {
		return nil, err
	}
	if !p.validator.ValidateTxDetailsResponse(env) {
		return nil, explorer.InvalidResponse(p.Name(), explorer.OpTxDetails, "transaction not found")
	}
	var tx rpcTx
	if err := json.Unmarshal(env.Result, &tx); err != nil {
		return nil, explorer.InvalidResponse(p.Name(), explorer.OpTxDetails, err.Error())
	}

	var receipt *rpcReceipt
	if tx.BlockNumber != nil {
		receiptEnv, err := p.request(ctx, explorer.OpTxDetails, map[string]string{
			"module": "proxy",
			"action": "eth_getTransactionReceipt",
			"txhash": txHash,
		})
		if err != nil {
			return nil, err
		}
		if receiptEnv.hasResult() {
			receipt = &rpcReceipt{}
			if err := json.Unmarshal(receiptEnv.Result, receipt); err != nil {
				return nil, explorer.InvalidResponse(p.Name(), explorer.OpTxDetails, err.Error())
			}
		}
	}
	return p.parser.ParseTxDetailsResponse(&tx, receipt, blockHead), nil
}

func (p *Provider) accountTxs(ctx context.Context, op explorer.Operation, params map[string]string) ([]accountTx, error) {
	params["module"] = "account"
	params["page"] = "1"
	params["offset"] = strconv.Itoa(p.Opts.PageSize)
	params["sort"] = "desc"

	env, err := p.request(ctx, op, params)
	if err != nil {
		return nil, err
	}
	if !p.validator.ValidateAddressTxsResponse(env) {
		return nil, explorer.InvalidResponse(p.Name(), op, "unexpected message "+env.Message)
	}
	var txs []accountTx
	if err := json.Unmarshal(env.Result, &txs); err != nil {
		return nil, explorer.InvalidResponse(p.Name(), op, err.Error())
	}
	return txs, nil
}

func (p *Provider) GetAddressTxs(ctx context.Context, address string, blockHead int64) ([]model.TransferTx, error) {
	txs, err := p.accountTxs(ctx, explorer.OpAddressTxs, map[string]string{
		"action":  "txlist",
		"address": address,
	})
	if err != nil {
		return nil, err
	}
	return p.parser.ParseAddressTxsResponse(address, txs, blockHead), nil
}

func (p *Provider) GetTokenTxs(ctx context.Context, address string, contract model.ContractInfo, blockHead int64) ([]model.TransferTx, error) {
	txs, err := p.accountTxs(ctx, explorer.OpTokenTxs, map[string]string{
		"action":          "tokentx",
		"contractaddress": contract.Address,
		"address":         address,
	})
	if err != nil {
		return nil, err
	}
	return p.parser.ParseTokenTxsResponse(address, txs, contract, blockHead), nil
}

func (p *Provider) GetBlockTxs(ctx context.Context, height int64) ([]model.TransferTx, error) {
	env, err := p.request(ctx, explorer.OpBlockTxs, map[string]string{
		"module":  "proxy",
		"action":  "eth_getBlockByNumber",
		"tag":     "0x" + strconv.FormatInt(height, 16),
		"boolean": "true",
	})
	if err != nil {
		return nil, err
	}
	block, ok := p.parser.decodeBlock(env)
	if !ok {
		return nil, explorer.InvalidResponse(p.Name(), explorer.OpBlockTxs, "block "+strconv.FormatInt(height, 10)+" has no transaction list")
	}
	return p.parser.ParseBlockTxsResponse(block), nil
}
