package web3

import (
	"context"
	"math/big"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/evm"
	"github.com/dwarvesf/chain-scanner/internal/explorer"
	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/providers/base"
	"github.com/dwarvesf/chain-scanner/internal/registry"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

type node struct {
	rpc *rpc.Client
	eth *ethclient.Client
}

// Provider reads EVM chains straight from JSON-RPC nodes. Address history is
// not indexed by nodes and stays unsupported.
type Provider struct {
	base.Meta
	base.Unsupported

	client    *base.Client
	nodes     map[string][]node
	erc20     abi.ABI
	validator validator
	parser    parser
}

func New(opts base.Options, reg registry.IRegistry, l *logger.Logger) (*Provider, error) {
	client := base.NewClient(opts, l)
	opts = client.Options()

	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse erc20 abi")
	}

	nodes := make(map[string][]node, len(opts.BaseURLs))
	closeAll := func() {
		for _, pool := range nodes {
			for _, n := range pool {
				n.rpc.Close()
			}
		}
	}
	keys := opts.APIKeys
	if len(keys) == 0 {
		keys = []string{""}
	}
	// one connection per key, a call picks one at random
	for _, endpoint := range opts.BaseURLs {
		for _, key := range keys {
			c, err := dial(opts, endpoint, key)
			if err != nil {
				closeAll()
				return nil, errors.Wrapf(err, "dial %s", opts.Name)
			}
			nodes[endpoint] = append(nodes[endpoint], node{rpc: c, eth: ethclient.NewClient(c)})
		}
	}

	v := validator{Validator: base.NewValidator(opts)}
	meta := base.Meta{Opts: opts}
	return &Provider{
		Meta:      meta,
		client:    client,
		nodes:     nodes,
		erc20:     erc20,
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
	}, nil
}

func dial(opts base.Options, endpoint, key string) (*rpc.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.ProxyURL != "" {
		proxy, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxy)
	}
	options := []rpc.ClientOption{rpc.WithHTTPClient(&http.Client{Transport: transport})}

	if key != "" {
		switch opts.Auth {
		case base.AuthQuery:
			u, err := url.Parse(endpoint)
			if err != nil {
				return nil, err
			}
			q := u.Query()
			q.Set(opts.AuthParam, key)
			u.RawQuery = q.Encode()
			endpoint = u.String()
		case base.AuthHeader:
			options = append(options, rpc.WithHeader(opts.AuthParam, key))
		case base.AuthBearer:
			options = append(options, rpc.WithHeader("Authorization", "Bearer "+key))
		}
	}
	return rpc.DialOptions(context.Background(), endpoint, options...)
}

func (p *Provider) NeedBlockHead() bool { return true }

// call runs fn against the rotating endpoints and classifies node failures.
func (p *Provider) call(ctx context.Context, op explorer.Operation, fn func(ctx context.Context, n node) error) error {
	return p.client.Retry(ctx, op, func(ctx context.Context, endpoint string) error {
		pool := p.nodes[endpoint]
		err := fn(ctx, pool[rand.IntN(len(pool))])
		if err == nil || errors.Is(err, explorer.ErrInvalidResponse) {
			return err
		}
		return p.classify(op, err)
	})
}

func (p *Provider) classify(op explorer.Operation, err error) error {
	if errors.Is(err, ethereum.NotFound) {
		return explorer.InvalidResponse(p.Name(), op, "not found")
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return explorer.NewAPIError(p.Name(), op, httpErr.StatusCode, err)
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		// JSON-RPC errors are not retried.
		return explorer.NewAPIError(p.Name(), op, http.StatusBadRequest, err)
	}
	return explorer.NewAPIError(p.Name(), op, 0, err)
}

func (p *Provider) GetBlockHead(ctx context.Context) (int64, error) {
	var head uint64
	err := p.call(ctx, explorer.OpBlockHead, func(ctx context.Context, n node) error {
		var err error
		head, err = n.eth.BlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	if head == 0 {
		return 0, explorer.InvalidResponse(p.Name(), explorer.OpBlockHead, "zero block number")
	}
	return int64(head), nil
}

func (p *Provider) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !p.validator.ValidAddress(address) {
		return decimal.Zero, explorer.InvalidResponse(p.Name(), explorer.OpBalance, "invalid address "+address)
	}
	var wei *big.Int
	err := p.call(ctx, explorer.OpBalance, func(ctx context.Context, n node) error {
		var err error
		wei, err = n.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return model.FromUnit(wei, p.Opts.Precision), nil
}

func (p *Provider) GetTokenBalance(ctx context.Context, address string, contract model.ContractInfo) (decimal.Decimal, error) {
	if !p.validator.ValidAddress(address) || !p.validator.ValidAddress(contract.Address) {
		return decimal.Zero, explorer.InvalidResponse(p.Name(), explorer.OpTokenBalance, "invalid address")
	}
	data, err := p.erc20.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "pack balanceOf")
	}
	to := common.HexToAddress(contract.Address)

	var out []byte
	err = p.call(ctx, explorer.OpTokenBalance, func(ctx context.Context, n node) error {
		var err error
		out, err = n.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	values, err := p.erc20.Unpack("balanceOf", out)
	if err != nil || len(values) != 1 {
		return decimal.Zero, explorer.InvalidResponse(p.Name(), explorer.OpTokenBalance, "undecodable balanceOf result")
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return decimal.Zero, explorer.InvalidResponse(p.Name(), explorer.OpTokenBalance, "undecodable balanceOf result")
	}
	return model.FromUnit(amount, contract.Decimals), nil
}

func (p *Provider) GetTxDetails(ctx context.Context, txHash string, blockHead int64) ([]model.TransferTx, error) {
	var tx *rpcTx
	err := p.call(ctx, explorer.OpTxDetails, func(ctx context.Context, n node) error {
		return n.rpc.CallContext(ctx, &tx, "eth_getTransactionByHash", common.HexToHash(txHash))
	})
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, explorer.InvalidResponse(p.Name(), explorer.OpTxDetails, "transaction not found")
	}
	if tx.BlockHash == nil {
		// pending
		return []model.TransferTx{}, nil
	}

	var (
		receipt *types.Receipt
		header  *types.Header
	)
	err = p.call(ctx, explorer.OpTxDetails, func(ctx context.Context, n node) error {
		var err error
		if receipt, err = n.eth.TransactionReceipt(ctx, tx.Hash); err != nil {
			return err
		}
		header, err = n.eth.HeaderByHash(ctx, *tx.BlockHash)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p.parser.ParseTxDetailsResponse(tx, receipt, header.Time, blockHead), nil
}

func (p *Provider) GetBlockTxs(ctx context.Context, height int64) ([]model.TransferTx, error) {
	var block *rpcBlock
	err := p.call(ctx, explorer.OpBlockTxs, func(ctx context.Context, n node) error {
		return n.rpc.CallContext(ctx, &block, "eth_getBlockByNumber", hexutil.EncodeBig(big.NewInt(height)), true)
	})
	if err != nil {
		return nil, err
	}
	if !p.validator.ValidateBlockTxsRawResponse(block) {
		return nil, explorer.InvalidResponse(p.Name(), explorer.OpBlockTxs, "block "+strconv.FormatInt(height, 10)+" unavailable")
	}
	return p.parser.ParseBlockTxsResponse(block), nil
}

// GetBatchBlockTxs fetches heights from..to-1 in one JSON-RPC batch. Any
// missing block fails the whole batch.
func (p *Provider) GetBatchBlockTxs(ctx context.Context, from, to int64) ([]model.TransferTx, error) {
	if to <= from {
		return []model.TransferTx{}, nil
	}
	blocks := make([]*rpcBlock, to-from)
	err := p.call(ctx, explorer.OpBatchBlockTxs, func(ctx context.Context, n node) error {
		batch := make([]rpc.BatchElem, len(blocks))
		for i := range batch {
			blocks[i] = nil
			batch[i] = rpc.BatchElem{
				Method: "eth_getBlockByNumber",
				Args:   []any{hexutil.EncodeBig(big.NewInt(from + int64(i))), true},
				Result: &blocks[i],
			}
		}
		if err := n.rpc.BatchCallContext(ctx, batch); err != nil {
			return err
		}
		for _, elem := range batch {
			if elem.Error != nil {
				return elem.Error
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := []model.TransferTx{}
	for i, block := range blocks {
		if !p.validator.ValidateBlockTxsRawResponse(block) {
			return nil, explorer.InvalidResponse(p.Name(), explorer.OpBatchBlockTxs, "block "+strconv.FormatInt(from+int64(i), 10)+" unavailable")
		}
		out = append(out, p.parser.ParseBlockTxsResponse(block)...)
	}
	return out, nil
}

// Close releases the node connections.
func (p *Provider) Close() {
	for _, pool := range p.nodes {
		for _, n := range pool {
			n.rpc.Close()
		}
	}
}
