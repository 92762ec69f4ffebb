package chain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/explorer"
	"github.com/dwarvesf/chain-scanner/internal/monitoring"
	"github.com/dwarvesf/chain-scanner/internal/providers/base"
	"github.com/dwarvesf/chain-scanner/internal/providers/blockbook"
	"github.com/dwarvesf/chain-scanner/internal/providers/blockscan"
	"github.com/dwarvesf/chain-scanner/internal/providers/blockstream"
	"github.com/dwarvesf/chain-scanner/internal/providers/web3"
	"github.com/dwarvesf/chain-scanner/internal/registry"
	"github.com/dwarvesf/chain-scanner/internal/scanner"
	"github.com/dwarvesf/chain-scanner/internal/utils/config"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
	"github.com/dwarvesf/chain-scanner/internal/utils/vault"
)

// Dependencies are the process wide services every chain is built with.
type Dependencies struct {
	Scanner    config.ScannerConfig
	Breaker    monitoring.CircuitBreakerConfig
	APIMetrics *monitoring.ExternalAPIMetrics
	Metrics    explorer.IMetrics
	// Secrets resolves vault: prefixed API keys. It may be nil when no key
	// uses the prefix.
	Secrets  vault.ISecretReader
	Registry registry.IRegistry
	Logger   *logger.Logger
}

// Runtime is one chain ready to be scanned.
type Runtime struct {
	Chain     Chain
	Explorer  *explorer.Explorer
	Providers []explorer.IProvider
	closers   []func()
}

func (r *Runtime) Close() {
	for _, c := range r.closers {
		c()
	}
}

// ScannerConfig maps the chain table entry to the scanner settings.
func (r *Runtime) ScannerConfig(s config.ScannerConfig) scanner.Config {
	return scanner.Config{
		Chain:         r.Chain.Name,
		CacheKey:      r.Chain.CacheKey,
		CachePrefix:   s.CachePrefix,
		WindowCap:     r.Chain.WindowCap,
		Lookback:      r.Chain.Lookback,
		MaxWorkers:    r.Chain.MaxWorkers,
		IncludeInputs: r.Chain.IncludeInputs,
		CaseSensitive: r.Chain.CaseSensitive,
	}
}

// BuildRegistry registers the contracts of every chain under its network.
func BuildRegistry(chains []Chain) *registry.Registry {
	reg := registry.New()
	for _, c := range chains {
		reg.Register(c.Network, c.CaseSensitive, c.Contracts)
	}
	return reg
}

// Build constructs the providers of c, wraps each in a circuit breaker and
// binds them to operations in the configured order.
func Build(c Chain, deps Dependencies) (*Runtime, error) {
	rt := &Runtime{Chain: c}
	byName := map[string]explorer.IProvider{}

	for _, pc := range c.Providers {
		opts, err := providerOptions(c, pc, deps)
		if err != nil {
			rt.Close()
			return nil, errors.Wrapf(err, "provider %s", pc.Name)
		}
		p, closer, err := NewProvider(pc.Kind, opts, deps.Registry, deps.Logger)
		if err != nil {
			rt.Close()
			return nil, errors.Wrapf(err, "provider %s", pc.Name)
		}
		if closer != nil {
			rt.closers = append(rt.closers, closer)
		}
		wrapped := monitoring.NewBreakerProvider(p, deps.Breaker, deps.APIMetrics, deps.Logger)
		byName[pc.Name] = wrapped
		rt.Providers = append(rt.Providers, wrapped)
	}

	bindings := make(map[explorer.Operation][]explorer.IProvider, len(c.Operations))
	for op, names := range c.Operations {
		for _, name := range names {
			bindings[explorer.Operation(op)] = append(bindings[explorer.Operation(op)], byName[name])
		}
	}

	rt.Explorer = explorer.New(explorer.Config{
		Chain:          c.Name,
		Providers:      bindings,
		UseAggregation: c.UseAggregation,
		MaxWorkers:     c.MaxWorkers,
		CaseSensitive:  c.CaseSensitive,
	}, deps.Metrics, deps.Logger)
	return rt, nil
}

// NewProvider creates a provider of the given kind. The returned closer is
// nil for providers without connections to release.
func NewProvider(kind string, opts base.Options, reg registry.IRegistry, l *logger.Logger) (explorer.IProvider, func(), error) {
	switch kind {
	case KindBlockscan:
		return blockscan.New(opts, reg, l), nil, nil
	case KindBlockstream:
		return blockstream.New(opts, l), nil, nil
	case KindBlockbook:
		return blockbook.New(opts, reg, l), nil, nil
	case KindWeb3:
		p, err := web3.New(opts, reg, l)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	}
	return nil, nil, errors.Errorf("unknown provider kind %q", kind)
}

func providerOptions(c Chain, pc Provider, deps Dependencies) (base.Options, error) {
	keys, err := vault.ResolveKeys(deps.Secrets, pc.APIKeys)
	if err != nil {
		return base.Options{}, err
	}

	minAmount := decimal.Zero
	if c.MinValidTxAmount != "" {
		minAmount, err = decimal.NewFromString(c.MinValidTxAmount)
		if err != nil {
			return base.Options{}, errors.Wrap(err, "min_valid_tx_amount")
		}
	}
	tokenMins := make(map[string]decimal.Decimal)
	for _, contract := range c.Contracts {
		if contract.MinValidTxAmount == "" {
			continue
		}
		floor, err := decimal.NewFromString(contract.MinValidTxAmount)
		if err != nil {
			return base.Options{}, errors.Wrapf(err, "min_valid_tx_amount of %s", contract.Symbol)
		}
		tokenMins[contract.Address] = floor
	}

	opts := base.Options{
		Name:               pc.Name,
		Chain:              c.Name,
		Network:            c.Network,
		BaseURLs:           pc.BaseURLs,
		APIKeys:            keys,
		Auth:               base.AuthScheme(pc.Auth),
		AuthParam:          pc.AuthParam,
		Timeout:            deps.Scanner.RequestTimeout,
		BlockTimeout:       deps.Scanner.BlockTimeout,
		MaxRetries:         deps.Scanner.MaxRetries,
		RetryBackoff:       deps.Scanner.RetryBackoff,
		RateLimit:          pc.RateLimit,
		BlockHeightOffset:  pc.BlockHeightOffset,
		ConfirmationOffset: c.ConfirmationOffset,
		MinValidTxAmount:   minAmount,
		TokenMinAmounts:    tokenMins,
		Denylist:           c.Denylist,
		CaseSensitive:      c.CaseSensitive,
		Symbol:             c.Symbol,
		Precision:          c.Precision,
		MaxWorkers:         pc.MaxWorkers,
		PageSize:           pc.PageSize,
		ChainID:            pc.ChainID,
		BatchTransfers:     pc.BatchTransfers,
	}
	if pc.Timeout > 0 {
		opts.Timeout = pc.Timeout
	}
	if pc.BlockTimeout > 0 {
		opts.BlockTimeout = pc.BlockTimeout
	}
	if pc.MaxRetries > 0 {
		opts.MaxRetries = pc.MaxRetries
	}
	if pc.UseProxy {
		if deps.Scanner.ProxyURL == "" {
			return base.Options{}, errors.New("use_proxy set but SCANNER_PROXY_URL is empty")
		}
		opts.ProxyURL = deps.Scanner.ProxyURL
	}
	return opts, nil
}
