package base

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/consts"
)

type AuthScheme string

const (
	AuthNone   AuthScheme = ""
	AuthQuery  AuthScheme = "query"
	AuthHeader AuthScheme = "header"
	AuthBearer AuthScheme = "bearer"
)

// Options configures one provider instance for one chain.
type Options struct {
	Name    string
	Chain   string
	Network string

	BaseURLs []string
	APIKeys  []string
	Auth     AuthScheme
	// AuthParam is the query parameter or header name carrying the key.
	AuthParam string

	Timeout      time.Duration
	BlockTimeout time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	RateLimit    int
	ProxyURL     string

	BlockHeightOffset  int64
	ConfirmationOffset int64
	MinValidTxAmount   decimal.Decimal
	// TokenMinAmounts maps a contract address to its own minimum.
	TokenMinAmounts    map[string]decimal.Decimal
	Denylist           []string
	CaseSensitive      bool

	Symbol     string
	Precision  int
	MaxWorkers int
	PageSize   int

	// ChainID selects the chain on multi-chain explorer APIs.
	ChainID int64
	// BatchTransfers enables decoding of batch token transfer calls.
	BatchTransfers bool
}

func (o Options) WithDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = consts.DEFAULT_REQUEST_TIMEOUT
	}
	if o.BlockTimeout <= 0 {
		o.BlockTimeout = consts.DEFAULT_BLOCK_TIMEOUT
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = consts.DEFAULT_MAX_RETRIES
	}
	if o.RetryBackoff < 0 {
		o.RetryBackoff = 0
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = consts.DEFAULT_SCAN_WORKERS
	}
	if o.PageSize <= 0 {
		o.PageSize = consts.DEFAULT_PAGE_SIZE
	}
	if o.Auth == AuthQuery && o.AuthParam == "" {
		o.AuthParam = "apikey"
	}
	if o.Auth == AuthHeader && o.AuthParam == "" {
		o.AuthParam = "X-API-Key"
	}
	urls := make([]string, len(o.BaseURLs))
	for i, u := range o.BaseURLs {
		urls[i] = strings.TrimRight(u, "/")
	}
	o.BaseURLs = urls
	return o
}
