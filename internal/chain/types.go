package chain

import (
	"time"

	"github.com/dwarvesf/chain-scanner/internal/model"
)

const (
	KindBlockscan   = "blockscan"
	KindBlockstream = "blockstream"
	KindBlockbook   = "blockbook"
	KindWeb3        = "web3"
)

// Table is the static chain configuration read once at startup.
type Table struct {
	Chains []Chain `yaml:"chains" validate:"required,min=1,dive"`
}

type Chain struct {
	Name    string `yaml:"name" validate:"required"`
	Network string `yaml:"network"`
	Symbol  string `yaml:"symbol" validate:"required"`
	// Precision is the number of decimals of the native asset.
	Precision     int    `yaml:"precision" validate:"gte=0,lte=36"`
	CaseSensitive bool   `yaml:"case_sensitive"`
	Disabled      bool   `yaml:"disabled"`
	Period        string `yaml:"period"`

	CacheKey       string `yaml:"cache_key"`
	WindowCap      int64  `yaml:"window_cap" validate:"gte=0"`
	Lookback       int64  `yaml:"lookback" validate:"gte=0"`
	MaxWorkers     int    `yaml:"max_workers" validate:"gte=0"`
	IncludeInputs  bool   `yaml:"include_inputs"`
	UseAggregation bool   `yaml:"use_aggregation"`

	// ConfirmationOffset is added to head-height when parsers report
	// confirmations.
	ConfirmationOffset int64                `yaml:"confirmation_offset" validate:"gte=0,lte=1"`
	MinValidTxAmount   string               `yaml:"min_valid_tx_amount" validate:"omitempty,numeric"`
	Denylist           []string             `yaml:"denylist"`
	Contracts          []model.ContractInfo `yaml:"contracts" validate:"dive"`

	Providers []Provider `yaml:"providers" validate:"required,min=1,dive"`
	// Operations lists provider names per operation, preferred first.
	Operations map[string][]string `yaml:"operations" validate:"required"`
}

type Provider struct {
	Name      string   `yaml:"name" validate:"required"`
	Kind      string   `yaml:"kind" validate:"required,oneof=blockscan blockstream blockbook web3"`
	BaseURLs  []string `yaml:"base_urls" validate:"required,min=1,dive,url"`
	APIKeys   []string `yaml:"api_keys"`
	Auth      string   `yaml:"auth" validate:"omitempty,oneof=query header bearer"`
	AuthParam string   `yaml:"auth_param"`

	BlockHeightOffset int64         `yaml:"block_height_offset" validate:"gte=0"`
	RateLimit         int           `yaml:"rate_limit" validate:"gte=0"`
	UseProxy          bool          `yaml:"use_proxy"`
	Timeout           time.Duration `yaml:"timeout"`
	BlockTimeout      time.Duration `yaml:"block_timeout"`
	MaxRetries        int           `yaml:"max_retries" validate:"gte=0"`
	PageSize          int           `yaml:"page_size" validate:"gte=0"`
	MaxWorkers        int           `yaml:"max_workers" validate:"gte=0"`

	ChainID        int64 `yaml:"chain_id"`
	BatchTransfers bool  `yaml:"batch_transfers"`
}
