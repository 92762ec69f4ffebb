package model

// ContractInfo describes a token contract known to the registry.
type ContractInfo struct {
	Currency string `json:"currency" yaml:"currency" validate:"required"`
	Symbol   string `json:"symbol" yaml:"symbol" validate:"required"`
	Address  string `json:"address" yaml:"address" validate:"required"`
	Decimals int    `json:"decimals" yaml:"decimals" validate:"gte=0,lte=36"`

	// MinValidTxAmount overrides the chain minimum for transfers of this token.
	MinValidTxAmount string `json:"min_valid_tx_amount,omitempty" yaml:"min_valid_tx_amount" validate:"omitempty,numeric"`
}
