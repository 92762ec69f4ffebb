package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransferTx is the canonical record of one on-chain value transfer.
//
// String fields that may be absent (BlockHash, Token, Memo) are empty when
// unknown, BlockHeight is zero and Date is the zero time. Value and TxFee are
// always scaled by the asset precision.
type TransferTx struct {
	TxHash        string           `json:"tx_hash"`
	BlockHeight   int64            `json:"block_height,omitempty"`
	BlockHash     string           `json:"block_hash,omitempty"`
	Date          time.Time        `json:"date,omitempty"`
	Success       bool             `json:"success"`
	FromAddress   string           `json:"from_address"`
	ToAddress     string           `json:"to_address"`
	Value         decimal.Decimal  `json:"value"`
	Symbol        string           `json:"symbol"`
	Token         string           `json:"token,omitempty"`
	TxFee         *decimal.Decimal `json:"tx_fee,omitempty"`
	Confirmations *int64           `json:"confirmations,omitempty"`
	Memo          string           `json:"memo,omitempty"`
	Index         *int64           `json:"index,omitempty"`
}

// IsSelfTransfer reports whether sender and receiver are the same account.
func (t TransferTx) IsSelfTransfer(caseSensitive bool) bool {
	if t.FromAddress == "" || t.ToAddress == "" {
		return false
	}
	if caseSensitive {
		return t.FromAddress == t.ToAddress
	}
	return strings.EqualFold(t.FromAddress, t.ToAddress)
}

// Key identifies a transfer across providers for deduplication.
func (t TransferTx) Key() string {
	idx := ""
	if t.Index != nil {
		idx = strconv.FormatInt(*t.Index, 10)
	}
	return strings.Join([]string{
		t.TxHash,
		strings.ToLower(t.FromAddress),
		strings.ToLower(t.ToAddress),
		t.Symbol,
		strings.ToLower(t.Token),
		idx,
	}, "|")
}

func Int64Ptr(v int64) *int64 {
	return &v
}

func DecimalPtr(v decimal.Decimal) *decimal.Decimal {
	return &v
}

// Confirmations computes head-height+offset, floored at zero. Providers pick
// the offset per chain.
func Confirmations(head, height, offset int64) *int64 {
	if head <= 0 || height <= 0 {
		return nil
	}
	c := head - height + offset
	if c < 0 {
		c = 0
	}
	return &c
}
