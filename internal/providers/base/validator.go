package base

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/model"
)

// Validator holds the business rules shared by every provider of a chain.
// It never logs rejected records.
type Validator struct {
	minAmount     decimal.Decimal
	tokenMins     map[string]decimal.Decimal
	denylist      map[string]struct{}
	caseSensitive bool
}

func NewValidator(opts Options) Validator {
	v := Validator{
		minAmount:     opts.MinValidTxAmount,
		tokenMins:     make(map[string]decimal.Decimal, len(opts.TokenMinAmounts)),
		denylist:      make(map[string]struct{}, len(opts.Denylist)),
		caseSensitive: opts.CaseSensitive,
	}
	for contract, floor := range opts.TokenMinAmounts {
		v.tokenMins[v.Normalize(contract)] = floor
	}
	for _, addr := range opts.Denylist {
		v.denylist[v.Normalize(addr)] = struct{}{}
	}
	return v
}

// Normalize lowercases addresses on case-insensitive chains.
func (v Validator) Normalize(address string) string {
	if v.caseSensitive {
		return address
	}
	return strings.ToLower(address)
}

func (v Validator) SameAddress(a, b string) bool {
	return v.Normalize(a) == v.Normalize(b)
}

// ValidAmount requires the scaled amount to be strictly above the minimum.
func (v Validator) ValidAmount(amount decimal.Decimal) bool {
	return amount.GreaterThan(v.minAmount)
}

// ValidTokenAmount uses the contract's own minimum when one is configured.
// An empty token is the native asset.
func (v Validator) ValidTokenAmount(token string, amount decimal.Decimal) bool {
	if token != "" {
		if floor, ok := v.tokenMins[v.Normalize(token)]; ok {
			return amount.GreaterThan(floor)
		}
	}
	return v.ValidAmount(amount)
}

func (v Validator) Denied(address string) bool {
	_, ok := v.denylist[v.Normalize(address)]
	return ok
}

// ValidateTransfer applies the record level rules: a hash is present, the
// transaction succeeded, it is not a self transfer, the amount is above the
// minimum and the sender is not denylisted.
func (v Validator) ValidateTransfer(tx model.TransferTx) bool {
	if tx.TxHash == "" || !tx.Success {
		return false
	}
	if tx.IsSelfTransfer(v.caseSensitive) {
		return false
	}
	if !v.ValidTokenAmount(tx.Token, tx.Value) {
		return false
	}
	return tx.FromAddress == "" || !v.Denied(tx.FromAddress)
}

// ValidateTokenTransfer additionally checks the contract and, when target is
// set, that target is the receiver. History lookups that also want the
// transfers sent by an address pass an empty target and filter with Relevant.
func (v Validator) ValidateTokenTransfer(tx model.TransferTx, contract model.ContractInfo, target string) bool {
	if !v.SameAddress(tx.Token, contract.Address) {
		return false
	}
	if target != "" && !v.SameAddress(tx.ToAddress, target) {
		return false
	}
	return v.ValidateTransfer(tx)
}

// FilterTransfers keeps the transfers accepted by ValidateTransfer.
func (v Validator) FilterTransfers(txs []model.TransferTx) []model.TransferTx {
	out := make([]model.TransferTx, 0, len(txs))
	for _, tx := range txs {
		if v.ValidateTransfer(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// Relevant keeps the transfers sent or received by address.
func (v Validator) Relevant(address string, txs []model.TransferTx) []model.TransferTx {
	out := make([]model.TransferTx, 0, len(txs))
	for _, tx := range txs {
		if v.SameAddress(tx.FromAddress, address) || v.SameAddress(tx.ToAddress, address) {
			out = append(out, tx)
		}
	}
	return out
}
