package evm

import (
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/registry"
)

// Call is the provider independent view of one EVM transaction.
type Call struct {
	Hash        string
	From        string
	To          string
	Input       string
	Value       *big.Int
	BlockHeight int64
	BlockHash   string
	Date        time.Time
	Success     bool
	Fee         *decimal.Decimal
}

// Decoder turns calls into transfers of the native asset or of registered
// tokens.
type Decoder struct {
	Network   string
	Symbol    string
	Precision int
	Registry  registry.IRegistry
	// BatchTransfers enables unpacking of batch token transfer calls.
	BatchTransfers bool
}

// Transfers returns the transfers carried by c. Unknown selectors,
// unregistered contracts and malformed call data yield nothing.
func (d Decoder) Transfers(c Call) []model.TransferTx {
	from := strings.ToLower(c.From)
	to := strings.ToLower(c.To)
	if from == "" || to == "" {
		return nil
	}

	tx := model.TransferTx{
		TxHash:      c.Hash,
		BlockHeight: c.BlockHeight,
		BlockHash:   c.BlockHash,
		Date:        c.Date,
		Success:     c.Success,
		FromAddress: from,
		TxFee:       c.Fee,
	}

	switch Classify(c.Input) {
	case CallNative:
		value := c.Value
		if value == nil {
			value = big.NewInt(0)
		}
		tx.ToAddress = to
		tx.Value = model.FromUnit(value, d.Precision)
		tx.Symbol = d.Symbol
		return []model.TransferTx{tx}

	case CallTransfer:
		contract, ok := d.contract(to)
		if !ok {
			return nil
		}
		recipient, amount, err := DecodeTransfer(c.Input)
		if err != nil {
			return nil
		}
		tx.ToAddress = recipient
		tx.Value = model.FromUnit(amount, contract.Decimals)
		tx.Symbol = contract.Symbol
		tx.Token = contract.Address
		return []model.TransferTx{tx}

	case CallBatchTransfer:
		if !d.BatchTransfers {
			return nil
		}
		legs, err := DecodeBatchTransfer(c.Input)
		if err != nil {
			return nil
		}
		// tokens leave the batch contract itself
		tx.FromAddress = to
		var out []model.TransferTx
		for i, leg := range legs {
			contract, ok := d.contract(leg.Token)
			if !ok {
				continue
			}
			t := tx
			t.ToAddress = leg.To
			t.Value = model.FromUnit(leg.Amount, contract.Decimals)
			t.Symbol = contract.Symbol
			t.Token = contract.Address
			t.Index = model.Int64Ptr(int64(i))
			out = append(out, t)
		}
		return out
	}
	return nil
}

func (d Decoder) contract(address string) (model.ContractInfo, bool) {
	if d.Registry == nil {
		return model.ContractInfo{}, false
	}
	return d.Registry.ContractByAddress(d.Network, address)
}
