package blockstream

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/explorer"
	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/providers/base"
)

type parser struct {
	meta      base.Meta
	validator validator
}

func (p parser) sats(v int64) decimal.Decimal {
	return model.FromUnit(big.NewInt(v), p.meta.Opts.Precision)
}

// ParseBalanceResponse returns funded minus spent, or zero for unusable
// payloads.
func (p parser) ParseBalanceResponse(resp *GetBalanceResponse) decimal.Decimal {
	if !p.validator.ValidateBalanceResponse(resp) {
		return decimal.Zero
	}
	return p.sats(resp.ChainStats.FundedTxoSum - resp.ChainStats.SpentTxoSum)
}

// ParseTransaction nets the inputs and outputs of tx per address. Coinbase
// inputs carry no address and are ignored.
func (p parser) ParseTransaction(tx *Transaction, blockHead int64) []model.TransferTx {
	if !p.validator.ValidateTransaction(tx) {
		return nil
	}

	template := model.TransferTx{
		TxHash:      tx.TxID,
		BlockHeight: tx.Status.BlockHeight,
		BlockHash:   tx.Status.BlockHash,
		Success:     tx.Status.Confirmed,
		Symbol:      p.meta.Opts.Symbol,
		TxFee:       model.DecimalPtr(p.sats(tx.Fee)),
	}
	if tx.Status.BlockTime > 0 {
		template.Date = time.Unix(tx.Status.BlockTime, 0).UTC()
	}
	if blockHead > 0 {
		template.Confirmations = p.meta.Confirmations(blockHead, tx.Status.BlockHeight)
	}

	inputs := make([]explorer.UTXOLeg, 0, len(tx.Vin))
	for _, in := range tx.Vin {
		if in.IsCoinbase || in.Prevout == nil {
			continue
		}
		inputs = append(inputs, explorer.UTXOLeg{Address: in.Prevout.ScriptPubKeyAddress, Value: p.sats(in.Prevout.Value)})
	}
	outputs := make([]explorer.UTXOLeg, 0, len(tx.Vout))
	for _, out := range tx.Vout {
		outputs = append(outputs, explorer.UTXOLeg{Address: out.ScriptPubKeyAddress, Value: p.sats(out.Value)})
	}

	return p.validator.FilterTransfers(explorer.NetUTXO(template, inputs, outputs))
}

func (p parser) ParseTxDetailsResponse(tx *Transaction, blockHead int64) []model.TransferTx {
	out := p.ParseTransaction(tx, blockHead)
	if out == nil {
		return []model.TransferTx{}
	}
	return out
}

func (p parser) ParseAddressTxsResponse(address string, txs []Transaction, blockHead int64) []model.TransferTx {
	out := []model.TransferTx{}
	for i := range txs {
		out = append(out, p.ParseTransaction(&txs[i], blockHead)...)
	}
	return p.validator.Relevant(address, out)
}

// ParseBlockTxsResponse parses the transactions of one block in order.
func (p parser) ParseBlockTxsResponse(txs []Transaction) []model.TransferTx {
	var out []model.TransferTx
	for i := range txs {
		out = append(out, p.ParseTransaction(&txs[i], 0)...)
	}
	return out
}
