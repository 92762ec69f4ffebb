package blockbook

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/explorer"
	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/providers/base"
	"github.com/dwarvesf/chain-scanner/internal/registry"
)

type parser struct {
	meta      base.Meta
	validator validator
	registry  registry.IRegistry
}

func (p parser) amount(raw string, precision int) decimal.Decimal {
	v, ok := model.FromUnitString(raw, precision)
	if !ok {
		return decimal.Zero
	}
	return v
}

func (p parser) ParseBlockHeadResponse(resp *StatusResponse) (int64, bool) {
	if !p.validator.ValidateBlockHeadResponse(resp) {
		return 0, false
	}
	return *resp.Blockbook.BestHeight, true
}

func (p parser) ParseBalanceResponse(resp *AddressResponse) decimal.Decimal {
	if !p.validator.ValidateBalanceResponse(resp) {
		return decimal.Zero
	}
	return p.amount(resp.Balance, p.meta.Opts.Precision)
}

func (p parser) ParseTokenBalanceResponse(resp *AddressResponse, contract model.ContractInfo) decimal.Decimal {
	if !p.validator.ValidateBalanceResponse(resp) {
		return decimal.Zero
	}
	for _, t := range resp.Tokens {
		if p.validator.SameAddress(t.Contract, contract.Address) {
			return p.amount(t.Balance, contract.Decimals)
		}
	}
	return decimal.Zero
}

// template carries the fields every transfer of tx shares. Confirmations are
// taken from the explorer when it reports them.
func (p parser) template(tx *Transaction, blockHead int64) model.TransferTx {
	t := model.TransferTx{
		TxHash:      tx.TxID,
		BlockHeight: tx.BlockHeight,
		BlockHash:   tx.BlockHash,
		Success:     true,
		Symbol:      p.meta.Opts.Symbol,
		TxFee:       model.DecimalPtr(p.amount(tx.Fees, p.meta.Opts.Precision)),
	}
	if tx.BlockTime > 0 {
		t.Date = time.Unix(tx.BlockTime, 0).UTC()
	}
	switch {
	case tx.Confirmations > 0:
		t.Confirmations = model.Int64Ptr(tx.Confirmations)
	case blockHead > 0:
		t.Confirmations = p.meta.Confirmations(blockHead, tx.BlockHeight)
	}
	return t
}

// ParseTransaction dispatches on the transaction model: account based chains
// report ethereumSpecific, everything else is netted as UTXO.
func (p parser) ParseTransaction(tx *Transaction, blockHead int64) []model.TransferTx {
	template := p.template(tx, blockHead)
	if tx.EthereumSpecific != nil {
		if tx.EthereumSpecific.Status != 1 || !p.validator.ValidateCallData(tx) {
			return nil
		}
		out := p.parseAccountTransfer(tx, template)
		return append(out, p.parseTokenTransfers(tx, template)...)
	}
	return p.parseUTXO(tx, template)
}

func (p parser) parseAccountTransfer(tx *Transaction, template model.TransferTx) []model.TransferTx {
	if len(tx.Vin) == 0 || len(tx.Vout) == 0 || !tx.Vin[0].IsAddress || !tx.Vout[0].IsAddress {
		return nil
	}
	if len(tx.Vin[0].Addresses) == 0 || len(tx.Vout[0].Addresses) == 0 {
		return nil
	}
	t := template
	t.FromAddress = tx.Vin[0].Addresses[0]
	t.ToAddress = tx.Vout[0].Addresses[0]
	t.Value = p.amount(tx.Value, p.meta.Opts.Precision)
	return p.validator.FilterTransfers([]model.TransferTx{t})
}

func (p parser) parseTokenTransfers(tx *Transaction, template model.TransferTx) []model.TransferTx {
	var out []model.TransferTx
	for _, transfer := range tx.TokenTransfers {
		if !p.validator.ValidateTokenTransferRecord(transfer) {
			continue
		}
		contract, ok := p.registry.ContractByAddress(p.meta.Opts.Network, transfer.ContractAddress())
		if !ok {
			continue
		}
		t := template
		t.FromAddress = transfer.From
		t.ToAddress = transfer.To
		t.Value = p.amount(transfer.Value, contract.Decimals)
		t.Symbol = contract.Symbol
		t.Token = contract.Address
		out = append(out, t)
	}
	return p.validator.FilterTransfers(out)
}

func (p parser) parseUTXO(tx *Transaction, template model.TransferTx) []model.TransferTx {
	inputs := make([]explorer.UTXOLeg, 0, len(tx.Vin))
	for _, in := range tx.Vin {
		if !in.IsAddress || len(in.Addresses) != 1 {
			continue
		}
		inputs = append(inputs, explorer.UTXOLeg{Address: in.Addresses[0], Value: p.amount(in.Value, p.meta.Opts.Precision)})
	}
	outputs := make([]explorer.UTXOLeg, 0, len(tx.Vout))
	for _, out := range tx.Vout {
		if !out.IsAddress || len(out.Addresses) != 1 {
			continue
		}
		outputs = append(outputs, explorer.UTXOLeg{Address: out.Addresses[0], Value: p.amount(out.Value, p.meta.Opts.Precision)})
	}
	return p.validator.FilterTransfers(explorer.NetUTXO(template, inputs, outputs))
}

func (p parser) ParseTxDetailsResponse(tx *Transaction, blockHead int64) []model.TransferTx {
	if !p.validator.ValidateTxDetailsResponse(tx) {
		return []model.TransferTx{}
	}
	out := p.ParseTransaction(tx, blockHead)
	if out == nil {
		return []model.TransferTx{}
	}
	return out
}

func (p parser) ParseAddressTxsResponse(address string, resp *AddressResponse, blockHead int64) []model.TransferTx {
	out := []model.TransferTx{}
	for i := range resp.Transactions {
		tx := &resp.Transactions[i]
		if !p.validator.ValidateTransaction(tx) {
			continue
		}
		for _, t := range p.ParseTransaction(tx, blockHead) {
			if t.Token == "" {
				out = append(out, t)
			}
		}
	}
	return p.validator.Relevant(address, out)
}

func (p parser) ParseTokenTxsResponse(address string, resp *AddressResponse, contract model.ContractInfo, blockHead int64) []model.TransferTx {
	out := []model.TransferTx{}
	for i := range resp.Transactions {
		tx := &resp.Transactions[i]
		if !p.validator.ValidateTransaction(tx) || len(tx.TokenTransfers) == 0 {
			continue
		}
		for _, t := range p.ParseTransaction(tx, blockHead) {
			if t.Token != "" && p.validator.ValidateTokenTransfer(t, contract, "") {
				out = append(out, t)
			}
		}
	}
	// both directions; callers narrow with explorer.FilterDirection
	return p.validator.Relevant(address, out)
}

// ParseBlockTxsResponse parses every page of a block in order. Block
// transfers carry no confirmation count.
func (p parser) ParseBlockTxsResponse(txs []Transaction) []model.TransferTx {
	var out []model.TransferTx
	for i := range txs {
		tx := txs[i]
		tx.Confirmations = 0
		out = append(out, p.ParseTransaction(&tx, 0)...)
	}
	return out
}
