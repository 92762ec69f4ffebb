package blockscan

import (
	"encoding/json"
	"math/big"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/evm"
	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/providers/base"
)

type parser struct {
	meta      base.Meta
	validator validator
	decoder   evm.Decoder
}

func (p parser) ParseBlockHeadResponse(env *envelope) (int64, bool) {
	if !p.validator.ValidateBlockHeadResponse(env) {
		return 0, false
	}
	var hex string
	if json.Unmarshal(env.Result, &hex) != nil {
		return 0, false
	}
	head, err := evm.ParseUint64(hex)
	if err != nil || head == 0 {
		return 0, false
	}
	return int64(head), true
}

// ParseBalanceResponse returns zero for unusable payloads.
func (p parser) ParseBalanceResponse(env *envelope, precision int) decimal.Decimal {
	if !p.validator.ValidateBalanceResponse(env) {
		return decimal.Zero
	}
	var raw string
	if json.Unmarshal(env.Result, &raw) != nil {
		return decimal.Zero
	}
	balance, ok := model.FromUnitString(raw, precision)
	if !ok {
		return decimal.Zero
	}
	return balance
}

func (p parser) decodeBlock(env *envelope) (*rpcBlock, bool) {
	if !p.validator.ValidateBlockTxsResponse(env) {
		return nil, false
	}
	var block rpcBlock
	if json.Unmarshal(env.Result, &block) != nil {
		return nil, false
	}
	if !p.validator.ValidateBlockTxsRawResponse(&block) {
		return nil, false
	}
	return &block, true
}

// ParseBlockTxsResponse keeps transaction order within the block.
// Confirmations are left unset. Receipts are not fetched, so every
// transaction is reported as successful and reverted ones are not filtered
// here; GetTxDetails reads the receipt.
func (p parser) ParseBlockTxsResponse(block *rpcBlock) []model.TransferTx {
	date := unixHex(block.Timestamp)
	var out []model.TransferTx
	for _, tx := range block.Transactions {
		if !p.validator.ValidateTransaction(tx) {
			continue
		}
		call := p.call(tx)
		call.Date = date
		call.Success = true
		out = append(out, p.validator.FilterTransfers(p.decoder.Transfers(call))...)
	}
	return out
}

func (p parser) ParseTxDetailsResponse(tx *rpcTx, receipt *rpcReceipt, blockHead int64) []model.TransferTx {
	if tx == nil || !p.validator.ValidateTransaction(*tx) {
		return []model.TransferTx{}
	}
	call := p.call(*tx)
	call.Success = p.validator.ValidateReceipt(receipt)
	if receipt != nil {
		call.Fee = receiptFee(receipt, tx.GasPrice, p.meta.Opts.Precision)
	}
	transfers := p.validator.FilterTransfers(p.decoder.Transfers(call))
	for i := range transfers {
		transfers[i].Confirmations = p.meta.Confirmations(blockHead, transfers[i].BlockHeight)
	}
	return transfers
}

func (p parser) ParseAddressTxsResponse(address string, txs []accountTx, blockHead int64) []model.TransferTx {
	out := []model.TransferTx{}
	for _, tx := range txs {
		if !p.validator.ValidateAddressTx(tx) {
			continue
		}
		transfer, ok := p.accountTransfer(tx, p.meta.Opts.Symbol, "", p.meta.Opts.Precision, blockHead)
		if !ok || !p.validator.ValidateTransfer(transfer) {
			continue
		}
		out = append(out, transfer)
	}
	return p.validator.Relevant(address, out)
}

func (p parser) ParseTokenTxsResponse(address string, txs []accountTx, contract model.ContractInfo, blockHead int64) []model.TransferTx {
	out := []model.TransferTx{}
	for _, tx := range txs {
		if !p.validator.ValidateTokenTx(tx, contract) {
			continue
		}
		transfer, ok := p.accountTransfer(tx, contract.Symbol, contract.Address, contract.Decimals, blockHead)
		if !ok || !p.validator.ValidateTokenTransfer(transfer, contract, "") {
			continue
		}
		out = append(out, transfer)
	}
	// both directions; callers narrow with explorer.FilterDirection
	return p.validator.Relevant(address, out)
}

func (p parser) call(tx rpcTx) evm.Call {
	c := evm.Call{
		Hash:  tx.Hash,
		From:  tx.From,
		Input: tx.Input,
	}
	if tx.To != nil {
		c.To = *tx.To
	}
	if v, err := evm.ParseQuantity(tx.Value); err == nil {
		c.Value = v
	}
	if tx.BlockNumber != nil {
		if h, err := evm.ParseUint64(*tx.BlockNumber); err == nil {
			c.BlockHeight = int64(h)
		}
	}
	if tx.BlockHash != nil {
		c.BlockHash = *tx.BlockHash
	}
	return c
}

func (p parser) accountTransfer(tx accountTx, symbol, token string, precision int, blockHead int64) (model.TransferTx, bool) {
	value, ok := model.FromUnitString(tx.Value, precision)
	if !ok {
		return model.TransferTx{}, false
	}
	height, err := strconv.ParseInt(tx.BlockNumber, 10, 64)
	if err != nil {
		return model.TransferTx{}, false
	}

	transfer := model.TransferTx{
		TxHash:      tx.Hash,
		BlockHeight: height,
		BlockHash:   tx.BlockHash,
		Date:        unixDec(tx.TimeStamp),
		Success:     true,
		FromAddress: p.validator.Normalize(tx.From),
		ToAddress:   p.validator.Normalize(tx.To),
		Value:       value,
		Symbol:      symbol,
		Token:       token,
		TxFee:       gasFee(tx.GasUsed, tx.Gas, tx.GasPrice, p.meta.Opts.Precision),
	}
	if c, err := strconv.ParseInt(tx.Confirmations, 10, 64); err == nil {
		transfer.Confirmations = &c
	} else {
		transfer.Confirmations = p.meta.Confirmations(blockHead, height)
	}
	return transfer, true
}

// gasFee multiplies the gas used (or the gas limit when usage is missing) by
// the gas price.
func gasFee(gasUsed, gasLimit, gasPrice string, precision int) *decimal.Decimal {
	gas := gasUsed
	if gas == "" {
		gas = gasLimit
	}
	g, ok1 := new(big.Int).SetString(gas, 10)
	price, ok2 := new(big.Int).SetString(gasPrice, 10)
	if !ok1 || !ok2 {
		return nil
	}
	return model.DecimalPtr(model.FromUnit(new(big.Int).Mul(g, price), precision))
}

func receiptFee(r *rpcReceipt, txGasPrice string, precision int) *decimal.Decimal {
	used, err := evm.ParseQuantity(r.GasUsed)
	if err != nil || used.Sign() == 0 {
		return nil
	}
	priceHex := r.EffectiveGasPrice
	if priceHex == "" {
		priceHex = txGasPrice
	}
	price, err := evm.ParseQuantity(priceHex)
	if err != nil {
		return nil
	}
	return model.DecimalPtr(model.FromUnit(new(big.Int).Mul(used, price), precision))
}

func unixHex(s string) time.Time {
	v, err := evm.ParseUint64(s)
	if err != nil || v == 0 {
		return time.Time{}
	}
	return time.Unix(int64(v), 0).UTC()
}

func unixDec(s string) time.Time {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}
