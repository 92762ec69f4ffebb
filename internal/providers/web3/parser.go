package web3

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
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

func (p parser) fee(gas uint64, price *big.Int) *decimal.Decimal {
	if price == nil {
		return nil
	}
	wei := new(big.Int).Mul(new(big.Int).SetUint64(gas), price)
	return model.DecimalPtr(model.FromUnit(wei, p.meta.Opts.Precision))
}

func (p parser) call(tx *rpcTx) evm.Call {
	c := evm.Call{
		Hash:    tx.Hash.Hex(),
		From:    tx.From.Hex(),
		Input:   hexutil.Encode(tx.Input),
		Success: true,
	}
	if tx.To != nil {
		c.To = tx.To.Hex()
	}
	if tx.Value != nil {
		c.Value = tx.Value.ToInt()
	}
	if tx.BlockNumber != nil {
		c.BlockHeight = tx.BlockNumber.ToInt().Int64()
	}
	if tx.BlockHash != nil {
		c.BlockHash = tx.BlockHash.Hex()
	}
	if tx.GasPrice != nil {
		c.Fee = p.fee(uint64(tx.Gas), tx.GasPrice.ToInt())
	}
	return c
}

// ParseTxDetailsResponse applies the receipt outcome and its exact fee.
func (p parser) ParseTxDetailsResponse(tx *rpcTx, receipt *types.Receipt, blockTime uint64, blockHead int64) []model.TransferTx {
	if !p.validator.ValidateTransaction(tx) {
		return []model.TransferTx{}
	}
	c := p.call(tx)
	if receipt != nil {
		c.Success = receipt.Status == types.ReceiptStatusSuccessful
		c.Fee = p.fee(receipt.GasUsed, receipt.EffectiveGasPrice)
	} else {
		c.Success = false
	}
	if blockTime > 0 {
		c.Date = time.Unix(int64(blockTime), 0).UTC()
	}

	out := p.validator.FilterTransfers(p.decoder.Transfers(c))
	if blockHead > 0 {
		for i := range out {
			out[i].Confirmations = p.meta.Confirmations(blockHead, out[i].BlockHeight)
		}
	}
	return out
}

// ParseBlockTxsResponse decodes every transaction of block. Receipts are not
// fetched, so transfers are assumed successful and fees are upper bounds.
func (p parser) ParseBlockTxsResponse(block *rpcBlock) []model.TransferTx {
	date := time.Unix(int64(block.Timestamp), 0).UTC()
	var out []model.TransferTx
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		if !p.validator.ValidateTransaction(tx) {
			continue
		}
		c := p.call(tx)
		c.Date = date
		if c.BlockHeight == 0 {
			c.BlockHeight = block.Number.ToInt().Int64()
		}
		if c.BlockHash == "" {
			c.BlockHash = block.Hash.Hex()
		}
		out = append(out, p.validator.FilterTransfers(p.decoder.Transfers(c))...)
	}
	return out
}
