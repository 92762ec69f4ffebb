package blockbook

import (
	"github.com/dwarvesf/chain-scanner/internal/evm"
	"github.com/dwarvesf/chain-scanner/internal/providers/base"
)

type validator struct {
	base.Validator

	ignoreNotSync  bool
	ignoreWarnings bool
}

func (v validator) ValidateBlockHeadResponse(resp *StatusResponse) bool {
	if resp == nil || resp.Blockbook == nil || resp.Backend == nil {
		return false
	}
	if !v.ignoreNotSync && !resp.Blockbook.InSync {
		return false
	}
	if resp.Blockbook.BestHeight == nil || *resp.Blockbook.BestHeight <= 0 {
		return false
	}
	return v.ignoreWarnings || resp.Backend.Warnings == ""
}

func (v validator) ValidateBalanceResponse(resp *AddressResponse) bool {
	return resp != nil && resp.Address != ""
}

// ValidateTransaction requires a mined transaction with every field the
// parser reads.
func (v validator) ValidateTransaction(tx *Transaction) bool {
	if tx == nil || tx.TxID == "" || tx.BlockHash == "" || tx.BlockHeight <= 0 || tx.BlockTime <= 0 {
		return false
	}
	return tx.Fees != ""
}

// ValidateTxDetailsResponse also rejects reverted account based transactions.
func (v validator) ValidateTxDetailsResponse(tx *Transaction) bool {
	if !v.ValidateTransaction(tx) || tx.Vin == nil || tx.Vout == nil {
		return false
	}
	return tx.EthereumSpecific == nil || tx.EthereumSpecific.Status == 1
}

// ValidateCallData accepts plain value transfers and, when the transaction
// carries token transfers, transfer(address,uint256) calls.
func (v validator) ValidateCallData(tx *Transaction) bool {
	if tx.EthereumSpecific == nil {
		return true
	}
	switch evm.Classify(tx.EthereumSpecific.Data) {
	case evm.CallNative:
		return true
	case evm.CallTransfer:
		return len(tx.TokenTransfers) > 0
	}
	return false
}

func (v validator) ValidateTokenTransferRecord(t TokenTransfer) bool {
	return t.ContractAddress() != "" && t.From != "" && t.To != "" && t.Value != ""
}

func (v validator) ValidateBlockTxsRawResponse(resp *BlockResponse) bool {
	return resp != nil && resp.Error == "" && resp.Hash != "" && resp.Txs != nil
}
