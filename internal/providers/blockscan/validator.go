package blockscan

import (
	"encoding/json"
	"strings"

	"github.com/dwarvesf/chain-scanner/internal/evm"
	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/providers/base"
)

const noTransactionsMessage = "No transactions found"

type validator struct {
	base.Validator
}

func (v validator) ValidateGeneralResponse(env *envelope) bool {
	if env == nil || env.Error != nil {
		return false
	}
	if strings.EqualFold(env.Message, "NOTOK") {
		return false
	}
	return env.hasResult()
}

// providerFailed reports a failure the provider itself declared, as opposed
// to a payload that merely lacks data.
func (v validator) providerFailed(env *envelope) (string, bool) {
	if env == nil {
		return "", false
	}
	if env.Error != nil {
		return env.Error.Message, true
	}
	if strings.EqualFold(env.Message, "NOTOK") {
		var reason string
		if json.Unmarshal(env.Result, &reason) != nil || reason == "" {
			reason = env.Message
		}
		return reason, true
	}
	return "", false
}

func (v validator) ValidateBlockHeadResponse(env *envelope) bool {
	return v.ValidateGeneralResponse(env)
}

func (v validator) ValidateBalanceResponse(env *envelope) bool {
	return v.ValidateGeneralResponse(env) && env.Status != "0"
}

// ValidateAddressTxsResponse accepts an explicit "no transactions" answer as
// a valid empty list.
func (v validator) ValidateAddressTxsResponse(env *envelope) bool {
	if !v.ValidateGeneralResponse(env) {
		return false
	}
	return env.Message == "OK" || env.Message == noTransactionsMessage
}

func (v validator) ValidateTxDetailsResponse(env *envelope) bool {
	return v.ValidateGeneralResponse(env)
}

func (v validator) ValidateBlockTxsResponse(env *envelope) bool {
	return v.ValidateGeneralResponse(env)
}

// ValidateBlockTxsRawResponse requires a block object carrying a transaction
// list. An empty list is a valid empty block.
func (v validator) ValidateBlockTxsRawResponse(block *rpcBlock) bool {
	return block != nil && block.Hash != "" && block.Transactions != nil
}

// ValidateTransaction is the structural check applied before decoding.
func (v validator) ValidateTransaction(tx rpcTx) bool {
	if tx.Hash == "" || tx.From == "" || tx.To == nil || *tx.To == "" {
		return false
	}
	if v.SameAddress(tx.From, *tx.To) || v.Denied(tx.From) {
		return false
	}
	return evm.Classify(tx.Input) != evm.CallUnknown
}

func (v validator) ValidateAddressTx(tx accountTx) bool {
	if tx.Hash == "" || tx.From == "" || tx.To == "" {
		return false
	}
	if tx.TxReceiptStatus != "1" || tx.IsError != "0" {
		return false
	}
	if v.SameAddress(tx.From, tx.To) || v.Denied(tx.From) {
		return false
	}
	return evm.Classify(tx.Input) == evm.CallNative
}

func (v validator) ValidateTokenTx(tx accountTx, contract model.ContractInfo) bool {
	if tx.Hash == "" || tx.From == "" || tx.To == "" {
		return false
	}
	if tx.ContractAddress != "" && !v.SameAddress(tx.ContractAddress, contract.Address) {
		return false
	}
	return !v.SameAddress(tx.From, tx.To) && !v.Denied(tx.From)
}

func (v validator) ValidateReceipt(r *rpcReceipt) bool {
	return r != nil && r.Status == "0x1"
}
