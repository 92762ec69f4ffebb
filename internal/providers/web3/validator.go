package web3

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/dwarvesf/chain-scanner/internal/providers/base"
)

type validator struct {
	base.Validator
}

func (v validator) ValidAddress(address string) bool {
	return common.IsHexAddress(address)
}

// ValidateBlockTxsRawResponse accepts empty blocks but not missing ones.
func (v validator) ValidateBlockTxsRawResponse(block *rpcBlock) bool {
	return block != nil && block.Number != nil && block.Hash != (common.Hash{}) && block.Transactions != nil
}

func (v validator) ValidateTransaction(tx *rpcTx) bool {
	return tx != nil && tx.Hash != (common.Hash{}) && tx.To != nil
}
