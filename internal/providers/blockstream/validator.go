package blockstream

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/dwarvesf/chain-scanner/internal/providers/base"
)

type validator struct {
	base.Validator
	params *chaincfg.Params
}

func paramsFor(network string) *chaincfg.Params {
	switch network {
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params
	case "signet":
		return &chaincfg.SigNetParams
	case "regtest":
		return &chaincfg.RegressionNetParams
	}
	return &chaincfg.MainNetParams
}

func (v validator) ValidAddress(address string) bool {
	addr, err := btcutil.DecodeAddress(address, v.params)
	return err == nil && addr.IsForNet(v.params)
}

func (v validator) ValidHash(txid string) bool {
	if len(txid) != chainhash.MaxHashStringSize {
		return false
	}
	_, err := chainhash.NewHashFromStr(txid)
	return err == nil
}

func (v validator) ValidateBalanceResponse(resp *GetBalanceResponse) bool {
	return resp != nil && resp.ChainStats != nil
}

func (v validator) ValidateBlockHeadResponse(height int64) bool {
	return height > 0
}

func (v validator) ValidateBlockTxsRawResponse(block *Block) bool {
	return block != nil && block.ID != "" && block.TxCount > 0
}

// ValidateTransaction checks the structure of a transaction and that all of
// its amounts are representable.
func (v validator) ValidateTransaction(tx *Transaction) bool {
	if tx == nil || !v.ValidHash(tx.TxID) || len(tx.Vout) == 0 {
		return false
	}
	for _, out := range tx.Vout {
		if out.Value < 0 || btcutil.Amount(out.Value) > btcutil.MaxSatoshi {
			return false
		}
	}
	for _, in := range tx.Vin {
		if in.Prevout != nil && in.Prevout.Value < 0 {
			return false
		}
	}
	return true
}
