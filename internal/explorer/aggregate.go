package explorer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/model"
)

// AggregateAccountBased sums transfers sharing tx hash, sender, receiver and
// symbol. The first occurrence keeps its position and metadata.
func AggregateAccountBased(txs []model.TransferTx) []model.TransferTx {
	return aggregateBy(txs, func(tx model.TransferTx) (string, bool) {
		return strings.Join([]string{tx.TxHash, tx.FromAddress, tx.ToAddress, tx.Symbol}, "|"), true
	})
}

// AggregateMemoBased sums transfers sharing tx hash, sender, receiver, memo
// and symbol. Transfers without a memo are passed through unchanged.
func AggregateMemoBased(txs []model.TransferTx) []model.TransferTx {
	return aggregateBy(txs, func(tx model.TransferTx) (string, bool) {
		if tx.Memo == "" {
			return "", false
		}
		return strings.Join([]string{tx.TxHash, tx.FromAddress, tx.ToAddress, tx.Memo, tx.Symbol}, "|"), true
	})
}

func aggregateBy(txs []model.TransferTx, key func(model.TransferTx) (string, bool)) []model.TransferTx {
	out := make([]model.TransferTx, 0, len(txs))
	pos := map[string]int{}
	for _, tx := range txs {
		k, ok := key(tx)
		if !ok {
			out = append(out, tx)
			continue
		}
		if i, seen := pos[k]; seen {
			out[i].Value = out[i].Value.Add(tx.Value)
			continue
		}
		pos[k] = len(out)
		out = append(out, tx)
	}
	return out
}

// UTXOLeg is one input or output of a UTXO transaction.
type UTXOLeg struct {
	Address string
	Value   decimal.Decimal
}

// NetUTXO turns the legs of one UTXO transaction into transfers. Inputs are
// summed per address; an output paying back an input address is change and
// is subtracted from that input. Inputs yield from=address,to="" and outputs
// yield from="",to=address. Legs netted to zero or below are dropped.
func NetUTXO(template model.TransferTx, inputs, outputs []UTXOLeg) []model.TransferTx {
	inputOrder := []string{}
	inputSum := map[string]decimal.Decimal{}
	for _, in := range inputs {
		if in.Address == "" {
			continue
		}
		if _, ok := inputSum[in.Address]; !ok {
			inputOrder = append(inputOrder, in.Address)
			inputSum[in.Address] = decimal.Zero
		}
		inputSum[in.Address] = inputSum[in.Address].Add(in.Value)
	}

	outputOrder := []string{}
	outputSum := map[string]decimal.Decimal{}
	for _, out := range outputs {
		if out.Address == "" {
			continue
		}
		if _, isInput := inputSum[out.Address]; isInput {
			inputSum[out.Address] = inputSum[out.Address].Sub(out.Value)
			continue
		}
		if _, ok := outputSum[out.Address]; !ok {
			outputOrder = append(outputOrder, out.Address)
			outputSum[out.Address] = decimal.Zero
		}
		outputSum[out.Address] = outputSum[out.Address].Add(out.Value)
	}

	var txs []model.TransferTx
	for _, addr := range inputOrder {
		if !inputSum[addr].IsPositive() {
			continue
		}
		tx := template
		tx.FromAddress, tx.ToAddress, tx.Value = addr, "", inputSum[addr]
		txs = append(txs, tx)
	}
	for _, addr := range outputOrder {
		if !outputSum[addr].IsPositive() {
			continue
		}
		tx := template
		tx.FromAddress, tx.ToAddress, tx.Value = "", addr, outputSum[addr]
		txs = append(txs, tx)
	}
	return txs
}
