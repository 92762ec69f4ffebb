package explorer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/model"
)

type Direction string

const (
	DirectionAny      Direction = ""
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(s)) {
	case DirectionAny, DirectionIncoming, DirectionOutgoing:
		return Direction(strings.ToLower(s)), true
	}
	return DirectionAny, false
}

// FilterDirection keeps transfers received by (incoming) or sent from
// (outgoing) address. Addresses compare case-insensitively.
func FilterDirection(address string, txs []model.TransferTx, direction Direction) []model.TransferTx {
	if direction == DirectionAny {
		return txs
	}
	out := make([]model.TransferTx, 0, len(txs))
	for _, tx := range txs {
		switch direction {
		case DirectionIncoming:
			if strings.EqualFold(tx.ToAddress, address) {
				out = append(out, tx)
			}
		case DirectionOutgoing:
			if strings.EqualFold(tx.FromAddress, address) {
				out = append(out, tx)
			}
		}
	}
	return out
}

// AddressTx is a transfer seen from one address. Amount is negative for
// outgoing transfers.
type AddressTx struct {
	Address   string           `json:"address"`
	Direction Direction        `json:"direction"`
	Amount    decimal.Decimal  `json:"amount"`
	Tx        model.TransferTx `json:"tx"`
}

// ToAddressTxs groups the transfers touching address by symbol. A transfer is
// incoming when address receives it and did not send it.
func ToAddressTxs(address string, txs []model.TransferTx, caseSensitive bool) map[string][]AddressTx {
	same := strings.EqualFold
	if caseSensitive {
		same = func(a, b string) bool { return a == b }
	}

	out := map[string][]AddressTx{}
	for _, tx := range txs {
		isTo := same(tx.ToAddress, address)
		isFrom := same(tx.FromAddress, address)
		if !isTo && !isFrom {
			continue
		}
		atx := AddressTx{Address: address, Tx: tx}
		if isTo && !isFrom {
			atx.Direction = DirectionIncoming
			atx.Amount = tx.Value
		} else {
			atx.Direction = DirectionOutgoing
			atx.Amount = tx.Value.Neg()
		}
		out[tx.Symbol] = append(out[tx.Symbol], atx)
	}
	return out
}
