package explorer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarvesf/chain-scanner/internal/model"
)

func TestAggregateAccountBased(t *testing.T) {
	got := AggregateAccountBased([]model.TransferTx{
		transfer("0xa", "0x1", "0x2", "1"),
		transfer("0xa", "0x1", "0x3", "2"),
		transfer("0xa", "0x1", "0x2", "0.5"),
	})
	require.Len(t, got, 2)
	assert.True(t, got[0].Value.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, "0x3", got[1].ToAddress)
}

func TestAggregateMemoBased(t *testing.T) {
	withMemo := func(tx model.TransferTx, memo string) model.TransferTx {
		tx.Memo = memo
		return tx
	}
	got := AggregateMemoBased([]model.TransferTx{
		withMemo(transfer("h", "a", "b", "1"), "42"),
		withMemo(transfer("h", "a", "b", "1"), "42"),
		withMemo(transfer("h", "a", "b", "1"), "43"),
		transfer("h", "a", "b", "1"),
		transfer("h", "a", "b", "1"),
	})
	require.Len(t, got, 4)
	assert.True(t, got[0].Value.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "43", got[1].Memo)
	assert.Empty(t, got[2].Memo)
	assert.Empty(t, got[3].Memo)
}

func TestNetUTXO(t *testing.T) {
	d := decimal.RequireFromString
	template := model.TransferTx{TxHash: "h", Symbol: "BTC", Success: true}

	got := NetUTXO(template,
		[]UTXOLeg{{"in1", d("1")}, {"in1", d("0.5")}, {"in2", d("0.2")}},
		[]UTXOLeg{{"out1", d("1.0")}, {"in1", d("0.6")}, {"in2", d("0.2")}, {"", d("0.1")}},
	)

	require.Len(t, got, 2)
	assert.Equal(t, "in1", got[0].FromAddress)
	assert.Empty(t, got[0].ToAddress)
	assert.True(t, got[0].Value.Equal(d("0.9")))
	assert.Empty(t, got[1].FromAddress)
	assert.Equal(t, "out1", got[1].ToAddress)
	assert.True(t, got[1].Value.Equal(d("1.0")))
	assert.Equal(t, "h", got[1].TxHash)
}
