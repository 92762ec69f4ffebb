package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferTx_IsSelfTransfer(t *testing.T) {
	tests := []struct {
		name          string
		from, to      string
		caseSensitive bool
		want          bool
	}{
		{name: "same lowercase", from: "0xabc", to: "0xabc", want: true},
		{name: "mixed case insensitive", from: "0xABC", to: "0xabc", want: true},
		{name: "mixed case sensitive", from: "TAbc", to: "Tabc", caseSensitive: true, want: false},
		{name: "different", from: "0xabc", to: "0xdef", want: false},
		{name: "empty receiver", from: "0xabc", to: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := TransferTx{FromAddress: tt.from, ToAddress: tt.to}
			assert.Equal(t, tt.want, tx.IsSelfTransfer(tt.caseSensitive))
		})
	}
}

func TestTransferTx_Key(t *testing.T) {
	a := TransferTx{TxHash: "0x1", FromAddress: "0xAA", ToAddress: "0xBB", Symbol: "USDT", Token: "0xCC"}
	b := TransferTx{TxHash: "0x1", FromAddress: "0xaa", ToAddress: "0xbb", Symbol: "USDT", Token: "0xcc"}
	assert.Equal(t, a.Key(), b.Key())

	b.Index = Int64Ptr(1)
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestConfirmations(t *testing.T) {
	assert.Equal(t, int64(10), *Confirmations(100, 90, 0))
	assert.Equal(t, int64(11), *Confirmations(100, 90, 1))
	assert.Equal(t, int64(0), *Confirmations(90, 100, 0))
	assert.Nil(t, Confirmations(0, 90, 0))
}

func TestTxsIndex_Merge(t *testing.T) {
	idx := TxsIndex{}
	idx.Merge("0xaa", "ETH", TxInfo{TxHash: "0x1", Value: decimal.NewFromInt(1)})
	idx.Merge("0xaa", "ETH", TxInfo{TxHash: "0x1", Value: decimal.NewFromInt(2)})
	idx.Merge("0xaa", "ETH", TxInfo{TxHash: "0x2", Value: decimal.NewFromInt(5)})

	require.Len(t, idx["0xaa"]["ETH"], 2)
	assert.True(t, decimal.NewFromInt(3).Equal(idx["0xaa"]["ETH"][0].Value))
	assert.True(t, decimal.NewFromInt(5).Equal(idx["0xaa"]["ETH"][1].Value))
}

func TestAddressSet_JSON(t *testing.T) {
	s := AddressSet{}
	s.Add("b")
	s.Add("a")
	s.Add("b")

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(raw))

	var back AddressSet
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Has("a"))
	assert.Len(t, back, 2)
}
