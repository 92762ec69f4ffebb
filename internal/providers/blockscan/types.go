package blockscan

import (
	"bytes"
	"encoding/json"
)

// envelope is the common etherscan-style response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e envelope) hasResult() bool {
	r := bytes.TrimSpace(e.Result)
	return len(r) > 0 && !bytes.Equal(r, []byte("null"))
}

// rpcTx is a transaction as returned by the proxy module.
type rpcTx struct {
	Hash        string  `json:"hash"`
	From        string  `json:"from"`
	To          *string `json:"to"`
	Input       string  `json:"input"`
	Value       string  `json:"value"`
	BlockNumber *string `json:"blockNumber"`
	BlockHash   *string `json:"blockHash"`
	Gas         string  `json:"gas"`
	GasPrice    string  `json:"gasPrice"`
}

type rpcBlock struct {
	Number       string  `json:"number"`
	Hash         string  `json:"hash"`
	Timestamp    string  `json:"timestamp"`
	Transactions []rpcTx `json:"transactions"`
}

type rpcReceipt struct {
	Status            string `json:"status"`
	GasUsed           string `json:"gasUsed"`
	EffectiveGasPrice string `json:"effectiveGasPrice"`
}

// accountTx is an entry of the txlist and tokentx account actions.
type accountTx struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	Input           string `json:"input"`
	BlockNumber     string `json:"blockNumber"`
	BlockHash       string `json:"blockHash"`
	TimeStamp       string `json:"timeStamp"`
	Confirmations   string `json:"confirmations"`
	Gas             string `json:"gas"`
	GasUsed         string `json:"gasUsed"`
	GasPrice        string `json:"gasPrice"`
	IsError         string `json:"isError"`
	TxReceiptStatus string `json:"txreceipt_status"`
	ContractAddress string `json:"contractAddress"`
	TokenDecimal    string `json:"tokenDecimal"`
	TokenSymbol     string `json:"tokenSymbol"`
}
