package blockstream

// ChainStats represents the statistics of the blockchain referring to the transactions that have been committed to the blockchain.
type ChainStats struct {
	FundedTxoCount int   `json:"funded_txo_count"`
	FundedTxoSum   int64 `json:"funded_txo_sum"`
	SpentTxoCount  int   `json:"spent_txo_count"`
	SpentTxoSum    int64 `json:"spent_txo_sum"`
	TxCount        int   `json:"tx_count"`
}

type GetBalanceResponse struct {
	Address    string      `json:"address"`
	ChainStats *ChainStats `json:"chain_stats"`
}

type Prevout struct {
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	Value               int64  `json:"value"`
}

type Vin struct {
	TxID       string   `json:"txid"`
	Vout       uint32   `json:"vout"`
	Prevout    *Prevout `json:"prevout"`
	IsCoinbase bool     `json:"is_coinbase"`
}

type Vout struct {
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	Value               int64  `json:"value"`
}

type TxStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight int64  `json:"block_height"`
	BlockHash   string `json:"block_hash"`
	BlockTime   int64  `json:"block_time"`
}

type Transaction struct {
	TxID   string   `json:"txid"`
	Vin    []Vin    `json:"vin"`
	Vout   []Vout   `json:"vout"`
	Fee    int64    `json:"fee"`
	Status TxStatus `json:"status"`
}

type Block struct {
	ID        string `json:"id"`
	Height    int64  `json:"height"`
	TxCount   int    `json:"tx_count"`
	Timestamp int64  `json:"timestamp"`
}
