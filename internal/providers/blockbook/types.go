package blockbook

type StatusResponse struct {
	Blockbook *BlockbookStatus `json:"blockbook"`
	Backend   *BackendStatus   `json:"backend"`
}

type BlockbookStatus struct {
	Coin       string `json:"coin"`
	InSync     bool   `json:"inSync"`
	BestHeight *int64 `json:"bestHeight"`
}

type BackendStatus struct {
	Chain    string `json:"chain"`
	Blocks   int64  `json:"blocks"`
	Warnings string `json:"warnings"`
}

type Vin struct {
	N         int      `json:"n"`
	Addresses []string `json:"addresses"`
	IsAddress bool     `json:"isAddress"`
	Value     string   `json:"value"`
}

type Vout struct {
	N         int      `json:"n"`
	Addresses []string `json:"addresses"`
	IsAddress bool     `json:"isAddress"`
	Value     string   `json:"value"`
}

type TokenTransfer struct {
	Type     string `json:"type"`
	From     string `json:"from"`
	To       string `json:"to"`
	Contract string `json:"contract"`
	Token    string `json:"token"`
	Value    string `json:"value"`
	Decimals int    `json:"decimals"`
	Symbol   string `json:"symbol"`
}

// ContractAddress handles both the current and the legacy field name.
func (t TokenTransfer) ContractAddress() string {
	if t.Contract != "" {
		return t.Contract
	}
	return t.Token
}

type EthereumSpecific struct {
	Status   int    `json:"status"`
	Nonce    uint64 `json:"nonce"`
	GasLimit uint64 `json:"gasLimit"`
	GasUsed  uint64 `json:"gasUsed"`
	GasPrice string `json:"gasPrice"`
	Data     string `json:"data"`
}

type Transaction struct {
	TxID             string            `json:"txid"`
	Vin              []Vin             `json:"vin"`
	Vout             []Vout            `json:"vout"`
	BlockHash        string            `json:"blockHash"`
	BlockHeight      int64             `json:"blockHeight"`
	Confirmations    int64             `json:"confirmations"`
	BlockTime        int64             `json:"blockTime"`
	Value            string            `json:"value"`
	Fees             string            `json:"fees"`
	TokenTransfers   []TokenTransfer   `json:"tokenTransfers"`
	EthereumSpecific *EthereumSpecific `json:"ethereumSpecific"`
}

type Token struct {
	Type     string `json:"type"`
	Contract string `json:"contract"`
	Balance  string `json:"balance"`
	Decimals int    `json:"decimals"`
}

type AddressResponse struct {
	Address            string        `json:"address"`
	Balance            string        `json:"balance"`
	UnconfirmedBalance string        `json:"unconfirmedBalance"`
	Page               int           `json:"page"`
	TotalPages         int           `json:"totalPages"`
	Transactions       []Transaction `json:"transactions"`
	Tokens             []Token       `json:"tokens"`
}

type BlockResponse struct {
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
	Hash       string        `json:"hash"`
	Height     int64         `json:"height"`
	Time       int64         `json:"time"`
	TxCount    int           `json:"txCount"`
	Txs        []Transaction `json:"txs"`
	Error      string        `json:"error"`
}
