package model

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// AddressSet is a set of chain addresses, serialized as a sorted list.
type AddressSet map[string]struct{}

func (s AddressSet) Add(address string) {
	s[address] = struct{}{}
}

func (s AddressSet) Has(address string) bool {
	_, ok := s[address]
	return ok
}

func (s AddressSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func (s AddressSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *AddressSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = make(AddressSet, len(list))
	for _, a := range list {
		s.Add(a)
	}
	return nil
}

// TxAddresses holds every address seen in a scan window.
type TxAddresses struct {
	InputAddresses  AddressSet `json:"input_addresses"`
	OutputAddresses AddressSet `json:"output_addresses"`
}

func NewTxAddresses() TxAddresses {
	return TxAddresses{
		InputAddresses:  AddressSet{},
		OutputAddresses: AddressSet{},
	}
}

type TxInfo struct {
	TxHash          string          `json:"tx_hash"`
	Value           decimal.Decimal `json:"value"`
	ContractAddress string          `json:"contract_address,omitempty"`
	BlockHeight     int64           `json:"block_height,omitempty"`
	Symbol          string          `json:"symbol"`
	Index           *int64          `json:"index,omitempty"`
}

// TxsIndex maps address -> currency symbol -> transfers.
type TxsIndex map[string]map[string][]TxInfo

func (idx TxsIndex) Append(address, currency string, info TxInfo) {
	byCurrency, ok := idx[address]
	if !ok {
		byCurrency = map[string][]TxInfo{}
		idx[address] = byCurrency
	}
	byCurrency[currency] = append(byCurrency[currency], info)
}

// Merge adds info to an existing entry with the same tx hash, or appends it.
func (idx TxsIndex) Merge(address, currency string, info TxInfo) {
	for i, existing := range idx[address][currency] {
		if existing.TxHash == info.TxHash {
			idx[address][currency][i].Value = existing.Value.Add(info.Value)
			return
		}
	}
	idx.Append(address, currency, info)
}

type TxsInfo struct {
	OutgoingTxs TxsIndex `json:"outgoing_txs"`
	IncomingTxs TxsIndex `json:"incoming_txs"`
}

func NewTxsInfo() TxsInfo {
	return TxsInfo{
		OutgoingTxs: TxsIndex{},
		IncomingTxs: TxsIndex{},
	}
}

// ScanResult is what a committed scan cycle hands to downstream consumers.
type ScanResult struct {
	Chain                string      `json:"chain"`
	FromHeight           int64       `json:"from_height"`
	ToHeight             int64       `json:"to_height"`
	LatestBlockProcessed int64       `json:"latest_block_processed"`
	Addresses            TxAddresses `json:"transactions_addresses"`
	Info                 TxsInfo     `json:"transactions_info"`
}

// Empty reports whether the cycle scanned no new blocks.
func (r *ScanResult) Empty() bool {
	return r.ToHeight < r.FromHeight
}
