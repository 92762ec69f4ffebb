package registry

import "github.com/dwarvesf/chain-scanner/internal/model"

// IRegistry is the read-only contract/currency lookup used by parsers.
type IRegistry interface {
	ContractCurrency(network, address string) (string, bool)
	ContractInfo(network, currency string) (model.ContractInfo, bool)
	ContractByAddress(network, address string) (model.ContractInfo, bool)
	Addresses(network string) []string
}
