package registry

import (
	"sort"
	"strings"

	"github.com/dwarvesf/chain-scanner/internal/model"
)

type networkContracts struct {
	caseSensitive bool
	byAddress     map[string]string
	byCurrency    map[string]model.ContractInfo
}

// Registry maps token contracts to currencies per network. It is built once
// from the chain table and never mutated afterwards.
type Registry struct {
	networks map[string]*networkContracts
}

func New() *Registry {
	return &Registry{networks: map[string]*networkContracts{}}
}

// Register adds the contracts of one network. Addresses are lowercased unless
// the network uses case-sensitive encodings.
func (r *Registry) Register(network string, caseSensitive bool, contracts []model.ContractInfo) *Registry {
	nc, ok := r.networks[network]
	if !ok {
		nc = &networkContracts{
			caseSensitive: caseSensitive,
			byAddress:     map[string]string{},
			byCurrency:    map[string]model.ContractInfo{},
		}
		r.networks[network] = nc
	}
	for _, c := range contracts {
		addr := nc.normalize(c.Address)
		c.Address = addr
		nc.byAddress[addr] = c.Currency
		nc.byCurrency[c.Currency] = c
	}
	return r
}

func (nc *networkContracts) normalize(address string) string {
	if nc.caseSensitive {
		return address
	}
	return strings.ToLower(address)
}

func (r *Registry) ContractCurrency(network, address string) (string, bool) {
	nc, ok := r.networks[network]
	if !ok {
		return "", false
	}
	currency, ok := nc.byAddress[nc.normalize(address)]
	return currency, ok
}

func (r *Registry) ContractInfo(network, currency string) (model.ContractInfo, bool) {
	nc, ok := r.networks[network]
	if !ok {
		return model.ContractInfo{}, false
	}
	info, ok := nc.byCurrency[currency]
	return info, ok
}

func (r *Registry) ContractByAddress(network, address string) (model.ContractInfo, bool) {
	currency, ok := r.ContractCurrency(network, address)
	if !ok {
		return model.ContractInfo{}, false
	}
	return r.ContractInfo(network, currency)
}

// Addresses returns the registered contract addresses of a network, sorted.
func (r *Registry) Addresses(network string) []string {
	nc, ok := r.networks[network]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(nc.byAddress))
	for addr := range nc.byAddress {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}
