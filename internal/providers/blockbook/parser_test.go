package blockbook

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/providers/base"
	"github.com/dwarvesf/chain-scanner/internal/registry"
)

var _ = Describe("parser", func() {
	var p parser

	BeforeEach(func() {
		opts := base.Options{Name: "ltc_blockbook", Chain: "litecoin", Network: "mainnet", Symbol: "LTC", Precision: 8, CaseSensitive: true}
		v := validator{Validator: base.NewValidator(opts)}
		p = parser{meta: base.Meta{Opts: opts}, validator: v, registry: registry.New()}
	})

	DescribeTable("ParseBalanceResponse",
		func(raw string, want string) {
			var resp *AddressResponse
			Expect(json.Unmarshal([]byte(raw), &resp)).To(Succeed())
			Expect(p.ParseBalanceResponse(resp).Equal(decimal.RequireFromString(want))).To(BeTrue())
		},
		Entry("null payload", `null`, "0"),
		Entry("missing address", `{"balance":"100000000"}`, "0"),
		Entry("null balance", `{"address":"LA","balance":null}`, "0"),
		Entry("garbage balance", `{"address":"LA","balance":"1.5e8"}`, "0"),
		Entry("valid balance", `{"address":"LA","balance":"150000000"}`, "1.5"),
	)

	It("returns zero when the contract is missing from a token balance payload", func() {
		resp := &AddressResponse{Address: "0x1111111111111111111111111111111111111111", Tokens: []Token{{Contract: "0xother", Balance: "5"}}}
		balance := p.ParseTokenBalanceResponse(resp, model.ContractInfo{Address: "0xdac17f958d2ee523a2206206994597c13d831ec7", Decimals: 6})
		Expect(balance.IsZero()).To(BeTrue())
	})

	It("parses the same block payload to the same transfers twice", func() {
		var txs []Transaction
		Expect(json.Unmarshal([]byte(`[
		  {"txid":"a","blockHash":"h100","blockHeight":100,"blockTime":1700000000,"fees":"1000",
		   "vin":[{"addresses":["LA"],"isAddress":true,"value":"300000000"}],
		   "vout":[{"addresses":["LB"],"isAddress":true,"value":"100000000"},{"addresses":["LA"],"isAddress":true,"value":"199999000"}]}
		]`), &txs)).To(Succeed())

		first := p.ParseBlockTxsResponse(txs)
		Expect(first).NotTo(BeEmpty())
		Expect(p.ParseBlockTxsResponse(txs)).To(Equal(first))
	})
})
