package blockscan

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/evm"
	"github.com/dwarvesf/chain-scanner/internal/providers/base"
)

func decodeEnvelope(raw string) *envelope {
	var env envelope
	Expect(json.Unmarshal([]byte(raw), &env)).To(Succeed())
	return &env
}

var _ = Describe("parser", func() {
	var p parser

	BeforeEach(func() {
		opts := base.Options{Name: "etherscan", Chain: "ethereum", Network: "mainnet", Symbol: "ETH", Precision: 18}
		v := validator{Validator: base.NewValidator(opts)}
		p = parser{
			meta:      base.Meta{Opts: opts},
			validator: v,
			decoder:   evm.Decoder{Network: opts.Network, Symbol: opts.Symbol, Precision: opts.Precision},
		}
	})

	DescribeTable("ParseBalanceResponse",
		func(raw string, want string) {
			balance := p.ParseBalanceResponse(decodeEnvelope(raw), 18)
			Expect(balance.Equal(decimal.RequireFromString(want))).To(BeTrue())
		},
		Entry("null result", `{"status":"1","message":"OK","result":null}`, "0"),
		Entry("missing result", `{"status":"1","message":"OK"}`, "0"),
		Entry("declared failure", `{"status":"0","message":"NOTOK","result":"Invalid API Key"}`, "0"),
		Entry("garbage string", `{"status":"1","message":"OK","result":"0xzz"}`, "0"),
		Entry("object instead of string", `{"status":"1","message":"OK","result":{"balance":"1"}}`, "0"),
		Entry("valid balance", `{"status":"1","message":"OK","result":"1500000000000000000"}`, "1.5"),
	)

	It("returns zero for a nil envelope", func() {
		Expect(p.ParseBalanceResponse(nil, 18).IsZero()).To(BeTrue())
	})

	It("parses the same block payload to the same transfers twice", func() {
		env := decodeEnvelope(`{"jsonrpc":"2.0","id":1,"result":{
		  "number":"0x3e8","hash":"0xblock","timestamp":"0x65000000",
		  "transactions":[
		    {"hash":"0xa","from":"0x1111111111111111111111111111111111111111","to":"0x2222222222222222222222222222222222222222","input":"0x","value":"0xde0b6b3a7640000","blockNumber":"0x3e8","blockHash":"0xblock"},
		    {"hash":"0xb","from":"0x2222222222222222222222222222222222222222","to":"0x3333333333333333333333333333333333333333","input":"0x","value":"0x1bc16d674ec80000","blockNumber":"0x3e8","blockHash":"0xblock"}
		  ]}}`)

		block, ok := p.decodeBlock(env)
		Expect(ok).To(BeTrue())

		first := p.ParseBlockTxsResponse(block)
		second := p.ParseBlockTxsResponse(block)
		Expect(first).To(HaveLen(2))
		Expect(second).To(Equal(first))
		for _, tx := range first {
			Expect(tx.Success).To(BeTrue(), "block level transfers are not checked against receipts")
		}

		again, ok := p.decodeBlock(env)
		Expect(ok).To(BeTrue())
		Expect(p.ParseBlockTxsResponse(again)).To(Equal(first))
	})

	It("parses the same balance payload to the same amount twice", func() {
		env := decodeEnvelope(`{"status":"1","message":"OK","result":"42"}`)
		Expect(p.ParseBalanceResponse(env, 18)).To(Equal(p.ParseBalanceResponse(env, 18)))
	})
})
