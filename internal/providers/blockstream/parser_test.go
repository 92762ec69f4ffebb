package blockstream

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/providers/base"
)

var _ = Describe("parser", func() {
	var p parser

	BeforeEach(func() {
		opts := base.Options{Name: "blockstream", Chain: "bitcoin", Network: "mainnet", Symbol: "BTC", Precision: 8}
		p = parser{meta: base.Meta{Opts: opts}, validator: validator{Validator: base.NewValidator(opts), params: paramsFor(opts.Network)}}
	})

	DescribeTable("ParseBalanceResponse",
		func(raw string, want string) {
			var resp *GetBalanceResponse
			Expect(json.Unmarshal([]byte(raw), &resp)).To(Succeed())
			Expect(p.ParseBalanceResponse(resp).Equal(decimal.RequireFromString(want))).To(BeTrue())
		},
		Entry("null payload", `null`, "0"),
		Entry("null chain stats", `{"address":"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa","chain_stats":null}`, "0"),
		Entry("missing chain stats", `{"address":"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"}`, "0"),
		Entry("funded minus spent", `{"address":"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa","chain_stats":{"funded_txo_sum":250000000,"spent_txo_sum":100000000}}`, "1.5"),
	)

	It("parses the same block payload to the same transfers twice", func() {
		var txs []Transaction
		Expect(json.Unmarshal([]byte(`[
		  {"txid":"4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b","fee":10000,
		   "vin":[{"txid":"0e3e2357e806b6cdb1f70b54c3a3a17b6714ee1f0e68bebb44a74b1efd512098","vout":0,"prevout":{"scriptpubkey_address":"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq","value":150000000}}],
		   "vout":[{"scriptpubkey_address":"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa","value":100000000},{"scriptpubkey_address":"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq","value":49990000}],
		   "status":{"confirmed":true,"block_height":870000,"block_hash":"000000000000000000024bead8df69990852c202db0e0097c1a12ea637d7e96d","block_time":1700000000}}
		]`), &txs)).To(Succeed())

		first := p.ParseBlockTxsResponse(txs)
		Expect(first).NotTo(BeEmpty())
		Expect(p.ParseBlockTxsResponse(txs)).To(Equal(first))
	})
})
