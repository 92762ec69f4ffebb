package blockbook_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/explorer"
	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/providers/base"
	"github.com/dwarvesf/chain-scanner/internal/providers/blockbook"
	"github.com/dwarvesf/chain-scanner/internal/registry"
	"github.com/dwarvesf/chain-scanner/internal/types/environments"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

const (
	usdt    = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	sender  = "0x1111111111111111111111111111111111111111"
	receipt = "0x2222222222222222222222222222222222222222"
)

var _ = Describe("Blockbook provider", func() {
	var (
		server *httptest.Server
		routes map[string]string
		ctx    context.Context
	)

	newProvider := func(opts base.Options) *blockbook.Provider {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.URL.Path
			if page := r.URL.Query().Get("page"); page != "" {
				key += "?page=" + page
			}
			body, ok := routes[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(body))
		}))
		opts.BaseURLs = []string{server.URL}
		opts.MaxRetries = 1
		opts.RetryBackoff = time.Millisecond
		reg := registry.New().Register("ethereum", false, []model.ContractInfo{
			{Currency: "usdt", Symbol: "USDT", Address: usdt, Decimals: 6},
		})
		return blockbook.New(opts, reg, logger.New(environments.Test))
	}

	BeforeEach(func() {
		ctx = context.Background()
		routes = map[string]string{}
	})

	AfterEach(func() {
		server.Close()
	})

	Context("on a UTXO chain", func() {
		var provider *blockbook.Provider

		BeforeEach(func() {
			provider = newProvider(base.Options{
				Name:          "ltc_blockbook",
				Chain:         "litecoin",
				Symbol:        "LTC",
				Precision:     8,
				CaseSensitive: true,
				MaxWorkers:    2,
			})
		})

		It("reads bestHeight from the status endpoint", func() {
			routes["/api/v2"] = `{"blockbook":{"inSync":true,"bestHeight":2750000},"backend":{"blocks":2750000}}`

			head, err := provider.GetBlockHead(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(head).To(Equal(int64(2750000)))
		})

		It("treats backend warnings as an invalid response", func() {
			routes["/api/v2"] = `{"blockbook":{"inSync":true,"bestHeight":2750000},"backend":{"warnings":"node is syncing"}}`

			_, err := provider.GetBlockHead(ctx)
			Expect(err).To(MatchError(explorer.ErrInvalidResponse))
		})

		It("merges every block page and nets change", func() {
			routes["/api/v2/block/100?page=1"] = `{"page":1,"totalPages":2,"hash":"h100","height":100,"txs":[
				{"txid":"a","blockHash":"h100","blockHeight":100,"blockTime":1700000000,"fees":"1000",
				 "vin":[{"addresses":["LA"],"isAddress":true,"value":"300000000"}],
				 "vout":[{"addresses":["LB"],"isAddress":true,"value":"100000000"},{"addresses":["LA"],"isAddress":true,"value":"199999000"}]}
			]}`
			routes["/api/v2/block/100?page=2"] = `{"page":2,"totalPages":2,"hash":"h100","height":100,"txs":[
				{"txid":"b","blockHash":"h100","blockHeight":100,"blockTime":1700000000,"fees":"0",
				 "vin":[],
				 "vout":[{"addresses":["LC"],"isAddress":true,"value":"50000000"}]}
			]}`

			txs, err := provider.GetBlockTxs(ctx, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(txs).To(HaveLen(3))

			Expect(txs[0].TxHash).To(Equal("a"))
			Expect(txs[0].FromAddress).To(Equal("LA"))
			Expect(txs[0].Value.Equal(decimal.RequireFromString("1.00001"))).To(BeTrue())
			Expect(txs[1].ToAddress).To(Equal("LB"))
			Expect(txs[2].TxHash).To(Equal("b"))
			Expect(txs[2].ToAddress).To(Equal("LC"))
			Expect(txs[2].Confirmations).To(BeNil())
		})

		It("fails the block when a later page errors", func() {
			routes["/api/v2/block/100?page=1"] = `{"page":1,"totalPages":3,"hash":"h100","height":100,"txs":[]}`
			routes["/api/v2/block/100?page=2"] = `{"page":2,"totalPages":3,"hash":"h100","height":100,"txs":[]}`

			_, err := provider.GetBlockTxs(ctx, 100)
			Expect(err).To(HaveOccurred())
		})

		It("reads the confirmed balance", func() {
			routes["/api/v2/address/LA"] = `{"address":"LA","balance":"123456789","unconfirmedBalance":"-5"}`

			balance, err := provider.GetBalance(ctx, "LA")
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.Equal(decimal.RequireFromString("1.23456789"))).To(BeTrue())
		})
	})

	Context("on an account based chain", func() {
		var provider *blockbook.Provider

		BeforeEach(func() {
			provider = newProvider(base.Options{
				Name:      "eth_blockbook",
				Chain:     "ethereum",
				Network:   "ethereum",
				Symbol:    "ETH",
				Precision: 18,
			})
		})

		It("parses token transfers of registered contracts", func() {
			routes["/api/v2/tx/0xabc"] = `{"txid":"0xabc","blockHash":"0xh","blockHeight":19000000,"blockTime":1700000000,
				"confirmations":12,"value":"0","fees":"21000000000000",
				"vin":[{"addresses":["` + sender + `"],"isAddress":true}],
				"vout":[{"addresses":["` + usdt + `"],"isAddress":true}],
				"tokenTransfers":[{"type":"ERC20","from":"` + sender + `","to":"` + receipt + `","contract":"` + usdt + `","value":"2500000","decimals":6}],
				"ethereumSpecific":{"status":1,"data":"0xa9059cbb000000000000000000000000222222222222222222222222222222222222222200000000000000000000000000000000000000000000000000000000002625a0"}}`

			txs, err := provider.GetTxDetails(ctx, "0xabc", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(txs).To(HaveLen(1))
			Expect(txs[0].Symbol).To(Equal("USDT"))
			Expect(txs[0].Token).To(Equal(strings.ToLower(usdt)))
			Expect(txs[0].Value.Equal(decimal.RequireFromString("2.5"))).To(BeTrue())
			Expect(*txs[0].Confirmations).To(Equal(int64(12)))
		})

		It("drops reverted transactions", func() {
			routes["/api/v2/tx/0xdef"] = `{"txid":"0xdef","blockHash":"0xh","blockHeight":19000000,"blockTime":1700000000,
				"value":"1000000000000000000","fees":"21000000000000",
				"vin":[{"addresses":["` + sender + `"],"isAddress":true}],
				"vout":[{"addresses":["` + receipt + `"],"isAddress":true}],
				"ethereumSpecific":{"status":0,"data":"0x"}}`

			txs, err := provider.GetTxDetails(ctx, "0xdef", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(txs).To(BeEmpty())
		})

		It("keeps native transfers of the address and skips token legs", func() {
			routes["/api/v2/address/"+receipt] = `{"address":"` + receipt + `","transactions":[
				{"txid":"0x1","blockHash":"0xh","blockHeight":19000000,"blockTime":1700000000,"confirmations":3,
				 "value":"1000000000000000000","fees":"21000000000000",
				 "vin":[{"addresses":["` + sender + `"],"isAddress":true}],
				 "vout":[{"addresses":["` + receipt + `"],"isAddress":true}],
				 "ethereumSpecific":{"status":1,"data":"0x"}}
			]}`

			txs, err := provider.GetAddressTxs(ctx, receipt, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(txs).To(HaveLen(1))
			Expect(txs[0].Value.Equal(decimal.NewFromInt(1))).To(BeTrue())
			Expect(txs[0].Symbol).To(Equal("ETH"))
		})
	})
})
