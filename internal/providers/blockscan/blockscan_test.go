package blockscan_test

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
	"github.com/dwarvesf/chain-scanner/internal/providers/blockscan"
	"github.com/dwarvesf/chain-scanner/internal/registry"
	"github.com/dwarvesf/chain-scanner/internal/types/environments"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

const (
	usdtContract = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	sender       = "0x1111111111111111111111111111111111111111"
	receiver     = "0x2222222222222222222222222222222222222222"
	denied       = "0x70fd2842096f451150c5748a30e39b64e35a3cdf"
)

func word(hex string) string {
	return strings.Repeat("0", 64-len(hex)) + hex
}

var blockResponse = `{"jsonrpc":"2.0","id":1,"result":{
  "number":"0x3e8","hash":"0xblock","timestamp":"0x65000000",
  "transactions":[
    {"hash":"0xnative","from":"` + sender + `","to":"` + receiver + `","input":"0x","value":"0xde0b6b3a7640000","blockNumber":"0x3e8","blockHash":"0xblock"},
    {"hash":"0xtoken","from":"` + sender + `","to":"` + usdtContract + `","input":"0xa9059cbb` + word(receiver[2:]) + word("2faf080") + `","value":"0x0","blockNumber":"0x3e8","blockHash":"0xblock"},
    {"hash":"0xself","from":"` + sender + `","to":"` + sender + `","input":"0x","value":"0x1","blockNumber":"0x3e8","blockHash":"0xblock"},
    {"hash":"0xdenied","from":"` + denied + `","to":"` + receiver + `","input":"0x","value":"0x1","blockNumber":"0x3e8","blockHash":"0xblock"},
    {"hash":"0xapprove","from":"` + sender + `","to":"` + usdtContract + `","input":"0x095ea7b3` + word("1") + word("2") + `","value":"0x0","blockNumber":"0x3e8","blockHash":"0xblock"},
    {"hash":"0xzero","from":"` + sender + `","to":"` + receiver + `","input":"0x","value":"0x0","blockNumber":"0x3e8","blockHash":"0xblock"},
    {"hash":"0xcreate","from":"` + sender + `","to":null,"input":"0x6080","value":"0x0","blockNumber":"0x3e8","blockHash":"0xblock"}
  ]}}`

var txlistResponse = `{"status":"1","message":"OK","result":[
  {"hash":"0xa","from":"` + sender + `","to":"` + receiver + `","value":"2000000000000000000","input":"0x","blockNumber":"990","blockHash":"0xb1","timeStamp":"1700000000","confirmations":"10","gas":"21000","gasUsed":"21000","gasPrice":"1000000000","isError":"0","txreceipt_status":"1"},
  {"hash":"0xb","from":"` + sender + `","to":"` + receiver + `","value":"1","input":"0x","blockNumber":"991","blockHash":"0xb2","timeStamp":"1700000000","confirmations":"9","gas":"21000","gasUsed":"21000","gasPrice":"1","isError":"1","txreceipt_status":"0"},
  {"hash":"0xc","from":"` + receiver + `","to":"` + sender + `","value":"5","input":"0x","blockNumber":"992","blockHash":"0xb3","timeStamp":"1700000000","confirmations":"8","gas":"21000","gasUsed":"21000","gasPrice":"1","isError":"0","txreceipt_status":"1"}
]}`

func newServer(handlers map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/api" || r.URL.Query().Get("apikey") != "key" || r.URL.Query().Get("chainid") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, ok := handlers[r.URL.Query().Get("action")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
}

var _ = Describe("Blockscan provider", func() {
	var (
		server   *httptest.Server
		provider *blockscan.Provider
		handlers map[string]string
		ctx      context.Context
	)

	newProvider := func() {
		server = newServer(handlers)
		reg := registry.New().Register("mainnet", false, []model.ContractInfo{
			{Currency: "usdt", Symbol: "USDT", Address: usdtContract, Decimals: 6},
		})
		provider = blockscan.New(base.Options{
			Name:              "etherscan",
			Chain:             "ethereum",
			Network:           "mainnet",
			BaseURLs:          []string{server.URL},
			APIKeys:           []string{"key"},
			MaxRetries:        1,
			RetryBackoff:      time.Millisecond,
			Symbol:            "ETH",
			Precision:         18,
			ChainID:           1,
			BlockHeightOffset: 5,
			Denylist:          []string{denied},
		}, reg, logger.New(environments.Test))
	}

	BeforeEach(func() {
		ctx = context.Background()
		handlers = map[string]string{}
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	Describe("GetBlockHead", func() {
		It("parses the hex block number", func() {
			handlers["eth_blockNumber"] = `{"jsonrpc":"2.0","id":83,"result":"0x3e8"}`
			newProvider()

			head, err := provider.GetBlockHead(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(head).To(Equal(int64(1000)))
			Expect(provider.BlockHeightOffset()).To(Equal(int64(5)))
		})

		It("reports NOTOK as a provider error", func() {
			handlers["eth_blockNumber"] = `{"status":"0","message":"NOTOK","result":"Invalid API Key"}`
			newProvider()

			_, err := provider.GetBlockHead(ctx)
			var apiErr *explorer.APIError
			Expect(err).To(BeAssignableToTypeOf(apiErr))
			Expect(err.Error()).To(ContainSubstring("Invalid API Key"))
		})
	})

	Describe("GetBalance", func() {
		It("scales the balance", func() {
			handlers["balance"] = `{"status":"1","message":"OK","result":"1500000000000000000"}`
			newProvider()

			balance, err := provider.GetBalance(ctx, sender)
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.Equal(decimal.RequireFromString("1.5"))).To(BeTrue())
		})

		It("treats a null result as invalid", func() {
			handlers["balance"] = `{"status":"1","message":"OK","result":null}`
			newProvider()

			_, err := provider.GetBalance(ctx, sender)
			Expect(err).To(MatchError(explorer.ErrInvalidResponse))
		})
	})

	Describe("GetBlockTxs", func() {
		It("keeps only valid native and registered token transfers in block order", func() {
			handlers["eth_getBlockByNumber"] = blockResponse
			newProvider()

			txs, err := provider.GetBlockTxs(ctx, 1000)
			Expect(err).NotTo(HaveOccurred())
			Expect(txs).To(HaveLen(2))

			Expect(txs[0].TxHash).To(Equal("0xnative"))
			Expect(txs[0].Symbol).To(Equal("ETH"))
			Expect(txs[0].Value.Equal(decimal.NewFromInt(1))).To(BeTrue())
			Expect(txs[0].BlockHeight).To(Equal(int64(1000)))
			Expect(txs[0].Confirmations).To(BeNil())
			Expect(txs[0].Date.IsZero()).To(BeFalse())

			Expect(txs[1].TxHash).To(Equal("0xtoken"))
			Expect(txs[1].Symbol).To(Equal("USDT"))
			Expect(txs[1].Token).To(Equal(usdtContract))
			Expect(txs[1].ToAddress).To(Equal(receiver))
			Expect(txs[1].Value.Equal(decimal.NewFromInt(50))).To(BeTrue())
		})

		It("returns an invalid response when the block has no transaction list", func() {
			handlers["eth_getBlockByNumber"] = `{"jsonrpc":"2.0","id":1,"result":null}`
			newProvider()

			_, err := provider.GetBlockTxs(ctx, 1000)
			Expect(err).To(MatchError(explorer.ErrInvalidResponse))
		})
	})

	Describe("GetTxDetails", func() {
		It("uses the receipt for status and fee", func() {
			handlers["eth_getTransactionByHash"] = `{"jsonrpc":"2.0","id":1,"result":{"hash":"0xnative","from":"` + sender + `","to":"` + receiver + `","input":"0x","value":"0xde0b6b3a7640000","blockNumber":"0x3e8","blockHash":"0xblock","gasPrice":"0x3b9aca00"}}`
			handlers["eth_getTransactionReceipt"] = `{"jsonrpc":"2.0","id":1,"result":{"status":"0x1","gasUsed":"0x5208","effectiveGasPrice":"0x3b9aca00"}}`
			newProvider()

			txs, err := provider.GetTxDetails(ctx, "0xnative", 1010)
			Expect(err).NotTo(HaveOccurred())
			Expect(txs).To(HaveLen(1))
			Expect(*txs[0].Confirmations).To(Equal(int64(10)))
			Expect(txs[0].TxFee.Equal(decimal.RequireFromString("0.000021"))).To(BeTrue())
		})

		It("drops reverted transactions", func() {
			handlers["eth_getTransactionByHash"] = `{"jsonrpc":"2.0","id":1,"result":{"hash":"0xnative","from":"` + sender + `","to":"` + receiver + `","input":"0x","value":"0x1","blockNumber":"0x3e8","blockHash":"0xblock","gasPrice":"0x1"}}`
			handlers["eth_getTransactionReceipt"] = `{"jsonrpc":"2.0","id":1,"result":{"status":"0x0","gasUsed":"0x5208"}}`
			newProvider()

			txs, err := provider.GetTxDetails(ctx, "0xnative", 1010)
			Expect(err).NotTo(HaveOccurred())
			Expect(txs).To(BeEmpty())
		})
	})

	Describe("GetAddressTxs", func() {
		It("filters failed transactions and fills fees", func() {
			handlers["txlist"] = txlistResponse
			newProvider()

			txs, err := provider.GetAddressTxs(ctx, receiver, 1000)
			Expect(err).NotTo(HaveOccurred())
			Expect(txs).To(HaveLen(2))
			Expect(txs[0].TxHash).To(Equal("0xa"))
			Expect(*txs[0].Confirmations).To(Equal(int64(10)))
			Expect(txs[0].TxFee.Equal(decimal.RequireFromString("0.000021"))).To(BeTrue())
			Expect(txs[1].TxHash).To(Equal("0xc"))
		})

		It("treats no transactions as a valid empty list", func() {
			handlers["txlist"] = `{"status":"0","message":"No transactions found","result":[]}`
			newProvider()

			txs, err := provider.GetAddressTxs(ctx, receiver, 1000)
			Expect(err).NotTo(HaveOccurred())
			Expect(txs).To(BeEmpty())
		})
	})

	Describe("GetTokenTxs", func() {
		It("keeps transfers of the requested contract", func() {
			handlers["tokentx"] = `{"status":"1","message":"OK","result":[
			  {"hash":"0xt1","from":"` + sender + `","to":"` + receiver + `","value":"1000000","contractAddress":"` + usdtContract + `","blockNumber":"990","timeStamp":"1700000000","confirmations":"3","gas":"60000","gasUsed":"50000","gasPrice":"1"},
			  {"hash":"0xt2","from":"` + sender + `","to":"` + receiver + `","value":"1000000","contractAddress":"0x9999999999999999999999999999999999999999","blockNumber":"990","timeStamp":"1700000000","confirmations":"3","gas":"60000","gasUsed":"50000","gasPrice":"1"}
			]}`
			newProvider()

			contract := model.ContractInfo{Currency: "usdt", Symbol: "USDT", Address: usdtContract, Decimals: 6}
			txs, err := provider.GetTokenTxs(ctx, receiver, contract, 1000)
			Expect(err).NotTo(HaveOccurred())
			Expect(txs).To(HaveLen(1))
			Expect(txs[0].Symbol).To(Equal("USDT"))
			Expect(txs[0].Value.Equal(decimal.NewFromInt(1))).To(BeTrue())
		})
	})

	It("does not support batch block fetches", func() {
		newProvider()
		_, err := provider.GetBatchBlockTxs(ctx, 1, 3)
		Expect(err).To(MatchError(explorer.ErrNotSupported))
	})
})
