package blockstream_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/dwarvesf/chain-scanner/internal/explorer"
	"github.com/dwarvesf/chain-scanner/internal/providers/base"
	"github.com/dwarvesf/chain-scanner/internal/providers/blockstream"
	"github.com/dwarvesf/chain-scanner/internal/types/environments"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

const (
	alice     = "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"
	bob       = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	carol     = "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy"
	txid      = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
	blockHash = "000000000000000000024bead8df69990852c202db0e0097c1a12ea637d7e96d"
)

func txWithID(id string, height int64) blockstream.Transaction {
	return blockstream.Transaction{
		TxID: id,
		Vin: []blockstream.Vin{
			{Prevout: &blockstream.Prevout{ScriptPubKeyAddress: alice, Value: 150_000_000}},
		},
		Vout: []blockstream.Vout{
			{ScriptPubKeyAddress: bob, Value: 100_000_000},
			{ScriptPubKeyAddress: alice, Value: 49_990_000},
		},
		Fee:    10_000,
		Status: blockstream.TxStatus{Confirmed: true, BlockHeight: height, BlockHash: blockHash, BlockTime: 1700000000},
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	Expect(err).NotTo(HaveOccurred())
	return string(b)
}

var _ = Describe("Blockstream provider", func() {
	var (
		server   *httptest.Server
		routes   map[string]string
		provider *blockstream.Provider
		ctx      context.Context
		hits     int32
	)

	start := func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			body, ok := routes[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(body))
		}))
		provider = blockstream.New(base.Options{
			Name:          "blockstream",
			Chain:         "bitcoin",
			Network:       "mainnet",
			BaseURLs:      []string{server.URL},
			MaxRetries:    1,
			RetryBackoff:  time.Millisecond,
			MaxWorkers:    2,
			CaseSensitive: true,
		}, logger.New(environments.Test))
	}

	BeforeEach(func() {
		ctx = context.Background()
		routes = map[string]string{}
		atomic.StoreInt32(&hits, 0)
	})

	AfterEach(func() {
		server.Close()
	})

	It("reads the tip height", func() {
		routes["/blocks/tip/height"] = "870000"
		start()

		head, err := provider.GetBlockHead(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(head).To(Equal(int64(870000)))
	})

	It("computes balance as funded minus spent", func() {
		routes["/address/"+alice] = `{"address":"` + alice + `","chain_stats":{"funded_txo_sum":250000000,"spent_txo_sum":100000000}}`
		start()

		balance, err := provider.GetBalance(ctx, alice)
		Expect(err).NotTo(HaveOccurred())
		Expect(balance.Equal(decimal.RequireFromString("1.5"))).To(BeTrue())
	})

	It("rejects malformed addresses without calling the API", func() {
		start()

		_, err := provider.GetBalance(ctx, "not-an-address")
		Expect(err).To(MatchError(explorer.ErrInvalidResponse))
		Expect(atomic.LoadInt32(&hits)).To(BeZero())
	})

	It("nets change outputs in transaction details", func() {
		routes["/tx/"+txid] = mustJSON(txWithID(txid, 869990))
		start()

		txs, err := provider.GetTxDetails(ctx, txid, 870000)
		Expect(err).NotTo(HaveOccurred())
		Expect(txs).To(HaveLen(2))

		Expect(txs[0].FromAddress).To(Equal(alice))
		Expect(txs[0].ToAddress).To(BeEmpty())
		Expect(txs[0].Value.Equal(decimal.RequireFromString("1.0001"))).To(BeTrue())

		Expect(txs[1].ToAddress).To(Equal(bob))
		Expect(txs[1].Value.Equal(decimal.NewFromInt(1))).To(BeTrue())
		Expect(txs[1].TxFee.Equal(decimal.RequireFromString("0.0001"))).To(BeTrue())
		Expect(*txs[1].Confirmations).To(Equal(int64(10)))
	})

	It("keeps only legs touching the address", func() {
		other := txWithID("5a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b", 869991)
		other.Vout[0].ScriptPubKeyAddress = carol
		routes["/address/"+bob+"/txs"] = mustJSON([]blockstream.Transaction{txWithID(txid, 869990), other})
		start()

		txs, err := provider.GetAddressTxs(ctx, bob, 870000)
		Expect(err).NotTo(HaveOccurred())
		Expect(txs).To(HaveLen(1))
		Expect(txs[0].TxHash).To(Equal(txid))
	})

	It("pages through block transactions in order", func() {
		var page0, page1 []blockstream.Transaction
		for i := 0; i < 27; i++ {
			tx := txWithID(fmt.Sprintf("%064x", i+1), 100)
			if i < 25 {
				page0 = append(page0, tx)
			} else {
				page1 = append(page1, tx)
			}
		}
		routes["/block-height/100"] = blockHash
		routes["/block/"+blockHash] = `{"id":"` + blockHash + `","height":100,"tx_count":27}`
		routes["/block/"+blockHash+"/txs/0"] = mustJSON(page0)
		routes["/block/"+blockHash+"/txs/25"] = mustJSON(page1)
		start()

		txs, err := provider.GetBlockTxs(ctx, 100)
		Expect(err).NotTo(HaveOccurred())
		Expect(txs).To(HaveLen(54))
		Expect(txs[0].TxHash).To(Equal(fmt.Sprintf("%064x", 1)))
		Expect(txs[53].TxHash).To(Equal(fmt.Sprintf("%064x", 27)))
		Expect(txs[0].Confirmations).To(BeNil())
	})

	It("fails the block when a page is missing", func() {
		routes["/block-height/100"] = blockHash
		routes["/block/"+blockHash] = `{"id":"` + blockHash + `","height":100,"tx_count":30}`
		routes["/block/"+blockHash+"/txs/0"] = mustJSON([]blockstream.Transaction{txWithID(txid, 100)})
		start()

		_, err := provider.GetBlockTxs(ctx, 100)
		Expect(err).To(HaveOccurred())
	})
})
