package logger

import (
	"bytes"
	"encoding/json"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dwarvesf/chain-scanner/internal/types/environments"
)

type fatalHook struct {
	entry string
}

func (h *fatalHook) OnWrite(ce *zapcore.CheckedEntry, _ []zapcore.Field) {
	h.entry = ce.Message
}

// captured builds a Logger writing JSON entries at level and above into buf.
func captured(level zapcore.Level, opts ...zap.Option) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(newEncoderConfig()), zapcore.AddSync(buf), level)
	return &Logger{wrappedLogger: zap.New(core, opts...)}, buf
}

func entries(buf *bytes.Buffer) []map[string]any {
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var entry map[string]any
		Expect(dec.Decode(&entry)).To(Succeed())
		out = append(out, entry)
	}
	return out
}

var _ = Describe("Logger", func() {
	DescribeTable("#New picks the level of the environment",
		func(env environments.Environment, debug bool) {
			l := New(env)
			Expect(l.wrappedLogger).NotTo(BeNil())
			Expect(l.wrappedLogger.Core().Enabled(zapcore.InfoLevel)).To(BeTrue())
			Expect(l.wrappedLogger.Core().Enabled(zapcore.DebugLevel)).To(Equal(debug))
		},
		Entry("production", environments.Production, false),
		Entry("staging", environments.Staging, false),
		Entry("development", environments.Development, true),
		Entry("test", environments.Test, false),
		Entry("unknown falls back to production", environments.Environment("mainnet-canary"), false),
	)

	DescribeTable("writes scan entries with their fields",
		func(emit func(*Logger, string, ...map[string]string), level string) {
			l, buf := captured(zapcore.DebugLevel)
			emit(l, "[Scanner.scan] window committed", map[string]string{
				"chain":      "bitcoin",
				"min_height": "870001",
				"max_height": "870010",
			})

			out := entries(buf)
			Expect(out).To(HaveLen(1))
			Expect(out[0]).To(HaveKeyWithValue("level", level))
			Expect(out[0]).To(HaveKeyWithValue("msg", "[Scanner.scan] window committed"))
			Expect(out[0]).To(HaveKeyWithValue("chain", "bitcoin"))
			Expect(out[0]).To(HaveKeyWithValue("max_height", "870010"))
			Expect(out[0]).To(HaveKey("timestamp"))
		},
		Entry("debug", (*Logger).Debug, "debug"),
		Entry("info", (*Logger).Info, "info"),
		Entry("warn", (*Logger).Warn, "warn"),
		Entry("error", (*Logger).Error, "error"),
	)

	It("drops entries below the configured level", func() {
		l, buf := captured(zapcore.InfoLevel)
		l.Debug("[Scanner.scan] no new blocks", map[string]string{"min_height": "996"})
		l.Info("[App.Serve] shutting down")

		out := entries(buf)
		Expect(out).To(HaveLen(1))
		Expect(out[0]).To(HaveKeyWithValue("msg", "[App.Serve] shutting down"))
		Expect(out[0]).NotTo(HaveKey("min_height"))
	})

	It("only reads the first field map", func() {
		l, buf := captured(zapcore.DebugLevel)
		l.Error("[Explorer.GetBlockTxs] provider failed",
			map[string]string{"provider": "blockstream", "operation": "block_txs"},
			map[string]string{"ignored": "yes"},
		)

		out := entries(buf)
		Expect(out).To(HaveLen(1))
		Expect(out[0]).To(HaveKeyWithValue("provider", "blockstream"))
		Expect(out[0]).To(HaveKeyWithValue("operation", "block_txs"))
		Expect(out[0]).NotTo(HaveKey("ignored"))
	})

	It("runs the fatal hook instead of exiting", func() {
		hook := &fatalHook{}
		l, buf := captured(zapcore.FatalLevel, zap.WithFatalHook(hook))

		l.Fatal("[server.Init] failed to build scanner", map[string]string{"error": "no enabled chain"})

		Expect(hook.entry).To(Equal("[server.Init] failed to build scanner"))
		Expect(entries(buf)[0]).To(HaveKeyWithValue("error", "no enabled chain"))
	})

	It("syncs the test logger without panicking", func() {
		Expect(func() { New(environments.Test).Sync() }).NotTo(Panic())
	})

	Describe("#transformStrMapToFields", func() {
		It("turns every pair into a string field", func() {
			fields := transformStrMapToFields(map[string]string{
				"chain":    "ethereum",
				"provider": "etherscan",
			})
			sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })

			Expect(fields).To(Equal([]zap.Field{
				zap.String("chain", "ethereum"),
				zap.String("provider", "etherscan"),
			}))
		})

		It("returns an empty slice for no fields", func() {
			Expect(transformStrMapToFields(nil)).To(BeEmpty())
			Expect(fieldsOf(nil)).To(BeEmpty())
		})
	})
})
