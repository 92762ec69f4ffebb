package logger

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ = Describe("Logger configs", func() {
	type want struct {
		level      zapcore.Level
		encoding   string
		callers    bool
		stacktrace bool
		outputs    []string
	}

	DescribeTable("per environment",
		func(build func() zap.Config, w want) {
			cfg := build()

			Expect(cfg.Level.Level()).To(Equal(w.level))
			Expect(cfg.Encoding).To(Equal(w.encoding))
			Expect(cfg.DisableCaller).To(Equal(!w.callers))
			Expect(cfg.DisableStacktrace).To(Equal(!w.stacktrace))
			Expect(cfg.OutputPaths).To(Equal(w.outputs))
		},
		Entry("production ships json with callers", newProductionLoggerConfig,
			want{zap.InfoLevel, "json", true, true, []string{"stdout"}}),
		Entry("staging trims callers", newStagingLoggerConfig,
			want{zap.InfoLevel, "json", false, false, []string{"stdout"}}),
		Entry("development prints to the console", newDevelopmentLoggerConfig,
			want{zap.DebugLevel, "console", false, false, []string{"stdout"}}),
		Entry("test writes nowhere", newTestLoggerConfig,
			want{zap.InfoLevel, "json", true, true, []string{}}),
	)

	It("samples production entries only", func() {
		Expect(newProductionLoggerConfig().Sampling).To(Equal(&zap.SamplingConfig{Initial: 100, Thereafter: 100}))
		Expect(newStagingLoggerConfig().Sampling).To(BeNil())
		Expect(newTestLoggerConfig().Sampling).To(BeNil())
	})

	It("stamps ISO8601 timestamps under the timestamp key", func() {
		enc := newEncoderConfig()
		Expect(enc.TimeKey).To(Equal("timestamp"))
		Expect(enc.MessageKey).To(Equal("msg"))
		Expect(newProductionLoggerConfig().EncoderConfig.TimeKey).To(Equal("timestamp"))
		Expect(newDevelopmentLoggerConfig().Development).To(BeTrue())
	})
})
