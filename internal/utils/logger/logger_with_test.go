package logger

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ = Describe("Logger child", func() {
	It("should stamp fields on every entry", func() {
		buf := &bytes.Buffer{}
		base := &Logger{
			wrappedLogger: zap.New(zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(buf),
				zap.DebugLevel,
			)),
		}

		child := base.With(map[string]string{"chain": "ETH"})
		child.Warn("[Scanner.scan] no new blocks", map[string]string{"checkpoint": "990"})

		Expect(buf.String()).To(ContainSubstring(`"chain":"ETH"`))
		Expect(buf.String()).To(ContainSubstring(`"checkpoint":"990"`))
		Expect(buf.String()).To(ContainSubstring(`"level":"warn"`))
	})
})
