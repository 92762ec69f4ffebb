package sink

import (
	"context"
	"strconv"

	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

type LogSink struct {
	logger *logger.Logger
}

func NewLogSink(l *logger.Logger) *LogSink {
	return &LogSink{logger: l}
}

func (s *LogSink) Publish(_ context.Context, result model.ScanResult) error {
	s.logger.Info("[LogSink.Publish] scan result", map[string]string{
		"chain":                  result.Chain,
		"from_height":            strconv.FormatInt(result.FromHeight, 10),
		"to_height":              strconv.FormatInt(result.ToHeight, 10),
		"output_addresses":       strconv.Itoa(len(result.Addresses.OutputAddresses)),
		"input_addresses":        strconv.Itoa(len(result.Addresses.InputAddresses)),
		"latest_block_processed": strconv.FormatInt(result.LatestBlockProcessed, 10),
	})
	return nil
}

func (s *LogSink) Close() error { return nil }
