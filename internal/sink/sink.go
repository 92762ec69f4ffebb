package sink

import (
	"context"

	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/utils/config"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

// ISink hands committed scan cycles to downstream consumers.
type ISink interface {
	Publish(ctx context.Context, result model.ScanResult) error
	Close() error
}

// New returns a Kafka sink when brokers are configured and a log sink
// otherwise.
func New(cfg config.KafkaConfig, l *logger.Logger) (ISink, error) {
	if len(cfg.Brokers) == 0 {
		l.Info("[sink.New] kafka brokers not configured, logging scan results")
		return NewLogSink(l), nil
	}
	return NewKafkaSink(cfg, l)
}
