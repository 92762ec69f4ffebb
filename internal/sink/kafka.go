package sink

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/dwarvesf/chain-scanner/internal/model"
	"github.com/dwarvesf/chain-scanner/internal/utils/config"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

const defaultTopic = "chain-scanner-results"

// MessageWriter is the subset of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes one JSON message per scan cycle, keyed by chain so a
// chain's results stay ordered within a partition.
type KafkaSink struct {
	writer MessageWriter
	topic  string
	logger *logger.Logger
}

func NewKafkaSink(cfg config.KafkaConfig, l *logger.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		topic = defaultTopic
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 100 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaSink(writer, topic, l), nil
}

func newKafkaSink(writer MessageWriter, topic string, l *logger.Logger) *KafkaSink {
	return &KafkaSink{writer: writer, topic: topic, logger: l}
}

func (s *KafkaSink) Publish(ctx context.Context, result model.ScanResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "encode scan result")
	}
	msg := kafka.Message{
		Topic: s.topic,
		Key:   []byte(result.Chain),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "latest_block_processed", Value: []byte(strconv.FormatInt(result.LatestBlockProcessed, 10))},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.logger.Error("[KafkaSink.Publish][WriteMessages]", map[string]string{
			"chain": result.Chain,
			"topic": s.topic,
			"error": err.Error(),
		})
		return errors.Wrapf(err, "publish %s scan result", result.Chain)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
