package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Miquel-TA/cat-feeder/internal/app/dto"
	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
)

// KafkaConfig holds Kafka connection configuration
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	BatchSize     int
	BatchTimeout  int // milliseconds
}

// DonationProducer defines the interface for publishing donation events.
// The service itself only produces in demo mode; the real producers are the
// external Streamlabs/TikTok collector bridges.
type DonationProducer interface {
	PublishDonation(ctx context.Context, event *model.DonationEvent) error
	Close() error
}

// DonationConsumer defines the interface for consuming donation events
type DonationConsumer interface {
	Subscribe(ctx context.Context) (<-chan *model.DonationEvent, error)
	Commit(ctx context.Context, event *model.DonationEvent) error
	Close() error
}

// KafkaProducer implements DonationProducer using Kafka
type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(config KafkaConfig) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{}, // per-platform ordering
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaProducer{writer: writer}
}

// PublishDonation sends a donation event to Kafka, keyed by platform so
// events from the same platform stay ordered.
func (p *KafkaProducer) PublishDonation(ctx context.Context, event *model.DonationEvent) error {
	data, err := json.Marshal(dto.FromModel(event))
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Platform),
		Value: data,
		Time:  time.Now(),
	})
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// KafkaConsumer implements DonationConsumer using Kafka. Commits are
// explicit: a message is only committed after the pipeline has admitted (or
// knowingly dropped) the donation, giving at-least-once delivery.
type KafkaConsumer struct {
	reader        *kafka.Reader
	log           *slog.Logger
	pendingMsgs   map[string]kafka.Message // donation ID -> source message
	pendingMsgsMu sync.Mutex
	batchSize     int
	batchTimeout  time.Duration
}

func NewKafkaConsumer(config KafkaConfig, log *slog.Logger) *KafkaConsumer {
	if len(config.Brokers) == 0 {
		return nil
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // explicit commits only
		StartOffset:    kafka.LastOffset,
	})
	batchTimeout := time.Duration(config.BatchTimeout) * time.Millisecond
	if batchTimeout <= 0 {
		batchTimeout = 3 * time.Second
	}
	return &KafkaConsumer{
		reader:       reader,
		log:          log,
		pendingMsgs:  make(map[string]kafka.Message),
		batchSize:    config.BatchSize,
		batchTimeout: batchTimeout,
	}
}

// Subscribe returns a channel of donation events from Kafka
func (c *KafkaConsumer) Subscribe(ctx context.Context) (<-chan *model.DonationEvent, error) {
	eventCh := make(chan *model.DonationEvent, 64)

	go c.startBatchCommitter(ctx)

	go func() {
		defer close(eventCh)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					c.log.Error("error fetching donation message", "error", err)
				}
				return
			}

			var d dto.DonationDTO
			if err := json.Unmarshal(msg.Value, &d); err != nil {
				c.log.Warn("error unmarshalling donation, committing bad message", "error", err)
				_ = c.reader.CommitMessages(ctx, msg)
				continue
			}

			event := d.ToModel()
			if event.ID == "" {
				event.ID = fmt.Sprintf("%s-%d-%d", event.Platform, msg.Partition, msg.Offset)
			}
			if event.CreatedAt.IsZero() {
				event.CreatedAt = msg.Time
			}

			c.pendingMsgsMu.Lock()
			c.pendingMsgs[event.ID] = msg
			c.pendingMsgsMu.Unlock()

			select {
			case <-ctx.Done():
				return
			case eventCh <- event:
			}
		}
	}()

	return eventCh, nil
}

func (c *KafkaConsumer) startBatchCommitter(ctx context.Context) {
	ticker := time.NewTicker(c.batchTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// Final commit with a fresh context since the original is cancelled.
			c.commitAllPending(context.Background())
			return
		case <-ticker.C:
			c.commitAllPending(ctx)
		}
	}
}

func (c *KafkaConsumer) commitAllPending(ctx context.Context) {
	c.pendingMsgsMu.Lock()
	defer c.pendingMsgsMu.Unlock()

	if len(c.pendingMsgs) == 0 {
		return
	}
	msgs := make([]kafka.Message, 0, len(c.pendingMsgs))
	for _, msg := range c.pendingMsgs {
		msgs = append(msgs, msg)
	}
	if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
		c.log.Warn("error committing donation batch", "count", len(msgs), "error", err)
		return
	}
	c.pendingMsgs = make(map[string]kafka.Message)
}

// Commit acknowledges that a donation has been handed to the pipeline.
func (c *KafkaConsumer) Commit(ctx context.Context, event *model.DonationEvent) error {
	if event == nil || event.ID == "" {
		return fmt.Errorf("cannot commit nil donation or donation with empty ID")
	}

	c.pendingMsgsMu.Lock()
	msg, exists := c.pendingMsgs[event.ID]
	if !exists {
		c.pendingMsgsMu.Unlock()
		return fmt.Errorf("message for donation %s not found in pending messages", event.ID)
	}
	if c.batchSize > 0 && len(c.pendingMsgs) >= c.batchSize {
		c.pendingMsgsMu.Unlock()
		c.commitAllPending(ctx)
		return nil
	}
	delete(c.pendingMsgs, event.ID)
	c.pendingMsgsMu.Unlock()

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to commit message for donation %s: %w", event.ID, err)
	}
	return nil
}

func (c *KafkaConsumer) Close() error {
	c.commitAllPending(context.Background())
	return c.reader.Close()
}
