package notifications

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// Consumer interface defines the contract for the delivery worker pool
type Consumer interface {
	StartConsumers(ctx context.Context, numWorkers int) error
	Stop() error
}

// ConsumerConfig contains configuration for the Kafka consumer group
type ConsumerConfig struct {
	Brokers              []string
	GroupID              string
	Topics               []string
	SessionTimeoutMs     int
	HeartbeatMs          int
	MaxRetries           int
	RetryBackoffDuration time.Duration
}

// DefaultConsumerConfig returns a default consumer configuration
func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:              []string{"localhost:9092"},
		GroupID:              "raceday-notification-workers",
		Topics:               []string{"raceday-notifications"},
		SessionTimeoutMs:     30000,
		HeartbeatMs:          3000,
		MaxRetries:           3,
		RetryBackoffDuration: time.Second,
	}
}

// KafkaConsumer consumes dispatch payloads and delivers them through the
// dispatcher's terminal path
type KafkaConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	dispatcher    Dispatcher
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewKafkaConsumer creates a new Kafka consumer group
func NewKafkaConsumer(config *ConsumerConfig, dispatcher Dispatcher) (Consumer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &KafkaConsumer{
		consumerGroup: consumerGroup,
		config:        config,
		dispatcher:    dispatcher,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// StartConsumers launches the delivery worker pool
func (kc *KafkaConsumer) StartConsumers(ctx context.Context, numWorkers int) error {
	log.Printf("Starting %d notification consumer workers for topics: %v", numWorkers, kc.config.Topics)

	go kc.handleErrors()

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			kc.runWorker(ctx, workerID)
		}(i)
	}

	return nil
}

func (kc *KafkaConsumer) runWorker(ctx context.Context, workerID int) {
	handler := &consumerGroupHandler{
		consumer: kc,
		workerID: workerID,
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", workerID)
			return
		default:
			if err := kc.consumerGroup.Consume(ctx, kc.config.Topics, handler); err != nil {
				log.Printf("Worker %d error consuming messages: %v", workerID, err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (kc *KafkaConsumer) handleErrors() {
	for err := range kc.consumerGroup.Errors() {
		log.Printf("Consumer group error: %v", err)
	}
}

// Stop shuts down the consumer group
func (kc *KafkaConsumer) Stop() error {
	log.Println("Stopping notification consumer...")
	kc.cancel()

	if err := kc.consumerGroup.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	return nil
}

type consumerGroupHandler struct {
	consumer *KafkaConsumer
	workerID int
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Printf("Worker %d: consumer group session started", h.workerID)
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Printf("Worker %d: consumer group session ended", h.workerID)
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			if err := h.processMessage(session.Context(), message); err != nil {
				log.Printf("Worker %d: error processing message: %v", h.workerID, err)
			} else {
				session.MarkMessage(message, "")
			}

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *consumerGroupHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	msg, err := MessageFromJSON(message.Value)
	if err != nil {
		return err
	}

	// An offer past its confirmation window is not worth delivering
	if msg.ExpireAt != nil && time.Now().After(*msg.ExpireAt) {
		log.Printf("Worker %d: message %s expired, skipping", h.workerID, msg.ID)
		return nil
	}

	return h.deliverWithRetry(ctx, msg)
}

func (h *consumerGroupHandler) deliverWithRetry(ctx context.Context, msg *Message) error {
	maxRetries := h.consumer.config.MaxRetries
	backoff := h.consumer.config.RetryBackoffDuration

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := h.consumer.dispatcher.Deliver(ctx, msg)
		if err == nil {
			return nil
		}

		if attempt == maxRetries {
			log.Printf("Worker %d: failed to deliver message after %d attempts: %v", h.workerID, maxRetries, err)
			return err
		}

		// Exponential backoff
		delay := backoff * time.Duration(1<<attempt)
		select {
		case <-time.After(delay):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
