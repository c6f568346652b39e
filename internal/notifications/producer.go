package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// Producer interface defines the contract for publishing messages
type Producer interface {
	Publish(ctx context.Context, msg *Message) error
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka producer
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "raceday-notifications",
		RetryMax:         3,
		TimeoutMs:        10000,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
	}
}

// KafkaProducer publishes dispatch payloads to Kafka
type KafkaProducer struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
}

// NewKafkaProducer creates a new Kafka producer
func NewKafkaProducer(config *KafkaProducerConfig) (Producer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites

	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps per-user ordering
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Printf("Kafka notification producer created")
	return &KafkaProducer{
		producer: producer,
		config:   config,
	}, nil
}

// Publish sends a single message to the notification topic
func (kp *KafkaProducer) Publish(ctx context.Context, msg *Message) error {
	messageBytes, err := msg.ToJSON()
	if err != nil {
		return err
	}

	message := &sarama.ProducerMessage{
		Topic:     kp.config.Topic,
		Key:       sarama.StringEncoder(msg.PartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   kp.createHeaders(msg),
		Timestamp: msg.CreatedAt,
	}

	partition, offset, err := kp.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	log.Printf("Notification published - Topic: %s, Partition: %d, Offset: %d, Kind: %s, User: %d",
		kp.config.Topic, partition, offset, msg.Kind, msg.UserID)
	return nil
}

func (kp *KafkaProducer) createHeaders(msg *Message) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("message_id"), Value: []byte(msg.ID.String())},
		{Key: []byte("kind"), Value: []byte(msg.Kind)},
		{Key: []byte("created_at"), Value: []byte(msg.CreatedAt.Format(time.RFC3339))},
	}

	if msg.ExpireAt != nil {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte("expire_at"),
			Value: []byte(msg.ExpireAt.Format(time.RFC3339)),
		})
	}
	return headers
}

// Close closes the Kafka producer
func (kp *KafkaProducer) Close() error {
	if kp.producer != nil {
		if err := kp.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
		log.Printf("Kafka notification producer closed")
	}
	return nil
}
