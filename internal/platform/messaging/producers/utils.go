package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const partitionReadRetries = 5

// ensureTopicExists creates the topic when the broker does not know it yet.
// Partition metadata reads are retried because brokers answer with transient
// errors while leaders are still being elected after startup.
func ensureTopicExists(conn *kafka.Conn, topic string, numPartitions, replicationFactor int, logger *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	logger.Info("Checking if Kafka topic exists", "topic", topic)
	for attempt := 1; attempt <= partitionReadRetries; attempt++ {
		partitions, err = conn.ReadPartitions(topic)
		if err == nil {
			break
		}
		logger.Warn("Failed to read partitions, retrying", "topic", topic, "attempt", attempt, "error", err)
		time.Sleep(2 * time.Second)
	}

	if len(partitions) > 0 {
		if err != nil {
			logger.Warn("Kafka topic exists but the final partition read failed", "topic", topic, "error", err)
		} else {
			logger.Info("Kafka topic already exists", "topic", topic)
		}
		return nil
	}

	if numPartitions <= 0 {
		numPartitions = 1
	}
	if replicationFactor <= 0 {
		replicationFactor = 1
	}

	logger.Info("Kafka topic not found, creating it",
		"topic", topic,
		"partitions", numPartitions,
		"replication_factor", replicationFactor,
	)
	if err := conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}

	logger.Info("Created Kafka topic", "topic", topic)
	return nil
}
