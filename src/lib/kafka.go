package lib

import (
	"aworld/src/types"
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

func GetKafkaProducerConfig(clientId string) kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"client.id":         clientId,
		"acks":              "all",
	}
}

func KafkaProduceMessage(clientId string, topic string, key string, payload types.JSONB) error {
	cfg := GetKafkaProducerConfig(clientId)
	p, err := kafka.NewProducer(&cfg)
	if err != nil {
		log.Printf("[Kafka] Error creating producer: %s\n", err.Error())
		return err
	}
	defer p.Close()

	value, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Kafka] Error encoding payload: %s\n", err.Error())
		return err
	}

	delivery := make(chan kafka.Event, 1)
	err = p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
	}, delivery)
	if err != nil {
		log.Printf("[Kafka] Error producing to %s: %s\n", topic, err.Error())
		return err
	}
	e := <-delivery
	if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
		log.Printf("[Kafka] Delivery to %s failed: %s\n", topic, m.TopicPartition.Error.Error())
		return m.TopicPartition.Error
	}
	return nil
}

type KafkaPublisher struct {
	ClientID string
	Topic    string
}

func (p *KafkaPublisher) Name() string {
	return "Kafka"
}

func (p *KafkaPublisher) Publish(_ context.Context, key string, payload types.JSONB) error {
	return KafkaProduceMessage(p.ClientID, p.Topic, key, payload)
}

func KafkaCreateTopics(ctx context.Context, topics ...string) ([]kafka.TopicResult, error) {
	a, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
	})
	if err != nil {
		log.Printf("Error on AdminClient: %s\n", err.Error())
		return nil, err
	}
	defer a.Close()
	topicsDef := []kafka.TopicSpecification{}
	for _, topic := range topics {
		topicsDef = append(topicsDef, kafka.TopicSpecification{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		})
	}
	result, err := a.CreateTopics(ctx, topicsDef)
	if err != nil {
		log.Printf("Error creating topics: %s\n", err.Error())
		return nil, err
	}
	return result, nil
}
