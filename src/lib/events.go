package lib

import (
	"aworld/src/types"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

var ErrAWSUnavailable = errors.New("aws client unavailable")

// Publisher delivers payment lifecycle events to downstream consumers.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, key string, payload types.JSONB) error
}

// SQSPublisher sends events to an SQS queue, resolving the queue URL once.
type SQSPublisher struct {
	Queue string

	once     sync.Once
	client   *sqs.Client
	queueURL *string
	initErr  error
}

func (p *SQSPublisher) Name() string {
	return "SQS"
}

func (p *SQSPublisher) resolve(ctx context.Context) error {
	p.once.Do(func() {
		p.client = AWSGetSQSClient()
		if p.client == nil {
			p.initErr = ErrAWSUnavailable
			return
		}
		out, err := p.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
			QueueName: aws.String(p.Queue),
		})
		if err != nil {
			log.Printf("Failed to retrieve queue URL for %s: %s\n", p.Queue, err.Error())
			p.initErr = err
			return
		}
		p.queueURL = out.QueueUrl
	})
	return p.initErr
}

func (p *SQSPublisher) Publish(ctx context.Context, key string, payload types.JSONB) error {
	if err := p.resolve(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    p.queueURL,
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		log.Printf("[SQS] Error sending %s: %s\n", key, err.Error())
		return err
	}
	log.Printf("[SQS] Sent %s as message %s\n", key, aws.ToString(out.MessageId))
	return nil
}

// LogPublisher only writes events to the log. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Name() string {
	return "Log"
}

func (LogPublisher) Publish(_ context.Context, key string, payload types.JSONB) error {
	body, _ := json.Marshal(payload)
	log.Printf("[Events] %s: %s\n", key, string(body))
	return nil
}

// NewPublisher picks the event transport for env: SQS in test and production,
// Kafka locally when KAFKA_BROKER is set, otherwise the log.
func NewPublisher(env, queue string) Publisher {
	if env == string(types.Production) || env == string(types.Test) {
		return &SQSPublisher{Queue: queue}
	}
	if os.Getenv("KAFKA_BROKER") != "" {
		return &KafkaPublisher{ClientID: "aworld-payments", Topic: queue}
	}
	return LogPublisher{}
}
