package lib

import (
	"aworld/src/types"
	"context"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisher(t *testing.T) {
	t.Setenv("KAFKA_BROKER", "")
	p := NewPublisher(string(types.Production), "PaymentTransactionUpdates")
	sqsPub, ok := p.(*SQSPublisher)
	require.True(t, ok)
	assert.Equal(t, "PaymentTransactionUpdates", sqsPub.Queue)
	assert.Equal(t, "SQS", NewPublisher(string(types.Test), "q").Name())

	assert.Equal(t, "Log", NewPublisher(string(types.Local), "q").Name())

	t.Setenv("KAFKA_BROKER", "localhost:9092")
	kp, ok := NewPublisher(string(types.Local), "payments").(*KafkaPublisher)
	require.True(t, ok)
	assert.Equal(t, "payments", kp.Topic)
}

func TestLogPublisher(t *testing.T) {
	err := LogPublisher{}.Publish(context.Background(), "payment.captured", types.JSONB{"order_id": "ORD-1"})
	assert.NoError(t, err)
}

func TestCreateCronJob(t *testing.T) {
	s, err := gocron.NewScheduler()
	require.NoError(t, err)
	NewScheduler(s)
	defer func() {
		s.Shutdown()
		NewScheduler(nil)
	}()

	id, err := CreateCronJob("sweep", func() {}, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, id)
	require.Len(t, s.Jobs(), 1)
	assert.Equal(t, "sweep", s.Jobs()[0].Name())
}
