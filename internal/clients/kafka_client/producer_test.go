package kafka_client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/complaintflow/config"
	"github.com/spacesedan/complaintflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	produced    []*kafka.Message
	produceErrs []error
	deliveryErr error
	noDelivery  bool
	flushed     bool
	closed      bool
}

func (f *fakeProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	if len(f.produceErrs) > 0 {
		err := f.produceErrs[0]
		f.produceErrs = f.produceErrs[1:]
		if err != nil {
			return err
		}
	}
	f.produced = append(f.produced, msg)
	if f.noDelivery {
		return nil
	}
	delivered := *msg
	delivered.TopicPartition.Error = f.deliveryErr
	deliveryChan <- &delivered
	return nil
}

func (f *fakeProducer) Flush(timeoutMs int) int {
	f.flushed = true
	return 0
}

func (f *fakeProducer) Close() {
	f.closed = true
}

func testEvent() models.ComplaintEvent {
	return models.ComplaintEvent{
		Type:        models.EventComplaintCreated,
		ComplaintID: "c-1",
		Category:    models.CategoryBilling,
		Priority:    models.PriorityHigh,
		Status:      models.StatusOpen,
		OccurredAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPublishKeysByComplaintID(t *testing.T) {
	fp := &fakeProducer{}
	p := &KafkaPublisher{producer: fp, topic: KAFKA_TOPIC_COMPLAINT_EVENTS}

	require.NoError(t, p.Publish(context.Background(), testEvent()))
	require.Len(t, fp.produced, 1)

	msg := fp.produced[0]
	assert.Equal(t, "c-1", string(msg.Key))
	assert.Equal(t, KAFKA_TOPIC_COMPLAINT_EVENTS, *msg.TopicPartition.Topic)
	assert.Equal(t, "complaint.created", string(msg.Headers[0].Value))

	var decoded models.ComplaintEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, testEvent(), decoded)
}

func TestPublishRetriesProduceErrors(t *testing.T) {
	fp := &fakeProducer{produceErrs: []error{errors.New("queue full"), nil}}
	p := &KafkaPublisher{producer: fp, topic: "t"}

	require.NoError(t, p.Publish(context.Background(), testEvent()))
	assert.Len(t, fp.produced, 1)
}

func TestPublishReportsDeliveryFailure(t *testing.T) {
	fp := &fakeProducer{deliveryErr: kafka.NewError(kafka.ErrMsgTimedOut, "timed out", false)}
	p := &KafkaPublisher{producer: fp, topic: "t"}

	err := p.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delivery failed")
}

func TestPublishHonorsContext(t *testing.T) {
	fp := &fakeProducer{noDelivery: true}
	p := &KafkaPublisher{producer: fp, topic: "t"}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, p.Publish(ctx, testEvent()), context.DeadlineExceeded)
}

func TestCloseFlushesProducer(t *testing.T) {
	fp := &fakeProducer{}
	(&KafkaPublisher{producer: fp}).Close()
	assert.True(t, fp.flushed)
	assert.True(t, fp.closed)
}

func TestFromConfigDefaultsTopic(t *testing.T) {
	cfg := FromConfig(config.KafkaConfig{Broker: "localhost:29092"})
	assert.Equal(t, KAFKA_TOPIC_COMPLAINT_EVENTS, cfg.Topic)

	cm := ProducerConfigMap(cfg)
	v, err := cm.Get("enable.idempotence", nil)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}
