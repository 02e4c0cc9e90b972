package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the subset of *kgo.Client the Kafka sender needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaSender publishes messages to a topic consumed by the mail relay. A
// successful produce is the only delivery guarantee it offers.
type KafkaSender struct {
	producer Producer
	topic    string
	clock    func() time.Time
}

// NewKafkaSender constructs a KafkaSender for topic.
func NewKafkaSender(producer Producer, topic string) *KafkaSender {
	return &KafkaSender{producer: producer, topic: topic, clock: time.Now}
}

// kafkaPayload is the JSON record body the relay decodes.
type kafkaPayload struct {
	MessageID string    `json:"message_id"`
	To        string    `json:"to"`
	Cc        string    `json:"cc,omitempty"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Send produces one record keyed by recipient so a recipient's messages stay
// ordered. The record carries msg.ID, so a retried send is a replay the relay
// can recognise.
func (s *KafkaSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	messageID := msg.ID
	if messageID == "" {
		messageID = uuid.NewString()
	}
	value, err := json.Marshal(kafkaPayload{
		MessageID: messageID,
		To:        msg.To,
		Cc:        msg.Cc,
		Subject:   msg.Subject,
		Body:      msg.Body,
		CreatedAt: s.clock().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrInvalidMessage, err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(msg.To),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "message_id", Value: []byte(messageID)},
			{Key: "content_type", Value: []byte("application/json")},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce notification: %w", err)
	}
	return nil
}
