package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

// fakeProducer stores every record it is handed. The first lostAcks calls
// still store the record but report a timeout, like a broker ack lost in flight.
type fakeProducer struct {
	records  []*kgo.Record
	err      error
	lostAcks int
	calls    int
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.calls++
	f.records = append(f.records, rs...)
	err := f.err
	if f.calls <= f.lostAcks {
		err = errors.New("request timed out")
	}
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: err})
	}
	return results
}

func recordID(t *testing.T, rec *kgo.Record) string {
	t.Helper()
	var payload kafkaPayload
	require.NoError(t, json.Unmarshal(rec.Value, &payload))
	for _, h := range rec.Headers {
		if h.Key == "message_id" {
			require.Equal(t, payload.MessageID, string(h.Value))
			return payload.MessageID
		}
	}
	t.Fatal("record has no message_id header")
	return ""
}

func TestKafkaSender(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("publishes a keyed JSON record", func(t *testing.T) {
		producer := &fakeProducer{}
		sender := NewKafkaSender(producer, "guardian.notifications")
		sender.clock = func() time.Time { return fixed }

		err := sender.Send(context.Background(), Message{
			ID:      MessageID(1004),
			To:      "sales.manager@company.demo",
			Cc:      "it-support@company.demo",
			Subject: "CONFIRMATION NEEDED: Remove Access",
			Body:    "Reply Confirm.",
		})
		require.NoError(t, err)
		require.Len(t, producer.records, 1)

		rec := producer.records[0]
		assert.Equal(t, "guardian.notifications", rec.Topic)
		assert.Equal(t, "sales.manager@company.demo", string(rec.Key))

		var payload kafkaPayload
		require.NoError(t, json.Unmarshal(rec.Value, &payload))
		assert.Equal(t, "CONFIRMATION NEEDED: Remove Access", payload.Subject)
		assert.Equal(t, "it-support@company.demo", payload.Cc)
		assert.Equal(t, fixed, payload.CreatedAt)
		assert.Equal(t, "guardian-1004", recordID(t, rec))
	})

	t.Run("messages without an id get a generated one", func(t *testing.T) {
		producer := &fakeProducer{}
		sender := NewKafkaSender(producer, "t")

		require.NoError(t, sender.Send(context.Background(), Message{To: "a@b.c", Subject: "s"}))
		require.Len(t, producer.records, 1)
		assert.NotEmpty(t, recordID(t, producer.records[0]))
	})

	t.Run("produce errors surface", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("broker unreachable")}
		sender := NewKafkaSender(producer, "t")

		err := sender.Send(context.Background(), Message{To: "a@b.c", Subject: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker unreachable")
		assert.NotErrorIs(t, err, ErrInvalidMessage)
	})

	t.Run("invalid messages are not produced", func(t *testing.T) {
		producer := &fakeProducer{}
		sender := NewKafkaSender(producer, "t")

		require.ErrorIs(t, sender.Send(context.Background(), Message{Subject: "s"}), ErrInvalidMessage)
		assert.Empty(t, producer.records)
	})
}

func TestDispatcherOverKafkaReplaysSameID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	msg := Message{To: "eng.manager@company.demo", Subject: "APPROVAL NEEDED: GitHub for Sam Sales", Body: "b"}

	t.Run("caller id survives a lost ack", func(t *testing.T) {
		producer := &fakeProducer{lostAcks: 1}
		d := NewDispatcher(NewKafkaSender(producer, "t"), logger, WithBaseDelay(time.Millisecond))

		withID := msg
		withID.ID = MessageID(1003)
		require.NoError(t, d.Notify(context.Background(), withID))
		require.Len(t, producer.records, 2)
		assert.Equal(t, "guardian-1003", recordID(t, producer.records[0]))
		assert.Equal(t, "guardian-1003", recordID(t, producer.records[1]))
	})

	t.Run("generated id survives a lost ack", func(t *testing.T) {
		producer := &fakeProducer{lostAcks: 2}
		d := NewDispatcher(NewKafkaSender(producer, "t"), logger, WithAttempts(3), WithBaseDelay(time.Millisecond))

		require.NoError(t, d.Notify(context.Background(), msg))
		require.Len(t, producer.records, 3)
		first := recordID(t, producer.records[0])
		for _, rec := range producer.records[1:] {
			assert.Equal(t, first, recordID(t, rec))
		}
	})
}
