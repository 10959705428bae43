package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/debit-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKafkaWriter mocks KafkaWriter interface
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestEnvelopeProducer_Publish(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	topic := "test-transactions"
	ctx := context.Background()

	t.Run("SuccessfulPublish", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &EnvelopeProducer{logger: logger, writer: mockWriter, topic: topic}

		source := uuid.New()
		envelope := &shared.TransactionEnvelope{
			TransactionID: uuid.New(),
			SourceAccount: source,
			Operations: []shared.OperationRequest{
				{Type: shared.OperationTypeManageDebit, Body: json.RawMessage(`{"delete":true}`)},
			},
			Timestamp: time.Now().UTC(),
		}
		expected, err := json.Marshal(envelope)
		require.NoError(t, err)

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			return len(msgs) == 1 &&
				string(msgs[0].Key) == source.String() &&
				string(msgs[0].Value) == string(expected)
		})).Return(nil).Once()

		require.NoError(t, producer.Publish(ctx, source.String(), envelope))
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &EnvelopeProducer{logger: logger, writer: mockWriter, topic: topic}
		writerError := errors.New("kafka write error")

		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerError).Once()

		err := producer.Publish(ctx, "key", map[string]string{"data": "x"})
		assert.ErrorIs(t, err, writerError)
		mockWriter.AssertExpectations(t)
	})

	t.Run("UnmarshalableValue", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &EnvelopeProducer{logger: logger, writer: mockWriter, topic: topic}

		err := producer.Publish(ctx, "key", make(chan int))
		assert.ErrorContains(t, err, "failed to marshal envelope")
		mockWriter.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
	})
}

func TestEnvelopeProducer_Close(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	mockWriter := new(MockKafkaWriter)
	producer := &EnvelopeProducer{logger: logger, writer: mockWriter, topic: "t"}
	closeError := errors.New("kafka close error")
	mockWriter.On("Close").Return(closeError).Once()

	assert.ErrorIs(t, producer.Close(), closeError)
	mockWriter.AssertExpectations(t)
}
