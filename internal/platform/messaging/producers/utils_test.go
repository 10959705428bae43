package producers

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockTopicAdmin struct {
	mock.Mock
}

func (m *mockTopicAdmin) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	args := m.Called(topics)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]kafka.Partition), args.Error(1)
}

func (m *mockTopicAdmin) CreateTopics(topics ...kafka.TopicConfig) error {
	args := m.Called(topics)
	return args.Error(0)
}

func TestEnsureTopic(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	topicReadBackoff = time.Millisecond
	defer func() { topicReadBackoff = 2 * time.Second }()

	t.Run("existing topic", func(t *testing.T) {
		admin := new(mockTopicAdmin)
		admin.On("ReadPartitions", []string{"ledger"}).Return([]kafka.Partition{{Topic: "ledger"}}, nil).Once()

		assert.NoError(t, ensureTopic(admin, "ledger", 3, 1, logger))
		admin.AssertExpectations(t)
		admin.AssertNotCalled(t, "CreateTopics", mock.Anything)
	})

	t.Run("missing topic is created with defaults", func(t *testing.T) {
		admin := new(mockTopicAdmin)
		admin.On("ReadPartitions", []string{"ledger"}).Return([]kafka.Partition{}, nil).Once()
		admin.On("CreateTopics", []kafka.TopicConfig{{Topic: "ledger", NumPartitions: 1, ReplicationFactor: 1}}).Return(nil).Once()

		assert.NoError(t, ensureTopic(admin, "ledger", 0, 0, logger))
		admin.AssertExpectations(t)
	})

	t.Run("read retries then create", func(t *testing.T) {
		admin := new(mockTopicAdmin)
		admin.On("ReadPartitions", []string{"ledger"}).Return(nil, errors.New("leader not available")).Times(topicReadAttempts)
		admin.On("CreateTopics", mock.Anything).Return(nil).Once()

		assert.NoError(t, ensureTopic(admin, "ledger", 2, 1, logger))
		admin.AssertExpectations(t)
	})

	t.Run("create failure", func(t *testing.T) {
		admin := new(mockTopicAdmin)
		admin.On("ReadPartitions", []string{"ledger"}).Return([]kafka.Partition{}, nil).Once()
		admin.On("CreateTopics", mock.Anything).Return(errors.New("not controller")).Once()

		assert.ErrorContains(t, ensureTopic(admin, "ledger", 1, 1, logger), "failed to create kafka topic ledger")
	})
}
