package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/debit-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProcessingService mocks the ProcessingService interface
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessTransaction(ctx context.Context, envelope *shared.TransactionEnvelope) error {
	args := m.Called(ctx, envelope)
	return args.Error(0)
}

func TestWorkerPoolProcessingService_ProcessTransaction(t *testing.T) {
	env := testEnvelope()
	sameEnvelope := mock.MatchedBy(func(e *shared.TransactionEnvelope) bool {
		return e.TransactionID == env.TransactionID
	})

	tests := []struct {
		name        string
		baseErr     error
		expectedErr string
	}{
		{name: "successful processing"},
		{name: "processing error", baseErr: errors.New("processing error"), expectedErr: "processing error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &MockProcessingService{}
			base.On("ProcessTransaction", mock.Anything, sameEnvelope).Return(tt.baseErr).Once()

			svc, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 2}, newTestLogger())
			require.NoError(t, err)
			defer svc.Shutdown()

			err = svc.ProcessTransaction(context.Background(), env)

			if tt.expectedErr != "" {
				assert.EqualError(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			base.AssertExpectations(t)
		})
	}
}

func TestWorkerPoolProcessingService_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	base := &MockProcessingService{}
	base.On("ProcessTransaction", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		<-release
	}).Return(nil)

	svc, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 1}, newTestLogger())
	require.NoError(t, err)
	defer svc.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = svc.ProcessTransaction(ctx, testEnvelope())
	assert.ErrorIs(t, err, context.Canceled)
	close(release)
}

func TestWorkerPoolProcessingService_Concurrency(t *testing.T) {
	base := &MockProcessingService{}
	var processed atomic.Int32
	base.On("ProcessTransaction", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		time.Sleep(10 * time.Millisecond)
		processed.Add(1)
	}).Return(nil)

	svc, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 5}, newTestLogger())
	require.NoError(t, err)
	defer svc.Shutdown()

	const numEnvelopes = 10
	var wg sync.WaitGroup
	wg.Add(numEnvelopes)
	for i := 0; i < numEnvelopes; i++ {
		go func() {
			defer wg.Done()
			env := testEnvelope()
			env.TransactionID = uuid.New()
			assert.NoError(t, svc.ProcessTransaction(context.Background(), env))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(numEnvelopes), processed.Load())
	assert.Equal(t, 5, svc.Capacity())
}
