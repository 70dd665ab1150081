package outbox_poller

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/splitledger/internal/config"
	"github.com/splitledger/internal/domain/audit"
	"github.com/splitledger/internal/domain/outbox"
	"github.com/splitledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockAuditPublisher for testing
type MockAuditPublisher struct {
	mock.Mock
}

func (m *MockAuditPublisher) PublishToAuditTrail(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func TestPoller_ProcessPendingMessages(t *testing.T) {
	mockOutboxRepo := &MockOutboxRepo{}
	mockAuditPublisher := &MockAuditPublisher{}
	logger := slog.Default()

	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	poller := NewPoller(cfg, mockOutboxRepo, mockAuditPublisher, logger)

	settlementID := uuid.New()
	ledgerID := uuid.New()
	entry := audit.NewEntry(settlementID, ledgerID, shared.AuditEventSettlementCompleted, nil, "corr1")
	entryJSON, err := json.Marshal(entry)
	assert.NoError(t, err)

	message1 := &outbox.Message{
		ID:           1,
		EventID:      entry.EventID,
		SettlementID: settlementID,
		LedgerID:     ledgerID,
		Status:       shared.OutboxStatusPending,
		Payload:      entryJSON,
		Attempts:     0,
		CreatedAt:    time.Now(),
	}

	message2 := &outbox.Message{
		ID:           2,
		EventID:      uuid.New(),
		SettlementID: uuid.New(),
		LedgerID:     ledgerID,
		Status:       shared.OutboxStatusPending,
		Payload:      entryJSON,
		Attempts:     0,
		CreatedAt:    time.Now(),
	}

	tests := []struct {
		name          string
		setupMocks    func()
		expectedError error
	}{
		{
			name: "successful processing of pending messages",
			setupMocks: func() {
				mockOutboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{message1, message2}, nil).Once()

				mockAuditPublisher.On("PublishToAuditTrail", mock.Anything, message1).Return(nil).Once()
				mockAuditPublisher.On("PublishToAuditTrail", mock.Anything, message2).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error getting pending messages",
			setupMocks: func() {
				mockOutboxRepo.On("GetPending", mock.Anything, 10).Return(nil, errors.New("db error")).Once()
			},
			expectedError: errors.New("failed to get pending outbox messages"),
		},
		{
			name: "no pending messages",
			setupMocks: func() {
				mockOutboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error publishing one message",
			setupMocks: func() {
				mockOutboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{message1, message2}, nil).Once()

				mockAuditPublisher.On("PublishToAuditTrail", mock.Anything, message1).Return(errors.New("publish error")).Once()

				mockOutboxRepo.On("IncrementAttempts", mock.Anything, int64(1)).Return(nil).Once()

				mockAuditPublisher.On("PublishToAuditTrail", mock.Anything, message2).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "max retry attempts reached",
			setupMocks: func() {
				maxAttemptsMessage := &outbox.Message{
					ID:           3,
					EventID:      uuid.New(),
					SettlementID: uuid.New(),
					LedgerID:     ledgerID,
					Status:       shared.OutboxStatusPending,
					Payload:      entryJSON,
					Attempts:     2,
					CreatedAt:    time.Now(),
				}

				mockOutboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{maxAttemptsMessage}, nil).Once()

				mockAuditPublisher.On("PublishToAuditTrail", mock.Anything, maxAttemptsMessage).Return(errors.New("publish error")).Once()

				mockOutboxRepo.On("IncrementAttempts", mock.Anything, int64(3)).Return(nil).Once()

				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(3), shared.OutboxStatusFailedToPublish).Return(nil).Once()
			},
			expectedError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOutboxRepo = &MockOutboxRepo{}
			mockAuditPublisher = &MockAuditPublisher{}
			poller = NewPoller(cfg, mockOutboxRepo, mockAuditPublisher, logger)

			tt.setupMocks()
			ctx := context.Background()

			err := poller.processPendingMessages(ctx)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockOutboxRepo.AssertExpectations(t)
			mockAuditPublisher.AssertExpectations(t)
		})
	}
}

func TestPoller_Start(t *testing.T) {
	mockOutboxRepo := &MockOutboxRepo{}
	mockAuditPublisher := &MockAuditPublisher{}
	logger := slog.Default()

	cfg := &config.OutboxConfig{
		PollingInterval:  10 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	poller := NewPoller(cfg, mockOutboxRepo, mockAuditPublisher, logger)

	mockOutboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Maybe()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	go poller.Start(ctx)

	<-ctx.Done()

	assert.True(t, true)
}
