package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/repository"
)

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Save(ctx context.Context, n *entity.Notification) error {
	args := m.Called(ctx, n)
	if n.ID == "" {
		n.ID = "n-saved"
	}
	return args.Error(0)
}

func (m *mockNotificationRepo) FindByID(ctx context.Context, id string) (*entity.Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*entity.Notification)
	return n, args.Error(1)
}

func (m *mockNotificationRepo) UpdateStatus(ctx context.Context, id string, status string, startedAt time.Time) error {
	return m.Called(ctx, id, status, startedAt).Error(0)
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return m.Called(ctx, id, sentAt).Error(0)
}

func (m *mockNotificationRepo) MarkFailed(ctx context.Context, id string, errorDetail string) error {
	return m.Called(ctx, id, errorDetail).Error(0)
}

func (m *mockNotificationRepo) ResetProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepo) FindRetryable(ctx context.Context, maxAttempts int, limit int) ([]*entity.Notification, error) {
	args := m.Called(ctx, maxAttempts, limit)
	n, _ := args.Get(0).([]*entity.Notification)
	return n, args.Error(1)
}

type stubNotifier struct {
	channel string
	err     error
	sent    []*entity.Notification
}

func (s *stubNotifier) Channel() string { return s.channel }

func (s *stubNotifier) Send(ctx context.Context, n *entity.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

var processorNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestProcessor(repo *mockNotificationRepo, notifiers ...*stubNotifier) *NotificationProcessor {
	list := make([]repository.Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		list = append(list, n)
	}
	p := NewNotificationProcessor(repo, newTestMetrics(), newTestLogger(), 3, list...)
	p.now = func() time.Time { return processorNow }
	return p
}

func TestNotificationProcessor_EnqueueDelivers(t *testing.T) {
	ctx := context.Background()
	repo := &mockNotificationRepo{}
	email := &stubNotifier{channel: entity.ChannelEmail}
	p := newTestProcessor(repo, email)

	n := &entity.Notification{Channel: entity.ChannelEmail, Recipient: "ann@example.com", TicketNumber: "TCK-0001"}
	repo.On("Save", ctx, n).Return(nil)
	repo.On("UpdateStatus", ctx, "n-saved", entity.NotificationProcessing, processorNow).Return(nil)
	repo.On("MarkSent", ctx, "n-saved", processorNow).Return(nil)

	require.NoError(t, p.Enqueue(ctx, n))

	repo.AssertExpectations(t)
	require.Len(t, email.sent, 1)
	assert.Equal(t, "ann@example.com", email.sent[0].Recipient)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.NotificationsSent.WithLabelValues(entity.ChannelEmail)))
	assert.True(t, p.HasChannel(entity.ChannelEmail))
	assert.False(t, p.HasChannel(entity.ChannelSMS))
}

func TestNotificationProcessor_SendFailureRecorded(t *testing.T) {
	ctx := context.Background()
	repo := &mockNotificationRepo{}
	sms := &stubNotifier{channel: entity.ChannelSMS, err: errors.New("carrier rejected")}
	p := newTestProcessor(repo, sms)

	n := &entity.Notification{ID: "n1", Channel: entity.ChannelSMS}
	repo.On("UpdateStatus", ctx, "n1", entity.NotificationProcessing, processorNow).Return(nil)
	repo.On("MarkFailed", ctx, "n1", "carrier rejected").Return(nil)

	require.NoError(t, p.Deliver(ctx, n))

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.ErrorsCount.WithLabelValues("send_sms")))
}

func TestNotificationProcessor_UnknownChannel(t *testing.T) {
	ctx := context.Background()
	repo := &mockNotificationRepo{}
	p := newTestProcessor(repo)

	n := &entity.Notification{ID: "n1", Channel: "pigeon"}
	repo.On("MarkFailed", ctx, "n1", "no notifier configured for channel pigeon").Return(nil)

	require.NoError(t, p.Deliver(ctx, n))
	repo.AssertExpectations(t)
}

func TestNotificationProcessor_ProcessPending(t *testing.T) {
	ctx := context.Background()
	repo := &mockNotificationRepo{}
	email := &stubNotifier{channel: entity.ChannelEmail}
	p := newTestProcessor(repo, email)

	pending := []*entity.Notification{
		{ID: "n1", Channel: entity.ChannelEmail, Attempts: 1},
		{ID: "n2", Channel: entity.ChannelEmail},
	}
	repo.On("ResetProcessing", ctx, processorNow.Add(-5*time.Minute)).Return(int64(1), nil)
	repo.On("FindRetryable", ctx, 3, 100).Return(pending, nil)
	repo.On("UpdateStatus", ctx, mock.AnythingOfType("string"), entity.NotificationProcessing, processorNow).Return(nil)
	repo.On("MarkSent", ctx, mock.AnythingOfType("string"), processorNow).Return(nil)

	require.NoError(t, p.ProcessPending(ctx))

	repo.AssertExpectations(t)
	assert.Len(t, email.sent, 2)
}

func TestNotificationProcessor_ProcessPendingQueryFails(t *testing.T) {
	ctx := context.Background()
	repo := &mockNotificationRepo{}
	p := newTestProcessor(repo)

	repo.On("ResetProcessing", ctx, mock.Anything).Return(int64(0), errors.New("mongo down"))
	repo.On("FindRetryable", ctx, 3, 100).Return(nil, errors.New("mongo down"))

	err := p.ProcessPending(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to find pending notifications")
}
