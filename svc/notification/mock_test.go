package notification_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/clickmart/pkg/email"
	"github.com/dmitrymomot/clickmart/pkg/queue"
	"github.com/dmitrymomot/clickmart/svc/notification"
)

var fixedNow = time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) RecipientsWithEnabled(ctx context.Context, category, subtype string) ([]notification.Recipient, error) {
	args := m.Called(ctx, category, subtype)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notification.Recipient), args.Error(1)
}

func (m *MockRepository) GetUser(ctx context.Context, id string) (*notification.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.User), args.Error(1)
}

func (m *MockRepository) GetProduct(ctx context.Context, id string) (*notification.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Product), args.Error(1)
}

func (m *MockRepository) ProductsCreatedSince(ctx context.Context, since time.Time, limit int) ([]notification.Product, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notification.Product), args.Error(1)
}

func (m *MockRepository) PaidOrdersSince(ctx context.Context, userID string, since time.Time) ([]notification.Order, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notification.Order), args.Error(1)
}

func (m *MockRepository) FindSettings(ctx context.Context, userID string) (*notification.Settings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Settings), args.Error(1)
}

func (m *MockRepository) UpsertSettings(ctx context.Context, userID string, prefs notification.Preferences, now time.Time) (*notification.Settings, error) {
	args := m.Called(ctx, userID, prefs, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Settings), args.Error(1)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(t *testing.T) *queue.Manager {
	t.Helper()

	m, err := queue.NewManager(queue.NewMemoryStorage(),
		queue.WithLogger(quietLogger()),
		queue.WithWorkerDefaults(queue.WithPullInterval(5*time.Millisecond)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Close(ctx)
	})
	return m
}

func newService(jobs notification.JobQueue, repo notification.Repository, sender email.EmailSender) *notification.Service {
	return notification.NewService(jobs, repo, sender,
		notification.WithLogger(quietLogger()),
		notification.WithClock(func() time.Time { return fixedNow }),
		notification.WithConfig(notification.Config{FrontendURL: "https://clickmart.test"}),
	)
}
