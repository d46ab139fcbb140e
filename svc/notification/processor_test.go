package notification_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/clickmart/pkg/email"
	"github.com/dmitrymomot/clickmart/pkg/queue"
	"github.com/dmitrymomot/clickmart/svc/notification"
)

var ann = &notification.User{ID: "u1", Name: "Ann", Email: "ann@example.com"}

func ptr[T any](v T) *T { return &v }

func sentTo(to, subject, tag string) any {
	return mock.MatchedBy(func(p email.SendEmailParams) bool {
		return p.SendTo == to && p.Subject == subject && p.Tag == tag && p.BodyHTML != ""
	})
}

func TestProcessWeeklyNotification(t *testing.T) {
	t.Parallel()

	since := fixedNow.Add(-notification.DefaultConfig().Lookback)

	t.Run("sends digest", func(t *testing.T) {
		t.Parallel()

		repo := &MockRepository{}
		repo.On("GetUser", mock.Anything, "u1").Return(ann, nil)
		repo.On("ProductsCreatedSince", mock.Anything, since, 10).Return([]notification.Product{
			{ID: "p1", Name: "Lamp", Price: 20, OriginalPrice: ptr(25.0)},
			{ID: "p2", Name: "Chair", Price: 80},
		}, nil)
		sender := &MockEmailSender{}
		sender.On("SendEmail", mock.Anything, sentTo("ann@example.com", "Weekly New Products - Click Mart", notification.TagWeeklyNotification)).
			Return(nil).Once()

		svc := newService(newManager(t), repo, sender)
		require.NoError(t, svc.ProcessWeeklyNotification(t.Context(), "u1"))
		sender.AssertExpectations(t)
	})

	t.Run("empty week is skipped", func(t *testing.T) {
		t.Parallel()

		repo := &MockRepository{}
		repo.On("GetUser", mock.Anything, "u1").Return(ann, nil)
		repo.On("ProductsCreatedSince", mock.Anything, since, 10).Return([]notification.Product{}, nil)
		sender := &MockEmailSender{}

		svc := newService(newManager(t), repo, sender)
		err := svc.ProcessWeeklyNotification(t.Context(), "u1")
		require.Error(t, err)
		assert.True(t, queue.IsSkip(err))
		sender.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	})

	t.Run("missing user is skipped", func(t *testing.T) {
		t.Parallel()

		repo := &MockRepository{}
		repo.On("GetUser", mock.Anything, "gone").Return(nil, notification.ErrUserNotFound)
		sender := &MockEmailSender{}

		svc := newService(newManager(t), repo, sender)
		err := svc.ProcessWeeklyNotification(t.Context(), "gone")
		assert.True(t, queue.IsSkip(err))
		sender.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	})

	t.Run("user without email is skipped", func(t *testing.T) {
		t.Parallel()

		repo := &MockRepository{}
		repo.On("GetUser", mock.Anything, "u9").Return(&notification.User{ID: "u9", Name: "X"}, nil)

		svc := newService(newManager(t), repo, &MockEmailSender{})
		err := svc.ProcessWeeklyNotification(t.Context(), "u9")
		assert.True(t, queue.IsSkip(err))
		repo.AssertNotCalled(t, "ProductsCreatedSince", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store error is retried", func(t *testing.T) {
		t.Parallel()

		repo := &MockRepository{}
		repo.On("GetUser", mock.Anything, "u1").Return(nil, errors.New("timeout"))

		svc := newService(newManager(t), repo, &MockEmailSender{})
		err := svc.ProcessWeeklyNotification(t.Context(), "u1")
		require.Error(t, err)
		assert.False(t, queue.IsSkip(err))
		assert.False(t, queue.IsUnrecoverable(err))
	})
}

func TestProcessAccountSummary(t *testing.T) {
	t.Parallel()

	since := fixedNow.Add(-notification.DefaultConfig().Lookback)

	t.Run("sent even without orders", func(t *testing.T) {
		t.Parallel()

		repo := &MockRepository{}
		repo.On("GetUser", mock.Anything, "u1").Return(ann, nil)
		repo.On("PaidOrdersSince", mock.Anything, "u1", since).Return([]notification.Order{}, nil)
		sender := &MockEmailSender{}
		sender.On("SendEmail", mock.Anything, sentTo("ann@example.com", "Your Weekly Account Summary - Click Mart", notification.TagAccountSummary)).
			Return(nil).Once()

		svc := newService(newManager(t), repo, sender)
		require.NoError(t, svc.ProcessAccountSummary(t.Context(), "u1"))
		sender.AssertExpectations(t)
	})

	t.Run("totals appear in the body", func(t *testing.T) {
		t.Parallel()

		repo := &MockRepository{}
		repo.On("GetUser", mock.Anything, "u1").Return(ann, nil)
		repo.On("PaidOrdersSince", mock.Anything, "u1", since).Return([]notification.Order{
			{ID: "o1", Total: 30, Items: []notification.OrderItem{{Quantity: 2}, {Quantity: 1}}},
			{ID: "o2", Total: 12.5, Items: []notification.OrderItem{{Quantity: 4}}},
		}, nil)

		var got email.SendEmailParams
		sender := &MockEmailSender{}
		sender.On("SendEmail", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { got = args.Get(1).(email.SendEmailParams) }).
			Return(nil)

		svc := newService(newManager(t), repo, sender)
		require.NoError(t, svc.ProcessAccountSummary(t.Context(), "u1"))
		assert.Contains(t, got.BodyHTML, "Rs 42.50")
		assert.Contains(t, got.BodyHTML, "<strong>Total Products Ordered:</strong> 7")
	})
}

func TestProcessOrderUpdate(t *testing.T) {
	t.Parallel()

	t.Run("sends product email", func(t *testing.T) {
		t.Parallel()

		repo := &MockRepository{}
		repo.On("GetUser", mock.Anything, "u1").Return(ann, nil)
		repo.On("GetProduct", mock.Anything, "p1").Return(&notification.Product{ID: "p1", Name: "Lamp", Price: 20}, nil)
		sender := &MockEmailSender{}
		sender.On("SendEmail", mock.Anything, sentTo("ann@example.com", "New Product: Lamp - Click Mart", notification.TagOrderUpdate)).
			Return(nil).Once()

		svc := newService(newManager(t), repo, sender)
		require.NoError(t, svc.ProcessOrderUpdate(t.Context(), "u1", "p1"))
		sender.AssertExpectations(t)
	})

	t.Run("missing product is skipped", func(t *testing.T) {
		t.Parallel()

		repo := &MockRepository{}
		repo.On("GetUser", mock.Anything, "u1").Return(ann, nil)
		repo.On("GetProduct", mock.Anything, "p404").Return(nil, notification.ErrProductNotFound)
		sender := &MockEmailSender{}

		svc := newService(newManager(t), repo, sender)
		err := svc.ProcessOrderUpdate(t.Context(), "u1", "p404")
		assert.True(t, queue.IsSkip(err))
		sender.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	})

	t.Run("delivery errors", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name          string
			sendErr       error
			unrecoverable bool
		}{
			{name: "transient", sendErr: errors.New("502 bad gateway")},
			{name: "paused", sendErr: email.ErrDeliveryPaused},
			{name: "invalid params", sendErr: email.ErrInvalidParams, unrecoverable: true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				repo := &MockRepository{}
				repo.On("GetUser", mock.Anything, "u1").Return(ann, nil)
				repo.On("GetProduct", mock.Anything, "p1").Return(&notification.Product{ID: "p1", Name: "Lamp"}, nil)
				sender := &MockEmailSender{}
				sender.On("SendEmail", mock.Anything, mock.Anything).Return(tt.sendErr)

				svc := newService(newManager(t), repo, sender)
				err := svc.ProcessOrderUpdate(t.Context(), "u1", "p1")
				require.ErrorIs(t, err, tt.sendErr)
				assert.Equal(t, tt.unrecoverable, queue.IsUnrecoverable(err))
				assert.False(t, queue.IsSkip(err))
			})
		}
	})
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, notification.Summary{}, notification.Summarize(nil))

	sum := notification.Summarize([]notification.Order{
		{Total: 10, Items: []notification.OrderItem{{Quantity: 1}, {Quantity: 3}}},
		{Total: 5.25},
	})
	assert.Equal(t, notification.Summary{TotalOrders: 2, TotalProducts: 4, TotalAmount: 15.25}, sum)
}
