package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/clickmart/pkg/email"
	"github.com/dmitrymomot/clickmart/pkg/email/templates"
	"github.com/dmitrymomot/clickmart/pkg/logger"
	"github.com/dmitrymomot/clickmart/pkg/queue"
)

// Email tags attached to outgoing messages.
const (
	TagWeeklyNotification = "weekly-notification"
	TagAccountSummary     = "account-summary"
	TagOrderUpdate        = "order-update"
)

// ProcessWeeklyNotification emails userID the active products created within
// the lookback window. A missing user, an unusable address or an empty week
// complete as a no-op through queue.Skip.
func (s *Service) ProcessWeeklyNotification(ctx context.Context, userID string) error {
	ctx = logger.WithContextAttrs(ctx, logger.UserID(userID))

	user, err := s.recipient(ctx, userID)
	if err != nil {
		return err
	}

	since := s.now().Add(-s.cfg.Lookback)
	products, err := s.repo.ProductsCreatedSince(ctx, since, s.cfg.WeeklyProductLimit)
	if err != nil {
		return fmt.Errorf("load new products: %w", err)
	}
	if len(products) == 0 {
		return queue.Skip("no new products since %s", since.UTC().Format("2006-01-02"))
	}

	digest := templates.WeeklyDigest{
		UserName:    user.Name,
		Products:    make([]templates.Product, 0, len(products)),
		FrontendURL: s.cfg.FrontendURL,
	}
	for _, p := range products {
		digest.Products = append(digest.Products, templateProduct(p))
	}

	return s.deliver(ctx, user.Email, digest, TagWeeklyNotification)
}

// ProcessAccountSummary emails userID the totals of their paid orders within
// the lookback window. The summary is sent even when there are no orders.
func (s *Service) ProcessAccountSummary(ctx context.Context, userID string) error {
	ctx = logger.WithContextAttrs(ctx, logger.UserID(userID))

	user, err := s.recipient(ctx, userID)
	if err != nil {
		return err
	}

	orders, err := s.repo.PaidOrdersSince(ctx, user.ID, s.now().Add(-s.cfg.Lookback))
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}
	sum := Summarize(orders)

	return s.deliver(ctx, user.Email, templates.AccountSummary{
		UserName:      user.Name,
		TotalOrders:   sum.TotalOrders,
		TotalProducts: sum.TotalProducts,
		TotalAmount:   sum.TotalAmount,
		FrontendURL:   s.cfg.FrontendURL,
	}, TagAccountSummary)
}

// ProcessOrderUpdate emails userID about productID. Both must still exist.
func (s *Service) ProcessOrderUpdate(ctx context.Context, userID, productID string) error {
	ctx = logger.WithContextAttrs(ctx, logger.UserID(userID), logger.ProductID(productID))

	user, err := s.recipient(ctx, userID)
	if err != nil {
		return err
	}

	product, err := s.repo.GetProduct(ctx, productID)
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrInvalidID):
		return queue.Skip("product %s not found", productID)
	case err != nil:
		return fmt.Errorf("load product: %w", err)
	}

	return s.deliver(ctx, user.Email, templates.NewProduct{
		UserName:    user.Name,
		Product:     templateProduct(*product),
		FrontendURL: s.cfg.FrontendURL,
	}, TagOrderUpdate)
}

// recipient loads a user that can receive email. Conditions that no retry
// can change are returned as queue.Skip.
func (s *Service) recipient(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidID):
		return nil, queue.Skip("user %s not found", userID)
	case err != nil:
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !usableAddress(user.Email) {
		return nil, queue.Skip("user %s has no usable email", userID)
	}
	user.Email = strings.TrimSpace(user.Email)
	return user, nil
}

// deliver renders msg and hands it to the sender. Rendering and parameter
// errors are permanent; everything else is left to the queue's retry policy.
func (s *Service) deliver(ctx context.Context, to string, msg templates.Message, tag string) error {
	subject, html, err := templates.RenderMessage(ctx, msg)
	if err != nil {
		return queue.Unrecoverable(fmt.Errorf("render %s email: %w", tag, err))
	}

	err = s.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		BodyHTML: html,
		Tag:      tag,
	})
	switch {
	case errors.Is(err, email.ErrInvalidParams):
		return queue.Unrecoverable(err)
	case err != nil:
		return err
	}

	s.logger.InfoContext(ctx, "notification sent", logger.Event(tag))
	return nil
}

func templateProduct(p Product) templates.Product {
	tp := templates.Product{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
	}
	if p.OriginalPrice != nil {
		tp.OriginalPrice = *p.OriginalPrice
	}
	return tp
}
