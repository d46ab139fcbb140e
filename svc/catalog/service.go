package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/clickmart/pkg/broadcast"
	"github.com/dmitrymomot/clickmart/pkg/logger"
)

// DefaultBestSellers is the size of the daily best-sellers list.
const DefaultBestSellers = 4

// DefaultPublishTimeout bounds how long CreateProduct waits for event
// subscribers to accept ProductCreated.
const DefaultPublishTimeout = 5 * time.Second

// Service is the catalog write path and the home page best-seller query.
type Service struct {
	repo     Repository
	events   broadcast.Broadcaster[ProductCreated]
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
	validate *validator.Validate
	timeout  time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation sets the time zone that defines "today" for best sellers.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithPublishTimeout bounds the ProductCreated publish.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the catalog service. events may be nil, in which case
// product creation publishes nothing.
func NewService(repo Repository, events broadcast.Broadcaster[ProductCreated], opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		events:   events,
		logger:   slog.Default(),
		location: time.UTC,
		now:      time.Now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		timeout:  DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProduct validates and stores p, then publishes ProductCreated.
// A failed publish is logged and never fails the write.
func (s *Service) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.CategoryID = strings.TrimSpace(p.CategoryID)

	if err := s.validate.StructCtx(ctx, p); err != nil {
		return nil, errors.Join(ErrInvalidProduct, err)
	}

	now := s.now().UTC().Unix()
	p.DiscountPercentage = DiscountPercentage(p.Price, p.OriginalPrice)
	p.IsActive = 1
	p.CreatedAt, p.UpdatedAt = now, now

	if err := s.repo.InsertProduct(ctx, &p); err != nil {
		if errors.Is(err, ErrInvalidID) {
			return nil, errors.Join(ErrInvalidProduct, err)
		}
		return nil, errors.Join(ErrFailedToCreate, err)
	}

	s.logger.InfoContext(ctx, "product created", logger.ProductID(p.ID))
	s.publishCreated(ctx, p)

	return &p, nil
}

func (s *Service) publishCreated(ctx context.Context, p Product) {
	if s.events == nil {
		return
	}
	evt := broadcast.Message[ProductCreated]{Data: ProductCreated{
		ProductID: p.ID,
		Name:      p.Name,
		CreatedAt: p.Created(),
	}}
	// the product is stored; a client disconnect must not cancel the event
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.events.Broadcast(pubCtx, evt); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product created event",
			logger.ProductID(p.ID),
			logger.Error(err),
		)
	}
}

// DailyBestSellers returns up to n products ranked by quantity sold today in
// paid orders. When fewer than n products sold, the list is topped up with
// the newest active products. No product appears twice.
func (s *Service) DailyBestSellers(ctx context.Context, n int) ([]Product, error) {
	if n <= 0 {
		n = DefaultBestSellers
	}

	from, to := dayBounds(s.now(), s.location)
	ids, err := s.repo.BestSellingProductIDs(ctx, from, to, n)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadSale, err)
	}

	result := make([]Product, 0, n)
	seen := make(map[string]struct{}, n)

	if len(ids) > 0 {
		found, err := s.repo.ActiveProductsByIDs(ctx, ids)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoadSale, err)
		}
		byID := make(map[string]Product, len(found))
		for _, p := range found {
			byID[p.ID] = p
		}
		for _, id := range ids {
			p, ok := byID[id]
			if _, dup := seen[id]; !ok || dup {
				continue
			}
			seen[id] = struct{}{}
			result = append(result, p)
		}
	}

	if len(result) < n {
		exclude := make([]string, 0, len(seen))
		for id := range seen {
			exclude = append(exclude, id)
		}
		extra, err := s.repo.NewestActiveProducts(ctx, exclude, n-len(result))
		if err != nil {
			return nil, fmt.Errorf("%w: top up: %w", ErrFailedToLoadSale, err)
		}
		for _, p := range extra {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			result = append(result, p)
		}
	}

	if len(result) > n {
		result = result[:n]
	}
	return result, nil
}

// dayBounds returns the first and last second of the calendar day of t in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1).Add(-time.Second)
}
