package storefront

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/clickmart/handler"
	"github.com/dmitrymomot/clickmart/pkg/binder"
	"github.com/dmitrymomot/clickmart/pkg/requestid"
	"github.com/dmitrymomot/clickmart/svc/catalog"
	"github.com/dmitrymomot/clickmart/svc/notification"
)

// MaxBestSellers caps the limit query parameter.
const MaxBestSellers = 50

// Catalog is the part of catalog.Service the routes use.
type Catalog interface {
	CreateProduct(ctx context.Context, p catalog.Product) (*catalog.Product, error)
	DailyBestSellers(ctx context.Context, n int) ([]catalog.Product, error)
}

type createProductRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"original_price"`
	Image         string   `json:"image"`
	CategoryID    string   `json:"category_id"`
	Label         string   `json:"label"`
	StockQuantity int      `json:"stock_quantity"`
}

type bestSellersRequest struct {
	Limit int `query:"limit"`
}

// Option configures the router.
type Option func(*routes)

// NotificationSettings is the part of notification.Service the settings
// routes use.
type NotificationSettings interface {
	Settings(ctx context.Context, userID string) (*notification.Settings, error)
	UpdateSettings(ctx context.Context, userID string, prefs notification.Preferences) (*notification.Settings, error)
}

// WithNotificationSettings mounts the notification settings routes.
func WithNotificationSettings(s NotificationSettings) Option {
	return func(r *routes) {
		r.settings = s
	}
}

// WithLogger sets the logger used for error responses.
func WithLogger(l *slog.Logger) Option {
	return func(r *routes) {
		if l != nil {
			r.logger = l
		}
	}
}

type routes struct {
	catalog  Catalog
	settings NotificationSettings
	logger   *slog.Logger
}

// NewRouter returns the storefront API:
//
//	POST  /products                             create a product
//	GET   /best-sellers?limit=4                 today's best sellers
//	GET   /users/{id}/notification-settings     read settings, created on first access
//	PATCH /users/{id}/notification-settings     update preference flags
//
// The settings routes exist only with WithNotificationSettings.
func NewRouter(c Catalog, opts ...Option) http.Handler {
	rt := &routes{catalog: c, logger: slog.Default()}
	for _, opt := range opts {
		opt(rt)
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware, middleware.Recoverer)

	onErr := handler.NewErrorHandler(rt.logger)

	r.Post("/products", handler.Wrap(rt.createProduct,
		handler.WithBinders[handler.Context, createProductRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, createProductRequest](onErr),
	))
	r.Get("/best-sellers", handler.Wrap(rt.bestSellers,
		handler.WithBinders[handler.Context, bestSellersRequest](binder.Query()),
		handler.WithErrorHandler[handler.Context, bestSellersRequest](onErr),
	))

	if rt.settings != nil {
		r.Get("/users/{id}/notification-settings", handler.Wrap(rt.getSettings,
			handler.WithBinders[handler.Context, settingsRequest](binder.Path()),
			handler.WithErrorHandler[handler.Context, settingsRequest](onErr),
		))
		r.Patch("/users/{id}/notification-settings", handler.Wrap(rt.updateSettings,
			handler.WithBinders[handler.Context, updateSettingsRequest](binder.JSON(), binder.Path()),
			handler.WithErrorHandler[handler.Context, updateSettingsRequest](onErr),
		))
	}

	return r
}

func (rt *routes) createProduct(ctx handler.Context, req createProductRequest) handler.Response {
	p, err := rt.catalog.CreateProduct(ctx, catalog.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Image:         req.Image,
		CategoryID:    req.CategoryID,
		Label:         req.Label,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidProduct) {
			return handler.JSONError(errors.Join(handler.ErrBadRequest, err))
		}
		return handler.JSONError(err)
	}
	return handler.JSON(p, handler.WithJSONStatus(http.StatusCreated))
}

func (rt *routes) bestSellers(ctx handler.Context, req bestSellersRequest) handler.Response {
	limit := req.Limit
	switch {
	case limit <= 0:
		limit = catalog.DefaultBestSellers
	case limit > MaxBestSellers:
		limit = MaxBestSellers
	}

	products, err := rt.catalog.DailyBestSellers(ctx, limit)
	if err != nil {
		return handler.JSONError(err)
	}
	return handler.JSON(products, handler.WithJSONMeta(map[string]any{"total": len(products)}))
}
