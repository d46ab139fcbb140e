package storefront_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/clickmart/modules/storefront"
	"github.com/dmitrymomot/clickmart/svc/catalog"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) CreateProduct(ctx context.Context, p catalog.Product) (*catalog.Product, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalog) DailyBestSellers(ctx context.Context, n int) ([]catalog.Product, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func serve(t *testing.T, c storefront.Catalog, r *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	storefront.NewRouter(c, storefront.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).ServeHTTP(rec, r)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func postProduct(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestCreateProduct(t *testing.T) {
	t.Parallel()

	t.Run("created", func(t *testing.T) {
		t.Parallel()

		c := &MockCatalog{}
		c.On("CreateProduct", mock.Anything, catalog.Product{Name: "Lamp", Price: 20, CategoryID: "c1"}).
			Return(&catalog.Product{ID: "p1", Name: "Lamp", Price: 20, CategoryID: "c1", IsActive: 1}, nil)

		rec, env := serve(t, c, postProduct(`{"name":"Lamp","price":20,"category_id":"c1"}`))
		require.Equal(t, http.StatusCreated, rec.Code)

		var p catalog.Product
		require.NoError(t, json.Unmarshal(env.Data, &p))
		assert.Equal(t, "p1", p.ID)
		c.AssertExpectations(t)
	})

	t.Run("invalid product", func(t *testing.T) {
		t.Parallel()

		c := &MockCatalog{}
		c.On("CreateProduct", mock.Anything, mock.Anything).
			Return(nil, errors.Join(catalog.ErrInvalidProduct, errors.New("name is required")))

		rec, env := serve(t, c, postProduct(`{"price":20}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "bad_request", env.Error.Code)
		assert.Contains(t, env.Error.Message, "name is required")
	})

	t.Run("malformed body never reaches the catalog", func(t *testing.T) {
		t.Parallel()

		c := &MockCatalog{}
		rec, env := serve(t, c, postProduct(`{"name":`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		c.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()

		c := &MockCatalog{}
		c.On("CreateProduct", mock.Anything, mock.Anything).Return(nil, catalog.ErrFailedToCreate)

		rec, _ := serve(t, c, postProduct(`{"name":"Lamp","price":20,"category_id":"c1"}`))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestBestSellers(t *testing.T) {
	t.Parallel()

	products := []catalog.Product{{ID: "p1", Name: "Lamp"}, {ID: "p2", Name: "Desk"}}

	tests := []struct {
		name      string
		path      string
		wantLimit int
	}{
		{"default limit", "/best-sellers", catalog.DefaultBestSellers},
		{"explicit limit", "/best-sellers?limit=2", 2},
		{"capped limit", "/best-sellers?limit=500", storefront.MaxBestSellers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := &MockCatalog{}
			c.On("DailyBestSellers", mock.Anything, tt.wantLimit).Return(products, nil)

			rec, env := serve(t, c, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.EqualValues(t, 2, env.Meta["total"])
			c.AssertExpectations(t)
		})
	}

	t.Run("bad limit", func(t *testing.T) {
		t.Parallel()

		rec, env := serve(t, &MockCatalog{}, httptest.NewRequest(http.MethodGet, "/best-sellers?limit=many", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
	})

	t.Run("load failure", func(t *testing.T) {
		t.Parallel()

		c := &MockCatalog{}
		c.On("DailyBestSellers", mock.Anything, catalog.DefaultBestSellers).Return(nil, catalog.ErrFailedToLoadSale)

		rec, _ := serve(t, c, httptest.NewRequest(http.MethodGet, "/best-sellers", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
