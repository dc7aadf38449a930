package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/domain"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/repository"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCartAPI struct {
	cart   *domain.Cart
	counts *domain.StateCounts
	err    error
}

func (m *mockCartAPI) CreateCart(_ context.Context, code string) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Cart{ID: "cart-1", Code: code}, nil
}

func (m *mockCartAPI) FindByCode(_ context.Context, code string) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil || m.cart.Code != code {
		return nil, repository.ErrCartNotFound
	}
	return m.cart, nil
}

func (m *mockCartAPI) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil || m.cart.UserID != userID {
		return nil, repository.ErrCartNotFound
	}
	return m.cart, nil
}

func (m *mockCartAPI) StateCounts(context.Context) (*domain.StateCounts, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.counts, nil
}

func setupServer(t *testing.T, carts *mockCartAPI) *httptest.Server {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	router := NewRouter(NewAPI(carts, log), http.NotFoundHandler())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealth(t *testing.T) {
	srv := setupServer(t, &mockCartAPI{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateCart(t *testing.T) {
	srv := setupServer(t, &mockCartAPI{})

	resp, err := http.Post(srv.URL+"/api/v1/carts", "application/json", strings.NewReader(`{"code":"C1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestCreateCart_MissingCode(t *testing.T) {
	srv := setupServer(t, &mockCartAPI{})

	resp, err := http.Post(srv.URL+"/api/v1/carts", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateCart_ServiceError(t *testing.T) {
	srv := setupServer(t, &mockCartAPI{err: fmt.Errorf("database error")})

	resp, err := http.Post(srv.URL+"/api/v1/carts", "application/json", strings.NewReader(`{"code":"C1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestGetCart(t *testing.T) {
	srv := setupServer(t, &mockCartAPI{cart: &domain.Cart{ID: "cart-1", Code: "C1"}})

	resp, err := http.Get(srv.URL + "/api/v1/carts/C1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetCart_NotFound(t *testing.T) {
	srv := setupServer(t, &mockCartAPI{})

	resp, err := http.Get(srv.URL + "/api/v1/carts/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetUserCart(t *testing.T) {
	srv := setupServer(t, &mockCartAPI{cart: &domain.Cart{ID: "cart-1", Code: "C1", UserID: "U1", Active: true}})

	resp, err := http.Get(srv.URL + "/api/v1/users/U1/cart")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetUserCart_NoActiveCart(t *testing.T) {
	srv := setupServer(t, &mockCartAPI{})

	resp, err := http.Get(srv.URL + "/api/v1/users/U1/cart")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStateCounts(t *testing.T) {
	srv := setupServer(t, &mockCartAPI{counts: &domain.StateCounts{Available: 2, Low: 1, Out: 1, Total: 4}})

	resp, err := http.Get(srv.URL + "/api/v1/products/state-counts")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
