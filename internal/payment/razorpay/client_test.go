package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient("", "secret")
	assert.ErrorIs(t, err, ErrConfigMissing)

	_, err = NewClient("key", "")
	assert.ErrorIs(t, err, ErrConfigMissing)
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "rzp_test_secret", pass)

		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(18000), req.Amount)
		assert.Equal(t, "INR", req.Currency)
		assert.Equal(t, "ORD-20260828-ABC123", req.Receipt)
		assert.Equal(t, 1, req.PaymentCapture)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"order_9A33XWu170gUtm","amount":18000,"currency":"INR","receipt":"ORD-20260828-ABC123","status":"created"}`))
	}))
	defer srv.Close()

	c, err := NewClient("rzp_test_key", "rzp_test_secret", WithBaseURL(srv.URL))
	require.NoError(t, err)

	remote, err := c.CreateOrder(context.Background(), OrderRequest{
		Amount:         18000,
		Currency:       "INR",
		Receipt:        "ORD-20260828-ABC123",
		PaymentCapture: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, "order_9A33XWu170gUtm", remote.ID)
	assert.Equal(t, int64(18000), remote.Amount)
	assert.Equal(t, "created", remote.Status)
	assert.NotEmpty(t, remote.Raw)
}

func TestCreateOrder_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"description":"Authentication failed"}}`))
	}))
	defer srv.Close()

	c, err := NewClient("bad", "creds", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR"})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusUnauthorized, gwErr.StatusCode)
	assert.Contains(t, gwErr.Body, "Authentication failed")
}

func TestCreateOrder_MissingOrderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"amount":100}`))
	}))
	defer srv.Close()

	c, err := NewClient("key", "secret", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR"})
	assert.Error(t, err)
}
