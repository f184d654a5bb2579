package composite

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkorolev/shopgw/internal/registry"
	"github.com/vkorolev/shopgw/internal/util"
)

func testRequestContext() *util.RequestContext {
	return &util.RequestContext{
		CorrelationID: "corr-123",
		BearerToken:   "Bearer tok",
		StartTime:     time.Now(),
	}
}

func TestClientGet(t *testing.T) {
	t.Parallel()

	t.Run("success returns body", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"users":[{"id":1}]}`))
		}))
		defer srv.Close()

		client := NewClient()
		body, err := client.Get(context.Background(), testRequestContext(), registry.ServiceUsers, srv.URL)
		require.NoError(t, err)
		assert.JSONEq(t, `{"users":[{"id":1}]}`, string(body))
	})

	t.Run("forwards correlation id and bearer token", func(t *testing.T) {
		t.Parallel()

		var gotCorrelation, gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotCorrelation = r.Header.Get(CorrelationIDHeader)
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		client := NewClient()
		_, err := client.Get(context.Background(), testRequestContext(), registry.ServiceUsers, srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "corr-123", gotCorrelation)
		assert.Equal(t, "Bearer tok", gotAuth)
	})

	t.Run("non-success status yields UpstreamError", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"no such user"}`))
		}))
		defer srv.Close()

		client := NewClient()
		_, err := client.Get(context.Background(), testRequestContext(), registry.ServiceUsers, srv.URL)

		ue, ok := IsUpstreamError(err)
		require.True(t, ok)
		assert.Equal(t, registry.ServiceUsers, ue.Service)
		assert.Equal(t, http.StatusNotFound, ue.StatusCode)
		assert.JSONEq(t, `{"error":"no such user"}`, string(ue.Body))
		assert.False(t, errors.Is(err, ErrUpstreamUnavailable))
	})

	t.Run("unreachable backend yields UnavailableError", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		client := NewClient()
		_, err := client.Get(context.Background(), testRequestContext(), registry.ServiceUsers, srv.URL)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)

		var una *UnavailableError
		require.ErrorAs(t, err, &una)
		assert.Equal(t, registry.ServiceUsers, una.Service)
	})

	t.Run("timeout is a transport failure", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer func() {
			close(release)
			srv.Close()
		}()

		client := NewClient(WithCallTimeout(50 * time.Millisecond))
		_, err := client.Get(context.Background(), testRequestContext(), registry.ServiceUsers, srv.URL)
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})
}

func TestClientPostJSON(t *testing.T) {
	t.Parallel()

	t.Run("returns status and body without interpretation", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"bad order"}`))
		}))
		defer srv.Close()

		client := NewClient()
		status, body, err := client.PostJSON(context.Background(), testRequestContext(),
			registry.ServiceOrders, srv.URL, []byte(`{"item":1}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.JSONEq(t, `{"error":"bad order"}`, string(body))
	})

	t.Run("transport failure yields error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		client := NewClient()
		_, _, err := client.PostJSON(context.Background(), testRequestContext(),
			registry.ServiceOrders, srv.URL, []byte(`{}`))
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})
}
