package composite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkorolev/shopgw/internal/registry"
)

func TestForwardWrite(t *testing.T) {
	t.Parallel()

	t.Run("creation passes status and body through", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":7,"name":"widget"}`))
		}))
		defer srv.Close()

		p := NewWriteProxy(NewClient(), registry.ServiceProducts, srv.URL, nil)
		result, err := p.ForwardWrite(context.Background(), testRequestContext(), []byte(`{"name":"widget"}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, result.StatusCode)
		assert.JSONEq(t, `{"id":7,"name":"widget"}`, string(result.Body))
	})

	t.Run("rejection carries backend status and JSON body", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"name is required"}`))
		}))
		defer srv.Close()

		p := NewWriteProxy(NewClient(), registry.ServiceProducts, srv.URL, nil)
		_, err := p.ForwardWrite(context.Background(), testRequestContext(), []byte(`{}`))

		ue, ok := IsUpstreamError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, ue.StatusCode)
		assert.JSONEq(t, `{"error":"name is required"}`, string(ue.Body))
	})

	t.Run("non-JSON rejection body is wrapped", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("upstream overloaded"))
		}))
		defer srv.Close()

		p := NewWriteProxy(NewClient(), registry.ServiceProducts, srv.URL, nil)
		_, err := p.ForwardWrite(context.Background(), testRequestContext(), []byte(`{}`))

		ue, ok := IsUpstreamError(err)
		require.True(t, ok)
		assert.JSONEq(t, `{"error":"upstream overloaded"}`, string(ue.Body))
	})

	t.Run("transport failure is distinguishable from rejection", func(t *testing.T) {
		t.Parallel()

		dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		dead.Close()

		p := NewWriteProxy(NewClient(), registry.ServiceProducts, dead.URL, nil)
		_, err := p.ForwardWrite(context.Background(), testRequestContext(), []byte(`{}`))

		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
		_, ok := IsUpstreamError(err)
		assert.False(t, ok)
	})
}
