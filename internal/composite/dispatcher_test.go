package composite

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkorolev/shopgw/internal/registry"
)

func TestNormalizeBatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr bool
	}{
		{name: "single object", input: `{"item":"book"}`, wantLen: 1},
		{name: "array of objects", input: `[{"item":"book"},{"item":"pen"}]`, wantLen: 2},
		{name: "empty array", input: `[]`, wantLen: 0},
		{name: "scalar becomes one payload", input: `42`, wantLen: 1},
		{name: "malformed json", input: `{"item":`, wantErr: true},
		{name: "empty body", input: ``, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			batch, err := NormalizeBatch([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, batch, tt.wantLen)
		})
	}
}

func TestDispatch_ReturnsBeforeBackendAnswers(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 8)
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()
	defer close(release)

	d := NewDispatcher(NewClient(), registry.ServiceOrders, srv.URL)

	done := make(chan struct{})
	go func() {
		d.Dispatch(testRequestContext(), []json.RawMessage{
			json.RawMessage(`{"item":1}`),
			json.RawMessage(`{"item":2}`),
		})
		close(done)
	}()

	// Dispatch must come back while the backend is still holding every
	// request open.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch did not return before backend answered")
	}

	// Both sub-tasks actually reached the backend.
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("dispatched write never reached the backend")
		}
	}
}

func TestDispatch_DeliversEveryPayload(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	bodies := []string{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	d := NewDispatcher(NewClient(), registry.ServiceOrders, srv.URL)

	d.Dispatch(testRequestContext(), []json.RawMessage{
		json.RawMessage(`{"item":1}`),
		json.RawMessage(`{"item":2}`),
		json.RawMessage(`{"item":3}`),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Drain(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, bodies, 3)
	assert.ElementsMatch(t, []string{`{"item":1}`, `{"item":2}`, `{"item":3}`}, bodies)
}

func TestDispatch_CarriesCorrelationID(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var gotCorrelation, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotCorrelation = r.Header.Get(CorrelationIDHeader)
		gotAuth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	d := NewDispatcher(NewClient(), registry.ServiceOrders, srv.URL)
	d.Dispatch(testRequestContext(), []json.RawMessage{json.RawMessage(`{}`)})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Drain(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "corr-123", gotCorrelation)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestDispatch_FailureDoesNotAffectCaller(t *testing.T) {
	t.Parallel()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	d := NewDispatcher(NewClient(), registry.ServiceOrders, dead.URL)

	// Dispatching against an unreachable backend neither panics nor
	// blocks; the failure lands in the log sink only.
	d.Dispatch(testRequestContext(), []json.RawMessage{json.RawMessage(`{}`)})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, d.Drain(ctx))
}

func TestDrain_HonorsContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()
	defer close(release)

	d := NewDispatcher(NewClient(), registry.ServiceOrders, srv.URL)
	d.Dispatch(testRequestContext(), []json.RawMessage{json.RawMessage(`{}`)})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Drain(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
