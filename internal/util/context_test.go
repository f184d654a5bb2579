package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestContextPlumbing(t *testing.T) {
	t.Parallel()

	rc := &RequestContext{CorrelationID: "abc", StartTime: time.Now()}
	ctx := ContextWithRequestContext(context.Background(), rc)

	got := RequestContextFromContext(ctx)
	assert.Same(t, rc, got)
}

func TestRequestContextFromContext_Missing(t *testing.T) {
	t.Parallel()

	got := RequestContextFromContext(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got.CorrelationID)
}

func TestElapsed(t *testing.T) {
	t.Parallel()

	rc := &RequestContext{StartTime: time.Now().Add(-time.Second)}
	assert.GreaterOrEqual(t, rc.Elapsed(), time.Second)

	var nilRC *RequestContext
	assert.Equal(t, time.Duration(0), nilRC.Elapsed())

	zero := &RequestContext{}
	assert.Equal(t, time.Duration(0), zero.Elapsed())
}
