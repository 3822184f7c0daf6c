package tracing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()

	assert.True(t, strings.HasPrefix(id, "req_"))
	assert.Len(t, id, 4+32)
	assert.NotEqual(t, id, GenerateRequestID())
}

func TestGenerateOperationID(t *testing.T) {
	id := GenerateOperationID()

	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
}

func TestContextValues(t *testing.T) {
	start := time.Now().Add(-50 * time.Millisecond)
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req_1")
	ctx = WithTraceID(ctx, "trace_1")
	ctx = WithSpanID(ctx, "span_1")
	ctx = WithStartTime(ctx, start)

	info := GetRequestInfo(ctx)
	assert.Equal(t, "req_1", info.RequestID)
	assert.Equal(t, "trace_1", info.TraceID)
	assert.Equal(t, "span_1", info.SpanID)
	assert.Equal(t, start, info.StartTime)
	assert.GreaterOrEqual(t, Duration(ctx), 50*time.Millisecond)
}

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))
	assert.True(t, GetStartTime(ctx).IsZero())
	assert.Zero(t, Duration(ctx))
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	assert.NotEmpty(t, id)
	assert.Equal(t, id, GetRequestID(ctx))

	same, again := EnsureRequestID(ctx)
	assert.Equal(t, id, again)
	assert.Equal(t, ctx, same)
}
