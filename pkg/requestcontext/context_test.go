package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "vatfiler/pkg/domain"
)

func TestFlowID(t *testing.T) {
	ctx := context.Background()
	_, ok := FlowID(ctx)
	assert.False(t, ok)

	flowID := id.NewFlowID()
	got, ok := FlowID(WithFlowID(ctx, flowID))
	assert.True(t, ok)
	assert.Equal(t, flowID, got)
}

func TestNowFallsBackToWallClock(t *testing.T) {
	fixed := time.Date(2026, 4, 5, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
	assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
}

func TestClientMetadata(t *testing.T) {
	ctx := WithClientMetadata(context.Background(), "203.0.113.10", "vatfiler-test/1.0")
	assert.Equal(t, "203.0.113.10", ClientIP(ctx))
	assert.Equal(t, "vatfiler-test/1.0", UserAgent(ctx))
	assert.Equal(t, "", RequestID(ctx))
}
