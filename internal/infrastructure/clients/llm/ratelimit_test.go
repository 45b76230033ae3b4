package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainTokens(b *tokenBucket) int {
	n := 0
	for {
		select {
		case <-b.tokens:
			n++
		default:
			return n
		}
	}
}

func TestTokenBucket_WaitConsumesBurst(t *testing.T) {
	b := newTokenBucketWithRate(60, 3)
	defer b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Wait(ctx))
	}
	assert.ErrorIs(t, b.Wait(ctx), context.DeadlineExceeded)
}

func TestTokenBucket_StopEndsRefill(t *testing.T) {
	// 1ms refill interval makes a leaked refill goroutine observable
	b := newTokenBucketWithRate(60000, 2)
	drainTokens(b)

	b.Stop()
	b.Stop() // idempotent

	// One tick may already be in flight when Stop lands; after that the
	// bucket must stay empty.
	time.Sleep(25 * time.Millisecond)
	baseline := drainTokens(b)
	assert.LessOrEqual(t, baseline, 1)

	time.Sleep(25 * time.Millisecond)
	assert.Zero(t, drainTokens(b))
}

func TestTokenBucket_DisabledWhenNegativeRate(t *testing.T) {
	assert.Nil(t, newTokenBucket(-1, 5))
}
