package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atlogit/atlomy/internal/model"
)

// countingAdapter blocks until released, so concurrent callers requesting
// the same text can be observed piling up behind a single in-flight call.
type countingAdapter struct {
	calls   int32
	release chan struct{}
}

func (a *countingAdapter) Annotate(ctx context.Context, text string) ([]model.NLPToken, []string, error) {
	atomic.AddInt32(&a.calls, 1)
	<-a.release
	return []model.NLPToken{{Text: text, Lemma: text}}, nil, nil
}

func TestNLPPoolDedupsConcurrentIdenticalText(t *testing.T) {
	adapter := &countingAdapter{release: make(chan struct{})}
	pool := newNLPPool(adapter, 4)

	var wg sync.WaitGroup
	results := make([][]model.NLPToken, 5)
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens, _, err := pool.annotate(context.Background(), "ὦμος")
			require.NoError(t, err)
			results[i] = tokens
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(adapter.release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&adapter.calls))
	for _, r := range results {
		require.Len(t, r, 1)
		assert.Equal(t, "ὦμος", r[0].Text)
	}
}

func TestNLPPoolRunsDistinctTextConcurrentlyUpToLimit(t *testing.T) {
	adapter := &countingAdapter{release: make(chan struct{})}
	pool := newNLPPool(adapter, 2)

	var wg sync.WaitGroup
	for _, text := range []string{"a", "b"} {
		text := text
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := pool.annotate(context.Background(), text)
			require.NoError(t, err)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&adapter.calls))
	close(adapter.release)
	wg.Wait()
}
