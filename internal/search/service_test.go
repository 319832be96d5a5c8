package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atlogit/atlomy/internal/cache"
	"github.com/Atlogit/atlomy/internal/config"
	"github.com/Atlogit/atlomy/internal/errkind"
	"github.com/Atlogit/atlomy/internal/model"
)

type fakeSearchStore struct {
	results []model.Result
	total   int
	err     error
}

func (f *fakeSearchStore) SearchSentences(ctx context.Context, q model.SearchQuery) ([]model.Result, int, error) {
	return f.results, f.total, f.err
}

func makeResults(n int) []model.Result {
	out := make([]model.Result, n)
	for i := range out {
		out[i] = model.Result{SentenceID: string(rune('a' + i%26))}
	}
	return out
}

func testConfig() config.SearchConfig {
	return config.SearchConfig{
		DefaultPageSize: 10,
		MaxPageSize:     100,
		ChunkSize:       5,
		DefaultTTL:      0,
		CachePrefix:     "citesearch",
	}
}

func TestSearchReturnsDistinctResultsIDPerCall(t *testing.T) {
	store := &fakeSearchStore{results: makeResults(3), total: 3}
	svc := New(store, cache.NewMemoryStore(), testConfig())

	r1, err := svc.Search(context.Background(), model.SearchQuery{Query: "ὦμος"})
	require.NoError(t, err)
	r2, err := svc.Search(context.Background(), model.SearchQuery{Query: "ὦμος"})
	require.NoError(t, err)

	assert.NotEqual(t, r1.ResultsID, r2.ResultsID)
	assert.Equal(t, 3, r1.Total)
}

func TestGetPageSpansTwoChunks(t *testing.T) {
	store := &fakeSearchStore{results: makeResults(12), total: 12}
	svc := New(store, cache.NewMemoryStore(), testConfig())

	res, err := svc.Search(context.Background(), model.SearchQuery{Query: "x", PageSize: 3})
	require.NoError(t, err)
	require.Len(t, res.FirstPage, 3)

	// page 2 (items 3-5) with page_size 3 spans chunk 0 (items 0-4) and chunk 1 (items 5-9).
	p2, err := svc.GetPage(context.Background(), res.ResultsID, 2, 3)
	require.NoError(t, err)
	assert.Len(t, p2.Results, 3)

	// page 3 (items 6-8) lies within chunk 1 (5-9) only.
	p3, err := svc.GetPage(context.Background(), res.ResultsID, 3, 3)
	require.NoError(t, err)
	assert.Len(t, p3.Results, 3)

	// page 5 (items 12-14) is past the end.
	p5, err := svc.GetPage(context.Background(), res.ResultsID, 5, 3)
	require.NoError(t, err)
	assert.Empty(t, p5.Results)
	assert.Equal(t, 12, p5.Total)
}

func TestGetPageOnUnknownResultsIDIsResultsExpired(t *testing.T) {
	svc := New(&fakeSearchStore{}, cache.NewMemoryStore(), testConfig())
	_, err := svc.GetPage(context.Background(), "never-searched", 1, 10)
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.ResultsExpired))
}

func TestSearchStorageErrorIsStorageKind(t *testing.T) {
	store := &fakeSearchStore{err: assertErr{}}
	svc := New(store, cache.NewMemoryStore(), testConfig())
	_, err := svc.Search(context.Background(), model.SearchQuery{Query: "x"})
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.Storage))
}

func TestInvalidateThenGetPageExpires(t *testing.T) {
	store := &fakeSearchStore{results: makeResults(2), total: 2}
	svc := New(store, cache.NewMemoryStore(), testConfig())

	res, err := svc.Search(context.Background(), model.SearchQuery{Query: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(context.Background(), res.ResultsID))
	_, err = svc.GetPage(context.Background(), res.ResultsID, 1, 10)
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.ResultsExpired))
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
