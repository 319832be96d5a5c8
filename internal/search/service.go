// Package search implements C4, the search & pagination service: it runs a
// corpus search through the Storage Adapter, snapshots the result set into
// the chunked cache, and serves pages back out of that snapshot (§4.4).
package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Atlogit/atlomy/internal/cache"
	"github.com/Atlogit/atlomy/internal/config"
	"github.com/Atlogit/atlomy/internal/errkind"
	"github.com/Atlogit/atlomy/internal/model"
	"github.com/Atlogit/atlomy/internal/observability"
	"github.com/Atlogit/atlomy/internal/persistence"
	"github.com/Atlogit/atlomy/internal/retry"
)

// Service implements search/get_page/invalidate.
type Service struct {
	store persistence.SearchStore
	cache cache.Store
	cfg   config.SearchConfig
}

// New builds a Service over the given Storage Adapter and cache.
func New(store persistence.SearchStore, c cache.Store, cfg config.SearchConfig) *Service {
	return &Service{store: store, cache: c, cfg: cfg}
}

// SearchResult is the search(query, opts) response: a fresh snapshot and its
// first page.
type SearchResult struct {
	ResultsID string
	FirstPage []model.Result
	Total     int
}

// PageResult is the get_page(results_id, page, page_size) response.
type PageResult struct {
	Results    []model.Result
	Page       int
	PageSize   int
	Total      int
}

// Search executes q against the Storage Adapter, assigns a fresh results_id,
// snapshots the full result set into the cache in CHUNK_SIZE chunks, and
// returns the first page. Every call yields a distinct results_id even for
// an identical query, matching §4.4's "do not share caches" concurrency
// guarantee. A cache write failure degrades gracefully: the first page is
// still returned and total is still set, but later get_page calls against
// this results_id will fail with ErrorKind.ResultsExpired.
func (s *Service) Search(ctx context.Context, q model.SearchQuery) (SearchResult, error) {
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	ttl := time.Duration(q.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	results, total, err := s.store.SearchSentences(ctx, q)
	if err != nil {
		return SearchResult{}, errkind.Wrap(errkind.Storage, err, "search sentences")
	}

	resultsID := uuid.NewString()
	log := observability.LoggerWithTrace(ctx)

	if err := s.snapshot(ctx, resultsID, results, total, pageSize, ttl); err != nil {
		log.Warn().Err(err).Str("results_id", resultsID).Msg("search_cache_write_degraded")
	}

	firstPage := page(results, 1, pageSize)
	return SearchResult{ResultsID: resultsID, FirstPage: firstPage, Total: total}, nil
}

// snapshot writes the metadata record and every CHUNK_SIZE-sized chunk of
// results to the cache, each write wrapped in a bounded retry per §7 (up to
// three attempts by retry's defaults); the single empty chunk written for a
// zero-result search is not retried. Cache write failures are non-fatal to
// the caller.
func (s *Service) snapshot(ctx context.Context, resultsID string, results []model.Result, total, pageSize int, ttl time.Duration) error {
	meta := cache.Meta{
		Total:        total,
		PageSizeHint: pageSize,
		CreatedAt:    time.Now().UTC(),
		TTLSeconds:   int(ttl / time.Second),
	}
	if err := retry.Do(ctx, retry.Options{}, retryableCache, func(ctx context.Context) error {
		return s.cache.PutMeta(ctx, s.cfg.CachePrefix, resultsID, meta, ttl)
	}); err != nil {
		return err
	}

	chunkSize := s.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	for k := 0; k*chunkSize < len(results); k++ {
		start := k * chunkSize
		end := start + chunkSize
		if end > len(results) {
			end = len(results)
		}
		raw, err := json.Marshal(results[start:end])
		if err != nil {
			return errkind.Wrap(errkind.Cache, err, "marshal chunk")
		}
		if err := retry.Do(ctx, retry.Options{}, retryableCache, func(ctx context.Context) error {
			return s.cache.PutChunk(ctx, s.cfg.CachePrefix, resultsID, k, raw, ttl)
		}); err != nil {
			return err
		}
	}
	if len(results) == 0 {
		raw, _ := json.Marshal([]model.Result{})
		if err := s.cache.PutChunk(ctx, s.cfg.CachePrefix, resultsID, 0, raw, ttl); err != nil {
			return err
		}
	}
	return nil
}

// GetPage returns page (1-based) of results_id's cached snapshot. The
// requested page is satisfied by reading one or two consecutive chunks per
// §4.4's chunk math. ErrorKind.ResultsExpired is returned when results_id
// has no metadata record (never written, evicted, or expired).
func (s *Service) GetPage(ctx context.Context, resultsID string, page_, pageSize int) (PageResult, error) {
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	if page_ <= 0 {
		page_ = 1
	}

	var meta cache.Meta
	var ok bool
	err := retry.Do(ctx, retry.Options{}, retryableCache, func(ctx context.Context) error {
		var getErr error
		meta, ok, getErr = s.cache.GetMeta(ctx, s.cfg.CachePrefix, resultsID)
		return getErr
	})
	if err != nil {
		return PageResult{}, errkind.Wrap(errkind.Cache, err, "get meta")
	}
	if !ok {
		return PageResult{}, errkind.New(errkind.ResultsExpired, "results_id not found in cache")
	}

	chunkSize := s.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	startIndex := (page_ - 1) * pageSize
	chunkIndex := startIndex / chunkSize
	offset := startIndex % chunkSize

	all, err := s.readChunk(ctx, resultsID, chunkIndex)
	if err != nil {
		return PageResult{}, err
	}
	if offset+pageSize > len(all) {
		next, err := s.readChunk(ctx, resultsID, chunkIndex+1)
		if err != nil && !errkind.Is(err, errkind.ResultsExpired) {
			return PageResult{}, err
		}
		all = append(all, next...)
	}

	results := sliceAt(all, offset, pageSize)
	return PageResult{Results: results, Page: page_, PageSize: pageSize, Total: meta.Total}, nil
}

// sliceAt returns up to count results starting at offset within all,
// clamped to all's bounds.
func sliceAt(all []model.Result, offset, count int) []model.Result {
	if offset < 0 || offset >= len(all) {
		return nil
	}
	end := offset + count
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func (s *Service) readChunk(ctx context.Context, resultsID string, k int) ([]model.Result, error) {
	var raw json.RawMessage
	var ok bool
	err := retry.Do(ctx, retry.Options{}, retryableCache, func(ctx context.Context) error {
		var getErr error
		raw, ok, getErr = s.cache.GetChunk(ctx, s.cfg.CachePrefix, resultsID, k)
		return getErr
	})
	if err != nil {
		return nil, errkind.Wrap(errkind.Cache, err, "get chunk")
	}
	if !ok {
		return nil, errkind.New(errkind.ResultsExpired, "chunk missing or expired")
	}
	var results []model.Result
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, errkind.Wrap(errkind.Cache, err, "unmarshal chunk")
	}
	return results, nil
}

// Invalidate is the optional eviction hook.
func (s *Service) Invalidate(ctx context.Context, resultsID string) error {
	if err := s.cache.Invalidate(ctx, s.cfg.CachePrefix, resultsID); err != nil {
		return errkind.Wrap(errkind.Cache, err, "invalidate")
	}
	return nil
}

func retryableCache(err error) bool {
	return errkind.Is(err, errkind.Transient) || errkind.Is(err, errkind.Cache)
}

func page(results []model.Result, page_, pageSize int) []model.Result {
	start := (page_ - 1) * pageSize
	if start < 0 || start >= len(results) {
		return nil
	}
	end := start + pageSize
	if end > len(results) {
		end = len(results)
	}
	return results[start:end]
}
