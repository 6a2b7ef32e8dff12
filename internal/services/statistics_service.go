package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"negotiation-dashboard/backend-go/internal/config"
	"negotiation-dashboard/backend-go/internal/metrics"
	"negotiation-dashboard/backend-go/internal/models"
	"negotiation-dashboard/backend-go/internal/negotiation"
)

const statisticsKeyPrefix = "statistics:v2:"

// serviceSubject scopes entries fetched without a caller token, i.e. with
// the configured service token.
const serviceSubject = "service"

const (
	SourceFresh      = "fresh"
	SourceCache      = "cache"
	SourceStaleCache = "stale_cache"
	SourceError      = "error"
)

// StatisticsFetcher returns the raw analytics document for a vendor.
type StatisticsFetcher interface {
	FetchStatistics(ctx context.Context, vendorID string) (map[string]any, error)
}

type GetOptions struct {
	// Refresh skips cached entries and always asks the backend.
	Refresh bool
}

type statisticsEntry struct {
	FetchedAt string               `json:"fetched_at"`
	Shape     negotiation.Shape    `json:"shape"`
	Data      negotiation.Metadata `json:"data"`
}

type cachedStatistics struct {
	data      negotiation.Metadata
	shape     negotiation.Shape
	fetchedAt time.Time
}

// StatisticsService fetches, normalizes and caches per-vendor negotiation
// metadata. Normalized results live in an in-process memo backed by the
// durable Cache. Every entry is scoped to the caller's bearer token, so one
// caller never sees what was fetched with another caller's credentials.
type StatisticsService struct {
	cfg     config.Config
	cache   Cache
	backend StatisticsFetcher
	logger  *zap.Logger

	mu sync.Mutex
	// memo and refreshing are keyed by the full cache key
	memo       map[string]cachedStatistics
	refreshing map[string]bool
	group      singleflight.Group
}

func NewStatisticsService(cfg config.Config, cache Cache, backend StatisticsFetcher, logger *zap.Logger) *StatisticsService {
	return &StatisticsService{
		cfg:        cfg,
		cache:      cache,
		backend:    backend,
		logger:     logger,
		memo:       make(map[string]cachedStatistics),
		refreshing: make(map[string]bool),
	}
}

// Get returns normalized metadata for vendorID. Entries younger than the
// statistics TTL are served as is; older ones up to the hard TTL are served
// stale while a background refresh runs. A failed fetch falls back to any
// cached entry.
func (s *StatisticsService) Get(ctx context.Context, vendorID string, opts GetOptions) (negotiation.Metadata, models.StatisticsMeta, error) {
	key := statisticsCacheKey(subjectOf(ctx), vendorID)
	cached, ok := s.lookup(ctx, key)
	if ok && !opts.Refresh {
		age := time.Since(cached.fetchedAt)
		if age <= s.cfg.CacheTTLStatistics {
			metrics.StatisticsLookups.WithLabelValues(SourceCache).Inc()
			return cached.data, cachedMeta(cached, SourceCache, ""), nil
		}
		if age <= s.hardTTL() {
			s.refreshAsync(ctx, key, vendorID)
			metrics.StatisticsLookups.WithLabelValues(SourceStaleCache).Inc()
			return cached.data, cachedMeta(cached, SourceStaleCache, ""), nil
		}
	}

	fresh, err := s.fetch(ctx, key, vendorID)
	if err == nil {
		metrics.StatisticsLookups.WithLabelValues(SourceFresh).Inc()
		return fresh.data, cachedMeta(fresh, SourceFresh, ""), nil
	}
	if ok {
		s.logger.Warn("serving stale statistics after fetch failure",
			zap.String("vendor_id", vendorID),
			zap.Error(err),
		)
		metrics.StatisticsLookups.WithLabelValues(SourceStaleCache).Inc()
		return cached.data, cachedMeta(cached, SourceStaleCache, err.Error()), nil
	}
	metrics.StatisticsLookups.WithLabelValues(SourceError).Inc()
	return negotiation.Metadata{}, models.StatisticsMeta{Source: SourceError, Error: err.Error()}, err
}

// Cached returns the caller's in-process entry for vendorID without any I/O.
func (s *StatisticsService) Cached(ctx context.Context, vendorID string) (negotiation.Metadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.memo[statisticsCacheKey(subjectOf(ctx), vendorID)]
	return e.data, ok
}

func (s *StatisticsService) Has(ctx context.Context, vendorID string) bool {
	_, ok := s.Cached(ctx, vendorID)
	return ok
}

// All lists the caller's in-process entries ordered by vendor id.
func (s *StatisticsService) All(ctx context.Context) []negotiation.VendorMetadata {
	prefix := subjectPrefix(subjectOf(ctx))
	s.mu.Lock()
	out := make([]negotiation.VendorMetadata, 0, len(s.memo))
	for key, e := range s.memo {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, negotiation.VendorMetadata{VendorID: strings.TrimPrefix(key, prefix), Data: e.data})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].VendorID < out[j].VendorID })
	return out
}

// Clear drops the caller's entries from the memo and the durable cache.
func (s *StatisticsService) Clear(ctx context.Context) error {
	prefix := subjectPrefix(subjectOf(ctx))
	s.mu.Lock()
	for key := range s.memo {
		if strings.HasPrefix(key, prefix) {
			delete(s.memo, key)
		}
	}
	s.mu.Unlock()

	if s.cache == nil {
		return nil
	}
	keys, err := s.cache.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, keys...)
}

// GetMultiple loads several vendors concurrently. Duplicate ids are fetched
// once. Vendors that cannot be loaded are left out of the result and
// reported in missing; the result keeps the order of first appearance.
func (s *StatisticsService) GetMultiple(ctx context.Context, vendorIDs []string) (items []negotiation.VendorMetadata, missing []string) {
	ids := uniqueIDs(vendorIDs)
	results := make([]*negotiation.Metadata, len(ids))

	p := pool.New().WithMaxGoroutines(s.concurrency())
	for i, id := range ids {
		p.Go(func() {
			data, _, err := s.Get(ctx, id, GetOptions{})
			if err != nil {
				s.logger.Warn("skipping vendor statistics", zap.String("vendor_id", id), zap.Error(err))
				return
			}
			results[i] = &data
		})
	}
	p.Wait()

	items = make([]negotiation.VendorMetadata, 0, len(ids))
	missing = []string{}
	for i, id := range ids {
		if results[i] == nil {
			missing = append(missing, id)
			continue
		}
		items = append(items, negotiation.VendorMetadata{VendorID: id, Data: *results[i]})
	}
	return items, missing
}

// Warm loads every durable entry, for all callers, into the memo and
// reports how many were restored.
func (s *StatisticsService) Warm(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	keys, err := s.cache.Keys(ctx, statisticsKeyPrefix)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, key := range keys {
		if _, ok := s.readDurable(ctx, key); ok {
			n++
		}
	}
	return n, nil
}

// fetch runs one backend fetch per key no matter how many callers ask. The
// shared fetch is detached from any single caller's cancellation; each
// caller stops waiting when its own ctx ends.
func (s *StatisticsService) fetch(ctx context.Context, key, vendorID string) (cachedStatistics, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.requestTimeout())
		defer cancel()

		raw, err := s.backend.FetchStatistics(fetchCtx, vendorID)
		if err != nil {
			return nil, err
		}
		entry := cachedStatistics{
			data:      negotiation.Normalize(raw),
			shape:     negotiation.DetectShape(raw),
			fetchedAt: time.Now().UTC(),
		}
		metrics.Normalizations.WithLabelValues(string(entry.shape)).Inc()
		s.logger.Debug("statistics normalized",
			zap.String("vendor_id", vendorID),
			zap.String("shape", string(entry.shape)),
		)
		s.store(fetchCtx, key, vendorID, entry)
		return entry, nil
	})

	select {
	case <-ctx.Done():
		return cachedStatistics{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return cachedStatistics{}, res.Err
		}
		entry, ok := res.Val.(cachedStatistics)
		if !ok {
			return cachedStatistics{}, errors.New("unexpected statistics result")
		}
		return entry, nil
	}
}

func (s *StatisticsService) refreshAsync(parent context.Context, key, vendorID string) {
	s.mu.Lock()
	if s.refreshing[key] {
		s.mu.Unlock()
		return
	}
	s.refreshing[key] = true
	s.mu.Unlock()

	// keeps the caller's bearer token but not its deadline
	ctx := context.WithoutCancel(parent)
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.refreshing, key)
			s.mu.Unlock()
		}()

		if _, err := s.fetch(ctx, key, vendorID); err != nil {
			s.logger.Warn("background statistics refresh failed", zap.String("vendor_id", vendorID), zap.Error(err))
		}
	}()
}

func (s *StatisticsService) lookup(ctx context.Context, key string) (cachedStatistics, bool) {
	s.mu.Lock()
	e, ok := s.memo[key]
	s.mu.Unlock()
	if ok {
		return e, true
	}
	return s.readDurable(ctx, key)
}

func (s *StatisticsService) readDurable(ctx context.Context, key string) (cachedStatistics, bool) {
	if s.cache == nil {
		return cachedStatistics{}, false
	}
	b, ok := s.cache.Get(ctx, key)
	if !ok {
		return cachedStatistics{}, false
	}
	var stored statisticsEntry
	if err := UnmarshalCache(b, &stored); err != nil {
		s.logger.Warn("discarding unreadable statistics entry", zap.String("key", key), zap.Error(err))
		return cachedStatistics{}, false
	}
	fetchedAt, err := time.Parse(time.RFC3339, stored.FetchedAt)
	if err != nil {
		return cachedStatistics{}, false
	}
	e := cachedStatistics{data: stored.Data, shape: stored.Shape, fetchedAt: fetchedAt}

	s.mu.Lock()
	s.memo[key] = e
	s.mu.Unlock()
	return e, true
}

func (s *StatisticsService) store(ctx context.Context, key, vendorID string, e cachedStatistics) {
	s.mu.Lock()
	s.memo[key] = e
	s.mu.Unlock()

	if s.cache == nil {
		return
	}
	b, err := MarshalCache(statisticsEntry{
		FetchedAt: e.fetchedAt.Format(time.RFC3339),
		Shape:     e.shape,
		Data:      e.data,
	})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b, s.hardTTL()); err != nil {
		s.logger.Warn("statistics cache write failed", zap.String("vendor_id", vendorID), zap.Error(err))
	}
}

func (s *StatisticsService) hardTTL() time.Duration {
	if s.cfg.CacheTTLStatisticsHard < s.cfg.CacheTTLStatistics {
		return s.cfg.CacheTTLStatistics
	}
	return s.cfg.CacheTTLStatisticsHard
}

func (s *StatisticsService) requestTimeout() time.Duration {
	if s.cfg.StatisticsTimeout > 0 {
		return s.cfg.StatisticsTimeout
	}
	return s.cfg.RequestTimeout
}

func (s *StatisticsService) concurrency() int {
	if s.cfg.CompareConcurrency > 0 {
		return s.cfg.CompareConcurrency
	}
	return 1
}

func cachedMeta(e cachedStatistics, source, errMsg string) models.StatisticsMeta {
	return models.StatisticsMeta{
		Source:    source,
		Stale:     source == SourceStaleCache,
		Error:     errMsg,
		FetchedAt: e.fetchedAt.UTC().Format(time.RFC3339),
		Shape:     e.shape,
	}
}

// subjectOf derives the cache scope from the caller's bearer token. The
// token itself never reaches a cache key.
func subjectOf(ctx context.Context) string {
	token := bearerToken(ctx)
	if token == "" {
		return serviceSubject
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

func subjectPrefix(subject string) string {
	return statisticsKeyPrefix + subject + ":"
}

func statisticsCacheKey(subject, vendorID string) string {
	return subjectPrefix(subject) + vendorID
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
