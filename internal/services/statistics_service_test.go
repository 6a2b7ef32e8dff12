package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"negotiation-dashboard/backend-go/internal/config"
	"negotiation-dashboard/backend-go/internal/negotiation"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	docs    map[string]map[string]any
	fail    map[string]error
	release chan struct{}
	tokens  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls: map[string]int{},
		docs:  map[string]map[string]any{},
		fail:  map[string]error{},
	}
}

func (f *fakeFetcher) FetchStatistics(ctx context.Context, vendorID string) (map[string]any, error) {
	f.mu.Lock()
	f.calls[vendorID]++
	f.tokens = append(f.tokens, bearerToken(ctx))
	release := f.release
	err := f.fail[vendorID]
	doc := f.docs[vendorID]
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func (f *fakeFetcher) count(vendorID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[vendorID]
}

func (f *fakeFetcher) setFailure(vendorID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[vendorID] = err
}

func statisticsDoc(product string, health float64) map[string]any {
	return map[string]any{
		"phase_1": map[string]any{
			"CommercialContext": map[string]any{"product_or_service_name": product},
		},
		"phase_2": map[string]any{
			"NegotationStatus": map[string]any{"overall_deal_health_score": health},
		},
	}
}

func testStatisticsConfig() config.Config {
	return config.Config{
		CacheTTLStatistics:     time.Minute,
		CacheTTLStatisticsHard: time.Hour,
		RequestTimeout:         time.Second,
		StatisticsTimeout:      time.Second,
		CompareConcurrency:     2,
	}
}

func newTestStatisticsService(t *testing.T, cache Cache, f *fakeFetcher) *StatisticsService {
	t.Helper()
	return NewStatisticsService(testStatisticsConfig(), cache, f, zaptest.NewLogger(t))
}

func TestGetServesSecondCallFromCache(t *testing.T) {
	f := newFakeFetcher()
	f.docs["v-1"] = statisticsDoc("Laptops", 72)
	svc := newTestStatisticsService(t, NewMemoryCache(), f)
	ctx := context.Background()

	data, meta, err := svc.Get(ctx, "v-1", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Laptops", data.ProductName)
	assert.Equal(t, 72, data.OverallDealHealthScore)
	assert.Equal(t, SourceFresh, meta.Source)
	assert.Equal(t, negotiation.ShapePhase, meta.Shape)
	assert.NotEmpty(t, meta.FetchedAt)

	data, meta, err = svc.Get(ctx, "v-1", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Laptops", data.ProductName)
	assert.Equal(t, SourceCache, meta.Source)
	assert.False(t, meta.Stale)
	assert.Equal(t, 1, f.count("v-1"))
}

func TestGetRefreshBypassesCache(t *testing.T) {
	f := newFakeFetcher()
	svc := newTestStatisticsService(t, NewMemoryCache(), f)
	ctx := context.Background()

	_, _, err := svc.Get(ctx, "v-1", GetOptions{})
	require.NoError(t, err)
	_, meta, err := svc.Get(ctx, "v-1", GetOptions{Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, SourceFresh, meta.Source)
	assert.Equal(t, 2, f.count("v-1"))
}

func TestGetFallsBackToStaleEntryOnFailure(t *testing.T) {
	f := newFakeFetcher()
	svc := newTestStatisticsService(t, nil, f)
	svc.memo[statisticsCacheKey(serviceSubject, "v-1")] = cachedStatistics{
		data:      negotiation.Normalize(statisticsDoc("Servers", 40)),
		shape:     negotiation.ShapePhase,
		fetchedAt: time.Now().Add(-48 * time.Hour),
	}
	f.setFailure("v-1", errors.New("backend down"))

	data, meta, err := svc.Get(context.Background(), "v-1", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Servers", data.ProductName)
	assert.Equal(t, SourceStaleCache, meta.Source)
	assert.True(t, meta.Stale)
	assert.Equal(t, "backend down", meta.Error)
	assert.Equal(t, 1, f.count("v-1"))
}

func TestGetReturnsErrorWithoutCachedEntry(t *testing.T) {
	f := newFakeFetcher()
	f.setFailure("v-1", errors.New("backend down"))
	svc := newTestStatisticsService(t, NewMemoryCache(), f)

	_, meta, err := svc.Get(context.Background(), "v-1", GetOptions{})
	require.Error(t, err)
	assert.Equal(t, SourceError, meta.Source)
	assert.False(t, svc.Has(context.Background(), "v-1"))
}

func TestGetServesStaleAndRefreshesInBackground(t *testing.T) {
	f := newFakeFetcher()
	f.docs["v-1"] = statisticsDoc("Fresh Product", 90)
	svc := newTestStatisticsService(t, NewMemoryCache(), f)
	ctx := WithBearerToken(context.Background(), "user-token")
	svc.memo[statisticsCacheKey(subjectOf(ctx), "v-1")] = cachedStatistics{
		data:      negotiation.Normalize(statisticsDoc("Old Product", 30)),
		shape:     negotiation.ShapePhase,
		fetchedAt: time.Now().Add(-10 * time.Minute),
	}

	data, meta, err := svc.Get(ctx, "v-1", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Old Product", data.ProductName)
	assert.Equal(t, SourceStaleCache, meta.Source)

	assert.Eventually(t, func() bool {
		cached, ok := svc.Cached(ctx, "v-1")
		return ok && cached.ProductName == "Fresh Product"
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, f.count("v-1"))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []string{"user-token"}, f.tokens)
}

func TestConcurrentGetsFetchOnce(t *testing.T) {
	f := newFakeFetcher()
	f.release = make(chan struct{})
	svc := newTestStatisticsService(t, NewMemoryCache(), f)

	var wg sync.WaitGroup
	var failures int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := svc.Get(context.Background(), "v-1", GetOptions{}); err != nil {
				atomic.AddInt32(&failures, 1)
			}
		}()
	}

	require.Eventually(t, func() bool { return f.count("v-1") == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(f.release)
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&failures))
	assert.Equal(t, 1, f.count("v-1"))
}

func TestCanceledCallerDoesNotFailSharedFetch(t *testing.T) {
	f := newFakeFetcher()
	f.docs["v-1"] = statisticsDoc("Shared", 60)
	f.release = make(chan struct{})
	svc := newTestStatisticsService(t, NewMemoryCache(), f)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, _, err := svc.Get(ctxA, "v-1", GetOptions{})
		errA <- err
	}()
	require.Eventually(t, func() bool { return f.count("v-1") == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		product string
		err     error
	}
	resB := make(chan result, 1)
	go func() {
		data, _, err := svc.Get(context.Background(), "v-1", GetOptions{})
		resB <- result{product: data.ProductName, err: err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(f.release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "Shared", b.product)
	assert.Equal(t, 1, f.count("v-1"))
	assert.True(t, svc.Has(context.Background(), "v-1"))
}

func TestEntriesAreScopedToCallerToken(t *testing.T) {
	f := newFakeFetcher()
	f.docs["v-1"] = statisticsDoc("Private", 75)
	svc := newTestStatisticsService(t, NewMemoryCache(), f)
	userA := WithBearerToken(context.Background(), "user-a")
	userB := WithBearerToken(context.Background(), "user-b")

	_, _, err := svc.Get(userA, "v-1", GetOptions{})
	require.NoError(t, err)
	assert.True(t, svc.Has(userA, "v-1"))
	assert.False(t, svc.Has(userB, "v-1"))
	assert.False(t, svc.Has(context.Background(), "v-1"))
	assert.Empty(t, svc.All(userB))
	require.Len(t, svc.All(userA), 1)

	_, meta, err := svc.Get(userB, "v-1", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, SourceFresh, meta.Source)
	assert.Equal(t, 2, f.count("v-1"))

	require.NoError(t, svc.Clear(userB))
	assert.False(t, svc.Has(userB, "v-1"))
	assert.True(t, svc.Has(userA, "v-1"))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []string{"user-a", "user-b"}, f.tokens)
}

func TestSubjectNeverContainsToken(t *testing.T) {
	ctx := WithBearerToken(context.Background(), "secret-token")
	key := statisticsCacheKey(subjectOf(ctx), "v-1")
	assert.NotContains(t, key, "secret-token")
	assert.NotEqual(t, subjectOf(ctx), subjectOf(WithBearerToken(context.Background(), "other-token")))
	assert.Equal(t, serviceSubject, subjectOf(context.Background()))
}

func TestGetMultipleSkipsFailures(t *testing.T) {
	f := newFakeFetcher()
	f.docs["a"] = statisticsDoc("A", 50)
	f.docs["c"] = statisticsDoc("C", 80)
	f.setFailure("b", errors.New("not compiled yet"))
	svc := newTestStatisticsService(t, NewMemoryCache(), f)

	items, missing := svc.GetMultiple(context.Background(), []string{"c", "b", "a", "c", " "})
	require.Len(t, items, 2)
	assert.Equal(t, "c", items[0].VendorID)
	assert.Equal(t, "C", items[0].Data.ProductName)
	assert.Equal(t, "a", items[1].VendorID)
	assert.Equal(t, []string{"b"}, missing)
	assert.Equal(t, 1, f.count("c"))
}

func TestWarmRestoresDurableEntries(t *testing.T) {
	cache := NewMemoryCache()
	f := newFakeFetcher()
	f.docs["v-2"] = statisticsDoc("Two", 60)
	f.docs["v-1"] = statisticsDoc("One", 70)
	first := newTestStatisticsService(t, cache, f)
	ctx := context.Background()
	_, _, err := first.Get(ctx, "v-2", GetOptions{})
	require.NoError(t, err)
	_, _, err = first.Get(ctx, "v-1", GetOptions{})
	require.NoError(t, err)

	second := newTestStatisticsService(t, cache, newFakeFetcher())
	assert.False(t, second.Has(context.Background(), "v-1"))

	n, err := second.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all := second.All(ctx)
	require.Len(t, all, 2)
	assert.Equal(t, "v-1", all[0].VendorID)
	assert.Equal(t, "One", all[0].Data.ProductName)
	assert.Equal(t, "v-2", all[1].VendorID)

	_, meta, err := second.Get(ctx, "v-1", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, meta.Source)
	assert.Equal(t, negotiation.ShapePhase, meta.Shape)
}

func TestWarmFromRedis(t *testing.T) {
	cache, _ := newTestRedisCache(t)
	f := newFakeFetcher()
	f.docs["v-1"] = map[string]any{"Summary": map[string]any{"summary": "flat doc"}}
	ctx := context.Background()

	_, _, err := newTestStatisticsService(t, cache, f).Get(ctx, "v-1", GetOptions{})
	require.NoError(t, err)

	svc := newTestStatisticsService(t, cache, newFakeFetcher())
	n, err := svc.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, ok := svc.Cached(context.Background(), "v-1")
	require.True(t, ok)
	assert.Equal(t, "flat doc", data.Summary)
}

func TestClear(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "unrelated", []byte("x"), 0))
	svc := newTestStatisticsService(t, cache, newFakeFetcher())
	_, _, err := svc.Get(ctx, "v-1", GetOptions{})
	require.NoError(t, err)
	require.True(t, svc.Has(context.Background(), "v-1"))

	require.NoError(t, svc.Clear(ctx))
	assert.False(t, svc.Has(context.Background(), "v-1"))
	assert.Empty(t, svc.All(ctx))

	keys, err := cache.Keys(ctx, statisticsKeyPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys)
	_, ok := cache.Get(ctx, "unrelated")
	assert.True(t, ok)
}

func TestHardTTLNeverBelowSoftTTL(t *testing.T) {
	svc := &StatisticsService{cfg: config.Config{CacheTTLStatistics: time.Minute, CacheTTLStatisticsHard: time.Second}}
	assert.Equal(t, time.Minute, svc.hardTTL())

	svc = &StatisticsService{cfg: config.Config{RequestTimeout: 12 * time.Second}}
	assert.Equal(t, 12*time.Second, svc.requestTimeout())
}
