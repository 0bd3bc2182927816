package dash

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreator_CachedManifestIsReturnedWithoutProbing(t *testing.T) {
	d := &fakeDownloader{handle: respond(http.StatusOK, nil, otfBody)}
	cache := newMapCache()
	rec := &recordingRecorder{}
	c := NewCreator(d, cache, WithRecorder(rec))

	first, err := c.FromOTFStreamingURL(context.Background(), otfURL, videoItem(), 0)
	require.NoError(t, err)
	second, err := c.FromOTFStreamingURL(context.Background(), otfURL, videoItem(), 0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), d.calls.Load())
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
	assert.Equal(t, []int{http.StatusOK}, rec.probes)
	assert.Equal(t, []string{"otf"}, rec.created)

	cached, ok := cache.Get(otfURL)
	require.True(t, ok)
	assert.Equal(t, first, cached)
}

func TestCreator_CacheIsSharedAcrossDeliveryTypes(t *testing.T) {
	cache := newMapCache()
	cache.Put(progressiveURL, "<MPD>cached</MPD>")
	d := &fakeDownloader{handle: respond(http.StatusOK, nil, otfBody)}
	c := NewCreator(d, cache)

	// The cache is keyed by URL alone, so a hit is returned whatever the delivery type.
	got, err := c.FromOTFStreamingURL(context.Background(), progressiveURL, videoItem(), 0)
	require.NoError(t, err)
	assert.Equal(t, "<MPD>cached</MPD>", got)
	assert.Zero(t, d.calls.Load())
}

func TestCreator_FailureIsNotCached(t *testing.T) {
	status := http.StatusServiceUnavailable
	var mu sync.Mutex
	d := &fakeDownloader{handle: func(req *OriginRequest) (*OriginResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		return respond(status, nil, otfBody)(req)
	}}
	cache := newMapCache()
	c := NewCreator(d, cache)

	_, err := c.FromOTFStreamingURL(context.Background(), otfURL, videoItem(), 0)
	require.Error(t, err)
	assert.False(t, cache.ContainsKey(otfURL))

	mu.Lock()
	status = http.StatusOK
	mu.Unlock()

	_, err = c.FromOTFStreamingURL(context.Background(), otfURL, videoItem(), 0)
	require.NoError(t, err)
	assert.True(t, cache.ContainsKey(otfURL))
	assert.Equal(t, int32(2), d.calls.Load())
}

// countingCache counts lookups so tests can tell when every caller has missed.
type countingCache struct {
	*mapCache
	gets atomic.Int32
}

func (c *countingCache) Get(key string) (string, bool) {
	c.gets.Add(1)
	return c.mapCache.Get(key)
}

func TestCreator_CoalescesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	d := &fakeDownloader{handle: func(req *OriginRequest) (*OriginResponse, error) {
		<-release
		return respond(http.StatusOK, nil, otfBody)(req)
	}}
	cache := &countingCache{mapCache: newMapCache()}
	c := NewCreator(d, cache)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.FromOTFStreamingURL(context.Background(), otfURL, videoItem(), 0)
		}(i)
	}

	// Every caller has missed and the first probe is blocked; the rest join it.
	require.Eventually(t, func() bool {
		return cache.gets.Load() == callers && d.calls.Load() == 1
	}, 5*time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
	assert.Equal(t, int32(1), d.calls.Load())
}

// blockingDownloader holds every request until release is closed or the request context ends.
type blockingDownloader struct {
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingDownloader) Do(ctx context.Context, req *OriginRequest) (*OriginResponse, error) {
	b.calls.Add(1)
	select {
	case <-b.release:
		return respond(http.StatusOK, nil, otfBody)(req)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCreator_CancelledCallerDoesNotFailOthers(t *testing.T) {
	d := &blockingDownloader{release: make(chan struct{})}
	cache := &countingCache{mapCache: newMapCache()}
	c := NewCreator(d, cache)

	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.FromOTFStreamingURL(firstCtx, otfURL, videoItem(), 0)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return d.calls.Load() == 1 }, 5*time.Second, time.Millisecond)

	type result struct {
		manifest string
		err      error
	}
	second := make(chan result, 1)
	go func() {
		manifest, err := c.FromOTFStreamingURL(context.Background(), otfURL, videoItem(), 0)
		second <- result{manifest, err}
	}()
	require.Eventually(t, func() bool { return cache.gets.Load() == 2 }, 5*time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	cancel()
	err := <-firstErr
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	close(d.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Contains(t, res.manifest, `<S d="1000" r="2">`)
	assert.Equal(t, int32(1), d.calls.Load())
	assert.True(t, cache.ContainsKey(otfURL))
}

func TestCreator_Create(t *testing.T) {
	d := &fakeDownloader{handle: func(req *OriginRequest) (*OriginResponse, error) {
		if req.URL == dvrURL+"&sq=0&rn=0&alr=yes" {
			return respond(http.StatusOK, dvrHeaders("60000", "9"), "")(req)
		}
		return respond(http.StatusOK, nil, otfBody)(req)
	}}
	c := NewCreator(d, newMapCache())

	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "progressive",
			req:  Request{DeliveryType: Progressive, URL: progressiveURL, Itag: progressiveItem()},
			want: "<SegmentBase",
		},
		{
			name: "otf",
			req:  Request{DeliveryType: OTF, URL: otfURL, Itag: videoItem()},
			want: `<S d="1000" r="2">`,
		},
		{
			name: "live",
			req:  Request{DeliveryType: Live, URL: dvrURL, Itag: audioItem(), TargetDurationSeconds: 5},
			want: `<S d="5000" r="9">`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manifest, err := c.Create(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Contains(t, manifest, tt.want)
		})
	}

	_, err := c.Create(context.Background(), Request{DeliveryType: DeliveryType(9), URL: otfURL})
	assert.True(t, IsKind(err, KindPrecondition))
}
