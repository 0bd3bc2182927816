package dash

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dvrURL = "https://rr2---sn-abc.googlevideo.com/videoplayback?itag=140&live=1&c=IOS"

func dvrHeaders(elapsed, seqnum string) http.Header {
	h := http.Header{}
	if elapsed != "" {
		h.Set("X-Head-Time-Millis", elapsed)
	}
	if seqnum != "" {
		h.Set("X-Head-Seqnum", seqnum)
	}
	return h
}

func TestFromPostLiveStreamDVRStreamingURL(t *testing.T) {
	d := &fakeDownloader{handle: respond(http.StatusOK, dvrHeaders("720000", "120"), "")}
	c := NewCreator(d, newMapCache())

	manifest, err := c.FromPostLiveStreamDVRStreamingURL(context.Background(), dvrURL, audioItem(), 6, 0)
	require.NoError(t, err)

	assert.Contains(t, manifest, `mediaPresentationDuration="PT12M"`)
	assert.Contains(t, manifest, `<SegmentTemplate startNumber="0" timescale="1000" media="`)
	assert.NotContains(t, manifest, "initialization=")
	assert.Contains(t, manifest, `<SegmentTimeline><S d="6000" r="120"></S></SegmentTimeline>`)

	req := d.lastRequest()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, iosUserAgent, req.Header.Get("User-Agent"))
}

func TestFromPostLiveStreamDVRStreamingURL_InvalidTargetDuration(t *testing.T) {
	for _, target := range []int{0, -6} {
		d := &fakeDownloader{handle: respond(http.StatusOK, dvrHeaders("720000", "120"), "")}
		cache := newMapCache()
		rec := &recordingRecorder{}
		c := NewCreator(d, cache, WithRecorder(rec))

		_, err := c.FromPostLiveStreamDVRStreamingURL(context.Background(), dvrURL, audioItem(), target, 0)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindPrecondition))
		assert.Zero(t, d.calls.Load(), "no probe is sent for an invalid target duration")
		assert.Zero(t, rec.hits+rec.misses, "the cache is not consulted")
		assert.Equal(t, []string{"live/precondition"}, rec.failures)
	}
}

func TestFromPostLiveStreamDVRStreamingURL_ElapsedFallback(t *testing.T) {
	// An unparsable elapsed time falls back to durationSecondsFallback without unit conversion.
	d := &fakeDownloader{handle: respond(http.StatusOK, dvrHeaders("n/a", "10"), "")}
	c := NewCreator(d, newMapCache())

	manifest, err := c.FromPostLiveStreamDVRStreamingURL(context.Background(), dvrURL, audioItem(), 5, 60)
	require.NoError(t, err)
	assert.Contains(t, manifest, `mediaPresentationDuration="PT0.06S"`)
	assert.Contains(t, manifest, `<S d="5000" r="10"></S>`)
}

func TestFromPostLiveStreamDVRStreamingURL_ZeroSegments(t *testing.T) {
	d := &fakeDownloader{handle: respond(http.StatusOK, dvrHeaders("1000", "0"), "")}
	c := NewCreator(d, newMapCache())

	manifest, err := c.FromPostLiveStreamDVRStreamingURL(context.Background(), dvrURL, audioItem(), 2, 0)
	require.NoError(t, err)
	assert.Contains(t, manifest, `<SegmentTimeline><S d="2000"></S></SegmentTimeline>`)
}

func TestFromPostLiveStreamDVRStreamingURL_ProbeFailures(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		kind   Kind
	}{
		{"missing seqnum", dvrHeaders("1000", ""), KindProbe},
		{"missing head time", dvrHeaders("", "5"), KindProbe},
		{"invalid seqnum", dvrHeaders("1000", "many"), KindProbe},
		{"negative seqnum", dvrHeaders("1000", "-1"), KindProbe},
		{"elapsed unusable and no fallback", dvrHeaders("later", "5"), KindDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMapCache()
			c := NewCreator(&fakeDownloader{handle: respond(http.StatusOK, tt.header, "")}, cache)

			_, err := c.FromPostLiveStreamDVRStreamingURL(context.Background(), dvrURL, audioItem(), 2, 0)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.False(t, cache.ContainsKey(dvrURL))
		})
	}
}

func TestFromPostLiveStreamDVRStreamingURL_NotFound(t *testing.T) {
	c := NewCreator(&fakeDownloader{handle: respond(http.StatusNotFound, nil, "")}, newMapCache())

	_, err := c.FromPostLiveStreamDVRStreamingURL(context.Background(), dvrURL, audioItem(), 2, 0)
	var ce *CreationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusNotFound, ce.StatusCode)
	assert.Contains(t, ce.Error(), "response code 404")
}
