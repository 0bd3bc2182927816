package dash

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"ytdash/internal/itag"
	"ytdash/internal/logger"
)

// Cache memoizes generated manifests by their original streaming URL.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) (string, bool)
	Put(key, value string)
	ContainsKey(key string) bool
}

// Recorder receives synthesis events, typically to export them as metrics.
type Recorder interface {
	CacheLookup(hit bool)
	Probe(deliveryType string, statusCode int)
	ManifestCreated(deliveryType string, elapsed time.Duration)
	ManifestFailed(deliveryType, kind string)
}

type nopRecorder struct{}

func (nopRecorder) CacheLookup(bool)                      {}
func (nopRecorder) Probe(string, int)                     {}
func (nopRecorder) ManifestCreated(string, time.Duration) {}
func (nopRecorder) ManifestFailed(string, string)         {}

// Request is a delivery-type tagged synthesis request.
type Request struct {
	DeliveryType            DeliveryType `json:"deliveryType"`
	URL                     string       `json:"url"`
	Itag                    itag.Item    `json:"itag"`
	DurationSecondsFallback int64        `json:"durationSecondsFallback"`
	// TargetDurationSeconds is required for Live only.
	TargetDurationSeconds int `json:"targetDurationSeconds,omitempty"`
}

// Creator synthesizes DASH manifests for YouTube streams that are not delivered with one.
// It is safe for concurrent use; the cache is its only shared state.
type Creator struct {
	downloader Downloader
	cache      Cache
	logger     logger.Logger
	recorder   Recorder
	tracer     trace.Tracer

	// group coalesces concurrent misses for the same stream.
	group singleflight.Group
}

// Option configures a Creator.
type Option func(*Creator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(c *Creator) { c.logger = l }
}

// WithRecorder sets the event recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Creator) { c.recorder = r }
}

// WithTracer sets the tracer used for synthesis spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Creator) { c.tracer = t }
}

// NewCreator creates a Creator probing through d and memoizing into cache.
func NewCreator(d Downloader, cache Cache, opts ...Option) *Creator {
	c := &Creator{
		downloader: d,
		cache:      cache,
		logger:     logger.Nop(),
		recorder:   nopRecorder{},
		tracer:     otel.Tracer("ytdash/internal/dash"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create dispatches the request to the strategy matching its delivery type.
func (c *Creator) Create(ctx context.Context, req Request) (string, error) {
	switch req.DeliveryType {
	case Progressive:
		return c.FromProgressiveStreamingURL(ctx, req.URL, req.Itag, req.DurationSecondsFallback)
	case OTF:
		return c.FromOTFStreamingURL(ctx, req.URL, req.Itag, req.DurationSecondsFallback)
	case Live:
		return c.FromPostLiveStreamDVRStreamingURL(ctx, req.URL, req.Itag, req.TargetDurationSeconds, req.DurationSecondsFallback)
	default:
		return "", preconditionError(fmt.Sprintf("unsupported delivery type %s", req.DeliveryType))
	}
}

// synthesize runs the shared cache-build-store flow. build produces the complete manifest text
// or an error; nothing is cached unless it succeeds.
func (c *Creator) synthesize(ctx context.Context, deliveryType DeliveryType, key string, item itag.Item, build func(context.Context) (string, error)) (string, error) {
	if manifest, ok := c.cache.Get(key); ok {
		c.recorder.CacheLookup(true)
		c.logger.Debugf("Manifest cache hit for %s itag %d", deliveryType, item.ID)
		return manifest, nil
	}
	c.recorder.CacheLookup(false)

	ctx, span := c.tracer.Start(ctx, "dash.create", trace.WithAttributes(
		attribute.String("dash.delivery_type", deliveryType.String()),
		attribute.Int("dash.itag", item.ID),
	))
	defer span.End()

	start := time.Now()
	// The shared build outlives any single caller; each caller stops waiting on its own context.
	buildCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(deliveryType.String()+"|"+key, func() (interface{}, error) {
		manifest, err := build(buildCtx)
		if err != nil {
			return "", err
		}
		c.cache.Put(key, manifest)
		return manifest, nil
	})

	var (
		v      interface{}
		err    error
		shared bool
	)
	select {
	case res := <-ch:
		v, err, shared = res.Val, res.Err, res.Shared
	case <-ctx.Done():
		err = probeError("stopped waiting for the manifest", ctx.Err())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.recorder.ManifestFailed(deliveryType.String(), KindOf(err).String())
		c.logger.Warnf("Could not create %s manifest for itag %d: %v", deliveryType, item.ID, err)
		return "", err
	}

	span.SetAttributes(attribute.Bool("dash.shared", shared))
	c.recorder.ManifestCreated(deliveryType.String(), time.Since(start))
	c.logger.Debugf("Created %s manifest for itag %d in %s", deliveryType, item.ID, time.Since(start))
	return v.(string), nil
}
