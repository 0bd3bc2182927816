package dash

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"ytdash/internal/itag"
)

// FromPostLiveStreamDVRStreamingURL synthesizes a SegmentTemplate manifest for an ended
// livestream still served from its DVR window.
//
// The origin does not expose per-segment durations for these streams, so the timeline is a
// single run of targetDurationSec-long segments repeated X-Head-Seqnum times.
func (c *Creator) FromPostLiveStreamDVRStreamingURL(ctx context.Context, dvrURL string, item itag.Item, targetDurationSec int, durationSecondsFallback int64) (string, error) {
	if targetDurationSec <= 0 {
		err := preconditionError(fmt.Sprintf("targetDurationSec value is <= 0: %d", targetDurationSec))
		c.recorder.ManifestFailed(Live.String(), err.Kind.String())
		return "", err
	}
	return c.synthesize(ctx, Live, dvrURL, item, func(ctx context.Context) (string, error) {
		return c.buildPostLive(ctx, dvrURL, item, targetDurationSec, durationSecondsFallback)
	})
}

func (c *Creator) buildPostLive(ctx context.Context, dvrURL string, item itag.Item, targetDurationSec int, durationSecondsFallback int64) (string, error) {
	if dvrURL == "" {
		return "", preconditionError("the post-live DVR streaming URL is empty")
	}

	probed, err := c.probe(ctx, dvrURL, Live)
	if err != nil {
		return "", err
	}

	headers, err := ParsePostLiveHeaders(probed.response.Header)
	if err != nil {
		return "", probeError("could not get the stream duration or the segment count", err)
	}
	if headers.SegmentCount == "" {
		return "", probeError("could not get the number of segments", nil)
	}
	segmentCount, err := strconv.ParseInt(headers.SegmentCount, 10, 64)
	if err != nil || segmentCount < 0 {
		return "", probeError(fmt.Sprintf("invalid segment count %q", headers.SegmentCount), err)
	}

	durationMs, err := strconv.ParseInt(headers.ElapsedMs, 10, 64)
	if err != nil {
		// The fallback is used as given, without converting seconds to milliseconds.
		c.logger.Warnf("Could not parse %s %q for itag %d, using fallback %d", headTimeMillisHeader, headers.ElapsedMs, item.ID, durationSecondsFallback)
		durationMs = durationSecondsFallback
	}

	mpd, err := newSkeleton(item, durationMs)
	if err != nil {
		return "", err
	}

	if int64(targetDurationSec) > math.MaxInt64/1000 {
		return "", preconditionError(fmt.Sprintf("targetDurationSec value is too large: %d", targetDurationSec))
	}
	timeline := SegmentTimeline{Segments: []S{{
		D: uint64(targetDurationSec) * 1000,
		R: segmentCount,
	}}}
	tmpl, err := newSegmentTemplate(probed.baseURL, Live, timeline)
	if err != nil {
		return "", err
	}
	mpd.Period.AdaptationSet.Representation.SegmentTemplate = tmpl

	out, err := mpd.marshal()
	if err != nil {
		return "", elementError(ElementMPD, "could not serialize the manifest", err)
	}
	return out, nil
}
