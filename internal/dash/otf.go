package dash

import (
	"context"
	"math"

	"ytdash/internal/itag"
)

// FromOTFStreamingURL synthesizes a SegmentTemplate manifest for an on-the-fly transcoded
// stream. The first sequence is requested to learn the per-segment durations and the
// post-redirect base URL; the manifest is cached under otfURL itself.
func (c *Creator) FromOTFStreamingURL(ctx context.Context, otfURL string, item itag.Item, durationSecondsFallback int64) (string, error) {
	return c.synthesize(ctx, OTF, otfURL, item, func(ctx context.Context) (string, error) {
		return c.buildOTF(ctx, otfURL, item, durationSecondsFallback)
	})
}

func (c *Creator) buildOTF(ctx context.Context, otfURL string, item itag.Item, durationSecondsFallback int64) (string, error) {
	if otfURL == "" {
		return "", preconditionError("the OTF streaming URL is empty")
	}

	probed, err := c.probe(ctx, otfURL, OTF)
	if err != nil {
		return "", err
	}

	durations, err := ParseSegmentDurations(probed.response.Body)
	if err != nil {
		return "", probeError("could not get segment durations", err)
	}

	durationMs, err := TotalDurationMs(durations)
	if err != nil {
		c.logger.Warnf("Could not sum OTF segment durations for itag %d, using fallback of %d s: %v", item.ID, durationSecondsFallback, err)
		if durationSecondsFallback <= 0 || durationSecondsFallback > math.MaxInt64/1000 {
			return "", durationError("the duration of the stream could not be determined and durationSecondsFallback is unusable")
		}
		durationMs = durationSecondsFallback * 1000
	}

	mpd, err := newSkeleton(item, durationMs)
	if err != nil {
		return "", err
	}

	tmpl, err := newSegmentTemplate(probed.baseURL, OTF, NewTimeline(durations))
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
