package dash

import (
	"context"

	"ytdash/internal/itag"
)

// FromProgressiveStreamingURL synthesizes a SegmentBase manifest for a byte-range servable file.
// Every fact comes from the item, so no request is sent to the origin.
//
// The duration is the item's approximate duration when known, otherwise
// durationSecondsFallback seconds.
func (c *Creator) FromProgressiveStreamingURL(ctx context.Context, progressiveURL string, item itag.Item, durationSecondsFallback int64) (string, error) {
	return c.synthesize(ctx, Progressive, progressiveURL, item, func(ctx context.Context) (string, error) {
		return buildProgressive(progressiveURL, item, durationSecondsFallback)
	})
}

func buildProgressive(progressiveURL string, item itag.Item, durationSecondsFallback int64) (string, error) {
	if progressiveURL == "" {
		return "", preconditionError("the progressive streaming URL is empty")
	}

	var durationMs int64
	switch {
	case item.HasApproxDuration():
		durationMs = item.ApproxDurationMs
	case durationSecondsFallback > 0:
		durationMs = durationSecondsFallback * 1000
	default:
		return "", durationError("the duration of the stream could not be determined and durationSecondsFallback is <= 0")
	}

	mpd, err := newSkeleton(item, durationMs)
	if err != nil {
		return "", err
	}

	indexRange, err := item.IndexRange()
	if err != nil {
		return "", elementError(ElementSegmentBase, "invalid index range", err)
	}
	initRange, err := item.InitRange()
	if err != nil {
		return "", elementError(ElementInitialization, "invalid initialization range", err)
	}

	rep := &mpd.Period.AdaptationSet.Representation
	rep.BaseURL = progressiveURL
	rep.SegmentBase = &SegmentBase{
		IndexRange:     indexRange,
		Initialization: &URL{Range: initRange},
	}

	out, err := mpd.marshal()
	if err != nil {
		return "", elementError(ElementMPD, "could not serialize the manifest", err)
	}
	return out, nil
}
