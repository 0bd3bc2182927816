package dash

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
)

const (
	segmentDurationsToken = "Segment-Durations-Ms:"

	headTimeMillisHeader = "X-Head-Time-Millis"
	headSeqnumHeader     = "X-Head-Seqnum"
)

// SegmentDuration is one entry of an OTF segment duration list: a segment of DurationMs
// milliseconds followed by Repeat more segments of the same length.
type SegmentDuration struct {
	DurationMs int64
	Repeat     int64
}

// ParseSegmentDurations extracts the segment duration list an OTF origin embeds in the
// initialization sequence, e.g. "Segment-Durations-Ms: 5005,4004(r=3),".
// A single trailing empty token is ignored; any other malformed token is an error.
func ParseSegmentDurations(body []byte) ([]SegmentDuration, error) {
	text := string(body)
	idx := strings.Index(text, segmentDurationsToken)
	if idx < 0 {
		return nil, errors.New("segment durations not found in the initialization sequence")
	}
	line := text[idx+len(segmentDurationsToken):]
	if end := strings.IndexAny(line, "\r\n"); end >= 0 {
		line = line[:end]
	}

	tokens := strings.Split(strings.TrimSpace(line), ",")
	if last := len(tokens) - 1; strings.TrimSpace(tokens[last]) == "" {
		tokens = tokens[:last]
	}
	if len(tokens) == 0 {
		return nil, errors.New("the segment durations list is empty")
	}

	durations := make([]SegmentDuration, 0, len(tokens))
	for i, tok := range tokens {
		sd, err := parseSegmentToken(strings.TrimSpace(tok))
		if err != nil {
			return nil, fmt.Errorf("segment duration %d: %w", i, err)
		}
		durations = append(durations, sd)
	}
	return durations, nil
}

// parseSegmentToken parses "<durationMs>" or "<durationMs>(r=<repeatCount>)".
func parseSegmentToken(tok string) (SegmentDuration, error) {
	durationPart, repeatPart, hasRepeat := strings.Cut(tok, "(r=")

	d, err := strconv.ParseInt(durationPart, 10, 64)
	if err != nil {
		return SegmentDuration{}, fmt.Errorf("invalid duration %q: %w", tok, err)
	}
	if d <= 0 {
		return SegmentDuration{}, fmt.Errorf("invalid duration %q: must be positive", tok)
	}

	var r int64
	if hasRepeat {
		if !strings.HasSuffix(repeatPart, ")") {
			return SegmentDuration{}, fmt.Errorf("unterminated repeat count in %q", tok)
		}
		r, err = strconv.ParseInt(strings.TrimSuffix(repeatPart, ")"), 10, 64)
		if err != nil {
			return SegmentDuration{}, fmt.Errorf("invalid repeat count in %q: %w", tok, err)
		}
		if r < 0 {
			return SegmentDuration{}, fmt.Errorf("negative repeat count in %q", tok)
		}
	}
	return SegmentDuration{DurationMs: d, Repeat: r}, nil
}

// TotalDurationMs sums durationMs * (1 + repeat) over all entries.
func TotalDurationMs(durations []SegmentDuration) (int64, error) {
	var total int64
	for _, sd := range durations {
		if sd.Repeat == math.MaxInt64 {
			return 0, errors.New("segment count overflows")
		}
		count := sd.Repeat + 1
		if sd.DurationMs > math.MaxInt64/count {
			return 0, errors.New("segment duration overflows")
		}
		span := sd.DurationMs * count
		if total > math.MaxInt64-span {
			return 0, errors.New("stream duration overflows")
		}
		total += span
	}
	return total, nil
}

// PostLiveHeaders are the timing facts a post-live DVR origin exposes in response headers.
type PostLiveHeaders struct {
	// ElapsedMs is the raw X-Head-Time-Millis value.
	ElapsedMs string
	// SegmentCount is the raw X-Head-Seqnum value.
	SegmentCount string
}

// ParsePostLiveHeaders reads the elapsed time and segment count headers. Both must be present;
// their values are returned unparsed.
func ParsePostLiveHeaders(h http.Header) (PostLiveHeaders, error) {
	elapsed := h.Values(headTimeMillisHeader)
	if len(elapsed) == 0 {
		return PostLiveHeaders{}, fmt.Errorf("missing %s header", headTimeMillisHeader)
	}
	count := h.Values(headSeqnumHeader)
	if len(count) == 0 {
		return PostLiveHeaders{}, fmt.Errorf("missing %s header", headSeqnumHeader)
	}
	return PostLiveHeaders{
		ElapsedMs:    strings.TrimSpace(elapsed[0]),
		SegmentCount: strings.TrimSpace(count[0]),
	}, nil
}
