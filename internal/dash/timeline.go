package dash

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// NewTimeline converts parsed OTF durations into run-length S entries, keeping their order.
// The r attribute is only set for runs, so singleton segments stay minimal.
func NewTimeline(durations []SegmentDuration) SegmentTimeline {
	segments := make([]S, 0, len(durations))
	for _, sd := range durations {
		segments = append(segments, S{D: uint64(sd.DurationMs), R: sd.Repeat})
	}
	return SegmentTimeline{Segments: segments}
}

// SegmentCount returns the number of segments the timeline describes (each S counts r+1).
func (tl SegmentTimeline) SegmentCount() int64 {
	var n int64
	for _, s := range tl.Segments {
		n += s.R + 1
	}
	return n
}

// Segment is one addressable media segment of a sequence-addressed stream.
type Segment struct {
	// Number is the sequence number substituted for $Number$.
	Number int64 `json:"number"`
	// Start and Duration are in the template's timescale.
	Start    uint64 `json:"start"`
	Duration uint64 `json:"duration"`
	URL      string `json:"url"`
}

// ExpandTimeline processes the SegmentTimeline of a template and returns a flat list of all
// segments with their URLs resolved from the media template.
func ExpandTimeline(tmpl *SegmentTemplate) []Segment {
	segments := make([]Segment, 0, tmpl.Timeline.SegmentCount())
	number := int64(tmpl.StartNumber)
	var currentTime uint64

	for _, s := range tmpl.Timeline.Segments {
		// The r attribute specifies the number of following segments with the same duration.
		for i := int64(0); i <= s.R; i++ {
			segments = append(segments, Segment{
				Number:   number,
				Start:    currentTime,
				Duration: s.D,
				URL:      strings.Replace(tmpl.Media, "$Number$", strconv.FormatInt(number, 10), 1),
			})
			number++
			currentTime += s.D
		}
	}
	return segments
}

// SegmentsOf lists the media segments of a manifest produced by the OTF or post-live
// strategies. Progressive manifests have no template and yield an error.
func SegmentsOf(manifest string) ([]Segment, error) {
	var mpd MPD
	if err := xml.Unmarshal([]byte(manifest), &mpd); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	tmpl := mpd.Period.AdaptationSet.Representation.SegmentTemplate
	if tmpl == nil {
		return nil, errors.New("manifest has no SegmentTemplate")
	}
	return ExpandTimeline(tmpl), nil
}
