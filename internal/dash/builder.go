package dash

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ytdash/internal/itag"
)

const (
	minBufferTime        = 1500 * Millisecond
	defaultAudioChannels = 2
)

// codecsPattern accepts RFC 6381 codec lists such as "avc1.640028" or "avc1.4d401f, mp4a.40.2".
var codecsPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+\-]*(, ?[A-Za-z0-9][A-Za-z0-9._+\-]*)*$`)

var mimePattern = regexp.MustCompile(`^(audio|video)/[A-Za-z0-9][A-Za-z0-9.+\-]*$`)

// newSkeleton builds the document shared by every delivery type: MPD, Period, AdaptationSet
// and a Representation populated from the item. The caller owns the returned value and
// appends the delivery-specific children before serializing it.
func newSkeleton(item itag.Item, durationMs int64) (*MPD, error) {
	if durationMs <= 0 {
		return nil, &CreationError{
			Kind:    KindDuration,
			Element: ElementMPD,
			Reason:  fmt.Sprintf("invalid stream duration %d ms", durationMs),
		}
	}

	set, err := newAdaptationSet(item)
	if err != nil {
		return nil, err
	}
	rep, err := newRepresentation(item)
	if err != nil {
		return nil, err
	}
	set.Representation = rep

	return &MPD{
		XMLNSXsi:                  xsiNamespace,
		XMLNS:                     schemaNamespace,
		SchemaLocation:            schemaLocation,
		MinBufferTime:             minBufferTime,
		Profiles:                  fullProfile,
		Type:                      "static",
		MediaPresentationDuration: Duration(durationMs),
		Period:                    Period{AdaptationSet: set},
	}, nil
}

func newAdaptationSet(item itag.Item) (AdaptationSet, error) {
	if !item.IsAudio() && !item.IsVideo() {
		return AdaptationSet{}, elementError(ElementAdaptationSet, fmt.Sprintf("unsupported itag type %s", item.Type), nil)
	}
	mime := strings.TrimSpace(item.MimeType)
	if mime == "" {
		return AdaptationSet{}, elementError(ElementAdaptationSet, "the mime type of the itag is empty", nil)
	}
	if !mimePattern.MatchString(mime) {
		return AdaptationSet{}, elementError(ElementAdaptationSet, fmt.Sprintf("invalid mime type %q", item.MimeType), nil)
	}
	if !strings.HasPrefix(mime, item.ContentType()+"/") {
		return AdaptationSet{}, elementError(ElementAdaptationSet,
			fmt.Sprintf("mime type %q does not match itag type %s", mime, item.Type), nil)
	}

	set := AdaptationSet{
		ID:                  "0",
		ContentType:         item.ContentType(),
		MimeType:            mime,
		SubsegmentAlignment: true,
		Role:                &Descriptor{SchemeIDURI: roleScheme, Value: roleValue(item)},
	}
	if item.IsAudio() && item.AudioLanguage != "" {
		set.Lang = item.AudioLanguage
	}
	return set, nil
}

// roleValue maps the audio track type to a DASH role. Video is always "main".
func roleValue(item itag.Item) string {
	if !item.IsAudio() {
		return "main"
	}
	switch item.AudioTrackType {
	case itag.TrackDubbed:
		return "dub"
	case itag.TrackDescriptive:
		return "description"
	case itag.TrackSecondary:
		return "alternate"
	default:
		return "main"
	}
}

func newRepresentation(item itag.Item) (Representation, error) {
	codec := strings.TrimSpace(item.Codec)
	if codec == "" {
		return Representation{}, elementError(ElementRepresentation, "the codec of the itag is empty", nil)
	}
	if !codecsPattern.MatchString(codec) {
		return Representation{}, elementError(ElementRepresentation, fmt.Sprintf("malformed codec string %q", item.Codec), nil)
	}
	if item.Bitrate < 0 {
		return Representation{}, elementError(ElementRepresentation, fmt.Sprintf("invalid bitrate %d", item.Bitrate), nil)
	}

	rep := Representation{
		ID:             strconv.Itoa(item.ID),
		Codecs:         codec,
		StartWithSAP:   1,
		MaxPlayoutRate: 1,
		Bandwidth:      item.Bitrate,
	}

	if item.IsVideo() {
		if item.Width <= 0 || item.Height <= 0 {
			return Representation{}, elementError(ElementRepresentation,
				fmt.Sprintf("invalid video resolution %dx%d", item.Width, item.Height), nil)
		}
		if item.FPS < 0 {
			return Representation{}, elementError(ElementRepresentation, fmt.Sprintf("invalid frame rate %d", item.FPS), nil)
		}
		rep.Width = item.Width
		rep.Height = item.Height
		rep.FrameRate = item.FPS
		return rep, nil
	}

	if item.SampleRate <= 0 {
		return Representation{}, elementError(ElementRepresentation, fmt.Sprintf("invalid audio sample rate %d", item.SampleRate), nil)
	}
	channels := item.AudioChannels
	if channels < 0 {
		return Representation{}, elementError(ElementAudioChannelConfiguration, fmt.Sprintf("invalid channel count %d", channels), nil)
	}
	if channels == 0 {
		channels = defaultAudioChannels
	}
	rep.AudioSamplingRate = item.SampleRate
	rep.AudioChannelConfiguration = &Descriptor{
		SchemeIDURI: channelConfScheme,
		Value:       strconv.Itoa(channels),
	}
	return rep, nil
}

// newSegmentTemplate builds the sequence-addressed template shared by OTF and post-live
// streams. Post-live streams start at sequence 0 and have no initialization segment.
func newSegmentTemplate(baseURL string, deliveryType DeliveryType, timeline SegmentTimeline) (*SegmentTemplate, error) {
	if baseURL == "" {
		return nil, elementError(ElementSegmentTemplate, "the base URL is empty", nil)
	}
	if len(timeline.Segments) == 0 {
		return nil, elementError(ElementSegmentTimeline, "no segment entries", nil)
	}
	tmpl := &SegmentTemplate{
		Timescale: timescaleMillis,
		Media:     baseURL + sqParam + "$Number$",
		Timeline:  timeline,
	}
	if deliveryType == Live {
		tmpl.StartNumber = 0
	} else {
		tmpl.StartNumber = 1
		tmpl.Initialization = baseURL + sq0
	}
	return tmpl, nil
}
