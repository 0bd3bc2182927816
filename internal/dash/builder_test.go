package dash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytdash/internal/itag"
)

func TestNewSkeleton_Audio(t *testing.T) {
	it := audioItem()
	it.AudioLanguage = "de"
	it.AudioTrackType = itag.TrackDubbed

	mpd, err := newSkeleton(it, 4500)
	require.NoError(t, err)

	assert.Equal(t, "static", mpd.Type)
	assert.Equal(t, fullProfile, mpd.Profiles)
	assert.Equal(t, Duration(4500), mpd.MediaPresentationDuration)
	assert.Equal(t, Duration(1500), mpd.MinBufferTime)

	set := mpd.Period.AdaptationSet
	assert.Equal(t, "0", set.ID)
	assert.Equal(t, "audio", set.ContentType)
	assert.Equal(t, "audio/mp4", set.MimeType)
	assert.Equal(t, "de", set.Lang)
	assert.True(t, set.SubsegmentAlignment)
	require.NotNil(t, set.Role)
	assert.Equal(t, "dub", set.Role.Value)

	rep := set.Representation
	assert.Equal(t, "140", rep.ID)
	assert.Equal(t, "mp4a.40.2", rep.Codecs)
	assert.Equal(t, 1, rep.StartWithSAP)
	assert.Equal(t, 1, rep.MaxPlayoutRate)
	assert.Equal(t, 130000, rep.Bandwidth)
	assert.Equal(t, 44100, rep.AudioSamplingRate)
	require.NotNil(t, rep.AudioChannelConfiguration)
	assert.Equal(t, "2", rep.AudioChannelConfiguration.Value)
	assert.Zero(t, rep.Width)
}

func TestNewSkeleton_DefaultsAudioChannels(t *testing.T) {
	it := audioItem()
	it.AudioChannels = 0

	mpd, err := newSkeleton(it, 1000)
	require.NoError(t, err)
	assert.Equal(t, "2", mpd.Period.AdaptationSet.Representation.AudioChannelConfiguration.Value)
}

func TestRoleValue(t *testing.T) {
	tests := map[itag.AudioTrackType]string{
		"":                    "main",
		itag.TrackOriginal:    "main",
		itag.TrackDubbed:      "dub",
		itag.TrackDescriptive: "description",
		itag.TrackSecondary:   "alternate",
	}
	for trackType, want := range tests {
		it := audioItem()
		it.AudioTrackType = trackType
		assert.Equal(t, want, roleValue(it), string(trackType))
	}

	video := videoItem()
	video.AudioTrackType = itag.TrackDubbed
	assert.Equal(t, "main", roleValue(video))
}

func TestNewSkeleton_Errors(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*itag.Item)
		durationMs int64
		kind       Kind
		element    string
	}{
		{"zero duration", func(*itag.Item) {}, 0, KindDuration, ElementMPD},
		{"negative duration", func(*itag.Item) {}, -5, KindDuration, ElementMPD},
		{"empty mime type", func(it *itag.Item) { it.MimeType = "" }, 1000, KindElement, ElementAdaptationSet},
		{"malformed mime type", func(it *itag.Item) { it.MimeType = "audio mp4" }, 1000, KindElement, ElementAdaptationSet},
		{"mime type mismatch", func(it *itag.Item) { it.MimeType = "video/mp4" }, 1000, KindElement, ElementAdaptationSet},
		{"unsupported type", func(it *itag.Item) { it.Type = itag.ItagType(7) }, 1000, KindElement, ElementAdaptationSet},
		{"empty codec", func(it *itag.Item) { it.Codec = " " }, 1000, KindElement, ElementRepresentation},
		{"malformed codec", func(it *itag.Item) { it.Codec = `mp4a"40` }, 1000, KindElement, ElementRepresentation},
		{"negative bitrate", func(it *itag.Item) { it.Bitrate = -1 }, 1000, KindElement, ElementRepresentation},
		{"no sample rate", func(it *itag.Item) { it.SampleRate = 0 }, 1000, KindElement, ElementRepresentation},
		{"negative channels", func(it *itag.Item) { it.AudioChannels = -2 }, 1000, KindElement, ElementAudioChannelConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := audioItem()
			tt.mutate(&it)

			_, err := newSkeleton(it, tt.durationMs)
			var ce *CreationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, tt.element, ce.Element)
		})
	}
}

func TestNewSkeleton_VideoErrors(t *testing.T) {
	it := videoItem()
	it.Height = 0
	_, err := newSkeleton(it, 1000)
	assert.True(t, IsKind(err, KindElement))

	it = videoItem()
	it.FPS = -1
	_, err = newSkeleton(it, 1000)
	assert.True(t, IsKind(err, KindElement))
}

func TestNewSegmentTemplate(t *testing.T) {
	timeline := SegmentTimeline{Segments: []S{{D: 1000}}}

	otf, err := newSegmentTemplate("https://example.com/v?id=1", OTF, timeline)
	require.NoError(t, err)
	assert.Equal(t, 1, otf.StartNumber)
	assert.Equal(t, 1000, otf.Timescale)
	assert.Equal(t, "https://example.com/v?id=1&sq=0", otf.Initialization)
	assert.Equal(t, "https://example.com/v?id=1&sq=$Number$", otf.Media)

	live, err := newSegmentTemplate("https://example.com/v?id=1", Live, timeline)
	require.NoError(t, err)
	assert.Equal(t, 0, live.StartNumber)
	assert.Empty(t, live.Initialization)

	_, err = newSegmentTemplate("", OTF, timeline)
	assert.True(t, IsKind(err, KindElement))

	_, err = newSegmentTemplate("https://example.com/v", OTF, SegmentTimeline{})
	var ce *CreationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ElementSegmentTimeline, ce.Element)
}

func TestCreationError_Message(t *testing.T) {
	err := elementError(ElementSegmentBase, "invalid index range", assert.AnError)
	assert.Equal(t, "could not add the SegmentBase element to the DASH manifest: invalid index range: "+assert.AnError.Error(), err.Error())
	assert.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, "the OTF streaming URL is empty", preconditionError("the OTF streaming URL is empty").Error())
	assert.Equal(t, Kind(0), KindOf(assert.AnError))
	assert.Equal(t, "unknown", Kind(0).String())
}
