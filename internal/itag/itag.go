package itag

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Unknown marks a byte offset or duration the extractor could not determine.
const Unknown = -1

// ItagType tells whether a rendition carries audio or video.
type ItagType int

const (
	Audio ItagType = iota
	Video
)

func (t ItagType) String() string {
	switch t {
	case Audio:
		return "audio"
	case Video:
		return "video"
	default:
		return fmt.Sprintf("ItagType(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ItagType) MarshalText() ([]byte, error) {
	switch t {
	case Audio, Video:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("unknown itag type %d", int(t))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ItagType) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "audio":
		*t = Audio
	case "video":
		*t = Video
	default:
		return fmt.Errorf("unknown itag type %q", string(b))
	}
	return nil
}

// AudioTrackType describes the role of an audio track among the tracks of a video.
type AudioTrackType string

const (
	TrackOriginal    AudioTrackType = "original"
	TrackDubbed      AudioTrackType = "dubbed"
	TrackDescriptive AudioTrackType = "descriptive"
	TrackSecondary   AudioTrackType = "secondary"
)

// Item describes the static properties of one rendition, as discovered by the extractor.
// Byte offsets are inclusive; Unknown (-1) means the extractor did not find them.
type Item struct {
	ID       int      `json:"itag"`
	Type     ItagType `json:"type"`
	Bitrate  int      `json:"bitrate"`
	MimeType string   `json:"mimeType"`
	Codec    string   `json:"codec"`

	// Audio only.
	AudioChannels  int            `json:"audioChannels,omitempty"`
	SampleRate     int            `json:"sampleRate,omitempty"`
	AudioTrackType AudioTrackType `json:"audioTrackType,omitempty"`
	AudioLanguage  string         `json:"audioLanguage,omitempty"`

	// Video only.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
	FPS    int `json:"fps,omitempty"`

	IndexStart       int64 `json:"indexStart"`
	IndexEnd         int64 `json:"indexEnd"`
	InitStart        int64 `json:"initStart"`
	InitEnd          int64 `json:"initEnd"`
	ApproxDurationMs int64 `json:"approxDurationMs"`
}

// New returns an item whose byte ranges and duration are all unknown.
func New(id int, t ItagType) Item {
	return Item{
		ID:               id,
		Type:             t,
		IndexStart:       Unknown,
		IndexEnd:         Unknown,
		InitStart:        Unknown,
		InitEnd:          Unknown,
		ApproxDurationMs: Unknown,
	}
}

// UnmarshalJSON decodes an item, leaving omitted byte offsets and duration Unknown.
func (it *Item) UnmarshalJSON(b []byte) error {
	type plain Item
	p := plain(New(0, Audio))
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*it = Item(p)
	return nil
}

// IsAudio reports whether the item is an audio rendition.
func (it Item) IsAudio() bool { return it.Type == Audio }

// IsVideo reports whether the item is a video rendition.
func (it Item) IsVideo() bool { return it.Type == Video }

// HasApproxDuration reports whether the extractor knew the stream duration.
func (it Item) HasApproxDuration() bool { return it.ApproxDurationMs != Unknown }

// IndexRange returns the "start-end" form of the index box range.
func (it Item) IndexRange() (string, error) {
	return byteRange("index", it.IndexStart, it.IndexEnd)
}

// InitRange returns the "start-end" form of the initialization segment range.
func (it Item) InitRange() (string, error) {
	return byteRange("init", it.InitStart, it.InitEnd)
}

func byteRange(name string, start, end int64) (string, error) {
	if start < 0 || end < 0 {
		return "", fmt.Errorf("%s range is unknown (start %d, end %d)", name, start, end)
	}
	if end < start {
		return "", fmt.Errorf("%s range end %d is before start %d", name, end, start)
	}
	return fmt.Sprintf("%d-%d", start, end), nil
}

// ContentType returns the DASH content type of the rendition.
func (it Item) ContentType() string {
	return it.Type.String()
}
