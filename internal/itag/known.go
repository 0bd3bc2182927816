package itag

// format holds the defaults YouTube uses for a well-known itag.
type format struct {
	typ        ItagType
	mimeType   string
	codec      string
	bitrate    int
	width      int
	height     int
	fps        int
	sampleRate int
	channels   int
}

var known = map[int]format{
	// Audio
	139: {typ: Audio, mimeType: "audio/mp4", codec: "mp4a.40.5", bitrate: 48000, sampleRate: 22050, channels: 2},
	140: {typ: Audio, mimeType: "audio/mp4", codec: "mp4a.40.2", bitrate: 128000, sampleRate: 44100, channels: 2},
	141: {typ: Audio, mimeType: "audio/mp4", codec: "mp4a.40.2", bitrate: 256000, sampleRate: 44100, channels: 2},
	249: {typ: Audio, mimeType: "audio/webm", codec: "opus", bitrate: 50000, sampleRate: 48000, channels: 2},
	250: {typ: Audio, mimeType: "audio/webm", codec: "opus", bitrate: 70000, sampleRate: 48000, channels: 2},
	251: {typ: Audio, mimeType: "audio/webm", codec: "opus", bitrate: 160000, sampleRate: 48000, channels: 2},

	// Video, H.264
	160: {typ: Video, mimeType: "video/mp4", codec: "avc1.4d400c", bitrate: 100000, width: 256, height: 144, fps: 30},
	133: {typ: Video, mimeType: "video/mp4", codec: "avc1.4d4015", bitrate: 250000, width: 426, height: 240, fps: 30},
	134: {typ: Video, mimeType: "video/mp4", codec: "avc1.4d401e", bitrate: 500000, width: 640, height: 360, fps: 30},
	135: {typ: Video, mimeType: "video/mp4", codec: "avc1.4d401f", bitrate: 1000000, width: 854, height: 480, fps: 30},
	136: {typ: Video, mimeType: "video/mp4", codec: "avc1.4d401f", bitrate: 2500000, width: 1280, height: 720, fps: 30},
	137: {typ: Video, mimeType: "video/mp4", codec: "avc1.640028", bitrate: 4500000, width: 1920, height: 1080, fps: 30},
	298: {typ: Video, mimeType: "video/mp4", codec: "avc1.4d4020", bitrate: 3500000, width: 1280, height: 720, fps: 60},
	299: {typ: Video, mimeType: "video/mp4", codec: "avc1.64002a", bitrate: 5500000, width: 1920, height: 1080, fps: 60},

	// Video, VP9
	278: {typ: Video, mimeType: "video/webm", codec: "vp9", bitrate: 95000, width: 256, height: 144, fps: 30},
	242: {typ: Video, mimeType: "video/webm", codec: "vp9", bitrate: 220000, width: 426, height: 240, fps: 30},
	243: {typ: Video, mimeType: "video/webm", codec: "vp9", bitrate: 400000, width: 640, height: 360, fps: 30},
	244: {typ: Video, mimeType: "video/webm", codec: "vp9", bitrate: 800000, width: 854, height: 480, fps: 30},
	247: {typ: Video, mimeType: "video/webm", codec: "vp9", bitrate: 1500000, width: 1280, height: 720, fps: 30},
	248: {typ: Video, mimeType: "video/webm", codec: "vp9", bitrate: 2500000, width: 1920, height: 1080, fps: 30},
}

// Lookup returns a fully populated item for a well-known itag id, with unknown byte ranges.
func Lookup(id int) (Item, bool) {
	f, ok := known[id]
	if !ok {
		return Item{}, false
	}
	return New(id, f.typ).WithDefaults(), true
}

// WithDefaults returns a copy of the item with zero-valued static fields filled from the
// known-itag table. Fields the extractor already set are kept. The type is only taken from
// the table when the item carries no mime type of its own.
func (it Item) WithDefaults() Item {
	f, ok := known[it.ID]
	if !ok {
		return it
	}
	if it.MimeType == "" {
		it.Type = f.typ
		it.MimeType = f.mimeType
	}
	if it.Type != f.typ {
		return it
	}
	if it.Codec == "" {
		it.Codec = f.codec
	}
	if it.Bitrate == 0 {
		it.Bitrate = f.bitrate
	}
	switch it.Type {
	case Audio:
		if it.SampleRate == 0 {
			it.SampleRate = f.sampleRate
		}
		if it.AudioChannels == 0 {
			it.AudioChannels = f.channels
		}
	case Video:
		if it.Width == 0 {
			it.Width = f.width
		}
		if it.Height == 0 {
			it.Height = f.height
		}
		if it.FPS == 0 {
			it.FPS = f.fps
		}
	}
	return it
}
