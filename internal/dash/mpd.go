package dash

import (
	"encoding/xml"
	"fmt"
)

const (
	schemaNamespace   = "urn:mpeg:DASH:schema:MPD:2011"
	xsiNamespace      = "http://www.w3.org/2001/XMLSchema-instance"
	schemaLocation    = schemaNamespace + " DASH-MPD.xsd"
	fullProfile       = "urn:mpeg:dash:profile:full:2011"
	roleScheme        = "urn:mpeg:DASH:role:2011"
	channelConfScheme = "urn:mpeg:dash:23003:3:audio_channel_configuration:2011"

	// All synthesized timelines are expressed in milliseconds.
	timescaleMillis = 1000
)

// MPD is the root element of a Media Presentation Description.
// Synthesized manifests always carry exactly one Period.
type MPD struct {
	XMLName                   xml.Name `xml:"MPD"`
	XMLNSXsi                  string   `xml:"xmlns:xsi,attr,omitempty"`
	XMLNS                     string   `xml:"xmlns,attr,omitempty"`
	SchemaLocation            string   `xml:"xsi:schemaLocation,attr,omitempty"`
	MinBufferTime             Duration `xml:"minBufferTime,attr"`
	Profiles                  string   `xml:"profiles,attr"`
	Type                      string   `xml:"type,attr"`
	MediaPresentationDuration Duration `xml:"mediaPresentationDuration,attr"`
	Period                    Period   `xml:"Period"`
}

// Period represents a media content period.
type Period struct {
	AdaptationSet AdaptationSet `xml:"AdaptationSet"`
}

// AdaptationSet groups the single synthesized representation.
type AdaptationSet struct {
	ID                  string         `xml:"id,attr"`
	ContentType         string         `xml:"contentType,attr"`
	MimeType            string         `xml:"mimeType,attr"`
	Lang                string         `xml:"lang,attr,omitempty"`
	SubsegmentAlignment bool           `xml:"subsegmentAlignment,attr"`
	Role                *Descriptor    `xml:"Role,omitempty"`
	Representation      Representation `xml:"Representation"`
}

// Descriptor is the generic schemeIdUri/value pair used by Role and AudioChannelConfiguration.
type Descriptor struct {
	SchemeIDURI string `xml:"schemeIdUri,attr"`
	Value       string `xml:"value,attr"`
}

// Representation represents a specific media stream.
type Representation struct {
	ID                        string           `xml:"id,attr"`
	Codecs                    string           `xml:"codecs,attr"`
	StartWithSAP              int              `xml:"startWithSAP,attr"`
	MaxPlayoutRate            int              `xml:"maxPlayoutRate,attr"`
	Bandwidth                 int              `xml:"bandwidth,attr"`
	Width                     int              `xml:"width,attr,omitempty"`
	Height                    int              `xml:"height,attr,omitempty"`
	FrameRate                 int              `xml:"frameRate,attr,omitempty"`
	AudioSamplingRate         int              `xml:"audioSamplingRate,attr,omitempty"`
	AudioChannelConfiguration *Descriptor      `xml:"AudioChannelConfiguration,omitempty"`
	BaseURL                   string           `xml:"BaseURL,omitempty"`
	SegmentBase               *SegmentBase     `xml:"SegmentBase,omitempty"`
	SegmentTemplate           *SegmentTemplate `xml:"SegmentTemplate,omitempty"`
}

// SegmentBase describes a single byte-range addressable file.
type SegmentBase struct {
	IndexRange     string `xml:"indexRange,attr"`
	Initialization *URL   `xml:"Initialization"`
}

// URL is a byte range within the BaseURL resource.
type URL struct {
	Range string `xml:"range,attr"`
}

// SegmentTemplate defines the URL structure for sequence-addressed segments.
type SegmentTemplate struct {
	StartNumber    int             `xml:"startNumber,attr"`
	Timescale      int             `xml:"timescale,attr"`
	Initialization string          `xml:"initialization,attr,omitempty"`
	Media          string          `xml:"media,attr"`
	Timeline       SegmentTimeline `xml:"SegmentTimeline"`
}

// SegmentTimeline defines the timeline of segments.
type SegmentTimeline struct {
	Segments []S `xml:"S"`
}

// S represents a single segment or a run of equally long segments.
type S struct {
	D uint64 `xml:"d,attr"`           // Duration
	R int64  `xml:"r,attr,omitempty"` // Additional repeats
}

// marshal serializes the manifest with an XML declaration.
func (m *MPD) marshal() (string, error) {
	out, err := xml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal MPD: %w", err)
	}
	return xml.Header + string(out), nil
}
