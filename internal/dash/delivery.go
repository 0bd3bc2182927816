package dash

import (
	"fmt"
	"strings"
)

// DeliveryType selects how a rendition is delivered by the origin and therefore which
// manifest shape is synthesized for it.
type DeliveryType int

const (
	// Progressive streams are plain files served by byte range (SegmentBase manifests).
	Progressive DeliveryType = iota
	// OTF streams are transcoded on the fly and addressed by sequence number.
	OTF
	// Live covers ended livestreams still served from the DVR window.
	Live
)

func (t DeliveryType) String() string {
	switch t {
	case Progressive:
		return "progressive"
	case OTF:
		return "otf"
	case Live:
		return "live"
	default:
		return fmt.Sprintf("DeliveryType(%d)", int(t))
	}
}

// ParseDeliveryType converts the string form back into a DeliveryType.
func ParseDeliveryType(s string) (DeliveryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "progressive":
		return Progressive, nil
	case "otf":
		return OTF, nil
	case "live", "post_live", "post-live", "dvr":
		return Live, nil
	default:
		return 0, fmt.Errorf("unknown delivery type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t DeliveryType) MarshalText() ([]byte, error) {
	switch t {
	case Progressive, OTF, Live:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("unknown delivery type %d", int(t))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DeliveryType) UnmarshalText(b []byte) error {
	parsed, err := ParseDeliveryType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
