package dash

import (
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Duration is a media duration in milliseconds that renders as an XML xs:duration.
type Duration int64

const (
	Millisecond Duration = 1
	Second               = 1000 * Millisecond
	Minute               = 60 * Second
	Hour                 = 60 * Minute
)

var (
	rStart   = "^P"          // Must start with a 'P'
	rDays    = "(\\d+D)?"    // Days only, no months or years
	rTime    = "(?:T"        // Time units must be preceded by a 'T'
	rHours   = "(\\d+H)?"    // Hours
	rMinutes = "(\\d+M)?"    // Minutes
	rSeconds = "([\\d.]+S)?" // Seconds (potentially decimal)
	rEnd     = ")?$"
)

var xmlDurationRegex = regexp.MustCompile(rStart + rDays + rTime + rHours + rMinutes + rSeconds + rEnd)

// Milliseconds returns the duration as an integer millisecond count.
func (d Duration) Milliseconds() int64 { return int64(d) }

// Seconds returns the duration as a floating point number of seconds.
func (d Duration) Seconds() float64 {
	sec := d / Second
	msec := d % Second
	return float64(sec) + float64(msec)/1e3
}

// String renders the duration in xs:duration form, e.g. PT1H2M3.004S.
// Hours are the largest unit because days can be different lengths.
func (d Duration) String() string {
	u := uint64(d)
	neg := d < 0
	if neg {
		u = -u
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("PT")

	hours := u / uint64(Hour)
	minutes := (u / uint64(Minute)) % 60
	seconds := (u / uint64(Second)) % 60
	millis := u % uint64(Second)

	if hours > 0 {
		b.WriteString(strconv.FormatUint(hours, 10))
		b.WriteByte('H')
	}
	if minutes > 0 {
		b.WriteString(strconv.FormatUint(minutes, 10))
		b.WriteByte('M')
	}
	if seconds > 0 || millis > 0 || (hours == 0 && minutes == 0) {
		b.WriteString(strconv.FormatUint(seconds, 10))
		if millis > 0 {
			frac := strings.TrimRight(fmt.Sprintf("%03d", millis), "0")
			b.WriteByte('.')
			b.WriteString(frac)
		}
		b.WriteByte('S')
	}
	return b.String()
}

func (d Duration) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return xml.Attr{Name: name, Value: d.String()}, nil
}

func (d *Duration) UnmarshalXMLAttr(attr xml.Attr) error {
	dur, err := ParseDuration(attr.Value)
	if err != nil {
		return err
	}
	*d = dur
	return nil
}

// ParseDuration parses an xs:duration of the form P[nD][T[nH][nM][nS]].
// Seconds are rounded to the nearest millisecond.
func ParseDuration(str string) (Duration, error) {
	if len(str) < 3 {
		return 0, errors.New("at least one number and designator are required")
	}
	if strings.Contains(str, "-") {
		return 0, errors.New("duration cannot be negative")
	}
	parts := xmlDurationRegex.FindStringSubmatch(str)
	if parts == nil {
		return 0, errors.New("duration must be in the format: P[nD][T[nH][nM][nS]]")
	}

	var total Duration
	if parts[1] != "" {
		days, err := strconv.ParseInt(strings.TrimSuffix(parts[1], "D"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("error parsing days: %w", err)
		}
		total += Duration(days) * 24 * Hour
	}
	if parts[2] != "" {
		hours, err := strconv.ParseInt(strings.TrimSuffix(parts[2], "H"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("error parsing hours: %w", err)
		}
		total += Duration(hours) * Hour
	}
	if parts[3] != "" {
		mins, err := strconv.ParseInt(strings.TrimSuffix(parts[3], "M"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("error parsing minutes: %w", err)
		}
		total += Duration(mins) * Minute
	}
	if parts[4] != "" {
		secs, err := strconv.ParseFloat(strings.TrimSuffix(parts[4], "S"), 64)
		if err != nil {
			return 0, fmt.Errorf("error parsing seconds: %w", err)
		}
		total += Duration(secs*1000 + 0.5)
	}
	return total, nil
}
