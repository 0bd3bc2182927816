package dash

import (
	"errors"
	"fmt"
)

// Kind classifies why a manifest could not be created.
type Kind int

const (
	// KindElement means an element or attribute could not be populated.
	KindElement Kind = iota + 1
	// KindProbe means the origin probe failed or lacked the required timing facts.
	KindProbe
	// KindDuration means no usable stream duration was available.
	KindDuration
	// KindPrecondition means the caller passed invalid input.
	KindPrecondition
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindProbe:
		return "probe"
	case KindDuration:
		return "duration"
	case KindPrecondition:
		return "precondition"
	default:
		return "unknown"
	}
}

// Element names used in CreationError.
const (
	ElementMPD                       = "MPD"
	ElementPeriod                    = "Period"
	ElementAdaptationSet             = "AdaptationSet"
	ElementRole                      = "Role"
	ElementRepresentation            = "Representation"
	ElementAudioChannelConfiguration = "AudioChannelConfiguration"
	ElementBaseURL                   = "BaseURL"
	ElementSegmentBase               = "SegmentBase"
	ElementInitialization            = "Initialization"
	ElementSegmentTemplate           = "SegmentTemplate"
	ElementSegmentTimeline           = "SegmentTimeline"
)

// CreationError reports that a manifest could not be synthesized. No manifest is cached or
// returned when one occurs.
type CreationError struct {
	Kind    Kind
	Element string // set for KindElement
	Reason  string
	// StatusCode is the origin response status for probe failures, 0 otherwise.
	StatusCode int
	Err        error
}

func (e *CreationError) Error() string {
	msg := e.Reason
	if e.Kind == KindElement && e.Element != "" {
		msg = fmt.Sprintf("could not add the %s element to the DASH manifest: %s", e.Element, e.Reason)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *CreationError) Unwrap() error { return e.Err }

// IsKind reports whether err is a CreationError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *CreationError
	return errors.As(err, &ce) && ce.Kind == kind
}

// KindOf returns the kind of a CreationError, or 0 for any other error.
func KindOf(err error) Kind {
	var ce *CreationError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

func elementError(element, reason string, err error) *CreationError {
	return &CreationError{Kind: KindElement, Element: element, Reason: reason, Err: err}
}

func probeError(reason string, err error) *CreationError {
	return &CreationError{Kind: KindProbe, Reason: reason, Err: err}
}

func durationError(reason string) *CreationError {
	return &CreationError{Kind: KindDuration, Reason: reason}
}

func preconditionError(reason string) *CreationError {
	return &CreationError{Kind: KindPrecondition, Reason: reason}
}
