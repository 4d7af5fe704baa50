// Package input captures raw keyboard and mouse events from an OS-level
// source and accumulates them into privacy-preserving activity counts. Only
// event kinds and movement magnitudes are recorded, never key identities.
package input

// Kind discriminates raw events delivered by a source.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindKeyDown
	KindKeyUp
	KindButtonDown
	KindButtonUp
	KindPointerMoved
	KindWheelScrolled
)

// String returns the kind's identifier used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindKeyDown:
		return "key_down"
	case KindKeyUp:
		return "key_up"
	case KindButtonDown:
		return "button_down"
	case KindButtonUp:
		return "button_up"
	case KindPointerMoved:
		return "pointer_moved"
	case KindWheelScrolled:
		return "wheel_scrolled"
	default:
		return "unknown"
	}
}

// Event is a single raw sample. X and Y carry the absolute pointer position
// for KindPointerMoved; ScrollX and ScrollY carry the wheel deltas for
// KindWheelScrolled. All other kinds carry no payload.
type Event struct {
	Kind    Kind
	X       float64
	Y       float64
	ScrollX float64
	ScrollY float64
}
