package input

import (
	"context"
	"errors"

	hook "github.com/robotn/gohook"
)

// wheelHorizontal is the libuiohook wheel direction for horizontal scrolls.
const wheelHorizontal = 4

// NewHookSource returns the OS-level input hook source. The hook delivers
// events from its own thread; delivery is serialized by the hook channel.
func NewHookSource() Source {
	return hookSource{}
}

type hookSource struct{}

func (hookSource) Run(ctx context.Context, emit func(Event)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	events := hook.Start()
	defer hook.End()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-events:
			if !ok {
				return errors.New("input hook channel closed")
			}
			if ev, ok := translateHookEvent(raw); ok {
				emit(ev)
			}
		}
	}
}

func translateHookEvent(raw hook.Event) (Event, bool) {
	switch raw.Kind {
	case hook.KeyDown:
		return Event{Kind: KindKeyDown}, true
	case hook.KeyUp:
		return Event{Kind: KindKeyUp}, true
	case hook.MouseDown:
		return Event{Kind: KindButtonDown}, true
	case hook.MouseUp:
		return Event{Kind: KindButtonUp}, true
	case hook.MouseMove, hook.MouseDrag:
		return Event{Kind: KindPointerMoved, X: float64(raw.X), Y: float64(raw.Y)}, true
	case hook.MouseWheel:
		rotation := float64(raw.Rotation)
		if raw.Direction == wheelHorizontal {
			return Event{Kind: KindWheelScrolled, ScrollX: rotation}, true
		}
		return Event{Kind: KindWheelScrolled, ScrollY: rotation}, true
	default:
		return Event{}, false
	}
}
