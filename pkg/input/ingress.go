package input

import (
	"errors"
	"time"

	"github.com/offlinefirst/inputpulse/pkg/metrics"
)

// pointerBaselineGap is the idle span after which the next pointer sample
// re-establishes the baseline instead of producing a delta. Without it a
// pointer that reappears after sleep or a display change would be counted
// as a screen-sized jump of activity.
const pointerBaselineGap = time.Minute

// IngressOptions configure an Ingress.
type IngressOptions struct {
	Counter *Counter
	Clock   func() time.Time
	Metrics *metrics.Metrics
}

// Ingress translates each raw event into exactly one counter increment.
// Handle must be called from a single delivery goroutine; sources guarantee
// serialized delivery, so the pointer baseline needs no lock.
type Ingress struct {
	counter *Counter
	clock   func() time.Time
	metrics *metrics.Metrics

	havePointer   bool
	lastX         float64
	lastY         float64
	lastPointerAt time.Time
}

// NewIngress validates options and returns an ingress bound to its counter.
func NewIngress(opts IngressOptions) (*Ingress, error) {
	if opts.Counter == nil {
		return nil, errors.New("counter must be provided")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Ingress{
		counter: opts.Counter,
		clock:   clock,
		metrics: opts.Metrics,
	}, nil
}

// Handle classifies one raw event and applies it to the counter before
// returning. Key-up, button-up, and unknown kinds are silently ignored.
func (in *Ingress) Handle(ev Event) {
	switch ev.Kind {
	case KindKeyDown:
		in.counter.AddKeyPress()
	case KindButtonDown:
		in.counter.AddClick()
	case KindPointerMoved:
		in.handlePointer(ev)
	case KindWheelScrolled:
		in.counter.AddScroll(ev.ScrollX, ev.ScrollY)
	default:
		return
	}
	in.metrics.ObserveEvent(ev.Kind.String())
}

func (in *Ingress) handlePointer(ev Event) {
	now := in.clock()
	if in.havePointer && now.Sub(in.lastPointerAt) <= pointerBaselineGap {
		in.counter.AddMotion(ev.X-in.lastX, ev.Y-in.lastY)
	}
	in.havePointer = true
	in.lastX = ev.X
	in.lastY = ev.Y
	in.lastPointerAt = now
}
