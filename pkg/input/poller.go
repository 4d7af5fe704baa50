package input

import (
	"context"
	"errors"
	"time"

	"github.com/go-vgo/robotgo"
)

// PollerOptions configure the pointer-polling fallback source.
type PollerOptions struct {
	Interval time.Duration
	Position func() (int, int)
}

// NewPollerSource returns a source that samples the pointer position at a
// fixed interval and reports movement. It detects neither key presses nor
// scrolls, but works on hosts where the OS hook is unavailable or denied.
func NewPollerSource(opts PollerOptions) (Source, error) {
	interval := opts.Interval
	if interval == 0 {
		interval = 250 * time.Millisecond
	}
	if interval < 0 {
		return nil, errors.New("poll interval must be positive")
	}
	position := opts.Position
	if position == nil {
		position = robotgo.GetMousePos
	}
	return pollerSource{interval: interval, position: position}, nil
}

type pollerSource struct {
	interval time.Duration
	position func() (int, int)
}

func (p pollerSource) Run(ctx context.Context, emit func(Event)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	lastX, lastY := p.position()
	emit(Event{Kind: KindPointerMoved, X: float64(lastX), Y: float64(lastY)})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			x, y := p.position()
			if x == lastX && y == lastY {
				continue
			}
			lastX, lastY = x, y
			emit(Event{Kind: KindPointerMoved, X: float64(x), Y: float64(y)})
		}
	}
}
