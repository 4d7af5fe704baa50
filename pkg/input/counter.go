package input

import (
	"math"
	"sync"

	"github.com/offlinefirst/inputpulse/pkg/heartbeat"
)

// Counter accumulates input activity shared between the event-delivery
// goroutine and the scheduler. Increments hold the lock only long enough to
// bump a field, so the delivery path never blocks on downstream work.
type Counter struct {
	mu      sync.Mutex
	presses uint64
	clicks  uint64
	deltaX  float64
	deltaY  float64
	scrollX float64
	scrollY float64
}

// NewCounter returns a counter with all fields at zero.
func NewCounter() *Counter {
	return &Counter{}
}

// AddKeyPress records one key press.
func (c *Counter) AddKeyPress() {
	c.mu.Lock()
	c.presses++
	c.mu.Unlock()
}

// AddClick records one mouse button press.
func (c *Counter) AddClick() {
	c.mu.Lock()
	c.clicks++
	c.mu.Unlock()
}

// AddMotion accumulates the absolute magnitude of a pointer movement.
// Direction is discarded; only the amount of movement matters.
func (c *Counter) AddMotion(dx, dy float64) {
	c.mu.Lock()
	c.deltaX += math.Abs(dx)
	c.deltaY += math.Abs(dy)
	c.mu.Unlock()
}

// AddScroll accumulates the absolute magnitude of a wheel movement.
func (c *Counter) AddScroll(sx, sy float64) {
	c.mu.Lock()
	c.scrollX += math.Abs(sx)
	c.scrollY += math.Abs(sy)
	c.mu.Unlock()
}

// Drain snapshots all six fields and resets them to zero within a single
// critical section, so every increment lands in exactly one drain: never
// lost, never double-counted.
func (c *Counter) Drain() heartbeat.Data {
	c.mu.Lock()
	data := heartbeat.Data{
		Presses: c.presses,
		Clicks:  c.clicks,
		DeltaX:  c.deltaX,
		DeltaY:  c.deltaY,
		ScrollX: c.scrollX,
		ScrollY: c.scrollY,
	}
	c.presses = 0
	c.clicks = 0
	c.deltaX = 0
	c.deltaY = 0
	c.scrollX = 0
	c.scrollY = 0
	c.mu.Unlock()
	return data
}
