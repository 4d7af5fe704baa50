// Package heartbeat defines the activity summaries reported to the remote
// store and the pulsetime policy that merges temporally-adjacent summaries
// into a single record.
package heartbeat

import (
	"context"
	"time"
)

// Data is an immutable snapshot of accumulated input activity. Discrete
// kinds carry counts; continuous kinds carry summed absolute magnitudes.
type Data struct {
	Presses uint64  `json:"presses"`
	Clicks  uint64  `json:"clicks"`
	DeltaX  float64 `json:"deltaX"`
	DeltaY  float64 `json:"deltaY"`
	ScrollX float64 `json:"scrollX"`
	ScrollY float64 `json:"scrollY"`
}

// Add returns the field-wise sum of two snapshots.
func (d Data) Add(other Data) Data {
	return Data{
		Presses: d.Presses + other.Presses,
		Clicks:  d.Clicks + other.Clicks,
		DeltaX:  d.DeltaX + other.DeltaX,
		DeltaY:  d.DeltaY + other.DeltaY,
		ScrollX: d.ScrollX + other.ScrollX,
		ScrollY: d.ScrollY + other.ScrollY,
	}
}

// IsZero reports whether the snapshot contains no activity.
func (d Data) IsZero() bool {
	return d == Data{}
}

// Heartbeat is one reported interval of activity, or of its absence.
// Periodic samples carry a zero duration anchored at the drain's wall-clock
// time; duration accrues only through merging, so a heartbeat's span never
// covers time that has not actually elapsed.
type Heartbeat struct {
	Timestamp time.Time
	Duration  time.Duration
	Data      Data
}

// End returns the instant at which the heartbeat's span finishes.
func (h Heartbeat) End() time.Time {
	return h.Timestamp.Add(h.Duration)
}

// Sink forwards heartbeats to the remote store. The supplied pulsetime lets
// the remote apply its own merge-on-arrival policy.
type Sink interface {
	SendHeartbeat(ctx context.Context, bucketID string, hb Heartbeat, pulsetime time.Duration) error
}

// Recorder observes heartbeats after the store accepted them.
type Recorder interface {
	Record(ctx context.Context, bucketID string, hb Heartbeat, merged bool) error
}
