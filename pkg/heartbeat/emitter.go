package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrOutOfOrder reports a candidate whose timestamp does not advance past
// the previously emitted heartbeat. Gap arithmetic is undefined for such
// candidates, so they are rejected outright.
var ErrOutOfOrder = errors.New("heartbeat out of order")

// Options configure an Emitter for one bucket's reporting session.
type Options struct {
	BucketID  string
	Pulsetime time.Duration
	Sink      Sink
}

// Emitter owns the most recently emitted heartbeat for a single bucket and
// decides whether each candidate extends it or starts a new record. It is
// not safe for concurrent use; the scheduler goroutine owns it.
type Emitter struct {
	bucketID  string
	pulsetime time.Duration
	sink      Sink
	last      *Heartbeat
}

// NewEmitter validates options and returns an emitter with no prior state.
func NewEmitter(opts Options) (*Emitter, error) {
	if opts.BucketID == "" {
		return nil, errors.New("bucket id must not be empty")
	}
	if opts.Pulsetime < 0 {
		return nil, errors.New("pulsetime must not be negative")
	}
	if opts.Sink == nil {
		return nil, errors.New("sink must be provided")
	}
	return &Emitter{
		bucketID:  opts.BucketID,
		pulsetime: opts.Pulsetime,
		sink:      opts.Sink,
	}, nil
}

// BucketID returns the bucket this emitter reports into.
func (e *Emitter) BucketID() string {
	return e.bucketID
}

// Last returns the most recently emitted heartbeat, if any.
func (e *Emitter) Last() (Heartbeat, bool) {
	if e.last == nil {
		return Heartbeat{}, false
	}
	return *e.last, true
}

// Submit applies the pulsetime policy to candidate and forwards the outcome
// to the sink. The returned flag reports whether the candidate was folded
// into the prior heartbeat. Merge state advances only when the sink accepts
// the send, so a failed submission is dropped at the boundary and later
// candidates compute their gap against data the store actually holds.
func (e *Emitter) Submit(ctx context.Context, candidate Heartbeat) (bool, error) {
	if e.last == nil {
		if err := e.sink.SendHeartbeat(ctx, e.bucketID, candidate, e.pulsetime); err != nil {
			return false, err
		}
		e.last = &candidate
		return false, nil
	}

	if !candidate.Timestamp.After(e.last.Timestamp) {
		return false, fmt.Errorf("%w: candidate %s is not after prior %s",
			ErrOutOfOrder, candidate.Timestamp.Format(time.RFC3339Nano), e.last.Timestamp.Format(time.RFC3339Nano))
	}

	gap := candidate.Timestamp.Sub(e.last.End())
	if gap > e.pulsetime {
		if err := e.sink.SendHeartbeat(ctx, e.bucketID, candidate, e.pulsetime); err != nil {
			return false, err
		}
		e.last = &candidate
		return false, nil
	}

	merged := Heartbeat{
		Timestamp: e.last.Timestamp,
		Duration:  candidate.End().Sub(e.last.Timestamp),
		Data:      e.last.Data.Add(candidate.Data),
	}
	// A candidate entirely inside the prior's span must not shrink it.
	if merged.Duration < e.last.Duration {
		merged.Duration = e.last.Duration
	}
	if err := e.sink.SendHeartbeat(ctx, e.bucketID, merged, e.pulsetime); err != nil {
		return false, err
	}
	e.last = &merged
	return true, nil
}
