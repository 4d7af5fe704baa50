package input

import "context"

// Source delivers raw input events until ctx is done. Implementations
// serialize calls to emit; no two events are delivered concurrently.
type Source interface {
	Run(ctx context.Context, emit func(Event)) error
}

// SourceFunc adapts a function literal to the Source interface.
type SourceFunc func(ctx context.Context, emit func(Event)) error

// Run calls the underlying function.
func (f SourceFunc) Run(ctx context.Context, emit func(Event)) error {
	return f(ctx, emit)
}
