// Package bus provides engine event transport. The Redis-backed
// implementation lives in the redis subpackage; Noop is used when no
// broker is configured and in tests.
package bus

import "context"

// Noop is a SignalBus that drops every publish and serves no messages.
type Noop struct{}

// Publish discards the payload.
func (Noop) Publish(ctx context.Context, channel string, payload []byte) error {
	return nil
}

// Subscribe returns a channel that never delivers and is closed when the
// context is cancelled.
func (Noop) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	out := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}
