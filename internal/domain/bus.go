package domain

import "context"

// SignalBus provides best-effort pub/sub for engine events (position
// lifecycle, price updates). Implementations must tolerate slow or absent
// subscribers without blocking publishers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
