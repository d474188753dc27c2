package eventstream

import "context"

// Publisher publishes relayed frame events to an event stream backend.
type Publisher interface {
	PublishFrame(ctx context.Context, event *FrameRelayedEvent) error
	Close() error
}
