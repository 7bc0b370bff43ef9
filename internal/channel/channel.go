// Package channel connects chat surfaces (Telegram, local web UI) to the
// message bus. Channels push inbound user text and deliver outbound replies;
// everything else happens behind the bus.
package channel

import (
	"context"

	"github.com/talkmira/mira/internal/bus"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Send(msg bus.OutboundMessage) error
}

// BaseChannel carries the shared bits: bus handle and the sender allow-list.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowFrom map[string]struct{}
}

func NewBaseChannel(name string, b *bus.MessageBus, allowFrom []string) BaseChannel {
	var allowed map[string]struct{}
	if len(allowFrom) > 0 {
		allowed = make(map[string]struct{}, len(allowFrom))
		for _, id := range allowFrom {
			allowed[id] = struct{}{}
		}
	}
	return BaseChannel{name: name, bus: b, allowFrom: allowed}
}

func (c *BaseChannel) Name() string { return c.name }

// IsAllowed reports whether a sender passes the allow-list. An empty list
// allows everyone.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if c.allowFrom == nil {
		return true
	}
	_, ok := c.allowFrom[senderID]
	return ok
}
