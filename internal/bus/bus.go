package bus

import (
	"context"
	"log"
	"sync"
)

// MessageBus decouples channels from the gateway loop. Inbound carries user
// messages toward the orchestrator; Outbound fans out to channel subscribers.
type MessageBus struct {
	Inbound  chan InboundMessage
	Outbound chan OutboundMessage

	mu          sync.RWMutex
	subscribers map[string]func(OutboundMessage)
}

func NewMessageBus(bufSize int) *MessageBus {
	if bufSize <= 0 {
		bufSize = 1
	}
	return &MessageBus{
		Inbound:     make(chan InboundMessage, bufSize),
		Outbound:    make(chan OutboundMessage, bufSize),
		subscribers: make(map[string]func(OutboundMessage)),
	}
}

func (b *MessageBus) SubscribeOutbound(channel string, handler func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[channel] = handler
}

func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		select {
		case msg := <-b.Outbound:
			b.mu.RLock()
			handler := b.subscribers[msg.Channel]
			b.mu.RUnlock()
			if handler == nil {
				log.Printf("[bus] no subscriber for channel %q, dropping outbound", msg.Channel)
				continue
			}
			handler(msg)
		case <-ctx.Done():
			return
		}
	}
}
