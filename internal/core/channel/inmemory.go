package channel

import (
	"context"
	"sync"
	"time"

	imetrics "github.com/nickthelegend/cashlabs-flow-sub000/internal/infrastructure/metrics"
)

// InMemoryChannel provides in-process message passing
// PRINCIPLES:
// - KISS: Simple channel with basic operations
// - Thread-safe: Uses proper synchronization
type InMemoryChannel struct {
	messages chan Message
	closed   bool
	mu       sync.RWMutex
	timeout  time.Duration
}

// InMemoryChannelConfig holds configuration for InMemoryChannel
type InMemoryChannelConfig struct {
	BufferSize int           // Buffer size for the channel
	Timeout    time.Duration // Default timeout for operations
}

// NewInMemoryChannel creates a new in-memory channel
func NewInMemoryChannel(config InMemoryChannelConfig) *InMemoryChannel {
	if config.BufferSize <= 0 {
		config.BufferSize = 16
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &InMemoryChannel{
		messages: make(chan Message, config.BufferSize),
		timeout:  config.Timeout,
	}
}

// Send sends a message to the channel
func (c *InMemoryChannel) Send(ctx context.Context, message Message) error {
	if err := message.Validate(); err != nil {
		return err
	}

	// Held for the whole send so Close cannot close the Go channel under us.
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrChannelClosed
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case c.messages <- message:
		imetrics.ChannelSent("inmemory", 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTimeout
	}
}

// Receive receives a message from the channel
func (c *InMemoryChannel) Receive(ctx context.Context) (Message, error) {
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case msg, ok := <-c.messages:
		if !ok {
			return Message{}, ErrChannelClosed
		}
		imetrics.ChannelReceived("inmemory", 1)
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-timer.C:
		return Message{}, ErrTimeout
	}
}

// Close closes the channel. Buffered messages can still be received.
func (c *InMemoryChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.messages)
	return nil
}

// Len returns the number of messages currently in the channel
func (c *InMemoryChannel) Len() int {
	return len(c.messages)
}

// IsClosed returns whether the channel is closed
func (c *InMemoryChannel) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Pipe is a bidirectional pair of channels.
type Pipe struct {
	Requests  *InMemoryChannel
	Responses *InMemoryChannel
}

// NewPipe returns a pipe whose directions share config.
func NewPipe(config InMemoryChannelConfig) *Pipe {
	return &Pipe{
		Requests:  NewInMemoryChannel(config),
		Responses: NewInMemoryChannel(config),
	}
}

// Close closes both directions.
func (p *Pipe) Close() error {
	_ = p.Requests.Close()
	return p.Responses.Close()
}
