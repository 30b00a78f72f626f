package mixing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/channel"
)

// SimulatedConfig configures a SimulatedCoordinator.
type SimulatedConfig struct {
	// Delay is applied to every request before it is acknowledged.
	Delay time.Duration
	// Reject lists actions that are answered with an error message.
	Reject map[string]string
}

// SimulatedCoordinator acknowledges requests after a fixed delay. It talks
// to clients over an in-memory pipe served by a background goroutine.
type SimulatedCoordinator struct {
	cfg  SimulatedConfig
	pipe *channel.Pipe

	mu     sync.Mutex // serializes exchanges so acks pair with requests
	pools  map[string]int
	done   chan struct{}
	closed sync.Once
	cancel context.CancelFunc
}

// NewSimulatedCoordinator starts a coordinator. Call Close to stop it.
func NewSimulatedCoordinator(cfg SimulatedConfig) *SimulatedCoordinator {
	ctx, cancel := context.WithCancel(context.Background())
	s := &SimulatedCoordinator{
		cfg:    cfg,
		pipe:   channel.NewPipe(channel.InMemoryChannelConfig{BufferSize: 1, Timeout: time.Hour}),
		pools:  make(map[string]int),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go s.serve(ctx)
	return s
}

// Exchange implements Coordinator.
func (s *SimulatedCoordinator) Exchange(ctx context.Context, req channel.Message) (channel.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pipe.Requests.Send(ctx, req); err != nil {
		return channel.Message{}, err
	}
	for {
		ack, err := s.pipe.Responses.Receive(ctx)
		if err != nil {
			return channel.Message{}, err
		}
		// drop acks left over from an earlier cancelled exchange
		if ack.ID == req.ID {
			return ack, nil
		}
	}
}

// Close stops the serving goroutine.
func (s *SimulatedCoordinator) Close() error {
	s.closed.Do(func() {
		s.cancel()
		_ = s.pipe.Requests.Close()
		<-s.done
		_ = s.pipe.Responses.Close()
	})
	return nil
}

func (s *SimulatedCoordinator) serve(ctx context.Context) {
	defer close(s.done)
	for {
		req, err := s.pipe.Requests.Receive(ctx)
		if errors.Is(err, channel.ErrTimeout) {
			continue
		}
		if err != nil {
			return
		}
		reply := s.handle(ctx, req)
		if err := s.pipe.Responses.Send(ctx, reply); err != nil {
			return
		}
	}
}

func (s *SimulatedCoordinator) handle(ctx context.Context, req channel.Message) channel.Message {
	if s.cfg.Delay > 0 {
		t := time.NewTimer(s.cfg.Delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return req.Reply(channel.MessageTypeError, "coordinator shutting down")
		}
	}
	if reason, ok := s.cfg.Reject[req.Action]; ok {
		return req.Reply(channel.MessageTypeError, reason)
	}

	switch req.Action {
	case ActionJoin:
		pool, _ := req.Payload.(string)
		s.pools[pool]++
		return req.Reply(channel.MessageTypeAck, fmt.Sprintf("joined pool %s (%d participants)", pool, s.pools[pool]))
	case ActionShuffle:
		return req.Reply(channel.MessageTypeAck, "outputs shuffled")
	case ActionRemix:
		return req.Reply(channel.MessageTypeAck, fmt.Sprintf("remix round %d complete", req.Round))
	case ActionLeave:
		return req.Reply(channel.MessageTypeAck, "left session")
	}
	return req.Reply(channel.MessageTypeError, "unknown action "+req.Action)
}
