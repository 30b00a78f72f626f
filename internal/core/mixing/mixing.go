// Package mixing implements the client side of the output-mixing protocol
// and a simulated coordinator.
//
// A session moves through idle -> registered -> mixing -> done. Every
// operation is a request message that the coordinator must acknowledge;
// a rejection or transport error moves the session to failed, and the next
// operation re-registers under a fresh session.
package mixing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/channel"
)

var (
	ErrSessionFailed = errors.New("mixing session failed")
	ErrSessionDone   = errors.New("mixing session closed")
	ErrRejected      = errors.New("coordinator rejected request")
	ErrBadAck        = errors.New("acknowledgement does not match request")
)

// Actions understood by coordinators.
const (
	ActionJoin    = "join"
	ActionShuffle = "shuffle"
	ActionRemix   = "remix"
	ActionLeave   = "leave"
)

// DefaultPool is joined implicitly by Shuffle and Remix.
const DefaultPool = "default"

// Coordinator is the protocol counterparty.
type Coordinator interface {
	// Exchange sends req and returns the matching acknowledgement.
	Exchange(ctx context.Context, req channel.Message) (channel.Message, error)
}

// Phase of a client session.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRegistered Phase = "registered"
	PhaseMixing     Phase = "mixing"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Receipt summarizes an acknowledged request.
type Receipt struct {
	Session string
	Action  string
	Round   int
	Detail  string
}

// Client drives one session against a coordinator.
type Client struct {
	mu      sync.Mutex
	id      string
	coord   Coordinator
	session string
	pool    string
	phase   Phase
	seq     int
}

// NewClient returns an idle client identified by id.
func NewClient(id string, coord Coordinator) *Client {
	return &Client{id: id, coord: coord, phase: PhaseIdle}
}

// Phase returns the current session phase.
func (c *Client) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Session returns the session id, empty before Join.
func (c *Client) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Join registers with pool. Joining again is a no-op for the same pool.
func (c *Client) Join(ctx context.Context, pool string) (Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joinLocked(ctx, pool)
}

func (c *Client) joinLocked(ctx context.Context, pool string) (Receipt, error) {
	if c.phase == PhaseDone {
		return Receipt{}, ErrSessionDone
	}
	if pool == "" {
		pool = DefaultPool
	}
	if c.activeLocked() && c.pool == pool {
		return Receipt{Session: c.session, Action: ActionJoin, Detail: "already registered with pool " + pool}, nil
	}
	c.session = uuid.NewString()
	c.pool = pool
	c.seq = 0
	r, err := c.requestLocked(ctx, ActionJoin, 0, pool)
	if err != nil {
		return r, err
	}
	c.phase = PhaseRegistered
	return r, nil
}

// Shuffle asks the coordinator to shuffle this client's outputs.
func (c *Client) Shuffle(ctx context.Context) (Receipt, error) {
	return c.mixing(ctx, ActionShuffle, 0)
}

// Remix runs one remix round.
func (c *Client) Remix(ctx context.Context, round int) (Receipt, error) {
	return c.mixing(ctx, ActionRemix, round)
}

func (c *Client) mixing(ctx context.Context, action string, round int) (Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseDone {
		return Receipt{}, ErrSessionDone
	}
	if !c.activeLocked() {
		if _, err := c.joinLocked(ctx, c.pool); err != nil {
			return Receipt{}, err
		}
	}
	r, err := c.requestLocked(ctx, action, round, nil)
	if err != nil {
		return r, err
	}
	c.phase = PhaseMixing
	return r, nil
}

// Leave ends the session. Leaving an idle or finished session is a no-op.
func (c *Client) Leave(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseIdle || c.phase == PhaseDone || c.phase == PhaseFailed {
		return nil
	}
	if _, err := c.requestLocked(ctx, ActionLeave, 0, nil); err != nil {
		return err
	}
	c.phase = PhaseDone
	return nil
}

func (c *Client) activeLocked() bool {
	return c.phase == PhaseRegistered || c.phase == PhaseMixing
}

func (c *Client) requestLocked(ctx context.Context, action string, round int, payload interface{}) (Receipt, error) {
	c.seq++
	req := channel.Message{
		ID:      c.session + "-" + strconv.Itoa(c.seq),
		Type:    channel.MessageTypeRequest,
		Source:  c.id,
		Target:  "coordinator",
		Session: c.session,
		Round:   round,
		Action:  action,
		Payload: payload,
	}
	ack, err := c.coord.Exchange(ctx, req)
	if err != nil {
		c.phase = PhaseFailed
		return Receipt{}, fmt.Errorf("%w: %w", ErrSessionFailed, err)
	}
	if ack.ID != req.ID || ack.Session != req.Session {
		c.phase = PhaseFailed
		return Receipt{}, fmt.Errorf("%w: %w", ErrSessionFailed, ErrBadAck)
	}
	if ack.Type == channel.MessageTypeError {
		c.phase = PhaseFailed
		return Receipt{}, fmt.Errorf("%w: %w: %v", ErrSessionFailed, ErrRejected, ack.Payload)
	}
	detail, _ := ack.Payload.(string)
	return Receipt{Session: c.session, Action: action, Round: round, Detail: detail}, nil
}
