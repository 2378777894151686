package gesture

import (
	"context"
	"log/slog"
	"sync"

	"github.com/loomengine/loom/internal/logging"
	"github.com/loomengine/loom/pkg/domain"
)

// ConnectionCreator is the slice of the graph store the controller needs.
type ConnectionCreator interface {
	AddConnection(ctx context.Context, draft domain.ConnectionDraft) (domain.Connection, error)
}

// Controller drives one gesture machine for an open workflow view. Only
// one instance is active per view: a single in-flight gesture at a time.
//
// Confirm returns the machine to Idle before the creation request
// resolves, so a new gesture can technically start while the request is
// in flight. The store's duplicate pre-check keeps a repeat of the same
// pair from producing a second edge.
type Controller struct {
	mu     sync.Mutex
	state  State
	store  ConnectionCreator
	logger *slog.Logger
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger configures a logger for gesture transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a controller in the Idle state.
func NewController(store ConnectionCreator, opts ...Option) *Controller {
	c := &Controller{
		state:  Idle(),
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current machine state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ClickOutput feeds a click on a node's output socket to the machine.
func (c *Controller) ClickOutput(nodeID string) Effect {
	return c.step(Event{Kind: EventClickOutput, NodeID: nodeID})
}

// ClickInput feeds a click on a node's input socket to the machine.
func (c *Controller) ClickInput(nodeID string) Effect {
	return c.step(Event{Kind: EventClickInput, NodeID: nodeID})
}

// Cancel discards the gesture. Purely local; no request is issued.
func (c *Controller) Cancel() Effect {
	return c.step(Event{Kind: EventCancel})
}

func (c *Controller) step(e Event) Effect {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, effect := Transition(c.state, e)
	if next.Kind != c.state.Kind {
		c.logger.Debug("gesture transition",
			"from", c.state.Kind.String(), "to", next.Kind.String(), "node_id", e.NodeID)
	}
	c.state = next
	return effect
}

// Confirm accepts the pending pair and issues exactly one
// connection-creation request, output→input. If the machine is not in
// Pending, Confirm is a no-op returning EffectNone.
//
// The request failure leaves local state exactly as before the attempt:
// the machine is already back in Idle and the store applied nothing.
func (c *Controller) Confirm(ctx context.Context) (domain.Connection, Effect, error) {
	effect := c.step(Event{Kind: EventConfirm})
	if effect.Kind != EffectSubmit {
		return domain.Connection{}, effect, nil
	}

	conn, err := c.store.AddConnection(ctx, domain.ConnectionDraft{
		SourceNodeID: effect.SourceNodeID,
		SourcePort:   domain.PortOutput,
		TargetNodeID: effect.TargetNodeID,
		TargetPort:   domain.PortInput,
	})
	if err != nil {
		return domain.Connection{}, effect, err
	}
	return conn, effect, nil
}
