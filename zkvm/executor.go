package zkvm

import (
	"context"
	"fmt"
	"sort"
)

// Executor runs registered guest programs in-process. It is the local
// proving backend: synchronous, one run per call, no queueing. With proof
// generation enabled the resulting receipts are sealed and verifiable;
// without it they are execution-only and carry the journal alone.
type Executor struct {
	programs map[ImageID]GuestFunc
	seal     bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithProofGeneration makes the executor seal every receipt it produces.
func WithProofGeneration() Option {
	return func(e *Executor) { e.seal = true }
}

// WithProgram registers a guest at construction.
func WithProgram(id ImageID, fn GuestFunc) Option {
	return func(e *Executor) { e.MustRegister(id, fn) }
}

// NewExecutor returns an executor with no programs registered.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{programs: make(map[ImageID]GuestFunc)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds a guest under its image id.
func (e *Executor) Register(id ImageID, fn GuestFunc) error {
	if fn == nil {
		return fmt.Errorf("zkvm: nil guest for image %s", id)
	}
	if _, dup := e.programs[id]; dup {
		return fmt.Errorf("zkvm: image %s already registered", id)
	}
	e.programs[id] = fn
	return nil
}

// MustRegister is Register that panics on error, for wiring at startup.
func (e *Executor) MustRegister(id ImageID, fn GuestFunc) {
	if err := e.Register(id, fn); err != nil {
		panic(err)
	}
}

// ImageIDs lists the registered programs in stable order.
func (e *Executor) ImageIDs() []ImageID {
	ids := make([]ImageID, 0, len(e.programs))
	for id := range e.programs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Prove runs the guest registered under imageID on the packaged input.
// Guest faults of any kind, including panics, surface as ErrExecutionFailed
// with no receipt. The run itself is synchronous; ctx is only consulted
// before it starts.
func (e *Executor) Prove(ctx context.Context, imageID ImageID, input []byte) (rcpt *Receipt, err error) {
	fn, ok := e.programs[imageID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotRegistered, imageID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			rcpt = nil
			err = fmt.Errorf("%w: guest panic: %v", ErrExecutionFailed, r)
		}
	}()

	env := &Env{input: input}
	if err := fn(env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutionFailed, err)
	}
	if !env.committed {
		return nil, fmt.Errorf("%w: guest exited without committing", ErrExecutionFailed)
	}

	rcpt = &Receipt{Journal: env.journal, Claim: Claim{ImageID: imageID}}
	if e.seal {
		rcpt.Claim.Seal = sealFor(imageID, env.journal)
	}
	return rcpt, nil
}
