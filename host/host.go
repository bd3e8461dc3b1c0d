// Package host dispatches proof requests for the registered guest programs.
// It resolves a program reference, packages the input, proves locally or
// against a remote service, and verifies the receipt before the journal is
// ever decoded.
package host

import (
	"context"
	"fmt"

	"github.com/shaorongqiang/bitcoin-block-verify/bonsai"
	"github.com/shaorongqiang/bitcoin-block-verify/guestio"
	"github.com/shaorongqiang/bitcoin-block-verify/guests"
	"github.com/shaorongqiang/bitcoin-block-verify/zkvm"
)

// RemoteProver drives one proof job on a remote service and returns the raw
// receipt bytes. *bonsai.Client implements it.
type RemoteProver interface {
	ProveRemote(ctx context.Context, image, input []byte) ([]byte, error)
}

// Deps are the dispatcher's collaborators, overridable for tests. A nil
// Remote falls back to a bonsai client built from the config, or to local
// execution when the config names no remote.
type Deps struct {
	Remote RemoteProver
}

// Request is one dispatch: which program, and optionally what input. A nil
// Input asks only for the program's identity.
type Request struct {
	Program string
	Input   *guestio.Input
}

// Result carries the resolved identity and, for proof runs, the verified
// journal and its decoded output.
type Result struct {
	ImageID zkvm.ImageID
	Journal []byte
	Output  *guests.Output
}

// Dispatcher routes proof requests per its config.
type Dispatcher struct {
	cfg    Config
	local  *zkvm.Executor
	remote RemoteProver
}

// New builds a dispatcher with the full guest registry installed.
func New(cfg Config) (*Dispatcher, error) {
	return NewWithDeps(cfg, Deps{})
}

// NewWithDeps builds a dispatcher with explicit collaborators.
func NewWithDeps(cfg Config, deps Deps) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []zkvm.Option
	if cfg.ProveLocally {
		opts = append(opts, zkvm.WithProofGeneration())
	}
	exec := zkvm.NewExecutor(opts...)
	if err := guests.Install(exec); err != nil {
		return nil, err
	}

	d := &Dispatcher{cfg: cfg, local: exec, remote: deps.Remote}
	if d.remote == nil && cfg.Remote != nil {
		var copts []bonsai.Option
		if cfg.PollInterval > 0 {
			copts = append(copts, bonsai.WithPollInterval(cfg.PollInterval))
		}
		client, err := bonsai.New(*cfg.Remote, copts...)
		if err != nil {
			return nil, err
		}
		d.remote = client
	}
	return d, nil
}

// Run resolves and dispatches one request. Errors from resolution,
// packaging, proving, and verification pass through untouched so callers
// can match them with errors.Is.
func (d *Dispatcher) Run(ctx context.Context, req Request) (*Result, error) {
	entry, err := guests.Resolve(req.Program)
	if err != nil {
		return nil, err
	}
	if req.Input == nil {
		return &Result{ImageID: entry.ImageID}, nil
	}

	buf, err := req.Input.Encode()
	if err != nil {
		return nil, err
	}

	var rcpt *zkvm.Receipt
	if d.remote != nil {
		raw, err := d.remote.ProveRemote(ctx, entry.Image, buf)
		if err != nil {
			return nil, err
		}
		if rcpt, err = zkvm.DecodeReceipt(raw); err != nil {
			return nil, err
		}
		if err := rcpt.Verify(entry.ImageID); err != nil {
			return nil, err
		}
	} else {
		if rcpt, err = d.local.Prove(ctx, entry.ImageID, buf); err != nil {
			return nil, err
		}
		if err := d.checkLocal(rcpt, entry.ImageID); err != nil {
			return nil, err
		}
	}

	out, err := guests.DecodeJournal(rcpt.Journal)
	if err != nil {
		return nil, err
	}
	return &Result{ImageID: entry.ImageID, Journal: rcpt.Journal, Output: &out}, nil
}

// checkLocal verifies a locally produced receipt. Without proof generation
// the receipt is execution-only and carries no seal; the image id claim is
// still checked before the journal is touched.
func (d *Dispatcher) checkLocal(rcpt *zkvm.Receipt, want zkvm.ImageID) error {
	if d.cfg.ProveLocally {
		return rcpt.Verify(want)
	}
	if rcpt.Claim.ImageID != want {
		return fmt.Errorf("%w: receipt claims %s, want %s", zkvm.ErrImageIDMismatch, rcpt.Claim.ImageID, want)
	}
	return nil
}
