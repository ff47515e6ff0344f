// Package accel arbitrates the single accelerator shared by the speech
// model and the inference model. At most one owner holds it at a time.
package accel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Paranoid-AF/saycmd/logging"
)

// Owner identifies a model that can hold the accelerator.
type Owner int

const (
	None Owner = iota
	Transcription
	Inference
)

func (o Owner) String() string {
	switch o {
	case None:
		return "none"
	case Transcription:
		return "transcription"
	case Inference:
		return "inference"
	default:
		return fmt.Sprintf("owner(%d)", int(o))
	}
}

func (o Owner) valid() bool {
	return o == Transcription || o == Inference
}

var (
	// ErrHeld is returned when acquiring while another owner, or the same one, holds the accelerator.
	ErrHeld = errors.New("accelerator is held")
	// ErrNotHolder is returned when releasing without holding.
	ErrNotHolder = errors.New("owner does not hold the accelerator")
	// ErrUnknownOwner is returned for owners outside the known set.
	ErrUnknownOwner = errors.New("unknown accelerator owner")
)

// Resident is a model that occupies accelerator memory while its owner holds it.
type Resident interface {
	// Evict frees the accelerator.
	Evict() error
	// Restore loads the model back onto the accelerator.
	Restore() error
}

// Arbiter grants exclusive, non-reentrant use of the accelerator.
type Arbiter struct {
	mu        sync.Mutex
	holder    Owner
	residents map[Owner]Resident
}

// New returns an Arbiter with no holder and no residents.
func New() *Arbiter {
	return &Arbiter{residents: make(map[Owner]Resident)}
}

// Register attaches the model that is restored on Acquire and evicted on Release.
func (a *Arbiter) Register(owner Owner, r Resident) error {
	if !owner.valid() {
		return fmt.Errorf("%w: %s", ErrUnknownOwner, owner)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.residents[owner] = r
	return nil
}

// Holder returns the current holder, or None.
func (a *Arbiter) Holder() Owner {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.holder
}

// Acquire takes the accelerator for owner. If the owner's resident fails to
// restore, the accelerator stays free.
func (a *Arbiter) Acquire(owner Owner) error {
	if !owner.valid() {
		return fmt.Errorf("%w: %s", ErrUnknownOwner, owner)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.holder != None {
		return fmt.Errorf("%w by %s", ErrHeld, a.holder)
	}
	if r := a.residents[owner]; r != nil {
		if err := r.Restore(); err != nil {
			return fmt.Errorf("restore %s: %w", owner, err)
		}
	}
	a.holder = owner
	logger := logging.GetLogger("accel")
	logger.Debug().Stringer("owner", owner).Msg("acquired")
	return nil
}

// Release gives the accelerator up. If the owner's resident fails to evict,
// the owner keeps holding it.
func (a *Arbiter) Release(owner Owner) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.releaseLocked(owner)
}

func (a *Arbiter) releaseLocked(owner Owner) error {
	if a.holder != owner || owner == None {
		return fmt.Errorf("%w: %s", ErrNotHolder, owner)
	}
	if r := a.residents[owner]; r != nil {
		if err := r.Evict(); err != nil {
			return fmt.Errorf("evict %s: %w", owner, err)
		}
	}
	a.holder = None
	logger := logging.GetLogger("accel")
	logger.Debug().Stringer("owner", owner).Msg("released")
	return nil
}

// releaseIfHolding releases owner only when it is the holder.
func (a *Arbiter) releaseIfHolding(owner Owner) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.holder != owner {
		return false, nil
	}
	if err := a.releaseLocked(owner); err != nil {
		return false, err
	}
	return true, nil
}

// Lend hands the accelerator from one owner to another for the duration of
// fn. If from holds it, from is released first and reacquired afterwards on
// every exit path, panics included. Errors from fn and from the hand-back
// are joined.
func (a *Arbiter) Lend(ctx context.Context, from, to Owner, fn func(context.Context) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !from.valid() || !to.valid() {
		return fmt.Errorf("%w: lend %s to %s", ErrUnknownOwner, from, to)
	}

	lent, err := a.releaseIfHolding(from)
	if err != nil {
		return err
	}
	giveBack := func() error {
		if !lent {
			return nil
		}
		return a.Acquire(from)
	}

	if err := a.Acquire(to); err != nil {
		return errors.Join(err, giveBack())
	}

	defer func() {
		r := recover()
		err = errors.Join(err, a.Release(to), giveBack())
		if r != nil {
			panic(r)
		}
	}()
	return fn(ctx)
}
