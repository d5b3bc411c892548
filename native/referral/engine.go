package referral

import (
	"errors"
	"fmt"
	"sync"
	"time"

	coreerrors "refchain/core/errors"
	"refchain/core/events"
	"refchain/core/types"
	"refchain/native/common"
)

// ModuleName identifies the referral module for pause controls.
const ModuleName = "referral"

type engineState interface {
	ReferralProgramGet(addr [20]byte) (*Program, bool, error)
	ReferralProgramPut(program *Program) error
	ReferralProgramIndex(authority, program [20]byte) error
	ReferralEligibilityGet(program [20]byte) (*Eligibility, bool, error)
	ReferralEligibilityPut(elig *Eligibility) error
	ReferralParticipantGet(addr [20]byte) (*Participant, bool, error)
	ReferralParticipantPut(participant *Participant) error
	ReferralParticipantIndex(program, participant [20]byte) error
	Balance(addr [20]byte, asset types.Asset) (uint64, error)
	Transfer(from, to [20]byte, asset types.Asset, amount uint64) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// Engine applies referral program operations. Mutations are serialised by an
// engine-wide lock and each one either commits all of its writes to the
// backing state or none of them.
type Engine struct {
	mu      sync.Mutex
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
	pauses  common.PauseView
	domain  string
}

// NewEngine constructs a referral engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
		domain:  DefaultServiceDomain,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) {
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetPauses wires the pause view consulted before every mutation.
func (e *Engine) SetPauses(p common.PauseView) {
	e.mu.Lock()
	e.pauses = p
	e.mu.Unlock()
}

// SetServiceDomain sets the host used when rendering referral links.
func (e *Engine) SetServiceDomain(domain string) error {
	if err := validateServiceDomain(domain); err != nil {
		return err
	}
	e.mu.Lock()
	e.domain = domain
	e.mu.Unlock()
	return nil
}

func (e *Engine) now() uint64 {
	if e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// apply runs fn under the engine lock against a state snapshot. Events queued
// by fn are published only when it succeeds; on failure every write is
// reverted.
func (e *Engine) apply(fn func(pending *events.Buffer) error) error {
	if e == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	pending := &events.Buffer{}
	snapshot := e.state.Snapshot()
	if err := fn(pending); err != nil {
		e.state.RevertToSnapshot(snapshot)
		return err
	}
	for _, evt := range pending.Drain() {
		e.emitter.Emit(evt)
	}
	return nil
}

func (e *Engine) view(fn func() error) error {
	if e == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return errNilState
	}
	return fn()
}

func (e *Engine) loadProgram(addr [20]byte) (*Program, error) {
	program, ok, err := e.state.ReferralProgramGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok || program == nil {
		return nil, ErrProgramNotFound
	}
	return program, nil
}

func (e *Engine) loadEligibility(program [20]byte) (*Eligibility, error) {
	elig, ok, err := e.state.ReferralEligibilityGet(program)
	if err != nil {
		return nil, err
	}
	if !ok || elig == nil {
		return nil, fmt.Errorf("%w: eligibility missing", ErrProgramNotFound)
	}
	return elig, nil
}

func (e *Engine) loadParticipant(addr [20]byte) (*Participant, error) {
	participant, ok, err := e.state.ReferralParticipantGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok || participant == nil {
		return nil, ErrParticipantNotFound
	}
	return participant, nil
}

func (e *Engine) transfer(from, to [20]byte, asset types.Asset, amount uint64, shortfall *Error) error {
	err := e.state.Transfer(from, to, asset, amount)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, coreerrors.ErrInsufficientBalance):
		return fmt.Errorf("%w: %v", shortfall, err)
	case errors.Is(err, coreerrors.ErrBalanceOverflow):
		return fmt.Errorf("%w: %v", ErrNumericOverflow, err)
	default:
		return err
	}
}

// Program returns the program stored at addr.
func (e *Engine) Program(addr [20]byte) (*Program, error) {
	var out *Program
	err := e.view(func() error {
		program, err := e.loadProgram(addr)
		if err != nil {
			return err
		}
		out = program.Clone()
		return nil
	})
	return out, err
}

// Eligibility returns the eligibility policy of the program at addr.
func (e *Engine) Eligibility(program [20]byte) (*Eligibility, error) {
	var out *Eligibility
	err := e.view(func() error {
		if _, err := e.loadProgram(program); err != nil {
			return err
		}
		elig, err := e.loadEligibility(program)
		if err != nil {
			return err
		}
		out = elig.Clone()
		return nil
	})
	return out, err
}

// Participant returns the participant record stored at addr.
func (e *Engine) Participant(addr [20]byte) (*Participant, error) {
	var out *Participant
	err := e.view(func() error {
		participant, err := e.loadParticipant(addr)
		if err != nil {
			return err
		}
		out = participant.Clone()
		return nil
	})
	return out, err
}

// ParticipantByOwner returns the participant record of owner in program.
func (e *Engine) ParticipantByOwner(program, owner [20]byte) (*Participant, error) {
	return e.Participant(ParticipantAddress(program, owner))
}

// EscrowBalance returns the custody balance held for the program's reward
// asset.
func (e *Engine) EscrowBalance(program [20]byte) (uint64, error) {
	var out uint64
	err := e.view(func() error {
		p, err := e.loadProgram(program)
		if err != nil {
			return err
		}
		out, err = e.state.Balance(p.Escrow(), p.Asset())
		return err
	})
	return out, err
}
