package access

import (
	"errors"

	"agrichain/core/events"
	"agrichain/core/types"
	"agrichain/native/common"
)

var (
	// ErrUnauthorized is returned when the caller lacks the admin role
	// required for a mutating operation. Mutations fail closed rather than
	// silently no-op.
	ErrUnauthorized = errors.New("access engine: unauthorized")
	// ErrUnknownRole rejects grants for roles outside the closed set.
	ErrUnknownRole = errors.New("access engine: unknown role")

	errNilState = errors.New("access engine: state not configured")
)

type engineState interface {
	RoleGrant(role string, addr [20]byte) error
	RoleRevoke(role string, addr [20]byte) error
	HasRole(role string, addr [20]byte) bool
	VerificationGet(addr [20]byte) (Verification, bool, error)
	VerificationPut(addr [20]byte, v Verification) error
}

type accessEvent struct {
	evt *types.Event
}

func (e accessEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e accessEvent) Event() *types.Event { return e.evt }

// Engine is the role and verification gate every other module consults before
// mutating state.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(accessEvent{evt: event})
}

func (e *Engine) requireAdmin(caller [20]byte) error {
	if e.state == nil {
		return errNilState
	}
	if !e.state.HasRole(string(RoleAdmin), caller) {
		return ErrUnauthorized
	}
	return nil
}

// BootstrapAdmin grants the admin role without a caller check. It exists for
// genesis wiring only; every runtime grant goes through GrantRole.
func (e *Engine) BootstrapAdmin(actor [20]byte) error {
	if e.state == nil {
		return errNilState
	}
	return common.WrapPersist(e.state.RoleGrant(string(RoleAdmin), actor))
}

// GrantRole assigns role to actor. The granter must hold admin. Granting a
// role the actor already holds is a no-op that still succeeds.
func (e *Engine) GrantRole(granter, actor [20]byte, role Role) error {
	if !role.Valid() {
		return ErrUnknownRole
	}
	if err := e.requireAdmin(granter); err != nil {
		return err
	}
	if e.state.HasRole(string(role), actor) {
		return nil
	}
	if err := e.state.RoleGrant(string(role), actor); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.RoleGranted{Actor: actor, Role: string(role), GrantedBy: granter}.Event())
	return nil
}

// RevokeRole removes role from actor; symmetric to GrantRole.
func (e *Engine) RevokeRole(revoker, actor [20]byte, role Role) error {
	if !role.Valid() {
		return ErrUnknownRole
	}
	if err := e.requireAdmin(revoker); err != nil {
		return err
	}
	if !e.state.HasRole(string(role), actor) {
		return nil
	}
	if err := e.state.RoleRevoke(string(role), actor); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.RoleRevoked{Actor: actor, Role: string(role), RevokedBy: revoker}.Event())
	return nil
}

// VerifyUser marks the actor's identity as verified. Admin only.
func (e *Engine) VerifyUser(admin, actor [20]byte) error {
	if err := e.requireAdmin(admin); err != nil {
		return err
	}
	record, _, err := e.state.VerificationGet(actor)
	if err != nil {
		return common.WrapPersist(err)
	}
	record.IdentityVerified = true
	if err := e.state.VerificationPut(actor, record); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.UserVerified{Actor: actor, VerifiedBy: admin}.Event())
	return nil
}

// ApproveKYC moves the actor's KYC review to approved. Admin only.
func (e *Engine) ApproveKYC(admin, actor [20]byte) error {
	return e.setKYC(admin, actor, KYCApproved)
}

// RejectKYC moves the actor's KYC review to rejected. Admin only.
func (e *Engine) RejectKYC(admin, actor [20]byte) error {
	return e.setKYC(admin, actor, KYCRejected)
}

func (e *Engine) setKYC(admin, actor [20]byte, status KYCStatus) error {
	if err := e.requireAdmin(admin); err != nil {
		return err
	}
	record, _, err := e.state.VerificationGet(actor)
	if err != nil {
		return common.WrapPersist(err)
	}
	record.KYC = status
	if err := e.state.VerificationPut(actor, record); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.KYCUpdated{Actor: actor, Status: status.String(), UpdatedBy: admin}.Event())
	return nil
}

// HasRole reports whether actor holds role. Queries never fail; a storage
// error reads as "no role", matching the fail-closed posture of the callers.
func (e *Engine) HasRole(actor [20]byte, role Role) bool {
	if e == nil || e.state == nil {
		return false
	}
	return e.state.HasRole(string(role), actor)
}

// IsEligible reports whether actor is identity-verified with approved KYC.
func (e *Engine) IsEligible(actor [20]byte) bool {
	if e == nil || e.state == nil {
		return false
	}
	record, ok, err := e.state.VerificationGet(actor)
	if err != nil || !ok {
		return false
	}
	return record.Eligible()
}

// Verification returns the actor's verification record for queries; a missing
// record reads as the zero value.
func (e *Engine) Verification(actor [20]byte) Verification {
	if e == nil || e.state == nil {
		return Verification{}
	}
	record, _, err := e.state.VerificationGet(actor)
	if err != nil {
		return Verification{}
	}
	return record
}
