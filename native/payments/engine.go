package payments

import (
	"errors"
	"math/big"
	"time"

	"agrichain/core/events"
	"agrichain/core/types"
	"agrichain/crypto"
	"agrichain/native/access"
	"agrichain/native/common"
)

// KindPaymentCreation is the rate-limited action kind for CreatePayment.
const KindPaymentCreation = "payments.create"

// ModuleName keys the durable pause switch for this module.
const ModuleName = "payments"

const (
	// DefaultDailyLimit caps escrow creations per actor per rolling window.
	DefaultDailyLimit uint32 = 20
	// DefaultFeeBps is the platform fee applied when no override is stored.
	DefaultFeeBps uint32 = 200
	// MaxFeeBps bounds SetPlatformFee.
	MaxFeeBps uint32 = 1_000
	// DefaultGracePeriod is how long after creation the payer may cancel.
	DefaultGracePeriod int64 = 60 * 60
)

var (
	// ErrUnauthorized rejects callers who are neither a party to the payment
	// nor an authorized dispute resolver.
	ErrUnauthorized = errors.New("payments engine: unauthorized")
	// ErrPaymentNotFound is returned when the payment id is unknown.
	ErrPaymentNotFound = errors.New("payments engine: payment not found")
	// ErrInvalidState rejects transitions not valid for the payment's
	// current status.
	ErrInvalidState = errors.New("payments engine: invalid payment state")
	// ErrInvalidAmount rejects a nil, zero or negative escrow amount.
	ErrInvalidAmount = errors.New("payments engine: amount must be greater than zero")
	// ErrInvalidReleaseTime rejects a release time at or before now.
	ErrInvalidReleaseTime = errors.New("payments engine: release time must be in the future")
	// ErrInvalidPayee rejects the zero identity as payee.
	ErrInvalidPayee = errors.New("payments engine: invalid payee address")
	// ErrSameParty rejects payer and payee being the same identity.
	ErrSameParty = errors.New("payments engine: payer and payee cannot be the same")
	// ErrInvalidOrderRef rejects an empty order reference.
	ErrInvalidOrderRef = errors.New("payments engine: order reference must not be empty")
	// ErrTooEarly rejects a release before the timelock has elapsed.
	ErrTooEarly = errors.New("payments engine: release time not reached")
	// ErrGracePeriodExpired rejects a cancellation after the grace period.
	ErrGracePeriodExpired = errors.New("payments engine: grace period expired")
	// ErrInvalidFee rejects a platform fee above MaxFeeBps.
	ErrInvalidFee = errors.New("payments engine: fee exceeds maximum")
	// ErrInvalidWallet rejects the zero identity as the platform wallet.
	ErrInvalidWallet = errors.New("payments engine: invalid platform wallet")

	errNilState = errors.New("payments engine: state not configured")
	errNilGate  = errors.New("payments engine: multisig gate not configured")
)

type engineState interface {
	common.PauseView
	PaymentPut(*Payment) error
	PaymentGet(id uint64) (*Payment, bool, error)
	NextPaymentID() (uint64, error)
	PausePut(module string, paused bool) error
	PlatformFeeGet() (uint32, bool, error)
	PlatformFeePut(uint32) error
	PlatformWalletGet() ([20]byte, bool, error)
	PlatformWalletPut([20]byte) error
}

// Authorizer is the administrative gate admin operations pass through before
// applying their effect.
type Authorizer interface {
	Authorize(caller [20]byte) error
	SetAuthority(caller, authority [20]byte) error
	SetEnabled(caller [20]byte, enabled bool) error
}

// AccessControl is the slice of the access gate consulted for dispute
// resolution rights.
type AccessControl interface {
	HasRole(actor [20]byte, role access.Role) bool
}

// RateGate is the slice of the rate limiter consumed on payment creation.
type RateGate interface {
	Consume(actor [20]byte, kind string, dailyLimit uint32) (uint32, error)
}

type paymentsEvent struct {
	evt *types.Event
}

func (e paymentsEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e paymentsEvent) Event() *types.Event { return e.evt }

// Engine owns escrow payment records, the time-locked release flow, dispute
// handling and the multisig-gated fee administration.
type Engine struct {
	state       engineState
	gate        Authorizer
	accessGate  AccessControl
	rateGate    RateGate
	emitter     events.Emitter
	nowFn       func() int64
	dailyLimit  uint32
	gracePeriod int64
}

func NewEngine() *Engine {
	return &Engine{
		emitter:     events.NoopEmitter{},
		nowFn:       func() int64 { return time.Now().Unix() },
		dailyLimit:  DefaultDailyLimit,
		gracePeriod: DefaultGracePeriod,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetGate configures the multisig gate wrapped around admin operations.
func (e *Engine) SetGate(gate Authorizer) { e.gate = gate }

// SetAccessGate configures the role gate used for dispute resolution rights.
func (e *Engine) SetAccessGate(gate AccessControl) { e.accessGate = gate }

// SetRateGate configures the per-actor rate limiter.
func (e *Engine) SetRateGate(gate RateGate) { e.rateGate = gate }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetDailyLimit overrides the per-window payment creation cap.
func (e *Engine) SetDailyLimit(limit uint32) {
	if limit > 0 {
		e.dailyLimit = limit
	}
}

// SetGracePeriod overrides the cancellation grace period.
func (e *Engine) SetGracePeriod(seconds int64) {
	if seconds > 0 {
		e.gracePeriod = seconds
	}
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(paymentsEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) loadPayment(id uint64) (*Payment, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	payment, ok, err := e.state.PaymentGet(id)
	if err != nil {
		return nil, common.WrapPersist(err)
	}
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (e *Engine) isResolver(caller [20]byte) bool {
	return e.accessGate != nil && e.accessGate.HasRole(caller, access.RoleAdmin)
}

// PlatformFee returns the fee rate applied to newly created payments.
func (e *Engine) PlatformFee() (uint32, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	fee, ok, err := e.state.PlatformFeeGet()
	if err != nil {
		return 0, common.WrapPersist(err)
	}
	if !ok {
		return DefaultFeeBps, nil
	}
	return fee, nil
}

// CreatePayment escrows amount from the caller for payee until releaseTime.
// Input validation runs before the rate limiter so a malformed call never
// burns quota.
func (e *Engine) CreatePayment(caller [20]byte, orderRef string, payee [20]byte, releaseTime int64, amount *big.Int) (*Payment, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.state, ModuleName); err != nil {
		return nil, err
	}
	if orderRef == "" {
		return nil, ErrInvalidOrderRef
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if payee == crypto.ZeroAddress {
		return nil, ErrInvalidPayee
	}
	if payee == caller {
		return nil, ErrSameParty
	}
	now := e.now()
	if releaseTime <= now {
		return nil, ErrInvalidReleaseTime
	}
	if e.rateGate != nil {
		if _, err := e.rateGate.Consume(caller, KindPaymentCreation, e.dailyLimit); err != nil {
			return nil, err
		}
	}
	feeBps, err := e.PlatformFee()
	if err != nil {
		return nil, err
	}
	id, err := e.state.NextPaymentID()
	if err != nil {
		return nil, common.WrapPersist(err)
	}
	payment := &Payment{
		ID:          id,
		OrderRef:    orderRef,
		Payer:       caller,
		Payee:       payee,
		Amount:      new(big.Int).Set(amount),
		FeeBps:      feeBps,
		ReleaseTime: releaseTime,
		CreatedAt:   now,
		Status:      PaymentStatusCreated,
	}
	if err := e.state.PaymentPut(payment); err != nil {
		return nil, common.WrapPersist(err)
	}
	e.emit(events.PaymentCreated{
		PaymentID:   id,
		OrderRef:    orderRef,
		Payer:       caller,
		Payee:       payee,
		Amount:      payment.Amount,
		ReleaseTime: releaseTime,
		CreatedAt:   now,
	}.Event())
	return payment.Clone(), nil
}

// Release moves a created payment to Released once the timelock has elapsed.
// The payee or an authorized dispute resolver may call it; it succeeds at most
// once per payment.
func (e *Engine) Release(caller [20]byte, paymentID uint64) error {
	payment, err := e.loadPayment(paymentID)
	if err != nil {
		return err
	}
	if payment.Status != PaymentStatusCreated {
		return ErrInvalidState
	}
	if caller != payment.Payee && !e.isResolver(caller) {
		return ErrUnauthorized
	}
	now := e.now()
	if now < payment.ReleaseTime {
		return ErrTooEarly
	}
	return e.releasePayment(payment, now)
}

func (e *Engine) releasePayment(payment *Payment, now int64) error {
	fee, payeeAmount := payment.FeeSplit()
	payment.Status = PaymentStatusReleased
	if err := e.state.PaymentPut(payment); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.PaymentReleased{
		PaymentID:   payment.ID,
		Payee:       payment.Payee,
		PayeeAmount: payeeAmount,
		FeeAmount:   fee,
		ReleasedAt:  now,
	}.Event())
	return nil
}

func (e *Engine) refundPayment(payment *Payment) error {
	payment.Status = PaymentStatusRefunded
	if err := e.state.PaymentPut(payment); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.PaymentRefunded{
		PaymentID: payment.ID,
		Payer:     payment.Payer,
		Amount:    payment.Amount,
	}.Event())
	return nil
}

// RequestRefund lets the payer contest a created payment, moving it to
// Disputed until a resolver decides the outcome.
func (e *Engine) RequestRefund(caller [20]byte, paymentID uint64) error {
	payment, err := e.loadPayment(paymentID)
	if err != nil {
		return err
	}
	if caller != payment.Payer {
		return ErrUnauthorized
	}
	if payment.Status != PaymentStatusCreated {
		return ErrInvalidState
	}
	payment.Status = PaymentStatusDisputed
	if err := e.state.PaymentPut(payment); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.DisputeRaised{PaymentID: paymentID, RaisedBy: caller}.Event())
	return nil
}

// ResolveDispute settles a disputed payment. Only a dispute resolver may call
// it; favorPayee releases the escrow to the payee, otherwise it refunds the
// payer.
func (e *Engine) ResolveDispute(caller [20]byte, paymentID uint64, favorPayee bool) error {
	payment, err := e.loadPayment(paymentID)
	if err != nil {
		return err
	}
	if !e.isResolver(caller) {
		return ErrUnauthorized
	}
	if payment.Status != PaymentStatusDisputed {
		return ErrInvalidState
	}
	outcome := "refunded"
	if favorPayee {
		outcome = "released"
		if err := e.releasePayment(payment, e.now()); err != nil {
			return err
		}
	} else {
		if err := e.refundPayment(payment); err != nil {
			return err
		}
	}
	e.emit(events.DisputeResolved{PaymentID: paymentID, Outcome: outcome, ResolvedBy: caller}.Event())
	return nil
}

// Cancel refunds a created payment to the payer within the grace period.
func (e *Engine) Cancel(caller [20]byte, paymentID uint64) error {
	payment, err := e.loadPayment(paymentID)
	if err != nil {
		return err
	}
	if caller != payment.Payer {
		return ErrUnauthorized
	}
	if payment.Status != PaymentStatusCreated {
		return ErrInvalidState
	}
	now := e.now()
	if now-payment.CreatedAt > e.gracePeriod {
		return ErrGracePeriodExpired
	}
	payment.Status = PaymentStatusRefunded
	if err := e.state.PaymentPut(payment); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.PaymentCancelled{
		PaymentID:   paymentID,
		Payer:       caller,
		Amount:      payment.Amount,
		CancelledAt: now,
	}.Event())
	return nil
}

// GetPayment returns a copy of the payment record.
func (e *Engine) GetPayment(paymentID uint64) (*Payment, error) {
	payment, err := e.loadPayment(paymentID)
	if err != nil {
		return nil, err
	}
	return payment.Clone(), nil
}

// --- administrative surface, multisig gated ---

func (e *Engine) authorize(caller [20]byte) error {
	if e == nil || e.gate == nil {
		return errNilGate
	}
	return e.gate.Authorize(caller)
}

// SetPlatformFee updates the fee rate applied to future payments.
func (e *Engine) SetPlatformFee(caller [20]byte, feeBps uint32) error {
	if err := e.authorize(caller); err != nil {
		return err
	}
	if feeBps > MaxFeeBps {
		return ErrInvalidFee
	}
	if err := e.state.PlatformFeePut(feeBps); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.PlatformFeeUpdated{FeeBps: feeBps, UpdatedBy: caller}.Event())
	return nil
}

// SetPlatformWallet updates the fee recipient.
func (e *Engine) SetPlatformWallet(caller [20]byte, wallet [20]byte) error {
	if err := e.authorize(caller); err != nil {
		return err
	}
	if wallet == crypto.ZeroAddress {
		return ErrInvalidWallet
	}
	if err := e.state.PlatformWalletPut(wallet); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.PlatformWalletUpdated{Wallet: wallet, UpdatedBy: caller}.Event())
	return nil
}

// Pause stops payment creation until Unpause.
func (e *Engine) Pause(caller [20]byte) error {
	if err := e.authorize(caller); err != nil {
		return err
	}
	if err := e.state.PausePut(ModuleName, true); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.PaymentsPaused{By: caller}.Event())
	return nil
}

// Unpause re-enables payment creation.
func (e *Engine) Unpause(caller [20]byte) error {
	if err := e.authorize(caller); err != nil {
		return err
	}
	if err := e.state.PausePut(ModuleName, false); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.PaymentsUnpaused{By: caller}.Event())
	return nil
}

// SetMultiSigWallet configures the designated authority on the gate. Gate
// errors (invalid address, only-authority) propagate verbatim.
func (e *Engine) SetMultiSigWallet(caller [20]byte, wallet [20]byte) error {
	if e == nil || e.gate == nil {
		return errNilGate
	}
	if err := e.gate.SetAuthority(caller, wallet); err != nil {
		return err
	}
	e.emit(events.MultiSigWalletUpdated{Wallet: wallet, UpdatedBy: caller}.Event())
	return nil
}

// SetMultiSigEnabled switches the gate on or off. Gate errors (authority not
// set, only-authority) propagate verbatim.
func (e *Engine) SetMultiSigEnabled(caller [20]byte, enabled bool) error {
	if e == nil || e.gate == nil {
		return errNilGate
	}
	if err := e.gate.SetEnabled(caller, enabled); err != nil {
		return err
	}
	e.emit(events.MultiSigEnabledUpdated{Enabled: enabled, UpdatedBy: caller}.Event())
	return nil
}
