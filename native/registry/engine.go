package registry

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"agrichain/core/events"
	"agrichain/core/types"
	"agrichain/crypto"
	"agrichain/native/access"
	"agrichain/native/common"
)

// KindProductRegistration is the rate-limited action kind for RegisterProduct.
const KindProductRegistration = "registry.register"

// DefaultRegistrationLimit caps how many products one actor may register per
// rolling window.
const DefaultRegistrationLimit uint32 = 50

const (
	// DefaultRevealDelay is the mandatory wait between a price commitment and
	// its reveal.
	DefaultRevealDelay int64 = 5 * 60
	// DefaultExpiryWindow is how long a commitment stays revealable.
	DefaultExpiryWindow int64 = 60 * 60
)

var (
	// ErrUnauthorized rejects calls from actors lacking the required role,
	// eligibility, or ownership.
	ErrUnauthorized = errors.New("registry engine: unauthorized")
	// ErrProductNotFound is returned when the product id is unknown.
	ErrProductNotFound = errors.New("registry engine: product not found")
	// ErrInvalidState rejects status transitions not valid for the product's
	// current status.
	ErrInvalidState = errors.New("registry engine: invalid product state")
	// ErrInvalidInput rejects malformed registration parameters before any
	// state mutation.
	ErrInvalidInput = errors.New("registry engine: invalid input")
	// ErrInvalidRecipient rejects ownership transfer to the zero identity or
	// back to the current owner.
	ErrInvalidRecipient = errors.New("registry engine: invalid recipient")

	// ErrNoCommitment is returned when a reveal arrives with no live
	// commitment for the product.
	ErrNoCommitment = errors.New("registry engine: no commitment found")
	// ErrRevealTooEarly is returned while the reveal delay has not elapsed.
	ErrRevealTooEarly = errors.New("registry engine: reveal delay not met")
	// ErrCommitmentExpired is returned once the expiry window has elapsed,
	// even for an otherwise correct reveal.
	ErrCommitmentExpired = errors.New("registry engine: commitment expired")
	// ErrInvalidReveal is returned when the recomputed digest does not match
	// the stored commitment.
	ErrInvalidReveal = errors.New("registry engine: invalid reveal")

	errNilState = errors.New("registry engine: state not configured")
)

type engineState interface {
	ProductPut(*Product) error
	ProductGet(id uint64) (*Product, bool, error)
	ProductCount() (uint64, error)
	NextProductID() (uint64, error)
	TransferAppend(*TransferRecord) error
	TransfersGet(productID uint64) ([]*TransferRecord, error)
}

// AccessControl is the slice of the access gate the registry consults.
type AccessControl interface {
	HasRole(actor [20]byte, role access.Role) bool
	IsEligible(actor [20]byte) bool
}

// RateGate is the slice of the rate limiter the registry consumes.
type RateGate interface {
	Consume(actor [20]byte, kind string, dailyLimit uint32) (uint32, error)
}

type registryEvent struct {
	evt *types.Event
}

func (e registryEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e registryEvent) Event() *types.Event { return e.evt }

// Engine owns product records, the approval workflow, ownership transfer and
// the commit-reveal price-update protocol.
type Engine struct {
	state             engineState
	accessGate        AccessControl
	rateGate          RateGate
	emitter           events.Emitter
	nowFn             func() int64
	revealDelay       int64
	expiryWindow      int64
	registrationLimit uint32
}

func NewEngine() *Engine {
	return &Engine{
		emitter:           events.NoopEmitter{},
		nowFn:             func() int64 { return time.Now().Unix() },
		revealDelay:       DefaultRevealDelay,
		expiryWindow:      DefaultExpiryWindow,
		registrationLimit: DefaultRegistrationLimit,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAccessGate configures the role/verification gate consulted before
// mutations.
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

// SetCommitWindows overrides the reveal delay and expiry window. Non-positive
// values keep the current setting.
func (e *Engine) SetCommitWindows(revealDelay, expiryWindow int64) {
	if revealDelay > 0 {
		e.revealDelay = revealDelay
	}
	if expiryWindow > 0 {
		e.expiryWindow = expiryWindow
	}
}

// SetRegistrationLimit overrides the per-window registration cap.
func (e *Engine) SetRegistrationLimit(limit uint32) {
	if limit > 0 {
		e.registrationLimit = limit
	}
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(registryEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) loadProduct(id uint64) (*Product, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	product, ok, err := e.state.ProductGet(id)
	if err != nil {
		return nil, common.WrapPersist(err)
	}
	if !ok {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func validateRegistration(name, category string, quantity uint64, unit string, basePrice, price *big.Int) error {
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}
	if category == "" {
		return fmt.Errorf("%w: category must not be empty", ErrInvalidInput)
	}
	if quantity == 0 {
		return fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidInput)
	}
	if unit == "" {
		return fmt.Errorf("%w: unit must not be empty", ErrInvalidInput)
	}
	if basePrice == nil || basePrice.Sign() <= 0 {
		return fmt.Errorf("%w: base price must be greater than zero", ErrInvalidInput)
	}
	if price == nil || price.Sign() <= 0 {
		return fmt.Errorf("%w: price must be greater than zero", ErrInvalidInput)
	}
	return nil
}

// RegisterProduct creates a new product in status Pending owned by the
// caller. The caller must hold the farmer role and have cleared verification,
// and registration counts against the caller's rolling-window quota.
func (e *Engine) RegisterProduct(caller [20]byte, name, category string, quantity uint64, unit string, basePrice, price *big.Int, metadataRef string) (*Product, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.accessGate == nil || !e.accessGate.HasRole(caller, access.RoleFarmer) {
		return nil, ErrUnauthorized
	}
	if !e.accessGate.IsEligible(caller) {
		return nil, ErrUnauthorized
	}
	if err := validateRegistration(name, category, quantity, unit, basePrice, price); err != nil {
		return nil, err
	}
	if e.rateGate != nil {
		if _, err := e.rateGate.Consume(caller, KindProductRegistration, e.registrationLimit); err != nil {
			return nil, err
		}
	}
	id, err := e.state.NextProductID()
	if err != nil {
		return nil, common.WrapPersist(err)
	}
	now := e.now()
	product := &Product{
		ID:           id,
		Owner:        caller,
		Name:         name,
		Category:     category,
		Quantity:     quantity,
		Unit:         unit,
		BasePrice:    new(big.Int).Set(basePrice),
		PricePerUnit: new(big.Int).Set(price),
		MetadataRef:  metadataRef,
		Status:       ProductPending,
		RegisteredAt: now,
	}
	if err := e.state.ProductPut(product); err != nil {
		return nil, common.WrapPersist(err)
	}
	e.emit(events.ProductRegistered{
		ProductID:    id,
		Owner:        caller,
		Name:         name,
		Category:     category,
		Quantity:     quantity,
		Unit:         unit,
		BasePrice:    product.BasePrice,
		PricePerUnit: product.PricePerUnit,
		RegisteredAt: now,
	}.Event())
	return product.Clone(), nil
}

// ApproveProduct transitions a pending product to Approved. Admin only.
func (e *Engine) ApproveProduct(caller [20]byte, productID uint64) error {
	return e.reviewProduct(caller, productID, ProductApproved)
}

// RejectProduct transitions a pending product to Rejected. Admin only.
func (e *Engine) RejectProduct(caller [20]byte, productID uint64) error {
	return e.reviewProduct(caller, productID, ProductRejected)
}

func (e *Engine) reviewProduct(caller [20]byte, productID uint64, outcome ProductStatus) error {
	if e.accessGate == nil || !e.accessGate.HasRole(caller, access.RoleAdmin) {
		return ErrUnauthorized
	}
	product, err := e.loadProduct(productID)
	if err != nil {
		return err
	}
	if product.Status != ProductPending {
		return ErrInvalidState
	}
	product.Status = outcome
	if err := e.state.ProductPut(product); err != nil {
		return common.WrapPersist(err)
	}
	if outcome == ProductApproved {
		e.emit(events.ProductApproved{ProductID: productID, ApprovedBy: caller}.Event())
	} else {
		e.emit(events.ProductRejected{ProductID: productID, RejectedBy: caller}.Event())
	}
	return nil
}

// CommitPriceUpdate stores a hidden price commitment for an approved product.
// Only the current owner may commit, and a new commitment overwrites any
// previous one. Commits are not rate limited: they are cheap and bounded at
// one live commitment per product.
func (e *Engine) CommitPriceUpdate(caller [20]byte, productID uint64, commitmentHash [32]byte) error {
	product, err := e.loadProduct(productID)
	if err != nil {
		return err
	}
	if product.Owner != caller {
		return ErrUnauthorized
	}
	if product.Status != ProductApproved {
		return ErrInvalidState
	}
	now := e.now()
	product.Commitment = &Commitment{Committer: caller, Hash: commitmentHash, CommittedAt: now}
	if err := e.state.ProductPut(product); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.PriceCommitted{ProductID: productID, Committer: caller, Commitment: commitmentHash, CommittedAt: now}.Event())
	return nil
}

// RevealPriceUpdate applies a committed price change. Guards run in a fixed
// order: commitment presence, reveal delay, expiry window, digest match. Only
// a caller whose identity was bound into the digest can produce a valid
// reveal.
func (e *Engine) RevealPriceUpdate(caller [20]byte, productID uint64, newPrice *big.Int, salt [32]byte) error {
	product, err := e.loadProduct(productID)
	if err != nil {
		return err
	}
	commitment := product.Commitment
	if commitment == nil {
		return ErrNoCommitment
	}
	now := e.now()
	elapsed := now - commitment.CommittedAt
	if elapsed < e.revealDelay {
		return ErrRevealTooEarly
	}
	if elapsed > e.expiryWindow {
		return ErrCommitmentExpired
	}
	// A price wider than the 32-byte digest word cannot have been encoded
	// into any commitment, so it can never match.
	if newPrice != nil && newPrice.BitLen() > 256 {
		return ErrInvalidReveal
	}
	if CommitmentDigest(productID, newPrice, salt, caller) != commitment.Hash {
		return ErrInvalidReveal
	}
	if newPrice == nil {
		newPrice = big.NewInt(0)
	}
	product.PricePerUnit = new(big.Int).Set(newPrice)
	product.Commitment = nil
	if err := e.state.ProductPut(product); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.PriceRevealed{ProductID: productID, NewPrice: product.PricePerUnit, RevealedBy: caller, RevealedAt: now}.Event())
	return nil
}

// TransferOwnership moves an approved product to a new owner and appends a
// history record. The registry does not move funds; callers pair the transfer
// with an escrow payment created for the agreed price and pass its reference
// in paymentRef. Any live price commitment is dropped, since the previous
// owner must not be able to reveal against a product they no longer own.
func (e *Engine) TransferOwnership(caller [20]byte, productID uint64, newOwner [20]byte, locationRef string, agreedPrice *big.Int, paymentRef string) error {
	product, err := e.loadProduct(productID)
	if err != nil {
		return err
	}
	if product.Owner != caller {
		return ErrUnauthorized
	}
	if product.Status != ProductApproved {
		return ErrInvalidState
	}
	if newOwner == crypto.ZeroAddress || newOwner == caller {
		return ErrInvalidRecipient
	}
	now := e.now()
	product.Owner = newOwner
	product.Commitment = nil
	if err := e.state.ProductPut(product); err != nil {
		return common.WrapPersist(err)
	}
	record := &TransferRecord{
		ProductID:     productID,
		From:          caller,
		To:            newOwner,
		LocationRef:   locationRef,
		AgreedPrice:   cloneAmount(agreedPrice),
		PaymentRef:    paymentRef,
		TransferredAt: now,
	}
	if err := e.state.TransferAppend(record); err != nil {
		return common.WrapPersist(err)
	}
	e.emit(events.OwnershipTransferred{
		ProductID:   productID,
		From:        caller,
		To:          newOwner,
		LocationRef: locationRef,
		AgreedPrice: record.AgreedPrice,
		TransferAt:  now,
	}.Event())
	return nil
}

// GetProduct returns a copy of the product record.
func (e *Engine) GetProduct(productID uint64) (*Product, error) {
	product, err := e.loadProduct(productID)
	if err != nil {
		return nil, err
	}
	return product.Clone(), nil
}

// ProductCount returns how many products have been registered.
func (e *Engine) ProductCount() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	count, err := e.state.ProductCount()
	if err != nil {
		return 0, common.WrapPersist(err)
	}
	return count, nil
}

// TransferHistory returns the product's ownership history, oldest first.
func (e *Engine) TransferHistory(productID uint64) ([]*TransferRecord, error) {
	if _, err := e.loadProduct(productID); err != nil {
		return nil, err
	}
	records, err := e.state.TransfersGet(productID)
	if err != nil {
		return nil, common.WrapPersist(err)
	}
	out := make([]*TransferRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.Clone())
	}
	return out, nil
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
