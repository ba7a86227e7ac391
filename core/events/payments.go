package events

import (
	"math/big"
	"strconv"

	"agrichain/core/types"
	"agrichain/crypto"
)

const (
	TypePaymentCreated         = "payments.created"
	TypePaymentReleased        = "payments.released"
	TypePaymentRefunded        = "payments.refunded"
	TypePaymentCancelled       = "payments.cancelled"
	TypeDisputeRaised          = "payments.disputeRaised"
	TypeDisputeResolved        = "payments.disputeResolved"
	TypePlatformFeeUpdated     = "payments.platformFeeUpdated"
	TypePlatformWalletUpdated  = "payments.platformWalletUpdated"
	TypePaymentsPaused         = "payments.paused"
	TypePaymentsUnpaused       = "payments.unpaused"
	TypeMultiSigWalletUpdated  = "payments.multiSigWalletUpdated"
	TypeMultiSigEnabledUpdated = "payments.multiSigEnabledUpdated"
)

type PaymentCreated struct {
	PaymentID   uint64
	OrderRef    string
	Payer       [20]byte
	Payee       [20]byte
	Amount      *big.Int
	ReleaseTime int64
	CreatedAt   int64
}

func (PaymentCreated) EventType() string { return TypePaymentCreated }

func (e PaymentCreated) Event() *types.Event {
	return &types.Event{
		Type: TypePaymentCreated,
		Attributes: map[string]string{
			"paymentId":   uintToString(e.PaymentID),
			"orderRef":    e.OrderRef,
			"payer":       crypto.MustAddress(e.Payer).String(),
			"payee":       crypto.MustAddress(e.Payee).String(),
			"amount":      formatAmount(e.Amount),
			"releaseTime": intToString(e.ReleaseTime),
			"createdAt":   intToString(e.CreatedAt),
		},
	}
}

type PaymentReleased struct {
	PaymentID   uint64
	Payee       [20]byte
	PayeeAmount *big.Int
	FeeAmount   *big.Int
	ReleasedAt  int64
}

func (PaymentReleased) EventType() string { return TypePaymentReleased }

func (e PaymentReleased) Event() *types.Event {
	return &types.Event{
		Type: TypePaymentReleased,
		Attributes: map[string]string{
			"paymentId":   uintToString(e.PaymentID),
			"payee":       crypto.MustAddress(e.Payee).String(),
			"payeeAmount": formatAmount(e.PayeeAmount),
			"feeAmount":   formatAmount(e.FeeAmount),
			"releasedAt":  intToString(e.ReleasedAt),
		},
	}
}

type PaymentRefunded struct {
	PaymentID uint64
	Payer     [20]byte
	Amount    *big.Int
}

func (PaymentRefunded) EventType() string { return TypePaymentRefunded }

func (e PaymentRefunded) Event() *types.Event {
	return &types.Event{
		Type: TypePaymentRefunded,
		Attributes: map[string]string{
			"paymentId": uintToString(e.PaymentID),
			"payer":     crypto.MustAddress(e.Payer).String(),
			"amount":    formatAmount(e.Amount),
		},
	}
}

type PaymentCancelled struct {
	PaymentID   uint64
	Payer       [20]byte
	Amount      *big.Int
	CancelledAt int64
}

func (PaymentCancelled) EventType() string { return TypePaymentCancelled }

func (e PaymentCancelled) Event() *types.Event {
	return &types.Event{
		Type: TypePaymentCancelled,
		Attributes: map[string]string{
			"paymentId":   uintToString(e.PaymentID),
			"payer":       crypto.MustAddress(e.Payer).String(),
			"amount":      formatAmount(e.Amount),
			"cancelledAt": intToString(e.CancelledAt),
		},
	}
}

type DisputeRaised struct {
	PaymentID uint64
	RaisedBy  [20]byte
}

func (DisputeRaised) EventType() string { return TypeDisputeRaised }

func (e DisputeRaised) Event() *types.Event {
	return &types.Event{
		Type: TypeDisputeRaised,
		Attributes: map[string]string{
			"paymentId": uintToString(e.PaymentID),
			"raisedBy":  crypto.MustAddress(e.RaisedBy).String(),
		},
	}
}

type DisputeResolved struct {
	PaymentID  uint64
	Outcome    string
	ResolvedBy [20]byte
}

func (DisputeResolved) EventType() string { return TypeDisputeResolved }

func (e DisputeResolved) Event() *types.Event {
	return &types.Event{
		Type: TypeDisputeResolved,
		Attributes: map[string]string{
			"paymentId":  uintToString(e.PaymentID),
			"outcome":    e.Outcome,
			"resolvedBy": crypto.MustAddress(e.ResolvedBy).String(),
		},
	}
}

type PlatformFeeUpdated struct {
	FeeBps    uint32
	UpdatedBy [20]byte
}

func (PlatformFeeUpdated) EventType() string { return TypePlatformFeeUpdated }

func (e PlatformFeeUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePlatformFeeUpdated,
		Attributes: map[string]string{
			"feeBps":    strconv.FormatUint(uint64(e.FeeBps), 10),
			"updatedBy": crypto.MustAddress(e.UpdatedBy).String(),
		},
	}
}

type PlatformWalletUpdated struct {
	Wallet    [20]byte
	UpdatedBy [20]byte
}

func (PlatformWalletUpdated) EventType() string { return TypePlatformWalletUpdated }

func (e PlatformWalletUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePlatformWalletUpdated,
		Attributes: map[string]string{
			"wallet":    crypto.MustAddress(e.Wallet).String(),
			"updatedBy": crypto.MustAddress(e.UpdatedBy).String(),
		},
	}
}

type PaymentsPaused struct {
	By [20]byte
}

func (PaymentsPaused) EventType() string { return TypePaymentsPaused }

func (e PaymentsPaused) Event() *types.Event {
	return &types.Event{
		Type:       TypePaymentsPaused,
		Attributes: map[string]string{"by": crypto.MustAddress(e.By).String()},
	}
}

type PaymentsUnpaused struct {
	By [20]byte
}

func (PaymentsUnpaused) EventType() string { return TypePaymentsUnpaused }

func (e PaymentsUnpaused) Event() *types.Event {
	return &types.Event{
		Type:       TypePaymentsUnpaused,
		Attributes: map[string]string{"by": crypto.MustAddress(e.By).String()},
	}
}

type MultiSigWalletUpdated struct {
	Wallet    [20]byte
	UpdatedBy [20]byte
}

func (MultiSigWalletUpdated) EventType() string { return TypeMultiSigWalletUpdated }

func (e MultiSigWalletUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeMultiSigWalletUpdated,
		Attributes: map[string]string{
			"wallet":    crypto.MustAddress(e.Wallet).String(),
			"updatedBy": crypto.MustAddress(e.UpdatedBy).String(),
		},
	}
}

type MultiSigEnabledUpdated struct {
	Enabled   bool
	UpdatedBy [20]byte
}

func (MultiSigEnabledUpdated) EventType() string { return TypeMultiSigEnabledUpdated }

func (e MultiSigEnabledUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeMultiSigEnabledUpdated,
		Attributes: map[string]string{
			"enabled":   strconv.FormatBool(e.Enabled),
			"updatedBy": crypto.MustAddress(e.UpdatedBy).String(),
		},
	}
}
