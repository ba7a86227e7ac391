package payments

import "math/big"

// PaymentStatus tracks the escrow lifecycle. Transitions out of Created are
// one-directional; Released and Refunded are terminal, Disputed resolves to
// one of the two.
type PaymentStatus uint8

const (
	PaymentStatusCreated PaymentStatus = iota
	PaymentStatusReleased
	PaymentStatusRefunded
	PaymentStatusDisputed
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentStatusCreated:
		return "created"
	case PaymentStatusReleased:
		return "released"
	case PaymentStatusRefunded:
		return "refunded"
	case PaymentStatusDisputed:
		return "disputed"
	default:
		return "unknown"
	}
}

// Valid reports whether the status value is within the supported range.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusCreated, PaymentStatusReleased, PaymentStatusRefunded, PaymentStatusDisputed:
		return true
	default:
		return false
	}
}

// Payment is an escrow record. Amount is immutable after creation and the fee
// rate is frozen at creation time, so a later fee change never alters an
// outstanding escrow.
type Payment struct {
	ID          uint64
	OrderRef    string
	Payer       [20]byte
	Payee       [20]byte
	Amount      *big.Int
	FeeBps      uint32
	ReleaseTime int64
	CreatedAt   int64
	Status      PaymentStatus
}

// Clone returns a deep copy so callers can safely mutate the copy without
// affecting the stored instance.
func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Amount != nil {
		clone.Amount = new(big.Int).Set(p.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// FeeSplit computes the platform fee and payee remainder for the payment's
// frozen fee rate.
func (p *Payment) FeeSplit() (fee, payeeAmount *big.Int) {
	amount := big.NewInt(0)
	if p.Amount != nil {
		amount = new(big.Int).Set(p.Amount)
	}
	fee = new(big.Int).Mul(amount, big.NewInt(int64(p.FeeBps)))
	fee.Div(fee, big.NewInt(10_000))
	payeeAmount = new(big.Int).Sub(amount, fee)
	return fee, payeeAmount
}
