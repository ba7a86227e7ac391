package state

import (
	"fmt"
	"math/big"

	"agrichain/native/payments"
)

type storedPayment struct {
	ID          uint64
	OrderRef    string
	Payer       [20]byte
	Payee       [20]byte
	Amount      *big.Int
	FeeBps      uint32
	ReleaseTime *big.Int
	CreatedAt   *big.Int
	Status      uint8
}

// PaymentPut stores the escrow payment record under its id.
func (m *Manager) PaymentPut(p *payments.Payment) error {
	if p == nil {
		return fmt.Errorf("state: nil payment")
	}
	return m.putRecord(idKey(paymentPrefix, p.ID), &storedPayment{
		ID:          p.ID,
		OrderRef:    p.OrderRef,
		Payer:       p.Payer,
		Payee:       p.Payee,
		Amount:      nonNil(p.Amount),
		FeeBps:      p.FeeBps,
		ReleaseTime: big.NewInt(p.ReleaseTime),
		CreatedAt:   big.NewInt(p.CreatedAt),
		Status:      uint8(p.Status),
	})
}

// PaymentGet loads the payment with the given id.
func (m *Manager) PaymentGet(id uint64) (*payments.Payment, bool, error) {
	var stored storedPayment
	ok, err := m.getRecord(idKey(paymentPrefix, id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	if !payments.PaymentStatus(stored.Status).Valid() {
		return nil, false, fmt.Errorf("state: invalid payment status %d", stored.Status)
	}
	payment := &payments.Payment{
		ID:       stored.ID,
		OrderRef: stored.OrderRef,
		Payer:    stored.Payer,
		Payee:    stored.Payee,
		Amount:   nonNil(stored.Amount),
		FeeBps:   stored.FeeBps,
		Status:   payments.PaymentStatus(stored.Status),
	}
	if stored.ReleaseTime != nil {
		payment.ReleaseTime = stored.ReleaseTime.Int64()
	}
	if stored.CreatedAt != nil {
		payment.CreatedAt = stored.CreatedAt.Int64()
	}
	return payment, true, nil
}

// NextPaymentID assigns the next monotonic payment id, starting at 1.
func (m *Manager) NextPaymentID() (uint64, error) {
	return m.nextSequence(paymentSeqKey)
}

// IsPaused reports whether the named module's pause switch is on. Read errors
// read as not paused so a storage hiccup cannot brick queries; mutating
// operations surface the error on the next write instead.
func (m *Manager) IsPaused(module string) bool {
	var paused bool
	ok, err := m.getRecord(prefixedKey(pausePrefix, []byte(module)), &paused)
	if err != nil || !ok {
		return false
	}
	return paused
}

// PausePut stores the named module's pause switch.
func (m *Manager) PausePut(module string, paused bool) error {
	return m.putRecord(prefixedKey(pausePrefix, []byte(module)), paused)
}

// PlatformFeeGet loads the stored fee rate. The middle return is false when
// no override has ever been set.
func (m *Manager) PlatformFeeGet() (uint32, bool, error) {
	var fee uint32
	ok, err := m.getRecord(platformFeeKey, &fee)
	if err != nil || !ok {
		return 0, false, err
	}
	return fee, true, nil
}

// PlatformFeePut stores the fee rate.
func (m *Manager) PlatformFeePut(fee uint32) error {
	return m.putRecord(platformFeeKey, fee)
}

// PlatformWalletGet loads the fee recipient. The middle return is false when
// none has been configured.
func (m *Manager) PlatformWalletGet() ([20]byte, bool, error) {
	var wallet [20]byte
	ok, err := m.getRecord(platformWalletKey, &wallet)
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	return wallet, true, nil
}

// PlatformWalletPut stores the fee recipient.
func (m *Manager) PlatformWalletPut(wallet [20]byte) error {
	return m.putRecord(platformWalletKey, wallet)
}
