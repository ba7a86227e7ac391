package state

import "agrichain/native/access"

type storedVerification struct {
	IdentityVerified bool
	KYC              uint8
}

// VerificationGet loads the actor's verification record. The middle return is
// false when the actor has never been touched by a verification operation.
func (m *Manager) VerificationGet(addr [20]byte) (access.Verification, bool, error) {
	var stored storedVerification
	ok, err := m.getRecord(addrKey(verificationPrefix, addr), &stored)
	if err != nil || !ok {
		return access.Verification{}, false, err
	}
	return access.Verification{
		IdentityVerified: stored.IdentityVerified,
		KYC:              access.KYCStatus(stored.KYC),
	}, true, nil
}

// VerificationPut stores the actor's verification record.
func (m *Manager) VerificationPut(addr [20]byte, v access.Verification) error {
	return m.putRecord(addrKey(verificationPrefix, addr), &storedVerification{
		IdentityVerified: v.IdentityVerified,
		KYC:              uint8(v.KYC),
	})
}
