package state

import (
	"math/big"
	"testing"

	"agrichain/native/access"
	"agrichain/native/multisig"
	"agrichain/native/payments"
	"agrichain/native/ratelimit"
	"agrichain/native/registry"
	"agrichain/storage"
)

func newTestManager() *Manager {
	return NewManager(storage.NewMemDB())
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestRoleGrantRevokeRoundtrip(t *testing.T) {
	m := newTestManager()
	farmer := testAddr(0x01)

	if m.HasRole("farmer", farmer) {
		t.Fatalf("fresh store must have no roles")
	}
	if err := m.RoleGrant("farmer", farmer); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := m.RoleGrant("farmer", farmer); err != nil {
		t.Fatalf("duplicate grant: %v", err)
	}
	if !m.HasRole("farmer", farmer) {
		t.Fatalf("expected role after grant")
	}
	if m.HasRole("admin", farmer) {
		t.Fatalf("roles must not bleed across names")
	}
	if err := m.RoleRevoke("farmer", farmer); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if m.HasRole("farmer", farmer) {
		t.Fatalf("expected no role after revoke")
	}
	if err := m.RoleRevoke("farmer", farmer); err != nil {
		t.Fatalf("revoking absent member: %v", err)
	}
}

func TestVerificationRoundtrip(t *testing.T) {
	m := newTestManager()
	actor := testAddr(0x02)

	if _, ok, err := m.VerificationGet(actor); err != nil || ok {
		t.Fatalf("expected no record, got ok=%v err=%v", ok, err)
	}
	want := access.Verification{IdentityVerified: true, KYC: access.KYCApproved}
	if err := m.VerificationPut(actor, want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := m.VerificationGet(actor)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestRateWindowRoundtrip(t *testing.T) {
	m := newTestManager()
	actor := testAddr(0x03)

	if _, ok, err := m.RateWindowGet(actor, "registry.register"); err != nil || ok {
		t.Fatalf("expected no window, got ok=%v err=%v", ok, err)
	}
	want := ratelimit.Window{Count: 7, WindowStart: 1_700_000_000}
	if err := m.RateWindowPut(actor, "registry.register", want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := m.RateWindowGet(actor, "registry.register")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	// Kinds key independent windows for the same actor.
	if _, ok, _ := m.RateWindowGet(actor, "payments.create"); ok {
		t.Fatalf("window must not bleed across kinds")
	}
}

func TestProductRoundtripPreservesCommitment(t *testing.T) {
	m := newTestManager()

	id, err := m.NextProductID()
	if err != nil || id != 1 {
		t.Fatalf("expected first id 1, got %d (%v)", id, err)
	}
	var hash [32]byte
	hash[0] = 0xAB
	want := &registry.Product{
		ID:           id,
		Owner:        testAddr(0x04),
		Name:         "Tomatoes",
		Category:     "vegetables",
		Quantity:     100,
		Unit:         "kg",
		BasePrice:    big.NewInt(50),
		PricePerUnit: big.NewInt(60),
		MetadataRef:  "ipfs://meta",
		Status:       registry.ProductApproved,
		Commitment: &registry.Commitment{
			Committer:   testAddr(0x04),
			Hash:        hash,
			CommittedAt: 1_700_000_100,
		},
		RegisteredAt: 1_700_000_000,
	}
	if err := m.ProductPut(want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := m.ProductGet(id)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Name != want.Name || got.Owner != want.Owner || got.Status != want.Status {
		t.Fatalf("product fields lost: %+v", got)
	}
	if got.BasePrice.Cmp(want.BasePrice) != 0 || got.PricePerUnit.Cmp(want.PricePerUnit) != 0 {
		t.Fatalf("amounts lost: %+v", got)
	}
	if got.RegisteredAt != want.RegisteredAt {
		t.Fatalf("expected RegisteredAt %d, got %d", want.RegisteredAt, got.RegisteredAt)
	}
	if got.Commitment == nil || *got.Commitment != *want.Commitment {
		t.Fatalf("commitment lost: %+v", got.Commitment)
	}

	// Clearing the commitment must survive the roundtrip too.
	want.Commitment = nil
	if err := m.ProductPut(want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, _, _ = m.ProductGet(id)
	if got.Commitment != nil {
		t.Fatalf("expected cleared commitment, got %+v", got.Commitment)
	}
}

func TestProductSequenceIsMonotonic(t *testing.T) {
	m := newTestManager()

	for want := uint64(1); want <= 3; want++ {
		id, err := m.NextProductID()
		if err != nil || id != want {
			t.Fatalf("expected id %d, got %d (%v)", want, id, err)
		}
	}
	count, err := m.ProductCount()
	if err != nil || count != 3 {
		t.Fatalf("expected count 3, got %d (%v)", count, err)
	}
	if _, ok, _ := m.ProductGet(99); ok {
		t.Fatalf("unknown id must not resolve")
	}
}

func TestTransferHistoryAppendsInOrder(t *testing.T) {
	m := newTestManager()

	records := []*registry.TransferRecord{
		{ProductID: 1, From: testAddr(0x01), To: testAddr(0x02), AgreedPrice: big.NewInt(100), TransferredAt: 10},
		{ProductID: 1, From: testAddr(0x02), To: testAddr(0x03), AgreedPrice: big.NewInt(120), PaymentRef: "pay-2", TransferredAt: 20},
	}
	for _, record := range records {
		if err := m.TransferAppend(record); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := m.TransfersGet(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].To != records[0].To || got[1].To != records[1].To {
		t.Fatalf("history out of order")
	}
	if got[1].PaymentRef != "pay-2" || got[1].AgreedPrice.Cmp(big.NewInt(120)) != 0 {
		t.Fatalf("record fields lost: %+v", got[1])
	}
	if other, _ := m.TransfersGet(2); len(other) != 0 {
		t.Fatalf("history must not bleed across products")
	}
}

func TestPaymentRoundtrip(t *testing.T) {
	m := newTestManager()

	id, err := m.NextPaymentID()
	if err != nil || id != 1 {
		t.Fatalf("expected first id 1, got %d (%v)", id, err)
	}
	want := &payments.Payment{
		ID:          id,
		OrderRef:    "order-1",
		Payer:       testAddr(0x05),
		Payee:       testAddr(0x06),
		Amount:      big.NewInt(10_000),
		FeeBps:      200,
		ReleaseTime: 1_700_007_200,
		CreatedAt:   1_700_000_000,
		Status:      payments.PaymentStatusDisputed,
	}
	if err := m.PaymentPut(want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := m.PaymentGet(id)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.OrderRef != want.OrderRef || got.Payer != want.Payer || got.Payee != want.Payee {
		t.Fatalf("payment fields lost: %+v", got)
	}
	if got.Amount.Cmp(want.Amount) != 0 || got.FeeBps != want.FeeBps {
		t.Fatalf("amount or fee lost: %+v", got)
	}
	if got.ReleaseTime != want.ReleaseTime || got.CreatedAt != want.CreatedAt {
		t.Fatalf("timestamps lost: %+v", got)
	}
	if got.Status != want.Status {
		t.Fatalf("expected status %s, got %s", want.Status, got.Status)
	}
}

func TestPauseSwitchRoundtrip(t *testing.T) {
	m := newTestManager()

	if m.IsPaused("payments") {
		t.Fatalf("fresh store must not be paused")
	}
	if err := m.PausePut("payments", true); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !m.IsPaused("payments") {
		t.Fatalf("expected paused")
	}
	if m.IsPaused("registry") {
		t.Fatalf("pause must not bleed across modules")
	}
	if err := m.PausePut("payments", false); err != nil {
		t.Fatalf("put: %v", err)
	}
	if m.IsPaused("payments") {
		t.Fatalf("expected unpaused")
	}
}

func TestPlatformParamsRoundtrip(t *testing.T) {
	m := newTestManager()

	if _, ok, _ := m.PlatformFeeGet(); ok {
		t.Fatalf("expected no fee override on fresh store")
	}
	if err := m.PlatformFeePut(350); err != nil {
		t.Fatalf("put fee: %v", err)
	}
	fee, ok, err := m.PlatformFeeGet()
	if err != nil || !ok || fee != 350 {
		t.Fatalf("expected fee 350, got %d (ok=%v err=%v)", fee, ok, err)
	}

	wallet := testAddr(0x07)
	if _, ok, _ := m.PlatformWalletGet(); ok {
		t.Fatalf("expected no wallet on fresh store")
	}
	if err := m.PlatformWalletPut(wallet); err != nil {
		t.Fatalf("put wallet: %v", err)
	}
	got, ok, err := m.PlatformWalletGet()
	if err != nil || !ok || got != wallet {
		t.Fatalf("wallet roundtrip failed: ok=%v err=%v", ok, err)
	}
}

func TestMultiSigConfigRoundtrip(t *testing.T) {
	m := newTestManager()

	if _, ok, _ := m.MultiSigConfigGet(); ok {
		t.Fatalf("expected no config on fresh store")
	}
	want := multisig.Config{Authority: testAddr(0x08), Enabled: true}
	if err := m.MultiSigConfigPut(want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := m.MultiSigConfigGet()
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
