package registry

import (
	"errors"
	"math/big"
	"testing"

	"agrichain/native/access"
	"agrichain/native/ratelimit"
)

type mockState struct {
	products  map[uint64]*Product
	transfers map[uint64][]*TransferRecord
	seq       uint64
}

func newMockState() *mockState {
	return &mockState{
		products:  make(map[uint64]*Product),
		transfers: make(map[uint64][]*TransferRecord),
	}
}

func (m *mockState) ProductPut(p *Product) error {
	m.products[p.ID] = p.Clone()
	return nil
}

func (m *mockState) ProductGet(id uint64) (*Product, bool, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, false, nil
	}
	return p.Clone(), true, nil
}

func (m *mockState) ProductCount() (uint64, error) { return m.seq, nil }

func (m *mockState) NextProductID() (uint64, error) {
	m.seq++
	return m.seq, nil
}

func (m *mockState) TransferAppend(r *TransferRecord) error {
	m.transfers[r.ProductID] = append(m.transfers[r.ProductID], r.Clone())
	return nil
}

func (m *mockState) TransfersGet(productID uint64) ([]*TransferRecord, error) {
	return m.transfers[productID], nil
}

type mockAccess struct {
	roles    map[[20]byte]map[access.Role]bool
	eligible map[[20]byte]bool
}

func newMockAccess() *mockAccess {
	return &mockAccess{
		roles:    make(map[[20]byte]map[access.Role]bool),
		eligible: make(map[[20]byte]bool),
	}
}

func (m *mockAccess) grant(actor [20]byte, role access.Role) {
	if m.roles[actor] == nil {
		m.roles[actor] = make(map[access.Role]bool)
	}
	m.roles[actor][role] = true
}

func (m *mockAccess) HasRole(actor [20]byte, role access.Role) bool {
	return m.roles[actor][role]
}

func (m *mockAccess) IsEligible(actor [20]byte) bool { return m.eligible[actor] }

type rateState struct {
	windows map[string]ratelimit.Window
}

func (s *rateState) key(actor [20]byte, kind string) string {
	return kind + "/" + string(actor[:])
}

func (s *rateState) RateWindowGet(actor [20]byte, kind string) (ratelimit.Window, bool, error) {
	w, ok := s.windows[s.key(actor, kind)]
	return w, ok, nil
}

func (s *rateState) RateWindowPut(actor [20]byte, kind string, w ratelimit.Window) error {
	if s.windows == nil {
		s.windows = make(map[string]ratelimit.Window)
	}
	s.windows[s.key(actor, kind)] = w
	return nil
}

type testHarness struct {
	engine *Engine
	state  *mockState
	access *mockAccess
	now    int64
	farmer [20]byte
	admin  [20]byte
	buyer  [20]byte
}

func (h *testHarness) advance(seconds int64) { h.now += seconds }

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	h := &testHarness{
		state:  newMockState(),
		access: newMockAccess(),
		now:    1_700_000_000,
	}
	copy(h.farmer[:], "farmer--------------")
	copy(h.admin[:], "admin---------------")
	copy(h.buyer[:], "buyer---------------")

	h.access.grant(h.farmer, access.RoleFarmer)
	h.access.grant(h.admin, access.RoleAdmin)
	h.access.eligible[h.farmer] = true

	limiter := ratelimit.NewLimiter(&rateState{})
	limiter.SetNowFunc(func() int64 { return h.now })

	engine := NewEngine()
	engine.SetState(h.state)
	engine.SetAccessGate(h.access)
	engine.SetRateGate(limiter)
	engine.SetNowFunc(func() int64 { return h.now })
	h.engine = engine
	return h
}

func (h *testHarness) registerApproved(t *testing.T) *Product {
	t.Helper()
	product, err := h.engine.RegisterProduct(h.farmer, "Tomatoes", "vegetables", 100, "kg", big.NewInt(50), big.NewInt(60), "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := h.engine.ApproveProduct(h.admin, product.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	return product
}

func TestRegisterProductRequiresFarmerRole(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.engine.RegisterProduct(h.buyer, "Tomatoes", "vegetables", 100, "kg", big.NewInt(50), big.NewInt(60), "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRegisterProductRequiresEligibility(t *testing.T) {
	h := newTestHarness(t)
	h.access.eligible[h.farmer] = false

	_, err := h.engine.RegisterProduct(h.farmer, "Tomatoes", "vegetables", 100, "kg", big.NewInt(50), big.NewInt(60), "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unverified farmer, got %v", err)
	}
}

func TestRegisterProductValidatesInput(t *testing.T) {
	h := newTestHarness(t)

	cases := []struct {
		name     string
		prodName string
		category string
		quantity uint64
		unit     string
		base     *big.Int
		price    *big.Int
	}{
		{"empty name", "", "vegetables", 100, "kg", big.NewInt(50), big.NewInt(60)},
		{"empty category", "Tomatoes", "", 100, "kg", big.NewInt(50), big.NewInt(60)},
		{"zero quantity", "Tomatoes", "vegetables", 0, "kg", big.NewInt(50), big.NewInt(60)},
		{"empty unit", "Tomatoes", "vegetables", 100, "", big.NewInt(50), big.NewInt(60)},
		{"nil base price", "Tomatoes", "vegetables", 100, "kg", nil, big.NewInt(60)},
		{"zero price", "Tomatoes", "vegetables", 100, "kg", big.NewInt(50), big.NewInt(0)},
	}
	for _, tc := range cases {
		_, err := h.engine.RegisterProduct(h.farmer, tc.prodName, tc.category, tc.quantity, tc.unit, tc.base, tc.price, "")
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
	// Rejected input must not burn registration quota.
	if count, err := h.engine.ProductCount(); err != nil || count != 0 {
		t.Fatalf("expected no products, got %d (%v)", count, err)
	}
}

func TestRegisterProductAssignsSequentialIDs(t *testing.T) {
	h := newTestHarness(t)

	for want := uint64(1); want <= 3; want++ {
		product, err := h.engine.RegisterProduct(h.farmer, "Tomatoes", "vegetables", 100, "kg", big.NewInt(50), big.NewInt(60), "")
		if err != nil {
			t.Fatalf("register %d: %v", want, err)
		}
		if product.ID != want {
			t.Fatalf("expected id %d, got %d", want, product.ID)
		}
		if product.Status != ProductPending {
			t.Fatalf("expected pending status, got %s", product.Status)
		}
		if product.RegisteredAt != h.now {
			t.Fatalf("expected RegisteredAt %d, got %d", h.now, product.RegisteredAt)
		}
	}
	if count, _ := h.engine.ProductCount(); count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
}

func TestReviewRequiresAdmin(t *testing.T) {
	h := newTestHarness(t)
	product, err := h.engine.RegisterProduct(h.farmer, "Tomatoes", "vegetables", 100, "kg", big.NewInt(50), big.NewInt(60), "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := h.engine.ApproveProduct(h.farmer, product.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := h.engine.RejectProduct(h.farmer, product.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestReviewIsOneDirectional(t *testing.T) {
	h := newTestHarness(t)
	product := h.registerApproved(t)

	if err := h.engine.ApproveProduct(h.admin, product.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState re-approving, got %v", err)
	}
	if err := h.engine.RejectProduct(h.admin, product.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState rejecting approved, got %v", err)
	}

	if err := h.engine.ApproveProduct(h.admin, 99); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCommitRequiresOwnerAndApproval(t *testing.T) {
	h := newTestHarness(t)
	product, err := h.engine.RegisterProduct(h.farmer, "Tomatoes", "vegetables", 100, "kg", big.NewInt(50), big.NewInt(60), "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	var hash [32]byte
	hash[0] = 0x01

	if err := h.engine.CommitPriceUpdate(h.farmer, product.ID, hash); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for pending product, got %v", err)
	}
	if err := h.engine.ApproveProduct(h.admin, product.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := h.engine.CommitPriceUpdate(h.buyer, product.ID, hash); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-owner, got %v", err)
	}
	if err := h.engine.CommitPriceUpdate(h.farmer, product.ID, hash); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestRevealGuardsRunInOrder(t *testing.T) {
	h := newTestHarness(t)
	product := h.registerApproved(t)

	newPrice := big.NewInt(75)
	var salt [32]byte
	copy(salt[:], "fresh-price-salt")
	digest := CommitmentDigest(product.ID, newPrice, salt, h.farmer)

	if err := h.engine.RevealPriceUpdate(h.farmer, product.ID, newPrice, salt); !errors.Is(err, ErrNoCommitment) {
		t.Fatalf("expected ErrNoCommitment, got %v", err)
	}
	if err := h.engine.CommitPriceUpdate(h.farmer, product.ID, digest); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Same timestamp: the mandatory delay has not elapsed.
	if err := h.engine.RevealPriceUpdate(h.farmer, product.ID, newPrice, salt); !errors.Is(err, ErrRevealTooEarly) {
		t.Fatalf("expected ErrRevealTooEarly, got %v", err)
	}

	h.advance(DefaultRevealDelay)
	var wrongSalt [32]byte
	copy(wrongSalt[:], "stale-price-salt")
	if err := h.engine.RevealPriceUpdate(h.farmer, product.ID, newPrice, wrongSalt); !errors.Is(err, ErrInvalidReveal) {
		t.Fatalf("expected ErrInvalidReveal for wrong salt, got %v", err)
	}
	if err := h.engine.RevealPriceUpdate(h.farmer, product.ID, big.NewInt(80), salt); !errors.Is(err, ErrInvalidReveal) {
		t.Fatalf("expected ErrInvalidReveal for wrong price, got %v", err)
	}

	if err := h.engine.RevealPriceUpdate(h.farmer, product.ID, newPrice, salt); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	got, err := h.engine.GetProduct(product.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PricePerUnit.Cmp(newPrice) != 0 {
		t.Fatalf("expected price %s, got %s", newPrice, got.PricePerUnit)
	}
	if got.Commitment != nil {
		t.Fatalf("commitment must be cleared after reveal")
	}

	// The commitment was consumed; a second reveal finds nothing.
	if err := h.engine.RevealPriceUpdate(h.farmer, product.ID, newPrice, salt); !errors.Is(err, ErrNoCommitment) {
		t.Fatalf("expected ErrNoCommitment after reveal, got %v", err)
	}
}

func TestRevealRejectsExpiredCommitment(t *testing.T) {
	h := newTestHarness(t)
	product := h.registerApproved(t)

	newPrice := big.NewInt(75)
	var salt [32]byte
	digest := CommitmentDigest(product.ID, newPrice, salt, h.farmer)
	if err := h.engine.CommitPriceUpdate(h.farmer, product.ID, digest); err != nil {
		t.Fatalf("commit: %v", err)
	}

	h.advance(DefaultExpiryWindow + 1)
	if err := h.engine.RevealPriceUpdate(h.farmer, product.ID, newPrice, salt); !errors.Is(err, ErrCommitmentExpired) {
		t.Fatalf("expected ErrCommitmentExpired, got %v", err)
	}
}

func TestRevealAtExpiryBoundarySucceeds(t *testing.T) {
	h := newTestHarness(t)
	product := h.registerApproved(t)

	newPrice := big.NewInt(75)
	var salt [32]byte
	digest := CommitmentDigest(product.ID, newPrice, salt, h.farmer)
	if err := h.engine.CommitPriceUpdate(h.farmer, product.ID, digest); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// elapsed == expiryWindow is the last valid instant.
	h.advance(DefaultExpiryWindow)
	if err := h.engine.RevealPriceUpdate(h.farmer, product.ID, newPrice, salt); err != nil {
		t.Fatalf("reveal at boundary: %v", err)
	}
}

func TestNewCommitOverwritesPrevious(t *testing.T) {
	h := newTestHarness(t)
	product := h.registerApproved(t)

	firstPrice := big.NewInt(75)
	var salt [32]byte
	if err := h.engine.CommitPriceUpdate(h.farmer, product.ID, CommitmentDigest(product.ID, firstPrice, salt, h.farmer)); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	secondPrice := big.NewInt(90)
	if err := h.engine.CommitPriceUpdate(h.farmer, product.ID, CommitmentDigest(product.ID, secondPrice, salt, h.farmer)); err != nil {
		t.Fatalf("second commit: %v", err)
	}

	h.advance(DefaultRevealDelay)
	if err := h.engine.RevealPriceUpdate(h.farmer, product.ID, firstPrice, salt); !errors.Is(err, ErrInvalidReveal) {
		t.Fatalf("expected ErrInvalidReveal against overwritten commitment, got %v", err)
	}
	if err := h.engine.RevealPriceUpdate(h.farmer, product.ID, secondPrice, salt); err != nil {
		t.Fatalf("reveal second commitment: %v", err)
	}
}

func TestRevealIsBoundToCommitter(t *testing.T) {
	h := newTestHarness(t)
	product := h.registerApproved(t)

	newPrice := big.NewInt(75)
	var salt [32]byte
	digest := CommitmentDigest(product.ID, newPrice, salt, h.farmer)
	if err := h.engine.CommitPriceUpdate(h.farmer, product.ID, digest); err != nil {
		t.Fatalf("commit: %v", err)
	}

	h.advance(DefaultRevealDelay)
	// The buyer knows price and salt but the digest binds the farmer's
	// identity, so the replay cannot match.
	if err := h.engine.RevealPriceUpdate(h.buyer, product.ID, newPrice, salt); !errors.Is(err, ErrInvalidReveal) {
		t.Fatalf("expected ErrInvalidReveal for replayed reveal, got %v", err)
	}
}

func TestRevealRejectsOverwidePrice(t *testing.T) {
	h := newTestHarness(t)
	product := h.registerApproved(t)

	newPrice := big.NewInt(75)
	var salt [32]byte
	digest := CommitmentDigest(product.ID, newPrice, salt, h.farmer)
	if err := h.engine.CommitPriceUpdate(h.farmer, product.ID, digest); err != nil {
		t.Fatalf("commit: %v", err)
	}

	h.advance(DefaultRevealDelay)
	// A price wider than one digest word cannot be encoded into any
	// commitment, so the reveal must fail as a mismatch rather than blow up
	// while padding the hash input.
	huge := new(big.Int).Lsh(big.NewInt(1), 300)
	if err := h.engine.RevealPriceUpdate(h.farmer, product.ID, huge, salt); !errors.Is(err, ErrInvalidReveal) {
		t.Fatalf("expected ErrInvalidReveal for overwide price, got %v", err)
	}
	// The valid reveal still goes through.
	if err := h.engine.RevealPriceUpdate(h.farmer, product.ID, newPrice, salt); err != nil {
		t.Fatalf("reveal: %v", err)
	}
}

func TestTransferOwnershipRules(t *testing.T) {
	h := newTestHarness(t)
	product := h.registerApproved(t)

	if err := h.engine.TransferOwnership(h.buyer, product.ID, h.buyer, "", big.NewInt(100), ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-owner, got %v", err)
	}
	if err := h.engine.TransferOwnership(h.farmer, product.ID, [20]byte{}, "", big.NewInt(100), ""); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient for zero recipient, got %v", err)
	}
	if err := h.engine.TransferOwnership(h.farmer, product.ID, h.farmer, "", big.NewInt(100), ""); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient for self transfer, got %v", err)
	}

	pending, err := h.engine.RegisterProduct(h.farmer, "Apples", "fruit", 40, "kg", big.NewInt(30), big.NewInt(35), "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := h.engine.TransferOwnership(h.farmer, pending.ID, h.buyer, "", big.NewInt(100), ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for pending product, got %v", err)
	}
}

func TestTransferMovesOwnershipAndRecordsHistory(t *testing.T) {
	h := newTestHarness(t)
	product := h.registerApproved(t)

	if err := h.engine.TransferOwnership(h.farmer, product.ID, h.buyer, "warehouse-7", big.NewInt(6000), "pay-1"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	got, err := h.engine.GetProduct(product.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Owner != h.buyer {
		t.Fatalf("expected owner to change")
	}

	// The previous owner lost control immediately.
	var hash [32]byte
	if err := h.engine.CommitPriceUpdate(h.farmer, product.ID, hash); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for previous owner, got %v", err)
	}

	history, err := h.engine.TransferHistory(product.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one record, got %d", len(history))
	}
	record := history[0]
	if record.From != h.farmer || record.To != h.buyer {
		t.Fatalf("history parties wrong: %+v", record)
	}
	if record.LocationRef != "warehouse-7" || record.PaymentRef != "pay-1" {
		t.Fatalf("history refs wrong: %+v", record)
	}
	if record.AgreedPrice.Cmp(big.NewInt(6000)) != 0 {
		t.Fatalf("history price wrong: %s", record.AgreedPrice)
	}
	if record.TransferredAt != h.now {
		t.Fatalf("expected TransferredAt %d, got %d", h.now, record.TransferredAt)
	}
}

func TestTransferDropsLiveCommitment(t *testing.T) {
	h := newTestHarness(t)
	product := h.registerApproved(t)

	newPrice := big.NewInt(75)
	var salt [32]byte
	digest := CommitmentDigest(product.ID, newPrice, salt, h.farmer)
	if err := h.engine.CommitPriceUpdate(h.farmer, product.ID, digest); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := h.engine.TransferOwnership(h.farmer, product.ID, h.buyer, "", big.NewInt(6000), ""); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	h.advance(DefaultRevealDelay)
	if err := h.engine.RevealPriceUpdate(h.farmer, product.ID, newPrice, salt); !errors.Is(err, ErrNoCommitment) {
		t.Fatalf("expected ErrNoCommitment after transfer, got %v", err)
	}
}

func TestRegistrationQuotaRollsOver(t *testing.T) {
	h := newTestHarness(t)
	h.engine.SetRegistrationLimit(3)

	for i := 0; i < 3; i++ {
		if _, err := h.engine.RegisterProduct(h.farmer, "Tomatoes", "vegetables", 100, "kg", big.NewInt(50), big.NewInt(60), ""); err != nil {
			t.Fatalf("register %d: %v", i+1, err)
		}
	}
	_, err := h.engine.RegisterProduct(h.farmer, "Tomatoes", "vegetables", 100, "kg", big.NewInt(50), big.NewInt(60), "")
	if !errors.Is(err, ratelimit.ErrLimitExceeded) {
		t.Fatalf("expected rate limit rejection, got %v", err)
	}
	var limitErr *ratelimit.LimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected *LimitExceededError, got %T", err)
	}
	if limitErr.Kind != KindProductRegistration {
		t.Fatalf("expected kind %q, got %q", KindProductRegistration, limitErr.Kind)
	}

	h.advance(ratelimit.DefaultWindowSeconds)
	if _, err := h.engine.RegisterProduct(h.farmer, "Tomatoes", "vegetables", 100, "kg", big.NewInt(50), big.NewInt(60), ""); err != nil {
		t.Fatalf("register after rollover: %v", err)
	}
}
