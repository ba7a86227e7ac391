package state

import (
	"fmt"
	"math/big"

	"agrichain/native/registry"
)

type storedProduct struct {
	ID             uint64
	Owner          [20]byte
	Name           string
	Category       string
	Quantity       uint64
	Unit           string
	BasePrice      *big.Int
	PricePerUnit   *big.Int
	MetadataRef    string
	Status         uint8
	HasCommitment  bool
	Committer      [20]byte
	CommitmentHash [32]byte
	CommittedAt    *big.Int
	RegisteredAt   *big.Int
}

func newStoredProduct(p *registry.Product) *storedProduct {
	stored := &storedProduct{
		ID:           p.ID,
		Owner:        p.Owner,
		Name:         p.Name,
		Category:     p.Category,
		Quantity:     p.Quantity,
		Unit:         p.Unit,
		BasePrice:    nonNil(p.BasePrice),
		PricePerUnit: nonNil(p.PricePerUnit),
		MetadataRef:  p.MetadataRef,
		Status:       uint8(p.Status),
		CommittedAt:  big.NewInt(0),
		RegisteredAt: big.NewInt(p.RegisteredAt),
	}
	if p.Commitment != nil {
		stored.HasCommitment = true
		stored.Committer = p.Commitment.Committer
		stored.CommitmentHash = p.Commitment.Hash
		stored.CommittedAt = big.NewInt(p.Commitment.CommittedAt)
	}
	return stored
}

func (s *storedProduct) toProduct() (*registry.Product, error) {
	if s == nil {
		return nil, fmt.Errorf("state: nil product record")
	}
	if !registry.ProductStatus(s.Status).Valid() {
		return nil, fmt.Errorf("state: invalid product status %d", s.Status)
	}
	product := &registry.Product{
		ID:           s.ID,
		Owner:        s.Owner,
		Name:         s.Name,
		Category:     s.Category,
		Quantity:     s.Quantity,
		Unit:         s.Unit,
		BasePrice:    nonNil(s.BasePrice),
		PricePerUnit: nonNil(s.PricePerUnit),
		MetadataRef:  s.MetadataRef,
		Status:       registry.ProductStatus(s.Status),
	}
	if s.RegisteredAt != nil {
		product.RegisteredAt = s.RegisteredAt.Int64()
	}
	if s.HasCommitment {
		committedAt := int64(0)
		if s.CommittedAt != nil {
			committedAt = s.CommittedAt.Int64()
		}
		product.Commitment = &registry.Commitment{
			Committer:   s.Committer,
			Hash:        s.CommitmentHash,
			CommittedAt: committedAt,
		}
	}
	return product, nil
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// ProductPut stores the product record under its id.
func (m *Manager) ProductPut(p *registry.Product) error {
	if p == nil {
		return fmt.Errorf("state: nil product")
	}
	return m.putRecord(idKey(productPrefix, p.ID), newStoredProduct(p))
}

// ProductGet loads the product with the given id.
func (m *Manager) ProductGet(id uint64) (*registry.Product, bool, error) {
	var stored storedProduct
	ok, err := m.getRecord(idKey(productPrefix, id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	product, err := stored.toProduct()
	if err != nil {
		return nil, false, err
	}
	return product, true, nil
}

// NextProductID assigns the next monotonic product id, starting at 1.
func (m *Manager) NextProductID() (uint64, error) {
	return m.nextSequence(productSeqKey)
}

// ProductCount returns how many products have been assigned ids.
func (m *Manager) ProductCount() (uint64, error) {
	return m.sequence(productSeqKey)
}

type storedTransfer struct {
	ProductID     uint64
	From          [20]byte
	To            [20]byte
	LocationRef   string
	AgreedPrice   *big.Int
	PaymentRef    string
	TransferredAt *big.Int
}

// TransferAppend appends one entry to the product's ownership history.
func (m *Manager) TransferAppend(record *registry.TransferRecord) error {
	if record == nil {
		return fmt.Errorf("state: nil transfer record")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := idKey(transfersPrefix, record.ProductID)
	var stored []*storedTransfer
	if _, err := m.getRecord(key, &stored); err != nil {
		return err
	}
	stored = append(stored, &storedTransfer{
		ProductID:     record.ProductID,
		From:          record.From,
		To:            record.To,
		LocationRef:   record.LocationRef,
		AgreedPrice:   nonNil(record.AgreedPrice),
		PaymentRef:    record.PaymentRef,
		TransferredAt: big.NewInt(record.TransferredAt),
	})
	return m.putRecord(key, stored)
}

// TransfersGet returns the product's ownership history, oldest first.
func (m *Manager) TransfersGet(productID uint64) ([]*registry.TransferRecord, error) {
	var stored []*storedTransfer
	if _, err := m.getRecord(idKey(transfersPrefix, productID), &stored); err != nil {
		return nil, err
	}
	out := make([]*registry.TransferRecord, 0, len(stored))
	for _, entry := range stored {
		record := &registry.TransferRecord{
			ProductID:   entry.ProductID,
			From:        entry.From,
			To:          entry.To,
			LocationRef: entry.LocationRef,
			AgreedPrice: nonNil(entry.AgreedPrice),
			PaymentRef:  entry.PaymentRef,
		}
		if entry.TransferredAt != nil {
			record.TransferredAt = entry.TransferredAt.Int64()
		}
		out = append(out, record)
	}
	return out, nil
}
