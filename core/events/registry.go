package events

import (
	"encoding/hex"
	"math/big"

	"agrichain/core/types"
	"agrichain/crypto"
)

const (
	TypeProductRegistered    = "registry.productRegistered"
	TypeProductApproved      = "registry.productApproved"
	TypeProductRejected      = "registry.productRejected"
	TypePriceCommitted       = "registry.priceCommitted"
	TypePriceRevealed        = "registry.priceRevealed"
	TypeOwnershipTransferred = "registry.ownershipTransferred"
)

type ProductRegistered struct {
	ProductID    uint64
	Owner        [20]byte
	Name         string
	Category     string
	Quantity     uint64
	Unit         string
	BasePrice    *big.Int
	PricePerUnit *big.Int
	RegisteredAt int64
}

func (ProductRegistered) EventType() string { return TypeProductRegistered }

func (e ProductRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeProductRegistered,
		Attributes: map[string]string{
			"productId":    uintToString(e.ProductID),
			"owner":        crypto.MustAddress(e.Owner).String(),
			"name":         e.Name,
			"category":     e.Category,
			"quantity":     uintToString(e.Quantity),
			"unit":         e.Unit,
			"basePrice":    formatAmount(e.BasePrice),
			"pricePerUnit": formatAmount(e.PricePerUnit),
			"registeredAt": intToString(e.RegisteredAt),
		},
	}
}

type ProductApproved struct {
	ProductID  uint64
	ApprovedBy [20]byte
}

func (ProductApproved) EventType() string { return TypeProductApproved }

func (e ProductApproved) Event() *types.Event {
	return &types.Event{
		Type: TypeProductApproved,
		Attributes: map[string]string{
			"productId":  uintToString(e.ProductID),
			"approvedBy": crypto.MustAddress(e.ApprovedBy).String(),
		},
	}
}

type ProductRejected struct {
	ProductID  uint64
	RejectedBy [20]byte
}

func (ProductRejected) EventType() string { return TypeProductRejected }

func (e ProductRejected) Event() *types.Event {
	return &types.Event{
		Type: TypeProductRejected,
		Attributes: map[string]string{
			"productId":  uintToString(e.ProductID),
			"rejectedBy": crypto.MustAddress(e.RejectedBy).String(),
		},
	}
}

type PriceCommitted struct {
	ProductID   uint64
	Committer   [20]byte
	Commitment  [32]byte
	CommittedAt int64
}

func (PriceCommitted) EventType() string { return TypePriceCommitted }

func (e PriceCommitted) Event() *types.Event {
	return &types.Event{
		Type: TypePriceCommitted,
		Attributes: map[string]string{
			"productId":   uintToString(e.ProductID),
			"committer":   crypto.MustAddress(e.Committer).String(),
			"commitment":  hex.EncodeToString(e.Commitment[:]),
			"committedAt": intToString(e.CommittedAt),
		},
	}
}

type PriceRevealed struct {
	ProductID  uint64
	NewPrice   *big.Int
	RevealedBy [20]byte
	RevealedAt int64
}

func (PriceRevealed) EventType() string { return TypePriceRevealed }

func (e PriceRevealed) Event() *types.Event {
	return &types.Event{
		Type: TypePriceRevealed,
		Attributes: map[string]string{
			"productId":  uintToString(e.ProductID),
			"newPrice":   formatAmount(e.NewPrice),
			"revealedBy": crypto.MustAddress(e.RevealedBy).String(),
			"revealedAt": intToString(e.RevealedAt),
		},
	}
}

type OwnershipTransferred struct {
	ProductID   uint64
	From        [20]byte
	To          [20]byte
	LocationRef string
	AgreedPrice *big.Int
	TransferAt  int64
}

func (OwnershipTransferred) EventType() string { return TypeOwnershipTransferred }

func (e OwnershipTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeOwnershipTransferred,
		Attributes: map[string]string{
			"productId":   uintToString(e.ProductID),
			"from":        crypto.MustAddress(e.From).String(),
			"to":          crypto.MustAddress(e.To).String(),
			"locationRef": e.LocationRef,
			"agreedPrice": formatAmount(e.AgreedPrice),
			"transferAt":  intToString(e.TransferAt),
		},
	}
}
