package registry

import (
	"encoding/binary"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ProductStatus tracks the approval workflow. Transitions are one-directional:
// Pending moves to Approved or Rejected and stays there.
type ProductStatus uint8

const (
	ProductPending ProductStatus = iota
	ProductApproved
	ProductRejected
)

func (s ProductStatus) String() string {
	switch s {
	case ProductPending:
		return "pending"
	case ProductApproved:
		return "approved"
	case ProductRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Valid reports whether the status value is within the supported range.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductPending, ProductApproved, ProductRejected:
		return true
	default:
		return false
	}
}

// Commitment is a hidden, hash-committed intent to change a product's price,
// revealed after a mandatory delay. At most one live commitment exists per
// product; a new commit overwrites the previous one.
type Commitment struct {
	Committer   [20]byte
	Hash        [32]byte
	CommittedAt int64
}

// Product is the registered-goods record owned by the registry engine.
// PricePerUnit is mutable only through commit-reveal once the product is
// approved; Owner changes only through TransferOwnership.
type Product struct {
	ID           uint64
	Owner        [20]byte
	Name         string
	Category     string
	Quantity     uint64
	Unit         string
	BasePrice    *big.Int
	PricePerUnit *big.Int
	MetadataRef  string
	Status       ProductStatus
	Commitment   *Commitment
	RegisteredAt int64
}

// Clone returns a deep copy so callers can mutate the copy without touching
// the stored instance.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	if p.BasePrice != nil {
		clone.BasePrice = new(big.Int).Set(p.BasePrice)
	} else {
		clone.BasePrice = big.NewInt(0)
	}
	if p.PricePerUnit != nil {
		clone.PricePerUnit = new(big.Int).Set(p.PricePerUnit)
	} else {
		clone.PricePerUnit = big.NewInt(0)
	}
	if p.Commitment != nil {
		commitment := *p.Commitment
		clone.Commitment = &commitment
	}
	return &clone
}

// TransferRecord is one entry in a product's ownership history.
type TransferRecord struct {
	ProductID     uint64
	From          [20]byte
	To            [20]byte
	LocationRef   string
	AgreedPrice   *big.Int
	PaymentRef    string
	TransferredAt int64
}

// Clone returns a deep copy of the record.
func (t *TransferRecord) Clone() *TransferRecord {
	if t == nil {
		return nil
	}
	clone := *t
	if t.AgreedPrice != nil {
		clone.AgreedPrice = new(big.Int).Set(t.AgreedPrice)
	} else {
		clone.AgreedPrice = big.NewInt(0)
	}
	return &clone
}

// CommitmentDigest computes the hash a committer must store before revealing a
// price update: keccak256 over the abi-style encoding of (productID, newPrice,
// salt, committer), each operand padded to a 32-byte word. Binding the
// committer into the digest means nobody else can replay a reveal.
func CommitmentDigest(productID uint64, newPrice *big.Int, salt [32]byte, committer [20]byte) [32]byte {
	var buf [128]byte
	binary.BigEndian.PutUint64(buf[24:32], productID)
	if newPrice != nil && newPrice.Sign() > 0 && newPrice.BitLen() <= 256 {
		newPrice.FillBytes(buf[32:64])
	}
	copy(buf[64:96], salt[:])
	copy(buf[108:128], committer[:])
	var digest [32]byte
	copy(digest[:], ethcrypto.Keccak256(buf[:]))
	return digest
}
