package access

// Role names the closed set of participant roles on the network.
type Role string

const (
	RoleFarmer      Role = "farmer"
	RoleDistributor Role = "distributor"
	RoleRetailer    Role = "retailer"
	RoleAdmin       Role = "admin"
)

// Valid reports whether the role is one of the supported values.
func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleDistributor, RoleRetailer, RoleAdmin:
		return true
	default:
		return false
	}
}

// KYCStatus tracks an actor's know-your-customer review.
type KYCStatus uint8

const (
	KYCNotSubmitted KYCStatus = iota
	KYCPending
	KYCApproved
	KYCRejected
)

func (s KYCStatus) String() string {
	switch s {
	case KYCNotSubmitted:
		return "not_submitted"
	case KYCPending:
		return "pending"
	case KYCApproved:
		return "approved"
	case KYCRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Verification is the per-actor identity record consulted before the registry
// or payment engines accept state-changing calls.
type Verification struct {
	IdentityVerified bool
	KYC              KYCStatus
}

// Eligible reports whether the actor cleared both identity verification and
// KYC review.
func (v Verification) Eligible() bool {
	return v.IdentityVerified && v.KYC == KYCApproved
}
