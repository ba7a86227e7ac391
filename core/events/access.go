package events

import (
	"agrichain/core/types"
	"agrichain/crypto"
)

const (
	TypeRoleGranted  = "access.roleGranted"
	TypeRoleRevoked  = "access.roleRevoked"
	TypeUserVerified = "access.userVerified"
	TypeKYCUpdated   = "access.kycUpdated"
)

type RoleGranted struct {
	Actor     [20]byte
	Role      string
	GrantedBy [20]byte
}

func (RoleGranted) EventType() string { return TypeRoleGranted }

func (e RoleGranted) Event() *types.Event {
	return &types.Event{
		Type: TypeRoleGranted,
		Attributes: map[string]string{
			"actor":     crypto.MustAddress(e.Actor).String(),
			"role":      e.Role,
			"grantedBy": crypto.MustAddress(e.GrantedBy).String(),
		},
	}
}

type RoleRevoked struct {
	Actor     [20]byte
	Role      string
	RevokedBy [20]byte
}

func (RoleRevoked) EventType() string { return TypeRoleRevoked }

func (e RoleRevoked) Event() *types.Event {
	return &types.Event{
		Type: TypeRoleRevoked,
		Attributes: map[string]string{
			"actor":     crypto.MustAddress(e.Actor).String(),
			"role":      e.Role,
			"revokedBy": crypto.MustAddress(e.RevokedBy).String(),
		},
	}
}

type UserVerified struct {
	Actor      [20]byte
	VerifiedBy [20]byte
}

func (UserVerified) EventType() string { return TypeUserVerified }

func (e UserVerified) Event() *types.Event {
	return &types.Event{
		Type: TypeUserVerified,
		Attributes: map[string]string{
			"actor":      crypto.MustAddress(e.Actor).String(),
			"verifiedBy": crypto.MustAddress(e.VerifiedBy).String(),
		},
	}
}

type KYCUpdated struct {
	Actor     [20]byte
	Status    string
	UpdatedBy [20]byte
}

func (KYCUpdated) EventType() string { return TypeKYCUpdated }

func (e KYCUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeKYCUpdated,
		Attributes: map[string]string{
			"actor":     crypto.MustAddress(e.Actor).String(),
			"status":    e.Status,
			"updatedBy": crypto.MustAddress(e.UpdatedBy).String(),
		},
	}
}
