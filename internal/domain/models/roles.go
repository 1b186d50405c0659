// internal/domain/models/roles.go
package models

import (
	"fmt"
	"strings"
)

// Role is the kind of account stored on a user or organization record.
// The set is closed; ParseRole rejects anything else.
type Role string

const (
	RoleNGO          Role = "ngo"
	RoleHomeless     Role = "homeless person"
	RoleOrganization Role = "organization"
	RoleProvider     Role = "provider"
	RoleUser         Role = "user"
)

// ParseRole normalizes s (trimmed, lowercase) and returns the matching Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleNGO, RoleHomeless, RoleOrganization, RoleProvider, RoleUser:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// ActorRole is the role an actor asserts when it asks for a balance change.
// It is wider than Role because credit-granting workplaces and redemption
// points act on the ledger without holding an account of their own.
type ActorRole string

const (
	ActorNGO                   ActorRole = "ngo"
	ActorOrganization          ActorRole = "organization"
	ActorVolunteeringWorkplace ActorRole = "volunteering workplace"
	ActorFoodBank              ActorRole = "credit based food bank"
	ActorShelter               ActorRole = "credit based shelter"
)

// ParseActorRole normalizes s and reports whether it names a known actor role.
func ParseActorRole(s string) (ActorRole, bool) {
	switch r := ActorRole(strings.ToLower(strings.TrimSpace(s))); r {
	case ActorNGO, ActorOrganization, ActorVolunteeringWorkplace, ActorFoodBank, ActorShelter:
		return r, true
	default:
		return "", false
	}
}

// ActorRoleFor maps an account role to the role it acts under.
func ActorRoleFor(r Role) (ActorRole, bool) {
	switch r {
	case RoleNGO:
		return ActorNGO, true
	case RoleOrganization:
		return ActorOrganization, true
	case RoleHomeless, RoleProvider, RoleUser:
		return "", false
	}
	return "", false
}

// CreditType names one of the two credit pools a homeless person holds.
type CreditType string

const (
	CreditShelter CreditType = "shelter"
	CreditFood    CreditType = "food"
)

// CreditTypes lists the pools in a stable order.
var CreditTypes = []CreditType{CreditShelter, CreditFood}

// ParseCreditType normalizes s and reports whether it is a known pool.
func ParseCreditType(s string) (CreditType, bool) {
	switch c := CreditType(strings.ToLower(strings.TrimSpace(s))); c {
	case CreditShelter, CreditFood:
		return c, true
	default:
		return "", false
	}
}

// Field returns the user document field that holds this pool's balance.
func (c CreditType) Field() string {
	return string(c) + "_credits"
}

// TxnType is the direction of a balance change.
type TxnType string

const (
	TxnEarn   TxnType = "earn"
	TxnRedeem TxnType = "redeem"
)

// ParseTxnType normalizes s and reports whether it is earn or redeem.
func ParseTxnType(s string) (TxnType, bool) {
	switch t := TxnType(strings.ToLower(strings.TrimSpace(s))); t {
	case TxnEarn, TxnRedeem:
		return t, true
	default:
		return "", false
	}
}

// ProviderType decides which credit pool a provider accepts.
type ProviderType string

const (
	ProviderShelter  ProviderType = "shelter"
	ProviderFoodBank ProviderType = "food bank"
)

// CreditType maps the provider type to the pool it redeems against.
func (p ProviderType) CreditType() (CreditType, bool) {
	switch ProviderType(strings.ToLower(strings.TrimSpace(string(p)))) {
	case ProviderShelter:
		return CreditShelter, true
	case ProviderFoodBank:
		return CreditFood, true
	default:
		return "", false
	}
}
