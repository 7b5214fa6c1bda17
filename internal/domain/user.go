package domain

import (
	"errors"
	"time"
)

// User represents a marketplace participant. User management and
// authentication live outside this service; only the fields the core needs
// are modeled here.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
	Active    bool
}

// Role represents a user's access level
type Role string

const (
	// RoleAdmin has full access, including manual ledger adjustments
	RoleAdmin Role = "admin"

	// RoleCreditor opens deals and receives payments
	RoleCreditor Role = "creditor"

	// RoleDebtor accepts deals and makes payments
	RoleDebtor Role = "debtor"

	// RoleSystem is for internal automation and bypasses per-user deal limits
	RoleSystem Role = "system"
)

// Valid roles
var validRoles = map[Role]bool{
	RoleAdmin:    true,
	RoleCreditor: true,
	RoleDebtor:   true,
	RoleSystem:   true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanOpenDeals checks if the role can create deal proposals
func (r Role) CanOpenDeals() bool {
	return r == RoleCreditor || r == RoleAdmin || r == RoleSystem
}

// BypassesDealLimit checks if the role is exempt from the one-active-deal rule
func (r Role) BypassesDealLimit() bool {
	return r == RoleSystem
}

// CanManageLedger checks if the role can append manual ledger entries
func (r Role) CanManageLedger() bool {
	return r == RoleAdmin
}

// CanViewAllLedgers checks if the role can read other users' ledgers
func (r Role) CanViewAllLedgers() bool {
	return r == RoleAdmin || r == RoleSystem
}

// CanRunSettlements checks if the role can trigger settlement runs manually
func (r Role) CanRunSettlements() bool {
	return r == RoleAdmin || r == RoleSystem
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)
