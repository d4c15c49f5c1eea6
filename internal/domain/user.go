package domain

import "time"

type Role string

const (
	RoleRenter Role = "renter"
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
)

type KYCStatus string

const (
	KYCStatusUnverified KYCStatus = "unverified"
	KYCStatusVerified   KYCStatus = "verified"
	KYCStatusPremium    KYCStatus = "premium"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []Role    `json:"roles"`
	KYCStatus KYCStatus `json:"kyc_status"`
	// KYCApproved is the approval gate from the KYC review flow. The tier above only drives deposit percentages.
	KYCApproved bool      `json:"kyc_approved"`
	CreatedOn   time.Time `json:"created_on"`
}

func (u *User) HasRole(r Role) bool {
	for _, role := range u.Roles {
		if role == r {
			return true
		}
	}
	return false
}
