// Package models contains the persistent record types of the server.
package models

import "time"

// Subscription tiers an account can hold.
const (
	SubscriptionStarter  = "starter"
	SubscriptionPro      = "pro"
	SubscriptionBusiness = "business"
)

// ValidSubscription reports whether s is one of the known tiers.
func ValidSubscription(s string) bool {
	switch s {
	case SubscriptionStarter, SubscriptionPro, SubscriptionBusiness:
		return true
	}
	return false
}

// User is an account record. Email is the natural key and immutable after
// creation. Token holds the single active session token and is empty while
// logged out. VerificationToken is empty once the account has been verified;
// Verify never reverts to false.
type User struct {
	ID                string
	Email             string
	PasswordHash      string
	Subscription      string
	Token             string
	VerificationToken string
	Verify            bool
	AvatarURL         string
	CreatedAt         time.Time
}
