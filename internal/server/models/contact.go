package models

import "time"

// Contact belongs to exactly one account (OwnerID). Every read or mutation
// must filter by (ID, OwnerID) jointly so contacts stay invisible to any
// other account.
type Contact struct {
	ID        string
	OwnerID   string
	Name      string
	Email     string
	Phone     string
	Favorite  bool
	CreatedAt time.Time
}

// ContactPatch carries a partial contact update. Nil fields are left
// untouched by the store; a favorite-only update sets just Favorite.
type ContactPatch struct {
	Name     *string
	Email    *string
	Phone    *string
	Favorite *bool
}

// Empty reports whether the patch changes nothing.
func (p *ContactPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Favorite == nil
}
