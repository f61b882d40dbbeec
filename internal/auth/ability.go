// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package auth

import "github.com/toeirei/proctor/internal/model"

// Ownable is implemented by resources that belong to an account.
type Ownable interface {
	OwnerID() int
}

var (
	_ Ownable = model.Account{}
	_ Ownable = model.Credential{}
)

// Ability answers per-resource permission questions for one identity.
type Ability struct {
	identity Identity
}

// NewAbility returns the Ability of id.
func NewAbility(id Identity) Ability {
	return Ability{identity: id}
}

// CanUse reports whether the identity may modify target.
//
// Admins may use anything and guests nothing, not even their own account.
// Users may use Ownable targets they own. Any other role is denied.
func (a Ability) CanUse(target any) bool {
	switch a.identity.Role {
	case model.RoleAdmin:
		return true
	case model.RoleUser:
		if a.identity.Kind != KindPersisted || a.identity.AccountID == 0 {
			return false
		}
		o, ok := target.(Ownable)
		return ok && o.OwnerID() == a.identity.AccountID
	default:
		return false
	}
}

// CanUse is shorthand for NewAbility(id).CanUse(target).
func CanUse(id Identity, target any) bool {
	return NewAbility(id).CanUse(target)
}
