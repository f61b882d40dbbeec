// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package model

// Role is an account's permission level. Roles form a strict hierarchy:
// admin > user > guest.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// Roles lists every known role from most to least privileged.
var Roles = []Role{RoleAdmin, RoleUser, RoleGuest}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}

// Satisfies reports whether r meets a route requirement expressed as a set
// of accepted roles. Admin satisfies everything, and user additionally
// satisfies a guest requirement. Unknown roles satisfy nothing.
func (r Role) Satisfies(required ...Role) bool {
	if !r.Valid() {
		return false
	}
	if r == RoleAdmin {
		return true
	}
	for _, want := range required {
		if r == want {
			return true
		}
		if r == RoleUser && want == RoleGuest {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }
