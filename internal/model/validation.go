// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"regexp"
	"strings"

	"github.com/toeirei/proctor/internal/i18n"
)

// Validation codes. Each maps to an i18n message id "validation.<code>".
const (
	CodeBlank        = "blank"
	CodeSlug         = "slug"
	CodeTaken        = "taken"
	CodeRole         = "role"
	CodeUserNotFound = "user_not_found"
	CodeTeamNotFound = "team_not_found"
	CodeTooLong      = "too_long"
)

// slugPattern matches strings usable as a single URI path segment.
var slugPattern = regexp.MustCompile(`\A[a-z0-9_-]*\z`)

// IsSlug reports whether s only contains lowercase letters, digits,
// underscores and dashes. The empty string is a slug; presence is checked
// separately.
func IsSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// FieldError describes one invalid attribute.
type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// Message returns the localized, human readable message.
func (f FieldError) Message() string {
	return i18n.T("validation."+f.Code, map[string]any{"Field": f.Field})
}

// ValidationError collects field-level problems found while validating an
// entity. A nil or empty ValidationError means the entity is valid.
type ValidationError []FieldError

// Add records a problem with field.
func (v *ValidationError) Add(field, code string) {
	*v = append(*v, FieldError{Field: field, Code: code})
}

// Has reports whether a problem with the given field and code was recorded.
func (v ValidationError) Has(field, code string) bool {
	for _, f := range v {
		if f.Field == field && f.Code == code {
			return true
		}
	}
	return false
}

// Messages returns one localized message per problem.
func (v ValidationError) Messages() []string {
	out := make([]string, 0, len(v))
	for _, f := range v {
		out = append(out, f.Message())
	}
	return out
}

func (v ValidationError) Error() string {
	return "validation failed: " + strings.Join(v.Messages(), "; ")
}

// Err returns v as an error, or nil when nothing was recorded.
func (v ValidationError) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func validateSlug(v *ValidationError, field, value string) {
	if value == "" {
		v.Add(field, CodeBlank)
		return
	}
	if !IsSlug(value) {
		v.Add(field, CodeSlug)
	}
}

// Validate checks the account's own attributes. Name uniqueness needs the
// store and is checked there.
func (a Account) Validate() ValidationError {
	var v ValidationError
	validateSlug(&v, "name", a.Name)
	switch {
	case a.Role == "":
		v.Add("role", CodeBlank)
	case !a.Role.Valid():
		v.Add("role", CodeRole)
	}
	return v
}

// Validate checks the credential's own attributes.
func (c Credential) Validate() ValidationError {
	var v ValidationError
	if c.AccountID <= 0 {
		v.Add("user", CodeUserNotFound)
	}
	validateSlug(&v, "title", c.Title)
	if strings.TrimSpace(c.Key) == "" {
		v.Add("key", CodeBlank)
	}
	return v
}

// Validate checks the group's own attributes.
func (g Group) Validate() ValidationError {
	var v ValidationError
	validateSlug(&v, "name", g.Name)
	return v
}

// Validate checks that both sides of the membership are set.
func (m Membership) Validate() ValidationError {
	var v ValidationError
	if m.AccountID <= 0 {
		v.Add("user", CodeUserNotFound)
	}
	if m.GroupID <= 0 {
		v.Add("team", CodeTeamNotFound)
	}
	return v
}
