package model

import (
	"fmt"
	"strings"
)

// Role is one of the account classes a user can request a token for.
type Role string

const (
	RoleClinician  Role = "clinician"
	RoleDeveloper  Role = "developer"
	RoleResearcher Role = "researcher"
)

// DefaultRole is preselected on the login screen.
const DefaultRole = RoleClinician

// Roles lists every role in display order.
var Roles = []Role{RoleClinician, RoleDeveloper, RoleResearcher}

func (r Role) Valid() bool {
	switch r {
	case RoleClinician, RoleDeveloper, RoleResearcher:
		return true
	}
	return false
}

// Label is the human name shown on the role buttons.
func (r Role) Label() string {
	switch r {
	case RoleClinician:
		return "Doctor"
	case RoleDeveloper:
		return "Developer"
	case RoleResearcher:
		return "Researcher"
	}
	return string(r)
}

// ContinueLabel is the submit button text for the selected role.
func (r Role) ContinueLabel() string {
	return "Continue as " + r.Label()
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q: must be one of clinician, developer, researcher", s)
	}
	return r, nil
}
