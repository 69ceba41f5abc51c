package auth

import (
	"regexp"
	"sort"
	"strings"
)

const tokenCapabilityPrefix = "token:"

const (
	CapabilityTokenRead  = tokenCapabilityPrefix + "read"
	CapabilityTokenWrite = tokenCapabilityPrefix + "write"
)

var roleNameRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// ValidRoleName reports whether name can be stored as an account role. Role
// names never contain ':' so they cannot be confused with token capabilities.
func ValidRoleName(name string) bool {
	return roleNameRegex.MatchString(name)
}

// CapabilitySet is the authority of a single request.
type CapabilitySet map[string]struct{}

func NewCapabilitySet(names ...string) CapabilitySet {
	set := make(CapabilitySet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func (c CapabilitySet) Has(name string) bool {
	_, ok := c[name]
	return ok
}

func (c CapabilitySet) Empty() bool {
	return len(c) == 0
}

// Names returns the capabilities in sorted order.
func (c CapabilitySet) Names() []string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MapCapabilities derives the capability set of an identity. Roles are kept
// verbatim, deploy token permissions become token:<perm>.
func MapCapabilities(identity Identity) CapabilitySet {
	switch identity.Kind {
	case BearerPrincipal:
		set := make(CapabilitySet, len(identity.Roles))
		for _, role := range identity.Roles {
			if ValidRoleName(role) {
				set[role] = struct{}{}
			}
		}
		return set
	case TokenPrincipal:
		set := make(CapabilitySet, len(identity.Permissions))
		for _, perm := range identity.Permissions {
			set[tokenCapabilityPrefix+strings.ToLower(perm)] = struct{}{}
		}
		return set
	default:
		return CapabilitySet{}
	}
}
