package auth

import (
	"github.com/aquaticgg/krepo/pkg/models"
)

type Operation int

const (
	OpRead Operation = iota
	OpWrite
	OpExists
)

func (o Operation) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpExists:
		return "exists"
	}
	return "unknown"
}

type DenyReason string

const (
	DenyInsufficientPermission DenyReason = "insufficient_permission"
	DenyAuthenticationRequired DenyReason = "authentication_required"
)

type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// Authorize decides whether caps may perform op on an existing repository with
// the given visibility. Whether the repository exists is for the caller to check.
func Authorize(caps CapabilitySet, visibility models.Visibility, op Operation) Decision {
	if op == OpWrite {
		if caps.Has(models.RoleAdmin) || caps.Has(CapabilityTokenWrite) {
			return allow()
		}
		return deny(DenyInsufficientPermission)
	}

	switch visibility {
	case models.VisibilityPublic, models.VisibilityHidden:
		return allow()
	default:
		if caps.Empty() {
			return deny(DenyAuthenticationRequired)
		}
		return allow()
	}
}
