// Package auth turns an Authorization header into an Identity, maps identities to
// capabilities and decides whether a capability set may touch a repository.
package auth

type IdentityKind int

const (
	Anonymous IdentityKind = iota
	BearerPrincipal
	TokenPrincipal
	Rejected
)

func (k IdentityKind) String() string {
	switch k {
	case Anonymous:
		return "anonymous"
	case BearerPrincipal:
		return "bearer"
	case TokenPrincipal:
		return "token"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

type RejectReason string

const (
	RejectRevoked     RejectReason = "revoked"
	RejectInvalid     RejectReason = "invalid"
	RejectMalformed   RejectReason = "malformed"
	RejectUnsupported RejectReason = "unsupported"
)

// Identity is the outcome of resolving one request's credentials. Roles is set
// for BearerPrincipal, Permissions for TokenPrincipal and Reason for Rejected.
type Identity struct {
	Kind        IdentityKind
	Username    string
	Roles       []string
	Permissions []string
	Reason      RejectReason
}

func anonymousIdentity() Identity {
	return Identity{Kind: Anonymous}
}

func rejectedIdentity(reason RejectReason) Identity {
	return Identity{Kind: Rejected, Reason: reason}
}

func bearerIdentity(username string, roles []string) Identity {
	return Identity{Kind: BearerPrincipal, Username: username, Roles: roles}
}

func tokenIdentity(username string, permissions []string) Identity {
	return Identity{Kind: TokenPrincipal, Username: username, Permissions: permissions}
}

// Principal is the caller of one request. It is handed explicitly to every
// operation that needs to know who is asking.
type Principal struct {
	Identity     Identity
	Capabilities CapabilitySet
}

func NewPrincipal(identity Identity) Principal {
	return Principal{Identity: identity, Capabilities: MapCapabilities(identity)}
}

// AnonymousPrincipal is a caller that presented no credentials.
func AnonymousPrincipal() Principal {
	return NewPrincipal(anonymousIdentity())
}

func (p Principal) Authenticated() bool {
	return p.Identity.Kind == BearerPrincipal || p.Identity.Kind == TokenPrincipal
}

func (p Principal) Username() string {
	return p.Identity.Username
}
