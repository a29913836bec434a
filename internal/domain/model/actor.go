package model

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// ParseRole returns the role named by s, or "" when s is not a known role.
func ParseRole(s string) Role {
	switch r := Role(s); r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return r
	}
	return ""
}

type Capability string

const (
	CapSecurityRead   Capability = "security:read"
	CapSecurityManage Capability = "security:manage"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {CapSecurityRead, CapSecurityManage},
}

// Actor identifies who is behind a request. It is built once at the transport boundary
// and passed explicitly to services. A zero ID denotes an anonymous caller.
type Actor struct {
	ID        string
	Role      Role
	RequestID string
	IP        string
	UserAgent string
}

// Anonymous returns an unauthenticated actor carrying only request metadata.
func Anonymous(requestID, ip, userAgent string) Actor {
	return Actor{RequestID: requestID, IP: ip, UserAgent: userAgent}
}

func (a Actor) Authenticated() bool { return a.ID != "" }

// Can reports whether the actor's role grants capability c.
func (a Actor) Can(c Capability) bool {
	if !a.Authenticated() {
		return false
	}
	for _, granted := range roleCapabilities[a.Role] {
		if granted == c {
			return true
		}
	}
	return false
}
