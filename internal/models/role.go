package models

import "fmt"

// Role is the part a participant plays in the session. It is fixed at join time.
type Role string

const (
	RoleBroadcaster Role = "broadcaster"
	RoleViewer      Role = "viewer"
	RoleChatOnly    Role = "chat"
)

// ParseRole maps the role query value sent by clients to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "broadcaster", "streamer":
		return RoleBroadcaster, nil
	case "viewer", "":
		return RoleViewer, nil
	case "chat", "chat_only":
		return RoleChatOnly, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleBroadcaster || r == RoleViewer || r == RoleChatOnly
}
