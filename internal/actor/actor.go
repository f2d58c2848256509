package actor

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Role is the trusted role a caller presents for the current session.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleSystem Role = "system"
	RoleAdmin  Role = "admin"
)

// Actor identifies the caller of an operation. Identity is established
// upstream; the core trusts the pair as given.
type Actor struct {
	UserID snowflake.ID
	Role   Role
}

// System is the actor used by background jobs.
func System() Actor {
	return Actor{Role: RoleSystem}
}

func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleBuyer:
		return RoleBuyer, true
	case RoleSeller:
		return RoleSeller, true
	case RoleSystem:
		return RoleSystem, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// IsSystem reports whether the actor may act on behalf of any user.
func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem || a.Role == RoleAdmin
}

func (a Actor) Valid() bool {
	if _, ok := ParseRole(string(a.Role)); !ok {
		return false
	}
	return a.UserID != 0 || a.IsSystem()
}

// Subject is the actor's identifier in audit and log records.
func (a Actor) Subject() string {
	if a.UserID == 0 {
		return string(a.Role)
	}
	return "user:" + a.UserID.String()
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
