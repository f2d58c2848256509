package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/codemart/internal/actor"
	obscontext "github.com/smallbiznis/codemart/internal/observability/context"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Identity reads the caller established by the upstream gateway. The pair is
// trusted as given; only its shape is checked here.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := actor.ParseRole(c.GetHeader(HeaderUserRole))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var userID snowflake.ID
		if raw := strings.TrimSpace(c.GetHeader(HeaderUserID)); raw != "" {
			parsed, err := snowflake.ParseString(raw)
			if err != nil || parsed <= 0 {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			userID = parsed
		}

		caller := actor.Actor{UserID: userID, Role: role}
		if !caller.Valid() {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := actor.WithActor(c.Request.Context(), caller)
		ctx = obscontext.WithActor(ctx, string(role), caller.Subject())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func RequireSystem() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !callerFrom(c).IsSystem() {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func callerFrom(c *gin.Context) actor.Actor {
	caller, _ := actor.FromContext(c.Request.Context())
	return caller
}
