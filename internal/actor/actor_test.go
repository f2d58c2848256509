package actor

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" Buyer ")
	assert.True(t, ok)
	assert.Equal(t, RoleBuyer, role)

	_, ok = ParseRole("owner")
	assert.False(t, ok)
}

func TestActorValidity(t *testing.T) {
	assert.True(t, System().Valid())
	assert.True(t, System().IsSystem())
	assert.False(t, Actor{Role: RoleBuyer}.Valid())
	assert.True(t, Actor{UserID: snowflake.ID(7), Role: RoleBuyer}.Valid())
	assert.False(t, Actor{UserID: snowflake.ID(7), Role: "owner"}.Valid())
	assert.Equal(t, "user:7", Actor{UserID: snowflake.ID(7), Role: RoleSeller}.Subject())
	assert.Equal(t, "system", System().Subject())
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithActor(context.Background(), Actor{UserID: 42, Role: RoleSeller})
	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(42), got.UserID)
	assert.Equal(t, RoleSeller, got.Role)
}
