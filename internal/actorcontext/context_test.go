package actorcontext

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{Type: ActorTypeUser, UserID: "u-1", CompanyID: 7})

	actor, ok := ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u-1", actor.UserID)

	companyID, ok := CompanyIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, snowflake.ID(7), companyID)

	_, ok = ActorFromContext(context.Background())
	assert.False(t, ok)
}

func TestCanAccessTerminal(t *testing.T) {
	scoped := Actor{Type: ActorTypeUser, TerminalIDs: []snowflake.ID{1, 2}}
	assert.True(t, scoped.CanAccessTerminal(2))
	assert.False(t, scoped.CanAccessTerminal(3))

	assert.True(t, Actor{Type: ActorTypeUser, AllTerminals: true}.CanAccessTerminal(3))
	assert.True(t, Actor{Type: ActorTypeSystem}.CanAccessTerminal(3))
}

func TestParseTerminalIDs(t *testing.T) {
	ids, all, err := ParseTerminalIDs(" 10, 20 ,")
	require.NoError(t, err)
	assert.False(t, all)
	assert.Equal(t, []snowflake.ID{10, 20}, ids)

	_, all, err = ParseTerminalIDs("*")
	require.NoError(t, err)
	assert.True(t, all)

	_, _, err = ParseTerminalIDs("abc")
	assert.Error(t, err)
}

func TestUserIDPtr(t *testing.T) {
	assert.Nil(t, Actor{UserID: "  "}.UserIDPtr())
	id := Actor{UserID: "u-9"}.UserIDPtr()
	require.NotNil(t, id)
	assert.Equal(t, "u-9", *id)
}
