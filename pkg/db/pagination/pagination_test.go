package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct{ id string }

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "123", CreatedAt: "2025-01-01T00:00:00Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "123", cursor.ID)

	_, err = DecodeCursor("%%%")
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	rows := []*item{{"a"}, {"b"}, {"c"}}

	page, info := BuildCursorPageInfo(rows, 2, func(i *item) string { return i.id })
	assert.Len(t, page, 2)
	assert.True(t, info.HasMore)
	assert.Equal(t, "b", info.NextPageToken)

	page, info = BuildCursorPageInfo(rows, 3, func(i *item) string { return i.id })
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestNormalizePageSize(t *testing.T) {
	assert.Equal(t, int32(DefaultPageSize), NormalizePageSize(0))
	assert.Equal(t, int32(MaxPageSize), NormalizePageSize(1000))
	assert.Equal(t, int32(5), NormalizePageSize(5))
}
