package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", At: "2026-03-10T08:00:00Z"})
	require.NoError(t, err)

	got, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", got.ID)
	assert.Equal(t, "2026-03-10T08:00:00Z", got.At)

	_, err = DecodeCursor("%%%")
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	extract := func(v int) Cursor { return Cursor{ID: string(rune('a' + v))} }

	items, info, err := BuildCursorPageInfo([]int{1, 2, 3}, 2, extract)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, items)
	assert.True(t, info.HasMore)

	next, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "c", next.ID)

	items, info, err = BuildCursorPageInfo([]int{1, 2}, 2, extract)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, 5, Pagination{PageSize: 5}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
}
