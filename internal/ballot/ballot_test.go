package ballot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsStrictlyIncreasing(t *testing.T) {
	prev := New()
	for i := 0; i < 1000; i++ {
		next := New()
		require.True(t, next.Greater(prev), "id %d (%s) not greater than %s", i, next, prev)
		prev = next
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[ID]struct{})
	for i := 0; i < 1000; i++ {
		id := New()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestCompare(t *testing.T) {
	a, b := New(), New()

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.Equal(t, b, Max(a, b))
	assert.Equal(t, b, Max(b, a))
}

func TestZero(t *testing.T) {
	assert.True(t, Zero.IsZero())
	id := New()
	assert.False(t, id.IsZero())
	assert.True(t, Zero.Less(id))
}

func TestShort(t *testing.T) {
	id := New()
	assert.Len(t, id.Short(), 12)
	assert.True(t, strings.HasSuffix(id.String(), id.Short()))
}
