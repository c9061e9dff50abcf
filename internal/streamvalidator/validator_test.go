package streamvalidator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeedHoldsUntilCharThreshold(t *testing.T) {
	v := New[string]()

	emitted, open := v.Feed("a", "a", false)
	assert.False(t, open)
	assert.Nil(t, emitted)

	emitted, open = v.Feed("b", "b", false)
	assert.False(t, open)
	assert.Nil(t, emitted)

	emitted, open = v.Feed("c", "c", false)
	assert.True(t, open)
	assert.Equal(t, []string{"a", "b", "c"}, emitted)

	emitted, open = v.Feed("d", "d", false)
	assert.True(t, open)
	assert.Equal(t, []string{"d"}, emitted)
}

func TestFeedCommitsImmediatelyOnToolCall(t *testing.T) {
	v := New[string]()
	emitted, open := v.Feed("x", "", true)
	assert.True(t, open)
	assert.Equal(t, []string{"x"}, emitted)
}

func TestDiscardReturnsBuffered(t *testing.T) {
	v := New[int]()
	v.Feed(1, "a", false)
	v.Feed(2, "b", false)
	assert.Equal(t, []int{1, 2}, v.Discard())
	assert.False(t, v.Committed())
}
