package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientForReusesClientPerHost(t *testing.T) {
	p := NewPool()
	a, err := p.ClientFor("https://api.example.com/v1/chat/completions")
	require.NoError(t, err)
	b, err := p.ClientFor("https://api.example.com/v1/other")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := p.ClientFor("https://other.example.com/v1")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestClientForRejectsUnparsableURL(t *testing.T) {
	p := NewPool()
	_, err := p.ClientFor("://bad")
	assert.Error(t, err)
}

func TestCloseIdleDoesNotPanicOnEmptyPool(t *testing.T) {
	p := NewPool()
	p.CloseIdle()
}
