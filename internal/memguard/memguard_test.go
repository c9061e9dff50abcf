package memguard

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeTracked struct {
	size    int64
	cleared bool
}

func (f *fakeTracked) ApproxSize() int64 { return f.size }
func (f *fakeTracked) Clear()            { f.cleared = true }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckCachesClearsOversizedTracked(t *testing.T) {
	g := New(discardLogger())
	small := &fakeTracked{size: 100}
	big := &fakeTracked{size: g.cacheThreshold + 1}
	g.Track("small", small)
	g.Track("big", big)

	g.checkCaches()

	assert.False(t, small.cleared)
	assert.True(t, big.cleared)
}

func TestCheckProcessExitsOverRSSThreshold(t *testing.T) {
	g := New(discardLogger())
	g.rssThreshold = 1 // guarantee current process RSS exceeds this
	var exitCode int
	g.exit = func(code int) { exitCode = code }

	g.checkProcess()

	assert.Equal(t, 1, exitCode)
}

func TestCheckProcessDoesNotExitUnderThreshold(t *testing.T) {
	g := New(discardLogger())
	g.rssThreshold = 1 << 40 // 1 TiB, safely above any real RSS
	called := false
	g.exit = func(code int) { called = true }

	g.checkProcess()

	assert.False(t, called)
}

func TestProcessRSSReturnsPositiveValue(t *testing.T) {
	rss, err := processRSS()
	assert.NoError(t, err)
	assert.Greater(t, rss, int64(0))
}
