package upstream

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardDecodesGzipAndStripsHopByHop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Connection"))
		assert.Equal(t, "gzip, br, identity", r.Header.Get("Accept-Encoding"))

		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		gz.Write([]byte(`{"ok":true}`))
		gz.Close()

		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := NewClient(NewPool())
	header := http.Header{"Connection": []string{"keep-alive"}, "X-Custom": []string{"v"}}
	resp, err := c.Forward(context.Background(), http.MethodPost, srv.URL, header, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, resp.Body["ok"])
}

func TestForwardRejectsInvalidURL(t *testing.T) {
	c := NewClient(NewPool())
	_, err := c.Forward(context.Background(), http.MethodPost, "://bad-url", nil, nil)
	assert.Error(t, err)
}

func TestStreamForwardReturnsLiveBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: hello\n\n"))
	}))
	defer srv.Close()

	c := NewClient(NewPool())
	resp, body, err := c.StreamForward(context.Background(), http.MethodPost, srv.URL, nil, []byte(`{}`))
	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
