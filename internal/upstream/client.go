package upstream

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/guardianbridge/gbridge/internal/gbridgeerr"
)

// hopByHopHeaders are stripped before forwarding: the standard
// connection-scoped headers, plus host/content-length/accept-encoding,
// since this client sets its own framing and compression negotiation.
var hopByHopHeaders = map[string]bool{
	"Host":              true,
	"Content-Length":    true,
	"Accept-Encoding":   true,
	"Connection":        true,
	"Keep-Alive":        true,
	"Proxy-Connection":  true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
}

// Client forwards one translated request to an upstream URL.
type Client struct {
	pool *Pool
}

// NewClient builds a Client backed by pool.
func NewClient(pool *Pool) *Client { return &Client{pool: pool} }

// Response is a fully-buffered non-streaming upstream reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       map[string]any
	RawBody    []byte
}

// Forward sends method/url/headers/body to the upstream and returns the
// decoded non-streaming response. Always requests gzip+br so the
// compression negotiation is under this module's control regardless of
// what the original client asked for.
func (c *Client) Forward(ctx context.Context, method, upstreamURL string, header http.Header, body []byte) (*Response, error) {
	client, err := c.pool.ClientFor(upstreamURL)
	if err != nil {
		return nil, gbridgeerr.Wrap(gbridgeerr.UpstreamError, "invalid upstream url", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, upstreamURL, bytes.NewReader(body))
	if err != nil {
		return nil, gbridgeerr.Wrap(gbridgeerr.UpstreamError, "build upstream request", err)
	}
	copyForwardHeaders(req.Header, header)
	req.Header.Set("Accept-Encoding", "gzip, br, identity")

	resp, err := client.Do(req)
	if err != nil {
		return nil, gbridgeerr.Wrap(gbridgeerr.UpstreamError, "upstream request failed", err)
	}
	defer resp.Body.Close()

	raw, err := decodeBody(resp)
	if err != nil {
		return nil, gbridgeerr.Wrap(gbridgeerr.UpstreamError, "read upstream response", err)
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, RawBody: raw}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		out.Body = decoded
	}
	return out, nil
}

// StreamForward sends the request and returns the live response for the
// caller to stream from; the caller owns closing resp.Body. Compression
// is still negotiated and transparently unwrapped via the returned
// io.Reader, since SSE frames must be read as decoded text.
func (c *Client) StreamForward(ctx context.Context, method, upstreamURL string, header http.Header, body []byte) (*http.Response, io.ReadCloser, error) {
	client, err := c.pool.ClientFor(upstreamURL)
	if err != nil {
		return nil, nil, gbridgeerr.Wrap(gbridgeerr.UpstreamError, "invalid upstream url", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, upstreamURL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, gbridgeerr.Wrap(gbridgeerr.UpstreamError, "build upstream request", err)
	}
	copyForwardHeaders(req.Header, header)
	req.Header.Set("Accept-Encoding", "gzip, br, identity")

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, gbridgeerr.Wrap(gbridgeerr.UpstreamError, "upstream request failed", err)
	}

	reader, err := decodingReader(resp)
	if err != nil {
		resp.Body.Close()
		return nil, nil, gbridgeerr.Wrap(gbridgeerr.UpstreamError, "decode upstream stream", err)
	}
	return resp, reader, nil
}

func copyForwardHeaders(dst http.Header, src http.Header) {
	for k, vs := range src {
		if hopByHopHeaders[strings.TrimSpace(k)] {
			continue
		}
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func decodeBody(resp *http.Response) ([]byte, error) {
	reader, err := decodingReader(resp)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// decodingReader wraps resp.Body with a gzip or brotli decompressor
// according to Content-Encoding, matching the forced
// "gzip, br, identity" negotiation above.
func decodingReader(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		return &readCloserPair{Reader: gz, closer: resp.Body}, nil
	case "br":
		return &readCloserPair{Reader: brotli.NewReader(resp.Body), closer: resp.Body}, nil
	default:
		return resp.Body, nil
	}
}

// readCloserPair lets a decompressor's Reader be closed alongside the
// underlying response body it wraps.
type readCloserPair struct {
	io.Reader
	closer io.Closer
}

func (r *readCloserPair) Close() error { return r.closer.Close() }
