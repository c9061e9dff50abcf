// Package upstream implements C8: the keyed HTTP client pool that
// forwards translated requests to the upstream named in a request's URL
// config token.
package upstream

import (
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Pool caps per §4.3, applied to each pooled client's own transport:
// 100 total idle connections, 20 idle connections per host, 100 total
// (idle + active) connections per host, 30s idle expiry, 60s request
// timeout. maxConnsPerHost is what
// actually bounds concurrent in-flight requests to one upstream;
// maxIdleConns/maxIdleConnsPerHost only bound the pool of kept-alive
// connections sitting idle between requests.
const (
	maxIdleConns        = 100
	maxIdleConnsPerHost = 20
	maxConnsPerHost     = 100
	idleConnTimeout     = 30 * time.Second
	requestTimeout      = 60 * time.Second
)

// Pool is a process-wide registry of *http.Client keyed by upstream
// host, so repeated requests to the same provider reuse keep-alive
// connections.
type Pool struct {
	mu      sync.Mutex
	clients map[string]*http.Client
}

// NewPool builds an empty Pool.
func NewPool() *Pool {
	return &Pool{clients: map[string]*http.Client{}}
}

// ClientFor returns the pooled *http.Client for rawURL's host,
// creating one on first use.
func (p *Pool) ClientFor(rawURL string) (*http.Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	key := u.Scheme + "://" + u.Host

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[key]; ok {
		return c, nil
	}

	c := &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        maxIdleConns,
			MaxIdleConnsPerHost: maxIdleConnsPerHost,
			MaxConnsPerHost:     maxConnsPerHost,
			IdleConnTimeout:     idleConnTimeout,
		},
	}
	p.clients[key] = c
	return c, nil
}

// CloseIdle closes idle connections on every pooled client.
func (p *Pool) CloseIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clients {
		c.CloseIdleConnections()
	}
}
