package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

var (
	// ErrFetch indicates the provider's JWKS endpoint could not be reached
	// or answered with a non-success status.
	ErrFetch = errors.New("jwks fetch failed")
	// ErrProvider indicates the provider answered with a malformed or empty
	// key set.
	ErrProvider = errors.New("malformed jwks response")
	// ErrKeyNotFound indicates the token's key id is absent even after a
	// forced refresh.
	ErrKeyNotFound = errors.New("signing key not found")
)

const (
	defaultTTL          = 1 * time.Hour
	defaultFetchTimeout = 10 * time.Second
)

// Cache fetches and caches the provider's public signing keys. The fetch is
// lazy: the first lookup populates the cache and later lookups reuse it until
// the TTL lapses. A lookup for an unknown key id forces exactly one refresh
// to pick up rotated keys before failing.
type Cache struct {
	jwksURL    string
	ttl        time.Duration
	httpClient *http.Client
	nowTime    func() time.Time

	mu        sync.RWMutex // guards current
	refreshMu sync.Mutex   // serializes fetches
	current   *keySet
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithTTL overrides how long a fetched key set is served before refetching.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithHTTPClient overrides the client used for the JWKS fetch.
func WithHTTPClient(client *http.Client) CacheOption {
	return func(c *Cache) {
		c.httpClient = client
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CacheOption {
	return func(c *Cache) {
		c.nowTime = nowFunc
	}
}

// NewCache creates a key-set cache for the given JWKS URL.
func NewCache(jwksURL string, options ...CacheOption) *Cache {
	c := &Cache{
		jwksURL: jwksURL,
		ttl:     defaultTTL,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	return c
}

// Key resolves the public key for the given key id, fetching or refreshing
// the cached set as needed.
func (c *Cache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	ks := c.snapshot()
	if c.stale(ks) {
		var err error
		ks, err = c.refresh(ctx, ks)
		if err != nil {
			return nil, err
		}
	}

	if key, ok := ks.lookup(kid); ok {
		return key, nil
	}

	// Unknown kid in a fresh set: the pool may have rotated its keys since
	// the last fetch. One forced refresh, then give up.
	ks, err := c.refresh(ctx, ks)
	if err != nil {
		return nil, err
	}
	if key, ok := ks.lookup(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
}

// Refresh forces an immediate fetch of the key set, replacing the cached one.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx, c.snapshot())
	return err
}

func (c *Cache) snapshot() *keySet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *Cache) stale(ks *keySet) bool {
	return ks == nil || c.nowTime().Sub(ks.fetchedAt) > c.ttl
}

// refresh fetches a new key set unless another caller already replaced prev
// while we waited for the fetch lock.
func (c *Cache) refresh(ctx context.Context, prev *keySet) (*keySet, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.snapshot(); current != prev && !c.stale(current) {
		return current, nil
	}

	ks, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.current = ks
	c.mu.Unlock()
	return ks, nil
}

func (c *Cache) fetch(ctx context.Context) (*keySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	var doc JWKS
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, jwk := range doc.Keys {
		if jwk.Kid == "" || jwk.Kty != "RSA" {
			continue
		}
		key, err := jwk.PublicKey()
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrProvider, jwk.Kid, err)
		}
		keys[jwk.Kid] = key
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no usable keys", ErrProvider)
	}

	return &keySet{keys: keys, fetchedAt: c.nowTime()}, nil
}
