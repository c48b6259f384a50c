package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
)

// GoogleCertsURL serves the x509 certificates that sign Firebase ID tokens.
const GoogleCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

const defaultCertsTTL = time.Hour

// Certs maps a key id to a PEM encoded certificate or public key.
type Certs map[string]string

// KeyCache shares fetched certificates between instances.
type KeyCache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context) (certs Certs, ttl time.Duration, ok bool, err error)
	Put(ctx context.Context, certs Certs, ttl time.Duration) error
}

type CertFetcher struct {
	URL    string
	Client *http.Client
}

// Fetch downloads the certificate set and the lifetime announced by
// Cache-Control max-age.
func (f *CertFetcher) Fetch(ctx context.Context) (Certs, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, 0, err
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("fetch certs: unexpected status %d", resp.StatusCode)
	}
	var certs Certs
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return nil, 0, fmt.Errorf("decode certs: %w", err)
	}
	return certs, maxAge(resp.Header.Get("Cache-Control")), nil
}

func maxAge(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.TrimSpace(part)
		v, ok := strings.CutPrefix(strings.ToLower(part), "max-age=")
		if !ok {
			continue
		}
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultCertsTTL
}

// KeySet resolves key ids to RSA public keys, refreshing the certificate
// set once it expires.
type KeySet struct {
	Fetcher *CertFetcher
	Cache   KeyCache
	Log     zerolog.Logger

	now func() time.Time

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

func NewKeySet(fetcher *CertFetcher, cache KeyCache, log zerolog.Logger) *KeySet {
	return &KeySet{Fetcher: fetcher, Cache: cache, Log: log, now: time.Now}
}

func (s *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	keys, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	key, ok := keys[kid]
	if !ok {
		s.Log.Warn().Int("known", len(keys)).Str("kid", kid).Msg("no signing key for kid")
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return key, nil
}

func (s *KeySet) current(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	now := s.clock()

	s.mu.RLock()
	keys, expires := s.keys, s.expires
	s.mu.RUnlock()
	if keys != nil && now.Before(expires) {
		return keys, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys != nil && now.Before(s.expires) {
		return s.keys, nil
	}

	certs, ttl, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	parsed := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pem := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			s.Log.Warn().Err(err).Str("kid", kid).Msg("skip unparsable certificate")
			continue
		}
		parsed[kid] = key
	}
	s.keys = parsed
	s.expires = now.Add(ttl)
	return parsed, nil
}

func (s *KeySet) load(ctx context.Context) (Certs, time.Duration, error) {
	if s.Cache != nil {
		certs, ttl, ok, err := s.Cache.Get(ctx)
		switch {
		case err != nil:
			s.Log.Warn().Err(err).Msg("key cache read failed, fetching certs")
		case ok && ttl > 0:
			return certs, ttl, nil
		}
	}

	certs, ttl, err := s.Fetcher.Fetch(ctx)
	if err != nil {
		return nil, 0, err
	}
	if s.Cache != nil {
		if err := s.Cache.Put(ctx, certs, ttl); err != nil {
			s.Log.Warn().Err(err).Msg("key cache write failed")
		}
	}
	return certs, ttl, nil
}

func (s *KeySet) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
