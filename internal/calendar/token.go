package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// ErrTokenUnavailable means the clinician has no usable calendar token:
// never connected, revoked, or expired without a refresh token.
var ErrTokenUnavailable = errors.New("calendar token unavailable")

// EventsScope is the only scope requested from the calendar provider.
const EventsScope = "https://www.googleapis.com/auth/calendar.events"

// TokenProvider hands out per-clinician calendar credentials.
type TokenProvider interface {
	Token(ctx context.Context, clinicianID string) (*oauth2.Token, error)
	Store(ctx context.Context, clinicianID string, tok *oauth2.Token) error
	Revoke(ctx context.Context, clinicianID string) error
	Connected(ctx context.Context, clinicianID string) bool
	AuthURL(state string) string
}

// TokenStore persists tokens beyond the local cache so other processes
// (the reconciler) can use them.
type TokenStore interface {
	Load(ctx context.Context, clinicianID string) (*oauth2.Token, error)
	Save(ctx context.Context, clinicianID string, tok *oauth2.Token) error
	Delete(ctx context.Context, clinicianID string) error
}

// expirySkew treats tokens about to expire as already expired.
const expirySkew = 30 * time.Second

type Provider struct {
	cache  *cache.Cache
	store  TokenStore
	oauth  *oauth2.Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewProvider builds a provider. store and oauth may be nil: without a store
// tokens live only in this process, without an oauth config tokens are never
// refreshed.
func NewProvider(store TokenStore, oauth *oauth2.Config, logger zerolog.Logger) *Provider {
	return &Provider{
		cache:  cache.New(time.Hour, 10*time.Minute),
		store:  store,
		oauth:  oauth,
		logger: logger.With().Str("component", "calendar-tokens").Logger(),
		now:    time.Now,
	}
}

// OAuthConfig returns the client config for the calendar provider.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{EventsScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}
}

func (p *Provider) valid(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	return tok.Expiry.IsZero() || tok.Expiry.After(p.now().Add(expirySkew))
}

func (p *Provider) lookup(ctx context.Context, clinicianID string) (*oauth2.Token, error) {
	if v, ok := p.cache.Get(clinicianID); ok {
		return v.(*oauth2.Token), nil
	}
	if p.store == nil {
		return nil, nil
	}
	tok, err := p.store.Load(ctx, clinicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar token: %w", err)
	}
	if tok != nil {
		p.cacheToken(clinicianID, tok)
	}
	return tok, nil
}

func (p *Provider) cacheToken(clinicianID string, tok *oauth2.Token) {
	ttl := cache.DefaultExpiration
	if tok.RefreshToken == "" && !tok.Expiry.IsZero() {
		ttl = tok.Expiry.Sub(p.now())
		if ttl <= 0 {
			p.cache.Delete(clinicianID)
			return
		}
	}
	p.cache.Set(clinicianID, tok, ttl)
}

// Token returns a valid access token, refreshing it when possible.
func (p *Provider) Token(ctx context.Context, clinicianID string) (*oauth2.Token, error) {
	tok, err := p.lookup(ctx, clinicianID)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, ErrTokenUnavailable
	}
	if p.valid(tok) {
		return tok, nil
	}
	if tok.RefreshToken == "" || p.oauth == nil {
		return nil, fmt.Errorf("%w: token expired", ErrTokenUnavailable)
	}

	refreshed, err := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken}).Token()
	if err != nil {
		p.logger.Warn().Err(err).Str("clinician_id", clinicianID).Msg("calendar token refresh failed")
		return nil, fmt.Errorf("%w: refresh failed: %v", ErrTokenUnavailable, err)
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = tok.RefreshToken
	}
	if err := p.Store(ctx, clinicianID, refreshed); err != nil {
		p.logger.Warn().Err(err).Str("clinician_id", clinicianID).Msg("failed to persist refreshed token")
	}
	return refreshed, nil
}

func (p *Provider) Store(ctx context.Context, clinicianID string, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return errors.New("empty calendar token")
	}
	p.cacheToken(clinicianID, tok)
	if p.store != nil {
		if err := p.store.Save(ctx, clinicianID, tok); err != nil {
			return fmt.Errorf("failed to save calendar token: %w", err)
		}
	}
	return nil
}

func (p *Provider) Revoke(ctx context.Context, clinicianID string) error {
	p.cache.Delete(clinicianID)
	if p.store != nil {
		if err := p.store.Delete(ctx, clinicianID); err != nil {
			return fmt.Errorf("failed to delete calendar token: %w", err)
		}
	}
	return nil
}

func (p *Provider) Connected(ctx context.Context, clinicianID string) bool {
	tok, err := p.lookup(ctx, clinicianID)
	if err != nil || tok == nil {
		return false
	}
	return p.valid(tok) || (tok.RefreshToken != "" && p.oauth != nil)
}

// AuthURL returns the browser redirect for the implicit grant, which hands
// the access token straight back to the redirect page.
func (p *Provider) AuthURL(state string) string {
	if p.oauth == nil {
		return ""
	}
	return p.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_type", "token"),
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// RedisStore keeps tokens in redis as JSON.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "calendar:token:"
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) Load(ctx context.Context, clinicianID string) (*oauth2.Token, error) {
	raw, err := s.client.Get(ctx, s.prefix+clinicianID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &tok, nil
}

func (s *RedisStore) Save(ctx context.Context, clinicianID string, tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	var ttl time.Duration
	if tok.RefreshToken == "" && !tok.Expiry.IsZero() {
		ttl = tok.Expiry.Sub(s.now())
		if ttl <= 0 {
			return s.Delete(ctx, clinicianID)
		}
	}
	return s.client.Set(ctx, s.prefix+clinicianID, raw, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, clinicianID string) error {
	return s.client.Del(ctx, s.prefix+clinicianID).Err()
}
