package calendar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/medilink/clinic-api/pkg/logger"
)

type memoryStore struct {
	tokens  map[string]*oauth2.Token
	loadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tokens: map[string]*oauth2.Token{}}
}

func (s *memoryStore) Load(_ context.Context, id string) (*oauth2.Token, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.tokens[id], nil
}

func (s *memoryStore) Save(_ context.Context, id string, tok *oauth2.Token) error {
	s.tokens[id] = tok
	return nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	delete(s.tokens, id)
	return nil
}

func TestProviderStoreAndToken(t *testing.T) {
	store := newMemoryStore()
	p := NewProvider(store, nil, logger.Nop())
	ctx := context.Background()

	_, err := p.Token(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrTokenUnavailable)
	assert.False(t, p.Connected(ctx, "doc-1"))

	tok := &oauth2.Token{AccessToken: "abc", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, p.Store(ctx, "doc-1", tok))
	assert.Same(t, tok, store.tokens["doc-1"])

	got, err := p.Token(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.AccessToken)
	assert.True(t, p.Connected(ctx, "doc-1"))

	require.NoError(t, p.Revoke(ctx, "doc-1"))
	assert.Empty(t, store.tokens)
	_, err = p.Token(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrTokenUnavailable)
}

func TestProviderRejectsEmptyToken(t *testing.T) {
	p := NewProvider(nil, nil, logger.Nop())
	assert.Error(t, p.Store(context.Background(), "doc-1", &oauth2.Token{}))
	assert.Error(t, p.Store(context.Background(), "doc-1", nil))
}

func TestProviderLoadsFromSharedStore(t *testing.T) {
	store := newMemoryStore()
	store.tokens["doc-1"] = &oauth2.Token{AccessToken: "from-api"}

	// A second process sharing the store sees the token.
	p := NewProvider(store, nil, logger.Nop())
	got, err := p.Token(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "from-api", got.AccessToken)
}

func TestProviderStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.loadErr = errors.New("redis down")
	p := NewProvider(store, nil, logger.Nop())

	_, err := p.Token(context.Background(), "doc-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTokenUnavailable))
	assert.False(t, p.Connected(context.Background(), "doc-1"))
}

func TestProviderExpiredWithoutRefresh(t *testing.T) {
	now := time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	store.tokens["doc-1"] = &oauth2.Token{AccessToken: "old", Expiry: now.Add(10 * time.Second)}

	p := NewProvider(store, nil, logger.Nop())
	p.now = func() time.Time { return now }

	// Within the skew window the token already counts as expired.
	_, err := p.Token(context.Background(), "doc-1")
	assert.ErrorIs(t, err, ErrTokenUnavailable)
	assert.False(t, p.Connected(context.Background(), "doc-1"))
}

func TestProviderRefresh(t *testing.T) {
	var grant url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		grant = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	store := newMemoryStore()
	store.tokens["doc-1"] = &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-time.Minute),
	}
	oauth := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}
	p := NewProvider(store, oauth, logger.Nop())

	assert.True(t, p.Connected(context.Background(), "doc-1"))

	got, err := p.Token(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)
	assert.Equal(t, "refresh_token", grant.Get("grant_type"))
	assert.Equal(t, "refresh-1", grant.Get("refresh_token"))
	assert.Equal(t, "fresh", store.tokens["doc-1"].AccessToken)
}

func TestProviderRefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	store := newMemoryStore()
	store.tokens["doc-1"] = &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Minute),
	}
	oauth := &oauth2.Config{Endpoint: oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams}}
	p := NewProvider(store, oauth, logger.Nop())

	_, err := p.Token(context.Background(), "doc-1")
	assert.ErrorIs(t, err, ErrTokenUnavailable)
}

func TestAuthURL(t *testing.T) {
	assert.Empty(t, NewProvider(nil, nil, logger.Nop()).AuthURL("state"))

	p := NewProvider(nil, OAuthConfig("client-id", "secret", "http://localhost:3000/calendar/callback"), logger.Nop())
	raw := p.AuthURL("state-1")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	q := u.Query()
	assert.Equal(t, "token", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, EventsScope, q.Get("scope"))
	assert.Equal(t, "consent", q.Get("prompt"))
}
