package client

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onchain-guard/gatekeeper/adapters/nonce"
	"github.com/onchain-guard/gatekeeper/adapters/store"
	"github.com/onchain-guard/gatekeeper/adapters/tokenizer"
	"github.com/onchain-guard/gatekeeper/internal/eth"
	"github.com/onchain-guard/gatekeeper/service"
	transport "github.com/onchain-guard/gatekeeper/transport/http"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	authService := service.NewAuthService(
		"dashboard.example.com", "https://dashboard.example.com",
		tokenizer.NewJWTTokenizer(key),
		nonce.NewMemoryStore(5*time.Minute),
		store.NewMemoryStore(),
	)

	srv := httptest.NewServer(transport.SetupRouter(authService, nil))
	t.Cleanup(srv.Close)
	return srv
}

func newSignedInClient(t *testing.T, srv *httptest.Server) (*Client, *eth.Signer) {
	t.Helper()
	signer, err := eth.GenerateSigner()
	require.NoError(t, err)

	c := New(srv.URL, NewLocalProviderFromSigner(signer, 1))
	require.NoError(t, c.SignIn(context.Background()))
	return c, signer
}

func TestSignIn(t *testing.T) {
	srv := startServer(t)

	c, _ := newSignedInClient(t, srv)
	assert.True(t, c.Authenticated())
	assert.NotEmpty(t, c.AccessToken())
}

func TestSignInWithoutProvider(t *testing.T) {
	srv := startServer(t)

	c := New(srv.URL, nil)
	err := c.SignIn(context.Background())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.False(t, c.Authenticated())
}

func TestDoAttachesBearer(t *testing.T) {
	srv := startServer(t)
	c, signer := newSignedInClient(t, srv)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/me", nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var me struct {
		Address string `json:"address"`
	}
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, signer.Address().Hex(), me.Address)
}

func TestDoWithoutSession(t *testing.T) {
	srv := startServer(t)

	c := New(srv.URL, nil)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/me", nil)
	require.NoError(t, err)
	_, err = c.Do(req)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRefreshRotatesTokens(t *testing.T) {
	srv := startServer(t)
	c, _ := newSignedInClient(t, srv)

	before := c.AccessToken()
	require.NoError(t, c.Refresh(context.Background()))
	after := c.AccessToken()

	assert.NotEmpty(t, after)
	assert.NotEqual(t, before, after)
}

func TestDoRetriesOnStaleAccess(t *testing.T) {
	srv := startServer(t)
	c, _ := newSignedInClient(t, srv)

	// Corrupt the held access token. The first request 401s and the
	// client recovers through a refresh.
	c.mu.Lock()
	c.access = c.access + "x"
	c.mu.Unlock()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/me", nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignOut(t *testing.T) {
	srv := startServer(t)
	c, _ := newSignedInClient(t, srv)
	refresh := c.refresh

	c.SignOut(context.Background())
	assert.False(t, c.Authenticated())
	assert.Empty(t, c.AccessToken())

	// The revoked refresh token no longer rotates.
	c.mu.Lock()
	c.refresh = refresh
	c.mu.Unlock()
	assert.Error(t, c.Refresh(context.Background()))
}

func TestRefreshWithoutSession(t *testing.T) {
	srv := startServer(t)

	c := New(srv.URL, nil)
	assert.ErrorIs(t, c.Refresh(context.Background()), ErrNotAuthenticated)
}
