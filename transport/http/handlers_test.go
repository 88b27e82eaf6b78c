package http

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onchain-guard/gatekeeper/adapters/nonce"
	"github.com/onchain-guard/gatekeeper/adapters/store"
	"github.com/onchain-guard/gatekeeper/adapters/tokenizer"
	"github.com/onchain-guard/gatekeeper/internal/eth"
	"github.com/onchain-guard/gatekeeper/service"
)

const testDomain = "dashboard.example.com"

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	authService := service.NewAuthService(
		testDomain, "https://"+testDomain,
		tokenizer.NewJWTTokenizer(key),
		nonce.NewMemoryStore(5*time.Minute),
		store.NewMemoryStore(),
	)

	return SetupRouter(authService, nil)
}

func fetchChallenge(t *testing.T, router *gin.Engine, address string) (message, nonceValue string) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/challenge?address="+address+"&chain_id=1", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Message string `json:"message"`
		Nonce   string `json:"nonce"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Message)
	require.NotEmpty(t, resp.Nonce)
	return resp.Message, resp.Nonce
}

func postVerify(t *testing.T, router *gin.Engine, message, signature string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"message":   message,
		"signature": signature,
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func sign(t *testing.T, signer *eth.Signer, message string) string {
	t.Helper()
	sig, err := signer.SignMessage([]byte(message))
	require.NoError(t, err)
	return hexutil.Encode(sig)
}

func TestChallengeRequiresAddress(t *testing.T) {
	router := newRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/challenge", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/challenge?address=nope", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFullSignInFlow(t *testing.T) {
	router := newRouter(t)
	signer, err := eth.GenerateSigner()
	require.NoError(t, err)

	message, _ := fetchChallenge(t, router, signer.Address().Hex())

	w := postVerify(t, router, message, sign(t, signer, message))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	assert.Equal(t, "Bearer", tokens.TokenType)
	require.NotEmpty(t, tokens.AccessToken)

	// The access token authenticates /api/me.
	me := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)

	var whoami struct {
		Address string `json:"address"`
	}
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &whoami))
	assert.Equal(t, signer.Address().Hex(), whoami.Address)
}

func TestReplaySameSignedMessage(t *testing.T) {
	router := newRouter(t)
	signer, err := eth.GenerateSigner()
	require.NoError(t, err)

	message, _ := fetchChallenge(t, router, signer.Address().Hex())
	signature := sign(t, signer, message)

	first := postVerify(t, router, message, signature)
	require.Equal(t, http.StatusOK, first.Code)

	second := postVerify(t, router, message, signature)
	assert.Equal(t, http.StatusUnauthorized, second.Code)
	assert.Contains(t, second.Body.String(), "invalid challenge")
}

func TestDomainAndNonceFailuresIndistinguishable(t *testing.T) {
	router := newRouter(t)
	signer, err := eth.GenerateSigner()
	require.NoError(t, err)

	// Nonce failure: a self-composed message whose nonce the server
	// never issued.
	message, nonceValue := fetchChallenge(t, router, signer.Address().Hex())
	replaced := strings.Replace(message, nonceValue, "ffffffffffffffffffffffffffffffff", 1)
	nonceResp := postVerify(t, router, replaced, sign(t, signer, replaced))

	// Domain failure: a message bound to another site.
	message2, _ := fetchChallenge(t, router, signer.Address().Hex())
	foreign := strings.Replace(message2, testDomain, "evil.example.com", 1)
	domainResp := postVerify(t, router, foreign, sign(t, signer, foreign))

	assert.Equal(t, http.StatusUnauthorized, nonceResp.Code)
	assert.Equal(t, http.StatusUnauthorized, domainResp.Code)
	assert.JSONEq(t, nonceResp.Body.String(), domainResp.Body.String(),
		"a prober must not be able to tell a domain mismatch from a bad nonce")
}

func TestVerifyMalformedBody(t *testing.T) {
	router := newRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/verify", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyMalformedMessage(t *testing.T) {
	router := newRouter(t)
	w := postVerify(t, router, "not a siwe message", "0x00")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "malformed message")
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	router := newRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	router := newRouter(t)
	signer, err := eth.GenerateSigner()
	require.NoError(t, err)

	message, _ := fetchChallenge(t, router, signer.Address().Hex())
	w := postVerify(t, router, message, sign(t, signer, message))
	require.Equal(t, http.StatusOK, w.Code)

	var tokens struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))

	// Rotate.
	body, _ := json.Marshal(map[string]string{"refresh_token": tokens.RefreshToken})
	rotated := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rotated, req)
	require.Equal(t, http.StatusOK, rotated.Code, rotated.Body.String())

	// The rotated-out token no longer refreshes.
	again := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(again, req)
	assert.Equal(t, http.StatusUnauthorized, again.Code)

	// Logout with the new token succeeds.
	var next struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rotated.Body.Bytes(), &next))
	body, _ = json.Marshal(map[string]string{"refresh_token": next.RefreshToken})
	out := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/logout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)
}
