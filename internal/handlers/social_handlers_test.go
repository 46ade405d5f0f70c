package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glowlabs/glowlabs/internal/models"
	"github.com/glowlabs/glowlabs/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newSocialTestHandlers(t *testing.T, clients *fakeClientAccounts, profile *SocialProfile) (*SocialHandlers, *service.TokenService, *httptest.Server) {
	t.Helper()
	cfg := testConfig()
	cfg.Social.RedirectURL = "http://localhost:3000/account/clientprofile"

	tokens, err := service.NewTokenService(&cfg.JWT, testLogger())
	require.NoError(t, err)

	h := NewSocialHandlers(clients, tokens, cfg, testLogger())
	h.fetchProfile = func(ctx context.Context, accessToken string) (*SocialProfile, error) {
		return profile, nil
	}

	// Stand-in token endpoint so Exchange never leaves the test process.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"provider-token","token_type":"bearer"}`))
	}))
	t.Cleanup(server.Close)
	h.oauth.Endpoint = oauth2.Endpoint{AuthURL: server.URL + "/auth", TokenURL: server.URL + "/token"}

	return h, tokens, server
}

func socialProfile(email string) *SocialProfile {
	p := &SocialProfile{Email: email, FirstName: "Jane", LastName: "Doe"}
	p.Picture.Data.URL = "https://example.com/pic.jpg"
	return p
}

func callbackRequest(state string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/facebook/callback?state="+state+"&code=abc123", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: state})
	return req
}

func TestBeginRedirectsWithStateCookie(t *testing.T) {
	h, _, _ := newSocialTestHandlers(t, newFakeClientAccounts(), socialProfile("jane@example.com"))

	rec := httptest.NewRecorder()
	h.Begin(rec, httptest.NewRequest(http.MethodGet, "/auth/facebook", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	cookies := cookieMap(rec)
	require.Contains(t, cookies, stateCookieName)
	assert.NotEmpty(t, cookies[stateCookieName].Value)
	assert.Contains(t, rec.Header().Get("Location"), "state="+cookies[stateCookieName].Value)
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	h, _, _ := newSocialTestHandlers(t, newFakeClientAccounts(), socialProfile("jane@example.com"))

	req := httptest.NewRequest(http.MethodGet, "/auth/facebook/callback?state=forged&code=abc123", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "expected"})

	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackMintsOnlyBootstrapPairForExistingClient(t *testing.T) {
	clients := newFakeClientAccounts()
	clients.add(&models.Client{ID: "client-1", Email: "jane@example.com", PhoneNumber: "+15551234567"})
	h, tokens, _ := newSocialTestHandlers(t, clients, socialProfile("jane@example.com"))

	rec := httptest.NewRecorder()
	h.Callback(rec, callbackRequest("state-1"))

	assert.Equal(t, http.StatusFound, rec.Code)

	cookies := cookieMap(rec)
	require.Contains(t, cookies, "temporary-facebook-access-token")
	require.Contains(t, cookies, "temporary-facebook-dummy-token")
	assert.NotContains(t, cookies, "access-token",
		"full session issuance is the middleware's job, even with a phone on file")
	assert.NotContains(t, cookies, "refresh-token")

	claims, err := tokens.VerifyAccess(cookies["temporary-facebook-access-token"].Value)
	require.NoError(t, err)
	assert.Equal(t, "client-1", claims.PrincipalID)

	displayClaims, err := tokens.VerifyDisplay(cookies["temporary-facebook-dummy-token"].Value)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/pic.jpg", displayClaims.Picture)

	assert.Empty(t, clients.created)
}

func TestCallbackCreatesClientOnFirstLogin(t *testing.T) {
	clients := newFakeClientAccounts()
	h, _, _ := newSocialTestHandlers(t, clients, socialProfile("new@example.com"))

	rec := httptest.NewRecorder()
	h.Callback(rec, callbackRequest("state-1"))

	assert.Equal(t, http.StatusFound, rec.Code)
	require.Len(t, clients.created, 1)
	assert.Equal(t, "new@example.com", clients.created[0].Email)
	assert.Equal(t, "Jane", clients.created[0].FirstName)
	assert.Empty(t, clients.created[0].PhoneNumber)
}

func TestCallbackRejectsProfileWithoutEmail(t *testing.T) {
	h, _, _ := newSocialTestHandlers(t, newFakeClientAccounts(), socialProfile(""))

	rec := httptest.NewRecorder()
	h.Callback(rec, callbackRequest("state-1"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
