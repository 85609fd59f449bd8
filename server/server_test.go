package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tunecord/accounts/internal/config"
	"github.com/tunecord/accounts/ledger"
	"github.com/tunecord/accounts/linking"
	"github.com/tunecord/accounts/provider"
	"github.com/tunecord/accounts/provider/providerfakes"
	"github.com/tunecord/accounts/server"
	"github.com/tunecord/accounts/session"
	"github.com/tunecord/accounts/store"
	"github.com/tunecord/accounts/store/repofakes"
)

const (
	testSecret  = "0123456789abcdef0123456789abcdef"
	testOwnerID = "chat-user-1"
)

// testFixture holds all test dependencies
type testFixture struct {
	server   *server.Server
	codec    *session.Codec
	requests *repofakes.FakeLinkRequestRepo
	accounts *repofakes.FakeAccountRepo
	chat     *providerfakes.FakeExchanger
	music    *providerfakes.FakeExchanger
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	codec, err := session.NewCodec(testSecret, false)
	require.NoError(t, err)

	requests := repofakes.NewFakeLinkRequestRepo()
	accounts := repofakes.NewFakeAccountRepo()
	chat := providerfakes.NewFakeExchanger(store.KindChat)
	music := providerfakes.NewFakeExchanger(store.KindMusic)

	linkService, err := linking.New(ledger.New(requests), accounts, chat, music)
	require.NoError(t, err)

	return &testFixture{
		server:   server.NewWithService(config.Config{Env: "TEST"}, codec, linkService, accounts),
		codec:    codec,
		requests: requests,
		accounts: accounts,
		chat:     chat,
		music:    music,
	}
}

// loginUser stores a chat credential the provider will accept and returns
// the matching session cookie.
func (f *testFixture) loginUser(t *testing.T) *http.Cookie {
	t.Helper()

	require.NoError(t, f.accounts.Upsert(context.Background(), &store.ProviderAccount{
		OwnerID:     testOwnerID,
		Kind:        store.KindChat,
		AccessToken: "chat-access",
	}))
	f.chat.Identities["chat-access"] = provider.Identity{ID: testOwnerID, Username: "chatter"}

	sess := &session.Session{}
	sess.SetIdentity(testOwnerID)
	return f.cookieFor(t, sess)
}

func (f *testFixture) cookieFor(t *testing.T, sess *session.Session) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, f.codec.Save(rec, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func (f *testFixture) serve(method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	for _, cookie := range cookies {
		r.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, r)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestIndexHandler(t *testing.T) {
	t.Run("anonymous visitor is sent to login", func(t *testing.T) {
		f := setupTestFixture(t)

		rec := f.serve(http.MethodGet, "/")
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("reports link status", func(t *testing.T) {
		f := setupTestFixture(t)
		cookie := f.loginUser(t)
		require.NoError(t, f.accounts.Upsert(context.Background(), &store.ProviderAccount{
			OwnerID:  testOwnerID,
			Kind:     store.KindMusic,
			Username: "listener42",
		}))

		rec := f.serve(http.MethodGet, "/", cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		require.Equal(t, testOwnerID, body["identity"])
		require.Equal(t, true, body["music_linked"])
		require.Equal(t, "listener42", body["music_username"])
	})
}

func TestLoginFlow(t *testing.T) {
	f := setupTestFixture(t)
	f.chat.Tokens["login-code"] = provider.TokenPair{
		AccessToken: "chat-access",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	f.chat.Identities["chat-access"] = provider.Identity{ID: testOwnerID, Username: "chatter"}

	// Login redirects to the provider and pins the CSRF token in the cookie.
	rec := f.serve(http.MethodGet, "/login")
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "chat.example.com", location.Host)

	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	// The callback completes the login and redirects home.
	rec = f.serve(http.MethodGet, "/login/callback?code=login-code&state="+state, cookies[0])
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))

	account, err := f.accounts.Get(context.Background(), testOwnerID, store.KindChat)
	require.NoError(t, err)
	require.Equal(t, "chat-access", account.AccessToken)
}

func TestLoginCallbackHandler_StateMismatch(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.serve(http.MethodGet, "/login")
	require.Equal(t, http.StatusFound, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	rec = f.serve(http.MethodGet, "/login/callback?code=login-code&state=forged", cookies[0])
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, f.chat.ExchangeCalls)

	// The poisoned session cookie is expired.
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Empty(t, cookies[0].Value)
}

func TestAPILinkHandler(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		f := setupTestFixture(t)

		rec := f.serve(http.MethodPost, "/api/link")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejected chat credential destroys the session", func(t *testing.T) {
		f := setupTestFixture(t)
		cookie := f.loginUser(t)
		delete(f.chat.Identities, "chat-access")

		rec := f.serve(http.MethodPost, "/api/link", cookie)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Empty(t, cookies[0].Value)
	})

	t.Run("issues a link token", func(t *testing.T) {
		f := setupTestFixture(t)
		cookie := f.loginUser(t)

		rec := f.serve(http.MethodPost, "/api/link", cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		token, _ := body["token"].(string)
		require.Len(t, token, 64)

		// Re-issuing while the request is live returns the same token.
		rec = f.serve(http.MethodPost, "/api/link", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, token, decodeBody(t, rec)["token"])
	})
}

func TestLinkFlow(t *testing.T) {
	f := setupTestFixture(t)
	f.music.Tokens["music-code"] = provider.TokenPair{
		AccessToken: "music-access",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	f.music.Identities["music-access"] = provider.Identity{
		ID:       "music-user-1",
		Username: "listener42",
		Premium:  true,
	}

	cookie := f.loginUser(t)

	rec := f.serve(http.MethodPost, "/api/link", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	token, _ := decodeBody(t, rec)["token"].(string)
	require.NotEmpty(t, token)

	// The shareable page regenerates the CSRF token, so the flow continues
	// with the refreshed cookie.
	rec = f.serve(http.MethodGet, "/link/"+token, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "music.example.com")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	linkCookie := cookies[0]

	state := url.QueryEscape(token + ":" + csrfFromCookie(t, f.codec, linkCookie))
	rec = f.serve(http.MethodGet, "/link/callback?code=music-code&state="+state, linkCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Successfully linked account")

	account, err := f.accounts.Get(context.Background(), testOwnerID, store.KindMusic)
	require.NoError(t, err)
	require.Equal(t, "music-access", account.AccessToken)
	require.Equal(t, "listener42", account.Username)

	// The one-time request is consumed: revisiting the page misses.
	rec = f.serve(http.MethodGet, "/link/"+token, linkCookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLinkPageHandler_UnknownToken(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.serve(http.MethodGet, "/link/no-such-token")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid")
}

func TestLinkCallbackHandler_BadState(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.serve(http.MethodGet, "/link/callback?code=music-code&state=nodelimiter")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, f.music.ExchangeCalls)
	require.Equal(t, 0, f.requests.Gets)
}

func TestAPIUnlinkHandler(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.loginUser(t)
	require.NoError(t, f.accounts.Upsert(context.Background(), &store.ProviderAccount{
		OwnerID:     testOwnerID,
		Kind:        store.KindMusic,
		AccessToken: "music-access",
	}))

	rec := f.serve(http.MethodPost, "/api/unlink", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decodeBody(t, rec)["ok"])

	_, err := f.accounts.Get(context.Background(), testOwnerID, store.KindMusic)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAPIUnlinkChatHandler(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.loginUser(t)

	rec := f.serve(http.MethodGet, "/api/unlink/chat", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decodeBody(t, rec)["success"])

	_, err := f.accounts.Get(context.Background(), testOwnerID, store.KindChat)
	require.ErrorIs(t, err, store.ErrNotFound)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Empty(t, cookies[0].Value)
}

func TestLogoutHandler(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.loginUser(t)

	rec := f.serve(http.MethodPost, "/logout", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decodeBody(t, rec)["ok"])
	require.Equal(t, []string{"chat-access"}, f.chat.Revoked)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Empty(t, cookies[0].Value)

	// Logging out without a session is still fine.
	rec = f.serve(http.MethodGet, "/logout")
	require.Equal(t, http.StatusOK, rec.Code)
}

// csrfFromCookie decodes the session cookie to recover the CSRF token the
// page handler pinned.
func csrfFromCookie(t *testing.T, codec *session.Codec, cookie *http.Cookie) string {
	t.Helper()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookie)
	sess := codec.Load(r)
	require.NotEmpty(t, sess.CSRFToken)
	return sess.CSRFToken
}
