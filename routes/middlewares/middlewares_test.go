package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/oauth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionEcho(w http.ResponseWriter, r *http.Request) {
	key, ok := SessionKey(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Write([]byte(key))
}

func TestSession_NewKey(t *testing.T) {
	w := httptest.NewRecorder()
	Session(http.HandlerFunc(sessionEcho)).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, cookies[0].Value, w.Body.String())
	_, err := uuid.Parse(w.Body.String())
	assert.NoError(t, err)
}

func TestSession_KeepsKey(t *testing.T) {
	key := uuid.NewString()
	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: key})

	w := httptest.NewRecorder()
	Session(http.HandlerFunc(sessionEcho)).ServeHTTP(w, r)

	assert.Equal(t, key, w.Body.String())
	assert.Empty(t, w.Result().Cookies())
}

func TestSession_ReplacesBogusKey(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "not-a-uuid"})

	w := httptest.NewRecorder()
	Session(http.HandlerFunc(sessionEcho)).ServeHTTP(w, r)

	assert.NotEqual(t, "not-a-uuid", w.Body.String())
	assert.Len(t, w.Result().Cookies(), 1)
}

func TestSessionKey_Missing(t *testing.T) {
	_, ok := SessionKey(context.Background())
	assert.False(t, ok)
}

func TestHasRole(t *testing.T) {
	ctx := context.WithValue(context.Background(), oauth.ClaimsContext, map[string]string{"roles": "admin,user"})
	assert.True(t, HasRole(ctx, "admin"))
	assert.True(t, HasRole(ctx, "user"))
	assert.False(t, HasRole(ctx, "adm"))
	assert.False(t, HasRole(context.Background(), "admin"))
}

func TestUsername(t *testing.T) {
	_, ok := Username(context.Background())
	assert.False(t, ok)

	ctx := context.WithValue(context.Background(), oauth.CredentialContext, "ada")
	name, ok := Username(ctx)
	assert.True(t, ok)
	assert.Equal(t, "ada", name)
}

func TestOptionalAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := OptionalAuth("secret")(ok)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_RequiresToken(t *testing.T) {
	h := Admin("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("must not be reached")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCookieAuth_RedirectsToLogin(t *testing.T) {
	h := CookieAuth(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("must not be reached")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/admin/index.html", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/login?goto=%2Fadmin%2Findex.html", w.Header().Get("location"))
}
