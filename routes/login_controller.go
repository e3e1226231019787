package routes

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/mbolis/crowdsourcing/app"
	"github.com/mbolis/crowdsourcing/httpx"
	"github.com/mbolis/crowdsourcing/log"
	"github.com/mbolis/crowdsourcing/routes/middlewares"
)

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

// Login trades basic auth credentials for an access and refresh token pair.
func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		grant(app, w, r, url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		})
	}
}

// Refresh expects an "Authorization: Refresh <token>" header.
func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := reRefresh.FindStringSubmatch(r.Header.Get("authorization"))
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		grant(app, w, r, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {match[1]},
		})
	}
}

// Logout revokes every refresh token of the authorized user and drops the
// admin UI cookies.
func Logout(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := middlewares.Username(r.Context())
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "logout.credential")
			return
		}

		err := app.Store.RevokeTokens(r.Context(), username)
		if err != nil {
			httpx.LogInternalError(w, "db.logout.revoke", err)
			return
		}

		for _, name := range []string{"access_token", "refresh_token"} {
			http.SetCookie(w, &http.Cookie{Path: "/", Name: name, MaxAge: -1, SameSite: http.SameSiteNoneMode})
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// grant runs a token request against the bearer server as if it came as
// a form post.
func grant(app app.App, w http.ResponseWriter, r *http.Request, form url.Values) {
	body := form.Encode()
	req, err := http.NewRequestWithContext(r.Context(), "POST", "/", strings.NewReader(body))
	if err != nil {
		httpx.LogInternalError(w, "grant.new_request", err)
		return
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(body)))

	resp := httpx.NewResponseBuffer()
	app.UserCredentials(resp, req)
	if resp.Status() != http.StatusOK {
		log.Debugf("grant.%s: status %d", form.Get("grant_type"), resp.Status())
	}
	err = resp.Flush(w)
	if err != nil {
		log.Warnf("grant.flush: %s", err)
	}
}
