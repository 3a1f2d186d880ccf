package cfgym

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cptracker-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const csrfLoginPageHtml = `<html><body>
<span class="csrf-token" data-csrf="token123"></span>
<form id="enterForm" action="/enter">
<input name="handleOrEmail"/><input name="password" type="password"/>
</form>
</body></html>`

const loggedInPageHtml = `<html><body>
<a href="/logout">Logout</a>
</body></html>`

func TestLogin(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/cfgym")
	defer cleanup()

	var headerToken string
	form := map[string]string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			headerToken = r.Header.Get("X-Csrf-Token")
			r.ParseForm()
			for key := range r.PostForm {
				form[key] = r.PostFormValue(key)
			}
			fmt.Fprint(w, loggedInPageHtml)
			return
		}
		fmt.Fprint(w, csrfLoginPageHtml)
	}))
	defer server.Close()

	session := newTestSession(t, server.URL)
	err := session.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	require.Equal(t, "token123", headerToken)
	require.Equal(t, "token123", form["csrf_token"])
	require.Equal(t, "enter", form["action"])
	require.Equal(t, "alice", form["handleOrEmail"])
	require.Equal(t, "hunter2", form["password"])
}

func TestLoginMissingCsrfToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// a login form the server rendered without the token span
		fmt.Fprint(w, loginPageHtml)
	}))
	defer server.Close()

	session := newTestSession(t, server.URL)
	err := session.Login(context.Background(), "alice", "hunter2")
	require.ErrorIs(t, err, ErrCsrfToken)
}

func TestLoginRejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			// codeforces re-renders the login form on bad credentials,
			// so the logout link never appears
			fmt.Fprint(w, csrfLoginPageHtml)
			return
		}
		fmt.Fprint(w, csrfLoginPageHtml)
	}))
	defer server.Close()

	session := newTestSession(t, server.URL)
	err := session.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, ErrLoginFailed)
}
