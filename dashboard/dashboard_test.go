package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maanas1234/Celestia-Hackathon/config"
	"github.com/maanas1234/Celestia-Hackathon/models"
)

func strPtr(s string) *string { return &s }

func newDashboard(t *testing.T, backendURL string) (*httptest.Server, *http.Client) {
	t.Helper()
	log := zap.NewNop().Sugar()
	sessions, err := NewSessionManager(time.Hour)
	require.NoError(t, err)

	cfg := config.DashboardConfig{
		BackendURL:      backendURL,
		AlertLimit:      20,
		FetchTimeout:    time.Second,
		RefreshInterval: 30 * time.Second,
	}
	srv, err := NewServer(cfg, NewUserStore(), sessions, NewBackendClient(backendURL, cfg.FetchTimeout), log)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ts, &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func postForm(t *testing.T, client *http.Client, endpoint string, username, password string) (int, string) {
	t.Helper()
	resp, err := client.PostForm(endpoint, url.Values{"username": {username}, "password": {password}})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func get(t *testing.T, client *http.Client, endpoint string) (int, string) {
	t.Helper()
	resp, err := client.Get(endpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func signedIn(t *testing.T, ts *httptest.Server, client *http.Client) {
	t.Helper()
	status, body := postForm(t, client, ts.URL+"/signup", "admin", "hunter2")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "Signup successful! Please login.")

	// login redirects to the alert page, which the client follows
	status, _ = postForm(t, client, ts.URL+"/login", "admin", "hunter2")
	require.Equal(t, http.StatusOK, status)
}

func alertBackend(t *testing.T, alerts []models.AlertView) *httptest.Server {
	t.Helper()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/alerts/latest" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(alerts)
	}))
	t.Cleanup(backend.Close)
	return backend
}

func TestUserStore(t *testing.T) {
	users := NewUserStore()
	users.cost = 4

	require.NoError(t, users.SignUp(" alice ", "pw"))
	assert.ErrorIs(t, users.SignUp("alice", "other"), ErrUserExists)
	assert.ErrorIs(t, users.SignUp("", "pw"), ErrMissingCredentials)
	assert.ErrorIs(t, users.SignUp("bob", ""), ErrMissingCredentials)
	assert.ErrorIs(t, users.SignUp("bob", strings.Repeat("p", 73)), ErrPasswordTooLong)

	assert.NoError(t, users.Authenticate("alice", "pw"))
	assert.ErrorIs(t, users.Authenticate("alice", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, users.Authenticate("nobody", "pw"), ErrInvalidCredentials)
	assert.ErrorIs(t, users.Authenticate("alice", ""), ErrMissingCredentials)
}

func TestAlertPageRequiresSession(t *testing.T) {
	ts, client := newDashboard(t, "http://127.0.0.1:1")
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "not-a-token"})
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestTokenFromAnotherProcessIsRejected(t *testing.T) {
	other, err := NewSessionManager(time.Hour)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, other.Issue(rec, "admin"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	ts, client := newDashboard(t, "http://127.0.0.1:1")
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	require.NoError(t, err)
	req.AddCookie(cookies[0])
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestSignupAndLoginErrors(t *testing.T) {
	ts, client := newDashboard(t, "http://127.0.0.1:1")

	status, _ := postForm(t, client, ts.URL+"/signup", "admin", "pw")
	require.Equal(t, http.StatusOK, status)

	status, body := postForm(t, client, ts.URL+"/signup", "admin", "pw")
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body, "Username already exists")

	status, body = postForm(t, client, ts.URL+"/login", "admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "Incorrect username or password")

	status, _ = postForm(t, client, ts.URL+"/login", "", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = get(t, client, ts.URL+"/signup")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `action="/signup"`)
}

func TestLoginTrimsUsername(t *testing.T) {
	backend := alertBackend(t, nil)
	ts, client := newDashboard(t, backend.URL)

	status, _ := postForm(t, client, ts.URL+"/signup", "alice", "pw")
	require.Equal(t, http.StatusOK, status)

	status, body := postForm(t, client, ts.URL+"/login", "  alice  ", "pw")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Logged in as:</strong> alice</span>")
}

func TestSignupRejectsOverlongPassword(t *testing.T) {
	ts, client := newDashboard(t, "http://127.0.0.1:1")

	status, body := postForm(t, client, ts.URL+"/signup", "admin", strings.Repeat("x", 73))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Password must be at most 72 bytes")

	status, _ = postForm(t, client, ts.URL+"/signup", "admin", strings.Repeat("x", 72))
	assert.Equal(t, http.StatusOK, status)
}

func TestAlertPageListsAlerts(t *testing.T) {
	backend := alertBackend(t, []models.AlertView{
		{
			AlertText:  "Single woman with multiple men",
			MenCount:   3,
			WomenCount: 1,
			Timestamp:  "2024-07-04 22:15:00",
			ImageURL:   strPtr("/image/alert_20240704_221500_abcd1234.jpg"),
		},
		{
			AlertText:  "<b>Single woman detected at night</b>",
			MenCount:   0,
			WomenCount: 1,
			Timestamp:  "2024-07-04 21:00:00",
		},
	})
	ts, client := newDashboard(t, backend.URL)
	signedIn(t, ts, client)

	status, body := get(t, client, ts.URL+"/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Logged in as:</strong> admin")
	assert.Contains(t, body, "Single woman with multiple men")
	assert.Contains(t, body, "Time: 2024-07-04 22:15:00 | Men: 3 | Women: 1")
	assert.Contains(t, body, backend.URL+"/image/alert_20240704_221500_abcd1234.jpg")
	assert.Contains(t, body, "&lt;b&gt;Single woman detected at night&lt;/b&gt;")
	assert.Equal(t, 1, strings.Count(body, "<img "))
	assert.Contains(t, body, `http-equiv="refresh" content="30"`)
	assert.NotContains(t, body, "No alerts yet.")
}

func TestAlertPageEmpty(t *testing.T) {
	backend := alertBackend(t, []models.AlertView{})
	ts, client := newDashboard(t, backend.URL)
	signedIn(t, ts, client)

	status, body := get(t, client, ts.URL+"/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "No alerts yet.")
	assert.NotContains(t, body, `class="error"`)
}

func TestAlertPageBackendFailures(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	downURL := down.URL
	down.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	t.Cleanup(failing.Close)

	malformed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"none"}`))
	}))
	t.Cleanup(malformed.Close)

	cases := []struct {
		name       string
		backendURL string
		wantErr    string
	}{
		{name: "unreachable", backendURL: downURL, wantErr: "request failed"},
		{name: "non-2xx", backendURL: failing.URL, wantErr: "backend returned 503"},
		{name: "malformed", backendURL: malformed.URL, wantErr: "malformed alert list"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts, client := newDashboard(t, tc.backendURL)
			signedIn(t, ts, client)

			status, body := get(t, client, ts.URL+"/")
			require.Equal(t, http.StatusOK, status)
			assert.Contains(t, body, "Cannot fetch alerts. Check backend URL.")
			assert.Contains(t, body, tc.wantErr)
			assert.Equal(t, 1, strings.Count(strings.ToLower(body), "cannot fetch alerts"))
			assert.Contains(t, body, "No alerts yet.")
		})
	}
}

func TestLogoutEndsSession(t *testing.T) {
	backend := alertBackend(t, nil)
	ts, client := newDashboard(t, backend.URL)
	signedIn(t, ts, client)

	status, body := postForm(t, client, ts.URL+"/logout", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `action="/login"`)

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestBackendClientImageURL(t *testing.T) {
	b := NewBackendClient("http://backend:8000/", time.Second)

	assert.Equal(t, "", b.ImageURL(nil))
	assert.Equal(t, "", b.ImageURL(strPtr("")))
	assert.Equal(t, "http://backend:8000/image/a.jpg", b.ImageURL(strPtr("/image/a.jpg")))
	assert.Equal(t, "https://res.cloudinary.com/demo/a.jpg", b.ImageURL(strPtr("https://res.cloudinary.com/demo/a.jpg")))
}

func TestBackendClientSocketURL(t *testing.T) {
	assert.Equal(t, "ws://backend:8000/ws/alerts", NewBackendClient("http://backend:8000", time.Second).AlertsSocketURL())
	assert.Equal(t, "wss://alerts.example.com/api/ws/alerts", NewBackendClient("https://alerts.example.com/api/", time.Second).AlertsSocketURL())
}

func TestBackendClientLatestHonoursContext(t *testing.T) {
	block := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		slow.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewBackendClient(slow.URL, 5*time.Second).Latest(ctx, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}
