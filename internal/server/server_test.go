package server

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgxilos/wdd231/internal/directory"
	"github.com/jgxilos/wdd231/internal/discover"
	"github.com/jgxilos/wdd231/internal/models"
	"github.com/jgxilos/wdd231/internal/notify"
	"github.com/jgxilos/wdd231/internal/pagegen"
)

var siteFiles = map[string]string{
	"templates/partials/header.html": `{{define "header"}}<!DOCTYPE html><html lang="en"><head><title>{{.Title}}</title></head><body>{{end}}`,
	"templates/partials/navbar.html": `{{define "navbar"}}<nav><a href="{{.Href "home"}}">Home</a></nav>{{end}}`,
	"templates/partials/footer.html": `{{define "footer"}}<footer>{{.CurrentYear}}</footer></body></html>{{end}}`,
	"templates/index.html":           `{{template "header" .}}{{template "navbar" .}}<div id="spotlights-list"></div>{{template "footer" .}}`,
	"templates/directory.html":       `{{template "header" .}}{{template "navbar" .}}{{if .Static}}<a id="gridBtn" href="directory.html">Grid</a><a id="listBtn" href="directory-list.html">List</a>{{else}}<form method="post" action="/directory/view"><button id="gridBtn" name="mode" value="grid">Grid</button><button id="listBtn" name="mode" value="list">List</button></form>{{end}}<div id="membersContainer"></div>{{template "footer" .}}`,
	"templates/discover.html":        `{{template "header" .}}<p id="visitor-message"></p><div id="discover-container"></div>{{template "footer" .}}`,
	"templates/join.html":            `{{template "header" .}}<form id="membershipForm" method="post">{{.CSRFField}}<input name="firstName"><input type="hidden" id="timestamp" name="timestamp"></form><div id="level-dialogs"></div>{{template "footer" .}}`,
	"templates/thankyou.html":        `{{template "header" .}}<div id="summary-card"><p id="displayName"></p><p id="displayLevel"></p></div>{{template "footer" .}}`,
	"data/places.json":               `{"places":[{"name":"Plaza Bolívar","address":"Centro","description":"Main square","image":"images/p.webp"}]}`,
	"static/css/style.css":           `body{}`,
}

type fakeSource struct {
	members []models.Member
}

func (f fakeSource) Load(context.Context) ([]models.Member, error) {
	return f.members, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (r *recordingSender) Send(_ context.Context, msg notify.Message) (notify.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return notify.Receipt{ID: "test"}, nil
}

var testNow = time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T, sender notify.Sender) *httptest.Server {
	t.Helper()
	root := t.TempDir()
	for name, body := range siteFiles {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	loader, err := directory.NewLoader(directory.LocalClient(root), "file:///", nil)
	require.NoError(t, err)

	site := &pagegen.Site{
		Generator: pagegen.NewGenerator(filepath.Join(root, "templates"), "Test Chamber", nil),
		SourceDir: root,
		Members: fakeSource{members: []models.Member{
			{Name: "Gold Co", MembershipLevel: models.LevelGold, Phone: "555-111-2222"},
			{Name: "Basic Co"},
		}},
		Data:           loader,
		SpotlightCount: 3,
		DefaultView:    directory.ModeGrid,
		Now:            func() time.Time { return testNow },
	}
	srv, err := New(Options{
		Site:        site,
		Sender:      sender,
		OfficeEmail: "office@example.com",
		CSRFKey:     []byte("0123456789abcdef0123456789abcdef"),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func get(t *testing.T, c *http.Client, u string) (int, string) {
	t.Helper()
	resp, err := c.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func post(t *testing.T, c *http.Client, u string, form url.Values) (int, string) {
	t.Helper()
	resp, err := c.PostForm(u, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)

	status, body := get(t, ts.Client(), ts.URL+"/healthz")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)
}

func TestDirectoryDefaultsToGrid(t *testing.T) {
	ts := newTestServer(t, nil)

	status, body := get(t, newClient(t), ts.URL+"/directory")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `class="members-grid"`)
	assert.Contains(t, body, "Gold Co")
	assert.Contains(t, body, `href="/"`)
	assert.Contains(t, body, `action="/directory/view"`)
	assert.NotContains(t, body, `href="directory-list.html"`)
}

func TestViewModeIsRememberedPerVisitor(t *testing.T) {
	ts := newTestServer(t, nil)
	alice := newClient(t)
	bob := newClient(t)

	status, body := post(t, alice, ts.URL+"/directory/view", url.Values{"mode": {"list"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `class="members-list"`)

	_, body = get(t, alice, ts.URL+"/directory")
	assert.Contains(t, body, `class="members-list"`)

	_, body = get(t, bob, ts.URL+"/directory")
	assert.Contains(t, body, `class="members-grid"`)
}

func TestInvalidViewModeIsRejected(t *testing.T) {
	ts := newTestServer(t, nil)

	status, _ := post(t, newClient(t), ts.URL+"/directory/view", url.Values{"mode": {"table"}})

	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDiscoverGreetsReturningVisitor(t *testing.T) {
	ts := newTestServer(t, nil)
	c := newClient(t)

	_, body := get(t, c, ts.URL+"/discover")
	assert.Contains(t, body, discover.WelcomeMessage)
	assert.Contains(t, body, "Plaza Bolívar")

	_, body = get(t, c, ts.URL+"/discover")
	assert.Contains(t, body, discover.SameDayMessage)
}

func TestThemeToggleRedirectsBack(t *testing.T) {
	ts := newTestServer(t, nil)
	c := newClient(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/theme", nil)
	require.NoError(t, err)
	req.Header.Set("Referer", ts.URL+"/discover")
	resp, err := c.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "/discover", resp.Request.URL.Path)
	assert.Contains(t, string(body), `class="dark-theme"`)
}

func TestJoinRejectsMissingCSRFToken(t *testing.T) {
	ts := newTestServer(t, nil)

	status, _ := post(t, newClient(t), ts.URL+"/join", url.Values{"firstName": {"Ana"}})

	assert.Equal(t, http.StatusForbidden, status)
}

var tokenPattern = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

func csrfToken(t *testing.T, c *http.Client, u string) string {
	t.Helper()
	_, body := get(t, c, u)
	m := tokenPattern.FindStringSubmatch(body)
	require.Len(t, m, 2, "csrf field missing from %s", body)
	return m[1]
}

func TestJoinSubmissionFlow(t *testing.T) {
	sender := &recordingSender{}
	ts := newTestServer(t, sender)
	c := newClient(t)
	token := csrfToken(t, c, ts.URL+"/join")

	form := url.Values{
		"gorilla.csrf.Token": {token},
		"firstName":          {"Ana"},
		"lastName":           {"Pérez"},
		"email":              {"ana@example.com"},
		"phone":              {"555-123-4567"},
		"organization":       {"Panadería Mora"},
		"membershipLevel":    {"gold"},
		"timestamp":          {"2025-04-01T10:00:00.000Z"},
	}
	status, body := post(t, c, ts.URL+"/join", form)

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Ana Pérez")
	assert.Contains(t, body, "Gold Membership")
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"office@example.com"}, sender.sent[0].To)
	assert.Equal(t, "ana@example.com", sender.sent[0].ReplyTo)
}

func TestJoinInvalidSubmissionIsRedisplayed(t *testing.T) {
	sender := &recordingSender{}
	ts := newTestServer(t, sender)
	c := newClient(t)
	token := csrfToken(t, c, ts.URL+"/join")

	status, body := post(t, c, ts.URL+"/join", url.Values{
		"gorilla.csrf.Token": {token},
		"firstName":          {"Ana"},
		"email":              {"not-an-email"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, `class="form-errors"`)
	assert.Contains(t, body, `value="Ana"`)
	assert.Empty(t, sender.sent)
}

func TestThankYouWithoutDataShowsErrorCard(t *testing.T) {
	ts := newTestServer(t, nil)

	_, body := get(t, newClient(t), ts.URL+"/thankyou")

	assert.Contains(t, body, "Unable to load application data")
}

func TestStaticFilesAreServed(t *testing.T) {
	ts := newTestServer(t, nil)

	status, body := get(t, ts.Client(), ts.URL+"/static/css/style.css")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "body{}", body)

	status, body = get(t, ts.Client(), ts.URL+"/data/places.json")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(body, "Plaza Bolívar"))
}

func TestBackToStaysOnSite(t *testing.T) {
	tests := map[string]string{
		"":                                "/",
		"http://example.com/directory":    "/directory",
		"http://example.com/thankyou?a=b": "/thankyou?a=b",
		"http://example.com//evil.com":    "/",
		"not a url%":                      "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, backTo(in), in)
	}
}
