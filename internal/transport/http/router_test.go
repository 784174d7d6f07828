package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmca-notices/internal/application/session"
	"github.com/dmca-notices/internal/config"
	"github.com/dmca-notices/internal/domain"
	jwtinfra "github.com/dmca-notices/internal/infrastructure/jwt"
	"github.com/dmca-notices/internal/pkg/dmca"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- in-memory collaborators ---

type memNotices struct {
	mu   sync.Mutex
	byID map[string]domain.Notice
}

func (m *memNotices) Save(_ context.Context, n *domain.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[n.NoticeID] = *n
	return nil
}

func (m *memNotices) Get(_ context.Context, id string) (*domain.Notice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &n, nil
}

func (m *memNotices) ListByOwner(_ context.Context, userID string, filter domain.NoticeFilter) ([]domain.Notice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Notice{}
	for _, n := range m.byID {
		if n.UserID != userID || (filter.ExcludeRemoved && n.ContentRemoved) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NoticeID > out[j].NoticeID })
	return out, nil
}

func (m *memNotices) SetContentRemoved(_ context.Context, id, owner string, removed bool) (*domain.Notice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.byID[id]
	if !ok || n.UserID != owner {
		return nil, domain.ErrNotFound
	}
	n.ContentRemoved = removed
	m.byID[id] = n
	return &n, nil
}

type memProviders []domain.Provider

func (m memProviders) List(context.Context) ([]domain.Provider, error) { return m, nil }

func (m memProviders) Get(_ context.Context, id string) (*domain.Provider, error) {
	for i := range m {
		if m[i].ProviderID == id {
			return &m[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

type memUsers map[string]*domain.User

func (m memUsers) Get(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

type queued struct{ to, from, subject string }

type recordingMail struct {
	mu   sync.Mutex
	sent []queued
}

func (r *recordingMail) Enqueue(_ string, _ any, from, to, subject string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, queued{to: to, from: from, subject: subject})
}

// --- harness ---

type harness struct {
	t       *testing.T
	handler http.Handler
	jwt     *jwtinfra.Provider
	notices *memNotices
	mail    *recordingMail
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	dir := t.TempDir()
	privPath, pubPath := filepath.Join(dir, "private.pem"), filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}), 0600))
	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}), 0600))

	cfg := &config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         time.Hour,
		SessionTTL:        time.Hour,
		AllowedOrigins:    []string{"*"},
	}
	p, err := jwtinfra.NewProvider(cfg)
	require.NoError(t, err)
	compiler, err := dmca.NewCompiler(nil)
	require.NoError(t, err)

	h := &harness{t: t, jwt: p, notices: &memNotices{byID: map[string]domain.Notice{}}, mail: &recordingMail{}}
	h.handler = NewRouter(cfg, &Deps{
		UserRepo: memUsers{
			"u1": {UserID: "u1", Name: "Jane Doe", Email: "jane@example.com"},
			"u2": {UserID: "u2", Name: "Mallory", Email: "mallory@example.com"},
		},
		NoticeRepo: h.notices,
		ProviderRepo: memProviders{
			{ProviderID: "42", Name: "Acme Hosting", Email: "abuse@acme.example"},
		},
		SessionStore: session.NewMemoryStore(),
		Compiler:     compiler,
		Mail:         h.mail,
		JWTProvider:  p,
	})
	return h
}

func (h *harness) do(method, target, userID, sessionID, body string) *httptest.ResponseRecorder {
	h.t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if userID != "" {
		token, err := h.jwt.Sign(userID, sessionID)
		require.NoError(h.t, err)
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, r)
	return rr
}

const scenarioForm = `{"provider_id":"42","title":"X","description":"Y",` +
	`"infringing_url":"https://pirate.example/x","original_url":"https://jane.example/x","signature":"Jane Doe"}`

func TestRouter_NoticeLifecycle(t *testing.T) {
	h := newHarness(t)

	rr := h.do(http.MethodGet, "/v1/notices/create", "u1", "s1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"providers":[{"id":"42","name":"Acme Hosting"}]}`, rr.Body.String())

	rr = h.do(http.MethodPost, "/v1/notices/confirm", "u1", "s1", scenarioForm)
	require.Equal(t, http.StatusOK, rr.Code)
	var conf struct {
		Template string            `json:"template"`
		Draft    map[string]string `json:"draft"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&conf))
	assert.Contains(t, conf.Template, "Jane Doe")
	assert.Contains(t, conf.Template, "jane@example.com")
	assert.Equal(t, "42", conf.Draft["provider_id"])
	assert.Empty(t, h.notices.byID)

	rr = h.do(http.MethodPost, "/v1/notices", "u1", "s1", `{"template":"standard"}`)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/v1/notices", rr.Header().Get("Location"))

	require.Len(t, h.notices.byID, 1)
	require.Len(t, h.mail.sent, 1)
	assert.Equal(t, queued{to: "abuse@acme.example", from: "jane@example.com", subject: "DMCA Notice"}, h.mail.sent[0])

	rr = h.do(http.MethodGet, "/v1/notices", "u1", "s1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Notices []domain.Notice `json:"notices"`
		Flash   string          `json:"flash"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	require.Len(t, list.Notices, 1)
	assert.Equal(t, "Your DMCA notice has been delivered!", list.Flash)
	assert.False(t, list.Notices[0].ContentRemoved)
	id := list.Notices[0].NoticeID

	rr = h.do(http.MethodGet, "/v1/notices", "u1", "s1", "")
	assert.NotContains(t, rr.Body.String(), "flash")

	rr = h.do(http.MethodPatch, "/v1/notices/"+id, "u1", "s1", `{"content_removed":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, h.notices.byID[id].ContentRemoved)

	rr = h.do(http.MethodGet, "/v1/notices?exclude_removed=true", "u1", "s1", "")
	assert.JSONEq(t, `{"notices":[]}`, rr.Body.String())

	// A second store without a fresh confirm goes back to the form.
	rr = h.do(http.MethodPost, "/v1/notices", "u1", "s1", "")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/v1/notices/create", rr.Header().Get("Location"))
	assert.Len(t, h.notices.byID, 1)
}

func TestRouter_OtherUsersNoticeIsHidden(t *testing.T) {
	h := newHarness(t)
	h.notices.byID["n1"] = domain.Notice{NoticeID: "n1", UserID: "u1", Content: "text"}

	rr := h.do(http.MethodGet, "/v1/notices/n1", "u2", "s2", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = h.do(http.MethodPost, "/v1/notices/n1", "u2", "s2", `{"content_removed":true}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.False(t, h.notices.byID["n1"].ContentRemoved)

	rr = h.do(http.MethodGet, "/v1/notices", "u2", "s2", "")
	assert.JSONEq(t, `{"notices":[]}`, rr.Body.String())
}

func TestRouter_DraftIsScopedToSession(t *testing.T) {
	h := newHarness(t)
	rr := h.do(http.MethodPost, "/v1/notices/confirm", "u1", "s1", scenarioForm)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(http.MethodPost, "/v1/notices", "u1", "other-tab", "")
	assert.Equal(t, "/v1/notices/create", rr.Header().Get("Location"))
	assert.Empty(t, h.notices.byID)
}

func TestRouter_InvalidConfirmRedisplaysForm(t *testing.T) {
	h := newHarness(t)
	rr := h.do(http.MethodPost, "/v1/notices/confirm", "u1", "s1", `{"provider_id":"42","title":"X"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp struct {
		Fields    map[string]string       `json:"fields"`
		Providers []domain.ProviderOption `json:"providers"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Contains(t, resp.Fields, "signature")
	assert.Len(t, resp.Providers, 1)

	rr = h.do(http.MethodPost, "/v1/notices", "u1", "s1", "")
	assert.Equal(t, "/v1/notices/create", rr.Header().Get("Location"))
}

func TestRouter_RequiresBearer(t *testing.T) {
	h := newHarness(t)
	for _, route := range []string{"GET /v1/notices", "GET /v1/notices/create", "POST /v1/notices/confirm", "POST /v1/notices", "GET /v1/notices/n1"} {
		method, path, _ := strings.Cut(route, " ")
		rr := h.do(method, path, "", "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, route)
	}
}

func TestRouter_PublicEndpoints(t *testing.T) {
	h := newHarness(t)

	rr := h.do(http.MethodGet, "/v1/health-check/ping", "", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(http.MethodGet, "/v1/health-check/ready", "", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"ready"}`, rr.Body.String())

	rr = h.do(http.MethodGet, "/metrics", "", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total")
}

func TestRouter_UnknownUserIsUnauthorized(t *testing.T) {
	h := newHarness(t)
	rr := h.do(http.MethodGet, "/v1/notices", "ghost", "s", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), fmt.Sprintf("%q", "error"))
	assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")
}
