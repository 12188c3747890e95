package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/signalforge/signalforge/internal/adapter/driving/http"
	"github.com/signalforge/signalforge/internal/application"
	"github.com/signalforge/signalforge/internal/domain/model"
	"github.com/signalforge/signalforge/internal/domain/port/driven"
	"github.com/signalforge/signalforge/internal/observability"
)

// --- Mock implementations ---

type mockAccountStore struct {
	mu       sync.Mutex
	accounts []model.Account
	err      error
}

func (m *mockAccountStore) List(_ context.Context, class model.AccountClass) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []model.Account{}
	for i := len(m.accounts) - 1; i >= 0; i-- {
		if m.accounts[i].Class == class {
			out = append(out, m.accounts[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockAccountStore) Get(_ context.Context, class model.AccountClass, id string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Class == class && a.ID == id {
			return a, nil
		}
	}
	return model.Account{}, driven.ErrAccountNotFound
}

func (m *mockAccountStore) Create(_ context.Context, a model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.accounts = append(m.accounts, a)
	return nil
}

func (m *mockAccountStore) Update(_ context.Context, class model.AccountClass, id string, f model.AccountFields) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.accounts {
		if a.Class == class && a.ID == id {
			a.Name, a.AppKey, a.AppSecret, a.AccessToken = f.Name, f.AppKey, f.AppSecret, f.AccessToken
			m.accounts[i] = a
			return a, nil
		}
	}
	return model.Account{}, driven.ErrAccountNotFound
}

func (m *mockAccountStore) Delete(_ context.Context, class model.AccountClass, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.accounts {
		if a.Class == class && a.ID == id {
			m.accounts = append(m.accounts[:i], m.accounts[i+1:]...)
			return nil
		}
	}
	return driven.ErrAccountNotFound
}

type mockProvider struct {
	calls  atomic.Int32
	result model.QuoteResult
}

func (p *mockProvider) FetchQuote(_ context.Context, _ *model.Credentials, _ string) model.QuoteResult {
	p.calls.Add(1)
	return p.result
}

type mockSystemProbe struct {
	snap model.SystemSnapshot
	err  error
}

func (m *mockSystemProbe) Snapshot(context.Context) (model.SystemSnapshot, error) {
	return m.snap, m.err
}

// --- Test helpers ---

const testSecret = "test-session-secret"

type testEnv struct {
	store    *mockAccountStore
	licensed *mockProvider
	public   *mockProvider
	probe    *mockSystemProbe
	metrics  *observability.Metrics
	mux      http.Handler
}

func setupEnv(t *testing.T, gate *httphandler.Gate) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    &mockAccountStore{},
		licensed: &mockProvider{},
		public:   &mockProvider{},
		probe:    &mockSystemProbe{},
		metrics:  observability.NewMetrics("test"),
	}
	accounts := application.NewAccountService(env.store, slog.Default())
	quotes := application.NewQuoteDispatcher(env.store, env.licensed, env.public, time.Second, env.metrics, slog.Default())
	h := httphandler.NewHandler(accounts, quotes, env.probe, slog.Default())
	env.mux = httphandler.NewServeMux(h, gate, env.metrics, slog.Default())
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

func signToken(t *testing.T, secret, role string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-1",
		"role": role,
		"exp":  exp.Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

const primaryBody = `{"name":"Primary","appKey":"k1","appSecret":"s1","accessToken":"t1"}`

// --- Account tests ---

func TestCreateAndListAccounts(t *testing.T) {
	env := setupEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/accounts/trading", primaryBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var created map[string]any
	decodeJSON(t, rec, &created)
	assert.NotEmpty(t, created["id"])
	assert.NotEmpty(t, created["createdAt"])
	assert.Equal(t, "Primary", created["name"])
	assert.Equal(t, "k1", created["appKey"])
	assert.Equal(t, "s1", created["appSecret"])
	assert.Equal(t, "t1", created["accessToken"])
	assert.Equal(t, "trading", created["accountClass"])

	rec = env.do(t, http.MethodGet, "/accounts/trading", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	decodeJSON(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, created, list[0])

	rec = env.do(t, http.MethodGet, "/accounts/message", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAccountRoutesUnderAPIPrefix(t *testing.T) {
	env := setupEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/accounts/message", primaryBody)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/accounts/message", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	decodeJSON(t, rec, &list)
	assert.Len(t, list, 1)
}

func TestCreateAccount_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFields []string
	}{
		{name: "invalid json", body: `{`, wantStatus: http.StatusBadRequest},
		{
			name:       "missing secret",
			body:       `{"name":"Primary","appKey":"k1","accessToken":"t1"}`,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"appSecret"},
		},
		{
			name:       "empty body object",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"name", "appKey", "appSecret", "accessToken"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupEnv(t, nil)

			rec := env.do(t, http.MethodPost, "/accounts/message", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp struct {
				Error  string            `json:"error"`
				Fields map[string]string `json:"fields"`
			}
			decodeJSON(t, rec, &resp)
			assert.NotEmpty(t, resp.Error)
			for _, f := range tt.wantFields {
				assert.Contains(t, resp.Fields, f)
			}
			assert.Empty(t, env.store.accounts)
		})
	}
}

func TestUnknownAccountClass(t *testing.T) {
	env := setupEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/accounts/billing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAccount(t *testing.T) {
	env := setupEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/accounts/message", primaryBody)
	var created map[string]any
	decodeJSON(t, rec, &created)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/accounts/message/%s", created["id"]), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/accounts/trading/%s", created["id"]), "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "classes are disjoint")
}

func TestUpdateAccount(t *testing.T) {
	env := setupEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/accounts/trading", primaryBody)
	var created map[string]any
	decodeJSON(t, rec, &created)
	id := created["id"].(string)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "missing id", body: primaryBody, wantStatus: http.StatusBadRequest},
		{name: "unknown id", body: `{"id":"nope","name":"n","appKey":"k","appSecret":"s","accessToken":"t"}`, wantStatus: http.StatusNotFound},
		{name: "partial fields", body: `{"id":"` + id + `","name":"Renamed"}`, wantStatus: http.StatusBadRequest},
		{name: "invalid json", body: `nope`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPut, "/accounts/trading", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	rec = env.do(t, http.MethodPut, "/accounts/trading",
		`{"id":"`+id+`","name":"Backup","appKey":"k2","appSecret":"s2","accessToken":"t2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated map[string]any
	decodeJSON(t, rec, &updated)
	assert.Equal(t, id, updated["id"])
	assert.Equal(t, created["createdAt"], updated["createdAt"])
	assert.Equal(t, "Backup", updated["name"])
	assert.Equal(t, "k2", updated["appKey"])
	assert.Equal(t, "s2", updated["appSecret"])
	assert.Equal(t, "t2", updated["accessToken"])
}

func TestDeleteAccount(t *testing.T) {
	env := setupEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/accounts/message", primaryBody)
	var created map[string]any
	decodeJSON(t, rec, &created)

	rec = env.do(t, http.MethodDelete, "/accounts/message", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing id")

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/accounts/message?id=%s", created["id"]), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/accounts/message?id=%s", created["id"]), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/accounts/message", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListAccounts_StoreError(t *testing.T) {
	env := setupEnv(t, nil)
	env.store.err = errors.New("database is locked")

	rec := env.do(t, http.MethodGet, "/accounts/message", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "database is locked")
}

// --- Quote test tests ---

func TestQuoteTest_LicensedSuccess(t *testing.T) {
	env := setupEnv(t, nil)
	env.licensed.result = model.QuoteSucceeded(model.LicensedQuotes{Data: json.RawMessage(`{"price":100}`)})

	rec := env.do(t, http.MethodPost, "/accounts/trading", primaryBody)
	var created map[string]any
	decodeJSON(t, rec, &created)

	rec = env.do(t, http.MethodPost, "/quote-test",
		`{"providerSelector":"licensed","accountClass":"trading","accountId":"`+created["id"].(string)+`","symbol":"700.HK"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"providerSelector":"licensed","payload":{"price":100}}`, rec.Body.String())
}

func TestQuoteTest_PublicFailureIs200(t *testing.T) {
	env := setupEnv(t, nil)
	env.public.result = model.QuoteFailed("symbol not found", "no chart result for INVALID")

	rec := env.do(t, http.MethodPost, "/quote-test", `{"providerSelector":"yahoo","symbol":"INVALID"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "public", resp["providerSelector"])
	assert.Equal(t, "symbol not found", resp["errorMessage"])
	assert.Equal(t, "no chart result for INVALID", resp["errorDetail"])
	assert.NotContains(t, resp, "payload")
}

func TestQuoteTest_RequestErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "invalid json", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "unknown provider", body: `{"providerSelector":"bloomberg","symbol":"AAPL"}`, wantStatus: http.StatusBadRequest},
		{name: "missing symbol", body: `{"providerSelector":"public"}`, wantStatus: http.StatusBadRequest},
		{name: "licensed without account", body: `{"providerSelector":"licensed","symbol":"AAPL"}`, wantStatus: http.StatusBadRequest},
		{
			name:       "licensed unknown account",
			body:       `{"providerSelector":"longbridge","accountClass":"message","accountId":"missing","symbol":"AAPL"}`,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupEnv(t, nil)

			rec := env.do(t, http.MethodPost, "/quote-test", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Zero(t, env.licensed.calls.Load(), "no upstream call for rejected requests")
			assert.Zero(t, env.public.calls.Load(), "no upstream call for rejected requests")
		})
	}
}

// --- Gate tests ---

func TestGate_RequiresSession(t *testing.T) {
	env := setupEnv(t, httphandler.NewGate(testSecret, slog.Default()))

	tests := []struct {
		name       string
		auth       string
		wantStatus int
	}{
		{name: "no header", auth: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", auth: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", auth: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", auth: "Bearer " + signToken(t, "other", "USER", time.Now().Add(time.Hour)), wantStatus: http.StatusUnauthorized},
		{name: "expired", auth: "Bearer " + signToken(t, testSecret, "USER", time.Now().Add(-time.Hour)), wantStatus: http.StatusUnauthorized},
		{name: "valid", auth: "Bearer " + signToken(t, testSecret, "USER", time.Now().Add(time.Hour)), wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/accounts/message", "", "Authorization", tt.auth)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGate_HealthIsPublic(t *testing.T) {
	env := setupEnv(t, httphandler.NewGate(testSecret, slog.Default()))

	rec := env.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.HealthResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
}

func TestSystem_RequiresAdminRole(t *testing.T) {
	env := setupEnv(t, httphandler.NewGate(testSecret, slog.Default()))
	env.probe.snap = model.SystemSnapshot{
		Hostname:    "console-1",
		Platform:    "linux",
		Arch:        "amd64",
		CPUCores:    4,
		MemoryTotal: 100,
		MemoryFree:  40,
		MemoryUsed:  60,
		LoadAvg:     [3]float64{0.5, 0.4, 0.3},
		Uptime:      90 * time.Second,
	}

	user := "Bearer " + signToken(t, testSecret, "USER", time.Now().Add(time.Hour))
	rec := env.do(t, http.MethodGet, "/api/v1/system", "", "Authorization", user)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := "Bearer " + signToken(t, testSecret, "ADMIN", time.Now().Add(time.Hour))
	rec = env.do(t, http.MethodGet, "/api/v1/system", "", "Authorization", admin)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.SystemResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "console-1", resp.Hostname)
	assert.Equal(t, 4, resp.CPU.Cores)
	assert.Equal(t, uint64(60), resp.Memory.Used)
	assert.Equal(t, []float64{0.5, 0.4, 0.3}, resp.LoadAvg)
	assert.Equal(t, int64(90), resp.Uptime)
}

func TestSystem_ProbeError(t *testing.T) {
	env := setupEnv(t, nil)
	env.probe.err = errors.New("no /proc")

	rec := env.do(t, http.MethodGet, "/api/v1/system", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// --- Middleware tests ---

func TestMetricsEndpoint(t *testing.T) {
	env := setupEnv(t, nil)
	env.do(t, http.MethodGet, "/accounts/message", "")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_http_requests_total{method="GET",route="GET /accounts/{class}",status="200"} 1`)
}

func TestRecoveryMiddleware(t *testing.T) {
	accounts := application.NewAccountService(&panicStore{}, slog.Default())
	h := httphandler.NewHandler(accounts, nil, nil, slog.Default())
	mux := httphandler.NewServeMux(h, nil, nil, slog.Default())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/message", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestSystem_NoProbe(t *testing.T) {
	h := httphandler.NewHandler(nil, nil, nil, slog.Default())
	mux := httphandler.NewServeMux(h, nil, nil, slog.Default())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/system", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type panicStore struct{ mockAccountStore }

func (*panicStore) List(context.Context, model.AccountClass) ([]model.Account, error) {
	panic("boom")
}
