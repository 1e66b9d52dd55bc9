package api_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scim/internal/api"
	"scim/internal/api/handler/scimhandler"
	"scim/internal/config"
	"scim/internal/provisioning"
	mockprovisioning "scim/internal/provisioning/mock"
	"scim/pkg/serrors"
	"scim/pkg/storage/memory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testToken = "0123456789abcdef0123456789abcdef"

func testOptions() api.Options {
	return api.Options{
		SecHandlerOptions: &scimhandler.SecHandlerOptions{Token: testToken},
		RequestTimeout:    5 * time.Second,
		MetricsPath:       "/metrics",
	}
}

func newTestServer(t *testing.T, deps api.Deps) *httptest.Server {
	t.Helper()

	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	server, err := api.NewServer(deps, testOptions())
	require.NoError(t, err)

	srv := httptest.NewServer(server.Handler)
	t.Cleanup(srv.Close)

	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, string) {
	t.Helper()

	res, err := srv.Client().Get(srv.URL + path)
	require.NoError(t, err)
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res, string(b)
}

func TestNewOptions(t *testing.T) {
	cfg := &config.Config{}
	cfg.SCIM.Token = testToken
	cfg.HTTP.Addr = ":9090"
	cfg.HTTP.RequestTimeout = 3 * time.Second
	cfg.HTTP.MaxBodyBytes = 2048
	cfg.HTTP.MetricsPath = "/prom"

	opts := api.NewOptions(cfg)
	require.Equal(t, testToken, opts.SecHandlerOptions.Token)
	require.Equal(t, ":9090", opts.Addr)
	require.Equal(t, 3*time.Second, opts.RequestTimeout)
	require.EqualValues(t, 2048, opts.MaxBodyBytes)
	require.Equal(t, "/prom", opts.MetricsPath)
}

func TestNewServer_RejectsInsecureToken(t *testing.T) {
	opts := testOptions()
	opts.SecHandlerOptions.Token = config.LegacyPlaceholderToken

	_, err := api.NewServer(api.Deps{Registry: prometheus.NewRegistry()}, opts)
	require.ErrorIs(t, err, config.ErrTokenInsecure)
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t, api.Deps{Provisioner: provisioning.New(memory.New())})

	t.Run("index", func(t *testing.T) {
		res, body := get(t, srv, "/")
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Contains(t, res.Header.Get("Content-Type"), "text/html")
		require.Contains(t, body, "Provisioned users")
	})

	t.Run("healthz", func(t *testing.T) {
		res, body := get(t, srv, "/healthz")
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.JSONEq(t, `{"status":"ok"}`, body)
	})

	t.Run("specs", func(t *testing.T) {
		res, body := get(t, srv, "/specs/scim.yaml")
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Contains(t, body, "/Users/{id}")
	})

	t.Run("docs", func(t *testing.T) {
		res, _ := get(t, srv, "/docs/")
		require.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("scim requires token", func(t *testing.T) {
		res, body := get(t, srv, "/scim/v2/Users")
		require.Equal(t, http.StatusUnauthorized, res.StatusCode)
		require.JSONEq(t, `{"error":"Invalid or missing token"}`, body)
		require.NotEmpty(t, res.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown path", func(t *testing.T) {
		res, _ := get(t, srv, "/nope")
		require.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, api.Deps{Provisioner: provisioning.New(memory.New())})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/scim/v2/Users", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, body := get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, body, "scim_requests")
	require.Contains(t, body, `operation="listUsers"`)
}

func TestServer_HealthzUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mockprovisioning.NewMockProvisioner(ctrl)
	p.EXPECT().Ready(gomock.Any()).
		Return(serrors.Wrap(serrors.ErrUnavailable, errors.New("dial tcp"), "storage is unavailable"))

	srv := newTestServer(t, api.Deps{Provisioner: p})

	res, body := get(t, srv, "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	require.JSONEq(t, `{"status":"unavailable"}`, body)
}

func TestServer_AuditsRequests(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := newTestServer(t, api.Deps{
		Provisioner: provisioning.New(memory.New()),
		AuditSink:   zap.New(core),
	})

	body := `{"userName":"jdoe","name":{"givenName":"Jane","familyName":"Doe"},"emails":[{"value":"jane@example.com"}]}`
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/scim/v2/Users", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("X-Request-Id", "req-1")
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	require.Equal(t, http.StatusCreated, res.StatusCode)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, http.MethodPost, fields["method"])
	require.Equal(t, body, fields["payload"])
	require.Equal(t, "req-1", fields["RequestID"])

	headers, ok := fields["headers"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Bearer [REDACTED]", headers["Authorization"])
}
