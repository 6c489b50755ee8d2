package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"bomcost/internal/config"
	"bomcost/internal/session"
)

const secret = "0123456789abcdef0123456789abcdef"

func testConfig(t *testing.T) config.App {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"ORDER BY WOOD.csv": "TIMESTAMP,PI NUMBER,QTY,MATERIAL WOOD 1,WOOD 1\n2024-01-15,PI-1,2,Plywood,3\n",
		"PRICE LIST.csv":    "Description,Unit Price\nPLYWOOD,10\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Source.Kind = "dir"
	cfg.Source.Dir.Path = dir
	cfg.Families = []config.Family{{Prefix: "WOOD", Dataset: "ORDER BY WOOD"}}
	cfg.Auth.JWTSecret = secret
	cfg.Auth.Users = []config.User{{Username: "ana", PasswordHash: string(hash)}}
	cfg.Metrics.Backend = "prometheus"
	return cfg
}

func TestNewHandler_LoginAndReport(t *testing.T) {
	h, err := newHandler(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"ana","password":"pw"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/families/wood/report", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total_price":60`)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "report_http_requests_total")
}

func TestNewHandler_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Backend = "none"
	h, err := newHandler(cfg, zap.NewNop())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRun_HashPassword(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-hash-password", "s3cret"}, &out, &bytes.Buffer{}))

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
	_, err := session.NewManager(session.Config{Secret: secret, Users: map[string]string{"x": hash}})
	assert.NoError(t, err)
}

func TestRun_RequiresSecret(t *testing.T) {
	t.Setenv(config.EnvPrefix+"JWT_SECRET", "")
	t.Setenv(config.EnvPrefix+"SOURCE_KIND", "dir")
	t.Setenv(config.EnvPrefix+"SOURCE_DIR", t.TempDir())

	err := run(context.Background(), nil, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, http.NotFoundHandler(), zap.NewNop())
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
