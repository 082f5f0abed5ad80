package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custdash/internal/config"
	"custdash/internal/dataset"
	"custdash/internal/session"
)

const (
	testPassword = "s3cret"
	cookieName   = "custdash_session"
)

const exampleCSV = "ref;userID;email;date;quantity\n" +
	"ACME01;1;a@x.io;2024-01-01;5\n" +
	"ACME02;1;a@x.io;2024-03-01;3\n" +
	"ZETA01;2;b@x.io;2024-03-10;10\n"

type testClient struct {
	t      *testing.T
	server *Server
	cookie *http.Cookie
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Auth:    config.AuthConfig{Password: testPassword},
		Upload:  config.UploadConfig{MaxBytes: 1 << 20, MaxConcurrentLoads: 2},
		Session: config.SessionConfig{TTL: time.Hour, CookieName: cookieName},
	}
	processorConfig := dataset.DefaultProcessorConfig()
	processorConfig.MaxBytes = cfg.Upload.MaxBytes

	server, err := NewServer(cfg, session.NewManager(cfg.Session.TTL, nil), dataset.NewProcessor(processorConfig, nil), nil)
	require.NoError(t, err)
	return &testClient{t: t, server: server}
}

func (tc *testClient) do(req *http.Request) *httptest.ResponseRecorder {
	if tc.cookie != nil {
		req.AddCookie(tc.cookie)
	}
	w := httptest.NewRecorder()
	tc.server.Handler().ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			tc.cookie = c
		}
	}
	return w
}

func (tc *testClient) get(path string) *httptest.ResponseRecorder {
	return tc.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (tc *testClient) login(password string) *httptest.ResponseRecorder {
	form := url.Values{"password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return tc.do(req)
}

func (tc *testClient) upload(filename, content string, accept string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("dataset", filename)
	require.NoError(tc.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(tc.t, err)
	require.NoError(tc.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return tc.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	tc := newTestClient(t)
	w := tc.get("/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestLoginGate(t *testing.T) {
	tc := newTestClient(t)

	w := tc.get("/")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = tc.get("/api/options")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = tc.login("wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Password incorrect")

	w = tc.login(testPassword)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = tc.get("/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Upload a CSV or Excel file")

	w = tc.get("/login")
	assert.Equal(t, http.StatusSeeOther, w.Code, "logged-in users skip the form")
}

func TestAPIWithoutDataset(t *testing.T) {
	tc := newTestClient(t)
	tc.login(testPassword)

	w := tc.get("/api/analysis/customer")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w)["error"])
}

func TestUploadAndAnalyse(t *testing.T) {
	tc := newTestClient(t)
	tc.login(testPassword)

	w := tc.upload("orders.csv", exampleCSV, "")
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

	w = tc.get("/api/analysis/customer")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	customer := body["customer"].(map[string]interface{})
	summaries := customer["summaries"].([]interface{})
	require.Len(t, summaries, 2)
	first := summaries[0].(map[string]interface{})
	assert.Equal(t, "1", first["userId"])
	assert.Equal(t, "a@x.io", first["email"])
	assert.Equal(t, 8.0, first["monetary"])
	assert.Equal(t, 9.0, first["recency"])
	assert.Equal(t, "Active", first["segment"])

	w = tc.get("/api/analysis/brand?brand=ZETA&from=2024-03-01&to=2024-03-10")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1.0, decode(t, w)["rows"])

	w = tc.get("/api/options")
	require.Equal(t, http.StatusOK, w.Code)
	options := decode(t, w)["options"].(map[string]interface{})
	assert.Equal(t, []interface{}{"ACME", "ZETA"}, options["brands"])

	w = tc.get("/?kind=product")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Top products by brand by customer")
	assert.Contains(t, w.Body.String(), "Explanation of columns")
}

func TestFailedUploadKeepsPreviousTable(t *testing.T) {
	tc := newTestClient(t)
	tc.login(testPassword)
	require.Equal(t, http.StatusSeeOther, tc.upload("orders.csv", exampleCSV, "").Code)

	w := tc.upload("broken.csv", "ref;userID;quantity\nA1;1;2\n", "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "SCHEMA_ERROR", body["error"])
	assert.Contains(t, body["message"], `"date"`)

	w = tc.upload("broken.csv", "ref;userID;quantity\nA1;1;2\n", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "does not match the expected schema")

	w = tc.get("/api/analysis/customer")
	assert.Equal(t, http.StatusOK, w.Code, "the earlier table is still loaded")

	w = tc.upload("orders.pdf", exampleCSV, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBadQueries(t *testing.T) {
	tc := newTestClient(t)
	tc.login(testPassword)
	tc.upload("orders.csv", exampleCSV, "")

	for _, path := range []string{
		"/api/analysis/inventory",
		"/api/analysis/customer?from=yesterday",
		"/api/analysis/customer?from=2024-03-10&to=2024-01-01",
		"/api/analysis/customer?mode=ratio",
		"/api/analysis/brand?k_customers=many",
	} {
		w := tc.get(path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, "INVALID_INPUT", decode(t, w)["error"], path)
	}
}

func TestExport(t *testing.T) {
	tc := newTestClient(t)
	tc.login(testPassword)
	tc.upload("orders.csv", exampleCSV, "")

	w := tc.get("/api/export/product?k_products=1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "custdash-product-")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestLogout(t *testing.T) {
	tc := newTestClient(t)
	tc.login(testPassword)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	w := tc.do(req)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	w = tc.get("/")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestStartStopsWhenContextEnds(t *testing.T) {
	tc := newTestClient(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tc.server.Start(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout):
		t.Fatal("Start did not return after its context ended")
	}
}

func TestStartReportsListenErrors(t *testing.T) {
	tc := newTestClient(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	assert.Error(t, tc.server.Start(context.Background(), l.Addr().String()), "address already in use")
}
