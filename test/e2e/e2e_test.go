// test/e2e/e2e_test.go
package e2e

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpclient "gmbh-wizard/internal/common/http"
)

// The suite drives a running server, e.g.
//
//	E2E_BASE_URL=http://localhost:9090 go test ./test/e2e/...
//
// The server must be able to deliver mail (a local catcher is enough).
var (
	baseURL string
	client  *httpclient.Client
)

var downloadLink = regexp.MustCompile(`href="(/download/gmbh-[0-9a-f-]+\.zip)"`)

func TestMain(m *testing.M) {
	baseURL = strings.TrimRight(os.Getenv("E2E_BASE_URL"), "/")
	if baseURL == "" {
		fmt.Println("E2E_BASE_URL not set, skipping end-to-end tests")
		os.Exit(0)
	}
	client = httpclient.NewClient(60 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := waitHealthy(ctx)
	cancel()
	if err != nil {
		panic(fmt.Sprintf("❌ server at %s not healthy: %v", baseURL, err))
	}

	os.Exit(m.Run())
}

func waitHealthy(ctx context.Context) error {
	for {
		err := client.Probe(ctx, baseURL+"/healthz")
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Second):
		}
	}
}

func do(t *testing.T, method, path string, body io.Reader, contentType string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, baseURL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	// Pretend to come through the TLS proxy so a redirecting deployment
	// still answers.
	req.Header.Set("X-Forwarded-Proto", "https")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	resp, err := client.DoWithContext(ctx, req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestWizardJourney(t *testing.T) {
	t.Log("🚀 Walking the wizard against", baseURL)

	resp, body := do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `action="/step1"`)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))

	resp, body = do(t, http.MethodGet, "/step1?einverstanden=Nein", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(body), `name="kanton"`)

	resp, body = do(t, http.MethodGet, "/step1?einverstanden=Ja", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `name="kanton"`)

	resp, _ = do(t, http.MethodGet, "/step2?einverstanden=Ja", nil, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/step1?einverstanden=Ja", resp.Header.Get("Location"))

	resp, body = do(t, http.MethodGet, "/step2?einverstanden=Ja&kanton=Zug", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `action="/create"`)
	t.Log("✅ Consent, canton and personal data steps OK")

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	for k, v := range map[string]string{
		"einverstanden":     "Ja",
		"kanton":            "Zug",
		"gmbh_name":         "E2E Muster GmbH",
		"vorname_gruender":  "Max",
		"nachname_gruender": "Muster",
		"email_gruender":    "max@example.com",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	resp, body = do(t, http.MethodPost, "/create", &form, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	match := downloadLink.FindStringSubmatch(string(body))
	require.Len(t, match, 2)
	t.Log("✅ Documents created and mailed")

	resp, archive := do(t, http.MethodGet, match[1], nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	assert.NotEmpty(t, zr.File)
	for _, f := range zr.File {
		assert.True(t, strings.HasSuffix(f.Name, ".docx"), f.Name)
	}
	t.Logf("✅ Archive downloaded with %d documents", len(zr.File))
}

func TestCreateRejectsIncompleteSubmission(t *testing.T) {
	resp, body := do(t, http.MethodPost, "/create", strings.NewReader("einverstanden=Ja&kanton=Zug"), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotRegexp(t, downloadLink, string(body))
}

func TestUnknownDownload(t *testing.T) {
	resp, _ := do(t, http.MethodGet, "/download/gmbh-00000000-0000-0000-0000-000000000000.zip", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
