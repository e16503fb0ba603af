package wizard

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gmbh-wizard/internal/common/config"
	"gmbh-wizard/internal/common/logger"
	"gmbh-wizard/internal/documents"
	"gmbh-wizard/internal/forms"
	"gmbh-wizard/internal/mailer"
	"gmbh-wizard/internal/templates"
	"gmbh-wizard/internal/tempstore"
	"gmbh-wizard/pkg/registry"
)

const (
	testRecipient = "notariat@example.ch"
	testFrom      = "gruendung@example.ch"
)

var testDay = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

// fakeSender records every message together with the attachment bytes as
// they were at send time.
type fakeSender struct {
	mu          sync.Mutex
	err         error
	messages    []mailer.Message
	attachments [][]byte
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	for _, a := range msg.Attachments {
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return err
		}
		f.attachments = append(f.attachments, data)
	}
	return f.err
}

func (f *fakeSender) sent() ([]mailer.Message, [][]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Message(nil), f.messages...), append([][]byte(nil), f.attachments...)
}

type testApp struct {
	handler http.Handler
	store   *tempstore.Store
	sender  *fakeSender
	engine  *documents.Engine
}

func shippedRegistry(t *testing.T) *registry.DocumentRegistry {
	t.Helper()
	reg, err := registry.LoadRegistry("../../documents/registry.json")
	require.NoError(t, err)
	return reg
}

func newTestPipeline(t *testing.T, sender mailer.Sender, opts ...PipelineOption) (*Pipeline, *tempstore.Store, *documents.Engine) {
	t.Helper()
	log := logger.NewTestLogger(t)

	store, err := tempstore.New(t.TempDir(), log)
	require.NoError(t, err)

	engine := documents.NewEngine(shippedRegistry(t), documents.Config{OutDir: store.Dir()}, log,
		documents.WithClock(func() time.Time { return testDay }))

	p := NewPipeline(engine, store, sender, MailSettings{
		From:       testFrom,
		Recipients: []string{testRecipient},
		Subject:    templates.MustLoadString("subject", "Gründung {{.gmbh_name}} & Co"),
		Body:       templates.MustLoadString("body", "<p>{{.vorname_gruender}} {{.nachname_gruender}}, {{.datum_auftrag}}</p>"),
	}, log, opts...)
	return p, store, engine
}

func newTestApp(t *testing.T, sender *fakeSender) *testApp {
	t.Helper()
	pipeline, store, engine := newTestPipeline(t, sender)

	page, err := templates.Load("../../web/templates/page.html")
	require.NoError(t, err)

	ctrl := NewController(Dependencies{
		Config: config.WizardConfig{
			Disclaimer:     `<p>Hinweis</p><script>alert(1)</script>`,
			RejectionText:  "Dann halt nicht",
			ConsentLiteral: "Ja",
		},
		Forms:    forms.Default(),
		Page:     page,
		Pipeline: pipeline,
		Store:    store,
		Logger:   logger.NewTestLogger(t),
	})
	router := NewRouter(ctrl, config.ServerConfig{StaticDir: "../../web/static", StaticMaxAge: time.Hour}, logger.NewTestLogger(t))
	return &testApp{handler: router, store: store, sender: sender, engine: engine}
}

func (a *testApp) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (a *testApp) post(t *testing.T, target string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func founderValues() url.Values {
	return url.Values{
		"einverstanden":     {"Ja"},
		"kanton":            {"Zug"},
		"gmbh_name":         {"Muster GmbH"},
		"vorname_gruender":  {"Max"},
		"nachname_gruender": {"Muster"},
		"email_gruender":    {"max@example.com"},
	}
}

// workFiles lists the store directory entries matching pattern.
func workFiles(t *testing.T, store *tempstore.Store, pattern string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(store.Dir(), pattern))
	require.NoError(t, err)
	return matches
}

// zipContents maps entry names to their decompressed bytes.
func zipContents(t *testing.T, data []byte) (map[string][]byte, []string) {
	t.Helper()
	zr, err := zip.NewReader(strings.NewReader(string(data)), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string][]byte, len(zr.File))
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = b
		names = append(names, f.Name)
	}
	return out, names
}

// docxText concatenates every XML part of a docx.
func docxText(t *testing.T, data []byte) string {
	t.Helper()
	parts, names := zipContents(t, data)
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		if strings.HasSuffix(n, ".xml") {
			b.Write(parts[n])
		}
	}
	return b.String()
}
