package cekunit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/cekunit/cekunit/common"
	"github.com/cekunit/cekunit/pkg/logger"
)

// sleepRecorder records retry pauses instead of sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

var fixedNow = time.Unix(1700000000, 0)

type harness struct {
	srv    *httptest.Server
	client *Client
	store  *Store
	fs     afero.Fs
	sleeps *sleepRecorder
	log    *logger.MockLogger
}

func testConfig(t *testing.T, baseURL string, extra map[string]string) *Config {
	t.Helper()
	eps := map[string]string{
		common.LoginEndpointEnv:  "login",
		common.LogoutEndpointEnv: "/logout",
	}
	for k, v := range extra {
		eps[k] = v
	}
	cfg, err := NewConfig(baseURL, Credential{Email: "a@b.c", Password: "password1"}, eps, Options{})
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	return cfg
}

func newHarness(t *testing.T, handler http.Handler, extra map[string]string) *harness {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	memFs := afero.NewMemMapFs()
	store, err := NewStoreFs(memFs, "/cache/cekunit/libcekunit")
	if err != nil {
		t.Fatalf("NewStoreFs: %v", err)
	}
	tr, err := NewTransport(TransportOptions{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	sleeps := &sleepRecorder{}
	rc := DefaultRetryConfig()
	rc.Sleep = sleeps.sleep
	mock := logger.NewMockLogger()

	client, err := New(testConfig(t, srv.URL, extra),
		WithStore(store),
		WithTransport(tr),
		WithRetryConfig(rc),
		WithLogger(mock),
		WithClock(func() time.Time { return fixedNow }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &harness{srv: srv, client: client, store: store, fs: memFs, sleeps: sleeps, log: mock}
}

func (h *harness) seed(t *testing.T, s *Session) {
	t.Helper()
	if err := h.store.Save(s); err != nil {
		t.Fatalf("seed Save: %v", err)
	}
}

func loggedInSession(token string, cookies ...Cookie) *Session {
	return &Session{
		Cookies:   cookies,
		CSRFToken: token,
		LoggedIn:  true,
		Timestamp: fixedNow.Unix(),
	}
}

func assertKind(t *testing.T, err error, want Kind) *Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if e.Kind != want {
		t.Fatalf("expected kind %q, got %q (%v)", want, e.Kind, err)
	}
	return e
}

func readRaw(t *testing.T, h *harness, path string) string {
	t.Helper()
	data, err := afero.ReadFile(h.fs, path)
	if err != nil {
		t.Fatalf("ReadFile %s: %v", path, err)
	}
	return string(data)
}

func writeRaw(t *testing.T, h *harness, path, content string) {
	t.Helper()
	if err := afero.WriteFile(h.fs, path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile %s: %v", path, err)
	}
}

func aferoExists(h *harness, path string) (bool, error) {
	return afero.Exists(h.fs, path)
}
