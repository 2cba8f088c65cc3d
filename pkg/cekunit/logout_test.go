package cekunit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
)

func countingHandler(n *atomic.Int32, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n.Add(1)
		w.WriteHeader(status)
	}
}

func TestLogout_NoSession(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, countingHandler(&calls, http.StatusOK), nil)

	if err := h.client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no HTTP call, got %d", calls.Load())
	}
}

func TestLogout_Idempotent(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, countingHandler(&calls, http.StatusFound), nil)
	h.seed(t, loggedInSession("TOK3", newCookie("sid", "ABC", "127.0.0.1")))

	if err := h.client.Logout(context.Background()); err != nil {
		t.Fatalf("first Logout: %v", err)
	}
	if err := h.client.Logout(context.Background()); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one HTTP call, got %d", calls.Load())
	}
}

func TestLogout_NotLoggedInClearsWithoutRequest(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, countingHandler(&calls, http.StatusOK), nil)
	h.seed(t, &Session{CSRFToken: "T", LoggedIn: false})

	if err := h.client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no HTTP call, got %d", calls.Load())
	}
	if s, _ := h.store.Load(); s != nil {
		t.Fatalf("expected store cleared, got %+v", s)
	}
}

func TestLogout_SeeOther(t *testing.T) {
	var gotToken, gotCookie, gotType string
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/logout" {
			http.NotFound(w, r)
			return
		}
		r.ParseForm()
		gotToken = r.PostForm.Get("_token")
		gotCookie = r.Header.Get("Cookie")
		gotType = r.Header.Get("Content-Type")
		w.Header().Set("Location", "/login")
		w.WriteHeader(http.StatusSeeOther)
	}), nil)
	h.seed(t, loggedInSession("TOK3", newCookie("sid", "ABC", "127.0.0.1")))

	if err := h.client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if gotToken != "TOK3" {
		t.Errorf("expected _token=TOK3, got %q", gotToken)
	}
	if !strings.Contains(gotCookie, "sid=ABC") {
		t.Errorf("expected sid cookie, got %q", gotCookie)
	}
	if gotType != "application/x-www-form-urlencoded" {
		t.Errorf("unexpected content type %q", gotType)
	}
	if exists, _ := aferoExists(h, h.store.Path()); exists {
		t.Fatal("expected session file deleted")
	}
}

func TestLogout_CSRFExpiredKeepsStore(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, countingHandler(&calls, 419), nil)
	h.seed(t, loggedInSession("TOK3", newCookie("sid", "ABC", "127.0.0.1")))

	err := h.client.Logout(context.Background())
	e := assertKind(t, err, KindLogoutFailed)
	if e.Msg != "CSRF expired" {
		t.Errorf("unexpected message %q", e.Msg)
	}
	if !IsCSRFExpired(err) {
		t.Error("expected IsCSRFExpired to be true")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
	if s, _ := h.store.Load(); s == nil {
		t.Fatal("expected session to be kept")
	}
}

func TestLogout_ClientErrorsKeepStore(t *testing.T) {
	tests := []struct {
		status int
		msg    string
	}{
		{422, "Validation error"},
		{429, "Rate limited"},
		{403, "HTTP 403: denied"},
		{301, "HTTP 301: denied"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				if tt.status == 301 {
					w.Header().Set("Location", "/elsewhere")
				}
				w.WriteHeader(tt.status)
				fmt.Fprint(w, "denied")
			}), nil)
			h.seed(t, loggedInSession("T", newCookie("sid", "A", "127.0.0.1")))

			err := h.client.Logout(context.Background())
			e := assertKind(t, err, KindLogoutFailed)
			if e.Msg != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, e.Msg)
			}
			if calls.Load() != 1 {
				t.Errorf("expected 1 call, got %d", calls.Load())
			}
			if s, _ := h.store.Load(); s == nil {
				t.Fatal("expected session to be kept")
			}
		})
	}
}

func TestLogout_ServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, countingHandler(&calls, http.StatusInternalServerError), nil)
	h.seed(t, loggedInSession("T", newCookie("sid", "A", "127.0.0.1")))

	err := h.client.Logout(context.Background())
	e := assertKind(t, err, KindLogoutFailed)
	if e.Msg != "Server error 500" {
		t.Errorf("unexpected message %q", e.Msg)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
	if s, _ := h.store.Load(); s == nil {
		t.Fatal("expected session to be kept")
	}
}

func TestLogoutWithToken_UsesSuppliedToken(t *testing.T) {
	var gotToken string
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotToken = r.PostForm.Get("_token")
		w.WriteHeader(http.StatusOK)
	}), nil)
	h.seed(t, loggedInSession("OLD", newCookie("sid", "A", "127.0.0.1")))

	if err := h.client.LogoutWithToken(context.Background(), "FRESH"); err != nil {
		t.Fatalf("LogoutWithToken: %v", err)
	}
	if gotToken != "FRESH" {
		t.Fatalf("expected FRESH, got %q", gotToken)
	}
}

func TestLogout_ClearFailureIsLogged(t *testing.T) {
	h := newHarness(t, countingHandler(new(atomic.Int32), http.StatusOK), nil)
	failing := &faultFs{Fs: h.fs, failRemove: true}
	store, err := NewStoreFs(failing, h.store.Dir())
	if err != nil {
		t.Fatalf("NewStoreFs: %v", err)
	}
	h.client.env.Store = store
	h.seed(t, loggedInSession("T", newCookie("sid", "A", "127.0.0.1")))

	if err := h.client.Logout(context.Background()); err != nil {
		t.Fatalf("expected success despite clear failure, got %v", err)
	}
	if len(h.log.Errors()) == 0 {
		t.Fatal("expected clear failure to be logged")
	}
}

func TestLogout_MalformedCache(t *testing.T) {
	h := newHarness(t, http.NotFoundHandler(), nil)
	writeRaw(t, h, h.store.Path(), "[]garbage")

	err := h.client.Logout(context.Background())
	if !errors.Is(err, ErrCacheMalformed) {
		t.Fatalf("expected malformed cache error, got %v", err)
	}
}
