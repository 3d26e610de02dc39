package qbt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLogin(t *testing.T) {
	d := newFakeDaemon(t)
	client := d.client(t)

	if client.HasSession() {
		t.Fatal("New client should not have a session")
	}

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if !client.HasSession() {
		t.Error("Client should have a session after login")
	}
	if got := client.session.get(); got != "token-1" {
		t.Errorf("Expected token-1, got %q", got)
	}
	if got := d.logins.Load(); got != 1 {
		t.Errorf("Expected 1 login, got %d", got)
	}
}

func TestLoginAcceptsQBSIDCookie(t *testing.T) {
	d := newFakeDaemon(t)
	d.setCookieName(cookieQBSID)
	client := d.client(t)

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if got := client.session.get(); got != "token-1" {
		t.Errorf("Expected token-1, got %q", got)
	}
}

func TestLoginRejected(t *testing.T) {
	testCases := []struct {
		name    string
		setup   func(*fakeDaemon)
		message string
	}{
		{
			name:    "wrong password",
			setup:   func(d *fakeDaemon) { d.setPassword("other") },
			message: "Cookie not found",
		},
		{
			name:    "unknown cookie",
			setup:   func(d *fakeDaemon) { d.setCookieName("session") },
			message: "Invalid cookie session",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := newFakeDaemon(t)
			tc.setup(d)
			client := d.client(t)

			err := client.Login(context.Background())
			if err == nil {
				t.Fatal("Expected login error")
			}
			if !errors.Is(err, ErrAuthentication) {
				t.Errorf("Expected an authentication error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.message) {
				t.Errorf("Expected %q in error, got %q", tc.message, err.Error())
			}
			if client.HasSession() {
				t.Error("Failed login should not create a session")
			}
		})
	}
}

func TestLoginBanned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, "Your IP address has been banned")
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	err = client.Login(context.Background())
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("Expected an authentication error, got %v", err)
	}
	if !strings.Contains(err.Error(), "banned") {
		t.Errorf("Expected ban message, got %q", err.Error())
	}
}

func TestLoginDoesNotFollowRedirects(t *testing.T) {
	var redirected bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Expected form content type, got %q", ct)
		}
		http.SetCookie(w, &http.Cookie{Name: cookieSID, Value: "abc"})
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	})
	mux.HandleFunc("/elsewhere", func(w http.ResponseWriter, r *http.Request) {
		redirected = true
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if redirected {
		t.Error("Login followed the redirect")
	}
	if got := client.session.get(); got != "abc" {
		t.Errorf("Expected token from the redirect response, got %q", got)
	}
}

func TestFailedLoginKeepsPreviousToken(t *testing.T) {
	d := newFakeDaemon(t)
	client := d.client(t)

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	d.setPassword("changed")
	if err := client.Login(context.Background()); err == nil {
		t.Fatal("Expected second login to fail")
	}

	if got := client.session.get(); got != "token-1" {
		t.Errorf("Expected token-1 to survive a failed login, got %q", got)
	}
}

func TestLoginTransportError(t *testing.T) {
	d := newFakeDaemon(t)
	client := d.client(t)
	d.Close()

	err := client.Login(context.Background())
	if err == nil {
		t.Fatal("Expected error from a closed server")
	}
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Expected a transport error, got %v", err)
	}
	if errors.Is(err, ErrAuthentication) {
		t.Errorf("Network failure should not be an authentication error: %v", err)
	}
}

func TestConcurrentCallsShareOneLogin(t *testing.T) {
	d := newFakeDaemon(t)
	d.setLoginDelay(50 * time.Millisecond)
	d.handle("/app/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "v4.6.2")
	})
	client := d.client(t)

	const callers = 20
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Version(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Version failed: %v", err)
	}
	if got := d.logins.Load(); got != 1 {
		t.Errorf("Expected exactly 1 login, got %d", got)
	}
}

func TestLoginDeadlineDoesNotFailSharedCallers(t *testing.T) {
	d := newFakeDaemon(t)
	d.setLoginDelay(200 * time.Millisecond)
	d.handle("/app/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "v4.6.2")
	})
	client := d.client(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	loginErr := make(chan error, 1)
	go func() {
		loginErr <- client.Login(ctx)
	}()
	time.Sleep(20 * time.Millisecond)

	version, err := client.Version(context.Background())
	if err != nil {
		t.Fatalf("Version should not inherit the Login deadline: %v", err)
	}
	if version != "v4.6.2" {
		t.Errorf("Expected v4.6.2, got %q", version)
	}

	if err := <-loginErr; err == nil {
		t.Error("Expected Login to give up at its own deadline")
	}
	if got := d.logins.Load(); got != 1 {
		t.Errorf("Expected exactly 1 login, got %d", got)
	}
	if !client.HasSession() {
		t.Error("The shared login should still be cached")
	}
}

func TestSessionCookie(t *testing.T) {
	if got, want := sessionCookie("xyz"), "QB_SID=xyz; SID=xyz"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestSessionClearDetachesLogin(t *testing.T) {
	s := &session{}
	gen := s.generation()

	s.clear()
	if s.setIfCurrent("stale", gen) {
		t.Error("A login started before clear should not be cached")
	}
	if s.get() != "" {
		t.Errorf("Expected no token, got %q", s.get())
	}

	if !s.setIfCurrent("fresh", s.generation()) || s.get() != "fresh" {
		t.Error("A login started after clear should be cached")
	}
}

func TestSessionInvalidate(t *testing.T) {
	s := &session{}
	s.set("new")

	s.invalidate("old")
	if s.get() != "new" {
		t.Error("Invalidating a stale token should keep the current one")
	}

	s.invalidate("new")
	if s.get() != "" {
		t.Error("Invalidating the current token should clear it")
	}
}
