package qbt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDispatchSendsSessionCookie(t *testing.T) {
	d := newFakeDaemon(t)
	d.handle("/app/version", func(w http.ResponseWriter, r *http.Request) {
		if got, want := r.Header.Get("Cookie"), "QB_SID=token-1; SID=token-1"; got != want {
			t.Errorf("Expected cookie %q, got %q", want, got)
		}
		if got := r.Header.Get("X-Trace"); got != "abc" {
			t.Errorf("Expected caller header to pass through, got %q", got)
		}
		fmt.Fprint(w, "v4.6.2")
	})
	client := d.client(t)

	_, err := client.dispatch(context.Background(), call{
		method: http.MethodGet,
		path:   "/app/version",
		headers: map[string]string{
			"cookie":  "SID=forged",
			"X-Trace": "abc",
		},
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
}

func TestDispatchLogsInLazily(t *testing.T) {
	d := newFakeDaemon(t)
	d.handle("/app/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "v4.6.2")
	})
	client := d.client(t)

	if got := d.logins.Load(); got != 0 {
		t.Fatalf("New should not log in, got %d logins", got)
	}

	for range 3 {
		if _, err := client.Version(context.Background()); err != nil {
			t.Fatalf("Version failed: %v", err)
		}
	}

	if got := d.logins.Load(); got != 1 {
		t.Errorf("Expected 1 login for 3 calls, got %d", got)
	}
}

func TestDispatchExpiredSessionIsNotRetried(t *testing.T) {
	d := newFakeDaemon(t)
	var hits atomic.Int32
	d.mux.HandleFunc("/api/v2/app/version", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})
	client := d.client(t)

	_, err := client.Version(context.Background())
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("Expected an authentication error, got %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("Expected a single attempt, got %d", got)
	}
	if got := d.logins.Load(); got != 1 {
		t.Errorf("Expected 1 login, got %d", got)
	}
}

func TestDispatchReloginOnAuthFailure(t *testing.T) {
	d := newFakeDaemon(t)
	var hits atomic.Int32
	d.mux.HandleFunc("/api/v2/app/version", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !d.authorized(r) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, "v4.6.2")
	})
	client := d.client(t, func(c *Config) { c.ReloginOnAuthFailure = true })

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	d.expire()

	version, err := client.Version(context.Background())
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version != "v4.6.2" {
		t.Errorf("Expected v4.6.2, got %q", version)
	}
	if got := d.logins.Load(); got != 2 {
		t.Errorf("Expected 2 logins, got %d", got)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
	if got := client.session.get(); got != "token-2" {
		t.Errorf("Expected the new token, got %q", got)
	}
}

func TestDispatchReloginOnlyOnce(t *testing.T) {
	d := newFakeDaemon(t)
	var hits atomic.Int32
	d.mux.HandleFunc("/api/v2/app/version", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	client := d.client(t, func(c *Config) { c.ReloginOnAuthFailure = true })

	_, err := client.Version(context.Background())
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("Expected an authentication error, got %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
	if got := d.logins.Load(); got != 2 {
		t.Errorf("Expected 2 logins, got %d", got)
	}
}

func TestDispatchTimeoutKeepsSession(t *testing.T) {
	d := newFakeDaemon(t)
	d.handle("/app/version", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		fmt.Fprint(w, "late")
	})
	client := d.client(t, func(c *Config) { c.RequestTimeout = 50 * time.Millisecond })

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	_, err := client.Version(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected a transport error, got %v", err)
	}
	if got := client.session.get(); got != "token-1" {
		t.Errorf("Timeout should leave the token alone, got %q", got)
	}
}

func TestDispatchHTTPStatusError(t *testing.T) {
	d := newFakeDaemon(t)
	d.handle("/torrents/increasePrio", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, "Torrent queueing must be enabled")
	})
	client := d.client(t)

	err := client.QueueUp(context.Background(), Hashes{"abc"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected a transport error, got %v", err)
	}

	var ce *ClientError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected a *ClientError in the chain, got %T", err)
	}
	if ce.StatusCode != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", ce.StatusCode)
	}
	if !IsPermanentError(err) {
		t.Error("409 should be permanent")
	}
}

func TestDispatchMetrics(t *testing.T) {
	d := newFakeDaemon(t)
	d.handle("/app/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "v4.6.2")
	})
	reg := prometheus.NewRegistry()
	client := d.client(t, func(c *Config) { c.Registerer = reg })

	for range 2 {
		if _, err := client.Version(context.Background()); err != nil {
			t.Fatalf("Version failed: %v", err)
		}
	}

	if got := testutil.ToFloat64(client.metrics.requests.WithLabelValues("GET", "/app/version", "200")); got != 2 {
		t.Errorf("Expected 2 version requests, got %v", got)
	}
	if got := testutil.ToFloat64(client.metrics.requests.WithLabelValues("POST", "/auth/login", "200")); got != 1 {
		t.Errorf("Expected 1 login request, got %v", got)
	}
	if got := testutil.ToFloat64(client.metrics.logins.WithLabelValues("success")); got != 1 {
		t.Errorf("Expected 1 successful login, got %v", got)
	}
}

func TestMetricsShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newMetrics(reg)
	second := newMetrics(reg)

	if first.requests != second.requests {
		t.Error("Second client should reuse the registered request counter")
	}

	second.login(false)
	if got := testutil.ToFloat64(first.logins.WithLabelValues("failure")); got != 1 {
		t.Errorf("Expected 1 failed login across clients, got %v", got)
	}
}

func TestDispatchRateLimit(t *testing.T) {
	d := newFakeDaemon(t)
	d.handle("/app/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "v4.6.2")
	})
	client := d.client(t, func(c *Config) { c.RateLimit = 1 })

	if client.limiter == nil {
		t.Fatal("RateLimit should create a limiter")
	}
	if _, err := client.Version(context.Background()); err != nil {
		t.Fatalf("Version failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := client.Version(ctx); err == nil {
		t.Error("Expected the second call to be paced past the deadline")
	}
}
