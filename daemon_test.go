package qbt

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testUser     = "admin"
	testPassword = "adminadmin"
)

// fakeDaemon is a minimal qBittorrent Web API: it issues session cookies on
// /api/v2/auth/login and rejects other calls without a current one.
type fakeDaemon struct {
	*httptest.Server
	mux    *http.ServeMux
	logins atomic.Int32

	mu         sync.Mutex
	cookieName string
	password   string
	token      string
	loginDelay time.Duration
}

func newFakeDaemon(t *testing.T) *fakeDaemon {
	t.Helper()

	d := &fakeDaemon{
		mux:        http.NewServeMux(),
		cookieName: cookieSID,
		password:   testPassword,
	}
	d.mux.HandleFunc("/api/v2/auth/login", d.login)
	d.Server = httptest.NewServer(d.mux)
	t.Cleanup(d.Close)
	return d
}

func (d *fakeDaemon) login(w http.ResponseWriter, r *http.Request) {
	n := d.logins.Add(1)

	d.mu.Lock()
	name, password, delay := d.cookieName, d.password, d.loginDelay
	d.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("username") != testUser || r.PostForm.Get("password") != password {
		fmt.Fprint(w, "Fails.")
		return
	}

	token := fmt.Sprintf("token-%d", n)
	d.mu.Lock()
	d.token = token
	d.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: name, Value: token, Path: "/"})
	fmt.Fprint(w, "Ok.")
}

// handle registers an authenticated handler below /api/v2.
func (d *fakeDaemon) handle(path string, h http.HandlerFunc) {
	d.mux.HandleFunc("/api/v2"+path, func(w http.ResponseWriter, r *http.Request) {
		if !d.authorized(r) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, "Forbidden")
			return
		}
		h(w, r)
	})
}

func (d *fakeDaemon) authorized(r *http.Request) bool {
	c, err := r.Cookie(cookieSID)
	if err != nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.token != "" && c.Value == d.token
}

// expire drops the daemon-side session.
func (d *fakeDaemon) expire() {
	d.mu.Lock()
	d.token = ""
	d.mu.Unlock()
}

func (d *fakeDaemon) setCookieName(name string) {
	d.mu.Lock()
	d.cookieName = name
	d.mu.Unlock()
}

func (d *fakeDaemon) setPassword(password string) {
	d.mu.Lock()
	d.password = password
	d.mu.Unlock()
}

func (d *fakeDaemon) setLoginDelay(delay time.Duration) {
	d.mu.Lock()
	d.loginDelay = delay
	d.mu.Unlock()
}

func (d *fakeDaemon) config() Config {
	return Config{
		BaseURL:  d.URL,
		Username: testUser,
		Password: testPassword,
	}
}

func (d *fakeDaemon) client(t *testing.T, mutate ...func(*Config)) *Client {
	t.Helper()

	config := d.config()
	for _, m := range mutate {
		m(&config)
	}

	client, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}
