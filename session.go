package qbt

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/jfxdev/go-qbt-client/request"
)

// Session cookie names: current daemons use SID, some builds QB_SID.
const (
	cookieSID   = "SID"
	cookieQBSID = "QB_SID"
)

const loginKey = "login"

func (s *session) get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *session) set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// generation returns the current session generation.
func (s *session) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// setIfCurrent caches token unless the session was cleared after gen was
// taken.
func (s *session) setIfCurrent(token string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.token = token
	return true
}

// clear forgets the token and detaches any login still in flight.
func (s *session) clear() {
	s.mu.Lock()
	s.token = ""
	s.gen++
	s.mu.Unlock()
	s.group.Forget(loginKey)
}

// invalidate clears the token only if it is still the one that was rejected.
func (s *session) invalidate(token string) {
	s.mu.Lock()
	if s.token == token {
		s.token = ""
	}
	s.mu.Unlock()
}

// Login authenticates now, replacing any cached session on success. A failed
// attempt keeps the previous session.
func (qb *Client) Login(ctx context.Context) error {
	_, err := qb.shareLogin(ctx, false)
	return err
}

// ensureSession returns the cached token, logging in first when there is
// none. Concurrent callers share a single login.
func (qb *Client) ensureSession(ctx context.Context) (string, error) {
	if token := qb.session.get(); token != "" {
		return token, nil
	}
	return qb.shareLogin(ctx, true)
}

// shareLogin joins or starts the single login in flight. The login runs
// detached from ctx; ctx only bounds how long this caller waits.
func (qb *Client) shareLogin(ctx context.Context, reuse bool) (string, error) {
	ch := qb.session.group.DoChan(loginKey, func() (any, error) {
		if reuse {
			if token := qb.session.get(); token != "" {
				return token, nil
			}
		}
		return qb.login(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ClassifyError(ctx.Err())
	}
}

func (qb *Client) login(ctx context.Context) (string, error) {
	gen := qb.session.generation()
	config, _, logger := qb.settings()
	target := endpoint(config, "/auth/login")

	logger.Debug("logging in", "url", target, "username", config.Username)

	start := time.Now()
	resp, err := request.Do(ctx, http.MethodPost, target,
		request.WithForm(url.Values{
			"username": {config.Username},
			"password": {config.Password},
		}),
		request.WithoutRedirects(),
		request.WithTimeout(config.RequestTimeout),
		request.WithProxy(config.Proxy),
		request.WithTransport(config.Transport),
	)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	qb.metrics.observe(http.MethodPost, "/auth/login", status, time.Since(start))

	token, lerr := parseLogin(resp, err)
	qb.metrics.login(lerr == nil)
	if lerr != nil {
		logger.Warn("login failed", "url", target, "error", lerr)
		return "", lerr
	}

	if !qb.session.setIfCurrent(token, gen) {
		// Credentials changed while logging in. The token still serves the
		// calls already waiting on it but is not cached.
		logger.Debug("discarding login for replaced configuration", "url", target)
		return token, nil
	}
	logger.Debug("logged in", "url", target)
	return token, nil
}

func parseLogin(resp *request.Response, err error) (string, error) {
	if err != nil {
		return "", ClassifyError(err)
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		ce := newAuthError("User's IP is banned for too many failed login attempts", nil)
		ce.StatusCode = resp.StatusCode
		return "", ce
	case resp.StatusCode >= 400:
		return "", classifyHTTPStatusCode(resp.StatusCode, resp.String())
	}

	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return "", newAuthError("Cookie not found. Auth Failed.", nil)
	}

	cookie := cookies[0]
	if cookie.Name != cookieSID && cookie.Name != cookieQBSID {
		return "", newAuthError("Invalid cookie "+cookie.Name, nil)
	}
	if cookie.Value == "" {
		return "", newAuthError("Empty session cookie", nil)
	}

	return cookie.Value, nil
}

func sessionCookie(token string) string {
	return cookieQBSID + "=" + token + "; " + cookieSID + "=" + token
}
