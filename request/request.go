// Package request performs single HTTP exchanges with functional options.
//
// It never retries and reads the whole response body before returning, so
// callers can inspect status, headers and body after the connection is gone.
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout is applied when no WithTimeout option is given.
const DefaultTimeout = 10 * time.Second

// RequestOptions holds everything needed to build one request.
type RequestOptions struct {
	Timeout         time.Duration
	Body            io.Reader
	Headers         map[string]string
	Query           url.Values
	FollowRedirects bool
	Proxy           func(*http.Request) (*url.URL, error)
	Transport       http.RoundTripper
}

// RequestOption mutates RequestOptions.
type RequestOption func(*RequestOptions)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Cookies parses the Set-Cookie headers in the order they were received.
func (r *Response) Cookies() []*http.Cookie {
	return (&http.Response{Header: r.Header}).Cookies()
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// String returns the body as text.
func (r *Response) String() string {
	return string(r.Body)
}

// WithTimeout sets the whole-exchange timeout.
func WithTimeout(timeout time.Duration) RequestOption {
	return func(o *RequestOptions) {
		o.Timeout = timeout
	}
}

// WithBody sets the request body.
func WithBody(body io.Reader) RequestOption {
	return func(o *RequestOptions) {
		o.Body = body
	}
}

// WithHeader adds a single header.
func WithHeader(key, value string) RequestOption {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	}
}

// WithHeaders adds several headers at once.
func WithHeaders(headers map[string]string) RequestOption {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		for k, v := range headers {
			o.Headers[k] = v
		}
	}
}

// WithQuery sets the query string, replacing any query already in the URL.
func WithQuery(query url.Values) RequestOption {
	return func(o *RequestOptions) {
		o.Query = query
	}
}

// WithForm sends values as an application/x-www-form-urlencoded body.
func WithForm(values url.Values) RequestOption {
	return func(o *RequestOptions) {
		WithBody(strings.NewReader(values.Encode()))(o)
		WithHeader("Content-Type", "application/x-www-form-urlencoded")(o)
	}
}

// WithoutRedirects returns 3xx responses to the caller instead of following them.
func WithoutRedirects() RequestOption {
	return func(o *RequestOptions) {
		o.FollowRedirects = false
	}
}

// WithProxy routes the request through the given proxy selector.
func WithProxy(proxy func(*http.Request) (*url.URL, error)) RequestOption {
	return func(o *RequestOptions) {
		o.Proxy = proxy
	}
}

// WithTransport replaces the base round tripper. Tracing is still applied on top.
func WithTransport(rt http.RoundTripper) RequestOption {
	return func(o *RequestOptions) {
		o.Transport = rt
	}
}

// Do executes one HTTP request. Non-2xx statuses are not errors here; callers
// decide what a status means.
func Do(ctx context.Context, method, rawURL string, opts ...RequestOption) (*Response, error) {
	options := &RequestOptions{
		Timeout:         DefaultTimeout,
		FollowRedirects: true,
	}

	for _, opt := range opts {
		opt(options)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if options.Query != nil {
		u.RawQuery = options.Query.Encode()
	}

	client := &http.Client{
		Timeout:   options.Timeout,
		Transport: otelhttp.NewTransport(baseTransport(options)),
	}
	if !options.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), options.Body)
	if err != nil {
		return nil, err
	}

	for k, v := range options.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func baseTransport(o *RequestOptions) http.RoundTripper {
	if o.Transport != nil {
		return o.Transport
	}
	if o.Proxy == nil {
		return http.DefaultTransport
	}
	def, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return http.DefaultTransport
	}
	t := def.Clone()
	t.Proxy = o.Proxy
	return t
}
