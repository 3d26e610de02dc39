package qbt

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jfxdev/go-qbt-client/request"
)

const tracerName = "github.com/jfxdev/go-qbt-client"

// call describes one authenticated Web API request.
type call struct {
	method  string
	path    string
	query   url.Values
	headers map[string]string
	// body options must build a fresh reader each time they are applied so
	// that a call can be sent again after a re-login.
	body []request.RequestOption
}

// dispatch sends c with the session cookie attached, logging in first if no
// session is cached. It makes a single attempt; only when
// ReloginOnAuthFailure is set does a rejected session get one more try.
func (qb *Client) dispatch(ctx context.Context, c call) (resp *request.Response, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "qbt "+c.path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", c.method),
			attribute.String("qbt.path", c.path),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	resp, token, err := qb.send(ctx, c)
	if err == nil || token == "" || !errors.Is(err, ErrAuthentication) {
		return resp, err
	}

	config, _, logger := qb.settings()
	if !config.ReloginOnAuthFailure {
		return resp, err
	}

	logger.Debug("session rejected, logging in again", "path", c.path)
	span.AddEvent("relogin")
	qb.session.invalidate(token)

	resp, _, err = qb.send(ctx, c)
	return resp, err
}

func (qb *Client) send(ctx context.Context, c call) (*request.Response, string, error) {
	token, err := qb.ensureSession(ctx)
	if err != nil {
		return nil, "", err
	}

	config, limiter, logger := qb.settings()

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, token, ClassifyError(err)
		}
	}

	headers := make(map[string]string, len(c.headers)+1)
	for k, v := range c.headers {
		if strings.EqualFold(k, "Cookie") {
			continue
		}
		headers[k] = v
	}
	headers["Cookie"] = sessionCookie(token)

	opts := []request.RequestOption{
		request.WithHeaders(headers),
		request.WithQuery(c.query),
		request.WithTimeout(config.RequestTimeout),
		request.WithProxy(config.Proxy),
		request.WithTransport(config.Transport),
	}
	opts = append(opts, c.body...)

	start := time.Now()
	resp, err := request.Do(ctx, c.method, endpoint(config, c.path), opts...)
	elapsed := time.Since(start)

	if err != nil {
		qb.metrics.observe(c.method, c.path, 0, elapsed)
		logger.Debug("request failed", "method", c.method, "path", c.path, "error", err)
		return nil, token, ClassifyError(err)
	}

	qb.metrics.observe(c.method, c.path, resp.StatusCode, elapsed)
	logger.Debug("request", "method", c.method, "path", c.path, "status", resp.StatusCode, "elapsed", elapsed)

	if !resp.OK() {
		return nil, token, classifyHTTPStatusCode(resp.StatusCode, resp.String())
	}

	return resp, token, nil
}
