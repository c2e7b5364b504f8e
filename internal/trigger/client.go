// Package trigger sends dispatch requests to a running devscripts server and
// renders the result for a console.
package trigger

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/devscripts/internal/log"
	"github.com/zjrosen/devscripts/internal/tracing"
)

const (
	// MessageSuccess is rendered for any 2xx response.
	MessageSuccess = "SUCCESS! Script completed."
	// MessageFailure prefixes every failure rendering.
	MessageFailure = "FAILURE! Script failed."
	// MessageNameNotSpecified is the detail for an empty trigger.
	MessageNameNotSpecified = "Script not specified."
)

// maxBodyBytes bounds how much of a response body is rendered.
const maxBodyBytes = 1 << 20

// Config configures a Client.
type Config struct {
	Host     string
	Port     int
	BasePath string
	// Timeout bounds one request end to end. Zero disables it.
	Timeout time.Duration
	// Tracer creates client spans (optional, no-op when nil).
	Tracer trace.Tracer
	// Transport overrides the HTTP transport (optional).
	Transport http.RoundTripper
}

// Client triggers scripts over HTTP.
type Client struct {
	host     string
	basePath string
	http     *http.Client
	tracer   trace.Tracer
}

// New creates a Client.
func New(cfg Config) *Client {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	return &Client{
		host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		basePath: strings.TrimSuffix(cfg.BasePath, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		tracer: tracer,
	}
}

// Outcome is the rendered result of one trigger. StatusCode is zero when no
// response was received.
type Outcome struct {
	OK         bool
	Message    string
	StatusCode int
}

// URL returns the dispatch URL for nameAndArgs. Tokens are joined with "/"
// as given.
func (c *Client) URL(nameAndArgs []string) string {
	u := url.URL{
		Scheme: "http",
		Host:   c.host,
		Path:   c.basePath + "/" + strings.Join(nameAndArgs, "/"),
	}
	return u.String()
}

// Trigger asks the server to run nameAndArgs[0] with the remaining tokens as
// arguments. It makes at most one request and never returns an error: every
// failure is rendered into the Outcome.
func (c *Client) Trigger(ctx context.Context, nameAndArgs []string) Outcome {
	if len(nameAndArgs) == 0 {
		log.Warn(log.CatClient, "Trigger without script name")
		return failure(0, MessageNameNotSpecified)
	}

	target := c.URL(nameAndArgs)
	ctx, span := c.tracer.Start(ctx, tracing.SpanTrigger, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String(tracing.AttrScriptName, nameAndArgs[0]),
		attribute.StringSlice(tracing.AttrScriptArgs, nameAndArgs[1:]),
		attribute.String(tracing.AttrURL, target),
	)

	outcome := c.send(ctx, target)

	if outcome.StatusCode != 0 {
		span.SetAttributes(attribute.Int(tracing.AttrHTTPStatusCode, outcome.StatusCode))
	}
	if outcome.OK {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, outcome.Message)
	}
	return outcome
}

func (c *Client) send(ctx context.Context, target string) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, http.NoBody)
	if err != nil {
		return failure(0, err.Error())
	}

	log.Debug(log.CatClient, "Triggering script", "url", target)
	resp, err := c.http.Do(req)
	if err != nil {
		log.ErrorErr(log.CatClient, "Trigger request failed", err, "url", target)
		return failure(0, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Warn(log.CatClient, "Failed to read response body", "error", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Info(log.CatClient, "Script completed", "url", target, "status", resp.StatusCode)
		return Outcome{OK: true, Message: MessageSuccess, StatusCode: resp.StatusCode}
	}

	detail := fmt.Sprintf("Response code %d", resp.StatusCode)
	if len(body) > 0 {
		detail += " and message: " + string(body)
	}
	log.Warn(log.CatClient, "Script failed", "url", target, "status", resp.StatusCode)
	return failure(resp.StatusCode, detail)
}

func failure(status int, detail string) Outcome {
	return Outcome{OK: false, Message: MessageFailure + " " + detail, StatusCode: status}
}
