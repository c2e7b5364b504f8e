package trigger

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/devscripts/internal/tracing"
)

type recorded struct {
	mu     sync.Mutex
	method string
	path   string
	raw    string
}

func (r *recorded) get() (method, path, raw string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.method, r.path, r.raw
}

// newServer starts a test server answering every request with status and
// body, and records the last request.
func newServer(t *testing.T, status int, body string) (*httptest.Server, *recorded, *atomic.Int32) {
	t.Helper()
	last := &recorded{}
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.mu.Lock()
		last.method = r.Method
		last.path = r.URL.Path
		last.raw = r.URL.EscapedPath()
		last.mu.Unlock()
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, last, &hits
}

func clientFor(t *testing.T, srv *httptest.Server, basePath string) *Client {
	t.Helper()
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return New(Config{Host: host, Port: port, BasePath: basePath, Timeout: 5 * time.Second})
}

func TestTrigger_Success(t *testing.T) {
	srv, last, _ := newServer(t, http.StatusOK, "")
	c := clientFor(t, srv, "/scripts")

	outcome := c.Trigger(context.Background(), []string{"backup", "full"})

	require.True(t, outcome.OK)
	require.Equal(t, "SUCCESS! Script completed.", outcome.Message)
	require.Equal(t, http.StatusOK, outcome.StatusCode)
	method, path, _ := last.get()
	require.Equal(t, http.MethodPost, method)
	require.Equal(t, "/scripts/backup/full", path)
}

func TestTrigger_AnySuccessStatus(t *testing.T) {
	srv, _, _ := newServer(t, http.StatusNoContent, "")

	outcome := clientFor(t, srv, "/scripts").Trigger(context.Background(), []string{"backup"})

	require.True(t, outcome.OK)
	require.Equal(t, MessageSuccess, outcome.Message)
}

func TestTrigger_FailureWithBody(t *testing.T) {
	srv, _, _ := newServer(t, http.StatusNotFound, "Script not found: restore")

	outcome := clientFor(t, srv, "/scripts").Trigger(context.Background(), []string{"restore"})

	require.False(t, outcome.OK)
	require.Equal(t, http.StatusNotFound, outcome.StatusCode)
	require.Equal(t, "FAILURE! Script failed. Response code 404 and message: Script not found: restore", outcome.Message)
}

func TestTrigger_FailureWithoutBody(t *testing.T) {
	srv, _, _ := newServer(t, http.StatusInternalServerError, "")

	outcome := clientFor(t, srv, "/scripts").Trigger(context.Background(), []string{"backup"})

	require.False(t, outcome.OK)
	require.Equal(t, "FAILURE! Script failed. Response code 500", outcome.Message)
}

func TestTrigger_EmptyInputMakesNoRequest(t *testing.T) {
	srv, _, hits := newServer(t, http.StatusOK, "")

	outcome := clientFor(t, srv, "/scripts").Trigger(context.Background(), nil)

	require.False(t, outcome.OK)
	require.Zero(t, outcome.StatusCode)
	require.Equal(t, "FAILURE! Script failed. Script not specified.", outcome.Message)
	require.Zero(t, hits.Load())
}

func TestTrigger_TransportFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	c := New(Config{Host: "127.0.0.1", Port: port, BasePath: "/scripts", Timeout: time.Second})
	outcome := c.Trigger(context.Background(), []string{"backup"})

	require.False(t, outcome.OK)
	require.Zero(t, outcome.StatusCode)
	require.Contains(t, outcome.Message, "FAILURE! Script failed. ")
	require.Contains(t, outcome.Message, "connection refused")
}

func TestTrigger_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c := clientFor(t, srv, "/scripts")
	c.http.Timeout = 50 * time.Millisecond

	outcome := c.Trigger(context.Background(), []string{"slow"})

	require.False(t, outcome.OK)
	require.Contains(t, outcome.Message, "Client.Timeout exceeded")
}

func TestTrigger_Cancelled(t *testing.T) {
	srv, _, _ := newServer(t, http.StatusOK, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := clientFor(t, srv, "/scripts").Trigger(ctx, []string{"backup"})

	require.False(t, outcome.OK)
	require.Contains(t, outcome.Message, "context canceled")
}

func TestURL(t *testing.T) {
	c := New(Config{Host: "localhost", Port: 8080, BasePath: "/scripts"})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"name only", []string{"backup"}, "http://localhost:8080/scripts/backup"},
		{"with args", []string{"backup", "full", "2024"}, "http://localhost:8080/scripts/backup/full/2024"},
		{"space escaped", []string{"greet", "hello world"}, "http://localhost:8080/scripts/greet/hello%20world"},
		{"slash joined literally", []string{"copy", "a/b"}, "http://localhost:8080/scripts/copy/a/b"},
		{"empty arg", []string{"backup", "", "x"}, "http://localhost:8080/scripts/backup//x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, c.URL(tt.args))
		})
	}
}

func TestURL_TrailingSlashBasePath(t *testing.T) {
	c := New(Config{Host: "::1", Port: 9000, BasePath: "/admin/scripts/"})
	require.Equal(t, "http://[::1]:9000/admin/scripts/backup", c.URL([]string{"backup"}))
}

func TestTrigger_RoundTripsEscapedArguments(t *testing.T) {
	srv, last, _ := newServer(t, http.StatusOK, "")

	outcome := clientFor(t, srv, "/scripts").Trigger(context.Background(), []string{"greet", "hello world"})

	require.True(t, outcome.OK)
	_, path, raw := last.get()
	require.Equal(t, "/scripts/greet/hello world", path)
	require.Equal(t, "/scripts/greet/hello%20world", raw)
}

func TestTrigger_RecordsClientSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	srv, _, _ := newServer(t, http.StatusNotFound, "Script not found: x")
	c := clientFor(t, srv, "/scripts")
	c.tracer = tp.Tracer("test")

	c.Trigger(context.Background(), []string{"x", "y"})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, tracing.SpanTrigger, spans[0].Name)

	attrs := make(map[string]any)
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	require.Equal(t, "x", attrs[tracing.AttrScriptName])
	require.Equal(t, []string{"y"}, attrs[tracing.AttrScriptArgs])
	require.EqualValues(t, 404, attrs[tracing.AttrHTTPStatusCode])
}
