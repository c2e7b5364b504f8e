package tracing

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/devscripts/internal/config"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.False(t, p.Enabled())
	require.NotNil(t, p.Tracer())

	_, span := p.Tracer().Start(context.Background(), SpanDispatch)
	require.False(t, span.SpanContext().IsValid(), "noop tracer should produce invalid spans")
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_NoneExporter(t *testing.T) {
	p, err := NewProvider(config.TracingConfig{Enabled: true, Exporter: "none"})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), SpanTrigger)
	require.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_FileExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "traces.jsonl")
	p, err := NewProvider(config.TracingConfig{
		Enabled:  true,
		Exporter: "file",
		FilePath: path,
	})
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), SpanDispatch)
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	require.FileExists(t, path)
}

func TestNewProvider_FileExporterRequiresPath(t *testing.T) {
	_, err := NewProvider(config.TracingConfig{Enabled: true, Exporter: "file"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "file_path required")
}

func TestNewProvider_UnsupportedExporter(t *testing.T) {
	_, err := NewProvider(config.TracingConfig{Enabled: true, Exporter: "zipkin"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported exporter type: zipkin")
}
