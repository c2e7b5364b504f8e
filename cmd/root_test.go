package cmd

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/devscripts/internal/config"
	"github.com/zjrosen/devscripts/internal/dispatch"
	"github.com/zjrosen/devscripts/internal/luascript"
	"github.com/zjrosen/devscripts/internal/script"
)

// resetFlags restores every flag to its default between executions.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	resetFlags(rootCmd)
	cfg = config.Config{}

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// writeConfig writes a config file pointing the client at port.
func writeConfig(t *testing.T, port int, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "http:\n  host: localhost\n  port: " + strconv.Itoa(port) + "\nclient:\n  timeout: 5s\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// startServer hosts scripts on an OS-assigned port.
func startServer(t *testing.T, scripts ...script.Script) int {
	t.Helper()
	srv, err := dispatch.NewServer(dispatch.ServerConfig{
		Addr:            "localhost:0",
		Dispatcher:      dispatch.New(dispatch.Config{Provider: script.Static(scripts...)}),
		BasePath:        "/scripts",
		DispatchEnabled: true,
	})
	require.NoError(t, err)
	go func() { _ = srv.Start() }()
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv.Port()
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	ec, ok := err.(interface{ ExitCode() int })
	require.True(t, ok, "error %v has no exit code", err)
	return ec.ExitCode()
}

func TestRun_Success(t *testing.T) {
	var mu sync.Mutex
	var got []string
	port := startServer(t, script.New("backup", func(_ context.Context, args []string) error {
		mu.Lock()
		defer mu.Unlock()
		got = args
		return nil
	}))

	out, err := execute(t, context.Background(), "--config", writeConfig(t, port, ""), "run", "backup", "full", "2024")

	require.NoError(t, err)
	require.Equal(t, "SUCCESS! Script completed.\n", out)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"full", "2024"}, got)
}

func TestRun_Alias(t *testing.T) {
	port := startServer(t, script.New("backup", nil))

	out, err := execute(t, context.Background(), "--config", writeConfig(t, port, ""), "r", "backup")

	require.NoError(t, err)
	require.Equal(t, "SUCCESS! Script completed.\n", out)
}

func TestRun_NotFoundExitsNonZero(t *testing.T) {
	port := startServer(t, script.New("backup", nil))

	out, err := execute(t, context.Background(), "--config", writeConfig(t, port, ""), "run", "restore")

	require.Error(t, err)
	require.Equal(t, 1, exitCode(t, err))
	require.Empty(t, err.Error())
	require.Equal(t, "FAILURE! Script failed. Response code 404 and message: Script not found: restore\n", out)
}

func TestRun_WithoutName(t *testing.T) {
	out, err := execute(t, context.Background(), "--config", writeConfig(t, 1, ""), "run")

	require.Error(t, err)
	require.Equal(t, 1, exitCode(t, err))
	require.Equal(t, "FAILURE! Script failed. Script not specified.\n", out)
}

func TestRun_ServerDown(t *testing.T) {
	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	out, err := execute(t, context.Background(), "--config", writeConfig(t, port, ""), "run", "backup")

	require.Error(t, err)
	require.Equal(t, 1, exitCode(t, err))
	require.True(t, strings.HasPrefix(out, "FAILURE! Script failed. "), out)
}

func TestRun_PortFlagOverridesConfig(t *testing.T) {
	port := startServer(t, script.New("backup", nil))

	out, err := execute(t, context.Background(), "--config", writeConfig(t, 1, ""), "--port", strconv.Itoa(port), "run", "backup")

	require.NoError(t, err)
	require.Equal(t, "SUCCESS! Script completed.\n", out)
}

func TestInvalidConfig(t *testing.T) {
	_, err := execute(t, context.Background(), "--config", writeConfig(t, 70000, ""), "run", "backup")

	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid configuration")
	require.Contains(t, err.Error(), "http.port")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := execute(t, context.Background(), "--config", path, "config", "init")
	require.NoError(t, err)
	require.Contains(t, out, "Wrote "+path)
	require.FileExists(t, path)

	_, err = execute(t, context.Background(), "--config", path, "config", "init")
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists")

	_, err = execute(t, context.Background(), "--config", path, "config", "init", "--force")
	require.NoError(t, err)
}

func TestConfigSetFlag(t *testing.T) {
	path := writeConfig(t, 8080, "log:\n  level: info # keep me\n")

	out, err := execute(t, context.Background(), "--config", path, "config", "set-flag", "serialize-runs", "true")
	require.NoError(t, err)
	require.Contains(t, out, "Set serialize-runs=true")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# keep me")

	var parsed struct {
		Flags map[string]bool `yaml:"flags"`
	}
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	require.True(t, parsed.Flags["serialize-runs"])
}

func TestConfigSetFlag_Rejects(t *testing.T) {
	path := writeConfig(t, 8080, "")

	_, err := execute(t, context.Background(), "--config", path, "config", "set-flag", "turbo", "true")
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown flag "turbo"`)

	_, err = execute(t, context.Background(), "--config", path, "config", "set-flag", "serialize-runs", "maybe")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must be true or false")
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backup.lua"), []byte("return true"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reindex.lua"), []byte("return true"), 0o600))

	out, err := execute(t, context.Background(), "--config", writeConfig(t, 8080, ""), "list", "--dir", dir)

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "backup "))
	require.True(t, strings.HasPrefix(lines[1], "reindex "))
}

func TestList_Duplicate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "backup.lua"), []byte("return true"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b", "backup.lua"), []byte("return true"), 0o600))

	_, err := execute(t, context.Background(), "--config", writeConfig(t, 8080, ""), "list", "--dir", dir)

	require.Error(t, err)
	require.Contains(t, err.Error(), "Duplicate scripts with same name found:")
}

func TestVersion(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	out, err := execute(t, context.Background(), "--config", writeConfig(t, 8080, ""), "version")

	require.NoError(t, err)
	require.Equal(t, "devscripts 1.2.3\n", out)
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	path := writeConfig(t, 8080, "log:\n  path: "+filepath.Join(dir, "serve.log")+"\n")

	done := make(chan error, 1)
	var out string
	go func() {
		var err error
		out, err = execute(t, ctx, "--config", path, "serve", "--addr", "localhost:0", "--dir", dir)
		done <- err
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
	require.Contains(t, out, "devscripts serving /scripts on port")
	require.Contains(t, out, "Server stopped")
}

func TestNewDispatcher_RunsLuaScripts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fail.lua"), []byte(`error("nope")`), 0o600))
	cfg = config.Config{}
	cfg.Scripts.AppPackages = []string{"github.com/zjrosen/devscripts/"}

	d := newDispatcher(luascript.NewProvider(dir), noop.NewTracerProvider().Tracer("test"))
	outcome := d.Handle(context.Background(), []string{"fail"})

	require.Equal(t, dispatch.ScriptFailed, outcome.Kind)
	require.True(t, strings.HasPrefix(outcome.Message(), "Script failed: fail\n"), outcome.Message())
	require.Contains(t, outcome.Message(), "nope")
	require.Contains(t, outcome.Message(), "github.com/zjrosen/devscripts/internal/luascript.(*Script).Run")
}
