package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/devscripts/internal/config"
	"github.com/zjrosen/devscripts/internal/log"
	"github.com/zjrosen/devscripts/internal/tracing"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts so
	// the OSC 11 response does not race the console's input loop.
	_ = lipgloss.HasDarkBackground()
}

const (
	appName           = "devscripts"
	envPrefix         = "DEVSCRIPTS"
	localConfigPath   = ".devscripts/config.yaml"
	shutdownTimeout   = 30 * time.Second
	tracingFlushLimit = 5 * time.Second
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Trigger development scripts over HTTP",
	Long: `devscripts runs named maintenance scripts inside a development server on demand.

"devscripts serve" hosts the dispatch endpoint and discovers Lua scripts from a
directory. "devscripts run <name> [args...]" triggers one of them.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .devscripts/config.yaml or ~/.config/devscripts/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"enable debug logging")
	rootCmd.PersistentFlags().String("host", "", "dispatch endpoint host (overrides config)")
	rootCmd.PersistentFlags().Int("port", 0, "dispatch endpoint port (overrides config)")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("profile", defaults.Profile)
	viper.SetDefault("http.host", defaults.HTTP.Host)
	viper.SetDefault("http.port", defaults.HTTP.Port)
	viper.SetDefault("scripts.path", defaults.Scripts.Path)
	viper.SetDefault("scripts.dir", defaults.Scripts.Dir)
	viper.SetDefault("scripts.app_packages", defaults.Scripts.AppPackages)
	viper.SetDefault("client.timeout", defaults.Client.Timeout)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.path", defaults.Log.Path)

	_ = viper.BindPFlag("http.host", rootCmd.PersistentFlags().Lookup("host"))
	_ = viper.BindPFlag("http.port", rootCmd.PersistentFlags().Lookup("port"))

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .devscripts/config.yaml (current directory)
		// 2. ~/.config/devscripts/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", appName))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "warning: reading config: %v\n", err)
		}
	}

	cfg = config.Defaults()
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: decoding config: %v\n", err)
	}
}

// configPath returns the file config edits are written to.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return localConfigPath
}

// setupLogging enables logging when forced, when --debug or DEVSCRIPTS_DEBUG
// is set, or when log.path is configured.
func setupLogging(force bool) (func(), error) {
	debug := debugFlag || os.Getenv(envPrefix+"_DEBUG") != ""
	if !force && !debug && cfg.Log.Path == "" {
		return func() {}, nil
	}

	cleanup, err := log.Init(cfg.Log.Path, appName)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	level := log.ParseLevel(cfg.Log.Level)
	if debug {
		level = log.LevelDebug
	}
	log.SetMinLevel(level)
	log.Debug(log.CatConfig, "Configuration loaded", "file", viper.ConfigFileUsed(), "profile", cfg.Profile)
	return cleanup, nil
}

// setupTracing builds the trace provider. The returned function flushes it.
func setupTracing() (*tracing.Provider, func(), error) {
	tc := cfg.Tracing
	if tc.Enabled && tc.Exporter == "file" && tc.FilePath == "" {
		tc.FilePath = config.DefaultTracesFilePath()
	}
	provider, err := tracing.NewProvider(tc)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing tracing: %w", err)
	}
	return provider, func() {
		ctx, cancel := context.WithTimeout(context.Background(), tracingFlushLimit)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "Failed to flush traces", err)
		}
	}, nil
}

// exitError ends the process with code. An empty message means the failure
// was already reported.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// ExitCode returns the process exit code.
func (e *exitError) ExitCode() int { return e.code }

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
