// Package dispatch resolves a request path to a registered script, runs it,
// and maps the result to an HTTP status and message.
package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/devscripts/internal/flags"
	"github.com/zjrosen/devscripts/internal/log"
	"github.com/zjrosen/devscripts/internal/script"
	"github.com/zjrosen/devscripts/internal/tracing"
)

// Config configures a Dispatcher.
type Config struct {
	// Provider yields the current discovery set (required).
	Provider script.Provider
	// Filter selects the frames kept in failure traces.
	Filter script.FrameFilter
	// Flags enables opt-in behavior (optional).
	Flags *flags.Registry
	// Tracer creates dispatch spans (optional, no-op when nil).
	Tracer trace.Tracer
}

// Dispatcher runs scripts by name. It rebuilds the registry from its provider
// on every call, so scripts added or removed between calls are picked up.
type Dispatcher struct {
	provider script.Provider
	filter   script.FrameFilter
	flags    *flags.Registry
	tracer   trace.Tracer
	locks    *nameLocks
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	filter := cfg.Filter
	if cfg.Flags.Enabled(flags.FlagCompactTraces) {
		filter = filter.Compact()
	}
	return &Dispatcher{
		provider: cfg.Provider,
		filter:   filter,
		flags:    cfg.Flags,
		tracer:   tracer,
		locks:    newNameLocks(),
	}
}

// Handle dispatches segments, where segments[0] is the script name and the
// rest are passed to the script verbatim. The script runs at most once, on the
// calling goroutine, and is not cancelled when ctx is.
func (d *Dispatcher) Handle(ctx context.Context, segments []string) Outcome {
	ctx, span := d.tracer.Start(ctx, tracing.SpanDispatch, trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	if id := RequestID(ctx); id != "" {
		span.SetAttributes(attribute.String(tracing.AttrRequestID, id))
	}

	outcome := d.handle(ctx, span, segments)

	span.SetAttributes(
		attribute.String(tracing.AttrOutcome, outcome.Kind.String()),
		attribute.Int(tracing.AttrHTTPStatusCode, outcome.Status()),
	)
	if outcome.Kind == Success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, outcome.Kind.String())
	}
	return outcome
}

func (d *Dispatcher) handle(ctx context.Context, span trace.Span, segments []string) Outcome {
	requestID := RequestID(ctx)

	discovered, err := script.Discover(ctx, d.provider)
	if err != nil {
		log.ErrorErr(log.CatDispatch, "Script discovery failed", err, "request_id", requestID)
		return Outcome{Kind: DiscoveryFailed, Err: err}
	}

	registry, err := script.Resolve(discovered)
	if err != nil {
		var dup *script.DuplicateNameError
		if errors.As(err, &dup) {
			log.Error(log.CatDispatch, "Duplicate script names", "name", dup.Name,
				"first", script.Identity(dup.First), "second", script.Identity(dup.Second))
			return Outcome{Kind: DuplicateName, Name: dup.Name, Err: err}
		}
		log.ErrorErr(log.CatDispatch, "Script resolution failed", err, "request_id", requestID)
		return Outcome{Kind: DiscoveryFailed, Err: err}
	}
	span.AddEvent(tracing.EventRegistryResolved, trace.WithAttributes(attribute.Int("scripts", registry.Len())))

	if len(segments) == 0 || segments[0] == "" {
		log.Warn(log.CatDispatch, "Script not specified", "request_id", requestID)
		return Outcome{Kind: NameNotSpecified, Err: script.ErrNameNotSpecified}
	}

	name := segments[0]
	args := make([]string, len(segments)-1)
	copy(args, segments[1:])
	span.SetAttributes(
		attribute.String(tracing.AttrScriptName, name),
		attribute.StringSlice(tracing.AttrScriptArgs, args),
	)

	s, err := registry.Get(name)
	if err != nil {
		log.Warn(log.CatDispatch, "Script not found", "name", name, "request_id", requestID)
		return Outcome{Kind: NotFound, Name: name, Err: err}
	}

	if d.flags.Enabled(flags.FlagSerializeRuns) {
		unlock := d.locks.lock(name)
		defer unlock()
	}

	log.Info(log.CatScript, "Running script", "name", name, "args", args, "request_id", requestID)
	span.AddEvent(tracing.EventScriptStarted)

	if err := script.Invoke(context.WithoutCancel(ctx), s, args, d.filter); err != nil {
		span.RecordError(err)
		log.ErrorErr(log.CatScript, "Script failed", err, "name", name, "request_id", requestID)
		return Outcome{Kind: ScriptFailed, Name: name, Err: err}
	}

	log.Info(log.CatScript, "Script completed", "name", name, "request_id", requestID)
	return Outcome{Kind: Success, Name: name}
}

// SplitPath splits the path below the dispatch base path into segments. One
// leading separator is ignored and trailing empty segments are dropped; empty
// segments in between are kept as empty arguments.
func SplitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return []string{}
	}
	segments := strings.Split(path, "/")
	end := len(segments)
	for end > 0 && segments[end-1] == "" {
		end--
	}
	return segments[:end]
}

// nameLocks hands out one mutex per script name.
type nameLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newNameLocks() *nameLocks {
	return &nameLocks{locks: make(map[string]*sync.Mutex)}
}

func (n *nameLocks) lock(name string) func() {
	n.mu.Lock()
	m, ok := n.locks[name]
	if !ok {
		m = &sync.Mutex{}
		n.locks[name] = m
	}
	n.mu.Unlock()

	m.Lock()
	return m.Unlock
}
