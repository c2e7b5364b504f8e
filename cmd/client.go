package cmd

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/devscripts/internal/trigger"
)

func newTriggerClient(tracer trace.Tracer) *trigger.Client {
	return trigger.New(trigger.Config{
		Host:     cfg.HTTP.Host,
		Port:     cfg.HTTP.Port,
		BasePath: cfg.Scripts.Path,
		Timeout:  cfg.Client.Timeout,
		Tracer:   tracer,
	})
}
