package dispatch

import (
	"errors"
	"net/http"

	"github.com/zjrosen/devscripts/internal/script"
)

// Kind classifies the result of one dispatch.
type Kind int

const (
	Success Kind = iota
	NameNotSpecified
	NotFound
	DuplicateName
	ScriptFailed
	DiscoveryFailed
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case NameNotSpecified:
		return "name_not_specified"
	case NotFound:
		return "not_found"
	case DuplicateName:
		return "duplicate_name"
	case ScriptFailed:
		return "script_failed"
	case DiscoveryFailed:
		return "discovery_failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one dispatch. Name is the requested script name,
// when one was given. Err carries the cause for every kind but Success.
type Outcome struct {
	Kind Kind
	Name string
	Err  error
}

// Status returns the HTTP status code for the outcome.
func (o Outcome) Status() int {
	switch o.Kind {
	case Success:
		return http.StatusOK
	case NameNotSpecified:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the response body for the outcome. Success has none.
func (o Outcome) Message() string {
	switch o.Kind {
	case Success:
		return ""
	case NameNotSpecified:
		return "Script not specified."
	case NotFound:
		return "Script not found: " + o.Name
	case DuplicateName:
		var dup *script.DuplicateNameError
		if errors.As(o.Err, &dup) {
			return dup.Error()
		}
		return "Duplicate scripts with same name found:"
	case ScriptFailed:
		var failure *script.Failure
		if errors.As(o.Err, &failure) {
			return failure.Error()
		}
		return "Script failed: " + o.Name
	case DiscoveryFailed:
		return "Script discovery failed: " + errText(o.Err)
	default:
		return http.StatusText(o.Status())
	}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
