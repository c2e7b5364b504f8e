package script

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

var (
	ErrNameNotSpecified = errors.New("script not specified")
	ErrNotFound         = errors.New("script not found")
)

// DuplicateNameError reports two discovered scripts registered under one name.
// It is a host misconfiguration, not a per-script failure.
type DuplicateNameError struct {
	Name   string
	First  Script
	Second Script
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("Duplicate scripts with same name found:\n%s\n%s", Identity(e.First), Identity(e.Second))
}

// Registry is a transient name to script table built from one discovery set.
type Registry struct {
	items map[string]Script
}

// Resolve builds a Registry from a discovery set in a single pass. The first
// name seen twice aborts with a *DuplicateNameError naming both scripts, and no
// registry is returned. Nil entries, including typed nil pointers, are skipped.
// A panicking Name is returned as a *PanicError.
func Resolve(scripts []Script) (reg *Registry, err error) {
	defer func() {
		if r := recover(); r != nil {
			reg, err = nil, NewPanicError(r)
		}
	}()

	items := make(map[string]Script, len(scripts))
	for _, s := range scripts {
		if isNil(s) {
			continue
		}
		name := s.Name()
		if existing, ok := items[name]; ok {
			return nil, &DuplicateNameError{Name: name, First: existing, Second: s}
		}
		items[name] = s
	}
	return &Registry{items: items}, nil
}

func isNil(s Script) bool {
	if s == nil {
		return true
	}
	switch v := reflect.ValueOf(s); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Lookup returns the script registered under name.
func (r *Registry) Lookup(name string) (Script, bool) {
	s, ok := r.items[name]
	return s, ok
}

// Get is Lookup with an error wrapping ErrNotFound for a missing name.
func (r *Registry) Get(name string) (Script, error) {
	s, ok := r.items[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s, nil
}

// Len returns the number of registered scripts.
func (r *Registry) Len() int {
	return len(r.items)
}

// Names returns registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
