/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package setting implements typed, range-checked named configuration
// values used both by the mixer's own output settings (width, height, ...)
// and, indirectly, by the slot property controllers in package control.
package setting

import (
	"fmt"
	"sync"
)

// Kind identifies the scalar type carried by a Value or a Spec.
type Kind int

const (
	KindI32 Kind = iota
	KindF64
	KindStr
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindF64:
		return "f64"
	case KindStr:
		return "str"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a typed scalar. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind
	I32  int32
	F64  float64
	Str  string
	Bool bool
}

func I32Value(v int32) Value   { return Value{Kind: KindI32, I32: v} }
func F64Value(v float64) Value { return Value{Kind: KindF64, F64: v} }
func StrValue(v string) Value  { return Value{Kind: KindStr, Str: v} }
func BoolValue(v bool) Value   { return Value{Kind: KindBool, Bool: v} }

// AsF64 coerces numeric kinds to float64 for interpolation. Non-numeric
// kinds are not interpolatable and return an error.
func (v Value) AsF64() (float64, error) {
	switch v.Kind {
	case KindI32:
		return float64(v.I32), nil
	case KindF64:
		return v.F64, nil
	default:
		return 0, fmt.Errorf("setting: value of kind %s is not numeric", v.Kind)
	}
}

// WithF64 returns a copy of v with its numeric field set from f, cast back
// to v's own Kind (truncating for KindI32).
func (v Value) WithF64(f float64) Value {
	switch v.Kind {
	case KindI32:
		v.I32 = int32(f)
	case KindF64:
		v.F64 = f
	}
	return v
}

// Spec describes the legal range and type of a Setting's current value.
type Spec struct {
	Kind           Kind
	MinI32, MaxI32 int32
	MinF64, MaxF64 float64
}

func I32Spec(min, max int32) Spec   { return Spec{Kind: KindI32, MinI32: min, MaxI32: max} }
func F64Spec(min, max float64) Spec { return Spec{Kind: KindF64, MinF64: min, MaxF64: max} }
func StrSpec() Spec                 { return Spec{Kind: KindStr} }
func BoolSpec() Spec                { return Spec{Kind: KindBool} }

// Validate fails when v's Kind disagrees with the spec, or a numeric v
// falls outside [min, max].
func (s Spec) Validate(v Value) error {
	if v.Kind != s.Kind {
		return fmt.Errorf("setting: expected value of kind %s, got %s", s.Kind, v.Kind)
	}
	switch s.Kind {
	case KindI32:
		if v.I32 < s.MinI32 || v.I32 > s.MaxI32 {
			return fmt.Errorf("setting: value %d out of range [%d, %d]", v.I32, s.MinI32, s.MaxI32)
		}
	case KindF64:
		if v.F64 < s.MinF64 || v.F64 > s.MaxF64 {
			return fmt.Errorf("setting: value %f out of range [%f, %f]", v.F64, s.MinF64, s.MaxF64)
		}
	}
	return nil
}

// Setting is a named, typed, range-checked configuration value.
type Setting struct {
	mu           sync.RWMutex
	Name         string
	Spec         Spec
	Controllable bool
	current      Value
}

// New creates a Setting with the given initial value, which must already
// satisfy spec (callers assemble the default table once at construction, so
// a panic here indicates a programming error, not a runtime fault).
func New(name string, spec Spec, controllable bool, initial Value) *Setting {
	if err := spec.Validate(initial); err != nil {
		panic(fmt.Sprintf("setting %q: invalid default: %v", name, err))
	}
	return &Setting{Name: name, Spec: spec, Controllable: controllable, current: initial}
}

// Current returns a snapshot of the setting's value.
func (s *Setting) Current() Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Validate checks v against the setting's spec without applying it.
func (s *Setting) Validate(v Value) error {
	return s.Spec.Validate(v)
}

// SetFromValue validates and applies v, failing closed: on a validation
// error the current value is left untouched.
func (s *Setting) SetFromValue(v Value) error {
	if err := s.Spec.Validate(v); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = v
	s.mu.Unlock()
	return nil
}

// AsI32 coerces the current value to int32, failing if the setting is not
// of kind I32.
func (s *Setting) AsI32() (int32, error) {
	v := s.Current()
	if v.Kind != KindI32 {
		return 0, fmt.Errorf("setting %q: not an i32", s.Name)
	}
	return v.I32, nil
}

// AsStr coerces the current value to string.
func (s *Setting) AsStr() (string, error) {
	v := s.Current()
	if v.Kind != KindStr {
		return "", fmt.Errorf("setting %q: not a str", s.Name)
	}
	return v.Str, nil
}

// AsBool coerces the current value to bool.
func (s *Setting) AsBool() (bool, error) {
	v := s.Current()
	if v.Kind != KindBool {
		return false, fmt.Errorf("setting %q: not a bool", s.Name)
	}
	return v.Bool, nil
}

// Registry is a named collection of Settings, as maintained by a Mixer for
// its output-level configuration.
type Registry struct {
	mu       sync.RWMutex
	settings map[string]*Setting
}

// NewRegistry builds a registry from the given settings, keyed by name.
func NewRegistry(settings ...*Setting) *Registry {
	r := &Registry{settings: make(map[string]*Setting, len(settings))}
	for _, s := range settings {
		r.settings[s.Name] = s
	}
	return r
}

// Get returns the named setting, or nil if it does not exist.
func (r *Registry) Get(name string) *Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings[name]
}

// Names returns the registered setting names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.settings))
	for name := range r.settings {
		names = append(names, name)
	}
	return names
}

// Snapshot returns the current value of every setting, keyed by name.
func (r *Registry) Snapshot() map[string]Value {
	r.mu.RLock()
	names := make([]*Setting, 0, len(r.settings))
	for _, s := range r.settings {
		names = append(names, s)
	}
	r.mu.RUnlock()

	out := make(map[string]Value, len(names))
	for _, s := range names {
		out[s.Name] = s.Current()
	}
	return out
}

// DefaultMixerSettings builds the standard output-setting table for a
// freshly created Mixer: 1920x1080 video, 48kHz audio, and a fallback
// image/timeout pair controlling what the base plate shows when no slot is
// live.
func DefaultMixerSettings() *Registry {
	r, err := MixerSettings(1920, 1080, 48000, "", 500)
	if err != nil {
		panic(err)
	}
	return r
}

// MixerSettings builds the output-setting table with operator-supplied
// defaults, as loaded from the node's environment/overlay config. Unlike
// DefaultMixerSettings it returns an error rather than panicking, since the
// values come from outside the program.
func MixerSettings(width, height, sampleRate int32, fallbackImage string, fallbackTimeoutMS int32) (*Registry, error) {
	dimSpec := I32Spec(1, 2147483647)
	timeoutSpec := I32Spec(0, 2147483647)

	checks := []struct {
		name string
		spec Spec
		v    Value
	}{
		{"width", dimSpec, I32Value(width)},
		{"height", dimSpec, I32Value(height)},
		{"sample-rate", dimSpec, I32Value(sampleRate)},
		{"fallback-timeout", timeoutSpec, I32Value(fallbackTimeoutMS)},
	}
	for _, c := range checks {
		if err := c.spec.Validate(c.v); err != nil {
			return nil, fmt.Errorf("setting: default for %q: %w", c.name, err)
		}
	}

	return NewRegistry(
		New("width", dimSpec, true, I32Value(width)),
		New("height", dimSpec, true, I32Value(height)),
		New("sample-rate", dimSpec, false, I32Value(sampleRate)),
		New("fallback-image", StrSpec(), false, StrValue(fallbackImage)),
		New("fallback-timeout", timeoutSpec, true, I32Value(fallbackTimeoutMS)),
	), nil
}
