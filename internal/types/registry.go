// Package types maps field type names to converters. A converter turns the
// raw value of a front-matter field into its typed form.
package types

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrDuplicateType = errors.New("types: type already registered")
	ErrUnknownType   = errors.New("types: unknown type")
	ErrConversion    = errors.New("types: conversion failed")
)

// Context is passed to every converter call.
type Context struct {
	// Field is the dotted name of the field being converted.
	Field string
	// Type is the type name the converter was looked up by.
	Type     string
	Registry *Registry
}

// Converter converts a raw value. raw is a string, int64 or float64, or the
// []any built from a Syd list.
type Converter func(raw any, ctx *Context) (any, error)

// Registry holds converters by type name. It is safe for concurrent use,
// though registration normally happens once at startup.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]Converter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{converters: make(map[string]Converter)}
}

// Default returns a registry with every built-in type registered.
func Default() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		// Only possible if the built-in table itself repeats a name.
		panic(err)
	}
	return r
}

// Register adds c under name. Registering a name twice fails with
// ErrDuplicateType.
func (r *Registry) Register(name string, c Converter) error {
	if name == "" || c == nil {
		return fmt.Errorf("types: register %q: empty name or nil converter", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.converters[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateType, name)
	}
	r.converters[name] = c
	return nil
}

// Get returns the converter for name or ErrUnknownType.
func (r *Registry) Get(name string) (Converter, error) {
	r.mu.RLock()
	c, ok := r.converters[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return c, nil
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.converters[name]
	return ok
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.converters))
	for n := range r.converters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Convert looks up typeName and applies it to raw for field.
func (r *Registry) Convert(typeName, field string, raw any) (any, error) {
	c, err := r.Get(typeName)
	if err != nil {
		return nil, err
	}
	return c(raw, &Context{Field: field, Type: typeName, Registry: r})
}

func convErr(ctx *Context, raw any, format string, args ...any) error {
	field := ""
	if ctx != nil {
		field = ctx.Field
	}
	return fmt.Errorf("%w: field %q value %v: %s", ErrConversion, field, raw, fmt.Sprintf(format, args...))
}
