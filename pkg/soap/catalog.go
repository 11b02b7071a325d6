package soap

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Catalog resolves the names used in service registrations to Go functions,
// types and constructors. It is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	funcs map[string]reflect.Value
	types map[string]reflect.Type
	ctors map[string]reflect.Value
}

// DefaultCatalog is used by servers created without WithCatalog.
var DefaultCatalog = NewCatalog()

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		funcs: make(map[string]reflect.Value),
		types: make(map[string]reflect.Type),
		ctors: make(map[string]reflect.Value),
	}
}

// RegisterFunc adds fn under name.
func (c *Catalog) RegisterFunc(name string, fn any) error {
	v := reflect.ValueOf(fn)
	if name == "" || name == FunctionsAll {
		return fmt.Errorf("invalid function name %q", name)
	}
	if v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Errorf("function %q: %T is not a func", name, fn)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[name] = v
	return nil
}

// RegisterType adds the struct type of prototype under name. prototype may be
// a value, a pointer or a reflect.Type.
func (c *Catalog) RegisterType(name string, prototype any) error {
	t, ok := prototype.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(prototype)
	}
	t = structType(t)
	if name == "" || t == nil {
		return fmt.Errorf("type %q: %T is not a struct", name, prototype)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[name] = t
	return nil
}

// RegisterConstructor adds a named type together with the func that builds
// its instances. ctor must return *T or T, optionally followed by an error.
func (c *Catalog) RegisterConstructor(name string, ctor any) error {
	v := reflect.ValueOf(ctor)
	if name == "" || v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Errorf("constructor %q: %T is not a func", name, ctor)
	}
	ft := v.Type()
	if ft.NumOut() == 0 || ft.NumOut() > 2 || (ft.NumOut() == 2 && ft.Out(1) != errorType) {
		return fmt.Errorf("constructor %q must return an instance and an optional error", name)
	}
	t := structType(ft.Out(0))
	if t == nil {
		return fmt.Errorf("constructor %q returns %s, not a struct", name, ft.Out(0))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[name] = t
	c.ctors[name] = v
	return nil
}

// Func looks up a function.
func (c *Catalog) Func(name string) (reflect.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.funcs[name]
	return fn, ok
}

// Type looks up a type.
func (c *Catalog) Type(name string) (reflect.Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[name]
	return t, ok
}

// Constructor looks up the constructor registered for a type, if any.
func (c *Catalog) Constructor(name string) (reflect.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.ctors[name]
	return fn, ok
}

// FuncNames returns the registered function names, sorted.
func (c *Catalog) FuncNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.funcs))
	for name := range c.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterFunc adds fn to DefaultCatalog.
func RegisterFunc(name string, fn any) error { return DefaultCatalog.RegisterFunc(name, fn) }

// RegisterType adds a type to DefaultCatalog.
func RegisterType(name string, prototype any) error {
	return DefaultCatalog.RegisterType(name, prototype)
}

// RegisterConstructor adds a constructor to DefaultCatalog.
func RegisterConstructor(name string, ctor any) error {
	return DefaultCatalog.RegisterConstructor(name, ctor)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func structType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	return t
}
