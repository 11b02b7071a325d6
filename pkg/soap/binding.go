package soap

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/getmockd/soapd/pkg/soap/engine"
)

// binding is the service implementation attached to a server.
type binding struct {
	functions []string
	all       bool
	class     *classBinding
	object    reflect.Value
}

type classBinding struct {
	name      string
	typ       reflect.Type
	ctor      reflect.Value
	args      []any
	namespace string
}

// AddFunction exposes one catalog function (a string) or several (a
// []string). FunctionsAll exposes the whole catalog. A slice is added only
// if every name in it resolves.
func (s *Server) AddFunction(v any) error {
	switch fn := v.(type) {
	case string:
		if !s.isFunction(fn) {
			return invalidArgument("Invalid function specified")
		}
		s.addFunctions(fn)
	case []string:
		for _, name := range fn {
			if !s.isFunction(name) {
				return invalidArgument("One or more invalid functions specified in array")
			}
		}
		s.addFunctions(fn...)
	default:
		return invalidArgument("Invalid function specified")
	}
	s.touch()
	return nil
}

func (s *Server) isFunction(name string) bool {
	if name == FunctionsAll {
		return true
	}
	_, ok := s.catalog.Func(name)
	return ok
}

func (s *Server) addFunctions(names ...string) {
	for _, name := range names {
		if s.binding.all {
			return
		}
		if name == FunctionsAll {
			s.binding.all = true
			s.binding.functions = []string{FunctionsAll}
			return
		}
		if !slices.Contains(s.binding.functions, name) {
			s.binding.functions = append(s.binding.functions, name)
		}
	}
}

// SetClass binds a type whose exported methods become the operations of the
// service. class is a catalog name or a reflect.Type; a struct value or a
// pointer is bound as an object instead. args are passed to the catalog
// constructor of the type, if one is registered. Only one class may be bound.
func (s *Server) SetClass(class any, namespace string, args ...any) error {
	if s.binding.class != nil {
		return invalidArgument("A class has already been registered with this soap server instance")
	}

	cb := &classBinding{namespace: namespace, args: args}
	switch c := class.(type) {
	case string:
		t, ok := s.catalog.Type(c)
		if !ok {
			return invalidArgument(fmt.Sprintf("Class %q does not exist", c))
		}
		cb.name, cb.typ = c, t
		if ctor, ok := s.catalog.Constructor(c); ok {
			cb.ctor = ctor
		}
	case reflect.Type:
		t := structType(c)
		if t == nil {
			return invalidArgument(fmt.Sprintf("Invalid class argument (%s)", kindOf(c)))
		}
		cb.name, cb.typ = t.String(), t
	case nil:
		return invalidArgument("Invalid class argument (nil)")
	default:
		rv := reflect.ValueOf(class)
		if rv.Kind() == reflect.Struct || (rv.Kind() == reflect.Pointer && !rv.IsNil()) {
			return s.SetObject(class)
		}
		return invalidArgument(fmt.Sprintf("Invalid class argument (%s)", rv.Kind()))
	}

	s.binding.class = cb
	s.touch()
	return nil
}

// SetObject binds a live value whose exported methods become the operations
// of the service. A later call replaces the object.
func (s *Server) SetObject(obj any) error {
	if obj == nil {
		return invalidArgument("Invalid object argument (nil)")
	}
	rv := reflect.ValueOf(obj)
	switch {
	case rv.Kind() == reflect.Pointer && !rv.IsNil():
	case rv.Kind() == reflect.Struct:
	default:
		return invalidArgument(fmt.Sprintf("Invalid object argument (%s)", rv.Kind()))
	}
	s.binding.object = rv
	s.touch()
	return nil
}

// Functions lists the operations of the bound class or object, or else the
// registered function names.
func (s *Server) Functions() []string {
	switch {
	case s.binding.class != nil:
		return engine.MethodOperations(s.binding.class.typ)
	case s.binding.object.IsValid():
		return methodOperations(s.binding.object.Type())
	}
	return slices.Clone(s.binding.functions)
}

// LoadFunctions is not supported; functions are registered with AddFunction.
func (s *Server) LoadFunctions(any) error {
	return ErrUnimplemented
}

// methodOperations lists operations of a bound object, whose method set
// depends on whether it is held by pointer.
func methodOperations(t reflect.Type) []string {
	if t.Kind() == reflect.Struct {
		return engine.MethodOperations(t)
	}
	names := make([]string, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		names = append(names, engine.OperationName(t.Method(i).Name))
	}
	slices.Sort(names)
	return names
}

func kindOf(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return t.Kind().String()
}

// bind attaches the current binding to eng.
func (s *Server) bind(eng Engine) error {
	if cb := s.binding.class; cb != nil {
		if err := eng.SetClass(engine.Class{
			Type:      cb.typ,
			New:       cb.ctor,
			Args:      cb.args,
			Namespace: cb.namespace,
		}); err != nil {
			return fmt.Errorf("bind class %s: %w", cb.name, err)
		}
	}
	if s.binding.object.IsValid() {
		if err := eng.SetObject(s.binding.object); err != nil {
			return fmt.Errorf("bind object: %w", err)
		}
	}

	names := s.binding.functions
	if s.binding.all {
		names = s.catalog.FuncNames()
	}
	for _, name := range names {
		fn, ok := s.catalog.Func(name)
		if !ok {
			continue
		}
		if err := eng.AddFunction(name, fn); err != nil {
			return fmt.Errorf("bind function %s: %w", name, err)
		}
	}
	return nil
}
