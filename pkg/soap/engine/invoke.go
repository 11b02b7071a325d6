package engine

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"unicode"
	"unicode/utf8"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// operation is a resolved dispatch target.
type operation struct {
	name   string
	method bool
	goName string
	fn     reflect.Value
}

// OperationName maps a Go method name to its wire operation name.
func OperationName(method string) string {
	r, size := utf8.DecodeRuneInString(method)
	if r == utf8.RuneError {
		return method
	}
	return string(unicode.ToLower(r)) + method[size:]
}

// MethodOperations lists the operation names exposed by the pointer method
// set of t, sorted.
func MethodOperations(t reflect.Type) []string {
	t = indirectType(t)
	if t == nil {
		return nil
	}
	pt := reflect.PointerTo(t)
	names := make([]string, 0, pt.NumMethod())
	for i := 0; i < pt.NumMethod(); i++ {
		names = append(names, OperationName(pt.Method(i).Name))
	}
	sort.Strings(names)
	return names
}

// lookup resolves an operation. A bound class wins over a bound object, which
// wins over free functions.
func (e *Engine) lookup(name string) (operation, bool) {
	var t reflect.Type
	switch {
	case e.class != nil:
		t = reflect.PointerTo(e.class.Type)
	case e.object.IsValid():
		t = e.object.Type()
	}
	if t != nil {
		for i := 0; i < t.NumMethod(); i++ {
			m := t.Method(i)
			if m.Name == name || OperationName(m.Name) == name {
				return operation{name: OperationName(m.Name), method: true, goName: m.Name}, true
			}
		}
		return operation{}, false
	}

	fn, ok := e.functions[name]
	if !ok {
		return operation{}, false
	}
	return operation{name: name, fn: fn}, true
}

// bind returns the callable for op, creating a class instance if needed.
func (e *Engine) bind(op operation) (reflect.Value, error) {
	if !op.method {
		return op.fn, nil
	}
	recv, err := e.receiver()
	if err != nil {
		return reflect.Value{}, err
	}
	m := recv.MethodByName(op.goName)
	if !m.IsValid() {
		return reflect.Value{}, fmt.Errorf("method %s not found on %s", op.goName, recv.Type())
	}
	return m, nil
}

func (e *Engine) receiver() (reflect.Value, error) {
	if e.class == nil {
		return e.object, nil
	}
	if e.cfg.Persistence == PersistenceSession && e.session.IsValid() {
		return e.session, nil
	}
	inst, err := e.instantiate()
	if err != nil {
		return reflect.Value{}, err
	}
	if e.cfg.Persistence == PersistenceSession {
		e.session = inst
	}
	return inst, nil
}

// instantiate returns a pointer to a new class instance.
func (e *Engine) instantiate() (reflect.Value, error) {
	c := e.class
	if !c.New.IsValid() {
		return reflect.New(c.Type), nil
	}

	ct := c.New.Type()
	args := make([]reflect.Value, 0, len(c.Args))
	for i, a := range c.Args {
		var want reflect.Type
		switch {
		case ct.IsVariadic() && i >= ct.NumIn()-1:
			want = ct.In(ct.NumIn() - 1).Elem()
		case i < ct.NumIn():
			want = ct.In(i)
		default:
			return reflect.Value{}, fmt.Errorf("constructor of %s takes %d arguments, got %d", c.Type, ct.NumIn(), len(c.Args))
		}
		v, err := convertArg(a, want)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("constructor argument %d of %s: %w", i, c.Type, err)
		}
		args = append(args, v)
	}

	out, err := invoke("new "+c.Type.Name(), c.New, args)
	if err != nil {
		return reflect.Value{}, err
	}
	if len(out) != 1 {
		return reflect.Value{}, fmt.Errorf("constructor of %s must return one instance", c.Type)
	}
	inst := out[0]
	switch {
	case inst.Kind() == reflect.Pointer && inst.Type().Elem() == c.Type:
		if inst.IsNil() {
			return reflect.Value{}, fmt.Errorf("constructor of %s returned nil", c.Type)
		}
		return inst, nil
	case inst.Type() == c.Type:
		p := reflect.New(c.Type)
		p.Elem().Set(inst)
		return p, nil
	}
	return reflect.Value{}, fmt.Errorf("constructor of %s returned %s", c.Type, inst.Type())
}

func convertArg(a any, want reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch want.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not assignable to %s", want)
	}
	v := reflect.ValueOf(a)
	switch {
	case v.Type().AssignableTo(want):
		return v, nil
	case v.Type().ConvertibleTo(want):
		return v.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", v.Type(), want)
}

// invoke calls fn and splits off a trailing error result. A panic is
// reported as a *PanicError.
func invoke(name string, fn reflect.Value, args []reflect.Value) (results []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			if perr, ok := r.(error); ok {
				err = errors.Join(&PanicError{Operation: name, Value: r}, perr)
				return
			}
			err = &PanicError{Operation: name, Value: r}
		}
	}()

	out := fn.Call(args)
	ft := fn.Type()
	if n := ft.NumOut(); n > 0 && ft.Out(n-1) == errorType {
		last := out[n-1]
		out = out[:n-1]
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
	}
	return out, nil
}
