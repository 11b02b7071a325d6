package soap

import (
	"errors"
	"reflect"
	"slices"
	"strconv"

	"github.com/getmockd/soapd/pkg/soap/envelope"
)

// FaultCause is what a fault is raised from: a TextCause, an ErrorCause or a
// ValueCause.
type FaultCause interface {
	faultCause()
}

// TextCause raises a fault with the given message.
type TextCause string

// ErrorCause raises a fault from an error. Only errors of registered types
// expose their message to the client.
type ErrorCause struct {
	Err error
}

// ValueCause raises a fault from any other value. Its content is never exposed.
type ValueCause struct {
	Value any
}

func (TextCause) faultCause()  {}
func (ErrorCause) faultCause() {}
func (ValueCause) faultCause() {}

// CauseOf wraps v in the matching FaultCause.
func CauseOf(v any) FaultCause {
	switch c := v.(type) {
	case FaultCause:
		return c
	case string:
		return TextCause(c)
	case error:
		return ErrorCause{Err: c}
	}
	return ValueCause{Value: v}
}

// NumericCode renders an application-defined numeric fault code.
func NumericCode(n int) FaultCode {
	return FaultCode(strconv.Itoa(n))
}

const unknownError = "Unknown error"

// FaultRegistry holds the error types whose messages may be shown to clients.
type FaultRegistry struct {
	exceptions []string
}

// RegisterFaultException marks error types, identified as returned by
// ErrorTypeName or TypeNameOf, as safe to expose.
func (r *FaultRegistry) RegisterFaultException(ids ...string) {
	for _, id := range ids {
		if id != "" && !slices.Contains(r.exceptions, id) {
			r.exceptions = append(r.exceptions, id)
		}
	}
}

// DeregisterFaultException removes id and reports whether it was registered.
func (r *FaultRegistry) DeregisterFaultException(id string) bool {
	i := slices.Index(r.exceptions, id)
	if i < 0 {
		return false
	}
	r.exceptions = slices.Delete(r.exceptions, i, i+1)
	return true
}

// IsRegisteredAsFaultException reports whether id is registered.
func (r *FaultRegistry) IsRegisteredAsFaultException(id string) bool {
	return slices.Contains(r.exceptions, id)
}

// FaultExceptions returns the registered identifiers in registration order.
func (r *FaultRegistry) FaultExceptions() []string {
	return slices.Clone(r.exceptions)
}

// Fault builds the client-visible fault for cause. An empty code means
// Receiver. A *Fault found in an error chain is returned as is.
func (r *FaultRegistry) Fault(cause FaultCause, code FaultCode) *Fault {
	if code == "" {
		code = CodeReceiver
	}

	msg := unknownError
	switch c := cause.(type) {
	case TextCause:
		msg = string(c)
	case ErrorCause:
		var f *envelope.Fault
		if errors.As(c.Err, &f) && f != nil {
			return f
		}
		if link := r.exposed(c.Err); link != nil {
			msg = link.Error()
		}
	}
	return &Fault{Code: string(code), Message: msg}
}

// exposed returns the first error in the chain of err whose type is registered.
func (r *FaultRegistry) exposed(err error) error {
	if err == nil || len(r.exceptions) == 0 {
		return nil
	}
	queue := []error{err}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if e == nil {
			continue
		}
		if r.IsRegisteredAsFaultException(ErrorTypeName(e)) {
			return e
		}
		switch u := e.(type) {
		case interface{ Unwrap() error }:
			queue = append(queue, u.Unwrap())
		case interface{ Unwrap() []error }:
			queue = append(queue, u.Unwrap()...)
		}
	}
	return nil
}

// ErrorTypeName identifies the dynamic type of err as "<pkgpath>.<Name>",
// without pointer indirection.
func ErrorTypeName(err error) string {
	if err == nil {
		return ""
	}
	return typeName(reflect.TypeOf(err))
}

// TypeNameOf returns the identifier ErrorTypeName reports for errors of type E.
func TypeNameOf[E error]() string {
	return typeName(reflect.TypeFor[E]())
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
