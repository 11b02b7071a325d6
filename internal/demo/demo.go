// Package demo holds the sample services soapd exposes out of the box.
package demo

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/getmockd/soapd/pkg/soap"
)

// Catalog names.
const (
	GreeterClass  = "Greeter"
	GreetingType  = "demo.Greeting"
	FuncReverse   = "strrev"
	FuncUpper     = "strtoupper"
	FuncAdd       = "add"
	DefaultPrefix = "Hello"
)

// MaxNameLength bounds the names Greeter accepts.
const MaxNameLength = 64

// ValidationError reports a bad argument to a demo service. Its message is
// safe to show to callers.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// FaultExceptions lists the error types of this package whose messages are
// returned in faults.
func FaultExceptions() []string {
	return []string{soap.TypeNameOf[*ValidationError]()}
}

// Greeting is the structured result of Greeter.Greet.
type Greeting struct {
	Name  string
	Text  string
	Count int
}

// Greeter greets callers and counts the calls made on one instance.
type Greeter struct {
	prefix string
	calls  int
}

// NewGreeter creates a Greeter. An empty prefix uses DefaultPrefix.
func NewGreeter(prefix string) *Greeter {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Greeter{prefix: prefix}
}

// Hello returns "<prefix> <name>!".
func (g *Greeter) Hello(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	g.calls++
	return g.prefix + " " + name + "!", nil
}

// Greet returns the greeting as a struct.
func (g *Greeter) Greet(name string) (*Greeting, error) {
	text, err := g.Hello(name)
	if err != nil {
		return nil, err
	}
	return &Greeting{Name: name, Text: text, Count: g.calls}, nil
}

// Calls returns how many greetings this instance has produced.
func (g *Greeter) Calls() int { return g.calls }

func checkName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	case utf8.RuneCountInString(name) > MaxNameLength:
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("longer than %d characters", MaxNameLength)}
	}
	return nil
}

// Reverse reverses s by rune.
func Reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// Add returns a+b.
func Add(a, b int) int { return a + b }

// Register adds the demo functions and types to c.
func Register(c *soap.Catalog) error {
	steps := []func() error{
		func() error { return c.RegisterConstructor(GreeterClass, NewGreeter) },
		func() error { return c.RegisterType(GreetingType, Greeting{}) },
		func() error { return c.RegisterFunc(FuncReverse, Reverse) },
		func() error { return c.RegisterFunc(FuncUpper, strings.ToUpper) },
		func() error { return c.RegisterFunc(FuncAdd, Add) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("register demo services: %w", err)
		}
	}
	return nil
}

// NewCatalog returns a catalog holding only the demo services.
func NewCatalog() *soap.Catalog {
	c := soap.NewCatalog()
	if err := Register(c); err != nil {
		panic(err)
	}
	return c
}
