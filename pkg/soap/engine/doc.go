// Package engine is the default SOAP execution engine used by soap.Server.
//
// It reads RPC/encoded request envelopes in either SOAP version, dispatches
// the first Body element to a registered Go function or to a method of the
// bound type, and encodes the results with xsi:type annotations. Service
// errors are returned to the caller unchanged so the server can decide which
// of them are exposed to clients.
//
// Operation names of methods are the Go method names with the first letter
// lower-cased:
//
//	func (s *Greeter) SayHello(name string) string
//
// is dispatched for a <sayHello> request element.
package engine
