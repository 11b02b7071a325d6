// Package soap provides a SOAP server façade that binds a Go service to a SOAP
// execution engine.
//
// A Server holds protocol options, a service binding and a set of error types
// whose messages may be shown to clients. Every request first passes a gate
// that refuses malformed XML and any document type declaration, then is
// dispatched by the engine to a registered function or to a method of the
// bound type.
//
// # Registering services
//
// Go has no runtime symbol table, so functions and types are looked up by
// name in a Catalog:
//
//	catalog := soap.NewCatalog()
//	_ = catalog.RegisterFunc("strrev", reverse)
//	_ = catalog.RegisterType("Calculator", Calculator{})
//
//	srv := soap.NewServer(soap.WithCatalog(catalog))
//	_ = srv.SetURI("urn:calculator")
//	_ = srv.SetClass("Calculator", "")
//
// A live value can be bound with SetObject instead. Exported methods become
// operations named after the method with a lower-case first letter.
//
// # Handling requests
//
//	srv.SetReturnResponse(true)
//	resp, err := srv.Handle(requestXML)
//
// In emit mode (the default) the response is written to the output set with
// WithOutput and Handle returns "".
//
// # Faults
//
// Errors returned by a service are converted into Receiver faults. Their
// message is hidden behind "Unknown error" unless the error type, or the type
// of an error it wraps, is registered:
//
//	srv.RegisterFaultException(soap.TypeNameOf[*ValidationError]())
//
// A service may also return a *Fault to choose the code and message itself.
//
// # SOAP Versions
//
// The engine answers in the version of the request envelope:
//   - SOAP 1.1: http://schemas.xmlsoap.org/soap/envelope/
//   - SOAP 1.2: http://www.w3.org/2003/05/soap-envelope
//
// The configured version (SOAP 1.2 unless set) is used for faults raised
// before the request version is known.
package soap
