// Package envelope holds the SOAP wire vocabulary shared by the soap server
// and its engines: protocol versions, namespace URIs, content types, the
// Fault value and etree-based envelope rendering.
//
// Fault codes are translated between SOAP versions when rendered:
//   - Client -> env:Sender (SOAP 1.2)
//   - Server -> env:Receiver (SOAP 1.2)
//
// SOAP 1.1 fault codes are written verbatim.
package envelope
