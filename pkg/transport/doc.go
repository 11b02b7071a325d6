// Package transport serves soap.Server over HTTP.
//
// Handler accepts POSTed envelopes and builds one soap.Server per request
// through a ServerFactory. Responses use the content type of the envelope
// version and the following status codes:
//
//	200  response envelope
//	500  fault envelope
//	400  request rejected before dispatch (malformed XML, DOCTYPE)
//	405  any method but POST, or GET without ?wsdl
//	413  body larger than the configured limit
//
// GET with a wsdl query key serves the configured WSDL file.
//
// The middleware in this package assigns request IDs, writes access logs,
// recovers panics and verifies JWT bearer tokens. Rate limiting lives in
// package ratelimit.
package transport
