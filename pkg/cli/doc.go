// Package cli provides the soapd command-line interface.
//
// Commands:
//   - serve: run the HTTP server
//   - call: handle one request envelope from a file or stdin
//   - options: print the effective SOAP options as YAML
//   - validate: check the configuration and build the engine
//   - version: print build information
//
// Every command that touches the service loads the configuration through
// package config and binds services from the demo catalog.
package cli
