// Package metrics exposes Prometheus collectors for soapd.
//
// # Collectors
//
//   - soapd_requests_total: handled SOAP requests (labels: outcome)
//   - soapd_faults_total: fault envelopes returned (labels: code)
//   - soapd_request_duration_seconds: Handle latency (labels: outcome)
//   - soapd_http_responses_total: HTTP responses (labels: status)
//   - soapd_requests_in_flight: requests currently being handled
//
// The outcome label takes the soap.Outcome values ok, fault, rejected
// and error. The code label carries the fault code as written on the
// wire (Sender, Receiver, VersionMismatch, and so on).
//
// # Usage
//
//	reg := metrics.NewRegistry()
//	m := metrics.New(reg)
//	server := soap.NewServer(soap.WithObserver(m))
//	http.Handle("/metrics", metrics.Handler(reg))
package metrics
