// Package id generates and checks the identifiers soapd attaches to requests.
package id

import (
	"time"

	"github.com/google/uuid"
)

// maxInboundLen bounds caller-supplied request IDs.
const maxInboundLen = 128

// UUID generates a random (version 4) UUID string.
func UUID() string {
	return uuid.NewString()
}

// RequestID generates a time-ordered (version 7) UUID string. It falls back
// to a random UUID if the clock-based generator fails.
func RequestID() string {
	u, err := uuid.NewV7()
	if err != nil {
		return UUID()
	}
	return u.String()
}

// FromHeader returns the caller-supplied request ID when it is usable and a
// fresh RequestID otherwise. Usable means non-empty, at most 128 bytes and
// made of printable ASCII.
func FromHeader(v string) string {
	if v == "" || len(v) > maxInboundLen {
		return RequestID()
	}
	for i := 0; i < len(v); i++ {
		if v[i] < 0x21 || v[i] > 0x7e {
			return RequestID()
		}
	}
	return v
}

// Time returns the timestamp embedded in a version 7 request ID.
func Time(requestID string) (time.Time, bool) {
	u, err := uuid.Parse(requestID)
	if err != nil || u.Version() != 7 {
		return time.Time{}, false
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec), true
}
