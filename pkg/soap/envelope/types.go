package envelope

import (
	"fmt"
	"strings"
)

// Version is the SOAP protocol version. The numeric values follow the
// conventional SOAP_1_1 / SOAP_1_2 constants.
type Version int

const (
	// SOAP11 represents SOAP 1.1 protocol.
	SOAP11 Version = 1
	// SOAP12 represents SOAP 1.2 protocol.
	SOAP12 Version = 2
)

// SOAP and schema namespace URIs
const (
	SOAP11Namespace         = "http://schemas.xmlsoap.org/soap/envelope/"
	SOAP12Namespace         = "http://www.w3.org/2003/05/soap-envelope"
	SOAP11EncodingNamespace = "http://schemas.xmlsoap.org/soap/encoding/"
	SOAP12EncodingNamespace = "http://www.w3.org/2003/05/soap-encoding"
	XSDNamespace            = "http://www.w3.org/2001/XMLSchema"
	XSINamespace            = "http://www.w3.org/2001/XMLSchema-instance"

	// NextActor11 and NextRole12 address the next SOAP node in a header block.
	NextActor11 = "http://schemas.xmlsoap.org/soap/actor/next"
	NextRole12  = "http://www.w3.org/2003/05/soap-envelope/role/next"
)

// ContentTypes for SOAP versions
const (
	SOAP11ContentType = "text/xml; charset=utf-8"
	SOAP12ContentType = "application/soap+xml; charset=utf-8"
)

// Valid reports whether v is one of the supported versions.
func (v Version) Valid() bool {
	return v == SOAP11 || v == SOAP12
}

func (v Version) String() string {
	switch v {
	case SOAP11:
		return "1.1"
	case SOAP12:
		return "1.2"
	default:
		return fmt.Sprintf("Version(%d)", int(v))
	}
}

// Namespace returns the envelope namespace URI of v.
func (v Version) Namespace() string {
	if v == SOAP12 {
		return SOAP12Namespace
	}
	return SOAP11Namespace
}

// EncodingNamespace returns the SOAP encoding namespace URI of v.
func (v Version) EncodingNamespace() string {
	if v == SOAP12 {
		return SOAP12EncodingNamespace
	}
	return SOAP11EncodingNamespace
}

// ContentType returns the HTTP content type for messages of v.
func (v Version) ContentType() string {
	if v == SOAP12 {
		return SOAP12ContentType
	}
	return SOAP11ContentType
}

// Prefixes returns the envelope and encoding prefixes used when rendering v.
func (v Version) Prefixes() (env, enc string) {
	if v == SOAP12 {
		return "env", "enc"
	}
	return "SOAP-ENV", "SOAP-ENC"
}

// MarshalText renders the version as "1.1" or "1.2".
func (v Version) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("invalid soap version %d", int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText accepts "1.1", "1.2", "1" and "2".
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVersion parses a textual SOAP version.
func ParseVersion(s string) (Version, error) {
	switch strings.TrimSpace(s) {
	case "1.1", "1", "SOAP_1_1":
		return SOAP11, nil
	case "1.2", "2", "SOAP_1_2":
		return SOAP12, nil
	}
	return 0, fmt.Errorf("unknown soap version %q", s)
}

// Standard fault codes. SOAP 1.1 names (Client, Server) and SOAP 1.2 names
// (Sender, Receiver) are both accepted; rendering translates between them.
const (
	CodeSender              = "Sender"
	CodeReceiver            = "Receiver"
	CodeClient              = "Client"
	CodeServer              = "Server"
	CodeVersionMismatch     = "VersionMismatch"
	CodeMustUnderstand      = "MustUnderstand"
	CodeDataEncodingUnknown = "DataEncodingUnknown"
)

// Fault is a client-visible SOAP fault.
type Fault struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
	Actor   string `json:"actor,omitempty" yaml:"actor,omitempty"`
	Detail  string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Error implements error so services can return a *Fault directly.
func (f *Fault) Error() string {
	return f.Message
}
