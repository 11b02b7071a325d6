package soap

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/encoding/ianaindex"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateURN checks that s is an absolute URI such as
// "http://framework.zend.com/" or "urn:soapHandler/GetOpt".
func ValidateURN(s string) error {
	if err := validate.Var(s, "required,uri"); err != nil {
		return invalidArgument("Invalid URN")
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return invalidArgument("Invalid URN")
	}
	return nil
}

// ValidateEncoding checks that v is the name of a charset known to the IANA
// registry.
func ValidateEncoding(v any) error {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return invalidArgument("Invalid encoding specified")
	}
	enc, err := ianaindex.IANA.Encoding(s)
	if err != nil || enc == nil {
		return invalidArgument("Invalid encoding specified")
	}
	return nil
}

// ValidateSOAPVersion checks that v is SOAP11 or SOAP12.
func ValidateSOAPVersion(v Version) error {
	if !v.Valid() {
		return invalidArgument("Invalid soap version specified")
	}
	return nil
}

// ValidatePersistence checks that p is a known persistence mode.
func ValidatePersistence(p Persistence) error {
	switch p {
	case PersistenceNone, PersistenceSession, PersistenceRequest:
		return nil
	}
	return invalidArgument("Invalid persistence mode specified")
}
