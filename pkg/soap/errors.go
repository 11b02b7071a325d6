package soap

// Error is a simple error type for server errors.
// It allows defining sentinel errors as constants.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

// Sentinel errors. Concrete errors returned by the server match them with
// errors.Is.
const (
	// ErrInvalidArgument is matched by every configuration error.
	ErrInvalidArgument = Error("invalid argument")

	// ErrInvalidXML is matched by every request rejected by the gate.
	ErrInvalidXML = Error("Invalid XML")

	// ErrUnimplemented is returned by operations that are declared but not supported.
	ErrUnimplemented = Error("Unimplemented method")
)

// InvalidArgumentError reports a rejected option or registration value.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string { return e.Message }

// Is reports whether target is ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

func invalidArgument(msg string) error {
	return &InvalidArgumentError{Message: msg}
}

// XMLError reports a request that was refused before reaching the engine.
type XMLError struct {
	Reason string
	Err    error
}

func (e *XMLError) Error() string {
	if e.Reason == "" {
		return string(ErrInvalidXML)
	}
	return string(ErrInvalidXML) + ": " + e.Reason
}

// Is reports whether target is ErrInvalidXML.
func (e *XMLError) Is(target error) bool { return target == ErrInvalidXML }

func (e *XMLError) Unwrap() error { return e.Err }
