package engine

import (
	"log/slog"
	"net/http"
	"reflect"

	"github.com/getmockd/soapd/pkg/soap/envelope"
)

// Persistence controls whether a bound class instance survives between requests.
type Persistence int

const (
	// PersistenceNone creates a fresh instance for every request.
	PersistenceNone Persistence = iota
	// PersistenceSession keeps one instance for the lifetime of the engine.
	PersistenceSession
	// PersistenceRequest creates a fresh instance for every request.
	PersistenceRequest
)

func (p Persistence) String() string {
	switch p {
	case PersistenceNone:
		return "none"
	case PersistenceSession:
		return "session"
	case PersistenceRequest:
		return "request"
	}
	return "unknown"
}

// Feature is a bitmask of optional engine behaviours.
type Feature int

const (
	// FeatureSingleElementArrays decodes every struct member of an untyped
	// value as a slice, even when it occurs once.
	FeatureSingleElementArrays Feature = 1 << iota
	// FeatureWaitOneWayCalls is accepted for compatibility; responses are always synchronous.
	FeatureWaitOneWayCalls
	// FeatureUseXSIArrayType is accepted for compatibility; arrays always carry their item type.
	FeatureUseXSIArrayType
)

// CacheMode is a bitmask selecting where fetched WSDL documents are cached.
// Bits other than CacheDisk and CacheMemory are ignored.
type CacheMode int

const (
	CacheNone   CacheMode = 0
	CacheDisk   CacheMode = 1
	CacheMemory CacheMode = 2
	CacheBoth   CacheMode = CacheDisk | CacheMemory
)

// Config is the resolved option set an engine is built from.
type Config struct {
	// Version is used for faults raised before the request version is known.
	Version envelope.Version

	// URI is the service namespace. Required unless WSDL is set.
	URI string

	// Actor is the SOAP actor (1.1) or role (1.2) this node plays.
	Actor string

	// Encoding is the response charset. Empty means UTF-8.
	Encoding string

	// WSDL is a file path or http(s) URL, resolved when the engine is built.
	WSDL string

	// Classmap maps wire type names to Go types.
	Classmap map[string]reflect.Type

	Features    Feature
	CacheMode   CacheMode
	CacheDir    string
	Persistence Persistence

	// HTTPClient fetches remote WSDL documents. Defaults to a client with a 30s timeout.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Class describes a bound service type.
type Class struct {
	// Type is the struct type whose pointer method set is exposed.
	Type reflect.Type

	// New optionally constructs instances. It must be a func returning
	// *Type or Type, optionally followed by an error.
	New reflect.Value

	// Args are passed to New. They are ignored when New is not set.
	Args []any

	// Namespace overrides the response namespace when non-empty.
	Namespace string
}
