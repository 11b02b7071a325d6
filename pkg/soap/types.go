package soap

import (
	"github.com/getmockd/soapd/pkg/soap/engine"
	"github.com/getmockd/soapd/pkg/soap/envelope"
)

// Version is the SOAP protocol version.
type Version = envelope.Version

const (
	// SOAP11 represents SOAP 1.1 protocol.
	SOAP11 = envelope.SOAP11
	// SOAP12 represents SOAP 1.2 protocol.
	SOAP12 = envelope.SOAP12
)

// Fault is a client-visible SOAP fault.
type Fault = envelope.Fault

// Persistence controls the lifetime of bound class instances.
type Persistence = engine.Persistence

const (
	PersistenceNone    = engine.PersistenceNone
	PersistenceSession = engine.PersistenceSession
	PersistenceRequest = engine.PersistenceRequest
)

// Feature is a bitmask of optional engine behaviours.
type Feature = engine.Feature

const (
	FeatureSingleElementArrays = engine.FeatureSingleElementArrays
	FeatureWaitOneWayCalls     = engine.FeatureWaitOneWayCalls
	FeatureUseXSIArrayType     = engine.FeatureUseXSIArrayType
)

// CacheMode selects where fetched WSDL documents are cached.
type CacheMode = engine.CacheMode

const (
	CacheNone   = engine.CacheNone
	CacheDisk   = engine.CacheDisk
	CacheMemory = engine.CacheMemory
	CacheBoth   = engine.CacheBoth
)

// FaultCode is the code a translated fault carries.
type FaultCode string

// Standard fault codes.
const (
	CodeSender          FaultCode = envelope.CodeSender
	CodeReceiver        FaultCode = envelope.CodeReceiver
	CodeClient          FaultCode = envelope.CodeClient
	CodeServer          FaultCode = envelope.CodeServer
	CodeVersionMismatch FaultCode = envelope.CodeVersionMismatch
	CodeMustUnderstand  FaultCode = envelope.CodeMustUnderstand
)

// FunctionsAll registers every function of the server's catalog. Once added
// it replaces the function list and later additions have no effect.
const FunctionsAll = "*"

// Outcome classifies the result of one Handle call.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeFault    Outcome = "fault"
	OutcomeRejected Outcome = "rejected"
	OutcomeError    Outcome = "error"
)
