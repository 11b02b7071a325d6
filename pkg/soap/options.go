package soap

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/getmockd/soapd/pkg/logging"
	"github.com/getmockd/soapd/pkg/soap/envelope"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// Bulk option keys.
const (
	OptSOAPVersion = "soap_version"
	OptActor       = "actor"
	OptClassmap    = "classmap"
	OptEncoding    = "encoding"
	OptURI         = "uri"
	OptWSDL        = "wsdl"
	OptFeatures    = "features"
	OptCacheWSDL   = "cache_wsdl"
)

var optionAliases = map[string]string{
	"soapversion": OptSOAPVersion,
	"class_map":   OptClassmap,
}

// ConfigSource is anything that can present its settings as a map, such as a
// *viper.Viper sub-tree.
type ConfigSource interface {
	AllSettings() map[string]any
}

// OptionSet holds the protocol options of a server.
type OptionSet struct {
	version     Version
	actor       string
	uri         string
	encoding    string
	wsdl        string
	classmap    map[string]string
	classTypes  map[string]reflect.Type
	features    Feature
	cache       CacheMode
	persistence Persistence

	set map[string]bool
	gen uint64

	catalog *Catalog
	logger  *slog.Logger
}

func newOptionSet(catalog *Catalog, logger *slog.Logger) OptionSet {
	return OptionSet{
		version: SOAP12,
		set:     map[string]bool{OptSOAPVersion: true},
		catalog: catalog,
		logger:  logger,
	}
}

func (o *OptionSet) mark(key string) {
	if o.set == nil {
		o.set = make(map[string]bool)
	}
	o.set[key] = true
	o.gen++
}

// SetSOAPVersion sets the version used for server-generated envelopes.
func (o *OptionSet) SetSOAPVersion(v Version) error {
	if err := ValidateSOAPVersion(v); err != nil {
		return err
	}
	o.version = v
	o.mark(OptSOAPVersion)
	return nil
}

// SOAPVersion returns the configured version. It defaults to SOAP12.
func (o *OptionSet) SOAPVersion() Version {
	if !o.version.Valid() {
		return SOAP12
	}
	return o.version
}

// SetActor sets the actor URN this server plays.
func (o *OptionSet) SetActor(urn string) error {
	if err := ValidateURN(urn); err != nil {
		return err
	}
	o.actor = urn
	o.mark(OptActor)
	return nil
}

// Actor returns the configured actor URN.
func (o *OptionSet) Actor() string { return o.actor }

// SetURI sets the service namespace URN.
func (o *OptionSet) SetURI(urn string) error {
	if err := ValidateURN(urn); err != nil {
		return err
	}
	o.uri = urn
	o.mark(OptURI)
	return nil
}

// URI returns the service namespace.
func (o *OptionSet) URI() string { return o.uri }

// SetEncoding sets the response charset.
func (o *OptionSet) SetEncoding(v any) error {
	if err := ValidateEncoding(v); err != nil {
		return err
	}
	o.encoding = v.(string)
	o.mark(OptEncoding)
	return nil
}

// Encoding returns the response charset.
func (o *OptionSet) Encoding() string { return o.encoding }

// SetWSDL sets the WSDL file path or URL. The document is not read until the
// engine is built.
func (o *OptionSet) SetWSDL(src string) error {
	o.wsdl = src
	o.mark(OptWSDL)
	return nil
}

// WSDL returns the configured WSDL source.
func (o *OptionSet) WSDL() string { return o.wsdl }

// SetClassmap maps wire type names to Go types. Values are catalog type
// names, reflect.Types or prototype values.
func (o *OptionSet) SetClassmap(v any) error {
	var entries map[string]any
	switch m := v.(type) {
	case map[string]string:
		entries = make(map[string]any, len(m))
		for k, name := range m {
			entries[k] = name
		}
	case map[string]reflect.Type:
		entries = make(map[string]any, len(m))
		for k, t := range m {
			entries[k] = t
		}
	case map[string]any:
		entries = m
	default:
		return invalidArgument("Classmap must be an array")
	}

	names := make(map[string]string, len(entries))
	types := make(map[string]reflect.Type, len(entries))
	for wire, entry := range entries {
		t, name := o.resolveClass(entry)
		if t == nil {
			return invalidArgument("Invalid class in class map")
		}
		names[wire] = name
		types[wire] = t
	}

	o.classmap = names
	o.classTypes = types
	o.mark(OptClassmap)
	return nil
}

func (o *OptionSet) resolveClass(entry any) (reflect.Type, string) {
	switch e := entry.(type) {
	case string:
		catalog := o.catalog
		if catalog == nil {
			catalog = DefaultCatalog
		}
		if t, ok := catalog.Type(e); ok {
			return t, e
		}
		return nil, ""
	case reflect.Type:
		t := structType(e)
		if t == nil {
			return nil, ""
		}
		return t, t.String()
	case nil:
		return nil, ""
	}
	t := structType(reflect.TypeOf(entry))
	if t == nil {
		return nil, ""
	}
	return t, t.String()
}

// Classmap returns the wire type name to Go type name mapping.
func (o *OptionSet) Classmap() map[string]string { return maps.Clone(o.classmap) }

// SetFeatures sets the engine feature bitmask.
func (o *OptionSet) SetFeatures(f Feature) {
	o.features = f
	o.mark(OptFeatures)
}

// Features returns the feature bitmask and whether it was set.
func (o *OptionSet) Features() (Feature, bool) { return o.features, o.set[OptFeatures] }

// SetWSDLCache sets the WSDL cache mode.
func (o *OptionSet) SetWSDLCache(c CacheMode) {
	o.cache = c
	o.mark(OptCacheWSDL)
}

// WSDLCache returns the WSDL cache mode and whether it was set.
func (o *OptionSet) WSDLCache() (CacheMode, bool) { return o.cache, o.set[OptCacheWSDL] }

// SetPersistence sets how long bound class instances live.
func (o *OptionSet) SetPersistence(p Persistence) error {
	if err := ValidatePersistence(p); err != nil {
		return err
	}
	o.persistence = p
	o.mark("persistence")
	return nil
}

// Persistence returns the persistence mode and whether it was set.
func (o *OptionSet) Persistence() (Persistence, bool) { return o.persistence, o.set["persistence"] }

// bulkOptions receives the recognised keys of a bulk option bag.
type bulkOptions struct {
	SOAPVersion any `mapstructure:"soap_version"`
	Actor       any `mapstructure:"actor"`
	Classmap    any `mapstructure:"classmap"`
	Encoding    any `mapstructure:"encoding"`
	URI         any `mapstructure:"uri"`
	WSDL        any `mapstructure:"wsdl"`
	Features    any `mapstructure:"features"`
	CacheWSDL   any `mapstructure:"cache_wsdl"`
}

// SetOptions applies a bag of options given as map[string]any,
// map[string]string or a ConfigSource. Keys are case-insensitive. Unknown
// keys are ignored. Options are applied in a fixed order and the first
// invalid value stops the update.
func (o *OptionSet) SetOptions(src any) error {
	raw, err := optionMap(src)
	if err != nil {
		return err
	}

	normalized := make(map[string]any, len(raw))
	for k, v := range raw {
		key := strings.ToLower(k)
		if alias, ok := optionAliases[key]; ok {
			key = alias
		}
		normalized[key] = v
	}

	var bulk bulkOptions
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   &bulk,
		Metadata: &md,
	})
	if err != nil {
		return fmt.Errorf("options decoder: %w", err)
	}
	if err := dec.Decode(normalized); err != nil {
		return invalidArgument(fmt.Sprintf("Invalid options: %v", err))
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		o.log().Debug("ignoring unknown soap options", "keys", md.Unused)
	}

	present := make(map[string]bool, len(md.Keys))
	for _, k := range md.Keys {
		present[k] = true
	}

	steps := []struct {
		key   string
		value any
		apply func(any) error
	}{
		{OptSOAPVersion, bulk.SOAPVersion, o.applyVersion},
		{OptActor, bulk.Actor, stringOption("Invalid URN", o.SetActor)},
		{OptURI, bulk.URI, stringOption("Invalid URN", o.SetURI)},
		{OptEncoding, bulk.Encoding, o.SetEncoding},
		{OptClassmap, bulk.Classmap, o.SetClassmap},
		{OptWSDL, bulk.WSDL, stringOption("Invalid WSDL specified", o.SetWSDL)},
		{OptFeatures, bulk.Features, intOption(OptFeatures, func(n int) { o.SetFeatures(Feature(n)) })},
		{OptCacheWSDL, bulk.CacheWSDL, intOption(OptCacheWSDL, func(n int) { o.SetWSDLCache(CacheMode(n)) })},
	}
	for _, step := range steps {
		if !present[step.key] {
			continue
		}
		if err := step.apply(step.value); err != nil {
			return err
		}
	}
	return nil
}

func (o *OptionSet) applyVersion(v any) error {
	if s, ok := v.(string); ok {
		parsed, err := envelope.ParseVersion(s)
		if err != nil {
			return invalidArgument("Invalid soap version specified")
		}
		return o.SetSOAPVersion(parsed)
	}
	if ver, ok := v.(Version); ok {
		return o.SetSOAPVersion(ver)
	}
	switch f := v.(type) {
	case float32:
		return o.applyVersion(strconv.FormatFloat(float64(f), 'f', -1, 32))
	case float64:
		return o.applyVersion(strconv.FormatFloat(f, 'f', -1, 64))
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return invalidArgument("Invalid soap version specified")
	}
	return o.SetSOAPVersion(Version(n))
}

func stringOption(msg string, set func(string) error) func(any) error {
	return func(v any) error {
		s, ok := v.(string)
		if !ok {
			return invalidArgument(msg)
		}
		return set(s)
	}
}

func intOption(key string, set func(int)) func(any) error {
	return func(v any) error {
		n, err := wholeNumber(v)
		if err != nil {
			return invalidArgument(fmt.Sprintf("Invalid value for %s", key))
		}
		set(n)
		return nil
	}
}

// wholeNumber converts v to an int, refusing fractional floats that
// cast would truncate.
func wholeNumber(v any) (int, error) {
	var f float64
	switch x := v.(type) {
	case float32:
		f = float64(x)
	case float64:
		f = x
	default:
		return cast.ToIntE(v)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a whole number", v)
	}
	return int(f), nil
}

func optionMap(src any) (map[string]any, error) {
	switch m := src.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return m, nil
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, nil
	case ConfigSource:
		return m.AllSettings(), nil
	}
	return nil, invalidArgument(fmt.Sprintf("Invalid options type %T", src))
}

// Options returns every option that has a value, keyed by its bulk name.
func (o *OptionSet) Options() map[string]any {
	out := map[string]any{OptSOAPVersion: o.SOAPVersion()}
	if o.set[OptActor] {
		out[OptActor] = o.actor
	}
	if o.set[OptURI] {
		out[OptURI] = o.uri
	}
	if o.set[OptEncoding] {
		out[OptEncoding] = o.encoding
	}
	if o.set[OptWSDL] && o.wsdl != "" {
		out[OptWSDL] = o.wsdl
	}
	if o.set[OptClassmap] {
		out[OptClassmap] = maps.Clone(o.classmap)
	}
	if o.set[OptFeatures] {
		out[OptFeatures] = o.features
	}
	if o.set[OptCacheWSDL] {
		out[OptCacheWSDL] = o.cache
	}
	return out
}

func (o *OptionSet) log() *slog.Logger {
	if o.logger == nil {
		return logging.Nop()
	}
	return o.logger
}
