package engine

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/getmockd/soapd/pkg/soap/envelope"
)

var (
	timeType  = reflect.TypeOf(time.Time{})
	bytesType = reflect.TypeOf([]byte(nil))
	anyType   = reflect.TypeOf((*any)(nil)).Elem()
)

// decodeArgs decodes the child elements of call positionally into the
// parameters of ft.
func (e *Engine) decodeArgs(op string, ft reflect.Type, call *etree.Element) ([]reflect.Value, *envelope.Fault) {
	params := call.ChildElements()
	n := ft.NumIn()
	fixed := n
	if ft.IsVariadic() {
		fixed--
	}

	args := make([]reflect.Value, 0, max(n, len(params)))
	for i := 0; i < fixed; i++ {
		if i >= len(params) {
			return nil, &envelope.Fault{
				Code:    envelope.CodeReceiver,
				Message: fmt.Sprintf("SOAP-ERROR: Encoding: missing parameter %d of %s", i+1, op),
			}
		}
		v, err := e.decodeValue(params[i], ft.In(i))
		if err != nil {
			return nil, decodeFault(params[i], err)
		}
		args = append(args, v)
	}
	if ft.IsVariadic() {
		elem := ft.In(n - 1).Elem()
		for _, p := range params[min(fixed, len(params)):] {
			v, err := e.decodeValue(p, elem)
			if err != nil {
				return nil, decodeFault(p, err)
			}
			args = append(args, v)
		}
	}
	return args, nil
}

func decodeFault(el *etree.Element, err error) *envelope.Fault {
	return &envelope.Fault{
		Code:    envelope.CodeSender,
		Message: fmt.Sprintf("SOAP-ERROR: Encoding: Violation of encoding rules in %s: %v", el.Tag, err),
	}
}

func (e *Engine) decodeValue(el *etree.Element, t reflect.Type) (reflect.Value, error) {
	if isNil(el) {
		return reflect.Zero(t), nil
	}

	switch t {
	case timeType:
		ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(el.Text()))
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(ts), nil
	case bytesType:
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(el.Text()))
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b), nil
	}

	v := reflect.New(t).Elem()
	text := strings.TrimSpace(el.Text())

	switch t.Kind() {
	case reflect.String:
		v.SetString(el.Text())
	case reflect.Bool:
		b, err := parseBool(text)
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(text, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(text, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(text, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetFloat(f)
	case reflect.Pointer:
		inner, err := e.decodeValue(el, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(inner)
		return p, nil
	case reflect.Slice:
		items := el.ChildElements()
		s := reflect.MakeSlice(t, 0, len(items))
		for _, item := range items {
			iv, err := e.decodeValue(item, t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			s = reflect.Append(s, iv)
		}
		return s, nil
	case reflect.Array:
		items := el.ChildElements()
		if len(items) > t.Len() {
			return reflect.Value{}, fmt.Errorf("array of %d elements got %d items", t.Len(), len(items))
		}
		for i, item := range items {
			iv, err := e.decodeValue(item, t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			v.Index(i).Set(iv)
		}
	case reflect.Struct:
		if err := e.decodeStruct(el, v); err != nil {
			return reflect.Value{}, err
		}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return reflect.Value{}, fmt.Errorf("unsupported map key type %s", t.Key())
		}
		m := reflect.MakeMap(t)
		for _, child := range el.ChildElements() {
			cv, err := e.decodeValue(child, t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			m.SetMapIndex(reflect.ValueOf(child.Tag).Convert(t.Key()), cv)
		}
		return m, nil
	case reflect.Interface:
		if !anyType.Implements(t) && t != anyType {
			return reflect.Value{}, fmt.Errorf("unsupported interface type %s", t)
		}
		a, err := e.decodeAny(el)
		if err != nil {
			return reflect.Value{}, err
		}
		if a == nil {
			return reflect.Zero(t), nil
		}
		av := reflect.ValueOf(a)
		if !av.Type().AssignableTo(t) {
			return reflect.Value{}, fmt.Errorf("%s does not implement %s", av.Type(), t)
		}
		v.Set(av)
	default:
		return reflect.Value{}, fmt.Errorf("unsupported parameter type %s", t)
	}
	return v, nil
}

func (e *Engine) decodeStruct(el *etree.Element, v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, ok := fieldName(f)
		if !ok {
			continue
		}
		child := el.SelectElement(name)
		if child == nil && name != f.Name {
			child = el.SelectElement(f.Name)
		}
		if child == nil {
			continue
		}
		fv, err := e.decodeValue(child, f.Type)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
		v.Field(i).Set(fv)
	}
	return nil
}

// decodeAny picks a Go type for el from its xsi:type and the classmap.
func (e *Engine) decodeAny(el *etree.Element) (any, error) {
	typ := xsiType(el)
	if t, ok := e.cfg.Classmap[typ]; ok {
		v, err := e.decodeValue(el, t)
		if err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}

	text := strings.TrimSpace(el.Text())
	switch typ {
	case "string", "anyURI", "token", "normalizedString", "QName":
		return el.Text(), nil
	case "int", "integer", "short", "byte", "long":
		return strconv.ParseInt(text, 10, 64)
	case "unsignedInt", "unsignedLong", "unsignedShort", "unsignedByte":
		return strconv.ParseUint(text, 10, 64)
	case "float", "double", "decimal":
		return strconv.ParseFloat(text, 64)
	case "boolean":
		return parseBool(text)
	case "base64Binary":
		return base64.StdEncoding.DecodeString(text)
	case "dateTime":
		return time.Parse(time.RFC3339Nano, text)
	case "Array":
		children := el.ChildElements()
		out := make([]any, 0, len(children))
		for _, c := range children {
			cv, err := e.decodeAny(c)
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
		return out, nil
	}

	children := el.ChildElements()
	if len(children) == 0 {
		if isNil(el) {
			return nil, nil
		}
		return el.Text(), nil
	}

	single := e.cfg.Features&FeatureSingleElementArrays != 0
	m := make(map[string]any, len(children))
	lists := make(map[string]bool)
	for _, c := range children {
		cv, err := e.decodeAny(c)
		if err != nil {
			return nil, err
		}
		prev, seen := m[c.Tag]
		switch {
		case lists[c.Tag]:
			m[c.Tag] = append(prev.([]any), cv)
		case seen:
			m[c.Tag] = []any{prev, cv}
			lists[c.Tag] = true
		case single:
			m[c.Tag] = []any{cv}
			lists[c.Tag] = true
		default:
			m[c.Tag] = cv
		}
	}
	return m, nil
}

func xsiType(el *etree.Element) string {
	typ := attrNS(el, envelope.XSINamespace, "type")
	if idx := strings.LastIndex(typ, ":"); idx >= 0 {
		typ = typ[idx+1:]
	}
	return typ
}

func isNil(el *etree.Element) bool {
	v := attrNS(el, envelope.XSINamespace, "nil")
	return v == "true" || v == "1"
}

func parseBool(s string) (bool, error) {
	switch s {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// fieldName returns the wire name of a struct field. Unexported fields and
// fields tagged `soap:"-"` are skipped.
func fieldName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", false
	}
	tag := f.Tag.Get("soap")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return OperationName(f.Name), true
}
