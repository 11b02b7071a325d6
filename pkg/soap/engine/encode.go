package engine

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/getmockd/soapd/pkg/soap/envelope"
)

// encodeValue appends v to parent as an element named name, typed with
// xsi:type the way RPC/encoded responses are.
func (e *Engine) encodeValue(parent *etree.Element, name string, v reflect.Value, version envelope.Version) {
	el := parent.CreateElement(name)
	_, enc := version.Prefixes()

	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			v = reflect.Value{}
			break
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		el.CreateAttr("xsi:nil", "true")
		return
	}

	switch v.Type() {
	case timeType:
		el.CreateAttr("xsi:type", "xsd:dateTime")
		el.SetText(v.Interface().(time.Time).Format(time.RFC3339Nano))
		return
	case bytesType:
		el.CreateAttr("xsi:type", "xsd:base64Binary")
		el.SetText(base64.StdEncoding.EncodeToString(v.Bytes()))
		return
	}

	switch v.Kind() {
	case reflect.String:
		el.CreateAttr("xsi:type", "xsd:string")
		el.SetText(v.String())
	case reflect.Bool:
		el.CreateAttr("xsi:type", "xsd:boolean")
		el.SetText(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		el.CreateAttr("xsi:type", xsdType(v.Type(), enc))
		el.SetText(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		el.CreateAttr("xsi:type", xsdType(v.Type(), enc))
		el.SetText(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		el.CreateAttr("xsi:type", "xsd:float")
		el.SetText(strconv.FormatFloat(v.Float(), 'g', -1, v.Type().Bits()))
	case reflect.Slice, reflect.Array:
		itemType := xsdType(v.Type().Elem(), enc)
		el.CreateAttr("xsi:type", enc+":Array")
		if version == envelope.SOAP12 {
			el.CreateAttr(enc+":itemType", itemType)
			el.CreateAttr(enc+":arraySize", strconv.Itoa(v.Len()))
		} else {
			el.CreateAttr(enc+":arrayType", fmt.Sprintf("%s[%d]", itemType, v.Len()))
		}
		for i := 0; i < v.Len(); i++ {
			e.encodeValue(el, "item", v.Index(i), version)
		}
	case reflect.Struct:
		if mapped, ok := e.typeNames[v.Type()]; ok {
			el.CreateAttr("xsi:type", "ns1:"+mapped)
		} else {
			el.CreateAttr("xsi:type", enc+":Struct")
		}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			fname, ok := fieldName(t.Field(i))
			if !ok {
				continue
			}
			e.encodeValue(el, fname, v.Field(i), version)
		}
	case reflect.Map:
		el.CreateAttr("xsi:type", enc+":Struct")
		keys := v.MapKeys()
		names := make([]string, len(keys))
		byName := make(map[string]reflect.Value, len(keys))
		for i, k := range keys {
			names[i] = fmt.Sprint(k.Interface())
			byName[names[i]] = v.MapIndex(k)
		}
		sort.Strings(names)
		for _, n := range names {
			e.encodeValue(el, n, byName[n], version)
		}
	default:
		el.CreateAttr("xsi:type", "xsd:string")
		el.SetText(fmt.Sprint(v.Interface()))
	}
}

// xsdType returns the schema type used to describe values of static type t.
// enc is the SOAP encoding prefix of the response.
func xsdType(t reflect.Type, enc string) string {
	switch t {
	case timeType:
		return "xsd:dateTime"
	case bytesType:
		return "xsd:base64Binary"
	}
	switch t.Kind() {
	case reflect.String:
		return "xsd:string"
	case reflect.Bool:
		return "xsd:boolean"
	case reflect.Int64, reflect.Uint64:
		return "xsd:long"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return "xsd:int"
	case reflect.Float32, reflect.Float64:
		return "xsd:float"
	case reflect.Slice, reflect.Array:
		return enc + ":Array"
	case reflect.Struct, reflect.Map:
		return enc + ":Struct"
	case reflect.Pointer:
		return xsdType(t.Elem(), enc)
	}
	return "xsd:anyType"
}
