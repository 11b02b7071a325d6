package envelope

import (
	"strings"

	"github.com/beevik/etree"
)

// ParseFault extracts the fault carried by a response envelope. It reports
// false when text is not a fault envelope.
func ParseFault(text string) (*Fault, bool) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, false
	}
	root := doc.Root()
	version, ok := DetectVersion(root)
	if !ok {
		return nil, false
	}
	body := root.SelectElement("Body")
	if body == nil {
		return nil, false
	}
	fault := body.SelectElement("Fault")
	if fault == nil {
		return nil, false
	}

	f := &Fault{}
	if version == SOAP11 {
		f.Code = localName(childText(fault, "faultcode"))
		f.Message = childText(fault, "faultstring")
		f.Actor = childText(fault, "faultactor")
		f.Detail = childText(fault, "detail")
		return f, true
	}

	if code := fault.SelectElement("Code"); code != nil {
		f.Code = localName(childText(code, "Value"))
		if sub := code.SelectElement("Subcode"); sub != nil {
			f.Code = childText(sub, "Value")
		}
	}
	if reason := fault.SelectElement("Reason"); reason != nil {
		f.Message = childText(reason, "Text")
	}
	f.Actor = childText(fault, "Role")
	f.Detail = childText(fault, "Detail")
	return f, true
}

func childText(el *etree.Element, tag string) string {
	if c := el.SelectElement(tag); c != nil {
		return c.Text()
	}
	return ""
}

func localName(qname string) string {
	qname = strings.TrimSpace(qname)
	if idx := strings.LastIndex(qname, ":"); idx >= 0 {
		return qname[idx+1:]
	}
	return qname
}
