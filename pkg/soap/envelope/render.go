package envelope

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/ianaindex"
)

// NewDocument starts an envelope for v and returns the document and its Body
// element. When ns is non-empty it is bound to the "ns1" prefix. When encoded
// is set the schema and encoding namespaces are declared and, for SOAP 1.1,
// the envelope carries the SOAP encoding style.
func NewDocument(v Version, ns string, encoded bool) (*etree.Document, *etree.Element) {
	envPrefix, encPrefix := v.Prefixes()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateCharData("\n")

	root := doc.CreateElement(envPrefix + ":Envelope")
	root.CreateAttr("xmlns:"+envPrefix, v.Namespace())
	if ns != "" {
		root.CreateAttr("xmlns:ns1", ns)
	}
	if encoded {
		root.CreateAttr("xmlns:xsd", XSDNamespace)
		root.CreateAttr("xmlns:xsi", XSINamespace)
		root.CreateAttr("xmlns:"+encPrefix, v.EncodingNamespace())
		if v == SOAP11 {
			root.CreateAttr(envPrefix+":encodingStyle", SOAP11EncodingNamespace)
		}
	}

	return doc, root.CreateElement(envPrefix + ":Body")
}

// FaultDocument renders f as a complete fault envelope for v.
func FaultDocument(v Version, f *Fault) *etree.Document {
	doc, body := NewDocument(v, "", false)
	envPrefix, _ := v.Prefixes()
	fault := body.CreateElement(envPrefix + ":Fault")

	if v == SOAP12 {
		value, subcode := faultCode12(f.Code)
		code := fault.CreateElement(envPrefix + ":Code")
		code.CreateElement(envPrefix + ":Value").SetText(envPrefix + ":" + value)
		if subcode != "" {
			code.CreateElement(envPrefix + ":Subcode").CreateElement(envPrefix + ":Value").SetText(subcode)
		}
		text := fault.CreateElement(envPrefix + ":Reason").CreateElement(envPrefix + ":Text")
		text.CreateAttr("xml:lang", "en")
		text.SetText(f.Message)
		if f.Actor != "" {
			fault.CreateElement(envPrefix + ":Role").SetText(f.Actor)
		}
		if f.Detail != "" {
			fault.CreateElement(envPrefix + ":Detail").SetText(f.Detail)
		}
		return doc
	}

	fault.CreateElement("faultcode").SetText(f.Code)
	fault.CreateElement("faultstring").SetText(f.Message)
	if f.Actor != "" {
		fault.CreateElement("faultactor").SetText(f.Actor)
	}
	if f.Detail != "" {
		fault.CreateElement("detail").SetText(f.Detail)
	}
	return doc
}

// RenderFault renders f for v as text in the given charset.
func RenderFault(v Version, f *Fault, charset string) string {
	out, err := Serialize(FaultDocument(v, f), charset)
	if err != nil {
		// Fault text is always representable in UTF-8.
		out, _ = Serialize(FaultDocument(v, f), "")
	}
	return out
}

// faultCode12 maps a fault code onto a SOAP 1.2 Value. Codes outside the
// SOAP 1.2 set are reported as Receiver with the original code as Subcode.
func faultCode12(code string) (value, subcode string) {
	local := code
	if idx := strings.LastIndex(local, ":"); idx >= 0 {
		local = local[idx+1:]
	}
	switch local {
	case CodeClient, CodeSender:
		return CodeSender, ""
	case CodeServer, CodeReceiver, "":
		return CodeReceiver, ""
	case CodeVersionMismatch, CodeMustUnderstand, CodeDataEncodingUnknown:
		return local, ""
	}
	return CodeReceiver, code
}

// Serialize writes doc as text. A non-empty, non-UTF-8 charset rewrites the
// XML declaration and transcodes the output.
func Serialize(doc *etree.Document, charset string) (string, error) {
	label := "UTF-8"
	if charset != "" && !isUTF8(charset) {
		label = charset
	}
	for _, tok := range doc.Child {
		if pi, ok := tok.(*etree.ProcInst); ok && pi.Target == "xml" {
			pi.Inst = fmt.Sprintf(`version="1.0" encoding="%s"`, label)
			break
		}
	}

	doc.WriteSettings.CanonicalText = true

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("write envelope: %w", err)
	}
	buf.WriteByte('\n')

	if label == "UTF-8" {
		return buf.String(), nil
	}
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil || enc == nil {
		return "", fmt.Errorf("unsupported charset %q", charset)
	}
	out, err := enc.NewEncoder().Bytes(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("encode envelope as %s: %w", label, err)
	}
	return string(out), nil
}

func isUTF8(charset string) bool {
	switch strings.ToLower(strings.ReplaceAll(charset, "_", "-")) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

// DetectVersion reports the version declared by an Envelope root element.
func DetectVersion(root *etree.Element) (Version, bool) {
	if root == nil {
		return 0, false
	}
	switch root.NamespaceURI() {
	case SOAP11Namespace:
		return SOAP11, true
	case SOAP12Namespace:
		return SOAP12, true
	}
	return 0, false
}

// SniffVersion guesses the version of a raw message without parsing it.
func SniffVersion(body []byte) Version {
	if bytes.Contains(body, []byte(SOAP12Namespace)) {
		return SOAP12
	}
	return SOAP11
}
