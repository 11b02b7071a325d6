package soap

import (
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// checkRequest refuses requests that are not well-formed XML or that carry a
// document type declaration. Whitespace, comments and processing
// instructions may follow the document element.
func checkRequest(request string) error {
	if strings.TrimSpace(request) == "" {
		return &XMLError{Reason: "Empty request"}
	}

	doc := newRequestDocument(false)
	if err := doc.ReadFromString(request); err != nil {
		// Entity references declared by a DOCTYPE fail strict parsing, so
		// look for the declaration before reporting the syntax error.
		lenient := newRequestDocument(true)
		if lenient.ReadFromString(request) == nil && hasDoctype(lenient) {
			return &XMLError{Reason: "Detected use of illegal DOCTYPE"}
		}
		return &XMLError{Reason: err.Error(), Err: err}
	}
	if hasDoctype(doc) {
		return &XMLError{Reason: "Detected use of illegal DOCTYPE"}
	}
	return checkProlog(doc)
}

func newRequestDocument(permissive bool) *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	doc.ReadSettings.Permissive = permissive
	return doc
}

// checkProlog requires exactly one document element and no text outside it.
func checkProlog(doc *etree.Document) error {
	roots := 0
	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.Element:
			roots++
		case *etree.CharData:
			if !t.IsWhitespace() {
				return &XMLError{Reason: "Text outside the document element"}
			}
		}
	}
	switch {
	case roots == 0:
		return &XMLError{Reason: "Missing root element"}
	case roots > 1:
		return &XMLError{Reason: "Extra content after document element"}
	}
	return nil
}

func hasDoctype(doc *etree.Document) bool {
	for _, tok := range doc.Child {
		if d, ok := tok.(*etree.Directive); ok {
			if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(d.Data)), "DOCTYPE") {
				return true
			}
		}
	}
	return false
}
