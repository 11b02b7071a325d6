package envelope

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    Version
		wantErr bool
	}{
		{"1.1", SOAP11, false},
		{"1.2", SOAP12, false},
		{"1", SOAP11, false},
		{"2", SOAP12, false},
		{"bogus", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersion_Text(t *testing.T) {
	var v Version
	require.NoError(t, v.UnmarshalText([]byte("1.1")))
	assert.Equal(t, SOAP11, v)

	out, err := SOAP12.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.2", string(out))

	_, err = Version(9).MarshalText()
	assert.Error(t, err)
}

func TestRenderFault_SOAP11(t *testing.T) {
	out := RenderFault(SOAP11, &Fault{Code: "Receiver", Message: "Test Message"}, "")

	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"))
	assert.Contains(t, out, `<SOAP-ENV:Fault><faultcode>Receiver</faultcode><faultstring>Test Message</faultstring></SOAP-ENV:Fault>`)
	assert.Contains(t, out, `xmlns:SOAP-ENV="`+SOAP11Namespace+`"`)
}

func TestRenderFault_SOAP12(t *testing.T) {
	tests := []struct {
		name        string
		code        string
		wantValue   string
		wantSubcode string
	}{
		{"client becomes sender", "soap:Client", "env:Sender", ""},
		{"server becomes receiver", "Server", "env:Receiver", ""},
		{"must understand", "MustUnderstand", "env:MustUnderstand", ""},
		{"numeric code", "5000", "env:Receiver", "5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderFault(SOAP12, &Fault{Code: tt.code, Message: "boom"}, "")

			doc := etree.NewDocument()
			require.NoError(t, doc.ReadFromString(out))
			value := doc.FindElement("//Fault/Code/Value")
			require.NotNil(t, value)
			assert.Equal(t, tt.wantValue, value.Text())

			sub := doc.FindElement("//Fault/Code/Subcode/Value")
			if tt.wantSubcode == "" {
				assert.Nil(t, sub)
			} else {
				require.NotNil(t, sub)
				assert.Equal(t, tt.wantSubcode, sub.Text())
			}
			assert.Equal(t, "boom", doc.FindElement("//Fault/Reason/Text").Text())
		})
	}
}

func TestRenderFault_EscapesMessage(t *testing.T) {
	out := RenderFault(SOAP11, &Fault{Code: "Sender", Message: "a < b & c"}, "")
	assert.Contains(t, out, "a &lt; b &amp; c")
}

func TestSerialize_Charset(t *testing.T) {
	doc, body := NewDocument(SOAP11, "urn:test", true)
	body.CreateElement("ns1:greet").SetText("café")

	out, err := Serialize(doc, "ISO-8859-1")
	require.NoError(t, err)
	assert.Contains(t, out, `encoding="ISO-8859-1"`)
	// é is a single byte in Latin-1.
	assert.Contains(t, out, "caf\xe9")

	_, err = Serialize(doc, "x-no-such-charset")
	assert.Error(t, err)
}

func TestNewDocument_Encoded(t *testing.T) {
	doc, _ := NewDocument(SOAP11, "urn:test", true)
	out, err := Serialize(doc, "")
	require.NoError(t, err)

	assert.Contains(t, out, `xmlns:ns1="urn:test"`)
	assert.Contains(t, out, `xmlns:SOAP-ENC="`+SOAP11EncodingNamespace+`"`)
	assert.Contains(t, out, `SOAP-ENV:encodingStyle="`+SOAP11EncodingNamespace+`"`)
	assert.True(t, strings.HasSuffix(out, "</SOAP-ENV:Envelope>\n"))
}

func TestDetectVersion(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(`<e:Envelope xmlns:e="`+SOAP12Namespace+`"><e:Body/></e:Envelope>`))
	v, ok := DetectVersion(doc.Root())
	assert.True(t, ok)
	assert.Equal(t, SOAP12, v)

	other := etree.NewDocument()
	require.NoError(t, other.ReadFromString(`<Envelope xmlns="urn:other"/>`))
	_, ok = DetectVersion(other.Root())
	assert.False(t, ok)

	assert.Equal(t, SOAP12, SniffVersion([]byte(SOAP12Namespace)))
	assert.Equal(t, SOAP11, SniffVersion([]byte("<x/>")))
}
