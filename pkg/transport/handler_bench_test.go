package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func benchServer(b *testing.B) *httptest.Server {
	b.Helper()
	ts := httptest.NewServer(NewHandler(echoFactory("urn:echo")))
	b.Cleanup(ts.Close)
	return ts
}

func benchPost(b *testing.B, client *http.Client, url, body string) {
	req, _ := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"urn:echo#echo"`)

	resp, err := client.Do(req)
	if err != nil {
		b.Errorf("request failed: %v", err)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b.Errorf("unexpected status: %d", resp.StatusCode)
	}
}

// BenchmarkHandler_RequestLatency measures single request latency over HTTP.
func BenchmarkHandler_RequestLatency(b *testing.B) {
	ts := benchServer(b)
	client := ts.Client()
	body := echoRequest("echo", `<param0 xsi:type="xsd:string">user-123</param0>`)

	b.ResetTimer()
	for b.Loop() {
		benchPost(b, client, ts.URL, body)
	}
}

// BenchmarkHandler_ConcurrentRequests measures throughput under parallel load.
func BenchmarkHandler_ConcurrentRequests(b *testing.B) {
	ts := benchServer(b)
	client := ts.Client()
	body := echoRequest("echo", `<param0 xsi:type="xsd:string">user-456</param0>`)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			benchPost(b, client, ts.URL, body)
		}
	})
}

// BenchmarkHandler_MessageSizes measures handling of growing string payloads.
func BenchmarkHandler_MessageSizes(b *testing.B) {
	ts := benchServer(b)
	client := ts.Client()

	for _, size := range []struct {
		name    string
		padding int
	}{
		{"small_500B", 0},
		{"medium_2KB", 1500},
		{"large_10KB", 9500},
	} {
		b.Run(size.name, func(b *testing.B) {
			body := echoRequest("echo",
				`<param0 xsi:type="xsd:string">`+strings.Repeat("X", size.padding)+`</param0>`)
			b.SetBytes(int64(len(body)))
			for b.Loop() {
				benchPost(b, client, ts.URL, body)
			}
		})
	}
}

// BenchmarkHandler_InProcess measures the handler without the network.
func BenchmarkHandler_InProcess(b *testing.B) {
	h := NewHandler(echoFactory("urn:echo"))
	body := echoRequest("echo", `<param0 xsi:type="xsd:string">user-789</param0>`)

	for b.Loop() {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status: %d", rec.Code)
		}
	}
}
