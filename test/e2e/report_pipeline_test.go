package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hive-corporation/threatbridge/internal/adapter/threatconnect"
	"github.com/hive-corporation/threatbridge/internal/core/domain"
	"github.com/hive-corporation/threatbridge/internal/core/reporter"
)

type apiCall struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

// stubPlatform is a minimal ThreatConnect v2 stand-in that accepts every
// write and records it.
type stubPlatform struct {
	mu    sync.Mutex
	calls []apiCall

	// excluded values are rejected with the platform's exclusion message.
	excluded map[string]bool
}

func (s *stubPlatform) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := apiCall{Method: r.Method, Path: r.URL.Path}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &call.Body)
		}

		s.mu.Lock()
		s.calls = append(s.calls, call)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		for value := range s.excluded {
			if strings.Contains(r.URL.Path, value) || call.Body["hostName"] == value || call.Body["ip"] == value {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"status": "Failure", "message": "this indicator is on the exclusion list"}`))
				return
			}
		}

		switch {
		case r.Method == "POST" && r.URL.Path == "/v2/groups/incidents":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"status": "Success", "data": {"incident": {"id": 55}}}`))
		case r.Method == "GET" && strings.HasSuffix(r.URL.Path, "/attributes"):
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status": "Success", "data": {"attribute": [
				{"id": 1, "type": "Analysis ID", "value": "42"},
				{"id": 2, "type": "Source", "value": "https://sandbox.local/analysis/42/"}
			]}}`))
		default:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"status": "Success"}`))
		}
	})
}

// pathCount counts calls whose path contains substr.
func (s *stubPlatform) pathCount(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.Contains(c.Path, substr) {
			n++
		}
	}
	return n
}

// createCount counts POSTs whose path matches exactly; association paths
// share the create path as a prefix and must not be counted.
func (s *stubPlatform) createCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == "POST" && c.Path == path {
			n++
		}
	}
	return n
}

func runPipeline(t *testing.T, stub *stubPlatform, rawReport string) error {
	t.Helper()

	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	tc, err := threatconnect.NewClient("id", "secret", "Sandbox", server.URL)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	rep := reporter.New(tc, reporter.Config{
		TargetSource:       "Sandbox",
		ReportLinkTemplate: "https://sandbox.local/analysis/%d/",
	})

	var m map[string]interface{}
	if err := json.Unmarshal([]byte(rawReport), &m); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	return rep.Run(context.Background(), domain.NewReport(m))
}

func TestFullReportPublish(t *testing.T) {
	stub := &stubPlatform{}

	err := runPipeline(t, stub, `{
		"target": {"category": "file", "file": {
			"name": "a.exe",
			"md5": "0123456789abcdef0123456789abcdef",
			"sha1": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			"sha256": "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
			"size": 100
		}},
		"info": {"id": 42, "started": "2023-01-01T00:00:00"},
		"network": {
			"tcp": [{"src": "10.0.0.1", "dst": "192.0.2.7"}],
			"http": [{"host": "example.com:8080", "uri": "http://example.com:8080/x"}],
			"hosts": ["192.0.2.7"],
			"dns": [{"request": "example.com", "answers": ["1.2.3.4"]}],
			"domains": [{"ip": "192.0.2.9", "domain": "evil.example"}]
		}
	}`)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// One incident, committed with both sensitive attributes labeled.
	if got := stub.createCount("/v2/groups/incidents"); got != 1 {
		t.Errorf("incident creates = %d, want 1", got)
	}
	if got := stub.pathCount("/securityLabels/"); got != 2 {
		t.Errorf("security label posts = %d, want 2", got)
	}

	// Address indicators: tcp src+dst, http host is a name not an IP,
	// hosts entry, dns answer, domain ip.
	if got := stub.createCount("/v2/indicators/addresses"); got != 5 {
		t.Errorf("address creates = %d, want 5", got)
	}
	// Host indicators: stripped http host, dns request, domain name.
	if got := stub.createCount("/v2/indicators/hosts"); got != 3 {
		t.Errorf("host creates = %d, want 3", got)
	}
	if got := stub.createCount("/v2/indicators/urls"); got != 1 {
		t.Errorf("url creates = %d, want 1", got)
	}
	if got := stub.createCount("/v2/indicators/files"); got != 1 {
		t.Errorf("file indicator creates = %d, want 1", got)
	}
	if got := stub.pathCount("/fileOccurrences"); got != 1 {
		t.Errorf("file occurrence posts = %d, want 1", got)
	}
}

func TestExcludedIndicatorDoesNotFailRun(t *testing.T) {
	stub := &stubPlatform{excluded: map[string]bool{"192.0.2.7": true}}

	err := runPipeline(t, stub, `{
		"target": {"category": "url", "file": {"name": "a.exe"}},
		"info": {"id": 42},
		"network": {
			"hosts": ["192.0.2.7", "example.org"]
		}
	}`)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// The non-excluded host still made it through.
	if got := stub.createCount("/v2/indicators/hosts"); got != 1 {
		t.Errorf("host creates = %d, want 1", got)
	}
}
