package domain

import (
	"encoding/json"
	"testing"
)

func decodeReport(t *testing.T, raw string) Report {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("failed to decode test report: %v", err)
	}
	return NewReport(m)
}

func TestReportMissingSections(t *testing.T) {
	// A report with no network key at all must walk as empty everywhere.
	report := decodeReport(t, `{"target": {"category": "file", "file": {"name": "a.exe"}}}`)

	if got := report.Connections("tcp"); len(got) != 0 {
		t.Errorf("Connections(tcp) = %v, want empty", got)
	}
	if got := report.Connections("udp"); len(got) != 0 {
		t.Errorf("Connections(udp) = %v, want empty", got)
	}
	if got := report.HTTPRequests(); len(got) != 0 {
		t.Errorf("HTTPRequests() = %v, want empty", got)
	}
	if got := report.Hosts(); len(got) != 0 {
		t.Errorf("Hosts() = %v, want empty", got)
	}
	if got := report.DNSQueries(); len(got) != 0 {
		t.Errorf("DNSQueries() = %v, want empty", got)
	}
	if got := report.Domains(); len(got) != 0 {
		t.Errorf("Domains() = %v, want empty", got)
	}
	if _, ok := report.AnalysisID(); ok {
		t.Error("AnalysisID() should report absent for a report without info")
	}
	if _, ok := report.AnalysisStarted(); ok {
		t.Error("AnalysisStarted() should report absent")
	}
}

func TestReportEmptyDocument(t *testing.T) {
	report := NewReport(nil)

	if _, ok := report.TargetFileName(); ok {
		t.Error("TargetFileName() should report absent on a nil document")
	}
	if _, ok := report.TargetFile(); ok {
		t.Error("TargetFile() should report absent on a nil document")
	}
	if got := report.TargetCategory(); got != "" {
		t.Errorf("TargetCategory() = %q, want empty", got)
	}
	if got := report.Hosts(); got != nil {
		t.Errorf("Hosts() = %v, want nil", got)
	}
}

func TestReportFullDocument(t *testing.T) {
	report := decodeReport(t, `{
		"target": {
			"category": "file",
			"file": {"name": "a.exe", "md5": "m", "sha1": "s1", "sha256": "s2", "size": 100}
		},
		"info": {"id": 42, "started": "2023-01-01T00:00:00"},
		"network": {
			"tcp": [{"src": "10.0.0.5", "dst": "192.0.2.1"}],
			"udp": [{"src": "10.0.0.5", "dst": "192.0.2.53"}],
			"http": [{"host": "example.com:8080", "uri": "http://example.com:8080/x"}],
			"hosts": ["192.0.2.1", "example.org"],
			"dns": [{"request": "example.com", "answers": ["1.2.3.4", {"type": "A", "data": "5.6.7.8"}]}],
			"domains": [{"ip": "192.0.2.9", "domain": "evil.example"}]
		}
	}`)

	if name, ok := report.TargetFileName(); !ok || name != "a.exe" {
		t.Errorf("TargetFileName() = %q, %v", name, ok)
	}
	if got := report.TargetCategory(); got != "file" {
		t.Errorf("TargetCategory() = %q, want file", got)
	}

	file, ok := report.TargetFile()
	if !ok {
		t.Fatal("TargetFile() reported absent")
	}
	if file.MD5 != "m" || file.SHA1 != "s1" || file.SHA256 != "s2" || file.Size != 100 {
		t.Errorf("TargetFile() = %+v", file)
	}

	id, ok := report.AnalysisID()
	if !ok || id != 42 {
		t.Errorf("AnalysisID() = %d, %v", id, ok)
	}
	started, ok := report.AnalysisStarted()
	if !ok || started != "2023-01-01T00:00:00" {
		t.Errorf("AnalysisStarted() = %q, %v", started, ok)
	}

	tcp := report.Connections("tcp")
	if len(tcp) != 1 || tcp[0].Src != "10.0.0.5" || tcp[0].Dst != "192.0.2.1" {
		t.Errorf("Connections(tcp) = %+v", tcp)
	}

	http := report.HTTPRequests()
	if len(http) != 1 || http[0].Host != "example.com:8080" || http[0].URI != "http://example.com:8080/x" {
		t.Errorf("HTTPRequests() = %+v", http)
	}

	hosts := report.Hosts()
	if len(hosts) != 2 || hosts[0] != "192.0.2.1" || hosts[1] != "example.org" {
		t.Errorf("Hosts() = %v", hosts)
	}

	dns := report.DNSQueries()
	if len(dns) != 1 || dns[0].Request != "example.com" {
		t.Fatalf("DNSQueries() = %+v", dns)
	}
	// String answers and {type, data} answers both resolve.
	if len(dns[0].Answers) != 2 || dns[0].Answers[0] != "1.2.3.4" || dns[0].Answers[1] != "5.6.7.8" {
		t.Errorf("DNS answers = %v", dns[0].Answers)
	}

	domains := report.Domains()
	if len(domains) != 1 || domains[0].IP != "192.0.2.9" || domains[0].Domain != "evil.example" {
		t.Errorf("Domains() = %+v", domains)
	}
}

func TestReportMalformedEntries(t *testing.T) {
	// Entries of the wrong shape are skipped, never panic.
	report := decodeReport(t, `{
		"network": {
			"tcp": ["not-a-map", 42, {"src": "10.0.0.5", "dst": "192.0.2.1"}],
			"hosts": [7, "example.org"],
			"dns": [{"request": "example.com", "answers": [null, 3, "1.2.3.4"]}]
		}
	}`)

	if got := report.Connections("tcp"); len(got) != 1 {
		t.Errorf("Connections(tcp) = %+v, want 1 entry", got)
	}
	if got := report.Hosts(); len(got) != 1 || got[0] != "example.org" {
		t.Errorf("Hosts() = %v", got)
	}
	dns := report.DNSQueries()
	if len(dns) != 1 || len(dns[0].Answers) != 1 || dns[0].Answers[0] != "1.2.3.4" {
		t.Errorf("DNSQueries() = %+v", dns)
	}
}
