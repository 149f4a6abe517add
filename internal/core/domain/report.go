package domain

// Report is a read-only view over the raw analysis result emitted by the
// sandbox. The underlying document is a nested map where every section is
// optional; accessors return zero values (and ok=false where it matters)
// instead of panicking when a path is absent, so a sparse report walks as
// empty rather than failing.
type Report struct {
	raw map[string]interface{}
}

// NewReport wraps a decoded analysis result.
func NewReport(raw map[string]interface{}) Report {
	return Report{raw: raw}
}

// Connection is one recorded TCP or UDP connection.
type Connection struct {
	Src string
	Dst string
}

// HTTPRequest is one recorded HTTP request.
type HTTPRequest struct {
	Host string
	URI  string
}

// DNSQuery is one recorded DNS lookup with its answers.
type DNSQuery struct {
	Request string
	Answers []string
}

// DomainRecord is one resolved domain with its address, when known.
type DomainRecord struct {
	IP     string
	Domain string
}

// FileArtifact is the analyzed file's identifying data.
type FileArtifact struct {
	Name   string
	MD5    string
	SHA1   string
	SHA256 string
	Size   int64
}

// TargetCategory returns target.category.
func (r Report) TargetCategory() string {
	return getString(r.raw, "target", "category")
}

// TargetFileName returns target.file.name. ok is false when the target has
// no filename; callers treat that as a report-level failure.
func (r Report) TargetFileName() (string, bool) {
	name := getString(r.raw, "target", "file", "name")
	return name, name != ""
}

// TargetFile returns the analyzed file's hashes and size. ok is false when
// the report carries no file section.
func (r Report) TargetFile() (FileArtifact, bool) {
	file := getMap(r.raw, "target", "file")
	if file == nil {
		return FileArtifact{}, false
	}
	return FileArtifact{
		Name:   getString(file, "name"),
		MD5:    getString(file, "md5"),
		SHA1:   getString(file, "sha1"),
		SHA256: getString(file, "sha256"),
		Size:   getInt(file, "size"),
	}, true
}

// AnalysisID returns info.id.
func (r Report) AnalysisID() (int64, bool) {
	info := getMap(r.raw, "info")
	if info == nil {
		return 0, false
	}
	if _, present := info["id"]; !present {
		return 0, false
	}
	return getInt(info, "id"), true
}

// AnalysisStarted returns info.started, the sandbox's recorded start
// timestamp.
func (r Report) AnalysisStarted() (string, bool) {
	started := getString(r.raw, "info", "started")
	return started, started != ""
}

// Connections returns network.<proto> entries; proto is "tcp" or "udp".
func (r Report) Connections(proto string) []Connection {
	var conns []Connection
	for _, entry := range getList(r.raw, "network", proto) {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		conns = append(conns, Connection{
			Src: getString(m, "src"),
			Dst: getString(m, "dst"),
		})
	}
	return conns
}

// HTTPRequests returns network.http entries.
func (r Report) HTTPRequests() []HTTPRequest {
	var reqs []HTTPRequest
	for _, entry := range getList(r.raw, "network", "http") {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		reqs = append(reqs, HTTPRequest{
			Host: getString(m, "host"),
			URI:  getString(m, "uri"),
		})
	}
	return reqs
}

// Hosts returns network.hosts entries.
func (r Report) Hosts() []string {
	var hosts []string
	for _, entry := range getList(r.raw, "network", "hosts") {
		if host, ok := entry.(string); ok {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// DNSQueries returns network.dns entries with their answer lists.
func (r Report) DNSQueries() []DNSQuery {
	var queries []DNSQuery
	for _, entry := range getList(r.raw, "network", "dns") {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		q := DNSQuery{Request: getString(m, "request")}
		for _, answer := range getList(m, "answers") {
			switch a := answer.(type) {
			case string:
				q.Answers = append(q.Answers, a)
			case map[string]interface{}:
				// Newer sandbox versions report answers as {type, data}.
				if data := getString(a, "data"); data != "" {
					q.Answers = append(q.Answers, data)
				}
			}
		}
		queries = append(queries, q)
	}
	return queries
}

// Domains returns network.domains entries.
func (r Report) Domains() []DomainRecord {
	var records []DomainRecord
	for _, entry := range getList(r.raw, "network", "domains") {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		records = append(records, DomainRecord{
			IP:     getString(m, "ip"),
			Domain: getString(m, "domain"),
		})
	}
	return records
}

func getMap(m map[string]interface{}, keys ...string) map[string]interface{} {
	cur := m
	for _, key := range keys {
		if cur == nil {
			return nil
		}
		next, ok := cur[key].(map[string]interface{})
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func getList(m map[string]interface{}, keys ...string) []interface{} {
	parent := getMap(m, keys[:len(keys)-1]...)
	if parent == nil {
		return nil
	}
	list, _ := parent[keys[len(keys)-1]].([]interface{})
	return list
}

func getString(m map[string]interface{}, keys ...string) string {
	parent := getMap(m, keys[:len(keys)-1]...)
	if parent == nil {
		return ""
	}
	s, _ := parent[keys[len(keys)-1]].(string)
	return s
}

func getInt(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		// encoding/json decodes every number to float64.
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}
