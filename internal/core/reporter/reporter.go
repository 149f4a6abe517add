// Package reporter publishes sandbox analysis results to a threat-intel
// platform: one incident per analysis run, with every extracted network and
// file indicator associated to it.
//
// The pipeline is deliberately single-threaded. Indicator volume per report
// is low, uploads are independent and non-transactional, and a failed upload
// must only ever lose that one indicator.
package reporter

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/hive-corporation/threatbridge/internal/core/domain"
	"github.com/hive-corporation/threatbridge/internal/core/ports"
)

// SecurityLabel is applied to incident attributes that must not leave the
// owning organization.
const SecurityLabel = "DO NOT SHARE"

// Config carries the provenance settings for published incidents.
type Config struct {
	// TargetSource is the owner/source tag for every created resource.
	TargetSource string

	// ReportLinkTemplate builds the Source attribute from the analysis id.
	// It must contain exactly one %v (or %d) verb.
	ReportLinkTemplate string
}

// Reporter runs the extraction and upload pipeline. It is safe for
// concurrent use; all per-run state stays on the stack.
type Reporter struct {
	tc  ports.IntelClient
	cfg Config
}

func New(tc ports.IntelClient, cfg Config) *Reporter {
	return &Reporter{tc: tc, cfg: cfg}
}

// Run publishes one analysis report. The incident build is the only fatal
// step: on failure no extractor executes and the error is returned. Every
// extractor after it runs to completion regardless of individual upload
// failures; a run is complete once all of them have executed.
func (r *Reporter) Run(ctx context.Context, report domain.Report) error {
	incidentID, err := r.createIncident(ctx, report)
	if err != nil {
		recordReport("failed")
		return err
	}
	recordIncident()

	r.importConnections(ctx, report, incidentID, "udp")
	r.importConnections(ctx, report, incidentID, "tcp")
	r.importHTTP(ctx, report, incidentID)
	r.importHosts(ctx, report, incidentID)
	r.importDNS(ctx, report, incidentID)
	r.importDomains(ctx, report, incidentID)

	// File indicators distinguish failure causes one level up instead of
	// swallowing locally, but a lost file indicator still does not fail
	// the run.
	if err := r.importFile(ctx, report, incidentID); err != nil {
		log.Printf("file indicator not recorded: %v", err)
	}

	recordReport("published")
	return nil
}

// createIncident creates and commits the incident representing the analysis
// run, then labels its sensitive attributes and commits again. Both commits
// are fatal on failure; a failed second commit leaves the incident live but
// unlabeled.
func (r *Reporter) createIncident(ctx context.Context, report domain.Report) (int, error) {
	filename, ok := report.TargetFileName()
	if !ok {
		return 0, fmt.Errorf("analysis target has no filename")
	}

	// Title carries today's date, not the sandbox's analysis date.
	title := fmt.Sprintf("Cuckoo Analysis %s: %s", time.Now().Format("20060102"), filename)
	incident := r.tc.Incidents().Add(title, r.cfg.TargetSource)
	incident.SetEventDate(time.Now().Format(time.RFC3339))

	if id, ok := report.AnalysisID(); ok {
		incident.AddAttribute("Analysis ID", strconv.FormatInt(id, 10))
		incident.AddAttribute("Source", fmt.Sprintf(r.cfg.ReportLinkTemplate, id))
	}

	start := time.Now()
	if err := incident.Commit(ctx); err != nil {
		return 0, &CommitError{Op: "incident", Err: err}
	}
	recordCommitDuration(time.Since(start))

	if err := incident.LoadAttributes(ctx); err != nil {
		return 0, fmt.Errorf("failed to load incident attributes: %w", err)
	}
	for _, attr := range incident.Attributes() {
		if attr.Type() == "Analysis ID" || attr.Type() == "Source" {
			attr.AddSecurityLabel(SecurityLabel)
		}
	}
	if err := incident.Commit(ctx); err != nil {
		return 0, &CommitError{Op: "incident", Err: err}
	}

	return incident.ID(), nil
}

// uploadIndicator publishes one raw indicator value and ties it to the
// run's incident. Values rejected by the platform's exclusion list are
// dropped without error; any other commit failure is a CommitError.
func (r *Reporter) uploadIndicator(ctx context.Context, incidentID int, category, raw string) error {
	if raw == "" {
		return nil
	}

	indicator := r.tc.Indicators().Add(raw, r.cfg.TargetSource)
	indicator.AssociateGroup(ports.GroupIncidents, incidentID)

	start := time.Now()
	if err := indicator.Commit(ctx); err != nil {
		if IsExclusionError(err.Error()) {
			recordUpload(category, "excluded")
			return nil
		}
		recordUpload(category, "failed")
		return &CommitError{Op: "indicator", Err: err}
	}
	recordCommitDuration(time.Since(start))
	recordUpload(category, "success")
	return nil
}

// importConnections uploads source and destination of every recorded
// connection for one protocol.
func (r *Reporter) importConnections(ctx context.Context, report domain.Report, incidentID int, proto string) {
	for _, conn := range report.Connections(proto) {
		if err := r.uploadIndicator(ctx, incidentID, proto, conn.Src); err != nil {
			log.Printf("skipping %s source indicator %q: %v", proto, conn.Src, err)
		}
		if err := r.uploadIndicator(ctx, incidentID, proto, conn.Dst); err != nil {
			log.Printf("skipping %s destination indicator %q: %v", proto, conn.Dst, err)
		}
	}
}

// importHTTP uploads the port-stripped host and the request URI of every
// recorded HTTP request. The IP check only decides the category; the host is
// uploaded either way.
func (r *Reporter) importHTTP(ctx context.Context, report domain.Report, incidentID int) {
	for _, req := range report.HTTPRequests() {
		host := domain.StripPort(req.Host)

		category := "http_host"
		if domain.IsIPAddress(host) {
			category = "http_ip"
		}
		if err := r.uploadIndicator(ctx, incidentID, category, host); err != nil {
			log.Printf("skipping http host indicator %q: %v", host, err)
		}

		if req.URI != "" {
			if err := r.uploadIndicator(ctx, incidentID, "http_url", req.URI); err != nil {
				log.Printf("skipping http url indicator %q: %v", req.URI, err)
			}
		}
	}
}

// importHosts uploads every contacted host, IP or name.
func (r *Reporter) importHosts(ctx context.Context, report domain.Report, incidentID int) {
	for _, host := range report.Hosts() {
		category := "host"
		if domain.IsIPAddress(host) {
			category = "host_ip"
		}
		if err := r.uploadIndicator(ctx, incidentID, category, host); err != nil {
			log.Printf("skipping host indicator %q: %v", host, err)
		}
	}
}

// importDNS uploads every DNS request and every answer in its answer list.
func (r *Reporter) importDNS(ctx context.Context, report domain.Report, incidentID int) {
	for _, query := range report.DNSQueries() {
		if err := r.uploadIndicator(ctx, incidentID, "dns", query.Request); err != nil {
			log.Printf("skipping dns request indicator %q: %v", query.Request, err)
		}
		for _, answer := range query.Answers {
			if err := r.uploadIndicator(ctx, incidentID, "dns", answer); err != nil {
				log.Printf("skipping dns answer indicator %q: %v", answer, err)
			}
		}
	}
}

// importDomains uploads each domain record's address and name as two
// independent indicators.
func (r *Reporter) importDomains(ctx context.Context, report domain.Report, incidentID int) {
	for _, record := range report.Domains() {
		if record.IP != "" {
			if err := r.uploadIndicator(ctx, incidentID, "domain", record.IP); err != nil {
				log.Printf("skipping domain ip indicator %q: %v", record.IP, err)
			}
		}
		if record.Domain != "" {
			if err := r.uploadIndicator(ctx, incidentID, "domain", record.Domain); err != nil {
				log.Printf("skipping domain indicator %q: %v", record.Domain, err)
			}
		}
	}
}

// importFile uploads the analyzed file as a hash indicator keyed by MD5,
// with SHA1/SHA256 as secondary identifiers, the file size, and a first-seen
// occurrence when the analysis has a start time. Unlike the other
// extractors, non-exclusion commit failures propagate to the caller.
func (r *Reporter) importFile(ctx context.Context, report domain.Report, incidentID int) error {
	if report.TargetCategory() != "file" {
		return nil
	}
	file, ok := report.TargetFile()
	if !ok {
		return nil
	}

	indicator := r.tc.Indicators().Add(file.MD5, r.cfg.TargetSource)
	indicator.SetIndicator(file.SHA1)
	indicator.SetIndicator(file.SHA256)
	indicator.SetSize(file.Size)

	if started, ok := report.AnalysisStarted(); ok {
		// Date portion only: first 10 characters of the timestamp.
		date := started
		if len(date) > 10 {
			date = date[:10]
		}
		indicator.AddFileOccurrence(file.Name, date)
	}

	indicator.AssociateGroup(ports.GroupIncidents, incidentID)

	start := time.Now()
	if err := indicator.Commit(ctx); err != nil {
		if IsExclusionError(err.Error()) {
			recordUpload("file", "excluded")
			return nil
		}
		recordUpload("file", "failed")
		return &CommitError{Op: "file indicator", Err: err}
	}
	recordCommitDuration(time.Since(start))
	recordUpload("file", "success")
	return nil
}
