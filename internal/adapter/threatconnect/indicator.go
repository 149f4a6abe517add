package threatconnect

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hive-corporation/threatbridge/internal/core/domain"
	"github.com/hive-corporation/threatbridge/internal/core/ports"
)

type indicatorBuilder struct {
	c *Client
}

func (b indicatorBuilder) Add(value, owner string) ports.Indicator {
	return &Indicator{c: b.c, summary: value, owner: owner}
}

// Indicator stages one indicator for upload. The resource endpoint is
// chosen at Commit time: a file indicator when secondary hashes, a size, or
// occurrences were staged, otherwise address, URL, or host based on the
// summary value.
type Indicator struct {
	c *Client

	summary string
	owner   string

	hashes      []string
	size        int64
	hasSize     bool
	occurrences []fileOccurrence
	groups      []groupAssociation
}

type fileOccurrence struct {
	FileName string
	Date     string
}

type groupAssociation struct {
	Type string
	ID   int
}

// SetIndicator registers a secondary file hash. The hash kind is detected
// from its length at commit time.
func (ind *Indicator) SetIndicator(value string) {
	if value != "" {
		ind.hashes = append(ind.hashes, value)
	}
}

func (ind *Indicator) SetSize(size int64) {
	ind.size = size
	ind.hasSize = true
}

func (ind *Indicator) AddFileOccurrence(fileName, date string) {
	ind.occurrences = append(ind.occurrences, fileOccurrence{FileName: fileName, Date: date})
}

func (ind *Indicator) AssociateGroup(groupType string, groupID int) {
	ind.groups = append(ind.groups, groupAssociation{Type: groupType, ID: groupID})
}

func (ind *Indicator) Commit(ctx context.Context) error {
	typePath, body := ind.resource()

	if err := ind.c.do(ctx, http.MethodPost, "/v2/indicators/"+typePath, body, nil); err != nil {
		return err
	}

	for _, fo := range ind.occurrences {
		path := fmt.Sprintf("/v2/indicators/files/%s/fileOccurrences", url.PathEscape(ind.summary))
		foBody := map[string]interface{}{"fileName": fo.FileName, "date": fo.Date}
		if err := ind.c.do(ctx, http.MethodPost, path, foBody, nil); err != nil {
			return err
		}
	}

	for _, g := range ind.groups {
		path := fmt.Sprintf("/v2/indicators/%s/%s/groups/%s/%d",
			typePath, url.PathEscape(ind.summary), g.Type, g.ID)
		if err := ind.c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
			return err
		}
	}

	return nil
}

func (ind *Indicator) isFile() bool {
	return len(ind.hashes) > 0 || ind.hasSize || len(ind.occurrences) > 0
}

// resource picks the v2 endpoint and request body for the staged indicator.
func (ind *Indicator) resource() (string, map[string]interface{}) {
	if ind.isFile() {
		body := map[string]interface{}{"md5": ind.summary}
		for _, hash := range ind.hashes {
			switch len(hash) {
			case 32:
				body["md5"] = hash
			case 40:
				body["sha1"] = hash
			case 64:
				body["sha256"] = hash
			}
		}
		if ind.hasSize {
			body["size"] = ind.size
		}
		return "files", body
	}

	switch domain.ClassifyIndicator(ind.summary) {
	case domain.IPAddress:
		return "addresses", map[string]interface{}{"ip": ind.summary}
	case domain.URL:
		return "urls", map[string]interface{}{"text": ind.summary}
	default:
		return "hosts", map[string]interface{}{"hostName": ind.summary}
	}
}
