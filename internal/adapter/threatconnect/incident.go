package threatconnect

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hive-corporation/threatbridge/internal/core/ports"
)

type incidentBuilder struct {
	c *Client
}

func (b incidentBuilder) Add(title, owner string) ports.Incident {
	return &Incident{c: b.c, name: title, owner: owner}
}

// Incident stages mutations locally. Commit flushes them in order: the
// create call (first commit only), new attributes, then pending security
// labels on loaded attributes.
type Incident struct {
	c *Client

	id        int
	name      string
	owner     string
	eventDate string

	pendingAttrs []pendingAttribute
	attrs        []*Attribute
}

type pendingAttribute struct {
	Type  string
	Value string
}

func (i *Incident) ID() int {
	return i.id
}

func (i *Incident) SetEventDate(iso string) {
	i.eventDate = iso
}

func (i *Incident) AddAttribute(attrType, value string) {
	i.pendingAttrs = append(i.pendingAttrs, pendingAttribute{Type: attrType, Value: value})
}

func (i *Incident) Commit(ctx context.Context) error {
	if i.id == 0 {
		body := map[string]interface{}{"name": i.name}
		if i.eventDate != "" {
			body["eventDate"] = i.eventDate
		}
		var data struct {
			Incident struct {
				ID int `json:"id"`
			} `json:"incident"`
		}
		if err := i.c.do(ctx, http.MethodPost, "/v2/groups/incidents", body, &data); err != nil {
			return err
		}
		i.id = data.Incident.ID
	}

	for _, attr := range i.pendingAttrs {
		path := fmt.Sprintf("/v2/groups/incidents/%d/attributes", i.id)
		body := map[string]interface{}{"type": attr.Type, "value": attr.Value}
		if err := i.c.do(ctx, http.MethodPost, path, body, nil); err != nil {
			return err
		}
	}
	i.pendingAttrs = nil

	for _, attr := range i.attrs {
		for _, label := range attr.pendingLabels {
			path := fmt.Sprintf("/v2/groups/incidents/%d/attributes/%d/securityLabels/%s",
				i.id, attr.id, url.PathEscape(label))
			if err := i.c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
				return err
			}
		}
		attr.pendingLabels = nil
	}

	return nil
}

func (i *Incident) LoadAttributes(ctx context.Context) error {
	if i.id == 0 {
		return fmt.Errorf("incident has not been committed")
	}

	var data struct {
		Attribute []struct {
			ID    int    `json:"id"`
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"attribute"`
	}
	path := fmt.Sprintf("/v2/groups/incidents/%d/attributes", i.id)
	if err := i.c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return err
	}

	i.attrs = i.attrs[:0]
	for _, a := range data.Attribute {
		i.attrs = append(i.attrs, &Attribute{id: a.ID, attrType: a.Type, value: a.Value})
	}
	return nil
}

func (i *Incident) Attributes() []ports.Attribute {
	attrs := make([]ports.Attribute, len(i.attrs))
	for idx, a := range i.attrs {
		attrs[idx] = a
	}
	return attrs
}

// Attribute is one incident attribute loaded from the platform. Security
// labels stage locally until the owning incident's next Commit.
type Attribute struct {
	id            int
	attrType      string
	value         string
	pendingLabels []string
}

func (a *Attribute) Type() string {
	return a.attrType
}

func (a *Attribute) AddSecurityLabel(label string) {
	a.pendingLabels = append(a.pendingLabels, label)
}
