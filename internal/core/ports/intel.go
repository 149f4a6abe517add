package ports

import "context"

// GroupIncidents is the group resource type used when associating an
// indicator with an incident.
const GroupIncidents = "incidents"

// IntelClient is the surface the reporting pipeline needs from a
// threat-intelligence platform.
type IntelClient interface {
	Incidents() IncidentBuilder
	Indicators() IndicatorBuilder
}

// IncidentBuilder creates staged incident resources.
type IncidentBuilder interface {
	Add(title, owner string) Incident
}

// Incident is a staged incident. Mutations accumulate locally and are
// flushed to the platform by Commit.
type Incident interface {
	// ID is the platform-assigned id, valid after the first successful
	// Commit.
	ID() int
	SetEventDate(iso string)
	AddAttribute(attrType, value string)
	// LoadAttributes refreshes the set returned by Attributes from the
	// platform.
	LoadAttributes(ctx context.Context) error
	Attributes() []Attribute
	Commit(ctx context.Context) error
}

// Attribute is one incident attribute as known to the platform.
type Attribute interface {
	Type() string
	// AddSecurityLabel stages a security label on the attribute, applied by
	// the owning incident's next Commit.
	AddSecurityLabel(label string)
}

// IndicatorBuilder creates staged indicator resources.
type IndicatorBuilder interface {
	Add(value, owner string) Indicator
}

// Indicator is a staged indicator. Commit performs a single attempt; any
// platform rejection surfaces as an error whose message carries the
// platform's own text.
type Indicator interface {
	// SetIndicator registers an additional identifying value, such as a
	// secondary file hash.
	SetIndicator(value string)
	SetSize(size int64)
	AddFileOccurrence(fileName, date string)
	AssociateGroup(groupType string, groupID int)
	Commit(ctx context.Context) error
}
