package domain

import "time"

// DataSourceTypePathfinder is the only data source type this node exchanges with.
const DataSourceTypePathfinder = "Pathfinder"

// Endpoint types of a data source.
const (
	EndpointAuthenticate  = "Authenticate"
	EndpointGetFootprints = "GetFootprints"
	EndpointUpdateEvent   = "UpdateEvent"
)

type Endpoint struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// DataSource is an organization's externally hosted system. Password is the
// decrypted plaintext.
type DataSource struct {
	DataSourceID   int64      `json:"data_source_id"`
	Type           string     `json:"data_source_type"`
	UserName       string     `json:"user_name"`
	Password       string     `json:"-"`
	Endpoints      []Endpoint `json:"endpoints"`
	OrganizationID int64      `json:"organization_id"`
}

// Endpoint returns the first endpoint of the given type.
func (d *DataSource) Endpoint(endpointType string) (Endpoint, bool) {
	for _, ep := range d.Endpoints {
		if ep.Type == endpointType {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// HasDeliveryEndpoints reports whether both an Authenticate and an
// UpdateEvent endpoint are registered.
func (d *DataSource) HasDeliveryEndpoints() bool {
	_, auth := d.Endpoint(EndpointAuthenticate)
	_, update := d.Endpoint(EndpointUpdateEvent)
	return auth && update
}

// Usable reports whether events can be forwarded to this data source.
func (d *DataSource) Usable() bool {
	if d == nil {
		return false
	}
	if d.UserName == "" || d.Password == "" {
		return false
	}
	return d.HasDeliveryEndpoints()
}

// CorrelationRecord is one forwarded contract request waiting for its reply.
type CorrelationRecord struct {
	RequestID               int64     `json:"request_id"`
	RequestType             string    `json:"request_type"`
	EventID                 string    `json:"event_id"`
	Source                  string    `json:"source"`
	RequestorOrganizationID int64     `json:"requestor_organization_id"`
	RequesteeOrganizationID int64     `json:"requestee_organization_id"`
	UpdatedTime             time.Time `json:"updated_time"`
}

// RequestTypeContract is the only correlation record type.
const RequestTypeContract = "Contract"
