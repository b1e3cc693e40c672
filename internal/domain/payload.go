package domain

import (
	"encoding/json"
)

// Event is the decoded, type-specific payload of an Envelope. The set of
// variants is closed; ParseEvent returns Unknown for unrecognized types.
type Event interface {
	EventType() string
}

// CompanyUpdated announces the caller's current company name and identifiers.
type CompanyUpdated struct {
	CompanyName *string  `json:"companyName"`
	CompanyIDs  []string `json:"companyIds"`
}

// ProductUpdated announces one of the caller's products.
type ProductUpdated struct {
	ProductNameCompany *string  `json:"productNameCompany"`
	ProductIDs         []string `json:"productIds"`
}

// ProductFootprintUpdated announces a footprint the caller hosts for a product.
type ProductFootprintUpdated struct {
	ID                 *string  `json:"id"`
	CompanyName        *string  `json:"companyName"`
	CompanyIDs         []string `json:"companyIds"`
	ProductNameCompany *string  `json:"productNameCompany"`
	ProductIDs         []string `json:"productIds"`
}

// Party identifies the organization asking for a contract.
type Party struct {
	CompanyName *string  `json:"companyName"`
	CompanyIDs  []string `json:"companyIds"`
	PublicKey   *string  `json:"publicKey,omitempty"`
}

// Requestee selects the organizations a contract request is addressed to.
type Requestee struct {
	CompanyName        *string  `json:"companyName"`
	CompanyIDs         []string `json:"companyIds"`
	ProductNameCompany *string  `json:"productNameCompany"`
	ProductIDs         []string `json:"productIds"`
	ID                 *string  `json:"id"`
}

// Empty reports whether none of the selecting fields is set.
func (r Requestee) Empty() bool {
	return r.CompanyName == nil && r.CompanyIDs == nil &&
		r.ProductNameCompany == nil && r.ProductIDs == nil && r.ID == nil
}

// ContractRequest asks the requestee organizations for access to their data.
type ContractRequest struct {
	Requestor *Party     `json:"requestor"`
	Requestee *Requestee `json:"requestee"`
	Message   *string    `json:"message"`
}

// ContractReply answers an earlier ContractRequest identified by
// RequestEventID and RequestSource.
type ContractReply struct {
	RequestEventID *string         `json:"requestEventId"`
	RequestSource  *string         `json:"requestSource"`
	DataSource     json.RawMessage `json:"dataSource"`
}

// Unknown is any event type this node does not act on.
type Unknown struct {
	Type string
}

func (CompanyUpdated) EventType() string          { return TypeCompanyUpdated }
func (ProductUpdated) EventType() string          { return TypeProductUpdated }
func (ProductFootprintUpdated) EventType() string { return TypeProductFootprintUpdated }
func (ContractRequest) EventType() string         { return TypeContractRequest }
func (ContractReply) EventType() string           { return TypeContractReply }
func (u Unknown) EventType() string               { return u.Type }

// ParseEvent decodes the data of a validated envelope into its variant and
// checks the fields that variant requires.
func ParseEvent(env Envelope) (Event, error) {
	switch env.Type {
	case TypeCompanyUpdated:
		var ev CompanyUpdated
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		if ev.CompanyName == nil || ev.CompanyIDs == nil {
			return nil, Validationf("The companyName and companyIds properties are required.")
		}
		return ev, nil

	case TypeProductUpdated:
		var ev ProductUpdated
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		if ev.ProductNameCompany == nil || ev.ProductIDs == nil {
			return nil, Validationf("The productNameCompany and productIds properties are required.")
		}
		return ev, nil

	case TypeProductFootprintUpdated:
		var ev ProductFootprintUpdated
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		if ev.ID == nil || ev.CompanyName == nil || ev.CompanyIDs == nil ||
			ev.ProductNameCompany == nil || ev.ProductIDs == nil {
			return nil, Validationf("The id, companyName, companyIds, productNameCompany and productIds properties are required.")
		}
		return ev, nil

	case TypeContractRequest:
		var ev ContractRequest
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		if ev.Requestor == nil || (ev.Requestor.CompanyName == nil && ev.Requestor.CompanyIDs == nil) {
			return nil, Validationf("The requestor property must contain companyName or companyIds.")
		}
		if ev.Requestee == nil || ev.Requestee.Empty() {
			return nil, Validationf("One or more of the requested properties must be set under the requestee property.")
		}
		if ev.Message == nil {
			return nil, Validationf("The message property is required.")
		}
		return ev, nil

	case TypeContractReply:
		var ev ContractReply
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		if ev.RequestEventID == nil || ev.RequestSource == nil {
			return nil, Validationf("The requestEventId and requestSource properties are required.")
		}
		if len(ev.DataSource) == 0 || isNull(ev.DataSource) {
			return nil, Validationf("The dataSource property is required.")
		}
		return ev, nil
	}

	return Unknown{Type: env.Type}, nil
}

func decodeData(env Envelope, v any) error {
	if err := json.Unmarshal(env.Data, v); err != nil {
		return Validationf("The data property of %s is malformed.", env.Type)
	}
	return nil
}
