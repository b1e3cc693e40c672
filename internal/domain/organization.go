package domain

import (
	"strings"
	"time"
)

type Organization struct {
	ID        int64     `json:"organization_id"`
	Name      string    `json:"organization_name"`
	PublicKey *string   `json:"public_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID             int64  `json:"product_id"`
	Name           string `json:"product_name"`
	OrganizationID int64  `json:"organization_id"`
}

// ProductFootprint links a footprint hosted by an organization's own system
// (DataID) to a product registered on this node.
type ProductFootprint struct {
	ID               int64  `json:"product_footprint_id"`
	DataID           string `json:"data_id"`
	ProductID        int64  `json:"product_id"`
	ProductName      string `json:"product_name"`
	OrganizationID   int64  `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
}

// Identifier is a URN split into its scheme type and code.
type Identifier struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

type urnPrefix struct {
	prefix string
	kind   string
}

var companyURNs = []urnPrefix{
	{"urn:uuid:", "UUID"},
	{"urn:lei:", "LEI"},
	{"urn:epc:id:sgln:", "SGLN"},
	{"urn:pathfinder:company:customcode:vendor-assigned:", "SupplierSpecific"},
	{"urn:pathfinder:company:customcode:buyer-assigned:", "BuyerSpecific"},
}

var productURNs = []urnPrefix{
	{"urn:uuid:", "UUID"},
	{"urn:epc:id:sgtin:", "SGTIN"},
	{"urn:pathfinder:product:customcode:vendor-assigned:", "SupplierSpecific"},
	{"urn:pathfinder:product:customcode:buyer-assigned:", "BuyerSpecific"},
}

// CompanyIdentifiers converts company URNs, dropping any it does not
// recognize. It fails with a ValidationError when nothing is left.
func CompanyIdentifiers(urns []string) ([]Identifier, error) {
	ids := convertURNs(urns, companyURNs)
	if len(ids) == 0 {
		return nil, Validationf("The companyIds does not contain a recognizable URN.")
	}
	return ids, nil
}

// ProductIdentifiers converts product URNs, dropping any it does not
// recognize. It fails with a ValidationError when nothing is left.
func ProductIdentifiers(urns []string) ([]Identifier, error) {
	ids := convertURNs(urns, productURNs)
	if len(ids) == 0 {
		return nil, Validationf("The productIds does not contain a recognizable URN.")
	}
	return ids, nil
}

func convertURNs(urns []string, known []urnPrefix) []Identifier {
	var ids []Identifier
	for _, urn := range urns {
		for _, p := range known {
			if strings.HasPrefix(urn, p.prefix) {
				ids = append(ids, Identifier{Type: p.kind, Code: urn[len(p.prefix):]})
				break
			}
		}
	}
	return ids
}
