package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Event type URNs recognized by the node.
const (
	TypeCompanyUpdated          = "org.wbcsd.pathfinder.Company.Updated.v1"
	TypeProductUpdated          = "org.wbcsd.pathfinder.Product.Updated.v1"
	TypeProductFootprintUpdated = "org.wbcsd.pathfinder.ProductFootprint.Updated.v1"
	TypeContractRequest         = "org.wbcsd.pathfinder.Contract.Request.v1"
	TypeContractReply           = "org.wbcsd.pathfinder.Contract.Reply.v1"
)

// ContentTypeCloudEvents is the content type of every forwarded envelope.
const ContentTypeCloudEvents = "application/cloudevents+json; charset=UTF-8"

var sourcePattern = regexp.MustCompile(`//[-a-zA-Z0-9@:%._+~#=]{1,256}\b([-a-zA-Z0-9()@:%_+.~#?&/=]*)`)

// Envelope is a CloudEvents-shaped message. Every top-level member of the
// decoded JSON is kept so that a forwarded envelope carries the same
// specversion, time and extension attributes the caller sent.
type Envelope struct {
	ID     string
	Source string
	Type   string
	Data   json.RawMessage

	members map[string]json.RawMessage
}

// NewEnvelope builds an envelope with the given identity and data payload.
func NewEnvelope(id, source, eventType string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshaling event data: %w", err)
	}
	env := Envelope{ID: id, Source: source, Type: eventType, Data: raw, members: map[string]json.RawMessage{}}
	env.syncMembers()
	return env, nil
}

// UnmarshalJSON keeps the raw members. Shape checks happen in Validate so
// that the caller gets the first missing property in a stable order.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(b, &members); err != nil {
		return Validationf("The request body must be a JSON object.")
	}
	if members == nil {
		return Validationf("The request body must be a JSON object.")
	}
	e.members = members
	e.ID, _ = stringMember(members, "id")
	e.Source, _ = stringMember(members, "source")
	e.Type, _ = stringMember(members, "type")
	e.Data = members["data"]
	return nil
}

// MarshalJSON writes the preserved members with id, source, type and data
// taken from the struct fields.
func (e Envelope) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.members)+4)
	for k, v := range e.members {
		out[k] = v
	}
	for k, v := range map[string]string{"id": e.ID, "source": e.Source, "type": e.Type} {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = raw
	}
	if len(e.Data) > 0 {
		out["data"] = e.Data
	}
	return json.Marshal(out)
}

// Validate checks type, source, id and data in that order.
func (e *Envelope) Validate() error {
	if e.members == nil {
		e.members = map[string]json.RawMessage{}
		e.syncMembers()
	}

	eventType, ok := stringMember(e.members, "type")
	if !ok || eventType == "" {
		return Validationf("The type property is not defined in the request.")
	}

	source, ok := stringMember(e.members, "source")
	if !ok || source == "" {
		return Validationf("The source property is not defined in the request.")
	}
	if !ValidSource(source) {
		return Validationf("The source property must be Action Events of your system.")
	}

	id, ok := stringMember(e.members, "id")
	if !ok || id == "" {
		return Validationf("The eventId property is not defined in the request.")
	}

	data := bytes.TrimSpace(e.members["data"])
	if len(data) == 0 || data[0] != '{' {
		return Validationf("The data property is not defined in the request.")
	}

	e.ID, e.Source, e.Type, e.Data = id, source, eventType, data
	return nil
}

// ValidSource reports whether source looks like an endpoint URL. A
// scheme-relative source ("//host/path") is read as https.
func ValidSource(source string) bool {
	if strings.HasPrefix(source, "//") {
		source = "https:" + source
	}
	return sourcePattern.MatchString(source)
}

// WithData returns a copy of the envelope carrying a different data payload.
func (e Envelope) WithData(data json.RawMessage) Envelope {
	members := make(map[string]json.RawMessage, len(e.members))
	for k, v := range e.members {
		members[k] = v
	}
	e.members = members
	e.Data = data
	return e
}

// WithRequestorPublicKey returns a copy whose data.requestor.publicKey is set
// to key (JSON null when key is nil). Other members of data and requestor are
// left untouched.
func (e Envelope) WithRequestorPublicKey(key *string) (Envelope, error) {
	var data map[string]json.RawMessage
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return Envelope{}, fmt.Errorf("decoding event data: %w", err)
	}

	requestor := map[string]json.RawMessage{}
	if raw, ok := data["requestor"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &requestor); err != nil {
			return Envelope{}, fmt.Errorf("decoding requestor: %w", err)
		}
	}

	keyRaw, err := json.Marshal(key)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding public key: %w", err)
	}
	requestor["publicKey"] = keyRaw

	if data["requestor"], err = json.Marshal(requestor); err != nil {
		return Envelope{}, fmt.Errorf("encoding requestor: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding event data: %w", err)
	}
	return e.WithData(raw), nil
}

func (e *Envelope) syncMembers() {
	for k, v := range map[string]string{"id": e.ID, "source": e.Source, "type": e.Type} {
		raw, _ := json.Marshal(v)
		e.members[k] = raw
	}
	if len(e.Data) > 0 {
		e.members["data"] = e.Data
	}
}

func stringMember(members map[string]json.RawMessage, key string) (string, bool) {
	raw := bytes.TrimSpace(members[key])
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
