package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func decodeEnvelope(t *testing.T, body string) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	return env
}

func TestEnvelope_Validate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"id":"e1","source":"https://b.example/2/events","type":"x","data":{}}`, ""},
		{"scheme relative source", `{"id":"e1","source":"//b.example/2/events","type":"x","data":{}}`, ""},
		{"missing type", `{"id":"e1","source":"https://b.example/2/events","data":{}}`, "type property"},
		{"numeric type", `{"id":"e1","source":"https://b.example/2/events","type":7,"data":{}}`, "type property"},
		{"missing source", `{"id":"e1","type":"x","data":{}}`, "source property is not defined"},
		{"bad source", `{"id":"e1","source":"not a url","type":"x","data":{}}`, "Action Events"},
		{"missing id", `{"source":"https://b.example/2/events","type":"x","data":{}}`, "eventId property"},
		{"null id", `{"id":null,"source":"https://b.example/2/events","type":"x","data":{}}`, "eventId property"},
		{"missing data", `{"id":"e1","source":"https://b.example/2/events","type":"x"}`, "data property"},
		{"string data", `{"id":"e1","source":"https://b.example/2/events","type":"x","data":"hi"}`, "data property"},
		{"array data", `{"id":"e1","source":"https://b.example/2/events","type":"x","data":[]}`, "data property"},
		// type is checked before anything else
		{"everything missing", `{}`, "type property"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := decodeEnvelope(t, tt.body)
			err := env.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !IsValidation(err) {
				t.Errorf("expected ValidationError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvelope_UnmarshalRejectsNonObject(t *testing.T) {
	var env Envelope
	err := json.Unmarshal([]byte(`[1,2]`), &env)
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestEnvelope_MarshalPreservesExtraMembers(t *testing.T) {
	env := decodeEnvelope(t, `{"specversion":"1.0","time":"2024-01-01T00:00:00Z","id":"e1","source":"https://a.example/2/events","type":"x","data":{"k":1}}`)
	if err := env.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	out, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["specversion"] != "1.0" || got["time"] != "2024-01-01T00:00:00Z" {
		t.Errorf("extension members lost: %s", out)
	}
	if got["id"] != "e1" {
		t.Errorf("expected id e1, got %v", got["id"])
	}
}

func TestEnvelope_WithRequestorPublicKey(t *testing.T) {
	env := decodeEnvelope(t, `{"id":"e1","source":"https://a.example/2/events","type":"`+TypeContractRequest+`","data":{"requestor":{"companyName":"A","extra":true},"requestee":{"companyName":"B"},"message":"hi"}}`)
	if err := env.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	key := "-----BEGIN PUBLIC KEY-----"
	forwarded, err := env.WithRequestorPublicKey(&key)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}

	var data struct {
		Requestor map[string]any `json:"requestor"`
		Requestee map[string]any `json:"requestee"`
		Message   string         `json:"message"`
	}
	if err := json.Unmarshal(forwarded.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Requestor["publicKey"] != key {
		t.Errorf("public key not injected: %v", data.Requestor)
	}
	if data.Requestor["extra"] != true || data.Requestor["companyName"] != "A" {
		t.Errorf("requestor members lost: %v", data.Requestor)
	}
	if data.Requestee["companyName"] != "B" || data.Message != "hi" {
		t.Errorf("data members lost: %s", forwarded.Data)
	}

	// the original envelope is unchanged
	if strings.Contains(string(env.Data), "publicKey") {
		t.Error("original envelope data was modified")
	}
}

func TestEnvelope_WithRequestorPublicKey_Nil(t *testing.T) {
	env, err := NewEnvelope("e1", "https://a.example/2/events", TypeContractRequest, map[string]any{
		"requestor": map[string]any{"companyName": "A"},
	})
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}

	forwarded, err := env.WithRequestorPublicKey(nil)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	if !strings.Contains(string(forwarded.Data), `"publicKey":null`) {
		t.Errorf("expected null public key, got %s", forwarded.Data)
	}
}

func TestValidSource(t *testing.T) {
	valid := []string{
		"https://b.example/2/events",
		"http://localhost:3000/events",
		"//b.example/2/events",
	}
	for _, s := range valid {
		if !ValidSource(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}

	invalid := []string{"", "b.example", "mailto:someone", "https://"}
	for _, s := range invalid {
		if ValidSource(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}
