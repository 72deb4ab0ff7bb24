package middleware

import (
	"encoding/json"
	"testing"
)

func TestRedactAuditBodyAdmin(t *testing.T) {
	body := []byte(`{"asset":"0x1","admin_key":"k","nested":{"private_key":"pk","to":"0x2"}}`)
	out := redactAuditBody("/v1/admin/sweep", body)

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if data["admin_key"] == "k" {
		t.Fatalf("admin key not redacted")
	}
	if nested, ok := data["nested"].(map[string]interface{}); ok {
		if nested["private_key"] == "pk" {
			t.Fatalf("private key not redacted")
		}
		if nested["to"] != "0x2" {
			t.Fatalf("non-sensitive field mangled")
		}
	}
}

func TestRedactAuditBodyNonSensitivePath(t *testing.T) {
	body := []byte(`{"amount":"10"}`)
	out := redactAuditBody("/v1/vault/deposit", body)
	if out != string(body) {
		t.Fatalf("unexpected redaction on non-sensitive path")
	}
}

func TestRedactAuditBodyInvalidJSON(t *testing.T) {
	body := []byte("not-json")
	out := redactAuditBody("/v1/admin/slippage", body)
	if out != "[redacted]" {
		t.Fatalf("expected redacted placeholder for invalid json")
	}
}
