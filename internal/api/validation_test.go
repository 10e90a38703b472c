package api

import (
	"strings"
	"testing"
)

func validPayload() string {
	return `{
		"planId": "p1",
		"userAddress": "0x1111111111111111111111111111111111111111",
		"fromToken": "USDC",
		"toToken": "ETH",
		"amount": "100.50",
		"intervalMinutes": 1440,
		"durationWeeks": 4,
		"slippage": "2.0",
		"createdAt": "2024-01-01T00:00:00Z"
	}`
}

func fieldsOf(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestParsePlanRequest_Valid(t *testing.T) {
	req, errs := parsePlanRequest([]byte(validPayload()))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if req.PlanID != "p1" || req.Amount != "100.50" || req.IntervalMinutes != 1440 || req.DurationWeeks != 4 {
		t.Errorf("fields not carried through: %+v", req)
	}
}

func TestParsePlanRequest_BadAmount(t *testing.T) {
	payload := strings.Replace(validPayload(), `"100.50"`, `"abc"`, 1)
	_, errs := parsePlanRequest([]byte(payload))
	if len(errs) != 1 {
		t.Fatalf("expected exactly one violation, got %v", errs)
	}
	if errs[0].Field != "amount" {
		t.Errorf("field = %q", errs[0].Field)
	}
}

func TestParsePlanRequest_BadAddress(t *testing.T) {
	for _, addr := range []string{"1111111111111111111111111111111111111111", "0x123", "0x" + strings.Repeat("g", 40)} {
		payload := strings.Replace(validPayload(), "0x1111111111111111111111111111111111111111", addr, 1)
		_, errs := parsePlanRequest([]byte(payload))
		if len(errs) != 1 || errs[0].Field != "userAddress" {
			t.Errorf("address %q: expected single userAddress violation, got %v", addr, errs)
		}
	}
}

func TestParsePlanRequest_MixedCaseAddressAccepted(t *testing.T) {
	payload := strings.Replace(validPayload(), "0x1111111111111111111111111111111111111111", "0xAbCdEf1234567890aBcDeF1234567890abcdef12", 1)
	_, errs := parsePlanRequest([]byte(payload))
	if len(errs) != 0 {
		t.Fatalf("case-insensitive hex rejected: %v", errs)
	}
}

func TestParsePlanRequest_NonIntegerInterval(t *testing.T) {
	payload := strings.Replace(validPayload(), "1440", "1440.5", 1)
	_, errs := parsePlanRequest([]byte(payload))
	if len(errs) != 1 || errs[0].Field != "intervalMinutes" {
		t.Fatalf("expected intervalMinutes violation, got %v", errs)
	}
}

func TestParsePlanRequest_ZeroDuration(t *testing.T) {
	payload := strings.Replace(validPayload(), `"durationWeeks": 4`, `"durationWeeks": 0`, 1)
	_, errs := parsePlanRequest([]byte(payload))
	if len(errs) != 1 || errs[0].Field != "durationWeeks" {
		t.Fatalf("expected durationWeeks violation, got %v", errs)
	}
}

func TestParsePlanRequest_CollectsAllViolations(t *testing.T) {
	payload := `{
		"planId": "",
		"userAddress": "nope",
		"fromToken": "USDC",
		"toToken": "ETH",
		"amount": "1,5",
		"intervalMinutes": "sixty",
		"durationWeeks": 4,
		"slippage": "2.0"
	}`
	_, errs := parsePlanRequest([]byte(payload))

	got := fieldsOf(errs)
	want := []string{"planId", "userAddress", "amount", "intervalMinutes", "createdAt"}
	for _, field := range want {
		found := false
		for _, g := range got {
			if g == field {
				found = true
			}
		}
		if !found {
			t.Errorf("missing violation for %s in %v", field, got)
		}
	}
	if len(errs) != len(want) {
		t.Errorf("expected %d violations, got %v", len(want), errs)
	}
}

func TestParsePlanRequest_InvalidJSON(t *testing.T) {
	_, errs := parsePlanRequest([]byte("{"))
	if len(errs) != 1 || errs[0].Field != "body" {
		t.Fatalf("expected body violation, got %v", errs)
	}
}

func TestParsePlanRequest_IntegerAmountString(t *testing.T) {
	payload := strings.Replace(validPayload(), `"100.50"`, `"100"`, 1)
	if _, errs := parsePlanRequest([]byte(payload)); len(errs) != 0 {
		t.Fatalf("whole-number decimal string rejected: %v", errs)
	}
}
