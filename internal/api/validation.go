package api

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"dca-automation/internal/models"
)

var (
	addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	decimalPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// FieldError names one violated constraint on the request payload.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// parsePlanRequest shape-checks the raw payload into a typed request,
// collecting every violated constraint rather than stopping at the first.
func parsePlanRequest(body []byte) (models.PlanRequest, []FieldError) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.PlanRequest{}, []FieldError{{Field: "body", Reason: "must be a valid JSON object"}}
	}

	var errs []FieldError
	req := models.PlanRequest{
		PlanID:    requireString(raw, "planId", &errs),
		FromToken: requireString(raw, "fromToken", &errs),
		ToToken:   requireString(raw, "toToken", &errs),
		CreatedAt: requireString(raw, "createdAt", &errs),
	}

	if addr := requireString(raw, "userAddress", &errs); addr != "" {
		if !addressPattern.MatchString(addr) {
			errs = append(errs, FieldError{Field: "userAddress", Reason: "must be a 0x-prefixed 40-hex-character address"})
		} else {
			req.UserAddress = addr
		}
	}

	req.Amount = requireDecimal(raw, "amount", &errs)
	req.Slippage = requireDecimal(raw, "slippage", &errs)
	req.IntervalMinutes = requirePositiveInt(raw, "intervalMinutes", &errs)
	req.DurationWeeks = requirePositiveInt(raw, "durationWeeks", &errs)

	return req, errs
}

func requireString(raw map[string]any, key string, errs *[]FieldError) string {
	v, ok := raw[key]
	if !ok || v == nil {
		*errs = append(*errs, FieldError{Field: key, Reason: "is required"})
		return ""
	}
	s, ok := v.(string)
	if !ok {
		*errs = append(*errs, FieldError{Field: key, Reason: "must be a string"})
		return ""
	}
	if s == "" {
		*errs = append(*errs, FieldError{Field: key, Reason: "must not be empty"})
	}
	return s
}

// requireDecimal enforces the decimal-string transport invariant: amounts are
// never parsed as floats, only pattern-checked.
func requireDecimal(raw map[string]any, key string, errs *[]FieldError) string {
	s := requireString(raw, key, errs)
	if s == "" {
		return ""
	}
	if !decimalPattern.MatchString(s) {
		*errs = append(*errs, FieldError{Field: key, Reason: "must be a decimal number string"})
		return ""
	}
	return s
}

func requirePositiveInt(raw map[string]any, key string, errs *[]FieldError) int {
	v, ok := raw[key]
	if !ok || v == nil {
		*errs = append(*errs, FieldError{Field: key, Reason: "is required"})
		return 0
	}
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		*errs = append(*errs, FieldError{Field: key, Reason: "must be an integer"})
		return 0
	}
	i := int(f)
	if i < 1 {
		*errs = append(*errs, FieldError{Field: key, Reason: "must be at least 1"})
		return 0
	}
	return i
}

func joinFieldErrors(errs []FieldError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+" "+e.Reason)
	}
	return strings.Join(parts, "; ")
}
