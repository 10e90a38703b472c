package api

import (
	"encoding/json"
	"net/http"

	"dca-automation/internal/models"
	"dca-automation/internal/workflow"
)

// Error categories surfaced to callers. Upstream error objects never leak,
// only their message text.
const (
	categoryValidation = "Validation Error"
	categoryInternal   = "Internal Server Error"
	categoryConflict   = "Conflict"
	categoryRateLimit  = "Rate Limited"
	categoryNotFound   = "Not Found"
)

type successData struct {
	PlanID          string         `json:"planId"`
	JobID           string         `json:"jobId"`
	IPFSLink        string         `json:"ipfsLink"`
	ScriptIPFSURL   string         `json:"scriptIpfsUrl"`
	MetadataIPFSURL string         `json:"metadataIpfsUrl"`
	JobData         map[string]any `json:"jobData,omitempty"`
}

type successEnvelope struct {
	Success bool        `json:"success"`
	Data    successData `json:"data"`
	Message string      `json:"message"`
	Warning string      `json:"warning,omitempty"`
}

type errorEnvelope struct {
	Success bool         `json:"success"`
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

func dataFromResult(res workflow.Result) successData {
	return successData{
		PlanID:          res.PlanID,
		JobID:           res.JobID,
		IPFSLink:        res.ScriptRef.URL,
		ScriptIPFSURL:   res.ScriptRef.URL,
		MetadataIPFSURL: res.MetadataRef.URL,
		JobData:         res.JobData,
	}
}

func dataFromRecord(a models.Automation) successData {
	return successData{
		PlanID:          a.PlanID,
		JobID:           a.JobID,
		IPFSLink:        a.ScriptURL,
		ScriptIPFSURL:   a.ScriptURL,
		MetadataIPFSURL: a.MetadataURL,
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, category, message string, fields []FieldError) {
	writeJSON(w, code, errorEnvelope{Success: false, Error: category, Message: message, Fields: fields})
}
