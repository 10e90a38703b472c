package planstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUpdateLinkage(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	err := client.UpdateLinkage(context.Background(), "p1", "job-42", "https://ipfs.io/ipfs/bafyscript")
	if err != nil {
		t.Fatalf("update linkage: %v", err)
	}

	if gotMethod != http.MethodPatch {
		t.Errorf("method = %s", gotMethod)
	}
	if gotPath != "/api/plans/p1" {
		t.Errorf("path = %s", gotPath)
	}
	if gotBody["jobId"] != "job-42" || gotBody["ipfsLink"] != "https://ipfs.io/ipfs/bafyscript" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestUpdateLinkage_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "plan not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	if err := client.UpdateLinkage(context.Background(), "missing", "job-1", "link"); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}
