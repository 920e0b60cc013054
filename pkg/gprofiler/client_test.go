package gprofiler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const cannedResponse = `{
	"result": [
		{"source": "GO:BP", "native": "GO:0006955", "name": "immune response",
		 "p_value": 1.2e-8, "significant": true,
		 "term_size": 2000, "query_size": 350, "intersection_size": 90},
		{"source": "REAC", "native": "REAC:R-HSA-168256", "name": "Immune System",
		 "p_value": 0.03, "significant": true,
		 "term_size": 2600, "query_size": 350, "intersection_size": 80}
	],
	"meta": {}
}`

func TestProfile(t *testing.T) {
	var gotBody profileRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("want POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/gost/profile/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(cannedResponse))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "hsapiens")
	raw, err := client.Profile(context.Background(), []string{"CD3D", "CD3E"})
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}

	if gotBody.Organism != "hsapiens" {
		t.Errorf("organism not forwarded: %+v", gotBody)
	}
	if len(gotBody.Query) != 2 || gotBody.Query[0] != "CD3D" {
		t.Errorf("query not forwarded: %+v", gotBody)
	}

	terms, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if len(terms) != 2 {
		t.Fatalf("want 2 terms, got %d", len(terms))
	}
	if terms[0].Native != "GO:0006955" || !terms[0].Significant {
		t.Errorf("first term mismatch: %+v", terms[0])
	}
	if terms[0].IntersectionSize != 90 {
		t.Errorf("intersection_size mismatch: %+v", terms[0])
	}
}

func TestProfileServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "organism not found", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "nosuch")
	_, err := client.Profile(context.Background(), []string{"CD3D"})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("want StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest {
		t.Errorf("want 400, got %d", statusErr.StatusCode)
	}
}

func TestParseResponseMalformed(t *testing.T) {
	if _, err := ParseResponse([]byte("not json")); err == nil {
		t.Fatal("want error on malformed response")
	}
}
