package opendental

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dentalray/pmsbridge/internal/config"
)

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	cfg := &config.Config{
		OpenDental: config.OpenDental{
			APIBaseURL:     srv.URL,
			AuthScheme:     "ODFHIR",
			AuthToken:      "token123",
			TimeoutSeconds: 5,
		},
	}
	p, err := New(cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return p.(*Client)
}

// TestAvailable_OK probes with limit=1 and sends the auth header.
func TestAvailable_OK(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient(t, srv)
	if !c.Available(context.Background()) {
		t.Error("Available() = false for a healthy API")
	}
	if gotPath != "/api/v1/patients/Simple?limit=1" {
		t.Errorf("probe path = %q", gotPath)
	}
	if gotAuth != "ODFHIR token123" {
		t.Errorf("Authorization = %q, want ODFHIR token123", gotAuth)
	}
}

// TestAvailable_Unauthorized reports unavailable on 401.
func TestAvailable_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	if testClient(t, srv).Available(context.Background()) {
		t.Error("Available() = true on 401")
	}
}

// TestAvailable_Unreachable reports unavailable when nothing listens.
func TestAvailable_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // shut down before use

	if testClient(t, srv).Available(context.Background()) {
		t.Error("Available() = true for a closed server")
	}
}

// TestPatientsSince_FilterAndMapping sends the cursor as DateTStamp
// and maps the response DTOs.
func TestPatientsSince_FilterAndMapping(t *testing.T) {
	var gotStamp string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStamp = r.URL.Query().Get("DateTStamp")
		w.Write([]byte(`[
			{"PatNum": 1, "FName": "John", "LName": "Smith", "HmPhone": "555-0100", "Birthdate": "1980-03-14"},
			{"PatNum": 2, "FName": "Jane", "LName": "Doe", "Birthdate": "03/14/1985"},
			{"PatNum": 0, "FName": "", "LName": ""}
		]`))
	}))
	defer srv.Close()

	since := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	patients, err := testClient(t, srv).PatientsSince(context.Background(), since)
	if err != nil {
		t.Fatalf("PatientsSince() failed: %v", err)
	}

	if gotStamp != "2024-06-01 10:30:00" {
		t.Errorf("DateTStamp = %q, want 2024-06-01 10:30:00", gotStamp)
	}
	// The invalid third record is skipped, not fatal.
	if len(patients) != 2 {
		t.Fatalf("got %d patients, want 2", len(patients))
	}
	if patients[0].ID != 1 || patients[0].FirstName != "John" {
		t.Errorf("patient[0] = %+v", patients[0])
	}
}

// TestPatientsSince_ServerError surfaces non-200 responses as errors.
func TestPatientsSince_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := testClient(t, srv).PatientsSince(context.Background(), time.Now()); err == nil {
		t.Error("PatientsSince() should fail on 500")
	}
}

// TestPatientInsurance_NotFoundMeansNoCoverage maps 404 to an empty
// result instead of an error.
func TestPatientInsurance_NotFoundMeansNoCoverage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	plans, err := testClient(t, srv).PatientInsurance(context.Background(), 42)
	if err != nil {
		t.Fatalf("PatientInsurance() failed on 404: %v", err)
	}
	if len(plans) != 0 {
		t.Errorf("got %d plans, want 0", len(plans))
	}
}

// TestPatientInsurance_Mapping hits the family module endpoint and
// maps the DTOs.
func TestPatientInsurance_Mapping(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`[
			{"PatNum": 42, "CarrierName": "Aetna", "SubscriberID": "SUB-1", "Relationship": "Spouse", "Ordinal": 2, "IsPending": "false"}
		]`))
	}))
	defer srv.Close()

	plans, err := testClient(t, srv).PatientInsurance(context.Background(), 42)
	if err != nil {
		t.Fatalf("PatientInsurance() failed: %v", err)
	}
	if gotPath != "/api/v1/familymodules/42/Insurance" {
		t.Errorf("path = %q", gotPath)
	}
	if len(plans) != 1 {
		t.Fatalf("got %d plans, want 1", len(plans))
	}
	if plans[0].Priority != "Secondary" || plans[0].Relationship != "Spouse" {
		t.Errorf("plan = %+v", plans[0])
	}
}
