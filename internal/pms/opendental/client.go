// Package opendental implements the pms.Provider interface against
// the OpenDental REST API.
package opendental

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/dentalray/pmsbridge/internal/config"
	"github.com/dentalray/pmsbridge/internal/pms"
	"github.com/dentalray/pmsbridge/internal/schema"
)

func init() {
	pms.Register(pms.TypeOpenDental, New)
}

// dateTStampLayout is the timestamp format the API expects for the
// DateTStamp incremental filter.
const dateTStampLayout = "2006-01-02 15:04:05"

// Client talks to one OpenDental instance.
type Client struct {
	http       *http.Client
	baseURL    string
	authScheme string
	authToken  string
	logger     *log.Logger
}

// New creates an OpenDental provider from the loaded configuration.
func New(cfg *config.Config, logger *log.Logger) (pms.Provider, error) {
	od := cfg.OpenDental
	if od.APIBaseURL == "" {
		return nil, fmt.Errorf("opendental: api_base_url is required")
	}
	if _, err := url.Parse(od.APIBaseURL); err != nil {
		return nil, fmt.Errorf("opendental: invalid api_base_url: %w", err)
	}

	return &Client{
		http:       &http.Client{Timeout: od.APITimeout()},
		baseURL:    od.APIBaseURL,
		authScheme: od.AuthScheme,
		authToken:  od.AuthToken,
		logger:     logger,
	}, nil
}

// Type implements pms.Provider.
func (c *Client) Type() pms.Type { return pms.TypeOpenDental }

// Available implements pms.Provider with a one-record probe, so a down
// or misconfigured PMS skips the cycle instead of failing mid-way.
func (c *Client) Available(ctx context.Context) bool {
	c.logger.Printf("Checking OpenDental API availability...")

	resp, err := c.get(ctx, "/api/v1/patients/Simple?limit=1")
	if err != nil {
		c.logger.Printf("Cannot connect to OpenDental API: %v. Is OpenDental running?", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		c.logger.Printf("OpenDental API is available and responding")
		return true
	}

	c.logger.Printf("OpenDental API returned status: %s", resp.Status)
	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Printf("OpenDental API authentication failed. Check auth_token in configuration.")
	}
	return false
}

// PatientsSince implements pms.Provider using the Simple patients
// endpoint with a DateTStamp filter.
func (c *Client) PatientsSince(ctx context.Context, since time.Time) ([]*schema.Patient, error) {
	stamp := since.Format(dateTStampLayout)
	c.logger.Printf("Exporting patients from OpenDental API with DateTStamp >= %s", stamp)

	path := "/api/v1/patients/Simple?DateTStamp=" + url.QueryEscape(stamp)
	var dtos []patientDTO
	if err := c.getJSON(ctx, path, &dtos); err != nil {
		return nil, fmt.Errorf("failed to export patients: %w", err)
	}

	patients := make([]*schema.Patient, 0, len(dtos))
	for i := range dtos {
		p := dtos[i].toPatient()
		if err := p.Validate(); err != nil {
			c.logger.Printf("Skipping patient %d from export: %v", dtos[i].PatNum, err)
			continue
		}
		patients = append(patients, p)
	}

	c.logger.Printf("Exported %d patients from OpenDental", len(patients))
	return patients, nil
}

// PatientInsurance implements pms.Provider via the family module
// insurance endpoint. A 404 means the patient has no coverage.
func (c *Client) PatientInsurance(ctx context.Context, patientID int64) ([]*schema.Insurance, error) {
	path := fmt.Sprintf("/api/v1/familymodules/%d/Insurance", patientID)

	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch insurance for patient %d: %w", patientID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("insurance API returned %s for patient %d: %s", resp.Status, patientID, body)
	}

	var dtos []insuranceDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("failed to decode insurance for patient %d: %w", patientID, err)
	}

	plans := make([]*schema.Insurance, 0, len(dtos))
	for i := range dtos {
		plans = append(plans, dtos[i].toInsurance())
	}
	return plans, nil
}

// get performs an authenticated GET against the API.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", c.authScheme+" "+c.authToken)
	}
	return c.http.Do(req)
}

// getJSON performs a GET and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("API returned %s: %s", resp.Status, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
