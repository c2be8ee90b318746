package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alovak/cardflow-validator/internal/cardfile"
	"github.com/alovak/cardflow-validator/validator/models"
)

// Client talks to a running validator HTTP API.
type Client struct {
	Base string
	HTTP *http.Client
}

func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

// CardCheck is the answer of the single card endpoint.
type CardCheck struct {
	Valid  bool          `json:"valid"`
	Brand  models.Brand  `json:"brand"`
	Reason models.Reason `json:"reason,omitempty"`
}

func (c *Client) ValidateCard(ctx context.Context, rec models.RawCardRecord) (*CardCheck, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding card: %w", err)
	}
	resp, err := c.post(ctx, "/cards/validate", b)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out CardCheck
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode card check: %w", err)
	}
	return &out, nil
}

// ValidateBatch submits records and returns the accepted ones with the run ID.
func (c *Client) ValidateBatch(ctx context.Context, records []models.RawCardRecord) ([]models.ValidationResult, string, error) {
	var buf bytes.Buffer
	if err := cardfile.EncodeInput(&buf, records); err != nil {
		return nil, "", err
	}
	resp, err := c.post(ctx, "/batches/", buf.Bytes())
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var out struct {
		Accepted []models.ValidationResult `json:"validated_credit_cards"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, "", fmt.Errorf("decode batch: %w", err)
	}
	return out.Accepted, resp.Header.Get("X-Run-ID"), nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("post %s status=%d body=%s", path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return resp, nil
}
