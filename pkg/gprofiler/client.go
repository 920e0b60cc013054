// Package gprofiler is a small client for the g:Profiler g:GOSt functional
// enrichment API (https://biit.cs.ut.ee/gprofiler/api/gost/profile/).
package gprofiler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yumyai/goenrich/pkg/goterms"
)

const DefaultBaseURL = "https://biit.cs.ut.ee/gprofiler"

// StatusError is returned when the service answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gprofiler: unexpected status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	BaseURL    string
	Organism   string
	HTTPClient *http.Client
	UserAgent  string
}

func NewClient(baseURL, organism string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:  baseURL,
		Organism: organism,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		UserAgent: "goenrich",
	}
}

type profileRequest struct {
	Organism    string   `json:"organism"`
	Query       []string `json:"query"`
	NoEvidences bool     `json:"no_evidences"`
}

type profileResponse struct {
	Result []profileResult `json:"result"`
}

type profileResult struct {
	Source           string  `json:"source"`
	Native           string  `json:"native"`
	Name             string  `json:"name"`
	PValue           float64 `json:"p_value"`
	Significant      bool    `json:"significant"`
	TermSize         int     `json:"term_size"`
	QuerySize        int     `json:"query_size"`
	IntersectionSize int     `json:"intersection_size"`
}

// Profile submits a gene list and returns the raw response body. The body is
// kept verbatim so callers can cache it and re-parse later.
func (c *Client) Profile(ctx context.Context, genes []string) ([]byte, error) {

	payload, err := json.Marshal(profileRequest{
		Organism:    c.Organism,
		Query:       genes,
		NoEvidences: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal profile request: %w", err)
	}

	url := c.BaseURL + "/api/gost/profile/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read profile response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	return body, nil
}

// ParseResponse turns a raw profile response into term rows.
func ParseResponse(raw []byte) ([]goterms.Term, error) {

	var parsed profileResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal profile response: %w", err)
	}

	terms := make([]goterms.Term, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		terms = append(terms, goterms.Term{
			Source:           r.Source,
			Native:           r.Native,
			Name:             r.Name,
			PValue:           r.PValue,
			Significant:      r.Significant,
			TermSize:         r.TermSize,
			QuerySize:        r.QuerySize,
			IntersectionSize: r.IntersectionSize,
		})
	}

	return terms, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
