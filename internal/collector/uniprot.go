package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultUniProtBaseURL = "https://rest.uniprot.org"
	sourceUniProt         = "uniprot"
)

// UniProtClient queries the UniProt REST API for isoform records.
type UniProtClient struct {
	baseURL string
	httpc   *http.Client
	limiter *rateLimiter
	retry   retryPolicy
	metrics *Metrics
}

// UniProtOption customizes client construction.
type UniProtOption func(*UniProtClient)

// WithUniProtBaseURL overrides the API base URL (tests, mirrors).
func WithUniProtBaseURL(base string) UniProtOption {
	return func(c *UniProtClient) { c.baseURL = strings.TrimSuffix(base, "/") }
}

// WithUniProtHTTPClient overrides the HTTP client.
func WithUniProtHTTPClient(httpc *http.Client) UniProtOption {
	return func(c *UniProtClient) { c.httpc = httpc }
}

// WithUniProtMetrics attaches request metrics.
func WithUniProtMetrics(m *Metrics) UniProtOption {
	return func(c *UniProtClient) { c.metrics = m }
}

// NewUniProtClient constructs a client with conservative rate limiting.
func NewUniProtClient(opts ...UniProtOption) *UniProtClient {
	c := &UniProtClient{
		baseURL: defaultUniProtBaseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		limiter: newRateLimiter(3, 6),
		retry:   defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getJSON fetches one endpoint. A 404 yields a nil map rather than an error:
// proteins without a UniProtKB entry are simply absent.
func (c *UniProtClient) getJSON(ctx context.Context, rawURL string) (map[string]any, error) {
	var out map[string]any
	err := c.retry.do(ctx, func() error {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		started := time.Now()
		resp, err := c.httpc.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		c.metrics.observe(sourceUniProt, resp.StatusCode, time.Since(started))
		switch {
		case resp.StatusCode == http.StatusNotFound:
			out = nil
			return nil
		case resp.StatusCode != http.StatusOK:
			return &APIError{URL: rawURL, StatusCode: resp.StatusCode, RetryAfter: retryAfter(resp)}
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("decode uniprot response: %w", err)
		}
		return nil
	})
	return out, err
}

// ProteinIsoforms retrieves a protein's UniProtKB entry and shapes its
// canonical sequence plus any alternative products into isoform records.
// Alternative isoform sequences are fetched individually since the parent
// entry only names them.
func (c *UniProtClient) ProteinIsoforms(ctx context.Context, proteinID string) ([]map[string]any, error) {
	entry, err := c.getJSON(ctx, fmt.Sprintf("%s/uniprotkb/%s?format=json", c.baseURL, proteinID))
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	var records []map[string]any
	if canonical := parseCanonicalIsoform(entry, proteinID); canonical != nil {
		records = append(records, canonical)
	}
	for _, isoformID := range alternativeIsoformIDs(entry) {
		record, err := c.fetchIsoform(ctx, isoformID, proteinID)
		if err != nil {
			return nil, err
		}
		if record != nil {
			records = append(records, record)
		}
	}
	return records, nil
}

func (c *UniProtClient) fetchIsoform(ctx context.Context, isoformID, proteinID string) (map[string]any, error) {
	entry, err := c.getJSON(ctx, fmt.Sprintf("%s/uniprotkb/%s?format=json", c.baseURL, isoformID))
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	record := parseIsoformSequence(entry)
	if record == nil {
		return nil, nil
	}
	record["isoform_id"] = isoformID
	record["parent_protein_id"] = proteinID
	record["description"] = "Alternative isoform"
	return record, nil
}

// parseCanonicalIsoform builds the "-1" isoform record from the entry's own
// sequence block.
func parseCanonicalIsoform(entry map[string]any, proteinID string) map[string]any {
	record := parseIsoformSequence(entry)
	if record == nil {
		return nil
	}
	record["isoform_id"] = proteinID + "-1"
	record["parent_protein_id"] = proteinID
	record["description"] = "Canonical sequence"
	if name := proteinRecommendedName(entry); name != "" {
		record["name"] = name
	}
	if organism, ok := entry["organism"].(map[string]any); ok {
		if sci, ok := organism["scientificName"].(string); ok && sci != "" {
			record["organism"] = sci
		}
	}
	return record
}

// parseIsoformSequence extracts sequence/sequence_length, or nil when the
// entry carries no sequence block.
func parseIsoformSequence(entry map[string]any) map[string]any {
	seq, ok := entry["sequence"].(map[string]any)
	if !ok {
		return nil
	}
	value, ok := seq["value"].(string)
	if !ok || value == "" {
		return nil
	}
	record := map[string]any{"sequence": value}
	if length, ok := seq["length"].(float64); ok {
		record["sequence_length"] = int(length)
	} else {
		record["sequence_length"] = len(value)
	}
	return record
}

// alternativeIsoformIDs walks the ALTERNATIVE PRODUCTS comment collecting
// isoform ids other than the canonical "-1".
func alternativeIsoformIDs(entry map[string]any) []string {
	comments, _ := entry["comments"].([]any)
	var ids []string
	for _, rawComment := range comments {
		comment, ok := rawComment.(map[string]any)
		if !ok || comment["commentType"] != "ALTERNATIVE PRODUCTS" {
			continue
		}
		isoforms, _ := comment["isoforms"].([]any)
		for _, rawIsoform := range isoforms {
			isoform, ok := rawIsoform.(map[string]any)
			if !ok {
				continue
			}
			isoformIDs, _ := isoform["isoformIds"].([]any)
			if len(isoformIDs) == 0 {
				continue
			}
			id, ok := isoformIDs[0].(string)
			if !ok || strings.HasSuffix(id, "-1") {
				continue
			}
			ids = append(ids, id)
		}
	}
	return ids
}

func proteinRecommendedName(entry map[string]any) string {
	desc, ok := entry["proteinDescription"].(map[string]any)
	if !ok {
		return ""
	}
	rec, ok := desc["recommendedName"].(map[string]any)
	if !ok {
		return ""
	}
	full, ok := rec["fullName"].(map[string]any)
	if !ok {
		return ""
	}
	value, _ := full["value"].(string)
	return value
}
