// Package collector gathers structural entry, protein, and isoform records
// from the public InterPro and UniProt REST APIs and shapes them into the
// untrusted record maps consumed by dataset import.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultInterProBaseURL = "https://www.ebi.ac.uk/interpro/api"
	defaultPageSize        = 200
	// Human proteome; matches the taxonomy scoping of the upstream queries.
	defaultTaxonomyID = "9606"
	sourceInterPro    = "interpro"
)

// InterProClient queries the InterPro REST API for structural entries and
// the proteins matched against them.
type InterProClient struct {
	baseURL string
	httpc   *http.Client
	limiter *rateLimiter
	retry   retryPolicy
	metrics *Metrics
}

// InterProOption customizes client construction.
type InterProOption func(*InterProClient)

// WithInterProBaseURL overrides the API base URL (tests, mirrors).
func WithInterProBaseURL(base string) InterProOption {
	return func(c *InterProClient) { c.baseURL = strings.TrimSuffix(base, "/") }
}

// WithInterProHTTPClient overrides the HTTP client.
func WithInterProHTTPClient(httpc *http.Client) InterProOption {
	return func(c *InterProClient) { c.httpc = httpc }
}

// WithInterProMetrics attaches request metrics.
func WithInterProMetrics(m *Metrics) InterProOption {
	return func(c *InterProClient) { c.metrics = m }
}

// NewInterProClient constructs a client with conservative rate limiting.
func NewInterProClient(opts ...InterProOption) *InterProClient {
	c := &InterProClient{
		baseURL: defaultInterProBaseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		limiter: newRateLimiter(5, 10),
		retry:   defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// page is the envelope shared by all paginated InterPro endpoints.
type page struct {
	Count   int              `json:"count"`
	Next    string           `json:"next"`
	Results []map[string]any `json:"results"`
}

func (c *InterProClient) getPage(ctx context.Context, rawURL string) (page, error) {
	var out page
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
		c.metrics.observe(sourceInterPro, resp.StatusCode, time.Since(started))
		switch {
		case resp.StatusCode == http.StatusNoContent:
			out = page{}
			return nil
		case resp.StatusCode != http.StatusOK:
			return &APIError{URL: rawURL, StatusCode: resp.StatusCode, RetryAfter: retryAfter(resp)}
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if len(body) == 0 {
			out = page{}
			return nil
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("decode interpro response: %w", err)
		}
		return nil
	})
	return out, err
}

func (c *InterProClient) collectPages(ctx context.Context, first string) ([]map[string]any, error) {
	var results []map[string]any
	next := first
	for next != "" {
		pg, err := c.getPage(ctx, next)
		if err != nil {
			return nil, err
		}
		results = append(results, pg.Results...)
		next = pg.Next
	}
	return results, nil
}

// SearchStructuralEntries retrieves entries from one member database
// ("pfam" or "interpro") matching the search term, following pagination,
// and shapes each hit into a structural entry record.
func (c *InterProClient) SearchStructuralEntries(ctx context.Context, database, search string, pageSize int) ([]map[string]any, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	q := url.Values{}
	q.Set("search", search)
	q.Set("page_size", strconv.Itoa(pageSize))
	first := fmt.Sprintf("%s/entry/%s/?%s", c.baseURL, database, q.Encode())
	raws, err := c.collectPages(ctx, first)
	if err != nil {
		return nil, err
	}
	records := make([]map[string]any, 0, len(raws))
	for _, raw := range raws {
		records = append(records, parseEntryRecord(raw, database, search))
	}
	return records, nil
}

// ProteinsForEntry retrieves the UniProt proteins matched against one
// structural entry, scoped to a taxonomy, shaped into protein records.
func (c *InterProClient) ProteinsForEntry(ctx context.Context, database, accession, taxonomyID string, pageSize int) ([]map[string]any, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if taxonomyID == "" {
		taxonomyID = defaultTaxonomyID
	}
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))
	first := fmt.Sprintf("%s/protein/UniProt/taxonomy/uniprot/%s/entry/%s/%s/?%s",
		c.baseURL, taxonomyID, database, strings.ToLower(accession), q.Encode())
	raws, err := c.collectPages(ctx, first)
	if err != nil {
		return nil, err
	}
	records := make([]map[string]any, 0, len(raws))
	for _, raw := range raws {
		records = append(records, parseProteinRecord(raw, accession))
	}
	return records, nil
}

// parseEntryRecord maps one InterPro search hit to a structural entry record.
func parseEntryRecord(raw map[string]any, database, annotation string) map[string]any {
	meta, _ := raw["metadata"].(map[string]any)
	record := map[string]any{
		"entry_type":            database,
		"structural_annotation": annotation,
	}
	if meta == nil {
		return record
	}
	if accession, ok := meta["accession"].(string); ok {
		record["accession"] = accession
	}
	if name, ok := meta["name"].(string); ok {
		record["name"] = name
	}
	if desc, ok := meta["description"].(string); ok && strings.TrimSpace(desc) != "" {
		record["description"] = desc
	}
	if members, ok := meta["member_databases"].(map[string]any); ok {
		record["member_signatures"] = members
	}
	if integrated, ok := meta["integrated"].(string); ok && integrated != "" {
		record["linked_domain_class_id"] = integrated
	}
	if subtype, ok := meta["type"].(string); ok && subtype != "" {
		record["subtype_detail"] = subtype
	}
	return record
}

// parseProteinRecord maps one InterPro protein hit to a protein record under
// the given parent entry.
func parseProteinRecord(raw map[string]any, parentAccession string) map[string]any {
	meta, _ := raw["metadata"].(map[string]any)
	record := map[string]any{
		"parent_entry_accession": parentAccession,
	}
	if meta == nil {
		return record
	}
	if accession, ok := meta["accession"].(string); ok {
		record["protein_id"] = accession
	}
	if name, ok := meta["name"].(string); ok && name != "" {
		record["name"] = name
	}
	if organism, ok := meta["source_organism"].(map[string]any); ok {
		if sci, ok := organism["scientificName"].(string); ok && sci != "" {
			record["organism"] = sci
		}
	}
	extra := map[string]any{}
	if db, ok := meta["source_database"].(string); ok && db != "" {
		extra["source_database"] = db
	}
	if length, ok := meta["length"]; ok {
		extra["length"] = length
	}
	if existence, ok := meta["protein_existence"]; ok && existence != nil {
		extra["protein_existence"] = existence
	}
	if gene, ok := meta["gene"].(map[string]any); ok {
		if gn, ok := gene["name"].(string); ok && gn != "" {
			extra["gene_name"] = gn
		}
	} else if gene, ok := meta["gene"].(string); ok && gene != "" {
		extra["gene_name"] = gene
	}
	if len(extra) > 0 {
		record["metadata"] = extra
	}
	return record
}
