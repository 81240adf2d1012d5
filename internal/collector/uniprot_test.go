package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestUniProtClient(baseURL string, opts ...UniProtOption) *UniProtClient {
	c := NewUniProtClient(append([]UniProtOption{WithUniProtBaseURL(baseURL)}, opts...)...)
	c.limiter.sleepFn = noSleep
	c.retry.sleepFn = noSleep
	return c
}

func uniprotEntry() map[string]any {
	return map[string]any{
		"primaryAccession": "P60174",
		"organism":         map[string]any{"scientificName": "Homo sapiens"},
		"proteinDescription": map[string]any{
			"recommendedName": map[string]any{
				"fullName": map[string]any{"value": "Triosephosphate isomerase"},
			},
		},
		"sequence": map[string]any{
			"value":  strings.Repeat("ACDEFGHIKL", 6),
			"length": float64(60),
		},
		"comments": []any{
			map[string]any{"commentType": "FUNCTION"},
			map[string]any{
				"commentType": "ALTERNATIVE PRODUCTS",
				"isoforms": []any{
					map[string]any{"isoformIds": []any{"P60174-1"}},
					map[string]any{"isoformIds": []any{"P60174-2"}},
				},
			},
		},
	}
}

func TestProteinIsoformsCollectsCanonicalAndAlternatives(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/uniprotkb/P60174":
			writeJSON(t, w, uniprotEntry())
		case "/uniprotkb/P60174-2":
			writeJSON(t, w, map[string]any{
				"sequence": map[string]any{
					"value":  strings.Repeat("ACDEFGHIKL", 5),
					"length": float64(50),
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestUniProtClient(server.URL)
	records, err := client.ProteinIsoforms(context.Background(), "P60174")
	if err != nil {
		t.Fatalf("isoforms: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected canonical plus one alternative, got %d", len(records))
	}

	canonical := records[0]
	if canonical["isoform_id"] != "P60174-1" || canonical["parent_protein_id"] != "P60174" {
		t.Fatalf("unexpected canonical record %v", canonical)
	}
	if canonical["description"] != "Canonical sequence" {
		t.Fatalf("unexpected description %v", canonical["description"])
	}
	if canonical["name"] != "Triosephosphate isomerase" || canonical["organism"] != "Homo sapiens" {
		t.Fatalf("name/organism not mapped: %v", canonical)
	}
	if canonical["sequence_length"] != 60 {
		t.Fatalf("unexpected length %v", canonical["sequence_length"])
	}

	alt := records[1]
	if alt["isoform_id"] != "P60174-2" || alt["description"] != "Alternative isoform" {
		t.Fatalf("unexpected alternative record %v", alt)
	}
	if alt["sequence_length"] != 50 {
		t.Fatalf("alternative sequence must be fetched, got %v", alt)
	}

	// The canonical "-1" id from the comment must not trigger a fetch.
	for _, p := range paths {
		if p == "/uniprotkb/P60174-1" {
			t.Fatalf("canonical isoform must not be fetched separately: %v", paths)
		}
	}
}

func TestProteinIsoformsMissingEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestUniProtClient(server.URL)
	records, err := client.ProteinIsoforms(context.Background(), "Q0TEST")
	if err != nil {
		t.Fatalf("missing entries are not errors: %v", err)
	}
	if records != nil {
		t.Fatalf("expected no records, got %v", records)
	}
}

func TestProteinIsoformsSkipsEntriesWithoutSequence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"primaryAccession": "P60174"})
	}))
	defer server.Close()

	client := newTestUniProtClient(server.URL)
	records, err := client.ProteinIsoforms(context.Background(), "P60174")
	if err != nil {
		t.Fatalf("isoforms: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("entry without sequence yields no records, got %v", records)
	}
}

func TestProteinIsoformsSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestUniProtClient(server.URL)
	if _, err := client.ProteinIsoforms(context.Background(), "P60174"); err == nil {
		t.Fatalf("persistent server errors must surface")
	}
}

func TestAlternativeIsoformIDs(t *testing.T) {
	ids := alternativeIsoformIDs(uniprotEntry())
	if len(ids) != 1 || ids[0] != "P60174-2" {
		t.Fatalf("unexpected ids %v", ids)
	}
	if ids := alternativeIsoformIDs(map[string]any{}); len(ids) != 0 {
		t.Fatalf("no comments yields no ids, got %v", ids)
	}
}
