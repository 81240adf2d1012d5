package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// datasetServer emulates enough of both APIs for an end-to-end collection:
// one pfam entry, one interpro entry, the same protein under both, and one
// isoform pair.
func datasetServer(t *testing.T) (*httptest.Server, *map[string]int) {
	hits := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
		switch {
		case r.URL.Path == "/entry/pfam/":
			writeJSON(t, w, map[string]any{"results": []any{
				map[string]any{"metadata": map[string]any{"accession": "PF00121", "name": "TIM family"}},
			}})
		case r.URL.Path == "/entry/interpro/":
			writeJSON(t, w, map[string]any{"results": []any{
				map[string]any{"metadata": map[string]any{"accession": "IPR013785", "name": "TIM superfamily"}},
			}})
		case strings.HasPrefix(r.URL.Path, "/protein/UniProt/taxonomy/uniprot/9606/entry/"):
			writeJSON(t, w, map[string]any{"results": []any{
				map[string]any{"metadata": map[string]any{"accession": "P60174", "name": "TPI"}},
			}})
		case r.URL.Path == "/uniprotkb/P60174":
			writeJSON(t, w, map[string]any{
				"sequence": map[string]any{"value": strings.Repeat("ACDEFGHIKL", 6), "length": float64(60)},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	return server, &hits
}

func newTestCollector(baseURL string) *Collector {
	return New(newTestInterProClient(baseURL), newTestUniProtClient(baseURL))
}

func TestCollectDatasetWalksHierarchy(t *testing.T) {
	server, hits := datasetServer(t)
	defer server.Close()

	collector := newTestCollector(server.URL)
	dataset, err := collector.CollectDataset(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(dataset.Entries) != 2 {
		t.Fatalf("expected both databases searched, got %d entries", len(dataset.Entries))
	}
	if len(dataset.Proteins) != 2 {
		t.Fatalf("the protein appears under each entry, got %d", len(dataset.Proteins))
	}
	if len(dataset.Isoforms) != 1 {
		t.Fatalf("expected one canonical isoform, got %d", len(dataset.Isoforms))
	}
	// The same protein under two entries fetches its isoforms once.
	if (*hits)["/uniprotkb/P60174"] != 1 {
		t.Fatalf("isoform fetch must be deduplicated, got %d hits", (*hits)["/uniprotkb/P60174"])
	}
}

func TestCollectDatasetHonorsCaps(t *testing.T) {
	server, _ := datasetServer(t)
	defer server.Close()

	opts := DefaultOptions()
	opts.MaxEntries = 1
	opts.IncludeIsoforms = false
	dataset, err := newTestCollector(server.URL).CollectDataset(context.Background(), opts)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(dataset.Entries) != 2 {
		t.Fatalf("caps limit expansion, not discovery: got %d entries", len(dataset.Entries))
	}
	if len(dataset.Proteins) != 1 {
		t.Fatalf("only the first entry must expand, got %d proteins", len(dataset.Proteins))
	}
	if len(dataset.Isoforms) != 0 {
		t.Fatalf("isoforms disabled, got %d", len(dataset.Isoforms))
	}
}

func TestCollectDatasetPropagatesErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestCollector(server.URL).CollectDataset(context.Background(), DefaultOptions())
	if err == nil || !strings.Contains(err.Error(), "search pfam entries") {
		t.Fatalf("expected wrapped search error, got %v", err)
	}
}

func TestCollectDatasetDefaults(t *testing.T) {
	server, _ := datasetServer(t)
	defer server.Close()

	dataset, err := newTestCollector(server.URL).CollectDataset(context.Background(), Options{IncludeIsoforms: true})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(dataset.Entries) != 2 {
		t.Fatalf("empty options must default to both databases, got %d entries", len(dataset.Entries))
	}
}
