package collector

import (
	"context"
	"fmt"

	"proteincore/internal/core"
)

// Options scope one collection run.
type Options struct {
	// SearchTerm selects structural entries by annotation text.
	SearchTerm string
	// Databases lists the member databases to query ("pfam", "interpro").
	Databases []string
	// TaxonomyID scopes protein discovery (default human, 9606).
	TaxonomyID string
	// PageSize for paginated endpoints.
	PageSize int
	// MaxEntries caps how many structural entries are expanded into
	// proteins; zero means no cap.
	MaxEntries int
	// MaxProteinsPerEntry caps protein expansion per entry; zero means no cap.
	MaxProteinsPerEntry int
	// IncludeIsoforms fetches isoform records from UniProt for each
	// discovered protein.
	IncludeIsoforms bool
}

// DefaultOptions returns the standard TIM barrel collection scope.
func DefaultOptions() Options {
	return Options{
		SearchTerm:      "TIM barrel",
		Databases:       []string{"pfam", "interpro"},
		TaxonomyID:      defaultTaxonomyID,
		PageSize:        defaultPageSize,
		IncludeIsoforms: true,
	}
}

// Collector orchestrates the InterPro and UniProt clients into one dataset.
type Collector struct {
	interpro *InterProClient
	uniprot  *UniProtClient
}

// New constructs a collector. Nil clients get defaults.
func New(interpro *InterProClient, uniprot *UniProtClient) *Collector {
	if interpro == nil {
		interpro = NewInterProClient()
	}
	if uniprot == nil {
		uniprot = NewUniProtClient()
	}
	return &Collector{interpro: interpro, uniprot: uniprot}
}

// CollectDataset walks the hierarchy top down: structural entries matching
// the search term, the proteins matched against each entry, and optionally
// the isoforms of each distinct protein. Records come back untrusted; the
// import path validates them.
func (c *Collector) CollectDataset(ctx context.Context, opts Options) (core.DatasetRecords, error) {
	if opts.SearchTerm == "" {
		opts.SearchTerm = "TIM barrel"
	}
	if len(opts.Databases) == 0 {
		opts.Databases = []string{"pfam", "interpro"}
	}

	var dataset core.DatasetRecords
	type entryRef struct {
		database  string
		accession string
	}
	var refs []entryRef
	for _, database := range opts.Databases {
		entries, err := c.interpro.SearchStructuralEntries(ctx, database, opts.SearchTerm, opts.PageSize)
		if err != nil {
			return core.DatasetRecords{}, fmt.Errorf("search %s entries: %w", database, err)
		}
		for _, entry := range entries {
			dataset.Entries = append(dataset.Entries, entry)
			if accession, ok := entry["accession"].(string); ok && accession != "" {
				refs = append(refs, entryRef{database: database, accession: accession})
			}
		}
	}
	if opts.MaxEntries > 0 && len(refs) > opts.MaxEntries {
		refs = refs[:opts.MaxEntries]
	}

	seenProteins := make(map[string]struct{})
	for _, ref := range refs {
		proteins, err := c.interpro.ProteinsForEntry(ctx, ref.database, ref.accession, opts.TaxonomyID, opts.PageSize)
		if err != nil {
			return core.DatasetRecords{}, fmt.Errorf("proteins for %s: %w", ref.accession, err)
		}
		if opts.MaxProteinsPerEntry > 0 && len(proteins) > opts.MaxProteinsPerEntry {
			proteins = proteins[:opts.MaxProteinsPerEntry]
		}
		for _, protein := range proteins {
			dataset.Proteins = append(dataset.Proteins, protein)
			if !opts.IncludeIsoforms {
				continue
			}
			proteinID, ok := protein["protein_id"].(string)
			if !ok || proteinID == "" {
				continue
			}
			// The same protein can match several entries; fetch its
			// isoforms once.
			if _, seen := seenProteins[proteinID]; seen {
				continue
			}
			seenProteins[proteinID] = struct{}{}
			isoforms, err := c.uniprot.ProteinIsoforms(ctx, proteinID)
			if err != nil {
				return core.DatasetRecords{}, fmt.Errorf("isoforms for %s: %w", proteinID, err)
			}
			dataset.Isoforms = append(dataset.Isoforms, isoforms...)
		}
	}
	return dataset, nil
}
