package core

import (
	"context"

	"proteincore/pkg/domain"
	"proteincore/pkg/validation"
)

// DefaultRules returns the hierarchical integrity rules applied to every
// dataset, in evaluation order.
func DefaultRules() []domain.Rule {
	return []domain.Rule{
		IdentityUniquenessRule(),
		ReferenceIntegrityRule(),
		MutationConsistencyRule(),
	}
}

// NewRulesEngine constructs a rules engine loaded with the default
// hierarchical rules.
func NewRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	for _, rule := range DefaultRules() {
		engine.Register(rule)
	}
	return engine
}

// datasetSnapshot adapts plain entity slices to domain.DatasetView,
// preserving the caller's ordering so violations are reported in input
// order.
type datasetSnapshot struct {
	entries  []domain.StructuralEntry
	proteins []domain.ProteinRecord
	isoforms []domain.ProteinIsoform
}

// NewDatasetView wraps one materialized candidate dataset for rule
// evaluation.
func NewDatasetView(entries []domain.StructuralEntry, proteins []domain.ProteinRecord, isoforms []domain.ProteinIsoform) domain.DatasetView {
	return datasetSnapshot{entries: entries, proteins: proteins, isoforms: isoforms}
}

func (s datasetSnapshot) ListStructuralEntries() []domain.StructuralEntry {
	out := make([]domain.StructuralEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s datasetSnapshot) ListProteinRecords() []domain.ProteinRecord {
	out := make([]domain.ProteinRecord, len(s.proteins))
	copy(out, s.proteins)
	return out
}

func (s datasetSnapshot) ListProteinIsoforms() []domain.ProteinIsoform {
	out := make([]domain.ProteinIsoform, len(s.isoforms))
	copy(out, s.isoforms)
	return out
}

func (s datasetSnapshot) FindStructuralEntry(accession string) (domain.StructuralEntry, bool) {
	for _, entry := range s.entries {
		if entry.Accession == accession {
			return entry, true
		}
	}
	return domain.StructuralEntry{}, false
}

func (s datasetSnapshot) FindProteinRecord(proteinID, parentAccession string) (domain.ProteinRecord, bool) {
	for _, protein := range s.proteins {
		if protein.ProteinID == proteinID && protein.ParentEntryAccession == parentAccession {
			return protein, true
		}
	}
	return domain.ProteinRecord{}, false
}

func (s datasetSnapshot) FindProteinIsoform(isoformID string) (domain.ProteinIsoform, bool) {
	for _, isoform := range s.isoforms {
		if isoform.IsoformID == isoformID {
			return isoform, true
		}
	}
	return domain.ProteinIsoform{}, false
}

// ValidateDataset runs the hierarchical integrity rules over one candidate
// dataset and returns the aggregate verdict. All violations are collected;
// the scan never aborts early.
func ValidateDataset(ctx context.Context, entries []domain.StructuralEntry, proteins []domain.ProteinRecord, isoforms []domain.ProteinIsoform) validation.Result {
	view := NewDatasetView(entries, proteins, isoforms)
	// Default rules cannot fail to evaluate; they only report findings.
	// Batch validation has no mutation set, so changes is nil.
	res, _ := NewRulesEngine().Evaluate(ctx, view, nil)
	return res
}

// DatasetBreakdown itemizes an aggregate dataset verdict per offending
// entity. Entities that produced no findings do not appear.
type DatasetBreakdown struct {
	Aggregate validation.Result
	PerEntity map[string]validation.Result
}

// ValidateDatasetDetailed runs ValidateDataset and additionally groups the
// findings by the offending entity key ("<tier>/<identity>").
func ValidateDatasetDetailed(ctx context.Context, entries []domain.StructuralEntry, proteins []domain.ProteinRecord, isoforms []domain.ProteinIsoform) DatasetBreakdown {
	aggregate := ValidateDataset(ctx, entries, proteins, isoforms)
	breakdown := DatasetBreakdown{
		Aggregate: aggregate,
		PerEntity: make(map[string]validation.Result),
	}
	for _, err := range aggregate.Errors {
		key := entityKey(err)
		per := breakdown.PerEntity[key]
		if len(per.Errors) == 0 {
			per = validation.NewResult()
		}
		per.AddError(err)
		breakdown.PerEntity[key] = per
	}
	return breakdown
}

func entityKey(err validation.Error) string {
	tier, _ := err.Context["entity_type"].(string)
	id, _ := err.Context["entity_id"].(string)
	if tier == "" && id == "" {
		return "dataset"
	}
	return tier + "/" + id
}
