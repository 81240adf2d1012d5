package core

import (
	"context"
	"fmt"
	"strings"

	"proteincore/pkg/domain"
	"proteincore/pkg/validation"
)

// MutationConsistencyRule re-checks entity-level consistency on the records
// a transaction creates or updates. Construction validates untrusted input
// once; update mutators can still break the same invariants afterwards, so
// the written state is checked again at commit.
func MutationConsistencyRule() domain.Rule {
	return mutationConsistencyRule{}
}

type mutationConsistencyRule struct{}

func (mutationConsistencyRule) Name() string { return "mutation_consistency" }

func (mutationConsistencyRule) Evaluate(_ context.Context, _ domain.DatasetView, changes []domain.Change) (validation.Result, error) {
	res := validation.NewResult()
	for _, change := range changes {
		if change.Action == domain.ActionDelete || change.After == nil {
			continue
		}
		switch after := change.After.(type) {
		case domain.StructuralEntry:
			checkEntryWrite(&res, after)
		case domain.ProteinIsoform:
			checkIsoformWrite(&res, after)
		}
	}
	return res, nil
}

func checkEntryWrite(res *validation.Result, entry domain.StructuralEntry) {
	var wantPrefix string
	switch entry.EntryType {
	case domain.EntryTypeFamily:
		wantPrefix = "PF"
	case domain.EntryTypeDomainClass:
		wantPrefix = "IPR"
	default:
		res.AddError(validation.Error{
			Kind:    validation.KindInvalidFormat,
			Field:   "entry_type",
			Message: fmt.Sprintf("unknown entry type %q on entry %s", entry.EntryType, entry.Accession),
			Value:   string(entry.EntryType),
			Context: map[string]any{
				"entity_type": string(EntityStructuralEntry),
				"entity_id":   entry.Accession,
			},
		})
		return
	}
	if !strings.HasPrefix(entry.Accession, wantPrefix) {
		res.AddError(validation.Error{
			Kind:    validation.KindInconsistentData,
			Field:   "accession",
			Message: fmt.Sprintf("accession %s does not match entry type %s", entry.Accession, entry.EntryType),
			Value:   entry.Accession,
			Context: map[string]any{
				"entity_type": string(EntityStructuralEntry),
				"entity_id":   entry.Accession,
			},
		})
	}
}

func checkIsoformWrite(res *validation.Result, isoform domain.ProteinIsoform) {
	if isoform.SequenceLength == len(isoform.Sequence) {
		return
	}
	res.AddError(validation.Error{
		Kind:    validation.KindInconsistentData,
		Field:   "sequence_length",
		Message: fmt.Sprintf("isoform %s declares length %d but sequence has %d residues", isoform.IsoformID, isoform.SequenceLength, len(isoform.Sequence)),
		Value:   isoform.SequenceLength,
		Context: map[string]any{
			"entity_type":   string(EntityProteinIsoform),
			"entity_id":     isoform.IsoformID,
			"actual_length": len(isoform.Sequence),
		},
	})
}
