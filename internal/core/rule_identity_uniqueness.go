package core

import (
	"context"
	"fmt"

	"proteincore/pkg/domain"
	"proteincore/pkg/validation"
)

// IdentityUniquenessRule detects identity-key collisions within a
// dataset: duplicate entry accessions, duplicate (protein id, parent
// accession) pairs, and duplicate isoform ids. Collisions are reported,
// never silently overwritten.
func IdentityUniquenessRule() domain.Rule {
	return identityUniquenessRule{}
}

type identityUniquenessRule struct{}

func (identityUniquenessRule) Name() string { return "identity_uniqueness" }

func (identityUniquenessRule) Evaluate(_ context.Context, view domain.DatasetView, _ []domain.Change) (validation.Result, error) {
	res := validation.NewResult()

	seenAccessions := make(map[string]struct{})
	for _, entry := range view.ListStructuralEntries() {
		if _, dup := seenAccessions[entry.Accession]; dup {
			res.AddError(validation.Error{
				Kind:    validation.KindInconsistentData,
				Field:   "accession",
				Message: fmt.Sprintf("duplicate structural entry accession %s", entry.Accession),
				Value:   entry.Accession,
				Context: map[string]any{
					"entity_type": string(EntityStructuralEntry),
					"entity_id":   entry.Accession,
				},
			})
			continue
		}
		seenAccessions[entry.Accession] = struct{}{}
	}

	seenProteins := make(map[string]struct{})
	for _, protein := range view.ListProteinRecords() {
		key := protein.Key()
		if _, dup := seenProteins[key]; dup {
			res.AddError(validation.Error{
				Kind:    validation.KindInconsistentData,
				Field:   "protein_id",
				Message: fmt.Sprintf("duplicate protein %s under entry %s", protein.ProteinID, protein.ParentEntryAccession),
				Value:   protein.ProteinID,
				Context: map[string]any{
					"entity_type": string(EntityProteinRecord),
					"entity_id":   key,
				},
			})
			continue
		}
		seenProteins[key] = struct{}{}
	}

	seenIsoforms := make(map[string]struct{})
	for _, isoform := range view.ListProteinIsoforms() {
		if _, dup := seenIsoforms[isoform.IsoformID]; dup {
			res.AddError(validation.Error{
				Kind:    validation.KindInconsistentData,
				Field:   "isoform_id",
				Message: fmt.Sprintf("duplicate isoform id %s", isoform.IsoformID),
				Value:   isoform.IsoformID,
				Context: map[string]any{
					"entity_type": string(EntityProteinIsoform),
					"entity_id":   isoform.IsoformID,
				},
			})
			continue
		}
		seenIsoforms[isoform.IsoformID] = struct{}{}
	}

	return res, nil
}
