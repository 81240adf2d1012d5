package core

import (
	"context"
	"fmt"

	"proteincore/pkg/domain"
	"proteincore/pkg/validation"
)

// ReferenceIntegrityRule enforces upward parent references across the
// three tiers: every protein's parent entry accession must exist among the
// structural entries, and every isoform's parent protein id must exist
// among the protein records. Parents without children are permitted.
func ReferenceIntegrityRule() domain.Rule {
	return referenceIntegrityRule{}
}

type referenceIntegrityRule struct{}

func (referenceIntegrityRule) Name() string { return "reference_integrity" }

func (referenceIntegrityRule) Evaluate(_ context.Context, view domain.DatasetView, _ []domain.Change) (validation.Result, error) {
	res := validation.NewResult()

	entries := view.ListStructuralEntries()
	accessions := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		accessions[entry.Accession] = struct{}{}
	}

	proteins := view.ListProteinRecords()
	// Isoform parents resolve by protein id alone: a protein listed under
	// any entry satisfies the reference.
	proteinIDs := make(map[string]struct{}, len(proteins))
	for _, protein := range proteins {
		proteinIDs[protein.ProteinID] = struct{}{}
		if _, ok := accessions[protein.ParentEntryAccession]; !ok {
			res.AddError(validation.Error{
				Kind:    validation.KindInconsistentData,
				Field:   "parent_entry_accession",
				Message: fmt.Sprintf("protein %s references missing structural entry %s", protein.ProteinID, protein.ParentEntryAccession),
				Value:   protein.ParentEntryAccession,
				Context: map[string]any{
					"entity_type": string(EntityProteinRecord),
					"entity_id":   protein.Key(),
				},
			})
		}
	}

	for _, isoform := range view.ListProteinIsoforms() {
		if _, ok := proteinIDs[isoform.ParentProteinID]; !ok {
			res.AddError(validation.Error{
				Kind:    validation.KindInconsistentData,
				Field:   "parent_protein_id",
				Message: fmt.Sprintf("isoform %s references missing protein %s", isoform.IsoformID, isoform.ParentProteinID),
				Value:   isoform.ParentProteinID,
				Context: map[string]any{
					"entity_type": string(EntityProteinIsoform),
					"entity_id":   isoform.IsoformID,
				},
			})
		}
	}

	return res, nil
}
