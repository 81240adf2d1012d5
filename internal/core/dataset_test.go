package core

import (
	"context"
	"strings"
	"testing"

	"proteincore/pkg/domain"
	"proteincore/pkg/validation"
)

func testEntry(accession string) domain.StructuralEntry {
	entryType := domain.EntryTypeFamily
	if strings.HasPrefix(accession, "IPR") {
		entryType = domain.EntryTypeDomainClass
	}
	return domain.StructuralEntry{
		Accession:            accession,
		EntryType:            entryType,
		Name:                 "Triosephosphate isomerase",
		StructuralAnnotation: "TIM barrel",
	}
}

func testProtein(id, parent string) domain.ProteinRecord {
	return domain.ProteinRecord{
		ProteinID:            id,
		ParentEntryAccession: parent,
		Organism:             domain.DefaultOrganism,
	}
}

func testIsoform(id, parent string) domain.ProteinIsoform {
	seq := strings.Repeat("ACDEFGHIKL", 6)
	return domain.ProteinIsoform{
		IsoformID:       id,
		ParentProteinID: parent,
		Sequence:        seq,
		SequenceLength:  len(seq),
		Organism:        domain.DefaultOrganism,
	}
}

func TestValidateDatasetAcceptsConsistentHierarchy(t *testing.T) {
	res := ValidateDataset(context.Background(),
		[]domain.StructuralEntry{testEntry("PF00121"), testEntry("IPR013785")},
		[]domain.ProteinRecord{testProtein("P60174", "PF00121"), testProtein("P60174", "IPR013785")},
		[]domain.ProteinIsoform{testIsoform("P60174-1", "P60174")},
	)
	if !res.Valid {
		t.Fatalf("expected valid dataset: %s", res.ErrorMessage())
	}
}

func TestValidateDatasetAllowsChildlessParents(t *testing.T) {
	res := ValidateDataset(context.Background(),
		[]domain.StructuralEntry{testEntry("PF00121")},
		[]domain.ProteinRecord{testProtein("P60174", "PF00121")},
		nil,
	)
	if !res.Valid {
		t.Fatalf("parents without children must pass: %s", res.ErrorMessage())
	}
}

func TestReferenceIntegrityRuleFlagsDanglingParents(t *testing.T) {
	res := ValidateDataset(context.Background(),
		[]domain.StructuralEntry{testEntry("PF00121")},
		[]domain.ProteinRecord{testProtein("P60174", "PF99999")},
		[]domain.ProteinIsoform{testIsoform("Q9H000-1", "Q9H000")},
	)
	if res.Valid || len(res.Errors) != 2 {
		t.Fatalf("expected two dangling references, got %+v", res.Errors)
	}
	for _, e := range res.Errors {
		if e.Kind != validation.KindInconsistentData {
			t.Fatalf("unexpected kind %s", e.Kind)
		}
	}
	if res.Errors[0].Field != "parent_entry_accession" || res.Errors[1].Field != "parent_protein_id" {
		t.Fatalf("unexpected fields %q %q", res.Errors[0].Field, res.Errors[1].Field)
	}
}

func TestReferenceIntegrityResolvesProteinByIDAlone(t *testing.T) {
	// The isoform's parent protein is listed under a different entry than
	// the one it conceptually belongs to; the id alone satisfies it.
	res := ValidateDataset(context.Background(),
		[]domain.StructuralEntry{testEntry("PF00121"), testEntry("IPR013785")},
		[]domain.ProteinRecord{testProtein("P60174", "IPR013785")},
		[]domain.ProteinIsoform{testIsoform("P60174-1", "P60174")},
	)
	if !res.Valid {
		t.Fatalf("protein id under any entry satisfies the reference: %s", res.ErrorMessage())
	}
}

func TestIdentityUniquenessRule(t *testing.T) {
	res := ValidateDataset(context.Background(),
		[]domain.StructuralEntry{testEntry("PF00121"), testEntry("PF00121")},
		[]domain.ProteinRecord{testProtein("P60174", "PF00121"), testProtein("P60174", "PF00121")},
		[]domain.ProteinIsoform{testIsoform("P60174-1", "P60174"), testIsoform("P60174-1", "P60174")},
	)
	if res.Valid || len(res.Errors) != 3 {
		t.Fatalf("expected a collision per tier, got %+v", res.Errors)
	}
}

func TestIdentityUniquenessAllowsSameProteinUnderDifferentEntries(t *testing.T) {
	res := ValidateDataset(context.Background(),
		[]domain.StructuralEntry{testEntry("PF00121"), testEntry("IPR013785")},
		[]domain.ProteinRecord{testProtein("P60174", "PF00121"), testProtein("P60174", "IPR013785")},
		nil,
	)
	if !res.Valid {
		t.Fatalf("composite protein identity must permit this: %s", res.ErrorMessage())
	}
}

func TestValidateDatasetDetailedGroupsByEntity(t *testing.T) {
	breakdown := ValidateDatasetDetailed(context.Background(),
		[]domain.StructuralEntry{testEntry("PF00121")},
		[]domain.ProteinRecord{testProtein("P60174", "PF99999")},
		[]domain.ProteinIsoform{testIsoform("Q9H000-1", "Q9H000"), testIsoform("P60174-1", "P60174")},
	)
	if breakdown.Aggregate.Valid {
		t.Fatalf("expected aggregate failure")
	}
	if len(breakdown.PerEntity) != 2 {
		t.Fatalf("expected two offending entities, got %v", breakdown.PerEntity)
	}
	if _, ok := breakdown.PerEntity["protein_record/P60174/PF99999"]; !ok {
		t.Fatalf("missing protein entry in breakdown: %v", breakdown.PerEntity)
	}
	if _, ok := breakdown.PerEntity["protein_isoform/Q9H000-1"]; !ok {
		t.Fatalf("missing isoform entry in breakdown: %v", breakdown.PerEntity)
	}
}

func TestDatasetViewLookups(t *testing.T) {
	view := NewDatasetView(
		[]domain.StructuralEntry{testEntry("PF00121")},
		[]domain.ProteinRecord{testProtein("P60174", "PF00121")},
		[]domain.ProteinIsoform{testIsoform("P60174-1", "P60174")},
	)
	if _, ok := view.FindStructuralEntry("PF00121"); !ok {
		t.Fatalf("expected entry lookup to hit")
	}
	if _, ok := view.FindProteinRecord("P60174", "PF00121"); !ok {
		t.Fatalf("expected protein lookup to hit")
	}
	if _, ok := view.FindProteinRecord("P60174", "IPR013785"); ok {
		t.Fatalf("protein lookup must match the full composite key")
	}
	if _, ok := view.FindProteinIsoform("P60174-9"); ok {
		t.Fatalf("expected isoform lookup to miss")
	}
}
