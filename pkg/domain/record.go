package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"proteincore/pkg/validation"
)

// Records arrive as plain field-name to value maps produced by an external
// ingestion process (deserialized API responses or persisted rows). Each
// entity is built in two phases: validate the assembled record, then
// construct an immutable entity only when validation passed. Constructors
// never return a partially valid entity.

var (
	accessionPattern = regexp.MustCompile(`^[A-Z0-9]+$`)
	alnumPattern     = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// ValidateStructuralEntry checks a tier-1 candidate record.
func ValidateStructuralEntry(record map[string]any) validation.Result {
	result := validation.NewResult()

	for _, field := range []string{"accession", "entry_type", "name", "structural_annotation"} {
		requireText(&result, record, field)
	}
	if !result.Valid {
		return result
	}

	accession := strings.TrimSpace(textField(record, "accession"))
	entryType := strings.TrimSpace(textField(record, "entry_type"))

	if !accessionPattern.MatchString(accession) {
		result.AddError(validation.Error{
			Kind:    validation.KindInvalidFormat,
			Field:   "accession",
			Message: "accession must contain only uppercase letters and numbers",
			Value:   accession,
		})
	}

	switch {
	case strings.HasPrefix(accession, "IPR"):
		if entryType != string(EntryTypeDomainClass) {
			result.AddError(validation.Error{
				Kind:    validation.KindInconsistentData,
				Field:   "entry_type",
				Message: fmt.Sprintf("accession prefix IPR requires entry_type %q, got %q", EntryTypeDomainClass, entryType),
				Value:   entryType,
				Context: map[string]any{"accession": accession},
			})
		}
	case strings.HasPrefix(accession, "PF"):
		if entryType != string(EntryTypeFamily) {
			result.AddError(validation.Error{
				Kind:    validation.KindInconsistentData,
				Field:   "entry_type",
				Message: fmt.Sprintf("accession prefix PF requires entry_type %q, got %q", EntryTypeFamily, entryType),
				Value:   entryType,
				Context: map[string]any{"accession": accession},
			})
		}
	default:
		result.AddError(validation.Error{
			Kind:    validation.KindInvalidFormat,
			Field:   "accession",
			Message: "accession must start with PF (family) or IPR (domain class)",
			Value:   accession,
		})
	}

	if entryType != string(EntryTypeFamily) && entryType != string(EntryTypeDomainClass) {
		result.AddError(validation.Error{
			Kind:    validation.KindInvalidFormat,
			Field:   "entry_type",
			Message: fmt.Sprintf("entry_type must be %q or %q", EntryTypeFamily, EntryTypeDomainClass),
			Value:   entryType,
		})
	}

	for _, field := range []string{"description", "subtype_detail", "linked_domain_class_id"} {
		rejectBlankText(&result, record, field)
	}

	return result
}

// NewStructuralEntryFromRecord validates and constructs a tier-1 entity.
// The entity is only meaningful when the returned result is valid.
func NewStructuralEntryFromRecord(record map[string]any) (StructuralEntry, validation.Result) {
	result := ValidateStructuralEntry(record)
	if !result.Valid {
		return StructuralEntry{}, result
	}
	entry := StructuralEntry{
		Accession:            strings.TrimSpace(textField(record, "accession")),
		EntryType:            EntryType(strings.TrimSpace(textField(record, "entry_type"))),
		Name:                 strings.TrimSpace(textField(record, "name")),
		Description:          optionalText(record, "description"),
		SubtypeDetail:        optionalText(record, "subtype_detail"),
		StructuralAnnotation: strings.TrimSpace(textField(record, "structural_annotation")),
		LinkedDomainClassID:  optionalText(record, "linked_domain_class_id"),
	}
	if sigs, ok := record["member_signatures"].(map[string]any); ok && len(sigs) > 0 {
		entry.MemberSignatures = sigs
	}
	return entry, result
}

// ValidateProteinRecord checks a tier-2 candidate record.
func ValidateProteinRecord(record map[string]any) validation.Result {
	result := validation.NewResult()

	for _, field := range []string{"protein_id", "parent_entry_accession"} {
		requireText(&result, record, field)
	}
	if !result.Valid {
		return result
	}

	proteinID := strings.TrimSpace(textField(record, "protein_id"))
	if !alnumPattern.MatchString(proteinID) {
		result.AddError(validation.Error{
			Kind:    validation.KindInvalidFormat,
			Field:   "protein_id",
			Message: "protein id must be alphanumeric",
			Value:   proteinID,
		})
	}

	rejectBlankText(&result, record, "name")
	rejectBlankText(&result, record, "organism")

	return result
}

// NewProteinRecordFromRecord validates and constructs a tier-2 entity.
// The protein id is normalized to upper case; organism defaults to
// DefaultOrganism when absent.
func NewProteinRecordFromRecord(record map[string]any) (ProteinRecord, validation.Result) {
	result := ValidateProteinRecord(record)
	if !result.Valid {
		return ProteinRecord{}, result
	}
	protein := ProteinRecord{
		ProteinID:            strings.ToUpper(strings.TrimSpace(textField(record, "protein_id"))),
		ParentEntryAccession: strings.TrimSpace(textField(record, "parent_entry_accession")),
		Name:                 optionalText(record, "name"),
		Organism:             DefaultOrganism,
	}
	if organism := strings.TrimSpace(textField(record, "organism")); organism != "" {
		protein.Organism = organism
	}
	if metadata, ok := record["metadata"].(map[string]any); ok && len(metadata) > 0 {
		protein.Metadata = metadata
	}
	return protein, result
}

// ValidateProteinIsoform checks a tier-3 candidate record: required
// fields, sequence alphabet, declared length against actual length, exon
// count against the exon list, and the optional region of interest against
// the declared length. Sub-validator errors and warnings are concatenated,
// with region errors qualified under "region_of_interest".
func ValidateProteinIsoform(record map[string]any) validation.Result {
	result := validation.NewResult()

	for _, field := range []string{"isoform_id", "parent_protein_id", "sequence", "sequence_length"} {
		if value, ok := record[field]; !ok || value == nil {
			result.AddError(validation.Error{
				Kind:    validation.KindMissingRequiredField,
				Field:   field,
				Message: "missing required field: " + field,
				Value:   value,
			})
		}
	}
	if !result.Valid {
		return result
	}

	sequence, seqOK := record["sequence"].(string)
	if !seqOK {
		result.AddError(validation.Error{
			Kind:    validation.KindInvalidFormat,
			Field:   "sequence",
			Message: "sequence must be a string",
			Value:   record["sequence"],
		})
		return result
	}

	// Isoform sequences come from curated sources that use ambiguity and
	// stop codes, so the extended alphabet applies here.
	seqResult := NewIsoformSequenceValidator().Validate(sequence)
	result.Extend("", seqResult)

	declaredLength, lengthOK := intField(record, "sequence_length")
	if !lengthOK {
		result.AddError(validation.Error{
			Kind:    validation.KindInvalidFormat,
			Field:   "sequence_length",
			Message: "sequence_length must be an integer",
			Value:   record["sequence_length"],
		})
		return result
	}

	actualLength := len(validation.Clean(sequence))
	if declaredLength != actualLength {
		result.AddError(validation.Error{
			Kind:    validation.KindInconsistentData,
			Field:   "sequence_length",
			Message: fmt.Sprintf("declared sequence length %d does not match actual length %d", declaredLength, actualLength),
			Value:   declaredLength,
			Context: map[string]any{"actual_length": actualLength},
		})
	}

	if raw, ok := record["region_of_interest"]; ok && raw != nil {
		region, isMap := raw.(map[string]any)
		switch {
		case !isMap:
			result.AddError(validation.Error{
				Kind:    validation.KindInvalidFormat,
				Field:   "region_of_interest",
				Message: "region_of_interest must be a map",
				Value:   raw,
			})
		case len(region) > 0:
			regionResult := validation.ValidateRegion(region, declaredLength)
			result.Extend("region_of_interest", regionResult)
		}
	}

	validateExons(&result, record)

	for _, field := range []string{"isoform_id", "parent_protein_id"} {
		if id, ok := record[field].(string); !ok || strings.TrimSpace(id) == "" {
			result.AddError(validation.Error{
				Kind:    validation.KindInvalidFormat,
				Field:   field,
				Message: field + " must be a non-empty string",
				Value:   record[field],
			})
		}
	}

	rejectBlankText(&result, record, "organism")
	rejectBlankText(&result, record, "name")

	return result
}

// NewIsoformSequenceValidator returns the sequence validator configured
// for isoform records.
func NewIsoformSequenceValidator() *validation.SequenceValidator {
	return validation.NewSequenceValidator(true)
}

// NewProteinIsoformFromRecord validates and constructs a tier-3 entity.
// The stored sequence is the cleaned (trimmed, upper-cased) form.
func NewProteinIsoformFromRecord(record map[string]any) (ProteinIsoform, validation.Result) {
	result := ValidateProteinIsoform(record)
	if !result.Valid {
		return ProteinIsoform{}, result
	}
	declaredLength, _ := intField(record, "sequence_length")
	isoform := ProteinIsoform{
		IsoformID:       strings.ToUpper(strings.TrimSpace(textField(record, "isoform_id"))),
		ParentProteinID: strings.ToUpper(strings.TrimSpace(textField(record, "parent_protein_id"))),
		Sequence:        validation.Clean(textField(record, "sequence")),
		SequenceLength:  declaredLength,
		Organism:        DefaultOrganism,
		Name:            optionalText(record, "name"),
		Description:     optionalText(record, "description"),
	}
	if organism := strings.TrimSpace(textField(record, "organism")); organism != "" {
		isoform.Organism = organism
	}
	if annotations, ok := record["exon_annotations"].(map[string]any); ok && len(annotations) > 0 {
		isoform.ExonAnnotations = annotations
	}
	if count, ok := intField(record, "exon_count"); ok {
		isoform.ExonCount = &count
	}
	if region, ok := record["region_of_interest"].(map[string]any); ok && len(region) > 0 {
		isoform.RegionOfInterest = region
	}
	return isoform, result
}

// validateExons cross-checks exon_count against the ordered exon list under
// exon_annotations["exons"]. Absence of either side is not an error.
func validateExons(result *validation.Result, record map[string]any) {
	raw, hasCount := record["exon_count"]
	if !hasCount || raw == nil {
		return
	}
	count, ok := intField(record, "exon_count")
	if !ok {
		result.AddError(validation.Error{
			Kind:    validation.KindInvalidFormat,
			Field:   "exon_count",
			Message: "exon_count must be an integer",
			Value:   raw,
		})
		return
	}
	if count < 0 {
		result.AddError(validation.Error{
			Kind:    validation.KindOutOfBounds,
			Field:   "exon_count",
			Message: "exon_count must be >= 0",
			Value:   count,
		})
		return
	}
	annotations, ok := record["exon_annotations"].(map[string]any)
	if !ok {
		return
	}
	exons, ok := annotations["exons"].([]any)
	if !ok {
		return
	}
	if count != len(exons) {
		result.AddError(validation.Error{
			Kind:    validation.KindInconsistentData,
			Field:   "exon_count",
			Message: fmt.Sprintf("exon count %d does not match annotations count %d", count, len(exons)),
			Value:   count,
			Context: map[string]any{"annotation_count": len(exons)},
		})
	}
}

// --- record field helpers ---

// requireText records a MissingRequiredField error when the named field is
// absent, blank, or not text.
func requireText(result *validation.Result, record map[string]any, field string) {
	value, ok := record[field]
	if ok {
		if s, isString := value.(string); isString {
			if strings.TrimSpace(s) != "" {
				return
			}
		} else if value != nil {
			result.AddError(validation.Error{
				Kind:    validation.KindInvalidFormat,
				Field:   field,
				Message: field + " must be a string",
				Value:   value,
			})
			return
		}
	}
	result.AddError(validation.Error{
		Kind:    validation.KindMissingRequiredField,
		Field:   field,
		Message: "missing required field: " + field,
		Value:   value,
	})
}

// rejectBlankText records an InvalidFormat error when an optional text
// field is present but whitespace-only.
func rejectBlankText(result *validation.Result, record map[string]any, field string) {
	value, ok := record[field]
	if !ok || value == nil {
		return
	}
	s, isString := value.(string)
	if !isString {
		result.AddError(validation.Error{
			Kind:    validation.KindInvalidFormat,
			Field:   field,
			Message: field + " must be a string",
			Value:   value,
		})
		return
	}
	if strings.TrimSpace(s) == "" {
		result.AddError(validation.Error{
			Kind:    validation.KindInvalidFormat,
			Field:   field,
			Message: field + " cannot be empty or whitespace-only",
			Value:   value,
		})
	}
}

func textField(record map[string]any, field string) string {
	s, _ := record[field].(string)
	return s
}

func optionalText(record map[string]any, field string) *string {
	s, ok := record[field].(string)
	if !ok {
		return nil
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// intField accepts Go integer types and whole JSON numbers, mirroring what
// a generic JSON decode produces.
func intField(record map[string]any, field string) (int, bool) {
	switch n := record[field].(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}
