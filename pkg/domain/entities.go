// Package domain defines the three-tier protein record hierarchy, the
// two-phase construction of records from untrusted input, and the rule
// evaluation primitives used by proteincore.
package domain

import "time"

// EntryType identifies the subtype of a structural-family entry. The wire
// values match the upstream databases the entries originate from.
type EntryType string

const (
	// EntryTypeFamily marks a protein-family entry (accessions prefixed "PF").
	EntryTypeFamily EntryType = "pfam"
	// EntryTypeDomainClass marks a domain-classification entry
	// (accessions prefixed "IPR").
	EntryTypeDomainClass EntryType = "interpro"
)

// EntityType identifies the tier of a record in Change records and
// persistence buckets.
type EntityType string

// Supported entity tiers.
const (
	EntityStructuralEntry EntityType = "structural_entry"
	EntityProteinRecord   EntityType = "protein_record"
	EntityProteinIsoform  EntityType = "protein_isoform"
)

// DefaultOrganism is assumed when a record omits its source organism.
const DefaultOrganism = "Homo sapiens"

// Base contains common bookkeeping fields for all stored records.
type Base struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StructuralEntry is the tier-1 record describing a protein-family or
// domain-classification group. The accession is the entry's identity and
// its prefix determines EntryType.
type StructuralEntry struct {
	Base
	Accession            string         `json:"accession"`
	EntryType            EntryType      `json:"entry_type"`
	Name                 string         `json:"name"`
	Description          *string        `json:"description,omitempty"`
	SubtypeDetail        *string        `json:"subtype_detail,omitempty"`
	StructuralAnnotation string         `json:"structural_annotation"`
	MemberSignatures     map[string]any `json:"member_signatures,omitempty"`
	LinkedDomainClassID  *string        `json:"linked_domain_class_id,omitempty"`
}

// IsFamily reports whether the entry is a protein family.
func (e StructuralEntry) IsFamily() bool { return e.EntryType == EntryTypeFamily }

// IsDomainClass reports whether the entry is a domain classification.
func (e StructuralEntry) IsDomainClass() bool { return e.EntryType == EntryTypeDomainClass }

// ProteinRecord is the tier-2 record for one protein associated with a
// structural entry. Identity is the composite (ProteinID,
// ParentEntryAccession) pair: the same protein may legitimately appear
// under a different parent entry as a distinct row.
type ProteinRecord struct {
	Base
	ProteinID            string         `json:"protein_id"`
	ParentEntryAccession string         `json:"parent_entry_accession"`
	Name                 *string        `json:"name,omitempty"`
	Organism             string         `json:"organism"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

// Key returns the composite identity key for the protein.
func (p ProteinRecord) Key() string {
	return p.ProteinID + "/" + p.ParentEntryAccession
}

// ProteinIsoform is the tier-3 record for one sequence variant of a
// protein. SequenceLength is declared by the source and must match the
// actual sequence; RegionOfInterest and ExonAnnotations keep the
// deserialized record shape they arrive in.
type ProteinIsoform struct {
	Base
	IsoformID        string         `json:"isoform_id"`
	ParentProteinID  string         `json:"parent_protein_id"`
	Sequence         string         `json:"sequence"`
	SequenceLength   int            `json:"sequence_length"`
	ExonAnnotations  map[string]any `json:"exon_annotations,omitempty"`
	ExonCount        *int           `json:"exon_count,omitempty"`
	RegionOfInterest map[string]any `json:"region_of_interest,omitempty"`
	Organism         string         `json:"organism"`
	Name             *string        `json:"name,omitempty"`
	Description      *string        `json:"description,omitempty"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions captured in the transaction audit trail.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)
