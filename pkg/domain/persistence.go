package domain

import (
	"context"

	"proteincore/pkg/validation"
)

// Transaction exposes the domain operations that a persistence
// implementation must support within an atomic scope.
type Transaction interface {
	Snapshot() DatasetView
	CreateStructuralEntry(StructuralEntry) (StructuralEntry, error)
	UpdateStructuralEntry(accession string, mutator func(*StructuralEntry) error) (StructuralEntry, error)
	DeleteStructuralEntry(accession string) error
	CreateProteinRecord(ProteinRecord) (ProteinRecord, error)
	UpdateProteinRecord(proteinID, parentAccession string, mutator func(*ProteinRecord) error) (ProteinRecord, error)
	DeleteProteinRecord(proteinID, parentAccession string) error
	CreateProteinIsoform(ProteinIsoform) (ProteinIsoform, error)
	UpdateProteinIsoform(isoformID string, mutator func(*ProteinIsoform) error) (ProteinIsoform, error)
	DeleteProteinIsoform(isoformID string) error
}

// PersistentStore is a minimal abstraction over durable backends. It
// mirrors the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (validation.Result, error)
	View(ctx context.Context, fn func(DatasetView) error) error
	GetStructuralEntry(accession string) (StructuralEntry, bool)
	ListStructuralEntries() []StructuralEntry
	GetProteinRecord(proteinID, parentAccession string) (ProteinRecord, bool)
	ListProteinRecords() []ProteinRecord
	GetProteinIsoform(isoformID string) (ProteinIsoform, bool)
	ListProteinIsoforms() []ProteinIsoform
}
