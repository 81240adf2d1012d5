package core

import (
	"context"
	"fmt"
	"time"

	"proteincore/pkg/domain"
	"proteincore/pkg/validation"
)

// Service exposes higher-level transactional operations over a persistent
// store: single-entity creates for already-validated entities and bulk
// dataset import from untrusted records.
type Service struct {
	store   domain.PersistentStore
	metrics MetricsRecorder
}

// ServiceOption customizes service construction.
type ServiceOption func(*Service)

// WithMetricsRecorder attaches a metrics recorder to the service.
func WithMetricsRecorder(rec MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{store: store, metrics: NoopMetricsRecorder{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

func (s *Service) observe(ctx context.Context, operation string, started time.Time, err error) {
	s.metrics.Observe(ctx, operation, err == nil, time.Since(started))
}

// CreateStructuralEntry persists a new structural entry.
func (s *Service) CreateStructuralEntry(ctx context.Context, entry StructuralEntry) (StructuralEntry, Result, error) {
	started := time.Now()
	var created StructuralEntry
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateStructuralEntry(entry)
		return err
	})
	s.observe(ctx, "create_structural_entry", started, err)
	return created, res, err
}

// CreateProteinRecord persists a new protein record.
func (s *Service) CreateProteinRecord(ctx context.Context, protein ProteinRecord) (ProteinRecord, Result, error) {
	started := time.Now()
	var created ProteinRecord
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateProteinRecord(protein)
		return err
	})
	s.observe(ctx, "create_protein_record", started, err)
	return created, res, err
}

// CreateProteinIsoform persists a new protein isoform.
func (s *Service) CreateProteinIsoform(ctx context.Context, isoform ProteinIsoform) (ProteinIsoform, Result, error) {
	started := time.Now()
	var created ProteinIsoform
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateProteinIsoform(isoform)
		return err
	})
	s.observe(ctx, "create_protein_isoform", started, err)
	return created, res, err
}

// DeleteStructuralEntry removes a structural entry.
func (s *Service) DeleteStructuralEntry(ctx context.Context, accession string) (Result, error) {
	started := time.Now()
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteStructuralEntry(accession)
	})
	s.observe(ctx, "delete_structural_entry", started, err)
	return res, err
}

// DeleteProteinRecord removes a protein record by its composite key.
func (s *Service) DeleteProteinRecord(ctx context.Context, proteinID, parentAccession string) (Result, error) {
	started := time.Now()
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteProteinRecord(proteinID, parentAccession)
	})
	s.observe(ctx, "delete_protein_record", started, err)
	return res, err
}

// DeleteProteinIsoform removes an isoform record.
func (s *Service) DeleteProteinIsoform(ctx context.Context, isoformID string) (Result, error) {
	started := time.Now()
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteProteinIsoform(isoformID)
	})
	s.observe(ctx, "delete_protein_isoform", started, err)
	return res, err
}

// DatasetStats counts stored records per tier.
type DatasetStats struct {
	StructuralEntries int `json:"structural_entries"`
	ProteinRecords    int `json:"protein_records"`
	ProteinIsoforms   int `json:"protein_isoforms"`
}

// Stats reports record counts from committed state.
func (s *Service) Stats() DatasetStats {
	return DatasetStats{
		StructuralEntries: len(s.store.ListStructuralEntries()),
		ProteinRecords:    len(s.store.ListProteinRecords()),
		ProteinIsoforms:   len(s.store.ListProteinIsoforms()),
	}
}

// DatasetSnapshot is the full committed dataset, tier by tier, in store
// order.
type DatasetSnapshot struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Entries     []StructuralEntry `json:"entries"`
	Proteins    []ProteinRecord   `json:"proteins"`
	Isoforms    []ProteinIsoform  `json:"isoforms"`
}

// Snapshot captures the committed dataset for export.
func (s *Service) Snapshot() DatasetSnapshot {
	return DatasetSnapshot{
		GeneratedAt: time.Now().UTC(),
		Entries:     s.store.ListStructuralEntries(),
		Proteins:    s.store.ListProteinRecords(),
		Isoforms:    s.store.ListProteinIsoforms(),
	}
}

// DatasetRecords carries one candidate dataset of untrusted records, tier
// by tier, in source order.
type DatasetRecords struct {
	Entries  []map[string]any
	Proteins []map[string]any
	Isoforms []map[string]any
}

// RejectedRecord reports one record that failed validation during import.
type RejectedRecord struct {
	Entity EntityType        `json:"entity_type"`
	Key    string            `json:"key"`
	Result validation.Result `json:"result"`
}

// DuplicateRecord reports one record skipped because its identity already
// exists in the store or earlier in the batch.
type DuplicateRecord struct {
	Entity EntityType `json:"entity_type"`
	Key    string     `json:"key"`
}

// ImportOutcome summarizes a bulk dataset import.
type ImportOutcome struct {
	EntriesStored  int               `json:"entries_stored"`
	ProteinsStored int               `json:"proteins_stored"`
	IsoformsStored int               `json:"isoforms_stored"`
	Rejected       []RejectedRecord  `json:"rejected,omitempty"`
	Duplicates     []DuplicateRecord `json:"duplicates,omitempty"`
	// Result aggregates every validation finding for the batch. Rejections
	// never abort the rest of the import.
	Result validation.Result `json:"result"`
}

// ImportDataset validates and stores one candidate dataset. Each record is
// built through its two-phase constructor; construction failures reject
// only that record. The hierarchical rules then run over the union of
// committed state and the accepted batch, rejecting records with dangling
// parent references. Surviving records are committed in one transaction.
func (s *Service) ImportDataset(ctx context.Context, records DatasetRecords) (ImportOutcome, error) {
	started := time.Now()
	outcome := ImportOutcome{Result: validation.NewResult()}

	seenEntries := make(map[string]struct{})
	for _, entry := range s.store.ListStructuralEntries() {
		seenEntries[entry.Accession] = struct{}{}
	}
	var entries []StructuralEntry
	for i, record := range records.Entries {
		entry, res := domain.NewStructuralEntryFromRecord(record)
		key := recordKey(record, "accession", "entries", i)
		if !res.Valid {
			outcome.reject(EntityStructuralEntry, key, res)
			continue
		}
		if _, dup := seenEntries[entry.Accession]; dup {
			outcome.Duplicates = append(outcome.Duplicates, DuplicateRecord{Entity: EntityStructuralEntry, Key: entry.Accession})
			continue
		}
		seenEntries[entry.Accession] = struct{}{}
		entries = append(entries, entry)
		outcome.Result.Warnings = append(outcome.Result.Warnings, res.Warnings...)
	}

	seenProteins := make(map[string]struct{})
	for _, protein := range s.store.ListProteinRecords() {
		seenProteins[protein.Key()] = struct{}{}
	}
	var proteins []ProteinRecord
	for i, record := range records.Proteins {
		protein, res := domain.NewProteinRecordFromRecord(record)
		key := recordKey(record, "protein_id", "proteins", i)
		if !res.Valid {
			outcome.reject(EntityProteinRecord, key, res)
			continue
		}
		if _, dup := seenProteins[protein.Key()]; dup {
			outcome.Duplicates = append(outcome.Duplicates, DuplicateRecord{Entity: EntityProteinRecord, Key: protein.Key()})
			continue
		}
		seenProteins[protein.Key()] = struct{}{}
		proteins = append(proteins, protein)
		outcome.Result.Warnings = append(outcome.Result.Warnings, res.Warnings...)
	}

	seenIsoforms := make(map[string]struct{})
	for _, isoform := range s.store.ListProteinIsoforms() {
		seenIsoforms[isoform.IsoformID] = struct{}{}
	}
	var isoforms []ProteinIsoform
	for i, record := range records.Isoforms {
		isoform, res := domain.NewProteinIsoformFromRecord(record)
		key := recordKey(record, "isoform_id", "isoforms", i)
		if !res.Valid {
			outcome.reject(EntityProteinIsoform, key, res)
			continue
		}
		if _, dup := seenIsoforms[isoform.IsoformID]; dup {
			outcome.Duplicates = append(outcome.Duplicates, DuplicateRecord{Entity: EntityProteinIsoform, Key: isoform.IsoformID})
			continue
		}
		seenIsoforms[isoform.IsoformID] = struct{}{}
		isoforms = append(isoforms, isoform)
		outcome.Result.Warnings = append(outcome.Result.Warnings, res.Warnings...)
	}

	// Hierarchical pass over committed state plus the accepted batch:
	// records with dangling references are rejected individually, the rest
	// of the batch proceeds.
	breakdown := ValidateDatasetDetailed(ctx,
		append(s.store.ListStructuralEntries(), entries...),
		append(s.store.ListProteinRecords(), proteins...),
		append(s.store.ListProteinIsoforms(), isoforms...),
	)
	proteins = filterProteins(proteins, breakdown, &outcome)

	// Rejecting a protein can cut its isoforms loose, so the isoform pass
	// re-checks parents against the set that actually survived.
	validParents := make(map[string]struct{})
	for _, protein := range s.store.ListProteinRecords() {
		validParents[protein.ProteinID] = struct{}{}
	}
	for _, protein := range proteins {
		validParents[protein.ProteinID] = struct{}{}
	}
	isoforms = filterIsoforms(isoforms, breakdown, validParents, &outcome)

	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for _, entry := range entries {
			if _, err := tx.CreateStructuralEntry(entry); err != nil {
				return err
			}
		}
		for _, protein := range proteins {
			if _, err := tx.CreateProteinRecord(protein); err != nil {
				return err
			}
		}
		for _, isoform := range isoforms {
			if _, err := tx.CreateProteinIsoform(isoform); err != nil {
				return err
			}
		}
		return nil
	})
	s.observe(ctx, "import_dataset", started, err)
	if err != nil {
		return outcome, err
	}

	outcome.EntriesStored = len(entries)
	outcome.ProteinsStored = len(proteins)
	outcome.IsoformsStored = len(isoforms)
	return outcome, nil
}

func (o *ImportOutcome) reject(entity EntityType, key string, res validation.Result) {
	o.Rejected = append(o.Rejected, RejectedRecord{Entity: entity, Key: key, Result: res})
	o.Result.Extend("", res)
}

func filterProteins(proteins []ProteinRecord, breakdown DatasetBreakdown, outcome *ImportOutcome) []ProteinRecord {
	kept := proteins[:0]
	for _, protein := range proteins {
		key := string(EntityProteinRecord) + "/" + protein.Key()
		if res, bad := breakdown.PerEntity[key]; bad {
			outcome.reject(EntityProteinRecord, protein.Key(), res)
			continue
		}
		kept = append(kept, protein)
	}
	return kept
}

func filterIsoforms(isoforms []ProteinIsoform, breakdown DatasetBreakdown, validParents map[string]struct{}, outcome *ImportOutcome) []ProteinIsoform {
	kept := isoforms[:0]
	for _, isoform := range isoforms {
		key := string(EntityProteinIsoform) + "/" + isoform.IsoformID
		if res, bad := breakdown.PerEntity[key]; bad {
			outcome.reject(EntityProteinIsoform, isoform.IsoformID, res)
			continue
		}
		if _, ok := validParents[isoform.ParentProteinID]; !ok {
			res := validation.NewResult()
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
			outcome.reject(EntityProteinIsoform, isoform.IsoformID, res)
			continue
		}
		kept = append(kept, isoform)
	}
	return kept
}

func recordKey(record map[string]any, idField, tier string, index int) string {
	if id, ok := record[idField].(string); ok && id != "" {
		return id
	}
	return fmt.Sprintf("%s[%d]", tier, index)
}
