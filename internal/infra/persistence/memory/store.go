// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"proteincore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// StructuralEntry aliases domain.StructuralEntry for in-memory persistence operations.
	StructuralEntry = domain.StructuralEntry
	// ProteinRecord aliases domain.ProteinRecord.
	ProteinRecord = domain.ProteinRecord
	// ProteinIsoform aliases domain.ProteinIsoform.
	ProteinIsoform = domain.ProteinIsoform
	// Change aliases domain.Change captured per mutation in transactions.
	Change = domain.Change
	// Result aliases the validation result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// DatasetView aliases domain.DatasetView providing read-only state.
	DatasetView = domain.DatasetView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	entries  map[string]StructuralEntry // keyed by accession
	proteins map[string]ProteinRecord   // keyed by protein_id/parent accession
	isoforms map[string]ProteinIsoform  // keyed by isoform id
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Entries  map[string]StructuralEntry `json:"entries"`
	Proteins map[string]ProteinRecord   `json:"proteins"`
	Isoforms map[string]ProteinIsoform  `json:"isoforms"`
}

func newMemoryState() memoryState {
	return memoryState{
		entries:  make(map[string]StructuralEntry),
		proteins: make(map[string]ProteinRecord),
		isoforms: make(map[string]ProteinIsoform),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Entries:  make(map[string]StructuralEntry, len(state.entries)),
		Proteins: make(map[string]ProteinRecord, len(state.proteins)),
		Isoforms: make(map[string]ProteinIsoform, len(state.isoforms)),
	}
	for k, v := range state.entries {
		s.Entries[k] = cloneEntry(v)
	}
	for k, v := range state.proteins {
		s.Proteins[k] = cloneProtein(v)
	}
	for k, v := range state.isoforms {
		s.Isoforms[k] = cloneIsoform(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Entries {
		state.entries[k] = cloneEntry(v)
	}
	for k, v := range s.Proteins {
		state.proteins[k] = cloneProtein(v)
	}
	for k, v := range s.Isoforms {
		state.isoforms[k] = cloneIsoform(v)
	}
	return state
}

// migrateSnapshot normalizes snapshots loaded from durable backends: nil
// buckets become empty maps and records left dangling by out-of-band edits
// are dropped so a restored store always satisfies the hierarchy rules.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Entries == nil {
		snapshot.Entries = map[string]StructuralEntry{}
	}
	if snapshot.Proteins == nil {
		snapshot.Proteins = map[string]ProteinRecord{}
	}
	if snapshot.Isoforms == nil {
		snapshot.Isoforms = map[string]ProteinIsoform{}
	}

	for key, protein := range snapshot.Proteins {
		if _, ok := snapshot.Entries[protein.ParentEntryAccession]; !ok {
			delete(snapshot.Proteins, key)
		}
	}
	proteinIDs := make(map[string]struct{}, len(snapshot.Proteins))
	for _, protein := range snapshot.Proteins {
		proteinIDs[protein.ProteinID] = struct{}{}
	}
	for id, isoform := range snapshot.Isoforms {
		if _, ok := proteinIDs[isoform.ParentProteinID]; !ok {
			delete(snapshot.Isoforms, id)
		}
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.entries {
		cloned.entries[k] = cloneEntry(v)
	}
	for k, v := range s.proteins {
		cloned.proteins[k] = cloneProtein(v)
	}
	for k, v := range s.isoforms {
		cloned.isoforms[k] = cloneIsoform(v)
	}
	return cloned
}

func cloneEntry(e StructuralEntry) StructuralEntry {
	cp := e
	cp.Description = clonePtr(e.Description)
	cp.SubtypeDetail = clonePtr(e.SubtypeDetail)
	cp.LinkedDomainClassID = clonePtr(e.LinkedDomainClassID)
	cp.MemberSignatures = cloneAnyMap(e.MemberSignatures)
	return cp
}

func cloneProtein(p ProteinRecord) ProteinRecord {
	cp := p
	cp.Name = clonePtr(p.Name)
	cp.Metadata = cloneAnyMap(p.Metadata)
	return cp
}

func cloneIsoform(i ProteinIsoform) ProteinIsoform {
	cp := i
	cp.Name = clonePtr(i.Name)
	cp.Description = clonePtr(i.Description)
	cp.ExonCount = clonePtr(i.ExonCount)
	cp.ExonAnnotations = cloneAnyMap(i.ExonAnnotations)
	cp.RegionOfInterest = cloneAnyMap(i.RegionOfInterest)
	return cp
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneAnyValue(v)
	}
	return out
}

func cloneAnyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return cloneAnyMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = cloneAnyValue(item)
		}
		return out
	default:
		return v
	}
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	state   memoryState
	now     time.Time
	changes []Change
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// datasetView exposes a read-only snapshot of the transactional state to rules.
type datasetView struct {
	state *memoryState
}

func newDatasetView(state *memoryState) DatasetView {
	return datasetView{state: state}
}

// ListStructuralEntries returns the entries sorted by accession.
func (v datasetView) ListStructuralEntries() []StructuralEntry {
	out := make([]StructuralEntry, 0, len(v.state.entries))
	for _, e := range v.state.entries {
		out = append(out, cloneEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Accession < out[j].Accession })
	return out
}

// ListProteinRecords returns the proteins sorted by composite key.
func (v datasetView) ListProteinRecords() []ProteinRecord {
	out := make([]ProteinRecord, 0, len(v.state.proteins))
	for _, p := range v.state.proteins {
		out = append(out, cloneProtein(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// ListProteinIsoforms returns the isoforms sorted by isoform id.
func (v datasetView) ListProteinIsoforms() []ProteinIsoform {
	out := make([]ProteinIsoform, 0, len(v.state.isoforms))
	for _, i := range v.state.isoforms {
		out = append(out, cloneIsoform(i))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IsoformID < out[j].IsoformID })
	return out
}

// FindStructuralEntry retrieves an entry by accession from the snapshot.
func (v datasetView) FindStructuralEntry(accession string) (StructuralEntry, bool) {
	e, ok := v.state.entries[accession]
	if !ok {
		return StructuralEntry{}, false
	}
	return cloneEntry(e), true
}

// FindProteinRecord retrieves a protein by its composite key from the snapshot.
func (v datasetView) FindProteinRecord(proteinID, parentAccession string) (ProteinRecord, bool) {
	p, ok := v.state.proteins[proteinKey(proteinID, parentAccession)]
	if !ok {
		return ProteinRecord{}, false
	}
	return cloneProtein(p), true
}

// FindProteinIsoform retrieves an isoform by id from the snapshot.
func (v datasetView) FindProteinIsoform(isoformID string) (ProteinIsoform, bool) {
	i, ok := v.state.isoforms[isoformID]
	if !ok {
		return ProteinIsoform{}, false
	}
	return cloneIsoform(i), true
}

func proteinKey(proteinID, parentAccession string) string {
	return proteinID + "/" + parentAccession
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Committed state never changes unless every registered rule passes.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newDatasetView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if !res.Valid {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(view DatasetView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newDatasetView(&snapshot))
}

// GetStructuralEntry returns a committed entry by accession.
func (s *Store) GetStructuralEntry(accession string) (StructuralEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state.entries[accession]
	if !ok {
		return StructuralEntry{}, false
	}
	return cloneEntry(e), true
}

// ListStructuralEntries returns committed entries sorted by accession.
func (s *Store) ListStructuralEntries() []StructuralEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newDatasetView(&s.state).ListStructuralEntries()
}

// GetProteinRecord returns a committed protein by its composite key.
func (s *Store) GetProteinRecord(proteinID, parentAccession string) (ProteinRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.proteins[proteinKey(proteinID, parentAccession)]
	if !ok {
		return ProteinRecord{}, false
	}
	return cloneProtein(p), true
}

// ListProteinRecords returns committed proteins sorted by composite key.
func (s *Store) ListProteinRecords() []ProteinRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newDatasetView(&s.state).ListProteinRecords()
}

// GetProteinIsoform returns a committed isoform by id.
func (s *Store) GetProteinIsoform(isoformID string) (ProteinIsoform, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.state.isoforms[isoformID]
	if !ok {
		return ProteinIsoform{}, false
	}
	return cloneIsoform(i), true
}

// ListProteinIsoforms returns committed isoforms sorted by isoform id.
func (s *Store) ListProteinIsoforms() []ProteinIsoform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newDatasetView(&s.state).ListProteinIsoforms()
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() DatasetView {
	return newDatasetView(&tx.state)
}

// CreateStructuralEntry stores a new structural entry within the transaction.
func (tx *transaction) CreateStructuralEntry(e StructuralEntry) (StructuralEntry, error) {
	if e.Accession == "" {
		return StructuralEntry{}, fmt.Errorf("structural entry requires accession")
	}
	if _, exists := tx.state.entries[e.Accession]; exists {
		return StructuralEntry{}, fmt.Errorf("structural entry %q already exists", e.Accession)
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.entries[e.Accession] = cloneEntry(e)
	tx.recordChange(Change{Entity: domain.EntityStructuralEntry, Action: domain.ActionCreate, After: cloneEntry(e)})
	return cloneEntry(e), nil
}

// UpdateStructuralEntry mutates an entry using the provided mutator function.
func (tx *transaction) UpdateStructuralEntry(accession string, mutator func(*StructuralEntry) error) (StructuralEntry, error) {
	current, ok := tx.state.entries[accession]
	if !ok {
		return StructuralEntry{}, fmt.Errorf("structural entry %q not found", accession)
	}
	before := cloneEntry(current)
	if err := mutator(&current); err != nil {
		return StructuralEntry{}, err
	}
	current.Accession = accession
	current.UpdatedAt = tx.now
	tx.state.entries[accession] = cloneEntry(current)
	tx.recordChange(Change{Entity: domain.EntityStructuralEntry, Action: domain.ActionUpdate, Before: before, After: cloneEntry(current)})
	return cloneEntry(current), nil
}

// DeleteStructuralEntry removes an entry from the transaction state.
func (tx *transaction) DeleteStructuralEntry(accession string) error {
	if _, ok := tx.state.entries[accession]; !ok {
		return fmt.Errorf("structural entry %q not found", accession)
	}
	for _, protein := range tx.state.proteins {
		if protein.ParentEntryAccession == accession {
			return fmt.Errorf("structural entry %q still referenced by protein %q", accession, protein.Key())
		}
	}
	tx.recordChange(Change{Entity: domain.EntityStructuralEntry, Action: domain.ActionDelete, Before: cloneEntry(tx.state.entries[accession])})
	delete(tx.state.entries, accession)
	return nil
}

// CreateProteinRecord stores a new protein record.
func (tx *transaction) CreateProteinRecord(p ProteinRecord) (ProteinRecord, error) {
	if p.ProteinID == "" || p.ParentEntryAccession == "" {
		return ProteinRecord{}, fmt.Errorf("protein record requires protein id and parent accession")
	}
	key := p.Key()
	if _, exists := tx.state.proteins[key]; exists {
		return ProteinRecord{}, fmt.Errorf("protein %q already exists", key)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.proteins[key] = cloneProtein(p)
	tx.recordChange(Change{Entity: domain.EntityProteinRecord, Action: domain.ActionCreate, After: cloneProtein(p)})
	return cloneProtein(p), nil
}

// UpdateProteinRecord mutates an existing protein record.
func (tx *transaction) UpdateProteinRecord(proteinID, parentAccession string, mutator func(*ProteinRecord) error) (ProteinRecord, error) {
	key := proteinKey(proteinID, parentAccession)
	current, ok := tx.state.proteins[key]
	if !ok {
		return ProteinRecord{}, fmt.Errorf("protein %q not found", key)
	}
	before := cloneProtein(current)
	if err := mutator(&current); err != nil {
		return ProteinRecord{}, err
	}
	current.ProteinID = proteinID
	current.ParentEntryAccession = parentAccession
	current.UpdatedAt = tx.now
	tx.state.proteins[key] = cloneProtein(current)
	tx.recordChange(Change{Entity: domain.EntityProteinRecord, Action: domain.ActionUpdate, Before: before, After: cloneProtein(current)})
	return cloneProtein(current), nil
}

// DeleteProteinRecord removes a protein record from the transaction state.
// Deletion is refused while isoforms still resolve to the protein id and no
// other record carries the same id.
func (tx *transaction) DeleteProteinRecord(proteinID, parentAccession string) error {
	key := proteinKey(proteinID, parentAccession)
	if _, ok := tx.state.proteins[key]; !ok {
		return fmt.Errorf("protein %q not found", key)
	}
	remaining := 0
	for otherKey, other := range tx.state.proteins {
		if otherKey != key && other.ProteinID == proteinID {
			remaining++
		}
	}
	if remaining == 0 {
		for _, isoform := range tx.state.isoforms {
			if isoform.ParentProteinID == proteinID {
				return fmt.Errorf("protein %q still referenced by isoform %q", proteinID, isoform.IsoformID)
			}
		}
	}
	tx.recordChange(Change{Entity: domain.EntityProteinRecord, Action: domain.ActionDelete, Before: cloneProtein(tx.state.proteins[key])})
	delete(tx.state.proteins, key)
	return nil
}

// CreateProteinIsoform stores a new isoform record.
func (tx *transaction) CreateProteinIsoform(i ProteinIsoform) (ProteinIsoform, error) {
	if i.IsoformID == "" {
		return ProteinIsoform{}, fmt.Errorf("protein isoform requires isoform id")
	}
	if _, exists := tx.state.isoforms[i.IsoformID]; exists {
		return ProteinIsoform{}, fmt.Errorf("isoform %q already exists", i.IsoformID)
	}
	i.CreatedAt = tx.now
	i.UpdatedAt = tx.now
	tx.state.isoforms[i.IsoformID] = cloneIsoform(i)
	tx.recordChange(Change{Entity: domain.EntityProteinIsoform, Action: domain.ActionCreate, After: cloneIsoform(i)})
	return cloneIsoform(i), nil
}

// UpdateProteinIsoform mutates an existing isoform record.
func (tx *transaction) UpdateProteinIsoform(isoformID string, mutator func(*ProteinIsoform) error) (ProteinIsoform, error) {
	current, ok := tx.state.isoforms[isoformID]
	if !ok {
		return ProteinIsoform{}, fmt.Errorf("isoform %q not found", isoformID)
	}
	before := cloneIsoform(current)
	if err := mutator(&current); err != nil {
		return ProteinIsoform{}, err
	}
	current.IsoformID = isoformID
	current.UpdatedAt = tx.now
	tx.state.isoforms[isoformID] = cloneIsoform(current)
	tx.recordChange(Change{Entity: domain.EntityProteinIsoform, Action: domain.ActionUpdate, Before: before, After: cloneIsoform(current)})
	return cloneIsoform(current), nil
}

// DeleteProteinIsoform removes an isoform from the transaction state.
func (tx *transaction) DeleteProteinIsoform(isoformID string) error {
	if _, ok := tx.state.isoforms[isoformID]; !ok {
		return fmt.Errorf("isoform %q not found", isoformID)
	}
	tx.recordChange(Change{Entity: domain.EntityProteinIsoform, Action: domain.ActionDelete, Before: cloneIsoform(tx.state.isoforms[isoformID])})
	delete(tx.state.isoforms, isoformID)
	return nil
}
