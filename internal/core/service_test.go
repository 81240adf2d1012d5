package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"proteincore/internal/infra/persistence/memory"
	"proteincore/pkg/domain"
)

type captureRecorder struct {
	mu           sync.Mutex
	observations []string
	failures     int
}

func (r *captureRecorder) Observe(_ context.Context, operation string, success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, operation)
	if !success {
		r.failures++
	}
}

func newTestService() (*Service, *captureRecorder) {
	rec := &captureRecorder{}
	store := memory.NewStore(NewRulesEngine())
	return NewService(store, WithMetricsRecorder(rec)), rec
}

func entryRecordMap(accession string) map[string]any {
	return map[string]any{
		"accession":             accession,
		"entry_type":            "pfam",
		"name":                  "Triosephosphate isomerase",
		"structural_annotation": "TIM barrel",
	}
}

func proteinRecordMap(id, parent string) map[string]any {
	return map[string]any{
		"protein_id":             id,
		"parent_entry_accession": parent,
		"organism":               "Homo sapiens",
	}
}

func isoformRecordMap(id, parent string) map[string]any {
	seq := strings.Repeat("ACDEFGHIKL", 6)
	return map[string]any{
		"isoform_id":        id,
		"parent_protein_id": parent,
		"sequence":          seq,
		"sequence_length":   float64(len(seq)),
	}
}

func TestServiceCreateHierarchy(t *testing.T) {
	svc, rec := newTestService()
	ctx := context.Background()

	entry, res, err := svc.CreateStructuralEntry(ctx, testEntry("PF00121"))
	if err != nil || !res.Valid {
		t.Fatalf("create entry: %v %+v", err, res)
	}
	if entry.CreatedAt.IsZero() {
		t.Fatalf("expected bookkeeping timestamps")
	}
	if _, res, err = svc.CreateProteinRecord(ctx, testProtein("P60174", "PF00121")); err != nil || !res.Valid {
		t.Fatalf("create protein: %v %+v", err, res)
	}
	if _, res, err = svc.CreateProteinIsoform(ctx, testIsoform("P60174-1", "P60174")); err != nil || !res.Valid {
		t.Fatalf("create isoform: %v %+v", err, res)
	}

	stats := svc.Stats()
	if stats.StructuralEntries != 1 || stats.ProteinRecords != 1 || stats.ProteinIsoforms != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(rec.observations) != 3 || rec.failures != 0 {
		t.Fatalf("expected three successful observations, got %+v", rec.observations)
	}
}

func TestServiceBlocksDanglingProtein(t *testing.T) {
	svc, rec := newTestService()
	_, res, err := svc.CreateProteinRecord(context.Background(), testProtein("P60174", "PF99999"))
	if err == nil || res.Valid {
		t.Fatalf("expected rule violation, got %v %+v", err, res)
	}
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected RuleViolationError, got %T", err)
	}
	if svc.Stats().ProteinRecords != 0 {
		t.Fatalf("blocked transaction must not persist anything")
	}
	if rec.failures != 1 {
		t.Fatalf("failure must be observed, got %d", rec.failures)
	}
}

func TestServiceDeleteOrder(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	mustCreateHierarchy(t, svc)

	if _, err := svc.DeleteStructuralEntry(ctx, "PF00121"); err == nil {
		t.Fatalf("entry with proteins must refuse deletion")
	}
	if _, err := svc.DeleteProteinRecord(ctx, "P60174", "PF00121"); err == nil {
		t.Fatalf("last protein with isoforms must refuse deletion")
	}
	if _, err := svc.DeleteProteinIsoform(ctx, "P60174-1"); err != nil {
		t.Fatalf("delete isoform: %v", err)
	}
	if _, err := svc.DeleteProteinRecord(ctx, "P60174", "PF00121"); err != nil {
		t.Fatalf("delete protein: %v", err)
	}
	if _, err := svc.DeleteStructuralEntry(ctx, "PF00121"); err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	stats := svc.Stats()
	if stats.StructuralEntries+stats.ProteinRecords+stats.ProteinIsoforms != 0 {
		t.Fatalf("expected empty store, got %+v", stats)
	}
}

func mustCreateHierarchy(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	if _, _, err := svc.CreateStructuralEntry(ctx, testEntry("PF00121")); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, _, err := svc.CreateProteinRecord(ctx, testProtein("P60174", "PF00121")); err != nil {
		t.Fatalf("create protein: %v", err)
	}
	if _, _, err := svc.CreateProteinIsoform(ctx, testIsoform("P60174-1", "P60174")); err != nil {
		t.Fatalf("create isoform: %v", err)
	}
}

func TestServiceSnapshotCapturesCommittedState(t *testing.T) {
	svc, _ := newTestService()
	mustCreateHierarchy(t, svc)

	snapshot := svc.Snapshot()
	if snapshot.GeneratedAt.IsZero() {
		t.Fatalf("GeneratedAt must be set")
	}
	if len(snapshot.Entries) != 1 || len(snapshot.Proteins) != 1 || len(snapshot.Isoforms) != 1 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if snapshot.Entries[0].Accession != "PF00121" || snapshot.Isoforms[0].IsoformID != "P60174-1" {
		t.Fatalf("unexpected snapshot contents %+v", snapshot)
	}
}

func TestImportDatasetStoresCleanBatch(t *testing.T) {
	svc, _ := newTestService()
	outcome, err := svc.ImportDataset(context.Background(), DatasetRecords{
		Entries:  []map[string]any{entryRecordMap("PF00121")},
		Proteins: []map[string]any{proteinRecordMap("P60174", "PF00121")},
		Isoforms: []map[string]any{isoformRecordMap("P60174-1", "P60174")},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if outcome.EntriesStored != 1 || outcome.ProteinsStored != 1 || outcome.IsoformsStored != 1 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if !outcome.Result.Valid || len(outcome.Rejected) != 0 {
		t.Fatalf("clean batch must import without findings: %+v", outcome)
	}
}

func TestImportDatasetRejectsIndividually(t *testing.T) {
	svc, _ := newTestService()
	badIsoform := isoformRecordMap("P60174-2", "P60174")
	badIsoform["sequence_length"] = float64(59)
	outcome, err := svc.ImportDataset(context.Background(), DatasetRecords{
		Entries: []map[string]any{entryRecordMap("PF00121")},
		Proteins: []map[string]any{
			proteinRecordMap("P60174", "PF00121"),
			proteinRecordMap("Q9H000", "PF99999"), // dangling parent
		},
		Isoforms: []map[string]any{
			isoformRecordMap("P60174-1", "P60174"),
			badIsoform, // declared length off by one
		},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if outcome.EntriesStored != 1 || outcome.ProteinsStored != 1 || outcome.IsoformsStored != 1 {
		t.Fatalf("survivors must still be stored: %+v", outcome)
	}
	if len(outcome.Rejected) != 2 {
		t.Fatalf("expected two rejections, got %+v", outcome.Rejected)
	}
	if outcome.Result.Valid {
		t.Fatalf("rejections must surface in the aggregate result")
	}
	keys := map[string]bool{}
	for _, r := range outcome.Rejected {
		keys[r.Key] = true
	}
	if !keys["Q9H000/PF99999"] || !keys["P60174-2"] {
		t.Fatalf("unexpected rejection keys %v", keys)
	}
}

func TestImportDatasetCascadesProteinRejection(t *testing.T) {
	svc, _ := newTestService()
	outcome, err := svc.ImportDataset(context.Background(), DatasetRecords{
		Entries:  []map[string]any{entryRecordMap("PF00121")},
		Proteins: []map[string]any{proteinRecordMap("Q9H000", "PF99999")},
		Isoforms: []map[string]any{isoformRecordMap("Q9H000-1", "Q9H000")},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if outcome.IsoformsStored != 0 {
		t.Fatalf("isoform of a rejected protein must not be stored: %+v", outcome)
	}
	if len(outcome.Rejected) != 2 {
		t.Fatalf("expected protein and cascaded isoform rejections, got %+v", outcome.Rejected)
	}
	var cascaded bool
	for _, r := range outcome.Rejected {
		if r.Entity == EntityProteinIsoform && r.Key == "Q9H000-1" {
			cascaded = true
			if r.Result.Errors[0].Field != "parent_protein_id" {
				t.Fatalf("unexpected cascade error %+v", r.Result.Errors[0])
			}
		}
	}
	if !cascaded {
		t.Fatalf("missing cascaded isoform rejection: %+v", outcome.Rejected)
	}
}

func TestImportDatasetDeduplicates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	mustCreateHierarchy(t, svc)

	outcome, err := svc.ImportDataset(ctx, DatasetRecords{
		Entries: []map[string]any{
			entryRecordMap("PF00121"), // already stored
			entryRecordMap("PF00121"), // batch-internal repeat
			entryRecordMap("PF00132"),
		},
		Proteins: []map[string]any{proteinRecordMap("P60174", "PF00121")},
		Isoforms: []map[string]any{isoformRecordMap("P60174-1", "P60174")},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if outcome.EntriesStored != 1 {
		t.Fatalf("only the new entry must be stored: %+v", outcome)
	}
	if len(outcome.Duplicates) != 4 {
		t.Fatalf("expected four duplicates, got %v", outcome.Duplicates)
	}
	perTier := map[EntityType]int{}
	for _, dup := range outcome.Duplicates {
		perTier[dup.Entity]++
	}
	if perTier[EntityStructuralEntry] != 2 || perTier[EntityProteinRecord] != 1 || perTier[EntityProteinIsoform] != 1 {
		t.Fatalf("duplicates must carry their tier: %v", outcome.Duplicates)
	}
	for _, dup := range outcome.Duplicates {
		if dup.Key == "" {
			t.Fatalf("duplicate without key: %v", outcome.Duplicates)
		}
	}
	if !outcome.Result.Valid {
		t.Fatalf("duplicates are skipped, not errors: %+v", outcome.Result)
	}
	if svc.Stats().StructuralEntries != 2 {
		t.Fatalf("unexpected entry count %d", svc.Stats().StructuralEntries)
	}
}

func TestImportDatasetRejectsMalformedRecords(t *testing.T) {
	svc, _ := newTestService()
	outcome, err := svc.ImportDataset(context.Background(), DatasetRecords{
		Entries: []map[string]any{{"name": "no accession"}},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(outcome.Rejected) != 1 || outcome.Rejected[0].Key != "entries[0]" {
		t.Fatalf("keyless records must be rejected positionally, got %+v", outcome.Rejected)
	}
}

func TestNoopAndExpvarRecorders(t *testing.T) {
	NoopMetricsRecorder{}.Observe(context.Background(), "op", true, time.Millisecond)

	rec := NewExpvarMetricsRecorder("")
	if rec.Name() == "" {
		t.Fatalf("expected generated expvar name")
	}
	rec.Observe(context.Background(), "import_dataset", true, 20*time.Millisecond)
	rec.Observe(context.Background(), "import_dataset", false, 10*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)
	snap := rec.Snapshot()
	if snap.Results["import_dataset"]["success"] != 1 || snap.Results["import_dataset"]["error"] != 1 {
		t.Fatalf("unexpected results %+v", snap.Results)
	}
	if snap.DurationsMS["import_dataset"] != 30 {
		t.Fatalf("unexpected duration total %v", snap.DurationsMS)
	}
}
