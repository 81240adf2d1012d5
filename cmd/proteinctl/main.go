// Command proteinctl manages the protein dataset: it collects records from
// the public InterPro and UniProt APIs, validates dataset files, imports
// them into the configured store, and exports import reports to blob
// storage.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"proteincore/internal/blob"
	"proteincore/internal/collector"
	"proteincore/internal/core"
	"proteincore/internal/report"
	"proteincore/pkg/domain"
	"proteincore/pkg/validation"
)

var exitFunc = os.Exit

// main runs the command-line interface using the program arguments and exits
// the process with the status code returned by cli.
func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	var err error
	switch args[0] {
	case "collect":
		err = runCollect(args[1:], stdout, stderr)
	case "validate":
		err = runValidate(args[1:], stdout, stderr)
	case "import":
		err = runImport(args[1:], stdout, stderr)
	case "export":
		err = runExport(args[1:], stdout, stderr)
	case "stats":
		err = runStats(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		if errors.Is(err, errInvalidDataset) {
			return 1
		}
		fmt.Fprintf(stderr, "proteinctl: %v\n", err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: proteinctl <command> [flags]")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  collect   gather records from InterPro/UniProt and import them")
	fmt.Fprintln(w, "  validate  check a dataset file without storing anything")
	fmt.Fprintln(w, "  import    import a dataset file into the configured store")
	fmt.Fprintln(w, "  export    write the stored dataset to blob storage as a JSON snapshot")
	fmt.Fprintln(w, "  stats     print record counts from the configured store")
}

// errInvalidDataset marks validation failures so cli can exit 1 without a
// redundant error line; the findings are already on stdout.
var errInvalidDataset = errors.New("dataset invalid")

var (
	metricsOnce      sync.Once
	serviceMetrics   core.MetricsRecorder
	collectorMetrics *collector.Metrics
)

// initMetrics registers the process-wide recorders against the default
// Prometheus registry once. When registration fails (the collectors are
// already claimed) the expvar recorder keeps service observations flowing.
func initMetrics() (core.MetricsRecorder, *collector.Metrics) {
	metricsOnce.Do(func() {
		if rec, err := core.NewPrometheusMetricsRecorder(nil); err == nil {
			serviceMetrics = rec
		} else {
			serviceMetrics = core.NewExpvarMetricsRecorder("")
		}
		collectorMetrics, _ = collector.NewMetrics(nil)
	})
	return serviceMetrics, collectorMetrics
}

func openService() (*core.Service, error) {
	store, err := core.OpenPersistentStore(core.NewRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	rec, _ := initMetrics()
	return core.NewService(store, core.WithMetricsRecorder(rec)), nil
}

func runCollect(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := collector.DefaultOptions()
	var databases string
	fs.StringVar(&opts.SearchTerm, "search", opts.SearchTerm, "annotation search term")
	fs.StringVar(&databases, "databases", strings.Join(opts.Databases, ","), "comma-separated member databases")
	fs.StringVar(&opts.TaxonomyID, "taxonomy", opts.TaxonomyID, "NCBI taxonomy identifier")
	fs.IntVar(&opts.PageSize, "page-size", opts.PageSize, "API page size")
	fs.IntVar(&opts.MaxEntries, "max-entries", 0, "cap on entries expanded into proteins (0 = all)")
	fs.IntVar(&opts.MaxProteinsPerEntry, "max-proteins", 0, "cap on proteins per entry (0 = all)")
	fs.BoolVar(&opts.IncludeIsoforms, "isoforms", opts.IncludeIsoforms, "fetch isoforms from UniProt")
	exportReport := fs.Bool("export", false, "export the import report to blob storage")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts.Databases = splitList(databases)

	ctx := context.Background()
	_, apiMetrics := initMetrics()
	c := collector.New(
		collector.NewInterProClient(collector.WithInterProMetrics(apiMetrics)),
		collector.NewUniProtClient(collector.WithUniProtMetrics(apiMetrics)),
	)
	dataset, err := c.CollectDataset(ctx, opts)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	fmt.Fprintf(stdout, "collected %d entries, %d proteins, %d isoforms\n",
		len(dataset.Entries), len(dataset.Proteins), len(dataset.Isoforms))

	svc, err := openService()
	if err != nil {
		return err
	}
	return importAndReport(ctx, svc, dataset, *exportReport, stdout)
}

func runImport(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "dataset JSON file")
	exportReport := fs.Bool("export", false, "export the import report to blob storage")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dataset, err := loadDatasetFile(*file)
	if err != nil {
		return err
	}
	svc, err := openService()
	if err != nil {
		return err
	}
	return importAndReport(context.Background(), svc, dataset, *exportReport, stdout)
}

func importAndReport(ctx context.Context, svc *core.Service, dataset core.DatasetRecords, exportReport bool, stdout io.Writer) error {
	outcome, err := svc.ImportDataset(ctx, dataset)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	summary := report.NewSummary(outcome, svc.Stats())
	if err := printJSON(stdout, summary); err != nil {
		return err
	}
	if exportReport {
		store, err := blob.Open(ctx)
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
		info, err := report.NewExporter(store).Export(ctx, summary)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "report exported to %s\n", info.Key)
	}
	return nil
}

// runValidate checks a dataset file in isolation: each record goes through
// its constructor, then the hierarchical rules run over the file's own
// contents. Nothing is stored.
func runValidate(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "dataset JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dataset, err := loadDatasetFile(*file)
	if err != nil {
		return err
	}

	result := validation.NewResult()
	var entries []domain.StructuralEntry
	for i, record := range dataset.Entries {
		entry, res := domain.NewStructuralEntryFromRecord(record)
		result.Extend(fmt.Sprintf("entries[%d]", i), res)
		if res.Valid {
			entries = append(entries, entry)
		}
	}
	var proteins []domain.ProteinRecord
	for i, record := range dataset.Proteins {
		protein, res := domain.NewProteinRecordFromRecord(record)
		result.Extend(fmt.Sprintf("proteins[%d]", i), res)
		if res.Valid {
			proteins = append(proteins, protein)
		}
	}
	var isoforms []domain.ProteinIsoform
	for i, record := range dataset.Isoforms {
		isoform, res := domain.NewProteinIsoformFromRecord(record)
		result.Extend(fmt.Sprintf("isoforms[%d]", i), res)
		if res.Valid {
			isoforms = append(isoforms, isoform)
		}
	}
	result.Extend("", core.ValidateDataset(context.Background(), entries, proteins, isoforms))

	if err := printJSON(stdout, result); err != nil {
		return err
	}
	if !result.Valid {
		return errInvalidDataset
	}
	return nil
}

// runExport writes the committed dataset to blob storage as one JSON
// snapshot.
func runExport(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc, err := openService()
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := blob.Open(ctx)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	info, err := report.NewExporter(store).ExportDataset(ctx, svc.Snapshot())
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "dataset exported to %s\n", info.Key)
	return nil
}

func runStats(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc, err := openService()
	if err != nil {
		return err
	}
	return printJSON(stdout, svc.Stats())
}

type datasetFile struct {
	Entries  []map[string]any `json:"entries"`
	Proteins []map[string]any `json:"proteins"`
	Isoforms []map[string]any `json:"isoforms"`
}

func loadDatasetFile(path string) (core.DatasetRecords, error) {
	if strings.TrimSpace(path) == "" {
		return core.DatasetRecords{}, errors.New("missing -file")
	}
	payload, err := os.ReadFile(path) // #nosec G304: operator-supplied path
	if err != nil {
		return core.DatasetRecords{}, fmt.Errorf("read dataset: %w", err)
	}
	var file datasetFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return core.DatasetRecords{}, fmt.Errorf("parse dataset: %w", err)
	}
	return core.DatasetRecords{Entries: file.Entries, Proteins: file.Proteins, Isoforms: file.Isoforms}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
