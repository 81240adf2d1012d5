// Package report summarizes dataset imports and exports the summaries as
// immutable JSON documents in the blob store.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"proteincore/internal/blob"
	"proteincore/internal/core"
)

// RejectedItem describes one record that failed validation, flattened for
// human consumption.
type RejectedItem struct {
	Entity string   `json:"entity_type"`
	Key    string   `json:"key"`
	Errors []string `json:"errors"`
}

// TierCounts breaks an import down for one hierarchy tier.
type TierCounts struct {
	Stored     int `json:"stored"`
	Rejected   int `json:"rejected"`
	Duplicates int `json:"duplicates"`
}

// Summary is the exported shape of one import run.
type Summary struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Valid       bool              `json:"valid"`
	Entries     TierCounts        `json:"structural_entries"`
	Proteins    TierCounts        `json:"protein_records"`
	Isoforms    TierCounts        `json:"protein_isoforms"`
	Rejected    []RejectedItem    `json:"rejected,omitempty"`
	Duplicates  []string          `json:"duplicates,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
	Totals      core.DatasetStats `json:"stored_totals"`
}

// NewSummary flattens an import outcome together with the post-import
// store totals.
func NewSummary(outcome core.ImportOutcome, totals core.DatasetStats) Summary {
	summary := Summary{
		GeneratedAt: time.Now().UTC(),
		Valid:       outcome.Result.Valid,
		Entries:     TierCounts{Stored: outcome.EntriesStored},
		Proteins:    TierCounts{Stored: outcome.ProteinsStored},
		Isoforms:    TierCounts{Stored: outcome.IsoformsStored},
		Totals:      totals,
	}
	for _, dup := range outcome.Duplicates {
		summary.Duplicates = append(summary.Duplicates, dup.Key)
		switch dup.Entity {
		case core.EntityStructuralEntry:
			summary.Entries.Duplicates++
		case core.EntityProteinRecord:
			summary.Proteins.Duplicates++
		case core.EntityProteinIsoform:
			summary.Isoforms.Duplicates++
		}
	}
	for _, rejected := range outcome.Rejected {
		item := RejectedItem{Entity: string(rejected.Entity), Key: rejected.Key}
		for _, err := range rejected.Result.Errors {
			msg := err.Message
			if err.Field != "" {
				msg = err.Field + ": " + msg
			}
			item.Errors = append(item.Errors, msg)
		}
		summary.Rejected = append(summary.Rejected, item)
		switch rejected.Entity {
		case core.EntityStructuralEntry:
			summary.Entries.Rejected++
		case core.EntityProteinRecord:
			summary.Proteins.Rejected++
		case core.EntityProteinIsoform:
			summary.Isoforms.Rejected++
		}
	}
	summary.Warnings = append(summary.Warnings, outcome.Result.Warnings...)
	return summary
}

// Exporter writes summaries to blob storage under a fixed prefix.
type Exporter struct {
	store  blob.Store
	prefix string
	nowFn  func() time.Time
}

// NewExporter wires an exporter to a blob store. Keys land under
// "reports/".
func NewExporter(store blob.Store) *Exporter {
	return &Exporter{store: store, prefix: "reports/", nowFn: func() time.Time { return time.Now().UTC() }}
}

// Export marshals the summary and stores it create-only. The key embeds a
// UTC timestamp so successive runs never collide.
func (e *Exporter) Export(ctx context.Context, summary Summary) (blob.Info, error) {
	key := fmt.Sprintf("%simport-%s.json", e.prefix, e.nowFn().Format("20060102T150405Z"))
	return e.putJSON(ctx, key, summary)
}

// ExportDataset writes the committed dataset snapshot create-only under
// "datasets/".
func (e *Exporter) ExportDataset(ctx context.Context, snapshot core.DatasetSnapshot) (blob.Info, error) {
	key := fmt.Sprintf("datasets/export-%s.json", e.nowFn().Format("20060102T150405Z"))
	return e.putJSON(ctx, key, snapshot)
}

func (e *Exporter) putJSON(ctx context.Context, key string, v any) (blob.Info, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return blob.Info{}, fmt.Errorf("marshal report: %w", err)
	}
	info, err := e.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: "application/json"})
	if err != nil {
		return blob.Info{}, fmt.Errorf("store report %s: %w", key, err)
	}
	return info, nil
}
