package domain

import (
	"context"

	"proteincore/pkg/validation"
)

// Result aliases the validation result type produced by rule evaluation.
type Result = validation.Result

// DatasetView provides read-only access to one materialized dataset
// snapshot for rule evaluation.
type DatasetView interface {
	ListStructuralEntries() []StructuralEntry
	ListProteinRecords() []ProteinRecord
	ListProteinIsoforms() []ProteinIsoform
	FindStructuralEntry(accession string) (StructuralEntry, bool)
	FindProteinRecord(proteinID, parentAccession string) (ProteinRecord, bool)
	FindProteinIsoform(isoformID string) (ProteinIsoform, bool)
}

// Rule defines an evaluation executed over a dataset snapshot, either at
// transaction commit or during a standalone batch validation pass. At
// commit time changes carries the transaction's mutation set in order;
// batch validation passes nil.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view DatasetView, changes []Change) (validation.Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rules in registration order.
func (e *RulesEngine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate executes all registered rules and aggregates their results.
// Rule findings are data; a non-nil error means a rule itself failed to run.
func (e *RulesEngine) Evaluate(ctx context.Context, view DatasetView, changes []Change) (validation.Result, error) {
	combined := validation.NewResult()
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return validation.Result{}, err
		}
		combined.Extend("", res)
	}
	return combined, nil
}

// RuleViolationError is returned when a transaction is blocked by
// validation failures.
type RuleViolationError struct {
	Result validation.Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by validation rules: " + e.Result.ErrorMessage()
}
