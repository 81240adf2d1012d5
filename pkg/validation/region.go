package validation

import (
	"encoding/json"
	"fmt"
	"math"
)

// Region length thresholds encode the typical span of a structural barrel;
// deviations warn but never reject.
const (
	shortRegionThreshold = 200
	longRegionThreshold  = 400
)

// ValidateRegion checks a start/end/confidence span against a sequence
// length. The region arrives as a deserialized record, so integer fields
// may be represented as whole JSON numbers. Missing or non-integer
// coordinates stop further checks; the three numeric bound checks all run
// and accumulate.
func ValidateRegion(region map[string]any, sequenceLength int) Result {
	result := NewResult()

	if region == nil {
		result.AddError(Error{
			Kind:    KindInvalidFormat,
			Field:   "region",
			Message: "region must be a map with start and end coordinates",
		})
		return result
	}

	for _, field := range []string{"start", "end"} {
		if _, ok := region[field]; !ok {
			result.AddError(Error{
				Kind:    KindMissingRequiredField,
				Field:   field,
				Message: "missing required field: " + field,
				Value:   region,
			})
		}
	}
	if len(result.Errors) > 0 {
		return result
	}

	start, startOK := intValue(region["start"])
	end, endOK := intValue(region["end"])
	if !startOK || !endOK {
		result.AddError(Error{
			Kind:    KindInvalidFormat,
			Field:   "region",
			Message: "start and end coordinates must be integers",
			Value:   region,
		})
		return result
	}

	if start < 1 {
		result.AddError(Error{
			Kind:    KindOutOfBounds,
			Field:   "start",
			Message: "start coordinate must be >= 1",
			Value:   start,
		})
	}
	if end > sequenceLength {
		result.AddError(Error{
			Kind:    KindOutOfBounds,
			Field:   "end",
			Message: fmt.Sprintf("end coordinate %d exceeds sequence length %d", end, sequenceLength),
			Value:   end,
			Context: map[string]any{"sequence_length": sequenceLength},
		})
	}
	if start >= end {
		result.AddError(Error{
			Kind:    KindInconsistentData,
			Field:   "region",
			Message: fmt.Sprintf("start coordinate %d must be less than end coordinate %d", start, end),
			Value:   region,
		})
	}

	if confidence, ok := region["confidence"]; ok {
		f, numeric := floatValue(confidence)
		if !numeric || f < 0.0 || f > 1.0 {
			result.AddError(Error{
				Kind:    KindInvalidFormat,
				Field:   "confidence",
				Message: "confidence score must be a number between 0.0 and 1.0",
				Value:   confidence,
			})
		}
	}

	if result.Valid {
		length := end - start + 1
		if length < shortRegionThreshold {
			result.AddWarning(fmt.Sprintf("region of interest is unusually short (%d residues)", length))
		} else if length > longRegionThreshold {
			result.AddWarning(fmt.Sprintf("region of interest is unusually long (%d residues)", length))
		}
	}

	return result
}

// intValue accepts Go integer types and JSON numbers that are whole.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
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

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}
