package validation

import (
	"strings"
	"testing"
)

func TestSequenceValidatorStrictAlphabet(t *testing.T) {
	v := NewSequenceValidator(false)
	if v.AllowsExtended() {
		t.Fatalf("strict validator must not allow extended codes")
	}
	res := v.Validate("ACDEFGHIKLMNPQRSTVWY")
	if !res.Valid {
		t.Fatalf("standard alphabet must pass: %s", res.ErrorMessage())
	}
	res = v.Validate("ACDEFGHIKXZ")
	if res.Valid {
		t.Fatalf("ambiguity codes must fail the strict validator")
	}
	if res.Errors[0].Kind != KindInvalidSequence {
		t.Fatalf("expected invalid_sequence, got %s", res.Errors[0].Kind)
	}
}

func TestSequenceValidatorExtendedAlphabet(t *testing.T) {
	v := NewSequenceValidator(true)
	res := v.Validate("ACDEFGHIKXBZJUO")
	if !res.Valid {
		t.Fatalf("extended codes must pass: %s", res.ErrorMessage())
	}
}

func TestSequenceValidatorNormalizesInput(t *testing.T) {
	v := NewSequenceValidator(false)
	res := v.Validate("  mkvlaheawvtg  ")
	if !res.Valid {
		t.Fatalf("lower-case and whitespace must be normalized away: %s", res.ErrorMessage())
	}
}

func TestSequenceValidatorEmptyAndWhitespace(t *testing.T) {
	v := NewSequenceValidator(true)
	res := v.Validate("")
	if res.Valid || res.Errors[0].Kind != KindMissingRequiredField {
		t.Fatalf("empty sequence must fail as missing field, got %+v", res.Errors)
	}
	res = v.Validate("   \n\t ")
	if res.Valid || res.Errors[0].Kind != KindInvalidSequence {
		t.Fatalf("whitespace-only sequence must fail as invalid sequence, got %+v", res.Errors)
	}
}

func TestSequenceValidatorReportsSortedUniqueInvalidChars(t *testing.T) {
	v := NewSequenceValidator(false)
	res := v.Validate("MKV9$9$")
	if res.Valid {
		t.Fatalf("expected failure")
	}
	msg := res.Errors[0].Message
	if !strings.Contains(msg, "$, 9") {
		t.Fatalf("invalid characters must be sorted and deduplicated: %q", msg)
	}
}

func TestSequenceValidatorLengthWarnings(t *testing.T) {
	v := NewSequenceValidator(false)
	res := v.Validate("MKVLA")
	if !res.Valid || len(res.Warnings) != 1 {
		t.Fatalf("short sequence must warn once, got %+v", res)
	}
	res = v.Validate(strings.Repeat("A", 50001))
	if !res.Valid || len(res.Warnings) != 1 {
		t.Fatalf("long sequence must warn once, got %d warnings", len(res.Warnings))
	}
}

func TestSequenceValidatorInternalStopCodon(t *testing.T) {
	v := NewSequenceValidator(true)
	res := v.Validate("MKVLAHEAWVT*")
	if !res.Valid || len(res.Warnings) != 0 {
		t.Fatalf("trailing stop codon must pass without warning, got %+v", res)
	}
	res = v.Validate("MKVLA*HEAWVT")
	if !res.Valid {
		t.Fatalf("internal stop codon stays valid under the extended alphabet")
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("internal stop codon must warn, got %v", res.Warnings)
	}
}

func TestClean(t *testing.T) {
	if got := Clean("  mkvl \n"); got != "MKVL" {
		t.Fatalf("unexpected cleaned sequence %q", got)
	}
}
