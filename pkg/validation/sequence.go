package validation

import (
	"sort"
	"strings"
)

const (
	// standardAminoAcids is the strict 20-letter amino-acid alphabet.
	standardAminoAcids = "ACDEFGHIKLMNPQRSTVWY"
	// extendedAminoAcids adds ambiguity and stop codes.
	extendedAminoAcids = standardAminoAcids + "XBZJUO*"
)

const (
	shortSequenceThreshold = 10
	longSequenceThreshold  = 50000
)

// SequenceValidator checks amino-acid sequences against a configured
// alphabet. The zero value is not usable; construct via NewSequenceValidator.
type SequenceValidator struct {
	allowExtended bool
	alphabet      map[rune]struct{}
}

// NewSequenceValidator constructs a sequence validator. allowExtended
// widens the accepted alphabet from the 20 standard amino acids to include
// ambiguity and stop codes (X, B, Z, J, U, O, *).
func NewSequenceValidator(allowExtended bool) *SequenceValidator {
	chars := standardAminoAcids
	if allowExtended {
		chars = extendedAminoAcids
	}
	alphabet := make(map[rune]struct{}, len(chars))
	for _, c := range chars {
		alphabet[c] = struct{}{}
	}
	return &SequenceValidator{allowExtended: allowExtended, alphabet: alphabet}
}

// AllowsExtended reports whether ambiguity and stop codes are accepted.
func (v *SequenceValidator) AllowsExtended() bool { return v.allowExtended }

// Validate checks a raw protein sequence. The sequence is trimmed and
// upper-cased before character and length checks; empty and whitespace-only
// input short-circuits with a single error.
func (v *SequenceValidator) Validate(sequence string) Result {
	result := NewResult()

	if sequence == "" {
		result.AddError(Error{
			Kind:    KindMissingRequiredField,
			Field:   "sequence",
			Message: "protein sequence cannot be empty",
			Value:   sequence,
		})
		return result
	}

	clean := Clean(sequence)
	if clean == "" {
		result.AddError(Error{
			Kind:    KindInvalidSequence,
			Field:   "sequence",
			Message: "protein sequence cannot be whitespace-only",
			Value:   sequence,
		})
		return result
	}

	invalid := make(map[rune]struct{})
	for _, c := range clean {
		if _, ok := v.alphabet[c]; !ok {
			invalid[c] = struct{}{}
		}
	}
	if len(invalid) > 0 {
		chars := make([]string, 0, len(invalid))
		for c := range invalid {
			chars = append(chars, string(c))
		}
		sort.Strings(chars)
		result.AddError(Error{
			Kind:    KindInvalidSequence,
			Field:   "sequence",
			Message: "invalid amino acid characters found: " + strings.Join(chars, ", "),
			Value:   sequence,
			Context: map[string]any{"invalid_characters": chars},
		})
	}

	if len(clean) < shortSequenceThreshold {
		result.AddWarning("protein sequence is unusually short (< 10 amino acids)")
	} else if len(clean) > longSequenceThreshold {
		result.AddWarning("protein sequence is unusually long (> 50,000 amino acids)")
	}

	if idx := strings.IndexByte(clean, '*'); idx >= 0 && idx < len(clean)-1 {
		result.AddWarning("stop codon (*) found in middle of sequence")
	}

	return result
}

// Clean trims surrounding whitespace and upper-cases a raw sequence. It
// performs no validity checking.
func Clean(sequence string) string {
	return strings.ToUpper(strings.TrimSpace(sequence))
}
