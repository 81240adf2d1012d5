package validation

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestResultAccumulation(t *testing.T) {
	result := NewResult()
	if !result.Valid {
		t.Fatalf("new result must start valid")
	}
	result.AddWarning("heads up")
	if !result.Valid {
		t.Fatalf("warnings must not invalidate the result")
	}
	result.AddError(Error{Kind: KindInvalidFormat, Field: "name", Message: "bad name"})
	result.AddError(Error{Kind: KindOutOfBounds, Field: "start", Message: "bad start"})
	if result.Valid {
		t.Fatalf("errors must invalidate the result")
	}
	if len(result.Errors) != 2 || result.Errors[0].Field != "name" {
		t.Fatalf("errors must keep insertion order, got %+v", result.Errors)
	}
	if got := result.ErrorMessage(); got != "bad name; bad start" {
		t.Fatalf("unexpected joined message %q", got)
	}
}

func TestResultErrorMessageEmpty(t *testing.T) {
	if got := NewResult().ErrorMessage(); got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
}

func TestResultMarshalsEmptyErrorsAsArray(t *testing.T) {
	data, err := json.Marshal(NewResult())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"errors":[]`) {
		t.Fatalf("empty errors must serialize as an array, got %s", data)
	}
	if strings.Contains(string(data), "null") {
		t.Fatalf("clean result must not serialize null fields, got %s", data)
	}

	failing := NewResult()
	failing.AddError(Error{Kind: KindInvalidFormat, Field: "name", Message: "bad name"})
	data, err = json.Marshal(failing)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Valid || len(decoded.Errors) != 1 || decoded.Errors[0].Field != "name" {
		t.Fatalf("round trip lost findings: %+v", decoded)
	}
}

func TestResultExtendQualifiesFields(t *testing.T) {
	inner := NewResult()
	inner.AddError(Error{Kind: KindOutOfBounds, Field: "start", Message: "start < 1"})
	inner.AddError(Error{Kind: KindInvalidFormat, Message: "not a map"})
	inner.AddWarning("short region")

	outer := NewResult()
	outer.Extend("region_of_interest", inner)
	if outer.Valid {
		t.Fatalf("extend must propagate invalidity")
	}
	if got := outer.Errors[0].Field; got != "region_of_interest.start" {
		t.Fatalf("expected qualified field, got %q", got)
	}
	if got := outer.Errors[1].Field; got != "region_of_interest" {
		t.Fatalf("empty field must take the prefix itself, got %q", got)
	}
	if len(outer.Warnings) != 1 {
		t.Fatalf("warnings must carry over")
	}

	flat := NewResult()
	flat.Extend("", inner)
	if flat.Errors[0].Field != "start" {
		t.Fatalf("empty prefix must leave fields untouched, got %q", flat.Errors[0].Field)
	}
}
