package metrics

import (
	"reflect"
	"testing"
)

// TestParseValuesNumbers verifies numeric lines become float64 atoms in
// source order.
func TestParseValuesNumbers(t *testing.T) {
	got := ParseValues("72\n75\n130\n165")
	want := []any{72.0, 75.0, 130.0, 165.0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseValues = %v, want %v", got, want)
	}
}

// TestParseValuesLineEndings verifies CRLF and bare CR are treated as line
// breaks (shortcut exports vary by iOS version).
func TestParseValuesLineEndings(t *testing.T) {
	got := ParseValues("60\r\n61\r62")
	want := []any{60.0, 61.0, 62.0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseValues = %v, want %v", got, want)
	}
}

// TestParseValuesTextFallback verifies unparseable lines are kept as text
// atoms rather than dropped or treated as errors.
func TestParseValuesTextFallback(t *testing.T) {
	got := ParseValues("REM\n42\nDeep")
	want := []any{"REM", 42.0, "Deep"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseValues = %v, want %v", got, want)
	}
}

// TestParseValuesPercentDecoding verifies percent-encoded payloads are
// decoded before splitting.
func TestParseValuesPercentDecoding(t *testing.T) {
	got := ParseValues("Core%20Sleep%0ADeep%20Sleep")
	want := []any{"Core Sleep", "Deep Sleep"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseValues = %v, want %v", got, want)
	}
}

// TestParseValuesBlankAndWhitespace verifies empty and whitespace-only lines
// are dropped and surviving lines are trimmed.
func TestParseValuesBlankAndWhitespace(t *testing.T) {
	got := ParseValues("\n  55  \n\n   \nAwake \n")
	want := []any{55.0, "Awake"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseValues = %v, want %v", got, want)
	}
}

// TestParseValuesInvalidEscape verifies a stray % does not fail the parse;
// the raw text is used as-is.
func TestParseValuesInvalidEscape(t *testing.T) {
	got := ParseValues("50%\n60")
	want := []any{"50%", 60.0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseValues = %v, want %v", got, want)
	}
}

// TestParseValuesEmpty verifies an empty blob yields no atoms.
func TestParseValuesEmpty(t *testing.T) {
	if got := ParseValues(""); len(got) != 0 {
		t.Errorf("ParseValues(\"\") = %v, want empty", got)
	}
}
