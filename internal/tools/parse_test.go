package tools

import (
	"reflect"
	"testing"
)

func TestParseKeyValues(t *testing.T) {
	raw := `SENTIMENT: positive
Tone: inspiring

this line has no colon
KEY_MESSAGE: ship early: iterate often`

	kv := ParseKeyValues(raw)
	if kv["SENTIMENT"] != "positive" {
		t.Errorf("SENTIMENT = %q, want positive", kv["SENTIMENT"])
	}
	if kv["TONE"] != "inspiring" {
		t.Errorf("keys should be uppercased, TONE = %q", kv["TONE"])
	}
	if kv["KEY_MESSAGE"] != "ship early: iterate often" {
		t.Errorf("only the first colon should split, got %q", kv["KEY_MESSAGE"])
	}
	if len(kv) != 3 {
		t.Errorf("expected 3 entries, got %d", len(kv))
	}
}

func TestSplitListStripsMarkers(t *testing.T) {
	got := SplitList("- first | 2. second |  | * third", "|")
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitList = %v, want %v", got, want)
	}
}

func TestSplitListEmpty(t *testing.T) {
	if got := SplitList("   ", ","); got != nil {
		t.Errorf("expected nil for blank input, got %v", got)
	}
}

func TestSafeInt(t *testing.T) {
	if got := SafeInt("~250 words", 0); got != 250 {
		t.Errorf("SafeInt(~250 words) = %d, want 250", got)
	}
	if got := SafeInt("no digits here", 42); got != 42 {
		t.Errorf("SafeInt should fall back to default, got %d", got)
	}
}

func TestSafeFloat(t *testing.T) {
	if got := SafeFloat(" 0.75 ", 0); got != 0.75 {
		t.Errorf("SafeFloat = %v, want 0.75", got)
	}
	if got := SafeFloat("bad", 0.5); got != 0.5 {
		t.Errorf("SafeFloat fallback = %v, want 0.5", got)
	}
}

func TestEnsureHashtag(t *testing.T) {
	if got := EnsureHashtag("GoLang"); got != "#GoLang" {
		t.Errorf("EnsureHashtag = %q", got)
	}
	if got := EnsureHashtag("#AI"); got != "#AI" {
		t.Errorf("existing prefix should be kept, got %q", got)
	}
	if got := EnsureHashtag("  "); got != "" {
		t.Errorf("blank input should yield empty, got %q", got)
	}
}

func TestDedupeStringsKeepsOrder(t *testing.T) {
	got := DedupeStrings([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DedupeStrings = %v, want %v", got, want)
	}
}
