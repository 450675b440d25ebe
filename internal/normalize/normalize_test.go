package normalize

import (
	"strings"
	"testing"
)

func TestMapping_AliasFields(t *testing.T) {
	m := Mapping{
		"first_name": {From: "firstName"},
		"last_name":  {From: "lastName"},
		"age":        {From: "age"},
	}

	got := m.Apply(Record{"firstName": "John", "lastName": "Doe", "age": 30})

	if got["first_name"] != "John" || got["last_name"] != "Doe" || got["age"] != 30 {
		t.Errorf("unexpected result: %v", got)
	}
}

func TestMapping_TransformWinsOverAlias(t *testing.T) {
	m := Mapping{
		"name": {
			From:      "firstName",
			Transform: func(src Record) any { return strings.ToUpper(String(src, "firstName", "")) },
		},
	}

	got := m.Apply(Record{"firstName": "john"})
	if got["name"] != "JOHN" {
		t.Errorf("expected transform result, got %v", got["name"])
	}
}

func TestMapping_FallbackForMissingFields(t *testing.T) {
	m := Mapping{
		"name":     {From: "name", Fallback: "unknown"},
		"explicit": {From: "explicit", Fallback: false},
	}

	got := m.Apply(Record{})
	if got["name"] != "unknown" {
		t.Errorf("expected fallback, got %v", got["name"])
	}
	if got["explicit"] != false {
		t.Errorf("expected false fallback, got %v", got["explicit"])
	}
}

func TestMapping_IgnoresUnknownInputFields(t *testing.T) {
	m := Mapping{"id": {From: "id"}}

	got := m.Apply(Record{"id": "x", "brand_new_api_field": "ignored"})
	if len(got) != 1 {
		t.Errorf("unknown input fields must be ignored, got %v", got)
	}
}

func TestMapping_EmptyInput(t *testing.T) {
	m := Mapping{"id": {From: "id"}}

	got := m.Apply(Record{})
	if len(got) != 0 {
		t.Errorf("expected empty output without fallbacks, got %v", got)
	}
}

func TestHelpers(t *testing.T) {
	rec := Record{"s": "v", "n": float64(7), "b": true}

	if String(rec, "s", "") != "v" {
		t.Error("String failed")
	}
	if String(rec, "missing", "d") != "d" {
		t.Error("String fallback failed")
	}
	if Int(rec, "n", 0) != 7 {
		t.Error("Int failed for float64")
	}
	if Int(rec, "missing", 3) != 3 {
		t.Error("Int fallback failed")
	}
	if !Bool(rec, "b", false) {
		t.Error("Bool failed")
	}
	if Bool(rec, "missing", true) != true {
		t.Error("Bool fallback failed")
	}
}
